package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/taskhub/taskhub/internal/auth"
	"github.com/taskhub/taskhub/internal/model"
	"github.com/taskhub/taskhub/internal/store"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user account interactively",
	Long: `Prompts for account details and creates the user. This is the only
way to create admin accounts; the HTTP register endpoint refuses them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		var (
			username   string
			email      string
			password   string
			role       string
			department string
		)

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Username").
					Value(&username).
					Validate(func(s string) error {
						if strings.TrimSpace(s) == "" {
							return fmt.Errorf("username is required")
						}
						return nil
					}),
				huh.NewInput().
					Title("Email").
					Value(&email),
				huh.NewInput().
					Title("Password").
					EchoMode(huh.EchoModePassword).
					Value(&password).
					Validate(func(s string) error {
						if len(s) < 8 {
							return fmt.Errorf("password must be at least 8 characters")
						}
						return nil
					}),
				huh.NewSelect[string]().
					Title("Role").
					Options(
						huh.NewOption("User", string(model.RoleUser)),
						huh.NewOption("Supervisor", string(model.RoleSupervisor)),
						huh.NewOption("Head of Department", string(model.RoleHOD)),
						huh.NewOption("Admin", string(model.RoleAdmin)),
					).
					Value(&role),
				huh.NewInput().
					Title("Department").
					Value(&department),
			),
		)
		if err := form.Run(); err != nil {
			return err
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}

		st, err := store.NewSQLiteStore(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer st.Close()

		user, err := st.CreateUser(cmd.Context(), model.User{
			Username:     strings.TrimSpace(username),
			Email:        strings.TrimSpace(email),
			Role:         model.Role(role),
			Department:   strings.TrimSpace(department),
			PasswordHash: hash,
		})
		if err != nil {
			return fmt.Errorf("creating user: %w", err)
		}

		fmt.Printf("Created %s (%s)\n", user.Username, user.Role)
		return nil
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all user accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		st, err := store.NewSQLiteStore(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer st.Close()

		users, err := st.ListUsers(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing users: %w", err)
		}

		t := table.New().
			Headers("USERNAME", "EMAIL", "ROLE", "DEPARTMENT").
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle.Padding(0, 1)
				}
				return cellStyle
			})
		for _, u := range users {
			t.Row(u.Username, u.Email, string(u.Role), u.Department)
		}
		fmt.Println(t)
		return nil
	},
}

func init() {
	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userListCmd)
	rootCmd.AddCommand(userCmd)
}
