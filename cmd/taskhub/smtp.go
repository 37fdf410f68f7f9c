package main

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/taskhub/taskhub/internal/credential"
)

var smtpCmd = &cobra.Command{
	Use:   "smtp",
	Short: "Manage the outbound mail credential",
}

var smtpSetPasswordCmd = &cobra.Command{
	Use:   "set-password",
	Short: "Store the SMTP account password in the system keyring",
	RunE: func(cmd *cobra.Command, args []string) error {
		var password string
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("SMTP password").
					EchoMode(huh.EchoModePassword).
					Value(&password),
			),
		)
		if err := form.Run(); err != nil {
			return err
		}
		if password == "" {
			return fmt.Errorf("password must not be empty")
		}
		if err := credential.Set(credential.SMTPPasswordKey, password); err != nil {
			return fmt.Errorf("storing password: %w", err)
		}
		fmt.Println("SMTP password stored")
		return nil
	},
}

var smtpClearPasswordCmd = &cobra.Command{
	Use:   "clear-password",
	Short: "Remove the SMTP account password from the system keyring",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := credential.Delete(credential.SMTPPasswordKey); err != nil {
			return fmt.Errorf("removing password: %w", err)
		}
		fmt.Println("SMTP password removed")
		return nil
	},
}

func init() {
	smtpCmd.AddCommand(smtpSetPasswordCmd)
	smtpCmd.AddCommand(smtpClearPasswordCmd)
	rootCmd.AddCommand(smtpCmd)
}
