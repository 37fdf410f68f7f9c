package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/taskhub/taskhub/internal/service"
	"github.com/taskhub/taskhub/internal/store"
)

var (
	taskListAs     string
	taskListStatus string
	taskListLimit  int
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Inspect tasks",
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks visible to a user",
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

		principal, err := st.GetUserByUsername(cmd.Context(), taskListAs)
		if err != nil {
			return fmt.Errorf("looking up user %q: %w", taskListAs, err)
		}

		tasks := service.NewTaskService(st, nil, nil)
		opts := service.ListOptions{Limit: taskListLimit}
		if taskListStatus != "" {
			opts.Status = &taskListStatus
		}
		result, err := tasks.List(cmd.Context(), *principal, opts)
		if err != nil {
			return err
		}

		t := table.New().
			Headers("#", "TITLE", "STATUS", "DUE", "CREATOR").
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle.Padding(0, 1)
				}
				return cellStyle
			})
		for _, tv := range result.Tasks {
			due := ""
			if tv.DueDate != nil {
				due = tv.DueDate.Format("2006-01-02")
			}
			t.Row(tv.TaskNumber, tv.Title, string(tv.Status), due, tv.CreatorID)
		}
		fmt.Println(t)
		fmt.Printf("%d total, %d pending, %d completed\n",
			result.TotalCount, result.PendingCount, result.CompletedCount)
		return nil
	},
}

func init() {
	taskListCmd.Flags().StringVar(&taskListAs, "as", "", "username to view tasks as")
	taskListCmd.Flags().StringVar(&taskListStatus, "status", "", "filter by status")
	taskListCmd.Flags().IntVar(&taskListLimit, "limit", 50, "maximum tasks to show")
	taskListCmd.MarkFlagRequired("as")
	taskCmd.AddCommand(taskListCmd)
	rootCmd.AddCommand(taskCmd)
}
