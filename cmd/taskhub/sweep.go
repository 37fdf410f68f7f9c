package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskhub/taskhub/internal/store"
	"github.com/taskhub/taskhub/internal/sweep"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Send due-soon reminders once and exit",
	Long: `Scans for incomplete tasks due within the next two days and emails a
reminder to each task's creator and assignees. The same sweep runs on a
timer inside "taskhub serve" when sweep.enabled is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

		st, err := store.NewSQLiteStore(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer st.Close()

		mailer := buildMailer(cfg.SMTP, logger)
		result, err := sweep.New(st, mailer, logger).Run(cmd.Context())
		if err != nil {
			return fmt.Errorf("sweep: %w", err)
		}

		fmt.Printf("Notified %d recipients across %d tasks\n", result.RecipientsNotified, result.TasksNotified)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
