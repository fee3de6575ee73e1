package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "school-api",
		Short:         "Online school backend: accounts, courses, schedules and notifications",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newServeCommand(), newConsumeCommand(), newMigrateCommand(), newSweepResetsCommand())
	return cmd
}

func newServeCommand() *cobra.Command {
	var withConsumer bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), withConsumer)
		},
	}
	cmd.Flags().BoolVar(&withConsumer, "with-consumer", true, "also run the notification consumer in this process")
	return cmd
}

func newConsumeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "consume",
		Short: "Project queued notification events into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsume(cmd.Context())
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context())
		},
	}
}

func newSweepResetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-resets",
		Short: "Delete expired password reset tokens once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweepResets(cmd.Context())
		},
	}
}
