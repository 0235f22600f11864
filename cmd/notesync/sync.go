package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"notesync/internal/app"
	"notesync/internal/session"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Refresh the local cache from the remote store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUser(cmd.Context(), func(a *app.App, sess *session.Session) error {
			start := time.Now()
			noteList, err := a.Notes.Refresh(cmd.Context(), sess)
			if err != nil {
				return err
			}
			taskList, err := a.Tasks.Refresh(cmd.Context(), sess)
			if err != nil {
				return err
			}

			fmt.Printf("Sync complete in %v\n", time.Since(start).Round(time.Millisecond))
			fmt.Printf("   Notes: %d\n", len(noteList))
			fmt.Printf("   Tasks: %d\n", len(taskList))
			fmt.Printf("   Cache: %s (%s)\n", cfg.LocalDB, cfg.RefreshPolicy)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
