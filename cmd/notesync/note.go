package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"notesync/internal/app"
	"notesync/internal/notes"
	"notesync/internal/session"
)

var (
	noteDetails  string
	noteCategory string
	noteJSON     bool
)

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Manage notes",
}

var noteAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUser(cmd.Context(), func(a *app.App, sess *session.Session) error {
			note, err := a.Notes.Create(cmd.Context(), sess, notes.NoteInput{
				Title:    args[0],
				Details:  noteDetails,
				Category: noteCategory,
			})
			if err != nil {
				return err
			}
			fmt.Printf("added note %s (%s)\n", note.RemoteID, note.Category)
			return nil
		})
	},
}

var noteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached notes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var category notes.Category
		if noteCategory != "" {
			c, err := notes.ParseCategory(noteCategory)
			if err != nil {
				return err
			}
			category = c
		}

		return withUser(cmd.Context(), func(a *app.App, sess *session.Session) error {
			list, err := a.Notes.List(cmd.Context(), sess, category)
			if err != nil {
				return err
			}

			if noteJSON {
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(list)
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCATEGORY\tCREATED\tTITLE")
			for _, n := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", n.RemoteID, n.Category, n.CreatedAt.Local().Format("2006-01-02 15:04"), n.Title)
			}
			return tw.Flush()
		})
	},
}

func init() {
	noteAddCmd.Flags().StringVarP(&noteDetails, "details", "d", "", "note body (markdown)")
	noteAddCmd.Flags().StringVarP(&noteCategory, "category", "c", "", "Work, Study or Personal")
	noteListCmd.Flags().StringVarP(&noteCategory, "category", "c", "", "only this category")
	noteListCmd.Flags().BoolVar(&noteJSON, "json", false, "output JSON")

	noteCmd.AddCommand(noteAddCmd, noteListCmd)
	rootCmd.AddCommand(noteCmd)
}
