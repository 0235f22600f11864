package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"notesync/internal/app"
	"notesync/internal/reminder"
	"notesync/internal/session"
	"notesync/internal/tasks"
)

var (
	taskRemind  string
	taskPending bool
	taskJSON    bool
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add an open task",
	Long: `Add an open task. --remind takes plain English such as
"tomorrow at 9am" or "in 2 hours".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := tasks.TaskInput{Title: args[0]}
		if taskRemind != "" {
			at, err := reminder.ParseWhen(taskRemind, time.Now())
			if err != nil {
				return err
			}
			input.ReminderDate = &at
		}

		return withUser(cmd.Context(), func(a *app.App, sess *session.Session) error {
			task, err := a.Tasks.Create(cmd.Context(), sess, input)
			if err != nil {
				return err
			}
			fmt.Printf("added task %s\n", task.RemoteID)
			if task.ReminderDate != nil {
				fmt.Printf("   Reminder: %s\n", task.ReminderDate.Local().Format(time.RFC1123))
			}
			return nil
		})
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUser(cmd.Context(), func(a *app.App, sess *session.Session) error {
			list, err := a.Tasks.List(cmd.Context(), sess, taskPending)
			if err != nil {
				return err
			}

			if taskJSON {
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(list)
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDONE\tREMINDER\tTITLE")
			for _, t := range list {
				done := " "
				if t.IsCompleted {
					done = "x"
				}
				remind := "-"
				if t.ReminderDate != nil {
					remind = t.ReminderDate.Local().Format("2006-01-02 15:04")
				}
				fmt.Fprintf(tw, "%s\t[%s]\t%s\t%s\n", t.RemoteID, done, remind, t.Title)
			}
			return tw.Flush()
		})
	},
}

var taskToggleCmd = &cobra.Command{
	Use:   "toggle <id>",
	Short: "Flip a task between open and completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUser(cmd.Context(), func(a *app.App, sess *session.Session) error {
			// The cache may be cold in a fresh process.
			if _, err := a.Tasks.Refresh(cmd.Context(), sess); err != nil {
				return err
			}
			task, err := a.Tasks.Toggle(cmd.Context(), sess, args[0])
			if err != nil {
				return err
			}
			state := "open"
			if task.IsCompleted {
				state = "completed"
			}
			fmt.Printf("task %s is now %s\n", task.RemoteID, state)
			return nil
		})
	},
}

func init() {
	taskAddCmd.Flags().StringVar(&taskRemind, "remind", "", `reminder time, e.g. "tomorrow at 9am"`)
	taskListCmd.Flags().BoolVar(&taskPending, "pending", false, "only open tasks")
	taskListCmd.Flags().BoolVar(&taskJSON, "json", false, "output JSON")

	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskToggleCmd)
	rootCmd.AddCommand(taskCmd)
}
