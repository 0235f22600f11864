package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"notesync/internal/app"
	"notesync/internal/auth"
)

var signUpInput auth.SignUpInput

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Register a new account",
	Long: `Register a new account with the configured --email and --password.

The birth date is given as two-digit day and month and a four-digit year;
users must be at least 14 years old.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := app.Open(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		in := signUpInput
		in.Email, in.Password = cfg.Email, cfg.Password
		sess, err := a.Gateway.SignUp(ctx, in)
		if err != nil {
			return err
		}
		fmt.Printf("registered %s (%s)\n", sess.Email, sess.UserID)
		return nil
	},
}

func init() {
	f := signupCmd.Flags()
	f.StringVar(&signUpInput.FullName, "full-name", "", "full name")
	f.StringVar(&signUpInput.Username, "username", "", "username")
	f.StringVar(&signUpInput.PhoneNumber, "phone", "", "phone number")
	f.StringVar(&signUpInput.Day, "day", "", "birth day (DD)")
	f.StringVar(&signUpInput.Month, "month", "", "birth month (MM)")
	f.StringVar(&signUpInput.Year, "year", "", "birth year (YYYY)")
	f.BoolVar(&signUpInput.AcceptTerms, "accept-terms", false, "accept the terms and conditions")
	rootCmd.AddCommand(signupCmd)
}
