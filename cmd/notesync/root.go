package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"notesync/internal/app"
	"notesync/internal/config"
	"notesync/internal/logging"
	"notesync/internal/session"
)

var (
	cfgFile string
	v       = viper.New()

	cfg       *config.Config
	logger    *slog.Logger
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "notesync",
	Short: "Per-user notes and tasks backed by MongoDB with a local SQLite cache",
	Long: `notesync keeps each user's notes and tasks in MongoDB and mirrors them
into a local SQLite cache that is refreshed after every change.

Run 'notesync serve' for the HTTP API, web view and MCP endpoint, or use the
note and task commands directly.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.ReadFile(v, cfgFile); err != nil {
			return err
		}
		loaded, err := config.Load(v)
		if err != nil {
			return err
		}
		cfg = loaded

		logger, logCloser, err = logging.New(cfg.LogLevel, cfg.LogFile)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	config.SetDefaults(v)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (yaml, toml or json)")
	flags.String("mongo-uri", "", "MongoDB connection string (env MONGODB_URI)")
	flags.String("database", "", "MongoDB database name")
	flags.String("local-db", "", "path of the local SQLite cache")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.String("log-file", "", "also write logs to this rotated file")
	flags.String("refresh-policy", "", "merge or wipe")
	flags.String("email", "", "account email for commands acting as a user")
	flags.String("password", "", "account password for commands acting as a user")

	for key, name := range map[string]string{
		"mongo_uri":      "mongo-uri",
		"database":       "database",
		"local_db":       "local-db",
		"log_level":      "log-level",
		"log_file":       "log-file",
		"refresh_policy": "refresh-policy",
		"email":          "email",
		"password":       "password",
	} {
		_ = v.BindPFlag(key, flags.Lookup(name))
	}
}

// withUser opens the app, signs in with the configured credentials, and
// runs fn with the resulting session.
func withUser(ctx context.Context, fn func(a *app.App, sess *session.Session) error) error {
	if cfg.Email == "" || cfg.Password == "" {
		return fmt.Errorf("--email and --password (or NOTESYNC_EMAIL and NOTESYNC_PASSWORD) are required")
	}

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	sess, err := a.Gateway.SignIn(ctx, cfg.Email, cfg.Password)
	if err != nil {
		return err
	}
	return fn(a, sess)
}
