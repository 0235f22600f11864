// Package config loads runtime settings from defaults, an optional config
// file and the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"notesync/internal/syncvm"
)

const envPrefix = "NOTESYNC"

type Config struct {
	MongoURI      string
	Database      string
	Port          string
	LocalDB       string
	JWTSecret     string
	TokenTTL      time.Duration
	RefreshPolicy syncvm.Policy
	LogLevel      string
	LogFile       string

	// Credentials used by CLI commands that act on behalf of a user.
	Email    string
	Password string
}

// SetDefaults registers defaults and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("database", "notesync")
	v.SetDefault("port", "7521")
	v.SetDefault("local_db", "notesync.db")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", "24h")
	v.SetDefault("refresh_policy", "merge")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("email", "")
	v.SetDefault("password", "")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// Unprefixed names shared with other deployments.
	_ = v.BindEnv("mongo_uri", "MONGODB_URI", envPrefix+"_MONGO_URI")
	_ = v.BindEnv("port", "PORT", envPrefix+"_PORT")
}

// ReadFile merges the config file at path into v. An empty path is a no-op.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// Load resolves the settings held by v.
func Load(v *viper.Viper) (*Config, error) {
	policy, err := syncvm.ParsePolicy(strings.ToLower(v.GetString("refresh_policy")))
	if err != nil {
		return nil, err
	}

	ttl, err := time.ParseDuration(v.GetString("token_ttl"))
	if err != nil {
		return nil, fmt.Errorf("parse token_ttl: %w", err)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token_ttl must be positive, got %s", ttl)
	}

	cfg := &Config{
		MongoURI:      v.GetString("mongo_uri"),
		Database:      v.GetString("database"),
		Port:          v.GetString("port"),
		LocalDB:       v.GetString("local_db"),
		JWTSecret:     v.GetString("jwt_secret"),
		TokenTTL:      ttl,
		RefreshPolicy: policy,
		LogLevel:      v.GetString("log_level"),
		LogFile:       v.GetString("log_file"),
		Email:         v.GetString("email"),
		Password:      v.GetString("password"),
	}
	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("mongo_uri is required")
	}
	return cfg, nil
}
