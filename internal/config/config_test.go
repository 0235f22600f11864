package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notesync/internal/syncvm"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MONGODB_URI", "")
	t.Setenv("PORT", "")

	cfg, err := Load(newViper())
	require.NoError(t, err)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, "notesync", cfg.Database)
	assert.Equal(t, "7521", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, syncvm.PolicyMerge, cfg.RefreshPolicy)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://db:27017")
	t.Setenv("PORT", "9000")
	t.Setenv("NOTESYNC_REFRESH_POLICY", "WIPE")
	t.Setenv("NOTESYNC_TOKEN_TTL", "30m")

	cfg, err := Load(newViper())
	require.NoError(t, err)
	assert.Equal(t, "mongodb://db:27017", cfg.MongoURI)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, syncvm.PolicyWipe, cfg.RefreshPolicy)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
}

func TestLoadFile(t *testing.T) {
	t.Setenv("MONGODB_URI", "")
	path := filepath.Join(t.TempDir(), "notesync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database: other\nlocal_db: /tmp/x.db\n"), 0o600))

	v := newViper()
	require.NoError(t, ReadFile(v, path))
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "other", cfg.Database)
	assert.Equal(t, "/tmp/x.db", cfg.LocalDB)
}

func TestLoadRejectsBadValues(t *testing.T) {
	v := newViper()
	v.Set("refresh_policy", "sometimes")
	_, err := Load(v)
	assert.Error(t, err)

	v = newViper()
	v.Set("token_ttl", "soon")
	_, err = Load(v)
	assert.Error(t, err)

	assert.Error(t, ReadFile(newViper(), filepath.Join(t.TempDir(), "missing.yaml")))
}
