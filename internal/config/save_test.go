package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveUsers_CreatesNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	err := SaveUsers(path, map[string]UserConfig{
		"bob":   {Roles: []string{"user"}},
		"alice": {Roles: []string{"admin", "user"}},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "roles: [admin, user]")
	assert.Less(t, strings.Index(content, "alice:"), strings.Index(content, "bob:"), "users are sorted")
}

func TestSaveUsers_PreservesOtherConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	initial := `# pagetypes configuration
storage:
  backend: sqlite # keep me
users:
  admin:
    roles: [admin]
server:
  addr: :9000
`
	require.NoError(t, os.WriteFile(path, []byte(initial), 0o600))

	require.NoError(t, SaveUsers(path, map[string]UserConfig{"carol": {Roles: []string{"guest"}}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "# pagetypes configuration")
	assert.Contains(t, content, "backend: sqlite # keep me")
	assert.Contains(t, content, "addr: :9000")
	assert.Contains(t, content, "carol:")
	assert.NotContains(t, content, "admin:")
}

func TestSaveUsers_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(DefaultConfigTemplate()), 0o600))

	users := map[string]UserConfig{
		"alice": {Roles: []string{"user"}},
		"root":  {Roles: []string{"admin"}},
	}
	require.NoError(t, SaveUsers(path, users))

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	cfg, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, users, cfg.Users)
}

func TestSaveUsers_AtomicWriteLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, SaveUsers(path, map[string]UserConfig{"a": {Roles: []string{"user"}}}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "config.yaml", entries[0].Name())
}

func TestSaveUsers_RejectsNonMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- just\n- a list\n"), 0o600))

	err := SaveUsers(path, nil)
	require.ErrorContains(t, err, "not a mapping")
}
