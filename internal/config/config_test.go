package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromFileDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "server.yaml", `
server:
  private_key: abc123
register:
  enable: true
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "abc123", cfg.Server.PrivateKey)
	require.True(t, cfg.Register.Enable)
	require.Equal(t, 7627, cfg.Server.Port)
	require.Equal(t, "1MB", cfg.Server.NonceCacheSize)
	require.Equal(t, "disable", cfg.Postgres.SSLMode)
}

func TestLoadFromFileEnvSubstitution(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "server.yaml", `
server:
  private_key: ${OTMP_TEST_KEY:fallback}
postgresdb:
  password: ${OTMP_TEST_PW}
`)

	t.Setenv("OTMP_TEST_KEY", "injected")
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "injected", cfg.Server.PrivateKey)
	require.Equal(t, "", cfg.Postgres.Password)
}

func TestLoadFromFileDirectOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "server.yaml", `
server:
  port: 1
`)
	t.Setenv("OTMP_SERVER_PORT", "9999")
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, 9999, cfg.Server.Port)
}

func TestLoadPicksEnvironmentFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "production.yaml", "server:\n  server_name: prod-otmp\n")

	cfg, err := Load(LoaderOptions{ConfigDir: dir, Environment: "production"})
	require.NoError(t, err)
	require.Equal(t, "prod-otmp", cfg.Server.ServerName)
}

func TestLoadFallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "default.yaml", "server:\n  server_name: fallback-otmp\n")

	cfg, err := Load(LoaderOptions{ConfigDir: dir, Environment: "staging"})
	require.NoError(t, err)
	require.Equal(t, "fallback-otmp", cfg.Server.ServerName)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(LoaderOptions{ConfigDir: t.TempDir(), Environment: "nope"})
	require.Error(t, err)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roundtrip.yaml")

	cfg := &Config{}
	cfg.Server.Port = 4000
	cfg.Server.PrivateKey = "shh"
	require.NoError(t, SaveToFile(cfg, path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, 4000, loaded.Server.Port)
	require.Equal(t, "shh", loaded.Server.PrivateKey)
}
