package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, def(), cfg)
	assert.Equal(t, ":8080", cfg.Addr())

	// отсутствующий файл не ошибка
	cfg, err = Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.NoError(t, err)
	assert.Equal(t, "hive", cfg.Schema)
}

func TestLoadLayering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hive.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9000"
schema: files
dbUrl: postgres://file
requestTimeout: 5s
autoMigrate: false
`), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "files", cfg.Schema)
	assert.Equal(t, "postgres://file", cfg.DBURL)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.AutoMigrate)

	t.Setenv("HIVE_DB_URL", "postgres://env")
	t.Setenv("STORAGE_SCHEMA", "legacy")
	cfg, err = Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://env", cfg.DBURL)
	assert.Equal(t, "legacy", cfg.Schema)

	// HIVE_SCHEMA важнее STORAGE_SCHEMA
	t.Setenv("HIVE_SCHEMA", "primary")
	cfg, err = Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "primary", cfg.Schema)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--schema=flagged", "--log-format=json"}))
	cfg, err = Load(path, fs)
	require.NoError(t, err)
	assert.Equal(t, "flagged", cfg.Schema)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "9000", cfg.Port) // флаг не задан — значение из файла
}

func TestLoadConfigFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hive.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"port":"7070","dslDir":"defs"}`), 0o644))

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--config", path}))
	cfg, err := Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "defs", cfg.DSLDir)
}

func TestLoadErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [\n"), 0o644))
	_, err := Load(path, nil)
	assert.ErrorContains(t, err, "error reading config file")

	t.Setenv("HIVE_PORT", " ")
	_, err = Load("", nil)
	assert.ErrorContains(t, err, "port must not be empty")
}
