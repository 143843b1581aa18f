package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"romforge/internal/editor"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, path, exists, err := Load(filepath.Join(home, "absent.toml"))
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, filepath.Join(home, "absent.toml"), path)
	assert.Equal(t, editor.LanguageEnglish, cfg.Language())
	assert.Equal(t, filepath.Join(home, ".local", "share", "romforge", "history.db"), cfg.Paths.HistoryDB)
	assert.Empty(t, cfg.Paths.RipDir)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadDecodesAndExpands(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(home, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[paths]
rip_dir = "~/rips"
history_db = ""

[session]
language = 7
last_path = "~/dumps/sm"

[logging]
level = "DEBUG"
format = "json"
`), 0o644))

	cfg, _, exists, err := Load(path)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, filepath.Join(home, "rips"), cfg.Paths.RipDir)
	assert.Empty(t, cfg.Paths.HistoryDB)
	assert.Equal(t, editor.LanguageKorean, cfg.Language())
	assert.Equal(t, filepath.Join(home, "dumps", "sm"), cfg.Session.LastPath)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"language": "[session]\nlanguage = 12\n",
		"level":    "[logging]\nlevel = \"loud\"\n",
		"format":   "[logging]\nformat = \"xml\"\n",
		"syntax":   "[session\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".toml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, _, _, err := Load(path)
			require.Error(t, err)
		})
	}
}

func TestSaveStateKeepsOtherSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")

	require.NoError(t, SaveState(path, editor.LanguageFrench, "/dumps/xy"))
	cfg, _, exists, err := Load(path)
	require.NoError(t, err)
	require.True(t, exists)
	assert.Equal(t, editor.LanguageFrench, cfg.Language())
	assert.Equal(t, "/dumps/xy", filepath.ToSlash(cfg.Session.LastPath))

	require.NoError(t, os.WriteFile(path, []byte("[logging]\nlevel = \"warn\"\n"), 0o644))
	require.NoError(t, SaveState(path, editor.LanguageGerman, "/dumps/sm"))
	cfg, _, _, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, editor.LanguageGerman, cfg.Language())

	require.Error(t, SaveState(path, editor.Language(42), ""))
}
