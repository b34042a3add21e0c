package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/require"

	"github.com/jask/eventdesk/internal/llm"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	cfg := filepath.Join(dir, "eventdesk.toml")
	body := strings.Join([]string{
		"[database]",
		`path = "` + filepath.ToSlash(filepath.Join(dir, "data", "eventdesk.db")) + `"`,
		"seed = true",
		"[log]",
		`level = "error"`,
	}, "\n")
	require.NoError(t, os.WriteFile(cfg, []byte(body), 0o600))
	t.Setenv("EVENTDESK_CONFIG", cfg)
	return cfg
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	require.Equal(t, "eventdesk version "+Version+"\n", out)
}

func TestResetNeedsConfirmation(t *testing.T) {
	cfg := isolate(t)
	_, err := execute(t, "--config", cfg, "reset")
	require.ErrorContains(t, err, "--yes")
	_, err = execute(t, "--config", cfg, "reset", "--yes")
	require.NoError(t, err)
}

func TestSuggestPrintsLayout(t *testing.T) {
	cfg := isolate(t)
	out, err := execute(t, "--config", cfg, "suggest",
		"--venue", "Ballroom with a stage on the east wall",
		"--audience", "120 guests at a charity dinner",
		"--seating", "banquet",
		"--constraints", "round tables of ten guests",
		"--safety", "keep the fire exits clear at all times")
	require.NoError(t, err)

	var resp llm.LayoutResponse
	require.NoError(t, sonic.UnmarshalString(out, &resp))
	require.Contains(t, resp.LayoutDescription, "12 round tables of 10")
	require.True(t, llm.ValidDataURI(resp.LayoutDiagram))
}

func TestSecretSetAndDelete(t *testing.T) {
	isolate(t)
	out, err := execute(t, "secret", "set", "designer", "sk-live")
	require.NoError(t, err)
	require.Equal(t, "stored designer\n", out)
	_, err = execute(t, "secret", "delete", "designer")
	require.NoError(t, err)
	_, err = execute(t, "secret", "delete", "designer")
	require.Error(t, err)
}

func TestSeedGeneratesDemoEvents(t *testing.T) {
	cfg := isolate(t)
	out, err := execute(t, "--config", cfg, "seed", "--demo", "5", "--seed", "42")
	require.NoError(t, err)
	require.Equal(t, "generated 5 events for local\n", out)
}
