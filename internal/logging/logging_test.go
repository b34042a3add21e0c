package logging

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jask/eventdesk/internal/config"
)

func TestNewWriterJSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWriter(&buf, "json", zerolog.WarnLevel)

	log.Info().Msg("hidden")
	log.Warn().Str("region", "eu").Msg("fallback")

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, `"region":"eu"`)
	require.Contains(t, out, `"message":"fallback"`)
}

func TestNewRejectsBadLevel(t *testing.T) {
	t.Parallel()
	_, _, err := New(config.LogConfig{Level: "loud"})
	require.ErrorContains(t, err, "invalid log level")
}

func TestNewFileOutput(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "logs", "eventdesk.log")
	log, closer, err := New(config.LogConfig{Level: "debug", Format: "json", Output: "file", FilePath: path})
	require.NoError(t, err)
	log.Debug().Msg("written")
	require.NoError(t, closer.Close())
	require.FileExists(t, path)
}
