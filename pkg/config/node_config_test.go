package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultHasNonZeroPeriodsAndTolerances(t *testing.T) {
	cfg := Default()
	require.NotZero(t, cfg.Periods.DataExchange)
	require.NotZero(t, cfg.Tolerances.Handshake)
	require.NotEmpty(t, cfg.SilentIncomingMessageCommands)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
MaxOutgoing: 20
Tolerances:
  Handshake: 5s
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 20, cfg.MaxOutgoing)
	require.Equal(t, 5*time.Second, cfg.Tolerances.Handshake)
	// Fields not present in the file keep their default values.
	require.Equal(t, Default().MaxOutgoingIBD, cfg.MaxOutgoingIBD)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	require.Error(t, err)
}
