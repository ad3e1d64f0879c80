package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"dosgo/morseServer/comm"
	"dosgo/morseServer/comm/server"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), comm.ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(`{"Transport": "socket", "Speed": 2, "ServiceName": "Lamp"}`), 0644))

	cfg := comm.DefaultConfig()
	cmd := newRootCmd(cfg)
	require.NoError(t, cmd.ParseFlags([]string{"--config", path, "--speed", "0.5", "--channel", "5"}))

	require.NoError(t, mergeConfig(cmd, cfg))
	assert.Equal(t, comm.TransportSocket, cfg.Transport)
	assert.Equal(t, "Lamp", cfg.ServiceName)
	assert.Equal(t, 0.5, cfg.Speed)
	assert.Equal(t, 5, cfg.Channel)
}

func TestMergeConfigRejectsUnknownTransport(t *testing.T) {
	cfg := comm.DefaultConfig()
	cmd := newRootCmd(cfg)
	require.NoError(t, cmd.ParseFlags([]string{
		"--config", filepath.Join(t.TempDir(), "missing.json"),
		"--transport", "tcp",
	}))

	assert.Error(t, mergeConfig(cmd, cfg))
}

func TestRunFailsWhenNoClientCanBeAccepted(t *testing.T) {
	cfg := comm.DefaultConfig()
	cfg.Transport = comm.TransportSerial
	cfg.SerialDevice = filepath.Join(t.TempDir(), "rfcomm0")

	err := run(context.Background(), cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, server.ErrAccept)
	assert.Contains(t, err.Error(), "rfcomm0")
}
