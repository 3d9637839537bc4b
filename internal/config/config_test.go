package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validConfig() AppConfig {
	return AppConfig{
		ListenAddress:         "127.0.0.1:8080",
		MemorySlots:           16,
		DiskBytes:             1 << 20,
		DiskPath:              "/tmp/anttp",
		CachedMutableTTLSecs:  30,
		NegativeTTLMultiplier: 0.1,
		QueueBufferSize:       16,
		MaxRetryAttempts:      5,
		DownloadThreads:       4,
		StreamChunkSize:       4096,
		BootstrapPeers:        []string{"peer1"},
		IdleDisconnect:        time.Minute,
		LogLevel:              "info",
	}
}

func TestValidateAcceptsGoodConfig(t *testing.T) {
	require.NoError(t, Validate(validConfig()))
}

func TestValidateRejectsMissingBootstrapPeers(t *testing.T) {
	cfg := validConfig()
	cfg.BootstrapPeers = nil
	require.Error(t, Validate(cfg))
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.LogLevel = "verbose"
	require.Error(t, Validate(cfg))
}

func TestNegativeTTLIsFractionOfMutableTTL(t *testing.T) {
	cfg := validConfig()
	require.Equal(t, 3*time.Second, cfg.NegativeTTL())
}

func TestLoadUsesDefaultsWithNoFile(t *testing.T) {
	cfg, err := Load("")
	require.Error(t, err) // no bootstrap_peers default set deliberately
	_ = cfg
}
