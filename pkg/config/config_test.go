package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestNewLayering(t *testing.T) {
	path := writeFile(t, "reqfacade.yaml", `
facade:
  base_url: https://file.example.com
  timeout: 5s
`)
	t.Setenv("REQFACADE_FACADE_TIMEOUT", "1500")

	cfg, err := New(
		WithDefaults(map[string]interface{}{KeyTimeout: "3s", KeyWithCredentials: false}),
		WithFile(path),
		WithEnv("REQFACADE"),
	)
	require.NoError(t, err)

	require.Equal(t, "https://file.example.com", cfg.GetString(KeyBaseURL))
	require.Equal(t, 1500*time.Millisecond, cfg.GetDurationD(KeyTimeout, time.Second))
	require.False(t, cfg.GetBoolD(KeyWithCredentials, true))
}

func TestNewMissingFile(t *testing.T) {
	_, err := New(WithFile(filepath.Join(t.TempDir(), "absent.yaml")))
	require.Error(t, err)
}

func TestWithPFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("base-url", "", "")
	flags.String("log-level", "info", "")
	require.NoError(t, flags.Parse([]string{"--base-url", "http://flag.example.com"}))

	cfg, err := New(WithPFlags(flags, map[string]string{
		"base-url":  KeyBaseURL,
		"log-level": KeyLogLevel,
	}))
	require.NoError(t, err)

	require.Equal(t, "http://flag.example.com", cfg.GetString(KeyBaseURL))
	require.Equal(t, "info", cfg.GetString(KeyLogLevel))
}

func TestGetDurationD(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	require.Equal(t, 3*time.Second, cfg.GetDurationD(KeyTimeout, 3*time.Second))

	cfg.Set(KeyTimeout, 2500)
	require.Equal(t, 2500*time.Millisecond, cfg.GetDurationD(KeyTimeout, 0))

	cfg.Set(KeyTimeout, "750ms")
	require.Equal(t, 750*time.Millisecond, cfg.GetDurationD(KeyTimeout, 0))

	cfg.Set(KeyTimeout, "0")
	require.Equal(t, time.Duration(0), cfg.GetDurationD(KeyTimeout, time.Second))

	cfg.Set(KeyTimeout, time.Minute)
	require.Equal(t, time.Minute, cfg.GetDurationD(KeyTimeout, 0))
}

func TestValidateRequiredAndMasking(t *testing.T) {
	cfg, err := New(WithSensitiveKeys("auth.secret"))
	require.NoError(t, err)

	require.EqualError(t, cfg.ValidateRequired(KeyBaseURL), "missing required keys: facade.base_url")

	cfg.Set(KeyBaseURL, "https://api.example.com")
	cfg.Set("auth.secret", "hunter2")
	require.NoError(t, cfg.ValidateRequired(KeyBaseURL))

	masked := cfg.MaskedSettings()
	require.Equal(t, "***REDACTED***", masked["auth.secret"])
	require.Equal(t, "https://api.example.com", masked[KeyBaseURL])
}

func TestWithWatchReloads(t *testing.T) {
	path := writeFile(t, "watch.yaml", "facade:\n  base_url: http://one\n")

	changed := make(chan struct{}, 1)
	cfg, err := New(WithFile(path), WithWatch(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}))
	require.NoError(t, err)
	require.Equal(t, "http://one", cfg.GetString(KeyBaseURL))

	require.NoError(t, os.WriteFile(path, []byte("facade:\n  base_url: http://two\n"), 0o600))

	select {
	case <-changed:
		require.Equal(t, "http://two", cfg.GetString(KeyBaseURL))
	case <-time.After(5 * time.Second):
		t.Skip("fsnotify events unavailable in this environment")
	}
}
