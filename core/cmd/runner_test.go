package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/regbot/core/config"
	coretelegram "github.com/m3rciful/regbot/core/telegram"
)

type carrier struct{ cfg *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.cfg }

type fakeApp struct {
	closed bool
}

func (a *fakeApp) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{}, nil
}

func (a *fakeApp) Close() error {
	a.closed = true
	return nil
}

func TestRunLoadsEnvAndClosesApp(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("REGBOT_RUNNER_PROBE=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("REGBOT_RUNNER_PROBE") })
	t.Setenv("REGBOT_CONFIG_PROBE", "")

	app := &fakeApp{}
	var gotPath string
	ran := false
	err := Run(Options{
		ConfigEnvVar:      "REGBOT_CONFIG_PROBE",
		DefaultConfigPath: "",
		EnvFiles:          []string{envFile, filepath.Join(dir, "missing.env")},
		LoadConfig: func(path string) (ConfigCarrier, error) {
			gotPath = path
			assert.Equal(t, "from-file", os.Getenv("REGBOT_RUNNER_PROBE"))
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(context.Context, ConfigCarrier) (TelegramApp, error) {
			return app, nil
		},
		ShutdownLogger: func() error { return nil },
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			ran = true
			assert.NotNil(t, opts.OnStart)
			assert.NotNil(t, opts.OnStop)
			return nil
		},
	})
	require.NoError(t, err)
	assert.Empty(t, gotPath)
	assert.True(t, ran)
	assert.True(t, app.closed)
}

func TestRunConfigErrorExitCode(t *testing.T) {
	err := Run(Options{
		EnvFiles: []string{filepath.Join(t.TempDir(), "none.env")},
		LoadConfig: func(string) (ConfigCarrier, error) {
			return nil, &coreconfig.ConfigError{Field: "telegram.token", Reason: "required"}
		},
		Bootstrap: func(context.Context, ConfigCarrier) (TelegramApp, error) {
			t.Fatal("bootstrap must not run")
			return nil, nil
		},
	})
	require.Error(t, err)
	assert.Equal(t, ExitConfig, ExitCode(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitError, ExitCode(errors.New("boom")))
}

func TestRunRequiresHooks(t *testing.T) {
	require.Error(t, Run(Options{}))
	require.Error(t, Run(Options{LoadConfig: func(string) (ConfigCarrier, error) { return nil, nil }}))
}
