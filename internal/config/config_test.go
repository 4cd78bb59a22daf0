package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trialmerge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults only",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultLogLevel, cfg.Logging.Level)
				assert.Equal(t, DefaultOutputFile, cfg.Paths.OutputFile)
				assert.False(t, cfg.Export.BOMPrefix)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
			},
		},
		{
			name: "yaml overlays defaults",
			file: "logging:\n  level: debug\npaths:\n  output_file: out/master.csv\nexport:\n  bom_prefix: true\n",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "out/master.csv", cfg.Paths.OutputFile)
				assert.True(t, cfg.Export.BOMPrefix)
				// untouched keys keep defaults
				assert.Equal(t, DefaultInputDir, cfg.Paths.InputDir)
			},
		},
		{
			name: "environment wins over yaml",
			file: "logging:\n  level: debug\n",
			env: map[string]string{
				"TRIAL_LOGGING_LEVEL":           "error",
				"TRIAL_SERVER_PORT":             "9090",
				"TRIAL_SERVER_REQUEST_TIMEOUT":  "30s",
				"TRIAL_SERVER_RATE_LIMIT_BURST": "5",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "error", cfg.Logging.Level)
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
				assert.Equal(t, 5, cfg.Server.RateLimit.Burst)
			},
		},
		{
			name:    "invalid level fails validation",
			env:     map[string]string{"TRIAL_LOGGING_LEVEL": "loud"},
			wantErr: true,
		},
		{
			name:    "file output requires a path",
			file:    "logging:\n  output: file\n  file_path: \"\"\n",
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			file:    "logging: [unclosed\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := ""
			if tt.file != "" {
				path = writeConfigFile(t, tt.file)
			} else {
				// keep getConfigFilePath from picking up a stray file
				t.Setenv("TRIAL_CONFIG", "")
				t.Chdir(t.TempDir())
			}

			cfg, err := Load(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefault_Validates(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestResolvePaths(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	paths, err := ResolvePaths(PathsConfig{
		InputDir:   "data",
		OutputFile: "out/master.csv",
		LogsDir:    "logs",
	})
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "data"), paths.InputDir)
	assert.Equal(t, filepath.Join(wd, "out", "master.csv"), paths.OutputFile)
	assert.Equal(t, filepath.Join(wd, "out"), paths.OutputDir)

	require.NoError(t, paths.EnsureDirectories())
	assert.True(t, FileExists(paths.OutputDir))
	assert.True(t, FileExists(paths.LogsDir))
	assert.False(t, FileExists(paths.InputDir))
	assert.Equal(t, filepath.Join(wd, "logs", "run.log"), paths.GetLogPath("run.log"))
}

func TestResolvePaths_AbsoluteUnchanged(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "master.csv")
	paths, err := ResolvePaths(PathsConfig{OutputFile: abs})
	require.NoError(t, err)
	assert.Equal(t, abs, paths.OutputFile)
	assert.Equal(t, "", paths.InputDir)
}
