package config

import (
	"flag"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shini4i/netchoo/internal/counter"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, time.Second, cfg.SampleInterval())
	assert.Equal(t, 5*time.Minute, cfg.Window())
	assert.Equal(t, counter.BackendProcfs, cfg.Source)
	assert.True(t, cfg.OnlyActive)
	assert.False(t, cfg.IncludeLoopback)
	assert.InDelta(t, 1.2, cfg.Headroom, 1e-9)
	assert.InDelta(t, 1.0, cfg.MinAxis, 1e-9)
	assert.Equal(t, RendererAuto, cfg.Renderer)
	assert.Empty(t, cfg.Listen)
	assert.NoError(t, cfg.Validate())
}

func TestGetPaths(t *testing.T) {
	t.Run("with XDG dirs set", func(t *testing.T) {
		configHome, stateHome := t.TempDir(), t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", configHome)
		t.Setenv("XDG_STATE_HOME", stateHome)

		paths, err := GetPaths()
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(configHome, AppName), paths.ConfigDir)
		assert.Equal(t, filepath.Join(configHome, AppName, ConfigFileName), paths.ConfigFile)
		assert.Equal(t, filepath.Join(stateHome, AppName), paths.StateDir)
		assert.Equal(t, filepath.Join(stateHome, AppName, LogFileName), paths.LogFile)
	})

	t.Run("without XDG dirs (uses HOME)", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		t.Setenv("XDG_STATE_HOME", "")

		paths, err := GetPaths()
		require.NoError(t, err)

		homeDir, err := os.UserHomeDir()
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(homeDir, ".config", AppName), paths.ConfigDir)
		assert.Equal(t, filepath.Join(homeDir, ".local", "state", AppName), paths.StateDir)
	})
}

func TestPaths_Locate(t *testing.T) {
	dir := t.TempDir()
	paths := &Paths{ConfigDir: dir, ConfigFile: filepath.Join(dir, ConfigFileName)}

	assert.Equal(t, paths.ConfigFile, paths.Locate(), "nothing on disk")

	yamlPath := filepath.Join(dir, YAMLConfigFileName)
	require.NoError(t, os.WriteFile(yamlPath, []byte("window_seconds: 60\n"), 0600))
	assert.Equal(t, yamlPath, paths.Locate())

	require.NoError(t, os.WriteFile(paths.ConfigFile, []byte("{}"), 0600))
	assert.Equal(t, paths.ConfigFile, paths.Locate(), "JSON wins")
}

func TestLoad(t *testing.T) {
	t.Run("loads JSON config", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.json")
		configContent := `{
			"sample_interval_ms": 500,
			"window_seconds": 60,
			"source": "sysfs",
			"include_loopback": true,
			"exclude": ["veth*", "docker?"],
			"headroom": 1.1,
			"renderer": "log",
			"listen": "127.0.0.1:9100",
			"docker_reverse": true
		}`
		require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0600))

		cfg, err := Load(configPath)
		require.NoError(t, err)

		assert.Equal(t, 500*time.Millisecond, cfg.SampleInterval())
		assert.Equal(t, time.Minute, cfg.Window())
		assert.Equal(t, counter.BackendSysfs, cfg.Source)
		assert.True(t, cfg.IncludeLoopback)
		assert.Equal(t, []string{"veth*", "docker?"}, cfg.Exclude)
		assert.InDelta(t, 1.1, cfg.Headroom, 1e-9)
		assert.InDelta(t, 1.0, cfg.MinAxis, 1e-9, "unset fields keep defaults")
		assert.True(t, cfg.OnlyActive, "unset fields keep defaults")
		assert.Equal(t, RendererLog, cfg.Renderer)
		assert.Equal(t, "127.0.0.1:9100", cfg.Listen)
		assert.True(t, cfg.DockerReverse)
	})

	t.Run("loads YAML config", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.yaml")
		configContent := "sample_interval_ms: 250\nwindow_seconds: 30\nonly_active: false\nexclude:\n  - \"br-*\"\n"
		require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0600))

		cfg, err := Load(configPath)
		require.NoError(t, err)

		assert.Equal(t, 250*time.Millisecond, cfg.SampleInterval())
		assert.Equal(t, 30*time.Second, cfg.Window())
		assert.False(t, cfg.OnlyActive)
		assert.Equal(t, []string{"br-*"}, cfg.Exclude)
		assert.Equal(t, counter.BackendProcfs, cfg.Source)
	})

	t.Run("returns default config when file does not exist", func(t *testing.T) {
		cfg, err := Load("/nonexistent/path/config.json")
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("returns error for invalid JSON", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(configPath, []byte("{invalid json}"), 0600))

		_, err := Load(configPath)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to unmarshal config")
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.yml")
		require.NoError(t, os.WriteFile(configPath, []byte("window_seconds: [oops\n"), 0600))

		_, err := Load(configPath)
		assert.Error(t, err)
	})
}

func TestSave(t *testing.T) {
	for _, name := range []string{"config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "nested", name)
			cfg := DefaultConfig()
			cfg.WindowSeconds = 120
			cfg.Exclude = []string{"veth*"}
			cfg.Listen = ":9100"

			require.NoError(t, Save(configPath, cfg))

			info, err := os.Stat(configPath)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

			loaded, err := Load(configPath)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"defaults", func(*Config) {}, nil},
		{"zero interval", func(c *Config) { c.SampleIntervalMs = 0 }, ErrInvalidInterval},
		{"negative interval", func(c *Config) { c.SampleIntervalMs = -5 }, ErrInvalidInterval},
		{"window shorter than interval", func(c *Config) { c.SampleIntervalMs = 5000; c.WindowSeconds = 4 }, ErrInvalidWindow},
		{"window equal to interval", func(c *Config) { c.SampleIntervalMs = 5000; c.WindowSeconds = 5 }, nil},
		{"interval at maximum", func(c *Config) { c.SampleIntervalMs = 3_600_000; c.WindowSeconds = 3600 }, nil},
		{"interval above maximum", func(c *Config) { c.SampleIntervalMs = 3_600_001; c.WindowSeconds = 7200 }, ErrInvalidInterval},
		{"interval overflowing duration", func(c *Config) { c.SampleIntervalMs = math.MaxInt / 1000 }, ErrInvalidInterval},
		{"window at maximum", func(c *Config) { c.WindowSeconds = 604_800 }, nil},
		{"window above maximum", func(c *Config) { c.WindowSeconds = 604_801 }, ErrInvalidWindow},
		{"window overflowing duration", func(c *Config) { c.WindowSeconds = math.MaxInt / 1000 }, ErrInvalidWindow},
		{"unknown source", func(c *Config) { c.Source = "netlink" }, ErrInvalidSource},
		{"empty source means default", func(c *Config) { c.Source = "" }, nil},
		{"unknown renderer", func(c *Config) { c.Renderer = "gtk" }, ErrInvalidRenderer},
		{"bad exclude", func(c *Config) { c.Exclude = []string{"["} }, ErrInvalidPattern},
		{"headroom below one", func(c *Config) { c.Headroom = 0.5 }, ErrInvalidScale},
		{"zero axis floor", func(c *Config) { c.MinAxis = 0 }, ErrInvalidScale},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }, ErrInvalidLogFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestConfig_Derived(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Source = counter.BackendSysfs
	cfg.SysfsNet = "/tmp/sys"
	cfg.Exclude = []string{"veth*"}

	opts := cfg.CounterOptions()
	assert.Equal(t, counter.BackendSysfs, opts.Backend)
	assert.Equal(t, "/tmp/sys", opts.SysfsNet)

	f := cfg.Filter(nil)
	assert.True(t, f.OnlyActive)
	assert.Equal(t, []string{"veth*"}, f.Exclude)
	f.Exclude[0] = "changed"
	assert.Equal(t, "veth*", cfg.Exclude[0], "filter gets its own copy")

	m := cfg.ScaleModel()
	assert.InDelta(t, 1.2, m.Headroom, 1e-9)
	assert.InDelta(t, 1.0, m.Floor, 1e-9)
}

func TestFlags_Apply(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(*testing.T, *Config)
	}{
		{
			name: "no flags keeps file values",
			args: nil,
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 250, c.SampleIntervalMs)
				assert.Equal(t, RendererLog, c.Renderer)
			},
		},
		{
			name: "short flags",
			args: []string{"-s", "2000", "-t", "600", "-r"},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 2*time.Second, c.SampleInterval())
				assert.Equal(t, 10*time.Minute, c.Window())
				assert.True(t, c.DockerReverse)
			},
		},
		{
			name: "long flags",
			args: []string{"-sample=100", "-time=10", "-source=gopsutil", "-renderer=term", "-listen=:9100", "-include-loopback", "-all"},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 100, c.SampleIntervalMs)
				assert.Equal(t, 10, c.WindowSeconds)
				assert.Equal(t, counter.BackendGopsutil, c.Source)
				assert.Equal(t, RendererTerm, c.Renderer)
				assert.Equal(t, ":9100", c.Listen)
				assert.True(t, c.IncludeLoopback)
				assert.False(t, c.OnlyActive)
			},
		},
		{
			name: "exclude list",
			args: []string{"-exclude", "veth*, docker?,,"},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, []string{"veth*", "docker?"}, c.Exclude)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("netchoo", flag.ContinueOnError)
			flags := RegisterFlags(fs)
			require.NoError(t, fs.Parse(tt.args))

			cfg := DefaultConfig()
			cfg.SampleIntervalMs = 250
			cfg.Renderer = RendererLog
			flags.Apply(fs, cfg)

			tt.check(t, cfg)
		})
	}
}

func TestRegisterFlags_Meta(t *testing.T) {
	fs := flag.NewFlagSet("netchoo", flag.ContinueOnError)
	flags := RegisterFlags(fs)

	require.NoError(t, fs.Parse([]string{"-config", "/etc/netchoo.yaml", "-write-config", "-debug", "-version"}))

	assert.Equal(t, "/etc/netchoo.yaml", flags.ConfigPath)
	assert.True(t, flags.WriteConfig)
	assert.True(t, flags.Debug)
	assert.True(t, flags.Version)
}
