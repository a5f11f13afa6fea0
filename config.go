package main

import (
	"log/slog"
	"os"

	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "/etc/joy-bridge.yaml"
	queueDirEnvVar    = "JOY_QUEUE_DIR"
)

// Config is the persisted panel settings record: read once at start, written
// back on every change.
type Config struct {
	WSURL             string
	SubscribeTopic    string
	PublishTopic      string
	Publish           bool
	FrameID           string
	Source            Source
	DisplayMode       string
	Mapping           string
	MappingOverrides  []string
	GamepadIndex      int
	GamepadInvertAxes bool
	PollHz            int
	ConnectionRetries int
	Debug             bool
	QueueDir          string

	v *viper.Viper
}

// loadConfig loads configuration from file and environment variables.
// CLI flags take precedence over config file, which takes precedence over
// defaults.
func loadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("ws-url", "ws://localhost:9090")
	v.SetDefault("subscribe-topic", "/joy")
	v.SetDefault("publish-topic", "/joy")
	v.SetDefault("frame-id", "joy")
	v.SetDefault("source", string(SourceKeyboard))
	v.SetDefault("display-mode", "auto")
	v.SetDefault("mapping", "wasd")
	v.SetDefault("gamepad-invert-axes", true)
	v.SetDefault("poll-hz", 60)
	v.SetDefault("retries", 5)

	// Attempt to read config file (not an error if it doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); !ok {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				slog.Warn("Error reading config file", "path", path, "error", err)
			}
		}
	}

	cfg := &Config{
		WSURL:             v.GetString("ws-url"),
		SubscribeTopic:    v.GetString("subscribe-topic"),
		PublishTopic:      v.GetString("publish-topic"),
		Publish:           v.GetBool("publish"),
		FrameID:           v.GetString("frame-id"),
		Source:            Source(v.GetString("source")),
		DisplayMode:       v.GetString("display-mode"),
		Mapping:           v.GetString("mapping"),
		MappingOverrides:  v.GetStringSlice("keymap"),
		GamepadIndex:      v.GetInt("gamepad-index"),
		GamepadInvertAxes: v.GetBool("gamepad-invert-axes"),
		PollHz:            v.GetInt("poll-hz"),
		ConnectionRetries: v.GetInt("retries"),
		Debug:             v.GetBool("debug"),
		v:                 v,
	}

	if !validSource(cfg.Source) {
		slog.Warn("Unknown source in config, falling back to keyboard", "source", cfg.Source)
		cfg.Source = SourceKeyboard
	}
	if cfg.PollHz <= 0 {
		cfg.PollHz = 60
	}
	if cfg.ConnectionRetries < 1 {
		cfg.ConnectionRetries = 1
	}

	// Handle queue directory from environment variable
	if cfg.QueueDir = os.Getenv(queueDirEnvVar); cfg.QueueDir == "" {
		cfg.QueueDir = v.GetString("queue-dir")
	}
	if cfg.QueueDir == "" {
		var err error
		if cfg.QueueDir, err = os.MkdirTemp("", "joy-queue-*"); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Save writes the current settings back to the config file.
func (c *Config) Save() error {
	c.v.Set("ws-url", c.WSURL)
	c.v.Set("subscribe-topic", c.SubscribeTopic)
	c.v.Set("publish-topic", c.PublishTopic)
	c.v.Set("publish", c.Publish)
	c.v.Set("frame-id", c.FrameID)
	c.v.Set("source", string(c.Source))
	c.v.Set("display-mode", c.DisplayMode)
	c.v.Set("mapping", c.Mapping)
	c.v.Set("keymap", c.MappingOverrides)
	c.v.Set("gamepad-index", c.GamepadIndex)
	c.v.Set("gamepad-invert-axes", c.GamepadInvertAxes)
	c.v.Set("poll-hz", c.PollHz)
	c.v.Set("retries", c.ConnectionRetries)
	c.v.Set("debug", c.Debug)
	c.v.Set("queue-dir", c.QueueDir)
	return c.v.WriteConfigAs(c.v.ConfigFileUsed())
}
