package config

import "path/filepath"

// Config is the root configuration for pomo. All state for one instance
// lives under DataDir, so pointing POMO_DATA_DIR elsewhere runs an isolated
// instance.
type Config struct {
	DataDir string       `yaml:"data_dir"`
	Timer   TimerConfig  `yaml:"timer"`
	Notify  NotifyConfig `yaml:"notify"`
	Log     LogConfig    `yaml:"log"`
}

type TimerConfig struct {
	// DefaultDuration is used by start when no duration argument is given.
	// Same grammar as the CLI argument: "25", "25m", "90s", "10m30s".
	DefaultDuration string `yaml:"default_duration"`
}

type NotifyConfig struct {
	// Command is run by the worker when an interval finishes. If its first
	// stdout line is "completed" or "abandoned" the interval is resolved
	// immediately.
	Command string `yaml:"command"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		DataDir: "~/.local/share/pomo",
		Timer: TimerConfig{
			DefaultDuration: "25",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DBPath is the interval database file.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "pomo.db")
}

// WorkerPIDPath is the timer worker's PID file.
func (c *Config) WorkerPIDPath() string {
	return filepath.Join(c.DataDir, "worker.pid")
}

// TrayPIDPath is the tray process's PID file.
func (c *Config) TrayPIDPath() string {
	return filepath.Join(c.DataDir, "tray.pid")
}

// LogPath is the shared log file. Logs go to a file so command stdout stays
// clean for JSON output.
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "pomo.log")
}
