package config

import (
	"flag"
	"os"
)

// Config is the process-wide configuration for cmd/enginesvc, populated
// from flags and environment. Adapted from the teacher's config.Config/Parse.
type Config struct {
	HTTPPort int
	DataDir  string
	LogLevel string

	AudioOffsetMs float64
}

func Parse() *Config {
	cfg := &Config{}

	flag.IntVar(&cfg.HTTPPort, "http-port", 8080, "HTTP server port")
	flag.StringVar(&cfg.DataDir, "data-dir", defaultDataDir(), "data directory for the chart library SQLite catalog")
	flag.StringVar(&cfg.LogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.Float64Var(&cfg.AudioOffsetMs, "audio-offset-ms", 0, "global audio/visual latency compensation in milliseconds")

	flag.Parse()
	return cfg
}

func defaultDataDir() string {
	if dir := os.Getenv("RHYTHMENGINE_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".rhythmengine"
	}
	return home + "/.rhythmengine"
}
