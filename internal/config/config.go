// Package config loads the bootstrap configuration DisOrder needs before
// the reactor can start: where to listen, where the home directory is,
// and how verbosely to log. The richer, hot-reloadable settings that
// govern queue and RTP behaviour live in Snapshot (snapshot.go).
package config

import (
	"os"
	"strconv"
)

// Config holds process-level bootstrap settings, sourced from the
// environment with defaults, the same way the teacher's config.Load does.
type Config struct {
	Home           string // base directory for journal, user db, saved playlists
	Root           string // track library root directory, scanned by internal/library
	ConfigFile     string // path to the key=value configuration file (Snapshot)
	Listen         string // unprivileged TCP listen address, e.g. ":9699"
	UnixSocket     string // unprivileged UNIX socket path
	PrivUnixSocket string // privileged UNIX socket path (grants the "local" right)
	StatusListen   string // read-only HTTP status endpoint address, empty disables it
	LogLevel       string
	Foreground     bool
}

// Load builds a Config from the environment, applying defaults.
func Load() *Config {
	return &Config{
		Home:           getEnv("DISORDER_HOME", "./var/disorder"),
		Root:           getEnv("DISORDER_ROOT", "./var/disorder/music"),
		ConfigFile:     getEnv("DISORDER_CONFIG", "./disorder.conf"),
		Listen:         getEnv("DISORDER_LISTEN", ":9699"),
		UnixSocket:     getEnv("DISORDER_SOCKET", "./var/disorder/socket"),
		PrivUnixSocket: getEnv("DISORDER_PRIVSOCKET", "./var/disorder/private/socket"),
		StatusListen:   getEnv("DISORDER_STATUS_LISTEN", ""),
		LogLevel:       getEnv("DISORDER_LOGLEVEL", "info"),
		Foreground:     getEnvAsBool("DISORDER_FOREGROUND", true),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultVal
}
