package profile

import (
	"os"
	"path/filepath"
)

// HomeEnv overrides the base directory when set.
const HomeEnv = "HUDDLE_HOME"

// BaseDir returns $HUDDLE_HOME, or ~/.huddle.
func BaseDir() string {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".huddle")
}

// Dir returns the profile-specific directory.
func Dir(name string) string {
	return filepath.Join(BaseDir(), "profiles", name)
}

// SocketPath returns the control socket path for a profile.
func SocketPath(name string) string {
	return filepath.Join(Dir(name), "control.sock")
}

// LockPath returns the lock file path for a profile.
func LockPath(name string) string {
	return filepath.Join(Dir(name), "LOCK")
}

// DBPath returns the profile's huddle.db path.
func DBPath(name string) string {
	return filepath.Join(Dir(name), "huddle.db")
}

// LogDir returns the log directory for a profile.
func LogDir(name string) string {
	return filepath.Join(Dir(name), "logs")
}

// LogPath returns the log file path.
func LogPath(name string) string {
	return filepath.Join(LogDir(name), "huddle.log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnvPath returns the optional dotenv file next to the config.
func EnvPath() string {
	return filepath.Join(BaseDir(), ".env")
}

// EnsureDir creates the profile directory tree with proper permissions.
func EnsureDir(name string) error {
	for _, d := range []string{Dir(name), LogDir(name)} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
