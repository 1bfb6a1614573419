package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Paths holds the resolved per-user locations for one app name.
type Paths struct {
	ConfigPath string
	// EnvPath is the optional .env file loaded next to the config.
	EnvPath string
	DataDir string
	DBPath  string
}

// Options selects the app directory name.
type Options struct {
	AppName string
	// DevMode suffixes the app name with -dev so development runs keep their own board cache.
	DevMode bool
}

// baseOverride names the environment variables that replace the config and data bases on one OS.
type baseOverride struct {
	configVar string
	dataVar   string
}

// overrides lists per-OS base directory variables. macOS and others keep the os package defaults.
var overrides = map[string]baseOverride{
	"linux":   {configVar: "XDG_CONFIG_HOME", dataVar: "XDG_DATA_HOME"},
	"windows": {configVar: "APPDATA", dataVar: "LOCALAPPDATA"},
}

var errEmptyAppName = errors.New("empty app name")

// DefaultPaths returns the paths for the default app name.
func DefaultPaths() (Paths, error) {
	return DefaultPathsWithOptions(Options{AppName: "taskboard"})
}

// DefaultPathsWithOptions resolves paths for the current user and OS.
func DefaultPathsWithOptions(opts Options) (Paths, error) {
	appName := appDirName(opts)

	configDir, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("user config dir: %w", err)
	}
	dataDir := configDir
	if runtime.GOOS == "linux" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, fmt.Errorf("user home dir: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return PathsFor(runtime.GOOS, os.Getenv, configDir, dataDir, appName)
}

// PathsFor resolves paths for one OS from explicit base dirs. getenv may be nil.
func PathsFor(goos string, getenv func(string) string, userConfigDir, userDataDir, appName string) (Paths, error) {
	if userConfigDir == "" || userDataDir == "" {
		return Paths{}, fmt.Errorf("empty base dirs")
	}
	appName = strings.TrimSpace(appName)
	if appName == "" {
		return Paths{}, errEmptyAppName
	}
	if getenv == nil {
		getenv = func(string) string { return "" }
	}

	configBase, dataBase := userConfigDir, userDataDir
	if o, ok := overrides[goos]; ok {
		if v := strings.TrimSpace(getenv(o.configVar)); v != "" {
			configBase = v
		}
		if v := strings.TrimSpace(getenv(o.dataVar)); v != "" {
			dataBase = v
		}
	}

	configDir := filepath.Join(configBase, appName)
	dataDir := filepath.Join(dataBase, appName)
	return Paths{
		ConfigPath: filepath.Join(configDir, "config.toml"),
		EnvPath:    filepath.Join(configDir, ".env"),
		DataDir:    dataDir,
		DBPath:     filepath.Join(dataDir, appName+".db"),
	}, nil
}

// appDirName normalizes the app name into one directory segment.
func appDirName(opts Options) string {
	name := strings.TrimSpace(opts.AppName)
	name = strings.NewReplacer("/", "-", "\\", "-").Replace(name)
	if name == "" {
		name = "taskboard"
	}
	if opts.DevMode {
		name += "-dev"
	}
	return name
}
