package store

import (
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

const (
	DefaultPath    = "~/.procure.db"
	DefaultAPIURL  = "http://localhost:8000"
	DefaultTimeout = 30 * time.Second
)

// Config carries the settings shared by the store, the gateway, and logging.
type Config interface {
	BasePath() string
	APIURL() string
	Timeout() time.Duration
	LogFile() string
}

// LoadConfig reads .procure.yaml and PROCURE_* environment variables.
func LoadConfig() (Config, error) {
	v := viper.New()
	v.SetDefault("path", DefaultPath)
	v.SetDefault("api_url", DefaultAPIURL)
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("log_file", "")
	v.SetConfigName(".procure") // .yaml is implicit
	v.SetEnvPrefix("PROCURE")
	v.AutomaticEnv()

	if override := os.Getenv("PROCURE_CONFIG_PATH"); override != "" {
		v.AddConfigPath(override)
	}
	v.AddConfigPath("./")
	if home, err := homedir.Dir(); err == nil {
		v.AddConfigPath(home)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("store: read config: %w", err)
		}
	}

	path, err := homedir.Expand(v.GetString("path"))
	if err != nil {
		return nil, fmt.Errorf("store: expand path: %w", err)
	}
	logFile, err := homedir.Expand(v.GetString("log_file"))
	if err != nil {
		return nil, fmt.Errorf("store: expand log_file: %w", err)
	}

	return &FileConfig{
		Path:    path,
		API:     v.GetString("api_url"),
		Wait:    v.GetDuration("timeout"),
		LogPath: logFile,
	}, nil
}

// FileConfig is the concrete Config produced by LoadConfig. Commands may
// override individual fields from flags.
type FileConfig struct {
	Path    string        `json:"path"`
	API     string        `json:"api_url"`
	Wait    time.Duration `json:"timeout"`
	LogPath string        `json:"log_file"`
}

func (f *FileConfig) BasePath() string {
	return f.Path
}

func (f *FileConfig) APIURL() string {
	if f.API == "" {
		return DefaultAPIURL
	}
	return f.API
}

func (f *FileConfig) Timeout() time.Duration {
	if f.Wait <= 0 {
		return DefaultTimeout
	}
	return f.Wait
}

func (f *FileConfig) LogFile() string {
	return f.LogPath
}
