package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dl-alexandre/driveshelf/internal/logging"
	"github.com/dl-alexandre/driveshelf/internal/utils"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name of the config file (any viper-supported extension)
	ConfigFileName = "driveshelf"
	// EnvPrefix is the prefix for environment variables
	EnvPrefix = "DRIVESHELF"
)

// Config keys, shared by the config file, env vars and flag bindings
const (
	KeyRootFolderID      = "root_folder_id"
	KeyCredentialsFile   = "credentials_file"
	KeyCredentialsSource = "credentials_source"
	KeyKeyringAccount    = "keyring_account"
	KeyCachePath         = "cache_path"
	KeyHistoryPath       = "history_path"
	KeyExcludeFolder     = "exclude_folder"
	KeyListenAddr        = "listen_addr"
	KeyMaxRetries        = "max_retries"
	KeyRetryBaseDelay    = "retry_base_delay"
	KeyLogLevel          = "log_level"
	KeyLogFile           = "log_file"
)

// Config holds application configuration
type Config struct {
	// RootFolderID is the Drive folder whose direct subfolders are indexed
	RootFolderID string `mapstructure:"root_folder_id" json:"rootFolderId"`

	// CredentialsFile is the service account key path (CredentialsSource=file)
	CredentialsFile string `mapstructure:"credentials_file" json:"credentialsFile"`

	// CredentialsSource selects where the service account key is read from (file, keyring)
	CredentialsSource string `mapstructure:"credentials_source" json:"credentialsSource"`

	// KeyringAccount is the keyring entry name (CredentialsSource=keyring)
	KeyringAccount string `mapstructure:"keyring_account" json:"keyringAccount"`

	// CachePath is the JSON cache file shared by sync and serve
	CachePath string `mapstructure:"cache_path" json:"cachePath"`

	// HistoryPath is the sqlite database recording sync runs; empty disables it
	HistoryPath string `mapstructure:"history_path" json:"historyPath"`

	// ExcludeFolder is the subfolder name skipped during sync
	ExcludeFolder string `mapstructure:"exclude_folder" json:"excludeFolder"`

	// ListenAddr is the address the web server binds to
	ListenAddr string `mapstructure:"listen_addr" json:"listenAddr"`

	// MaxRetries is the maximum number of retries for API calls
	MaxRetries int `mapstructure:"max_retries" json:"maxRetries"`

	// RetryBaseDelay is the base delay for exponential backoff in milliseconds
	RetryBaseDelay int `mapstructure:"retry_base_delay" json:"retryBaseDelay"`

	// LogLevel sets the logging verbosity (quiet, normal, verbose, debug)
	LogLevel string `mapstructure:"log_level" json:"logLevel"`

	// LogFile, when set, also writes JSON log lines to this path
	LogFile string `mapstructure:"log_file" json:"logFile"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		CredentialsFile:   "service_key.json",
		CredentialsSource: "file",
		KeyringAccount:    "default",
		CachePath:         "hash_map.json",
		ExcludeFolder:     utils.DefaultExcludedFolderName,
		ListenAddr:        ":8080",
		MaxRetries:        utils.DefaultMaxRetries,
		RetryBaseDelay:    utils.DefaultRetryDelayMs,
		LogLevel:          "normal",
	}
}

// Loader resolves configuration with precedence:
// flags > env vars > config file > defaults
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader with defaults and env bindings registered
func NewLoader() *Loader {
	v := viper.New()

	d := DefaultConfig()
	v.SetDefault(KeyRootFolderID, d.RootFolderID)
	v.SetDefault(KeyCredentialsFile, d.CredentialsFile)
	v.SetDefault(KeyCredentialsSource, d.CredentialsSource)
	v.SetDefault(KeyKeyringAccount, d.KeyringAccount)
	v.SetDefault(KeyCachePath, d.CachePath)
	v.SetDefault(KeyHistoryPath, d.HistoryPath)
	v.SetDefault(KeyExcludeFolder, d.ExcludeFolder)
	v.SetDefault(KeyListenAddr, d.ListenAddr)
	v.SetDefault(KeyMaxRetries, d.MaxRetries)
	v.SetDefault(KeyRetryBaseDelay, d.RetryBaseDelay)
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyLogFile, d.LogFile)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return &Loader{v: v}
}

// BindFlag binds a cobra/pflag flag to a config key
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("no flag to bind for %s", key)
	}
	return l.v.BindPFlag(key, flag)
}

// Load reads the config file (explicit path, or driveshelf.* in the config
// dir and working directory) and returns the merged, validated config.
func (l *Loader) Load(configFile string) (*Config, error) {
	if configFile != "" {
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		if dir, err := GetConfigDir(); err == nil {
			l.v.AddConfigPath(dir)
		}
		l.v.AddConfigPath(".")
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, configError(fmt.Sprintf("failed to load config file: %v", err))
		}
	}

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, configError(fmt.Sprintf("failed to decode config: %v", err))
	}

	if err := cfg.Validate(); err != nil {
		return nil, configError(err.Error())
	}
	return cfg, nil
}

// ConfigFileUsed returns the config file that was read, if any
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.CredentialsSource {
	case "file":
		if c.CredentialsFile == "" {
			return fmt.Errorf("credentials file required when credentials source is 'file'")
		}
	case "keyring":
		if c.KeyringAccount == "" {
			return fmt.Errorf("keyring account required when credentials source is 'keyring'")
		}
	default:
		return fmt.Errorf("invalid credentials source: %s (must be 'file' or 'keyring')", c.CredentialsSource)
	}

	if c.CachePath == "" {
		return fmt.Errorf("cache path must not be empty")
	}

	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("max retries must be between 0 and 10, got: %d", c.MaxRetries)
	}

	if c.RetryBaseDelay < 100 || c.RetryBaseDelay > 60000 {
		return fmt.Errorf("retry base delay must be between 100ms and 60000ms, got: %d", c.RetryBaseDelay)
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	return nil
}

// ValidateForSync checks the settings only a sync run needs
func (c *Config) ValidateForSync() error {
	if c.RootFolderID == "" {
		return configError("root folder id is required (set DRIVESHELF_ROOT_FOLDER_ID or root_folder_id)")
	}
	return nil
}

// GetRetryBaseDelay returns the retry base delay as a duration
func (c *Config) GetRetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelay) * time.Millisecond
}

// GetConfigDir returns the directory searched for a config file
func GetConfigDir() (string, error) {
	if dir := os.Getenv(EnvPrefix + "_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "driveshelf"), nil
}

func configError(message string) error {
	return utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidConfig, message).Build())
}
