package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/pawcart/internal/paths"
	"github.com/mesh-intelligence/pawcart/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "PAWCART"

	cfgKeyBackend        = "backend"
	cfgKeyDataDir        = "data_dir"
	cfgKeyAPIURL         = "api_url"
	cfgKeyRequestTimeout = "request_timeout"
	cfgKeyAutoMerge      = "auto_merge"
	cfgKeyLogLevel       = "log_level"

	defaultLogLevel = "warn"
)

// configFile is the structure written to a fresh config.yaml.
type configFile struct {
	Backend        string `yaml:"backend"`
	DataDir        string `yaml:"data_dir,omitempty"`
	APIURL         string `yaml:"api_url"`
	RequestTimeout string `yaml:"request_timeout"`
	AutoMerge      bool   `yaml:"auto_merge"`
	LogLevel       string `yaml:"log_level"`
}

func defaultConfigFile(dataDir string) configFile {
	return configFile{
		Backend:        types.BackendSQLite,
		DataDir:        dataDir,
		APIURL:         types.DefaultAPIURL,
		RequestTimeout: types.DefaultRequestTimeout.String(),
		AutoMerge:      true,
		LogLevel:       defaultLogLevel,
	}
}

// settings is the resolved configuration for one command run.
type settings struct {
	configDir string
	storage   types.Config
	client    types.ClientConfig
	logLevel  string
}

// loadConfig reads config.yaml from configDir with viper, writing the
// default file on first run. PAWCART_* environment variables override keys
// from the file.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := writeConfigIfMissing(paths.ConfigFile(configDir), ""); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	def := defaultConfigFile("")
	v.SetDefault(cfgKeyBackend, def.Backend)
	v.SetDefault(cfgKeyAPIURL, def.APIURL)
	v.SetDefault(cfgKeyRequestTimeout, def.RequestTimeout)
	v.SetDefault(cfgKeyAutoMerge, def.AutoMerge)
	v.SetDefault(cfgKeyLogLevel, def.LogLevel)
	v.SetDefault(cfgKeyDataDir, "")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// resolveSettings loads and validates the configuration. dataDirFlag wins
// over data_dir from the file.
func resolveSettings(configDir, dataDirFlag string) (settings, error) {
	v, err := loadConfig(configDir)
	if err != nil {
		return settings{}, err
	}

	dataDir, err := paths.ResolveDataDir(dataDirFlag, v.GetString(cfgKeyDataDir))
	if err != nil {
		return settings{}, fmt.Errorf("resolve data dir: %w", err)
	}

	s := settings{
		configDir: configDir,
		storage: types.Config{
			Backend: v.GetString(cfgKeyBackend),
			DataDir: dataDir,
		},
		client: types.ClientConfig{
			APIURL:         v.GetString(cfgKeyAPIURL),
			RequestTimeout: v.GetDuration(cfgKeyRequestTimeout),
			AutoMerge:      v.GetBool(cfgKeyAutoMerge),
		},
		logLevel: v.GetString(cfgKeyLogLevel),
	}
	if err := s.storage.Validate(); err != nil {
		return settings{}, fmt.Errorf("config %s: %w", cfgKeyBackend, err)
	}
	if err := s.client.Validate(); err != nil {
		return settings{}, fmt.Errorf("config: %w", err)
	}
	return s, nil
}

// writeConfigIfMissing creates config.yaml with default values. An existing
// file is left untouched.
func writeConfigIfMissing(path, dataDir string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	cfg := defaultConfigFile(dataDir)
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# pawcart configuration. PAWCART_<KEY> environment variables override these.\n")
	return os.WriteFile(path, append(header, data...), 0o644)
}
