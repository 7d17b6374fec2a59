package types

import (
	"errors"
	"time"
)

// Config holds backend selection and parameters for opening local storage.
type Config struct {
	Backend string `json:"backend" yaml:"backend"`
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
	ErrAPIURLEmpty    = errors.New("api url must not be empty")
	ErrTimeoutInvalid = errors.New("request timeout must be positive")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	return nil
}

// Default client settings written to a fresh config.yaml.
const (
	DefaultAPIURL         = "http://localhost:8888/api"
	DefaultRequestTimeout = 10 * time.Second
)

// ClientConfig holds the settings for talking to the cart API.
type ClientConfig struct {
	APIURL         string        `json:"api_url" yaml:"api_url"`
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout"`

	// AutoMerge runs reconciliation on every command start when the
	// session is already authenticated.
	AutoMerge bool `json:"auto_merge" yaml:"auto_merge"`
}

// Validate checks that the ClientConfig is usable.
func (c ClientConfig) Validate() error {
	if c.APIURL == "" {
		return ErrAPIURLEmpty
	}
	if c.RequestTimeout <= 0 {
		return ErrTimeoutInvalid
	}
	return nil
}
