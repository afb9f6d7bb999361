// Package config provides the source catalog and runtime configuration
// for the data platform. A single YAML document (config/sources.yml)
// enumerates API sources, file sources, and remote storage settings.
// The catalog is loaded once per run and is read-only afterwards.
package config

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/vibedata/platform/pkg/errors"
)

// Auth strategies for API sources. The set is closed; anything else is
// rejected at load time.
const (
	AuthNone   = "none"
	AuthBearer = "bearer"
	AuthAPIKey = "api_key"
)

// Default container names for the remote storage tiers
const (
	DefaultRawContainer      = "raw"
	DefaultDatabaseContainer = "duckdb"
	DefaultLogsContainer     = "logs"
)

// Config is the root configuration document
type Config struct {
	Sources SourcesConfig `yaml:"sources"`
	Azure   AzureConfig   `yaml:"azure"`
	Storage StorageConfig `yaml:"storage"`

	// dataDir anchors every relative path in the document
	dataDir string
}

// SourcesConfig groups the configured data origins
type SourcesConfig struct {
	APIs  map[string]*APISource  `yaml:"apis"`
	Files map[string]*FileSource `yaml:"files"`
}

// APISource describes one remote API origin
type APISource struct {
	Name       string     `yaml:"-"`
	BaseURL    string     `yaml:"base_url"`
	AuthType   string     `yaml:"auth_type"`
	AuthEnvVar string     `yaml:"auth_env_var"`
	Enabled    bool       `yaml:"enabled"`
	Endpoints  []Endpoint `yaml:"endpoints"`
}

// Endpoint is one addressable operation within an API source
type Endpoint struct {
	Name       string `yaml:"name"`
	Path       string `yaml:"path"`
	Method     string `yaml:"method"`
	OutputFile string `yaml:"output_file"`
}

// FileSource describes one local file pattern origin
type FileSource struct {
	Name    string `yaml:"-"`
	Pattern string `yaml:"pattern"`
	Path    string `yaml:"path"`
	Enabled bool   `yaml:"enabled"`
}

// AzureConfig holds remote storage settings. Only environment variable
// names live here; the values are resolved at run time.
type AzureConfig struct {
	Enabled             bool       `yaml:"enabled"`
	ConnectionStringEnv string     `yaml:"connection_string_env"`
	StorageAccountEnv   string     `yaml:"storage_account_env"`
	StorageKeyEnv       string     `yaml:"storage_key_env"`
	Containers          Containers `yaml:"containers"`
}

// Containers names the bucket-like groupings per storage tier
type Containers struct {
	Raw      string `yaml:"raw"`
	Database string `yaml:"database"`
	Logs     string `yaml:"logs"`
}

// StorageConfig holds local storage paths, relative to the data root
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	DatabaseKey  string `yaml:"database_key"`
	RawDir       string `yaml:"raw_dir"`
	LogsDir      string `yaml:"logs_dir"`
	RunLog       string `yaml:"run_log"`
	ExportDir    string `yaml:"export_dir"`
}

// applyDefaults fills unset fields with the platform conventions
func (c *Config) applyDefaults() {
	if c.Azure.ConnectionStringEnv == "" {
		c.Azure.ConnectionStringEnv = "AZURE_STORAGE_CONNECTION_STRING"
	}
	if c.Azure.StorageAccountEnv == "" {
		c.Azure.StorageAccountEnv = "AZURE_STORAGE_ACCOUNT"
	}
	if c.Azure.StorageKeyEnv == "" {
		c.Azure.StorageKeyEnv = "AZURE_STORAGE_KEY"
	}
	if c.Azure.Containers.Raw == "" {
		c.Azure.Containers.Raw = DefaultRawContainer
	}
	if c.Azure.Containers.Database == "" {
		c.Azure.Containers.Database = DefaultDatabaseContainer
	}
	if c.Azure.Containers.Logs == "" {
		c.Azure.Containers.Logs = DefaultLogsContainer
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "data/processed/vibe.duckdb"
	}
	if c.Storage.DatabaseKey == "" {
		c.Storage.DatabaseKey = filepath.Base(c.Storage.DatabasePath)
	}
	if c.Storage.RawDir == "" {
		c.Storage.RawDir = "data/raw"
	}
	if c.Storage.LogsDir == "" {
		c.Storage.LogsDir = "logs"
	}
	if c.Storage.RunLog == "" {
		c.Storage.RunLog = "logs/pipeline_runs.log"
	}
	if c.Storage.ExportDir == "" {
		c.Storage.ExportDir = "dashboard/src/data"
	}

	for name, api := range c.Sources.APIs {
		api.Name = name
		if api.AuthType == "" {
			api.AuthType = AuthNone
		}
		for i := range api.Endpoints {
			if api.Endpoints[i].Method == "" {
				api.Endpoints[i].Method = "GET"
			}
		}
	}
	for name, fs := range c.Sources.Files {
		fs.Name = name
		if fs.Path == "" {
			fs.Path = c.Storage.RawDir
		}
	}
}

// Validate checks the catalog for fatal configuration errors
func (c *Config) Validate() error {
	for name, api := range c.Sources.APIs {
		if api.BaseURL == "" {
			return errors.New(errors.ErrorTypeConfig, "api source missing base_url").
				WithDetail("source", name)
		}
		switch api.AuthType {
		case AuthNone, AuthBearer, AuthAPIKey:
		default:
			return errors.New(errors.ErrorTypeConfig, "unknown auth_type").
				WithDetail("source", name).
				WithDetail("auth_type", api.AuthType)
		}
		for _, ep := range api.Endpoints {
			if ep.Name == "" || ep.Path == "" || ep.OutputFile == "" {
				return errors.New(errors.ErrorTypeConfig, "endpoint missing name, path or output_file").
					WithDetail("source", name)
			}
		}
	}
	for name, fs := range c.Sources.Files {
		if fs.Pattern == "" {
			return errors.New(errors.ErrorTypeConfig, "file source missing pattern").
				WithDetail("source", name)
		}
	}
	return nil
}

// EnabledAPISources returns enabled API sources in name order
func (c *Config) EnabledAPISources() []*APISource {
	out := make([]*APISource, 0, len(c.Sources.APIs))
	for _, api := range c.Sources.APIs {
		if api.Enabled {
			out = append(out, api)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// APISource looks up a source by name regardless of its enabled flag.
// Explicit targeting always wins over the catalog filter.
func (c *Config) APISource(name string) (*APISource, error) {
	api, ok := c.Sources.APIs[name]
	if !ok {
		return nil, errors.New(errors.ErrorTypeConfig, "unknown api source").
			WithDetail("source", name)
	}
	return api, nil
}

// EnabledFileSources returns enabled file sources in name order
func (c *Config) EnabledFileSources() []*FileSource {
	out := make([]*FileSource, 0, len(c.Sources.Files))
	for _, fs := range c.Sources.Files {
		if fs.Enabled {
			out = append(out, fs)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// DataDir returns the resolved data root
func (c *Config) DataDir() string {
	return c.dataDir
}

// Resolve anchors a relative path at the data root
func (c *Config) Resolve(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(c.dataDir, rel)
}

// DatabasePath returns the absolute analytical store path
func (c *Config) DatabasePath() string { return c.Resolve(c.Storage.DatabasePath) }

// RawDir returns the absolute raw tier directory
func (c *Config) RawDir() string { return c.Resolve(c.Storage.RawDir) }

// LogsDir returns the absolute logs directory
func (c *Config) LogsDir() string { return c.Resolve(c.Storage.LogsDir) }

// RunLogPath returns the absolute append-only run log path
func (c *Config) RunLogPath() string { return c.Resolve(c.Storage.RunLog) }

// ExportDir returns the absolute dashboard export directory
func (c *Config) ExportDir() string { return c.Resolve(c.Storage.ExportDir) }

// Credentials is a resolved set of remote storage credentials
type Credentials struct {
	ConnectionString string
	AccountName      string
	AccountKey       string
}

// ResolveAzureCredentials reads remote storage credentials from the
// environment. Resolution order is connection string first, then
// account name plus key. Absence of both is fatal for any remote
// storage operation.
func (c *Config) ResolveAzureCredentials() (*Credentials, error) {
	if cs := os.Getenv(c.Azure.ConnectionStringEnv); cs != "" {
		return &Credentials{ConnectionString: cs}, nil
	}

	account := os.Getenv(c.Azure.StorageAccountEnv)
	key := os.Getenv(c.Azure.StorageKeyEnv)
	if account == "" || key == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "azure credentials not configured").
			WithDetail("connection_string_env", c.Azure.ConnectionStringEnv).
			WithDetail("storage_account_env", c.Azure.StorageAccountEnv).
			WithDetail("storage_key_env", c.Azure.StorageKeyEnv)
	}

	return &Credentials{AccountName: account, AccountKey: key}, nil
}
