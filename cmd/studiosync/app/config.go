package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/studiosync/internal/sources/registry"
	"github.com/agentstation/studiosync/internal/validation"
	"github.com/agentstation/studiosync/pkg/constants"
	"github.com/agentstation/studiosync/pkg/errors"
)

// EnvPrefix prefixes every environment variable the CLI reads,
// e.g. STUDIOSYNC_STASH_URL for stash.url.
const EnvPrefix = "STUDIOSYNC"

// Config holds the application configuration loaded from config files,
// environment variables, .env files and flags.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Local catalog. CatalogFile selects an offline YAML catalog instead
	// of the Stash server.
	StashURL    string `validate:"omitempty,url"`
	StashAPIKey string
	CatalogFile string

	// Sources overrides discovery from the Stash configuration. Order is priority.
	Sources    []registry.Endpoint
	TPDBAPIKey string

	LockFile    string
	JournalPath string
	MetricsFile string

	SourceTimeout time.Duration `validate:"min=0"`
	Concurrency   int           `validate:"min=1"`

	// Logging configuration
	LogLevel  string
	LogFormat string `validate:"omitempty,oneof=auto json console pretty stash"`
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
//  1. Command-line flags (handled by cobra)
//  2. Environment variables (STUDIOSYNC_ prefix)
//  3. .env files
//  4. Config file (./studiosync.yaml or ~/.studiosync.yaml)
//  5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("studiosync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, errors.NewConfigError("config", "failed to read config file", err)
		}
	}

	config := &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		Format:  v.GetString("format"),

		ConfigFile: v.ConfigFileUsed(),

		StashURL:    v.GetString("stash.url"),
		StashAPIKey: v.GetString("stash.api_key"),
		CatalogFile: v.GetString("catalog.file"),
		TPDBAPIKey:  v.GetString("tpdb.api_key"),

		LockFile:    v.GetString("lock.file"),
		JournalPath: v.GetString("journal.path"),
		MetricsFile: v.GetString("metrics.file"),

		SourceTimeout: v.GetDuration("source_timeout"),
		Concurrency:   v.GetInt("concurrency"),

		LogLevel:  v.GetString("log.level"),
		LogFormat: v.GetString("log.format"),
		LogOutput: v.GetString("log.output"),
	}
	if err := v.UnmarshalKey("sources", &config.Sources); err != nil {
		return nil, errors.NewConfigError("sources", "invalid sources list", err)
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("verbose", false)
	v.SetDefault("quiet", false)
	v.SetDefault("format", "")
	v.SetDefault("stash.url", "http://localhost:9999")
	v.SetDefault("stash.api_key", "")
	v.SetDefault("catalog.file", "")
	v.SetDefault("tpdb.api_key", "")
	v.SetDefault("lock.file", constants.DefaultLockFile)
	v.SetDefault("journal.path", constants.DefaultJournalPath)
	v.SetDefault("metrics.file", "")
	v.SetDefault("source_timeout", constants.SourceTimeout)
	v.SetDefault("concurrency", constants.MaxConcurrentSources)
	v.SetDefault("log.level", "")
	v.SetDefault("log.format", "auto")
	v.SetDefault("log.output", "stderr")
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.Struct(c)
}

// UpdateFromFlags updates config values from parsed command flags.
// Flag values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel, logFile string) {
	c.Verbose = c.Verbose || verbose
	c.Quiet = c.Quiet || quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	if logFile != "" {
		c.LogOutput = logFile
		c.NoColor = true
	}
}

// loadEnvFiles loads environment variables from .env files. Variables
// already set win; .env.local is loaded first so it overrides .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}
