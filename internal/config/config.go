package config

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Paths     PathsConfig     `yaml:"paths" mapstructure:"paths"`
	Upload    UploadConfig    `yaml:"upload" mapstructure:"upload"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run-history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Path        string `yaml:"path" mapstructure:"path"`
}

// AnthropicConfig holds the classifier client settings.
type AnthropicConfig struct {
	Key               string  `yaml:"key" mapstructure:"key"`
	Model             string  `yaml:"model" mapstructure:"model"`
	MaxTokens         int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature       float64 `yaml:"temperature" mapstructure:"temperature"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	MaxConcurrent     int     `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// PipelineConfig holds run-wide pipeline settings.
type PipelineConfig struct {
	Brands      []string `yaml:"brands" mapstructure:"brands"`
	SourcesFile string   `yaml:"sources_file" mapstructure:"sources_file"`
}

// PathsConfig names the workbooks the pipeline reads and writes. Pass
// partials land in PartialsDir; published outputs in OutputDir.
type PathsConfig struct {
	OutputDir   string `yaml:"output_dir" mapstructure:"output_dir"`
	PartialsDir string `yaml:"partials_dir" mapstructure:"partials_dir"`

	SpokespersonFile string `yaml:"spokesperson_file" mapstructure:"spokesperson_file"`
	ConceptsFile     string `yaml:"concepts_file" mapstructure:"concepts_file"`
	ProminenceIDFile string `yaml:"prominence_id_file" mapstructure:"prominence_id_file"`
	EffortIDFile     string `yaml:"effort_id_file" mapstructure:"effort_id_file"`
	NoteIDFile       string `yaml:"note_id_file" mapstructure:"note_id_file"`
}

// UploadConfig configures the final hand-off sink.
type UploadConfig struct {
	FTPAddr    string `yaml:"ftp_addr" mapstructure:"ftp_addr"`
	FTPUser    string `yaml:"ftp_user" mapstructure:"ftp_user"`
	FTPPass    string `yaml:"ftp_pass" mapstructure:"ftp_pass"`
	FTPDir     string `yaml:"ftp_dir" mapstructure:"ftp_dir"`
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml (working directory or
// $HOME/.brandbatch), BRANDBATCH_-prefixed environment variables, and
// built-in defaults, in increasing priority.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.brandbatch")

	// Environment
	v.SetEnvPrefix("BRANDBATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "brandbatch.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("anthropic.temperature", 0.2)
	v.SetDefault("anthropic.requests_per_second", 1.0)
	v.SetDefault("anthropic.max_concurrent", 4)
	v.SetDefault("pipeline.sources_file", "sources.yaml")
	v.SetDefault("paths.output_dir", "output")
	v.SetDefault("paths.partials_dir", "output/partials")
	v.SetDefault("paths.spokesperson_file", "lookups/porta_vozes.xlsx")
	v.SetDefault("paths.concepts_file", "lookups/conceitos_protagonismo.xlsx")
	v.SetDefault("paths.prominence_id_file", "lookups/nivel_protagonismo_id.xlsx")
	v.SetDefault("paths.effort_id_file", "lookups/esforco_id.xlsx")
	v.SetDefault("paths.note_id_file", "lookups/nota_id.xlsx")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// SourceEndpoint is one entity-source endpoint from sources.yaml. The
// body is POSTed as JSON.
type SourceEndpoint struct {
	Name string         `yaml:"name"`
	URL  string         `yaml:"url"`
	Body map[string]any `yaml:"body"`
}

// LoadSources parses the sources.yaml endpoint list.
func LoadSources(path string) ([]SourceEndpoint, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read sources file %s", path)
	}

	var doc struct {
		Sources []SourceEndpoint `yaml:"sources"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, eris.Wrapf(err, "config: parse sources file %s", path)
	}
	if len(doc.Sources) == 0 {
		return nil, eris.Errorf("config: sources file %s declares no endpoints", path)
	}
	return doc.Sources, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
