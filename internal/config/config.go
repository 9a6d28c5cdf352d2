package config

import (
	"strings"

	"salesprobe/internal/errors"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Pipeline PipelineConfig `mapstructure:"pipeline" validate:"required"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// DatabaseConfig holds the persistence sink connection settings. There are no
// credential defaults; everything comes from the environment or the config file.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver" validate:"oneof=postgres mysql"`
	URL      string `mapstructure:"url"`
	Progress bool   `mapstructure:"progress"`
}

// PipelineConfig holds analysis parameters
type PipelineConfig struct {
	DateLayout          string    `mapstructure:"date_layout"`
	OutlierColumn       string    `mapstructure:"outlier_column" validate:"oneof=quantity unitprice total_purchase"`
	OutlierPolicy       string    `mapstructure:"outlier_policy" validate:"oneof=remove cap"`
	SpendingLabels      []string  `mapstructure:"spending_labels" validate:"min=1,dive,required"`
	FrequencyBoundaries []float64 `mapstructure:"frequency_boundaries" validate:"min=2"`
	FrequencyLabels     []string  `mapstructure:"frequency_labels" validate:"min=1,dive,required"`
	TopN                int       `mapstructure:"top_n" validate:"gte=0"`
	CoOccurrenceTopN    int       `mapstructure:"cooccurrence_top_n" validate:"gte=0"`
	HistogramBins       int       `mapstructure:"histogram_bins" validate:"gte=1"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=ERROR WARN INFO DEBUG TRACE error warn info debug trace"`
}

// MetricsConfig holds the prometheus textfile output path
type MetricsConfig struct {
	File string `mapstructure:"file"`
}

var validate = validator.New()

// Load reads .env, the optional YAML config file at path and the environment,
// then validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		if err := v.BindEnv(key, env); err != nil {
			return nil, errors.Wrapf(err, "failed to bind %s", env)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.WithCode(errors.CodeConfigInvalid, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(errors.WithCode(errors.CodeConfigInvalid, err), "failed to decode configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envAliases binds the conventional variable names next to the PIPELINE_* style ones.
var envAliases = map[string]string{
	"database.url":    "DATABASE_URL",
	"database.driver": "DB_DRIVER",
	"log.level":       "LOG_LEVEL",
	"metrics.file":    "METRICS_FILE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.url", "")
	v.SetDefault("database.progress", false)

	v.SetDefault("pipeline.date_layout", "")
	v.SetDefault("pipeline.outlier_column", "quantity")
	v.SetDefault("pipeline.outlier_policy", "cap")
	v.SetDefault("pipeline.spending_labels", []string{"Low", "Medium", "High", "Very High"})
	v.SetDefault("pipeline.frequency_boundaries", []float64{0, 1, 5, 20, 1e9})
	v.SetDefault("pipeline.frequency_labels", []string{"One-time", "Occasional", "Regular", "Frequent"})
	v.SetDefault("pipeline.top_n", 15)
	v.SetDefault("pipeline.cooccurrence_top_n", 20)
	v.SetDefault("pipeline.histogram_bins", 50)

	v.SetDefault("log.level", "INFO")
	v.SetDefault("metrics.file", "")
}

// Validate checks struct tags plus cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.WithCode(errors.CodeConfigInvalid, err), "configuration validation failed")
	}
	if len(c.Pipeline.FrequencyLabels) != len(c.Pipeline.FrequencyBoundaries)-1 {
		return errors.ConfigInvalid("frequency_labels must have one entry fewer than frequency_boundaries")
	}
	if c.Pipeline.OutlierPolicy == "cap" && c.Pipeline.OutlierColumn == "total_purchase" {
		return errors.ConfigInvalid("total_purchase is derived and cannot be capped; cap quantity or unitprice, or use outlier_policy remove")
	}
	return nil
}

// ValidateDatabase is called by commands that write to the persistence sink.
func (c *Config) ValidateDatabase() error {
	if c.Database.URL == "" {
		return errors.ConfigInvalid("DATABASE_URL is required")
	}
	return nil
}
