// Package config loads job settings from an optional config file and
// ETL_* environment variables, plus the dimension mapping.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/BartekS5/totesys-etl/pkg/models"
)

type Config struct {
	AWS       AWSConfig       `mapstructure:"aws"`
	Buckets   BucketConfig    `mapstructure:"buckets"`
	Watermark WatermarkConfig `mapstructure:"watermark"`
	Source    SourceConfig    `mapstructure:"source"`
	Transform TransformConfig `mapstructure:"transform"`
	Log       LogConfig       `mapstructure:"log"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
}

type AWSConfig struct {
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"` // for S3 compatible stores
}

// BucketConfig names the three buckets. None has a default.
type BucketConfig struct {
	Landing   string `mapstructure:"landing"`
	State     string `mapstructure:"state"`
	Processed string `mapstructure:"processed"`
}

type WatermarkConfig struct {
	Key      string `mapstructure:"key"`
	Location string `mapstructure:"location"`
}

type SourceConfig struct {
	Driver        string `mapstructure:"driver"` // postgres, sqlserver
	Schema        string `mapstructure:"schema"`
	ExcludedTable string `mapstructure:"excluded_table"`
	CreatedColumn string `mapstructure:"created_column"`
	SecretName    string `mapstructure:"secret_name"`
	SSLMode       string `mapstructure:"sslmode"`
	// DSN skips the secret lookup when set.
	DSN string `mapstructure:"dsn"`
}

type TransformConfig struct {
	Tables      []string `mapstructure:"tables"`
	MappingFile string   `mapstructure:"mapping_file"`
}

type LogConfig struct {
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"`
	File      string `mapstructure:"file"`
	AddSource bool   `mapstructure:"add_source"`
}

// MongoConfig enables the run log when URI is set.
type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("aws.region", "eu-west-2")
	v.SetDefault("aws.endpoint", "")
	v.SetDefault("buckets.landing", "")
	v.SetDefault("buckets.state", "")
	v.SetDefault("buckets.processed", "")
	v.SetDefault("watermark.key", "last_extracted.txt")
	v.SetDefault("watermark.location", "UTC")
	v.SetDefault("source.driver", "postgres")
	v.SetDefault("source.schema", "public")
	v.SetDefault("source.excluded_table", "_prisma_migrations")
	v.SetDefault("source.created_column", "created_at")
	v.SetDefault("source.secret_name", "database_credentials")
	v.SetDefault("source.sslmode", "require")
	v.SetDefault("source.dsn", "")
	v.SetDefault("transform.tables", models.LandingTables)
	v.SetDefault("transform.mapping_file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.add_source", false)
	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", "etl")
	v.SetDefault("mongo.collection", "runs")
}

// Load reads configPath when given, otherwise an optional config.yaml in
// ./configs or the working directory. ETL_* variables override both, e.g.
// ETL_BUCKETS_LANDING for buckets.landing.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ETL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings every job needs.
func (c *Config) Validate() error {
	if c.Buckets.Landing == "" {
		return errors.New("buckets.landing is required")
	}
	if c.Buckets.State == "" {
		return errors.New("buckets.state is required")
	}
	if c.Buckets.Processed == "" {
		return errors.New("buckets.processed is required")
	}
	if c.Watermark.Key == "" {
		return errors.New("watermark.key is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}

	switch c.Source.Driver {
	case "postgres", "sqlserver":
	default:
		return fmt.Errorf("invalid source driver: %s, must be 'postgres' or 'sqlserver'", c.Source.Driver)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("invalid log format: %s, must be 'json' or 'text'", c.Log.Format)
	}
	return nil
}

// Location is the zone the source's naive timestamps are written in.
func (c *Config) Location() (*time.Location, error) {
	if c.Watermark.Location == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Watermark.Location)
	if err != nil {
		return nil, fmt.Errorf("invalid watermark.location %q: %w", c.Watermark.Location, err)
	}
	return loc, nil
}
