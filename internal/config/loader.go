package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"github.com/semiquaver/royalty-import/internal/db"
)

// Config is the full service configuration.
type Config struct {
	Database       db.Config
	ListenAddr     string
	MigrationsPath string
	LogLevel       string
}

// Default returns the baseline configuration used when no config file or
// environment overrides are present.
func Default() Config {
	return Config{
		Database:       db.DefaultConfig(),
		ListenAddr:     ":8080",
		MigrationsPath: "./migrations",
		LogLevel:       "info",
	}
}

// Load reads config.yaml from configPath, allowing environment overrides
// with the IMPORTD prefix (IMPORTD_DATABASE_HOST and so on).
func Load(configPath string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()
	v.SetEnvPrefix("IMPORTD")

	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")
	v.BindEnv("server.addr")
	v.BindEnv("server.migrations")
	v.BindEnv("log.level")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		// No config.yaml; defaults plus env vars apply.
	}

	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}
	if v.IsSet("server.addr") {
		cfg.ListenAddr = v.GetString("server.addr")
	}
	if v.IsSet("server.migrations") {
		cfg.MigrationsPath = v.GetString("server.migrations")
	}
	if v.IsSet("log.level") {
		cfg.LogLevel = v.GetString("log.level")
	}

	return cfg, nil
}
