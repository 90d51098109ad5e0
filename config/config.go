package config

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server       Server
	Database     Database
	Redis        Redis
	Autosave     Autosave
	GeminiApiKey string
}

type Server struct {
	Port string
}

type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

// Autosave holds the cadences and retry bounds of the attempt persistence
// tiers. TickInterval drives the per-attempt countdown check.
type Autosave struct {
	TickInterval    time.Duration
	LocalInterval   time.Duration
	DurableInterval time.Duration
	RetryLimit      int
	RetryBase       time.Duration
}

func NewConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	viper.SetDefault("ATTEMPT_TICK_INTERVAL", "1s")
	viper.SetDefault("AUTOSAVE_LOCAL_INTERVAL", "30s")
	viper.SetDefault("AUTOSAVE_DURABLE_INTERVAL", "120s")
	viper.SetDefault("AUTOSAVE_RETRY_LIMIT", 3)
	viper.SetDefault("AUTOSAVE_RETRY_BASE", "1s")

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	var config Config

	config.Server.Port = viper.GetString("SERVER_PORT")
	config.Database.Host = viper.GetString("DATABASE_HOST")
	config.Database.Port = viper.GetString("DATABASE_PORT")
	config.Database.User = viper.GetString("DATABASE_USER")
	config.Database.Password = viper.GetString("DATABASE_PASSWORD")
	config.Database.Name = viper.GetString("DATABASE_NAME")

	config.Redis.Addr = viper.GetString("REDIS_ADDR")
	config.Redis.Password = viper.GetString("REDIS_PASSWORD")
	config.Redis.DB = viper.GetInt("REDIS_DB")

	config.Autosave.TickInterval = viper.GetDuration("ATTEMPT_TICK_INTERVAL")
	config.Autosave.LocalInterval = viper.GetDuration("AUTOSAVE_LOCAL_INTERVAL")
	config.Autosave.DurableInterval = viper.GetDuration("AUTOSAVE_DURABLE_INTERVAL")
	config.Autosave.RetryLimit = viper.GetInt("AUTOSAVE_RETRY_LIMIT")
	config.Autosave.RetryBase = viper.GetDuration("AUTOSAVE_RETRY_BASE")

	config.GeminiApiKey = viper.GetString("GEMINI_API_KEY")

	log.Info().Interface("config", config).Msg("Config loaded")
	return &config, nil
}
