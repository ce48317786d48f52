package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/Jereff77/SPHCFDIs/internal/logger"
	"github.com/Jereff77/SPHCFDIs/internal/tracing"
)

type Config struct {
	IMAP      *IMAPConfig
	Database  *DatabaseConfig
	Processor *ProcessorConfig
	Schedule  *ScheduleConfig
	Cron      *CronConfig
	Logger    *logger.Config
	Tracing   *tracing.JaegerConfig
}

func InitConfig() (*Config, error) {
	config := &Config{
		IMAP:      &IMAPConfig{},
		Database:  &DatabaseConfig{},
		Processor: &ProcessorConfig{},
		Schedule:  &ScheduleConfig{},
		Cron:      &CronConfig{},
		Logger:    &logger.Config{},
		Tracing:   &tracing.JaegerConfig{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		return nil, err
	}

	return config, nil
}
