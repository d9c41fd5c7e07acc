package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	DatabaseURL     string   `env:"DATABASE_URL" envDefault:"postgres://localhost:5432/save_parser?sslmode=disable"`
	Neo4jURI        string   `env:"NEO4J_URI" envDefault:"bolt://localhost:7687"`
	Neo4jUser       string   `env:"NEO4J_USER" envDefault:"neo4j"`
	Neo4jPassword   string   `env:"NEO4J_PASSWORD" envDefault:"password"`
	WorkerCount     int      `env:"WORKER_COUNT" envDefault:"8"`
	InsertBatchSize int      `env:"INSERT_BATCH_SIZE" envDefault:"500"`
	ExitKeys        []string `env:"SAVE_EXIT_KEYS" envDefault:"institutions,history" envSeparator:","`
	OutputFile      string   `env:"OUTPUT_FILE" envDefault:"output.json"`
	LogLevel        string   `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}
	if cfg.InsertBatchSize < 1 {
		cfg.InsertBatchSize = 1
	}
	return cfg, nil
}
