package config

import (
	"os"

	"github.com/joho/godotenv"
)

type StoreKind string

const (
	StoreMemory    StoreKind = "memory"
	StoreFirestore StoreKind = "firestore"
	StorePostgres  StoreKind = "postgres"
)

type Config struct {
	Port              string
	ProjectID         string
	LogLevel          string
	Store             StoreKind
	DatabaseURL       string
	DatabaseURLSecret string
}

// New reads the environment, loading a local .env first when one exists.
func New() *Config {
	// .env is optional outside local development
	_ = godotenv.Load()

	return &Config{
		Port:              getEnvOrDefault("PORT", "8080"),
		ProjectID:         os.Getenv("PROJECTID"),
		LogLevel:          getEnvOrDefault("LOGLEVEL", "info"),
		Store:             getStoreKind(os.Getenv("STORE")),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		DatabaseURLSecret: os.Getenv("DATABASE_URL_SECRET"),
	}
}

func getStoreKind(kind string) StoreKind {
	switch kind {
	case "firestore":
		return StoreFirestore
	case "postgres":
		return StorePostgres
	default: // "memory"
		return StoreMemory
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
