package database

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"pharmacare_backend/pkg/utils"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

var db *sql.DB

// InitDB establishes the database connection pool from environment variables
// and, when DB_SCHEMA_PATH is set, applies the schema file on startup.
func InitDB() (*sql.DB, error) {
	host := utils.Getenv("DB_HOST", "localhost")
	port := utils.Getenv("DB_PORT", "5432")
	user := utils.Getenv("DB_USER", "postgres")
	password := utils.Getenv("DB_PASSWORD", "postgres")
	dbname := utils.Getenv("DB_NAME", "pharmacare")
	sslmode := utils.Getenv("DB_SSLMODE", "disable")

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)

	var err error
	db, err = sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Info().Str("host", host).Str("database", dbname).Msg("Database connection established")

	if schemaPath := os.Getenv("DB_SCHEMA_PATH"); schemaPath != "" {
		if err := applySchema(schemaPath); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func applySchema(path string) error {
	schema, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read schema file %s: %w", path, err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	log.Info().Str("path", path).Msg("Database schema applied")
	return nil
}

// GetDB returns the initialized connection pool.
func GetDB() *sql.DB {
	return db
}

// CloseDB closes the connection pool.
func CloseDB() {
	if db != nil {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		} else {
			log.Info().Msg("Database connection closed")
		}
	}
}
