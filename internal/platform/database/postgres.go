package database

import (
	"database/sql"
	"log"
	"time"

	"shoplist/internal/platform/config"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
)

func Connect(cfg *config.Config) *sql.DB {
	db, err := sql.Open("pgx", cfg.DBConnStr)
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err = db.Ping(); err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}

	return db
}

func Close(db *sql.DB) {
	if db != nil {
		db.Close()
	}
}
