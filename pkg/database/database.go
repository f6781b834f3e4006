package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"tasksync/configs"
)

// DSN membangun connection string Postgres untuk database dbname.
func DSN(cfg configs.Config, dbname string) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, dbname)
}

// ConnectDB membuka koneksi ke database utama (DB_NAME).
func ConnectDB(cfg configs.Config) (*sql.DB, error) {
	return Open(DSN(cfg, cfg.DBName))
}

// Open membuka pool koneksi dan memastikan database bisa di-ping.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}
