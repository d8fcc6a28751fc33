package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// InitSchema creates the watch and history tables when they do not exist.
// The UNIQUE key on (owner, course_id) is what enforces at most one active
// watch per user and course at the storage layer.
func InitSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS watches (
		    id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		    owner VARCHAR(64) NOT NULL,
		    course_id VARCHAR(8) NOT NULL,
		    category VARCHAR(16) NOT NULL,
		    display_name VARCHAR(128) NOT NULL,
		    created_at DATETIME NOT NULL,
		    last_checked DATETIME NOT NULL,
		    UNIQUE KEY uq_owner_course (owner, course_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS query_history (
		    id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		    owner VARCHAR(64) NOT NULL,
		    course_id VARCHAR(8) NOT NULL,
		    category VARCHAR(16) NOT NULL,
		    course_name VARCHAR(128) NOT NULL,
		    capacity INT NOT NULL,
		    occupied INT NOT NULL,
		    available INT NOT NULL,
		    queried_at DATETIME NOT NULL,
		    KEY idx_owner_time (owner, queried_at),
		    KEY idx_time (queried_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}
