package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order at startup.  Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         CHAR(36)     NOT NULL PRIMARY KEY,
		email      VARCHAR(255) NOT NULL,
		created_at DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id           CHAR(36)  NOT NULL PRIMARY KEY,
		user_id      CHAR(36)  NOT NULL,
		refresh_hash CHAR(64)  NOT NULL,
		expires_at   DATETIME  NOT NULL,
		revoked_at   DATETIME  NULL,
		created_at   DATETIME  NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_sessions_refresh (refresh_hash),
		KEY idx_sessions_user (user_id),
		CONSTRAINT fk_sessions_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS saved_movies (
		id         CHAR(36)     NOT NULL PRIMARY KEY,
		movie_id   BIGINT       NOT NULL,
		title      VARCHAR(512) NOT NULL,
		poster_url VARCHAR(512) NOT NULL DEFAULT '',
		user_id    CHAR(36)     NOT NULL,
		created_at DATETIME(3)  NOT NULL,
		UNIQUE KEY uq_saved_user_movie (user_id, movie_id),
		KEY idx_saved_user_created (user_id, created_at),
		CONSTRAINT fk_saved_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS search_counts (
		search_term VARCHAR(255) NOT NULL,
		movie_id    BIGINT       NOT NULL,
		title       VARCHAR(512) NOT NULL,
		poster_url  VARCHAR(512) NOT NULL DEFAULT '',
		count       BIGINT       NOT NULL DEFAULT 1,
		UNIQUE KEY uq_search_term (search_term),
		KEY idx_search_count (count)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing tables.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
