package postgres

import (
	"context"
	"fmt"
)

// Migrate applies the schema. Statements are idempotent so the service can
// run it unconditionally at startup.
func (db *DB) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS shops (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL DEFAULT '',
			address     TEXT NOT NULL DEFAULT '',
			latitude    DOUBLE PRECISION,
			longitude   DOUBLE PRECISION,
			city        TEXT NOT NULL DEFAULT '',
			cell_coarse TEXT NOT NULL DEFAULT '',
			cell_fine   TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_shops_cell_coarse ON shops (cell_coarse)`,
		`CREATE INDEX IF NOT EXISTS idx_shops_cell_fine ON shops (cell_fine)`,
		`CREATE TABLE IF NOT EXISTS events (
			id             TEXT PRIMARY KEY,
			name           TEXT NOT NULL DEFAULT '',
			description    TEXT NOT NULL DEFAULT '',
			location       TEXT NOT NULL DEFAULT '',
			address        TEXT NOT NULL DEFAULT '',
			city           TEXT NOT NULL DEFAULT '',
			state          TEXT NOT NULL DEFAULT '',
			country        TEXT NOT NULL DEFAULT '',
			latitude       DOUBLE PRECISION,
			longitude      DOUBLE PRECISION,
			start_date     TIMESTAMPTZ NOT NULL,
			start_time     TEXT NOT NULL DEFAULT '',
			end_date       TIMESTAMPTZ,
			event_type     TEXT NOT NULL DEFAULT '',
			organizer      TEXT NOT NULL DEFAULT '',
			player_count   INTEGER NOT NULL DEFAULT 0,
			max_players    INTEGER NOT NULL DEFAULT 0,
			price          TEXT NOT NULL DEFAULT '',
			url            TEXT NOT NULL DEFAULT '',
			image_url      TEXT NOT NULL DEFAULT '',
			shop_id        TEXT NOT NULL DEFAULT '',
			shop_name      TEXT NOT NULL DEFAULT '',
			shop_latitude  DOUBLE PRECISION,
			shop_longitude DOUBLE PRECISION,
			cell           TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_start_date ON events (start_date)`,
		`CREATE INDEX IF NOT EXISTS idx_events_shop_start ON events (shop_id, start_date)`,
		`CREATE TABLE IF NOT EXISTS geocache (
			key           TEXT PRIMARY KEY,
			latitude      DOUBLE PRECISION NOT NULL,
			longitude     DOUBLE PRECISION NOT NULL,
			display_name  TEXT NOT NULL DEFAULT '',
			last_accessed TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_geocache_last_accessed ON geocache (last_accessed)`,
		`CREATE TABLE IF NOT EXISTS place_queue (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL DEFAULT '',
			type        TEXT NOT NULL DEFAULT '',
			latitude    DOUBLE PRECISION NOT NULL,
			longitude   DOUBLE PRECISION NOT NULL,
			city        TEXT NOT NULL DEFAULT '',
			county      TEXT NOT NULL DEFAULT '',
			state       TEXT NOT NULL DEFAULT '',
			country     TEXT NOT NULL DEFAULT '',
			enqueued_at TIMESTAMPTZ NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	db.logger.Info("Database schema applied")
	return nil
}
