package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// migrations are applied in order; each statement is idempotent.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS reservations (
		reservation_id   BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		first_name       VARCHAR(100) NOT NULL,
		last_name        VARCHAR(100) NOT NULL,
		mobile_number    VARCHAR(32)  NOT NULL,
		reservation_date DATE         NOT NULL,
		reservation_time TIME         NOT NULL,
		people           INT UNSIGNED NOT NULL,
		status           VARCHAR(16)  NOT NULL DEFAULT 'booked',
		created_at       TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at       TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (reservation_id),
		KEY idx_reservations_date_time (reservation_date, reservation_time),
		CONSTRAINT chk_reservations_status CHECK (status IN ('booked', 'seated', 'finished', 'cancelled')),
		CONSTRAINT chk_reservations_people CHECK (people >= 1)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS restaurant_tables (
		table_id       BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		table_name     VARCHAR(100) NOT NULL,
		capacity       INT UNSIGNED NOT NULL,
		reservation_id BIGINT UNSIGNED NULL,
		PRIMARY KEY (table_id),
		UNIQUE KEY uq_restaurant_tables_reservation (reservation_id),
		CONSTRAINT fk_restaurant_tables_reservation FOREIGN KEY (reservation_id)
			REFERENCES reservations (reservation_id) ON DELETE SET NULL,
		CONSTRAINT chk_restaurant_tables_capacity CHECK (capacity >= 1)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}

// seedTables is the starter floor plan: two bar seats and two six-tops.
var seedTables = []struct {
	name     string
	capacity int
}{
	{"Bar #1", 1},
	{"Bar #2", 1},
	{"#1", 6},
	{"#2", 6},
}

// SeedTables inserts the default tables when none exist.
func SeedTables(ctx context.Context, db *sqlx.DB) (int, error) {
	var n int
	if err := db.GetContext(ctx, &n, `SELECT COUNT(*) FROM restaurant_tables`); err != nil {
		return 0, fmt.Errorf("count tables: %w", err)
	}
	if n > 0 {
		return 0, nil
	}
	for _, t := range seedTables {
		if _, err := db.ExecContext(ctx, `INSERT INTO restaurant_tables (table_name, capacity) VALUES (?, ?)`, t.name, t.capacity); err != nil {
			return 0, fmt.Errorf("seed table %s: %w", t.name, err)
		}
	}
	return len(seedTables), nil
}
