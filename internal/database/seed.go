// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package database

import (
	"context"

	"github.com/servonix/servonix/internal/logging"
)

// seedDemoData loads a small set of districts, routes, and buses so a fresh
// install has something to file complaints against. Runs only when
// database.seed_demo is set and the tables are empty.
func (db *DB) seedDemoData(ctx context.Context) error {
	var n int64
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM districts`).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		logging.Debug().Msg("demo seed skipped, districts already present")
		return nil
	}

	seed := []string{
		`INSERT INTO districts (name, code) VALUES
			('North', 'N'), ('South', 'S'), ('Central', 'C');`,
		`INSERT INTO routes (district_id, number, name, origin, terminus) VALUES
			(1, '12',  'North Circular',  'Terminal North', 'City Square'),
			(1, '12A', 'North Express',   'Terminal North', 'Harbor Gate'),
			(2, '7',   'South Loop',      'South Depot',    'City Square'),
			(3, '42',  'Central Crosstown', 'West End',     'East End');`,
		`INSERT INTO buses (route_id, registration, capacity) VALUES
			(1, 'BUS-1201', 44),
			(1, 'BUS-1202', 44),
			(2, 'BUS-1210', 52),
			(3, 'BUS-0701', 44),
			(4, 'BUS-4201', 60);`,
	}

	for _, q := range seed {
		if _, err := db.conn.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	logging.Info().Msg("demo transit data seeded")
	return nil
}
