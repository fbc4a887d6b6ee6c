// Package storage provides SQLite-backed persistence for routes, price
// histories, and personal alert subscriptions.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"farewatch/internal/models"
)

// schemaVersion is stored in PRAGMA user_version for forward migrations.
const schemaVersion = 1

// Storage wraps a SQLite database for all persistence operations.
type Storage struct {
	db *sql.DB
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/farewatch/data.db.
func New(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "farewatch", "data.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	s := &Storage{db: db}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		fmt.Sprintf(`PRAGMA user_version=%d`, schemaVersion),
		`CREATE TABLE IF NOT EXISTS routes (
			id          TEXT PRIMARY KEY,
			origin      TEXT NOT NULL,
			destination TEXT NOT NULL,
			name        TEXT NOT NULL,
			created_at  INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS observations (
			id          TEXT PRIMARY KEY,
			route_id    TEXT NOT NULL REFERENCES routes(id) ON DELETE CASCADE,
			price       REAL NOT NULL,
			observed_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_observations_route ON observations(route_id, observed_at)`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			route_id   TEXT NOT NULL,
			max_price  REAL NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_user ON subscriptions(user_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// AddRoute inserts a route. Inserting an existing (origin, destination) pair
// fails on the primary key.
func (s *Storage) AddRoute(route *models.Route) error {
	if err := route.Validate(); err != nil {
		return fmt.Errorf("invalid route: %w", err)
	}
	_, err := s.db.Exec(`
		INSERT INTO routes (id, origin, destination, name, created_at)
		VALUES (?,?,?,?,?)`,
		route.ID(), route.Origin, route.Destination, route.Name,
		route.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert route: %w", err)
	}
	return nil
}

// RemoveRoute deletes a route; cascading deletes drop its observations.
func (s *Storage) RemoveRoute(routeID string) error {
	res, err := s.db.Exec(`DELETE FROM routes WHERE id = ?`, routeID)
	if err != nil {
		return fmt.Errorf("failed to delete route: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("route not found: %s", routeID)
	}
	return nil
}

// GetAllRoutes returns every route ordered by creation time, oldest first.
// This ordering is what the cadence controller scans in.
func (s *Storage) GetAllRoutes() ([]models.Route, error) {
	rows, err := s.db.Query(`SELECT origin, destination, name, created_at FROM routes ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query routes: %w", err)
	}
	defer rows.Close()

	routes := []models.Route{}
	for rows.Next() {
		var r models.Route
		var createdAtNano int64
		if err := rows.Scan(&r.Origin, &r.Destination, &r.Name, &createdAtNano); err != nil {
			return nil, fmt.Errorf("failed to scan route: %w", err)
		}
		r.CreatedAt = time.Unix(0, createdAtNano)
		routes = append(routes, r)
	}
	return routes, rows.Err()
}

// AppendObservations persists a batch of observations in a single transaction.
// The monitoring cycle calls this exactly once per cycle with that cycle's
// deltas.
func (s *Storage) AppendObservations(batch []models.Observation) error {
	if len(batch) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.Prepare(`INSERT INTO observations (id, route_id, price, observed_at) VALUES (?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range batch {
		obs := &batch[i]
		if err := obs.Validate(); err != nil {
			return fmt.Errorf("invalid observation: %w", err)
		}
		if _, err := stmt.Exec(obs.ID, obs.RouteID, obs.Price, obs.ObservedAt.UnixNano()); err != nil {
			return fmt.Errorf("failed to insert observation: %w", err)
		}
	}
	return tx.Commit()
}

// LoadAllHistories returns every route's observation history keyed by route
// ID, insertion-ordered (oldest first).
func (s *Storage) LoadAllHistories() (map[string][]models.Observation, error) {
	rows, err := s.db.Query(`
		SELECT id, route_id, price, observed_at
		FROM observations ORDER BY route_id, observed_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	histories := make(map[string][]models.Observation)
	for rows.Next() {
		var obs models.Observation
		var observedAtNano int64
		if err := rows.Scan(&obs.ID, &obs.RouteID, &obs.Price, &observedAtNano); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		obs.ObservedAt = time.Unix(0, observedAtNano)
		histories[obs.RouteID] = append(histories[obs.RouteID], obs)
	}
	return histories, rows.Err()
}

// AddSubscription persists a personal alert subscription.
func (s *Storage) AddSubscription(sub *models.Subscription) error {
	if err := sub.Validate(); err != nil {
		return fmt.Errorf("invalid subscription: %w", err)
	}
	_, err := s.db.Exec(`
		INSERT INTO subscriptions (id, user_id, route_id, max_price, created_at)
		VALUES (?,?,?,?,?)`,
		sub.ID, sub.UserID, sub.RouteID, sub.MaxPrice, sub.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert subscription: %w", err)
	}
	return nil
}

// LoadAllSubscriptions returns every subscription keyed by user ID.
func (s *Storage) LoadAllSubscriptions() (map[string][]models.Subscription, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, route_id, max_price, created_at
		FROM subscriptions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	subs := make(map[string][]models.Subscription)
	for rows.Next() {
		var sub models.Subscription
		var createdAtNano int64
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.RouteID, &sub.MaxPrice, &createdAtNano); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		sub.CreatedAt = time.Unix(0, createdAtNano)
		subs[sub.UserID] = append(subs[sub.UserID], sub)
	}
	return subs, rows.Err()
}

// SchemaVersion reports the database's PRAGMA user_version.
func (s *Storage) SchemaVersion() (int, error) {
	var v int
	if err := s.db.QueryRow(`PRAGMA user_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}
