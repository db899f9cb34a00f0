// Package storage persists licenses, request logs and parsed organization
// data in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gosom/yandex-maps-scraper/ymaps"
)

var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS licenses (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	key TEXT NOT NULL UNIQUE,
	owner_name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at TIMESTAMP NOT NULL,
	expires_at TIMESTAMP NOT NULL,
	requests_per_day INTEGER NOT NULL DEFAULT 100,
	total_requests INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS request_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	license_id INTEGER NOT NULL REFERENCES licenses(id),
	query TEXT NOT NULL DEFAULT '',
	results_count INTEGER NOT NULL DEFAULT 0,
	requested_at TIMESTAMP NOT NULL,
	ip_address TEXT NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_request_logs_license
	ON request_logs(license_id, requested_at);

CREATE TABLE IF NOT EXISTS parsed_data (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id INTEGER NOT NULL REFERENCES request_logs(id),
	organization_id TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL DEFAULT '',
	categories TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	phones TEXT NOT NULL DEFAULT '',
	website TEXT NOT NULL DEFAULT '',
	rating TEXT NOT NULL DEFAULT '',
	reviews_count INTEGER NOT NULL DEFAULT 0,
	schedule TEXT NOT NULL DEFAULT '',
	latitude TEXT NOT NULL DEFAULT '',
	longitude TEXT NOT NULL DEFAULT '',
	attributes TEXT NOT NULL DEFAULT '{}',
	social_networks TEXT NOT NULL DEFAULT '{}',
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_parsed_data_request
	ON parsed_data(request_id);
`

type License struct {
	ID             int64     `json:"id"`
	Key            string    `json:"key"`
	OwnerName      string    `json:"owner_name"`
	Email          string    `json:"email"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	RequestsPerDay int       `json:"requests_per_day"`
	TotalRequests  int       `json:"total_requests"`
}

type RequestLog struct {
	ID           int64     `json:"id"`
	LicenseID    int64     `json:"license_id"`
	Query        string    `json:"query"`
	ResultsCount int       `json:"results_count"`
	RequestedAt  time.Time `json:"requested_at"`
	IPAddress    string    `json:"ip_address"`
	UserAgent    string    `json:"user_agent"`
}

type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// modernc sqlite serializes writes anyway; a single connection avoids
	// SQLITE_BUSY under concurrent handlers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()

		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateLicense(ctx context.Context, l *License) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO licenses (key, owner_name, email, is_active, created_at, expires_at, requests_per_day, total_requests)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
		l.Key, l.OwnerName, l.Email, l.IsActive, l.CreatedAt, l.ExpiresAt, l.RequestsPerDay,
	)
	if err != nil {
		return err
	}

	l.ID, err = res.LastInsertId()

	return err
}

func (s *Store) GetLicenseByKey(ctx context.Context, key string) (*License, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, key, owner_name, email, is_active, created_at, expires_at, requests_per_day, total_requests
		 FROM licenses WHERE key = ?`, key)

	var l License

	err := row.Scan(&l.ID, &l.Key, &l.OwnerName, &l.Email, &l.IsActive,
		&l.CreatedAt, &l.ExpiresAt, &l.RequestsPerDay, &l.TotalRequests)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	return &l, nil
}

func (s *Store) ListLicenses(ctx context.Context) ([]License, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, key, owner_name, email, is_active, created_at, expires_at, requests_per_day, total_requests
		 FROM licenses ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var licenses []License

	for rows.Next() {
		var l License

		if err := rows.Scan(&l.ID, &l.Key, &l.OwnerName, &l.Email, &l.IsActive,
			&l.CreatedAt, &l.ExpiresAt, &l.RequestsPerDay, &l.TotalRequests); err != nil {
			return nil, err
		}

		licenses = append(licenses, l)
	}

	return licenses, rows.Err()
}

func (s *Store) IncrTotalRequests(ctx context.Context, licenseID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE licenses SET total_requests = total_requests + 1 WHERE id = ?`, licenseID)

	return err
}

// CountRequestsSince counts request log entries of one license at or after
// the given instant; callers pass the start of the current UTC day to get
// today's usage.
func (s *Store) CountRequestsSince(ctx context.Context, licenseID int64, since time.Time) (int, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM request_logs WHERE license_id = ? AND requested_at >= ?`,
		licenseID, since)

	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}

	return n, nil
}

func (s *Store) CreateRequestLog(ctx context.Context, rl *RequestLog) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO request_logs (license_id, query, results_count, requested_at, ip_address, user_agent)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rl.LicenseID, rl.Query, rl.ResultsCount, rl.RequestedAt, rl.IPAddress, rl.UserAgent,
	)
	if err != nil {
		return err
	}

	rl.ID, err = res.LastInsertId()

	return err
}

func (s *Store) SetRequestResults(ctx context.Context, requestID int64, count int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE request_logs SET results_count = ? WHERE id = ?`, count, requestID)

	return err
}

// SaveEntries stores the organizations one search pass produced under its
// request id. Attributes and social networks are serialized as opaque JSON.
func (s *Store) SaveEntries(ctx context.Context, requestID int64, entries []*ymaps.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO parsed_data (request_id, organization_id, name, categories, address, phones,
			website, rating, reviews_count, schedule, latitude, longitude, attributes, social_networks, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()

	for _, e := range entries {
		attrs, err := json.Marshal(e.Attributes)
		if err != nil {
			attrs = []byte("{}")
		}

		social, err := json.Marshal(e.SocialNetworks)
		if err != nil {
			social = []byte("{}")
		}

		if _, err := stmt.ExecContext(ctx,
			requestID, e.ID, e.Name, e.Categories, e.Address, e.Phones,
			e.WebSite, e.Rating, e.ReviewsCount, e.Schedule, e.Latitude, e.Longitude,
			string(attrs), string(social), now,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// EntriesByRequest loads the stored organizations of one request in
// insertion order. ErrNotFound when the request produced no rows.
func (s *Store) EntriesByRequest(ctx context.Context, requestID int64) ([]*ymaps.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT organization_id, name, categories, address, phones, website, rating,
			reviews_count, schedule, latitude, longitude, attributes, social_networks
		 FROM parsed_data WHERE request_id = ? ORDER BY id`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*ymaps.Entry

	for rows.Next() {
		e := ymaps.NewEntry()

		var attrs, social string

		if err := rows.Scan(&e.ID, &e.Name, &e.Categories, &e.Address, &e.Phones,
			&e.WebSite, &e.Rating, &e.ReviewsCount, &e.Schedule,
			&e.Latitude, &e.Longitude, &attrs, &social); err != nil {
			return nil, err
		}

		_ = json.Unmarshal([]byte(attrs), &e.Attributes)
		_ = json.Unmarshal([]byte(social), &e.SocialNetworks)

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return nil, ErrNotFound
	}

	return entries, nil
}
