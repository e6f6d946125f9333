package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/barscout/barscout-cli/internal/model"
)

// ErrBarNotFound is returned when an operation targets an unknown bar id.
var ErrBarNotFound = eris.New("bar not found")

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
// The parent directory is created when missing.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dsn); dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "sqlite: create dir %s", dir)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS bars (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	city          TEXT NOT NULL,
	description   TEXT,
	website       TEXT,
	menu_url      TEXT,
	raw_data      TEXT,
	menu_status   TEXT NOT NULL DEFAULT 'unattempted',
	discovered_at TEXT NOT NULL,
	last_updated  TEXT NOT NULL,
	search_query  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_bars_city ON bars(city);
CREATE INDEX IF NOT EXISTS idx_bars_name ON bars(name);

CREATE TABLE IF NOT EXISTS searches (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	city     TEXT NOT NULL,
	query    TEXT NOT NULL,
	results  INTEGER NOT NULL,
	ran_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_searches_city ON searches(city);
`

const barColumns = `id, name, city, description, website, menu_url, menu_status, discovered_at, last_updated, search_query`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertBar inserts a bar or, when its id already exists, bumps last_updated
// and fills description and website if they were empty. It reports whether a
// new row was created.
func (s *SQLiteStore) UpsertBar(ctx context.Context, city string, bar model.BarInput, searchQuery string) (bool, error) {
	if strings.TrimSpace(bar.Name) == "" {
		return false, eris.New("sqlite: upsert bar: name is required")
	}
	if strings.TrimSpace(city) == "" {
		return false, eris.New("sqlite: upsert bar: city is required")
	}

	id := model.BarID(bar.Name, city)
	now := model.Timestamp(s.now())

	rawJSON, err := json.Marshal(bar)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: marshal bar")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: begin upsert")
	}
	defer func() { _ = tx.Rollback() }()

	var existing string
	err = tx.QueryRowContext(ctx, `SELECT id FROM bars WHERE id = ?`, id).Scan(&existing)
	switch {
	case err == nil:
		_, err = tx.ExecContext(ctx,
			`UPDATE bars
			SET last_updated = ?,
				description = COALESCE(NULLIF(description, ''), ?),
				website = COALESCE(NULLIF(website, ''), ?)
			WHERE id = ?`,
			now, bar.Description, bar.Website, id,
		)
		if err != nil {
			return false, eris.Wrapf(err, "sqlite: update bar %s", id)
		}
		return false, eris.Wrap(tx.Commit(), "sqlite: commit upsert")
	case errors.Is(err, sql.ErrNoRows):
	default:
		return false, eris.Wrapf(err, "sqlite: lookup bar %s", id)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO bars (id, name, city, description, website, menu_url, raw_data, menu_status, discovered_at, last_updated, search_query)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, strings.TrimSpace(bar.Name), city, bar.Description, bar.Website, bar.CocktailMenuURL,
		string(rawJSON), string(model.MenuStatusUnattempted), now, now, searchQuery,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: insert bar %s", id)
	}
	if err := tx.Commit(); err != nil {
		return false, eris.Wrap(err, "sqlite: commit upsert")
	}
	return true, nil
}

func (s *SQLiteStore) GetBar(ctx context.Context, id string) (*model.Bar, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+barColumns+`, raw_data FROM bars WHERE id = ?`, id,
	)
	b, err := scanBar(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrBarNotFound, "sqlite: get bar %s", id)
	}
	return b, err
}

func (s *SQLiteStore) GetBars(ctx context.Context, filter BarFilter) ([]model.Bar, error) {
	query := `SELECT ` + barColumns
	if filter.IncludeRaw {
		query += `, raw_data`
	}
	query += ` FROM bars WHERE 1=1`
	var args []any

	if filter.City != "" {
		query += ` AND city = ?`
		args = append(args, filter.City)
	}
	query += ` ORDER BY discovered_at DESC, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	return s.queryBars(ctx, query, filter.IncludeRaw, args...)
}

func (s *SQLiteStore) GetBarNames(ctx context.Context, city string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM bars WHERE city = ? ORDER BY discovered_at DESC, rowid DESC`, city)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list bar names")
	}
	defer rows.Close() //nolint:errcheck

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan bar name")
		}
		names = append(names, name)
	}
	return names, eris.Wrap(rows.Err(), "sqlite: list bar names iterate")
}

// BarsNeedingMenus returns bars with a website whose raw_data carries no
// menu_data.menu_urls. With force, bars whose last attempt found nothing or
// failed extraction are included as well.
func (s *SQLiteStore) BarsNeedingMenus(ctx context.Context, city string, force bool) ([]model.Bar, error) {
	query := `SELECT ` + barColumns + `, raw_data FROM bars
		WHERE website IS NOT NULL AND TRIM(website) != ''
		AND (raw_data IS NULL OR json_extract(raw_data, '$.menu_data.menu_urls') IS NULL`
	var args []any
	if force {
		query += ` OR menu_status IN (?, ?)`
		args = append(args, string(model.MenuStatusAttemptedEmpty), string(model.MenuStatusExtractionFailed))
	}
	query += `)`
	if city != "" {
		query += ` AND city = ?`
		args = append(args, city)
	}
	query += ` ORDER BY discovered_at DESC, id`

	return s.queryBars(ctx, query, true, args...)
}

// UpdateMenuInfo stores menuData under raw_data.menu_data, keeping every
// other provenance key, and points menu_url at the first menu URL.
func (s *SQLiteStore) UpdateMenuInfo(ctx context.Context, id string, menuURLs []string, menuData any, status model.MenuStatus) error {
	var primary *string
	if len(menuURLs) > 0 {
		primary = &menuURLs[0]
	}

	dataJSON, err := json.Marshal(menuData)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal menu data")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE bars
		SET menu_url = ?,
			menu_status = ?,
			last_updated = ?,
			raw_data = json_set(COALESCE(raw_data, '{}'), '$.menu_data', json(?))
		WHERE id = ?`,
		primary, string(status), model.Timestamp(s.now()), string(dataJSON), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update menu info %s", id)
	}
	return checkRowsAffected(res, id)
}

func (s *SQLiteStore) GetStats(ctx context.Context) (*model.BarStats, error) {
	stats := &model.BarStats{BarsByMenuStatus: make(map[model.MenuStatus]int)}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bars`).Scan(&stats.TotalBars); err != nil {
		return nil, eris.Wrap(err, "sqlite: count bars")
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bars WHERE raw_data IS NOT NULL AND json_extract(raw_data, '$.menu_data.menu_urls') IS NOT NULL`,
	).Scan(&stats.BarsWithMenus); err != nil {
		return nil, eris.Wrap(err, "sqlite: count bars with menus")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT city, COUNT(*) AS n FROM bars GROUP BY city ORDER BY n DESC, city`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: bars by city")
	}
	for rows.Next() {
		var cc model.CityCount
		if err := rows.Scan(&cc.City, &cc.Count); err != nil {
			rows.Close() //nolint:errcheck
			return nil, eris.Wrap(err, "sqlite: scan city count")
		}
		stats.BarsByCity = append(stats.BarsByCity, cc)
	}
	rows.Close() //nolint:errcheck

	rows, err = s.db.QueryContext(ctx, `SELECT menu_status, COUNT(*) FROM bars GROUP BY menu_status`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: bars by menu status")
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close() //nolint:errcheck
			return nil, eris.Wrap(err, "sqlite: scan status count")
		}
		stats.BarsByMenuStatus[model.MenuStatus(status)] = n
	}
	rows.Close() //nolint:errcheck

	rows, err = s.db.QueryContext(ctx, `SELECT city, name, discovered_at FROM bars ORDER BY discovered_at DESC, id LIMIT 5`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: recent discoveries")
	}
	defer rows.Close() //nolint:errcheck
	for rows.Next() {
		var rd model.RecentDiscovery
		if err := rows.Scan(&rd.City, &rd.Name, &rd.DiscoveredAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan recent discovery")
		}
		stats.RecentDiscoveries = append(stats.RecentDiscoveries, rd)
	}
	return stats, eris.Wrap(rows.Err(), "sqlite: recent discoveries iterate")
}

// Reset deletes the bars and the search history of city, or of every city
// when city is empty. It reports the number of bars deleted.
func (s *SQLiteStore) Reset(ctx context.Context, city string) (int64, error) {
	where, args := "", []any{}
	if city != "" {
		where, args = ` WHERE city = ?`, []any{city}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin reset")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM bars`+where, args...)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: reset bars")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: reset rows affected")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM searches`+where, args...); err != nil {
		return 0, eris.Wrap(err, "sqlite: reset searches")
	}
	return n, eris.Wrap(tx.Commit(), "sqlite: commit reset")
}

// RecordSearch logs one research search for city.
func (s *SQLiteStore) RecordSearch(ctx context.Context, city, query string, results int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO searches (city, query, results, ran_at) VALUES (?, ?, ?, ?)`,
		city, query, results, model.Timestamp(s.now()),
	)
	return eris.Wrapf(err, "sqlite: record search for %s", city)
}

// CountSearches returns the number of research searches recorded for city.
func (s *SQLiteStore) CountSearches(ctx context.Context, city string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM searches WHERE city = ?`, city).Scan(&n)
	return n, eris.Wrapf(err, "sqlite: count searches for %s", city)
}

func (s *SQLiteStore) queryBars(ctx context.Context, query string, withRaw bool, args ...any) ([]model.Bar, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list bars")
	}
	defer rows.Close() //nolint:errcheck

	var bars []model.Bar
	for rows.Next() {
		b, err := scanBar(rows, withRaw)
		if err != nil {
			return nil, err
		}
		bars = append(bars, *b)
	}
	return bars, eris.Wrap(rows.Err(), "sqlite: list bars iterate")
}

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrBarNotFound, "sqlite: %s", id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanBar(row scannable, withRaw bool) (*model.Bar, error) {
	var (
		b                             model.Bar
		description, website, menuURL sql.NullString
		raw                           sql.NullString
		status                        string
	)
	dest := []any{&b.ID, &b.Name, &b.City, &description, &website, &menuURL, &status, &b.DiscoveredAt, &b.LastUpdated, &b.SearchQuery}
	if withRaw {
		dest = append(dest, &raw)
	}

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "sqlite: scan bar")
	}

	b.Description = nullToPtr(description)
	b.Website = nullToPtr(website)
	b.MenuURL = nullToPtr(menuURL)
	b.MenuStatus = model.MenuStatus(status)
	if raw.Valid {
		b.RawData = json.RawMessage(raw.String)
	}
	return &b, nil
}

func nullToPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
