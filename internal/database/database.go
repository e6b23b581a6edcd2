package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/satyamkes/JanSahyog/internal/models"
)

var (
	// ErrNotFound is returned when no scheme has the requested id.
	ErrNotFound = errors.New("scheme not found")
	// ErrDuplicateName is returned when a scheme with the same name exists.
	ErrDuplicateName = errors.New("a scheme with this name already exists")
)

// timestamps are stored in UTC with fixed width so they sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// DB wraps the database connection and provides methods for data access.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// NewDB creates a new database connection and initializes the schema.
func NewDB(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=1&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := newDB(conn)

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

func newDB(conn *sql.DB) *DB {
	return &DB{conn: conn, now: time.Now}
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// initSchema creates the necessary tables if they don't exist.
func (db *DB) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS schemes (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL,
			category TEXT NOT NULL,
			benefits TEXT NOT NULL,
			duration TEXT NOT NULL,
			official_website TEXT NOT NULL DEFAULT '',
			min_age INTEGER NOT NULL,
			max_age INTEGER NOT NULL,
			min_income REAL NOT NULL,
			max_income REAL,
			categories TEXT NOT NULL,
			gender TEXT NOT NULL,
			states TEXT NOT NULL,
			requirements TEXT NOT NULL,
			application_deadline TEXT,
			is_active INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_schemes_active_created ON schemes(is_active, created_at)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	return nil
}

const schemeColumns = `id, name, description, category, benefits, duration, official_website,
	min_age, max_age, min_income, max_income, categories, gender, states,
	requirements, application_deadline, is_active, created_at, updated_at`

// CreateScheme inserts a new scheme, assigning its id and timestamps.
func (db *DB) CreateScheme(ctx context.Context, scheme models.Scheme) (models.Scheme, error) {
	now := db.now().UTC()
	scheme.ID = uuid.New().String()
	scheme.CreatedAt = now
	scheme.UpdatedAt = now

	var deadline sql.NullString
	if scheme.ApplicationDeadline != nil {
		deadline = sql.NullString{String: scheme.ApplicationDeadline.UTC().Format(timeLayout), Valid: true}
	}

	c := scheme.EligibilityCriteria
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO schemes (`+schemeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		scheme.ID,
		scheme.Name,
		scheme.Description,
		scheme.Category,
		scheme.Benefits,
		scheme.Duration,
		scheme.OfficialWebsite,
		c.MinAge,
		c.MaxAge,
		c.MinIncome,
		c.MaxIncome,
		serializeList(c.Categories),
		c.Gender,
		serializeList(c.States),
		serializeList(scheme.Requirements),
		deadline,
		scheme.IsActive,
		now.Format(timeLayout),
		now.Format(timeLayout),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return models.Scheme{}, ErrDuplicateName
		}
		return models.Scheme{}, fmt.Errorf("failed to insert scheme: %w", err)
	}

	return scheme, nil
}

// GetScheme returns the scheme with the given id, active or not.
func (db *DB) GetScheme(ctx context.Context, id string) (models.Scheme, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+schemeColumns+` FROM schemes WHERE id = ?`, id)

	scheme, err := scanScheme(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Scheme{}, ErrNotFound
	}
	if err != nil {
		return models.Scheme{}, err
	}
	return scheme, nil
}

// ListActiveSchemes returns all active schemes, newest first.
func (db *DB) ListActiveSchemes(ctx context.Context) ([]models.Scheme, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+schemeColumns+` FROM schemes WHERE is_active = 1 ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query active schemes: %w", err)
	}
	defer rows.Close()

	schemes := []models.Scheme{}
	for rows.Next() {
		scheme, err := scanScheme(rows)
		if err != nil {
			return nil, err
		}
		schemes = append(schemes, scheme)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schemes: %w", err)
	}

	return schemes, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScheme(row rowScanner) (models.Scheme, error) {
	var (
		s                          models.Scheme
		maxIncome                  sql.NullFloat64
		categories, states, reqs   string
		deadline                   sql.NullString
		createdAtStr, updatedAtStr string
	)

	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Description,
		&s.Category,
		&s.Benefits,
		&s.Duration,
		&s.OfficialWebsite,
		&s.EligibilityCriteria.MinAge,
		&s.EligibilityCriteria.MaxAge,
		&s.EligibilityCriteria.MinIncome,
		&maxIncome,
		&categories,
		&s.EligibilityCriteria.Gender,
		&states,
		&reqs,
		&deadline,
		&s.IsActive,
		&createdAtStr,
		&updatedAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Scheme{}, err
	}
	if err != nil {
		return models.Scheme{}, fmt.Errorf("failed to scan scheme: %w", err)
	}

	if maxIncome.Valid {
		v := maxIncome.Float64
		s.EligibilityCriteria.MaxIncome = &v
	}
	s.EligibilityCriteria.Categories = deserializeList(categories)
	s.EligibilityCriteria.States = deserializeList(states)
	s.Requirements = deserializeList(reqs)

	if deadline.Valid {
		t, err := time.Parse(timeLayout, deadline.String)
		if err != nil {
			return models.Scheme{}, fmt.Errorf("failed to parse application_deadline: %w", err)
		}
		s.ApplicationDeadline = &t
	}

	if s.CreatedAt, err = time.Parse(timeLayout, createdAtStr); err != nil {
		return models.Scheme{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if s.UpdatedAt, err = time.Parse(timeLayout, updatedAtStr); err != nil {
		return models.Scheme{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return s, nil
}

// serializeList converts a string slice to a JSON array.
func serializeList(list []string) string {
	if len(list) == 0 {
		return "[]"
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// deserializeList converts a stored JSON array back to a slice.
func deserializeList(serialized string) []string {
	result := []string{}
	if serialized == "" || serialized == "[]" {
		return result
	}
	if err := json.Unmarshal([]byte(serialized), &result); err != nil {
		return []string{}
	}
	return result
}
