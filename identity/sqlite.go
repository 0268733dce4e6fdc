package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteProvider stores identities in a SQLite database.
type SQLiteProvider struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path and ensures the
// schema exists. ":memory:" gives a private in-memory database.
func OpenSQLite(path string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open identity database: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteProvider{db: db, now: time.Now}, nil
}

// Close closes the underlying database.
func (p *SQLiteProvider) Close() error {
	return p.db.Close()
}

func initSchema(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS identity (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL,
			email_key     TEXT NOT NULL UNIQUE,
			full_name     TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			roles         TEXT NOT NULL,
			created_at    INTEGER NOT NULL
		);`,
	); err != nil {
		return fmt.Errorf("failed to init 'identity' table schema: %w", err)
	}
	return nil
}

const selectIdentity = `
	SELECT id, email, full_name, password_hash, roles, created_at
	FROM identity
`

// GetIdentityByEmail implements [goSession.IdentityProvider].
func (p *SQLiteProvider) GetIdentityByEmail(ctx context.Context, email string) (goSession.IdentityRecord, error) {
	row := p.db.QueryRowContext(ctx, selectIdentity+`WHERE email_key = ?`, emailKey(email))
	return scanIdentity(row)
}

// GetIdentityByID implements [goSession.IdentityProvider].
func (p *SQLiteProvider) GetIdentityByID(ctx context.Context, id string) (goSession.IdentityRecord, error) {
	row := p.db.QueryRowContext(ctx, selectIdentity+`WHERE id = ?`, id)
	return scanIdentity(row)
}

// CreateIdentity implements [goSession.IdentityProvider].
func (p *SQLiteProvider) CreateIdentity(ctx context.Context, in goSession.CreateIdentityInput) (goSession.IdentityRecord, error) {
	rec := goSession.IdentityRecord{
		ID:           uuid.NewString(),
		Email:        strings.TrimSpace(in.Email),
		FullName:     in.FullName,
		PasswordHash: in.PasswordHash,
		Roles:        append([]string(nil), in.Roles...),
		CreatedAt:    p.now().UTC().Truncate(time.Second),
	}

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO identity (id, email, email_key, full_name, password_hash, roles, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
		rec.ID,
		rec.Email,
		emailKey(rec.Email),
		rec.FullName,
		rec.PasswordHash,
		strings.Join(rec.Roles, ","),
		rec.CreatedAt.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return goSession.IdentityRecord{}, goSession.ErrIdentityExists
		}
		return goSession.IdentityRecord{}, fmt.Errorf("couldn't insert into identity: %w", err)
	}

	return rec, nil
}

// SetRoles replaces the roles of id.
func (p *SQLiteProvider) SetRoles(ctx context.Context, id string, roles ...string) error {
	res, err := p.db.ExecContext(ctx, `UPDATE identity SET roles = ? WHERE id = ?`, strings.Join(roles, ","), id)
	if err != nil {
		return fmt.Errorf("couldn't update identity roles: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return goSession.ErrIdentityNotFound
	}
	return nil
}

func scanIdentity(row *sql.Row) (goSession.IdentityRecord, error) {
	var (
		rec     goSession.IdentityRecord
		roles   string
		created int64
	)
	err := row.Scan(&rec.ID, &rec.Email, &rec.FullName, &rec.PasswordHash, &roles, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return goSession.IdentityRecord{}, goSession.ErrIdentityNotFound
	}
	if err != nil {
		return goSession.IdentityRecord{}, fmt.Errorf("couldn't read identity: %w", err)
	}

	if roles != "" {
		rec.Roles = strings.Split(roles, ",")
	}
	rec.CreatedAt = time.Unix(created, 0).UTC()
	return rec, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
