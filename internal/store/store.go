// Package store persists users and their voice experience records in
// PostgreSQL.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a unique constraint.
var ErrDuplicate = errors.New("duplicate")

const uniqueViolation = "23505"

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// User is a registered account.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash *string   `json:"-"`
	Name         string    `json:"name"`
	Phone        *string   `json:"phone"`
	Provider     string    `json:"provider"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewUser holds the fields needed to register a local account.
type NewUser struct {
	Email        string
	PasswordHash string
	Name         string
	Phone        *string
}

// Record is an uploaded original voice sample.
type Record struct {
	ID          int64     `json:"id"`
	OriginalURL string    `json:"original_url"`
	Note        *string   `json:"note"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store runs queries against a DBTX.
type Store struct {
	db DBTX
}

// New creates a Store.
func New(db DBTX) *Store {
	return &Store{db: db}
}

// CreateUser inserts a local account and returns its id.
func (s *Store) CreateUser(ctx context.Context, u NewUser) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, name, phone, provider)
		VALUES ($1, $2, $3, $4, 'local')
		RETURNING id`,
		u.Email, u.PasswordHash, u.Name, u.Phone,
	).Scan(&id)
	return id, mapErr(err)
}

// UserByEmail looks up an account by email.
func (s *Store) UserByEmail(ctx context.Context, email string) (*User, error) {
	return s.scanUser(s.db.QueryRow(ctx, `
		SELECT id, email, password_hash, name, phone, provider, created_at
		FROM users
		WHERE email = $1`, email))
}

// UserByID looks up an account by id.
func (s *Store) UserByID(ctx context.Context, id int64) (*User, error) {
	return s.scanUser(s.db.QueryRow(ctx, `
		SELECT id, email, password_hash, name, phone, provider, created_at
		FROM users
		WHERE id = $1`, id))
}

func (s *Store) scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Phone, &u.Provider, &u.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

// CreateRecord stores an original sample URL for a user.
func (s *Store) CreateRecord(ctx context.Context, userID int64, originalURL string, note *string) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO experience_records (user_id, original_url, note)
		VALUES ($1, $2, $3)
		RETURNING id`,
		userID, originalURL, note,
	).Scan(&id)
	return id, mapErr(err)
}

// RecordOwner returns the user id that owns a record.
func (s *Store) RecordOwner(ctx context.Context, recordID int64) (int64, error) {
	var userID int64
	err := s.db.QueryRow(ctx, `SELECT user_id FROM experience_records WHERE id = $1`, recordID).Scan(&userID)
	return userID, mapErr(err)
}

// ListRecords returns a user's records, newest first.
func (s *Store) ListRecords(ctx context.Context, userID int64) ([]Record, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, original_url, note, created_at
		FROM experience_records
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.OriginalURL, &r.Note, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// CreateClone stores a cloned-voice URL derived from a record.
func (s *Store) CreateClone(ctx context.Context, recordID int64, clonedURL, model string) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO experience_clones (record_id, cloned_url, model)
		VALUES ($1, $2, $3)
		RETURNING id`,
		recordID, clonedURL, model,
	).Scan(&id)
	return id, mapErr(err)
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}
