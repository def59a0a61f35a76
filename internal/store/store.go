package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"pagescribe/internal/automation"
	"pagescribe/internal/creds"
)

type Store struct {
	db *sql.DB
}

func Open(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("missing database dsn")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Store{db: db}, nil
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetAutomations implements automation.Repository.
func (s *Store) GetAutomations(ctx context.Context, ownerID string) ([]automation.Descriptor, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, owner_id, title, sources, extract_fields, destination_id, destination_name, active, updated_at
		FROM automations WHERE owner_id = $1 ORDER BY updated_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var autos []automation.Descriptor
	for rows.Next() {
		var a automation.Descriptor
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.Title, &a.Sources, &a.ExtractFields, &a.Destination.ID, &a.Destination.Name, &a.Active, &a.UpdatedAt); err != nil {
			return nil, err
		}
		autos = append(autos, a)
	}
	return autos, rows.Err()
}

func (s *Store) GetAutomation(ctx context.Context, id string) (automation.Descriptor, error) {
	var a automation.Descriptor
	row := s.db.QueryRowContext(ctx, `SELECT id, owner_id, title, sources, extract_fields, destination_id, destination_name, active, updated_at
		FROM automations WHERE id = $1`, id)
	err := row.Scan(&a.ID, &a.OwnerID, &a.Title, &a.Sources, &a.ExtractFields, &a.Destination.ID, &a.Destination.Name, &a.Active, &a.UpdatedAt)
	return a, err
}

func (s *Store) UpsertAutomation(ctx context.Context, a automation.Descriptor) (string, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO automations (id, owner_id, title, sources, extract_fields, destination_id, destination_name, active, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, sources = EXCLUDED.sources, extract_fields = EXCLUDED.extract_fields,
		destination_id = EXCLUDED.destination_id, destination_name = EXCLUDED.destination_name, active = EXCLUDED.active, updated_at = EXCLUDED.updated_at`,
		a.ID, a.OwnerID, a.Title, a.Sources, a.ExtractFields, a.Destination.ID, a.Destination.Name, a.Active, a.UpdatedAt)
	if err != nil {
		return "", err
	}
	return a.ID, nil
}

// ReplaceAutomations swaps a user's full automation set in one
// transaction, the shape pushed by the extension's sync call.
func (s *Store) ReplaceAutomations(ctx context.Context, ownerID string, autos []automation.Descriptor) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM automations WHERE owner_id = $1`, ownerID); err != nil {
		return err
	}
	for _, a := range autos {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO automations (id, owner_id, title, sources, extract_fields, destination_id, destination_name, active, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			a.ID, ownerID, a.Title, a.Sources, a.ExtractFields, a.Destination.ID, a.Destination.Name, a.Active, a.UpdatedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SaveToken implements creds.TokenStore.
func (s *Store) SaveToken(ctx context.Context, userID string, token creds.Token) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO oauth_tokens (user_id, access_token, refresh_token, expiry, updated_at)
		VALUES ($1,$2,$3,$4,now())
		ON CONFLICT (user_id) DO UPDATE SET access_token = EXCLUDED.access_token, refresh_token = EXCLUDED.refresh_token,
		expiry = EXCLUDED.expiry, updated_at = now()`,
		userID, token.AccessToken, token.RefreshToken, token.Expiry)
	return err
}

// GetToken implements creds.TokenStore. A user with no row is
// unauthenticated rather than an internal failure.
func (s *Store) GetToken(ctx context.Context, userID string) (creds.Token, error) {
	var token creds.Token
	var expiry sql.NullTime
	row := s.db.QueryRowContext(ctx, `SELECT access_token, refresh_token, expiry FROM oauth_tokens WHERE user_id = $1`, userID)
	if err := row.Scan(&token.AccessToken, &token.RefreshToken, &expiry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return creds.Token{}, creds.ErrUnauthenticated
		}
		return creds.Token{}, err
	}
	if expiry.Valid {
		token.Expiry = expiry.Time
	}
	return token, nil
}

// Capture is one audit row: what a pipeline run did with a piece of
// content.
type Capture struct {
	ID           string
	OwnerID      string
	AutomationID string
	URL          string
	Relevant     bool
	Stored       bool
	StorageKind  string
	StorageRef   string
	Message      string
	CreatedAt    time.Time
}

func (s *Store) RecordCapture(ctx context.Context, c Capture) (string, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO capture_log (id, owner_id, automation_id, url, relevant, stored, storage_kind, storage_ref, message)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		c.ID, c.OwnerID, c.AutomationID, c.URL, c.Relevant, c.Stored, c.StorageKind, c.StorageRef, c.Message)
	if err != nil {
		return "", err
	}
	return c.ID, nil
}

func (s *Store) ListCaptures(ctx context.Context, ownerID string, limit int) ([]Capture, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, owner_id, automation_id, url, relevant, stored, storage_kind, storage_ref, message, created_at
		FROM capture_log WHERE owner_id = $1 ORDER BY created_at DESC LIMIT $2`, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var captures []Capture
	for rows.Next() {
		var c Capture
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.AutomationID, &c.URL, &c.Relevant, &c.Stored, &c.StorageKind, &c.StorageRef, &c.Message, &c.CreatedAt); err != nil {
			return nil, err
		}
		captures = append(captures, c)
	}
	return captures, rows.Err()
}

func (s *Store) CaptureCount(ctx context.Context) (int, error) {
	row := s.db.QueryRowContext(ctx, `SELECT count(*) FROM capture_log`)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) HealthSummary(ctx context.Context) (map[string]string, error) {
	if err := s.db.PingContext(ctx); err != nil {
		return nil, err
	}
	return map[string]string{"database": "ok"}, nil
}
