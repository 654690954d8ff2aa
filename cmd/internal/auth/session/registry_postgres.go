package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRegistry stores refresh records in <schema>.refresh_tokens.
type PostgresRegistry struct {
	pool  *pgxpool.Pool
	table string
}

var schemaRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// NewPostgresRegistry uses schema, or "chatpad" when blank. The pool is not owned.
func NewPostgresRegistry(pool *pgxpool.Pool, schema string) (*PostgresRegistry, error) {
	if pool == nil {
		return nil, errors.New("session: nil pool")
	}
	schema = strings.TrimSpace(schema)
	if schema == "" {
		schema = "chatpad"
	}
	if !schemaRe.MatchString(schema) {
		return nil, fmt.Errorf("session: invalid schema identifier %q", schema)
	}
	return &PostgresRegistry{
		pool:  pool,
		table: pgx.Identifier{schema, "refresh_tokens"}.Sanitize(),
	}, nil
}

func (r *PostgresRegistry) Create(ctx context.Context, rec Record) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO `+r.table+` (id, user_id, revoked, created_at, expires_at)
		 VALUES ($1, $2, false, $3, $4)`,
		rec.TokenID, rec.UserID, rec.CreatedAt, rec.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("session.Create: %w", err)
	}
	return nil
}

func (r *PostgresRegistry) FindActive(ctx context.Context, tokenID string) (Record, error) {
	tokenID = strings.TrimSpace(tokenID)
	if tokenID == "" || len(tokenID) > 128 {
		return Record{}, ErrRecordNotFound
	}

	var rec Record
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, revoked, created_at, expires_at
		   FROM `+r.table+`
		  WHERE id = $1 AND revoked = false`,
		tokenID,
	).Scan(&rec.TokenID, &rec.UserID, &rec.Revoked, &rec.CreatedAt, &rec.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("session.FindActive: %w", err)
	}
	return rec, nil
}

func (r *PostgresRegistry) Revoke(ctx context.Context, tokenID string, now time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE `+r.table+`
		    SET revoked = true, revoked_at = COALESCE(revoked_at, $2)
		  WHERE id = $1`,
		tokenID, now,
	)
	if err != nil {
		return fmt.Errorf("session.Revoke: %w", err)
	}
	return nil
}
