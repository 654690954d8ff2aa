package realtime

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a MessageStore over the messages table.
//
// The pool is owned by the caller, so Close is a no-op.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

type PostgresOption func(*PostgresStore) error

// WithSchema sets the schema (default "chatpad"). The name is validated and quoted in queries.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return errors.New("realtime: empty schema")
		}
		if !pgIdentRE.MatchString(schema) {
			return errors.New("realtime: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{pool: pool, schema: "chatpad"}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, errors.New("realtime: nil pool")
	}
	return st, nil
}

func (s *PostgresStore) Close() error { return nil }

func (s *PostgresStore) messages() string {
	return pgx.Identifier{s.schema, "messages"}.Sanitize()
}

const messageColumns = `id, user_id, contents, created_at, updated_at`

// Create inserts the message and returns the row as stored.
func (s *PostgresStore) Create(ctx context.Context, in CreateMessageInput) (Message, error) {
	if err := validateCreate(in); err != nil {
		return Message{}, err
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC().Truncate(time.Microsecond)

	id, err := NewMessageID(now)
	if err != nil {
		return Message{}, err
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO `+s.messages()+` (id, user_id, contents, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $4)
		 RETURNING `+messageColumns,
		id, in.UserID, in.Contents, now,
	)
	m, err := scanMessage(row)
	if err != nil {
		return Message{}, fmt.Errorf("insert message: %w", err)
	}
	return m, nil
}

// ListRecent returns the newest limit messages, oldest first.
func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]Message, error) {
	limit = clampLimit(limit)

	rows, err := s.pool.Query(ctx,
		`SELECT `+messageColumns+`
		   FROM `+s.messages()+`
		  ORDER BY created_at DESC, id DESC
		  LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Message, 0, limit)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slices.Reverse(out)
	return out, nil
}

func scanMessage(row pgx.Row) (Message, error) {
	var m Message
	if err := row.Scan(&m.ID, &m.UserID, &m.Contents, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return Message{}, err
	}
	m.CreatedAt = m.CreatedAt.UTC()
	m.UpdatedAt = m.UpdatedAt.UTC()
	return m, nil
}

var pgIdentRE = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
