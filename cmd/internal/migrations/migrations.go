// Package migrations embeds the chatpad PostgreSQL schema and applies it with goose.
//
// Table names in the SQL files are unqualified; Up creates the target schema
// and runs goose over a connection whose search_path is that schema, so the
// same files serve production ("chatpad") and throwaway test schemas.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var files embed.FS

const DefaultSchema = "chatpad"

var schemaRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// goose keeps its base FS and dialect in package globals.
var gooseMu sync.Mutex

// Up creates schema if needed and applies every pending migration.
func Up(ctx context.Context, pool *pgxpool.Pool, schema string) error {
	return withSchemaDB(ctx, pool, schema, func(db *sql.DB) error {
		return goose.UpContext(ctx, db, ".")
	})
}

// Version returns the currently applied migration version in schema.
func Version(ctx context.Context, pool *pgxpool.Pool, schema string) (int64, error) {
	var v int64
	err := withSchemaDB(ctx, pool, schema, func(db *sql.DB) error {
		var err error
		v, err = goose.GetDBVersionContext(ctx, db)
		return err
	})
	return v, err
}

func withSchemaDB(ctx context.Context, pool *pgxpool.Pool, schema string, fn func(*sql.DB) error) error {
	if pool == nil {
		return errors.New("migrations: nil pool")
	}
	schema = strings.TrimSpace(schema)
	if schema == "" {
		schema = DefaultSchema
	}
	if !schemaRe.MatchString(schema) {
		return fmt.Errorf("migrations: invalid schema identifier %q", schema)
	}

	if _, err := pool.Exec(ctx, `CREATE SCHEMA IF NOT EXISTS `+pgx.Identifier{schema}.Sanitize()); err != nil {
		return fmt.Errorf("migrations: create schema: %w", err)
	}

	connCfg := pool.Config().ConnConfig
	if connCfg.RuntimeParams == nil {
		connCfg.RuntimeParams = map[string]string{}
	}
	connCfg.RuntimeParams["search_path"] = schema

	db := stdlib.OpenDB(*connCfg)
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(1)

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(files)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("migrations: dialect: %w", err)
	}
	if err := fn(db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}
