package database

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQL SQLSTATE codes mapped to sentinel errors.
const (
	pgInvalidPassword      = "28P01"
	pgInvalidAuthorization = "28000"
	pgInvalidCatalogName   = "3D000"
	pgUndefinedTable       = "42P01"
	pgDuplicateTable       = "42P07"
)

const (
	// pgReserve makes a concurrent first save of the same url wait on the
	// unique index until this transaction ends.
	pgReserve = `INSERT INTO url (url, parent) VALUES ($1, $2) ON CONFLICT ON CONSTRAINT url_url_key DO NOTHING`

	pgSelectBlob = `SELECT html, content_hash FROM url WHERE url = $1 FOR UPDATE`

	pgUpsert = `
	INSERT INTO url (url, title, parent, html, content_hash)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT ON CONSTRAINT url_url_key DO UPDATE SET
		title = EXCLUDED.title,
		parent = EXCLUDED.parent,
		html = EXCLUDED.html,
		content_hash = EXCLUDED.content_hash,
		updated_at = now()
	`

	pgSelectEntries = `SELECT url, COALESCE(title, ''), COALESCE(content_hash, '') FROM url WHERE parent = $1 ORDER BY id LIMIT $2`
)

// postgresStore is a Store backed by a pgx connection pool.
type postgresStore struct {
	dsn  string
	opts Options

	mu   sync.Mutex
	pool *pgxpool.Pool
}

// NewPostgres creates a Store backed by a PostgreSQL server.
func NewPostgres(creds Credentials, opts Options) (Store, error) {
	return &postgresStore{
		dsn:  postgresDSN(creds),
		opts: opts.withDefaults(),
	}, nil
}

func postgresDSN(creds Credentials) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   creds.Host,
		Path:   "/" + creds.Name,
	}
	switch {
	case creds.Username != "" && creds.Password != "":
		u.User = url.UserPassword(creds.Username, creds.Password)
	case creds.Username != "":
		u.User = url.User(creds.Username)
	}
	return u.String()
}

// Name returns "postgresql".
func (s *postgresStore) Name() string {
	return PostgreSQL
}

// Connect creates the pool and pings the server.
func (s *postgresStore) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool != nil {
		return nil
	}

	pool, err := pgxpool.New(ctx, s.dsn)
	if err != nil {
		return s.wrap("connect", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return s.wrap("connect", err)
	}

	s.pool = pool
	s.opts.Logger.Debug("connected to database", "backend", PostgreSQL)
	return nil
}

// Disconnect closes the pool.
func (s *postgresStore) Disconnect(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
	return nil
}

func (s *postgresStore) conn() (*pgxpool.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool == nil {
		return nil, ErrNotConnected
	}
	return s.pool, nil
}

// CreateTable creates the page table.
func (s *postgresStore) CreateTable(ctx context.Context, checkFirst bool) error {
	pool, err := s.conn()
	if err != nil {
		return err
	}

	ifNotExists := ""
	if checkFirst {
		ifNotExists = "IF NOT EXISTS "
	}
	stmts := []string{
		`CREATE TABLE ` + ifNotExists + `url (
			id BIGSERIAL PRIMARY KEY,
			url TEXT NOT NULL CONSTRAINT url_url_key UNIQUE,
			title TEXT,
			parent TEXT NOT NULL,
			html TEXT,
			content_hash TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_url_parent ON url (parent)`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return s.wrap("create table", err)
		}
	}
	return nil
}

// DropTable drops the page table.
func (s *postgresStore) DropTable(ctx context.Context, checkFirst bool) error {
	pool, err := s.conn()
	if err != nil {
		return err
	}

	stmt := `DROP TABLE url`
	if checkFirst {
		stmt = `DROP TABLE IF EXISTS url`
	}
	if _, err := pool.Exec(ctx, stmt); err != nil {
		return s.wrap("drop table", err)
	}
	return nil
}

// Save upserts rec inside a transaction holding a row lock.
func (s *postgresStore) Save(ctx context.Context, rec Record) error {
	pool, err := s.conn()
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return s.wrap("save", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	load := func() (storedBlob, error) {
		if _, err := tx.Exec(ctx, pgReserve, rec.URL, rec.Parent); err != nil {
			return storedBlob{}, s.wrap("save", err)
		}
		var html, hash *string
		err := tx.QueryRow(ctx, pgSelectBlob, rec.URL).Scan(&html, &hash)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return storedBlob{}, nil
		case err != nil:
			return storedBlob{}, s.wrap("save", err)
		}
		return reservedBlob(deref(html), deref(hash)), nil
	}

	write := func(swap blobSwap) error {
		if _, err := tx.Exec(ctx, pgUpsert,
			rec.URL, optional(rec.Title), rec.Parent, optional(swap.locator), optional(swap.hash)); err != nil {
			return s.wrap("save", err)
		}
		return s.wrap("save", tx.Commit(ctx))
	}

	if err := saveWith(ctx, s.opts, rec, load, write); err != nil {
		return err
	}
	s.opts.Logger.Debug("save url", "url", rec.URL)
	return nil
}

// Get returns the entries saved under parent.
func (s *postgresStore) Get(ctx context.Context, parent string, limit int) ([]Entry, error) {
	if limit <= 0 {
		return []Entry{}, nil
	}
	pool, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, pgSelectEntries, parent, limit)
	if err != nil {
		return nil, s.wrap("get", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var e Entry
		err := row.Scan(&e.URL, &e.Title, &e.Hash)
		return e, err
	})
	if err != nil {
		return nil, s.wrap("get", err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// Count returns the number of stored pages.
func (s *postgresStore) Count(ctx context.Context) (int64, error) {
	pool, err := s.conn()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := pool.QueryRow(ctx, countEntries).Scan(&n); err != nil {
		return 0, s.wrap("count", err)
	}
	return n, nil
}

func (s *postgresStore) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var dbErr *DatabaseError
	if errors.As(err, &dbErr) {
		return err
	}
	return newError(PostgreSQL, op, classifyPostgres(err), err)
}

func classifyPostgres(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}
	switch pgErr.Code {
	case pgInvalidPassword, pgInvalidAuthorization:
		return ErrCredentials
	case pgInvalidCatalogName:
		return ErrDatabaseNotFound
	case pgUndefinedTable:
		return ErrTableNotFound
	case pgDuplicateTable:
		return ErrTableAlreadyExists
	default:
		return nil
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
