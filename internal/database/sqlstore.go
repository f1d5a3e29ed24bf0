package database

import (
	"context"
	"database/sql"
	"errors"
	"sync"
)

// dialect holds the SQL that differs between database/sql backends.
type dialect struct {
	// name is the backend name.
	name string

	// driver is the database/sql driver name.
	driver string

	// createTable returns the statements that create the page table.
	createTable func(checkFirst bool) []string

	// dropTable returns the statement that drops the page table.
	dropTable func(checkFirst bool) string

	// reserve inserts an empty row for a new url and leaves a known url
	// untouched. Arguments: url, parent. It runs before selectBlob so that
	// concurrent first saves of one url queue on the same row.
	reserve string

	// selectBlob reads html and content_hash of one url, locking the row
	// where the backend supports it.
	selectBlob string

	// upsert inserts or updates a row. Arguments: url, title, parent, html, content_hash.
	upsert string

	// classify maps a driver error to one of the sentinel errors, or nil.
	classify func(error) error
}

const (
	selectEntries = `SELECT url, COALESCE(title, ''), COALESCE(content_hash, '') FROM url WHERE parent = ? ORDER BY id LIMIT ?`
	countEntries  = `SELECT COUNT(*) FROM url`
)

// sqlStore is a Store on top of database/sql.
type sqlStore struct {
	d    dialect
	opts Options

	// dsn returns the data source name, creating directories when needed.
	dsn func() (string, error)

	// setup tunes a freshly opened pool.
	setup func(ctx context.Context, db *sql.DB) error

	mu sync.Mutex
	db *sql.DB
}

// Name returns the backend name.
func (s *sqlStore) Name() string {
	return s.d.name
}

// Connect opens the connection pool and pings the server.
func (s *sqlStore) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	dsn, err := s.dsn()
	if err != nil {
		return s.wrap("connect", err)
	}

	db, err := sql.Open(s.d.driver, dsn)
	if err != nil {
		return s.wrap("connect", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return s.wrap("connect", err)
	}
	if s.setup != nil {
		if err := s.setup(ctx, db); err != nil {
			_ = db.Close()
			return s.wrap("connect", err)
		}
	}

	s.db = db
	s.opts.Logger.Debug("connected to database", "backend", s.d.name)
	return nil
}

// Disconnect closes the connection pool.
func (s *sqlStore) Disconnect(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return s.wrap("disconnect", err)
}

func (s *sqlStore) conn() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrNotConnected
	}
	return s.db, nil
}

// CreateTable creates the page table.
func (s *sqlStore) CreateTable(ctx context.Context, checkFirst bool) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	for _, stmt := range s.d.createTable(checkFirst) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return s.wrap("create table", err)
		}
	}
	return nil
}

// DropTable drops the page table.
func (s *sqlStore) DropTable(ctx context.Context, checkFirst bool) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, s.d.dropTable(checkFirst)); err != nil {
		return s.wrap("drop table", err)
	}
	return nil
}

// Save upserts rec inside a transaction.
func (s *sqlStore) Save(ctx context.Context, rec Record) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return s.wrap("save", err)
	}
	defer func() { _ = tx.Rollback() }()

	load := func() (storedBlob, error) {
		if _, err := tx.ExecContext(ctx, s.d.reserve, rec.URL, rec.Parent); err != nil {
			return storedBlob{}, s.wrap("save", err)
		}
		var html, hash sql.NullString
		err := tx.QueryRowContext(ctx, s.d.selectBlob, rec.URL).Scan(&html, &hash)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return storedBlob{}, nil
		case err != nil:
			return storedBlob{}, s.wrap("save", err)
		}
		return reservedBlob(html.String, hash.String), nil
	}

	write := func(swap blobSwap) error {
		if _, err := tx.ExecContext(ctx, s.d.upsert,
			rec.URL, nullString(rec.Title), rec.Parent, nullString(swap.locator), nullString(swap.hash)); err != nil {
			return s.wrap("save", err)
		}
		return s.wrap("save", tx.Commit())
	}

	if err := saveWith(ctx, s.opts, rec, load, write); err != nil {
		return err
	}
	s.opts.Logger.Debug("save url", "url", rec.URL)
	return nil
}

// Get returns the entries saved under parent.
func (s *sqlStore) Get(ctx context.Context, parent string, limit int) ([]Entry, error) {
	if limit <= 0 {
		return []Entry{}, nil
	}
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, selectEntries, parent, limit)
	if err != nil {
		return nil, s.wrap("get", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.URL, &e.Title, &e.Hash); err != nil {
			return nil, s.wrap("get", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("get", err)
	}
	return entries, nil
}

// Count returns the number of stored pages.
func (s *sqlStore) Count(ctx context.Context) (int64, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := db.QueryRowContext(ctx, countEntries).Scan(&n); err != nil {
		return 0, s.wrap("count", err)
	}
	return n, nil
}

func (s *sqlStore) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var dbErr *DatabaseError
	if errors.As(err, &dbErr) {
		return err
	}
	return newError(s.d.name, op, s.d.classify(err), err)
}

// reservedBlob reports a row without html as new: it is the placeholder
// inserted by reserve.
func reservedBlob(locator, hash string) storedBlob {
	if locator == "" {
		return storedBlob{}
	}
	return storedBlob{exists: true, locator: locator, hash: hash}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
