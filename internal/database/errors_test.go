package database

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestDatabaseError(t *testing.T) {
	t.Parallel()

	driverErr := errors.New("driver says no")
	err := newError(PostgreSQL, "save", ErrTableNotFound, driverErr)

	if !errors.Is(err, ErrTableNotFound) {
		t.Error("expected errors.Is to find the kind")
	}
	if !errors.Is(err, driverErr) {
		t.Error("expected errors.Is to find the driver error")
	}
	for _, part := range []string{"postgresql", "save", "driver says no"} {
		if !strings.Contains(err.Error(), part) {
			t.Errorf("expected %q in %q", part, err.Error())
		}
	}

	if newError(SQLite, "get", nil, nil) != nil {
		t.Error("expected nil for nil error")
	}
	if msg := newError(SQLite, "get", nil, driverErr).Error(); msg != "sqlite get: driver says no" {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestClassifyPostgres(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code string
		want error
	}{
		{code: pgInvalidPassword, want: ErrCredentials},
		{code: pgInvalidAuthorization, want: ErrCredentials},
		{code: pgInvalidCatalogName, want: ErrDatabaseNotFound},
		{code: pgUndefinedTable, want: ErrTableNotFound},
		{code: pgDuplicateTable, want: ErrTableAlreadyExists},
		{code: "23505", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			t.Parallel()

			if got := classifyPostgres(&pgconn.PgError{Code: tt.code}); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	if got := classifyPostgres(errors.New("plain")); got != nil {
		t.Errorf("expected nil for unknown error, got %v", got)
	}
}

func TestClassifyMySQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		number uint16
		want   error
	}{
		{number: mysqlAccessDenied, want: ErrCredentials},
		{number: mysqlAccessDeniedNoPassword, want: ErrCredentials},
		{number: mysqlBadDB, want: ErrDatabaseNotFound},
		{number: mysqlTableExists, want: ErrTableAlreadyExists},
		{number: mysqlBadTable, want: ErrTableNotFound},
		{number: mysqlNoSuchTable, want: ErrTableNotFound},
		{number: 1062, want: nil},
	}

	for _, tt := range tests {
		if got := classifyMySQL(&mysql.MySQLError{Number: tt.number}); got != tt.want {
			t.Errorf("number %d: expected %v, got %v", tt.number, tt.want, got)
		}
	}
}

func TestClassifyRedis(t *testing.T) {
	t.Parallel()

	if got := classifyRedis(errors.New("WRONGPASS invalid username-password pair")); got != ErrCredentials {
		t.Errorf("expected ErrCredentials, got %v", got)
	}
	if got := classifyRedis(errors.New("ERR DB index is out of range")); got != ErrDatabaseNotFound {
		t.Errorf("expected ErrDatabaseNotFound, got %v", got)
	}
	if got := classifyRedis(errors.New("connection refused")); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestDSN(t *testing.T) {
	t.Parallel()

	creds := Credentials{Username: "spider", Password: "p@ss", Host: "db:5432", Name: "pages"}

	if got := postgresDSN(creds); got != "postgres://spider:p%40ss@db:5432/pages" {
		t.Errorf("unexpected postgres dsn %q", got)
	}
	if got := postgresDSN(Credentials{Username: "spider", Host: "db", Name: "pages"}); got != "postgres://spider@db/pages" {
		t.Errorf("unexpected postgres dsn without password %q", got)
	}

	my := mysqlDSN(Credentials{Username: "root", Password: "toor", Host: "db:3306", Name: "spider"})
	if !strings.HasPrefix(my, "root:toor@tcp(db:3306)/spider") {
		t.Errorf("unexpected mysql dsn %q", my)
	}

	opts, err := redisOptions(Credentials{Host: "cache:6379", Password: "pw", Name: "2"})
	if err != nil {
		t.Fatal(err)
	}
	if opts.Addr != "cache:6379" || opts.DB != 2 || opts.Password != "pw" {
		t.Errorf("unexpected redis options %+v", opts)
	}
}
