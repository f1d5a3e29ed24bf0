package database

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers mapped to sentinel errors.
const (
	mysqlAccessDenied           = 1045
	mysqlBadDB                  = 1049
	mysqlTableExists            = 1050
	mysqlBadTable               = 1051
	mysqlNoSuchTable            = 1146
	mysqlAccessDeniedNoPassword = 1698
)

var mysqlDialect = dialect{
	name:   MySQL,
	driver: "mysql",
	createTable: func(checkFirst bool) []string {
		ifNotExists := ""
		if checkFirst {
			ifNotExists = "IF NOT EXISTS "
		}
		return []string{
			`CREATE TABLE ` + ifNotExists + `url (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				url VARCHAR(768) NOT NULL,
				title TEXT,
				parent VARCHAR(768) NOT NULL,
				html TEXT,
				content_hash CHAR(64),
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
				UNIQUE KEY url_url_key (url),
				INDEX idx_url_parent (parent)
			) CHARACTER SET utf8mb4`,
		}
	},
	dropTable: func(checkFirst bool) string {
		if checkFirst {
			return `DROP TABLE IF EXISTS url`
		}
		return `DROP TABLE url`
	},
	reserve:    `INSERT INTO url (url, parent) VALUES (?, ?) ON DUPLICATE KEY UPDATE url = url`,
	selectBlob: `SELECT html, content_hash FROM url WHERE url = ? FOR UPDATE`,
	upsert: `
	INSERT INTO url (url, title, parent, html, content_hash)
	VALUES (?, ?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE
		title = VALUES(title),
		parent = VALUES(parent),
		html = VALUES(html),
		content_hash = VALUES(content_hash)
	`,
	classify: classifyMySQL,
}

// NewMySQL creates a Store backed by a MySQL server.
func NewMySQL(creds Credentials, opts Options) (Store, error) {
	opts = opts.withDefaults()
	dsn := mysqlDSN(creds)
	return &sqlStore{
		d:    mysqlDialect,
		opts: opts,
		dsn:  func() (string, error) { return dsn, nil },
	}, nil
}

func mysqlDSN(creds Credentials) string {
	cfg := mysql.NewConfig()
	cfg.User = creds.Username
	cfg.Passwd = creds.Password
	cfg.Net = "tcp"
	cfg.Addr = creds.Host
	cfg.DBName = creds.Name
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

func classifyMySQL(err error) error {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return nil
	}
	switch myErr.Number {
	case mysqlAccessDenied, mysqlAccessDeniedNoPassword:
		return ErrCredentials
	case mysqlBadDB:
		return ErrDatabaseNotFound
	case mysqlTableExists:
		return ErrTableAlreadyExists
	case mysqlBadTable, mysqlNoSuchTable:
		return ErrTableNotFound
	default:
		return nil
	}
}
