package datastore

import (
	"SheetReports/internal/logger"
	"SheetReports/internal/report"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverSQLite   = "sqlite3"
)

// grammarClass is the SQLSTATE class for syntax errors and access rule
// violations (undefined table, undefined column, ...).
const grammarClass = "42"

// Store runs mapping SQL against the transactional database. Every
// statement executes inside a read-only transaction.
type Store struct {
	db     *sql.DB
	driver string
	log    *logger.Logger
}

type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func Open(driver, dsn string, opts PoolOptions) (*Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	return New(db, driver), nil
}

func New(db *sql.DB, driver string) *Store {
	return &Store{db: db, driver: driver, log: logger.New("datastore")}
}

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Driver() string { return s.driver }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Close() error { return s.db.Close() }

// QueryScalar returns the first column of the first row and that column's
// database type name. No rows yields sql.ErrNoRows.
func (s *Store) QueryScalar(ctx context.Context, query string, args ...interface{}) (interface{}, string, error) {
	if len(args) > 0 && s.numbered() {
		query = Rebind(query)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, "", fmt.Errorf("begin read-only transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", Classify(err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, "", Classify(err)
	}
	if len(types) == 0 {
		return nil, "", errors.New("statement returned no columns")
	}
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, "", Classify(err)
		}
		return nil, "", sql.ErrNoRows
	}

	dest := make([]interface{}, len(types))
	ptrs := make([]interface{}, len(types))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, "", Classify(err)
	}
	if len(types) > 1 {
		s.log.Debugf("statement returned %d columns, using the first", len(types))
	}
	return dest[0], types[0].DatabaseTypeName(), nil
}

func (s *Store) numbered() bool {
	return s.driver == DriverPostgres || s.driver == DriverPgx
}

// Classify wraps driver errors that mean the statement itself is invalid
// into report.BadSQLError. Other errors are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code.Class()) == grammarClass {
		return &report.BadSQLError{Cause: pqErr.Message, Err: err}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, grammarClass) {
		return &report.BadSQLError{Cause: pgErr.Message, Err: err}
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.Code == sqlite3.ErrError {
		return &report.BadSQLError{Cause: liteErr.Error(), Err: err}
	}
	return err
}

// Rebind rewrites ? placeholders to $1, $2, ... outside of quoted text.
func Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	var quote byte
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
