package icebox

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Connection wraps a single database handle together with its driver name.
// It is the execution capability the query builder, the record layer and the
// migrator share: parameterized statements in, rows or affected counts out.
type Connection struct {
	db     *sql.DB
	driver string
	tx     *sql.Tx
}

// Open establishes a connection using the given configuration and verifies
// it with a ping.
func Open(config DatabaseConfig) (*Connection, error) {
	sqlDB, err := sql.Open(config.Driver, config.DSN)
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return &Connection{db: sqlDB, driver: config.Driver}, nil
}

// NewConnection wraps an already-open *sql.DB. Useful for tests and for
// callers that manage their own pool settings.
func NewConnection(db *sql.DB, driver string) *Connection {
	return &Connection{db: db, driver: driver}
}

// Driver returns the database driver name.
func (c *Connection) Driver() string {
	return c.driver
}

// DB exposes the underlying handle.
func (c *Connection) DB() *sql.DB {
	return c.db
}

// Exec runs a parameterized statement and returns the driver result.
func (c *Connection) Exec(query string, params ...interface{}) (sql.Result, error) {
	if c.tx != nil {
		return c.tx.Exec(query, params...)
	}
	return c.db.Exec(query, params...)
}

// Query runs a parameterized query and returns every row as a string-keyed
// map. The result is never nil for a successful query with zero rows.
func (c *Connection) Query(query string, params ...interface{}) ([]map[string]interface{}, error) {
	var rows *sql.Rows
	var err error
	if c.tx != nil {
		rows, err = c.tx.Query(query, params...)
	} else {
		rows, err = c.db.Query(query, params...)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	results := make([]map[string]interface{}, 0)
	for rows.Next() {
		values := make([]interface{}, len(columns))
		scanArgs := make([]interface{}, len(columns))
		for i := range values {
			scanArgs[i] = &values[i]
		}

		if err := rows.Scan(scanArgs...); err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(columns))
		for i, column := range columns {
			value := values[i]
			// sqlite and mysql report text columns as []byte
			if b, ok := value.([]byte); ok {
				value = string(b)
			}
			row[column] = value
		}
		results = append(results, row)
	}

	return results, rows.Err()
}

// Begin starts a transaction. Statements issued through the connection run
// inside it until Commit or Rollback. Calling Begin with a transaction
// already open has driver-defined behavior; no savepoint emulation is done.
func (c *Connection) Begin() error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	c.tx = tx
	return nil
}

// Commit commits the current transaction.
func (c *Connection) Commit() error {
	if c.tx == nil {
		return fmt.Errorf("no transaction in progress")
	}
	err := c.tx.Commit()
	c.tx = nil
	return err
}

// Rollback aborts the current transaction.
func (c *Connection) Rollback() error {
	if c.tx == nil {
		return fmt.Errorf("no transaction in progress")
	}
	err := c.tx.Rollback()
	c.tx = nil
	return err
}

// Close closes the underlying handle.
func (c *Connection) Close() error {
	return c.db.Close()
}

// The package-level connection is a lazily initialized shared resource:
// Configure records the settings, the first Default call opens the handle,
// and CloseDefault tears everything down. After a close, Configure must be
// called again before further use.
var (
	defaultMu     sync.Mutex
	defaultConfig *DatabaseConfig
	defaultConn   *Connection
)

// Configure records the configuration used by Default.
func Configure(config DatabaseConfig) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultConfig = &config
}

// Default returns the shared connection, opening it on first use. It fails
// with ErrNotConfigured if Configure has not been called.
func Default() (*Connection, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultConn != nil {
		return defaultConn, nil
	}
	if defaultConfig == nil {
		return nil, ErrNotConfigured
	}

	conn, err := Open(*defaultConfig)
	if err != nil {
		return nil, err
	}
	defaultConn = conn
	return defaultConn, nil
}

// CloseDefault closes the shared connection and clears its configuration.
func CloseDefault() error {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	defaultConfig = nil
	if defaultConn == nil {
		return nil
	}
	err := defaultConn.Close()
	defaultConn = nil
	return err
}
