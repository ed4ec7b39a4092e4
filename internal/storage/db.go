package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Driver selects the SQL dialect of a DB.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
)

// DB wraps a SQL connection and the dialect it speaks.
type DB struct {
	conn   *sql.DB
	driver Driver
}

// OpenSQLite opens (or creates) the SQLite file at dbPath.
func OpenSQLite(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	conn, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite only supports one writer
	conn.SetMaxOpenConns(1)
	return newDB(conn, DriverSQLite)
}

// Open connects to driver using dsn. For sqlite the dsn is a file path.
func Open(driver Driver, dsn string) (*DB, error) {
	switch driver {
	case DriverSQLite, "":
		return OpenSQLite(dsn)
	case DriverPostgres, DriverMySQL:
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	conn, err := sql.Open(string(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return newDB(conn, driver)
}

func newDB(conn *sql.DB, driver Driver) (*DB, error) {
	db := &DB{conn: conn, driver: driver}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Printf("[SQL] opened %s database", driver)
	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) Driver() Driver {
	return db.driver
}

// rebind rewrites ? placeholders to $n for postgres.
func (db *DB) rebind(q string) string {
	if db.driver != DriverPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (db *DB) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return db.conn.ExecContext(ctx, db.rebind(q), args...)
}

func (db *DB) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return db.conn.QueryContext(ctx, db.rebind(q), args...)
}

func (db *DB) queryRow(ctx context.Context, q string, args ...any) *sql.Row {
	return db.conn.QueryRowContext(ctx, db.rebind(q), args...)
}

type dialect struct {
	id, text, real, bigint, ts string
}

func (db *DB) dialect() dialect {
	switch db.driver {
	case DriverPostgres:
		return dialect{id: "TEXT", text: "TEXT", real: "DOUBLE PRECISION", bigint: "BIGINT", ts: "TIMESTAMPTZ"}
	case DriverMySQL:
		return dialect{id: "VARCHAR(64)", text: "LONGTEXT", real: "DOUBLE", bigint: "BIGINT", ts: "DATETIME(3)"}
	default:
		return dialect{id: "TEXT", text: "TEXT", real: "REAL", bigint: "INTEGER", ts: "DATETIME"}
	}
}

func (db *DB) migrate() error {
	d := db.dialect()
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS boards (
			id ` + d.id + ` PRIMARY KEY,
			title ` + d.text + ` NOT NULL,
			description ` + d.text + ` NOT NULL,
			background_color VARCHAR(32) NOT NULL DEFAULT '#ffffff',
			grid_size INTEGER NOT NULL DEFAULT 20,
			tags_json ` + d.text + ` NOT NULL,
			settings_json ` + d.text + ` NOT NULL,
			created_at ` + d.ts + ` NOT NULL,
			updated_at ` + d.ts + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS nodes (
			id ` + d.id + ` PRIMARY KEY,
			board_id ` + d.id + ` NOT NULL,
			type VARCHAR(32) NOT NULL,
			x ` + d.real + ` NOT NULL DEFAULT 0,
			y ` + d.real + ` NOT NULL DEFAULT 0,
			z_index ` + d.bigint + ` NOT NULL DEFAULT 0,
			width ` + d.real + ` NOT NULL DEFAULT 300,
			height ` + d.real + ` NOT NULL DEFAULT 200,
			content ` + d.text + ` NOT NULL,
			style_json ` + d.text + ` NOT NULL,
			locked INTEGER NOT NULL DEFAULT 0,
			connections_json ` + d.text + ` NOT NULL,
			created_at ` + d.ts + ` NOT NULL,
			updated_at ` + d.ts + ` NOT NULL
		)`,
		`CREATE INDEX idx_nodes_board ON nodes(board_id)`,
		`CREATE TABLE IF NOT EXISTS app_settings (
			name VARCHAR(128) PRIMARY KEY,
			value ` + d.text + ` NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			// Index creation is not idempotent on every dialect
			if strings.HasPrefix(m, "CREATE INDEX") && isDuplicateIndex(err) {
				continue
			}
			return fmt.Errorf("migration failed: %s: %w", m[:40], err)
		}
	}
	return nil
}

func isDuplicateIndex(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate key name")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ── DSN builders ───────────────────────────────────────────

// ConnParams describes a server database when no DSN is configured.
type ConnParams struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// BuildPostgresDSN constructs a lib/pq connection string.
func BuildPostgresDSN(p ConnParams) string {
	port := p.Port
	if port == 0 {
		port = 5432
	}
	sslMode := p.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, port, p.User, p.Password, p.Database, sslMode,
	)
}

// BuildMySQLDSN constructs a go-sql-driver DSN. parseTime is always on so
// DATETIME columns scan into time.Time.
func BuildMySQLDSN(p ConnParams) string {
	port := p.Port
	if port == 0 {
		port = 3306
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		p.User, p.Password, p.Host, port, p.Database,
	)
	if p.SSLMode == "require" {
		dsn += "&tls=true"
	}
	return dsn
}
