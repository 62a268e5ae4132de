package credentials

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
)

const (
	migrationsTable = "scoreboard_schema_migrations"

	selectPasswordQuery = "SELECT password FROM admin_credentials WHERE id = 1"
	insertDefaultQuery  = "INSERT INTO admin_credentials (id, password, updated_at) VALUES (1, $1, $2) " +
		"ON CONFLICT (id) DO NOTHING"
	upsertPasswordQuery = "INSERT INTO admin_credentials (id, password, updated_at) VALUES (1, $1, $2) " +
		"ON CONFLICT (id) DO UPDATE SET password = EXCLUDED.password, updated_at = EXCLUDED.updated_at"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PgStore keeps the admin password in a single row of a Postgres table.
type PgStore struct {
	conn *sql.DB
}

func NewPgStore(dsn string) (*PgStore, error) {
	if err := migrateUp(dsn); err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return &PgStore{conn: db}, nil
}

// migrateUp applies the embedded migrations on a dedicated connection, which
// migrate closes when done.
func migrateUp(dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		db.Close()
		return fmt.Errorf("migration driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		db.Close()
		return fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		db.Close()
		return fmt.Errorf("migrate: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}

	return nil
}

func (s *PgStore) ReadPassword() (string, error) {
	var password string
	err := s.conn.QueryRow(selectPasswordQuery).Scan(&password)
	if err == nil {
		return strings.TrimSpace(password), nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("select password: %w", err)
	}

	if _, err := s.conn.Exec(insertDefaultQuery, DefaultPassword, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("insert default password: %w", err)
	}

	// another process may have won the insert
	if err := s.conn.QueryRow(selectPasswordQuery).Scan(&password); err != nil {
		return "", fmt.Errorf("select password: %w", err)
	}

	return strings.TrimSpace(password), nil
}

func (s *PgStore) WritePassword(password string) error {
	if _, err := s.conn.Exec(upsertPasswordQuery, password, time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert password: %w", err)
	}

	return nil
}

func (s *PgStore) Ping() error {
	return s.conn.Ping()
}

func (s *PgStore) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
