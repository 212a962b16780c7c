package icebox

import (
	"fmt"
	"sort"
)

// LedgerTable is where applied migrations are recorded, one row per unit.
const LedgerTable = "schema_migrations"

// MigrationStatus is the result of diffing registered units against the
// ledger without side effects.
type MigrationStatus struct {
	Executed      []string
	Pending       []string
	TotalExecuted int
	TotalPending  int
}

// Migrator applies and reverses registered migration units against one
// database, tracking them in the schema_migrations ledger. Units run in
// name order (timestamp prefix), rollbacks in reverse applied order.
type Migrator struct {
	conn       *Connection
	migrations map[string]*Migration
}

// NewMigrator creates a migrator bound to a connection.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{
		conn:       conn,
		migrations: make(map[string]*Migration),
	}
}

// Register adds a migration unit. Registering the same name twice replaces
// the earlier unit.
func (m *Migrator) Register(migration *Migration) {
	m.migrations[migration.Name] = migration
}

// RegisterAll adopts every unit from the package-level registry, the path
// the CLI takes after generated migration files self-register through init.
func (m *Migrator) RegisterAll() {
	for _, migration := range RegisteredMigrations() {
		m.Register(migration)
	}
}

// registeredNames returns every registered unit name in timestamp order.
func (m *Migrator) registeredNames() []string {
	names := make([]string, 0, len(m.migrations))
	for name := range m.migrations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CreateSchemaMigrationsTable bootstraps the ledger. It is idempotent and
// runs before every other migrator operation. The id column must actually
// auto-populate on the active driver; ledger order is applied order.
func (m *Migrator) CreateSchemaMigrationsTable() error {
	timeType := "DATETIME"
	if m.conn.Driver() == "postgres" {
		timeType = "TIMESTAMP"
	}
	ddl := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s,\n  migration VARCHAR(255) UNIQUE NOT NULL,\n  executed_at %s DEFAULT CURRENT_TIMESTAMP\n)",
		LedgerTable, implicitIDColumn(m.conn.Driver()), timeType)
	_, err := m.conn.Exec(ddl)
	return err
}

// executedNames returns the ledger contents in applied order.
func (m *Migrator) executedNames() ([]string, error) {
	rows, err := m.conn.Query(fmt.Sprintf("SELECT migration FROM %s ORDER BY id", LedgerTable))
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, fmt.Sprintf("%v", row["migration"]))
	}
	return names, nil
}

func (m *Migrator) pendingNames() ([]string, error) {
	executed, err := m.executedNames()
	if err != nil {
		return nil, err
	}

	executedSet := make(map[string]bool, len(executed))
	for _, name := range executed {
		executedSet[name] = true
	}

	pending := make([]string, 0)
	for _, name := range m.registeredNames() {
		if !executedSet[name] {
			pending = append(pending, name)
		}
	}
	return pending, nil
}

// placeholder returns the driver's positional parameter marker.
func (m *Migrator) placeholder(position int) string {
	if m.conn.Driver() == "postgres" {
		return fmt.Sprintf("$%d", position)
	}
	return "?"
}

func validateMigration(migration *Migration) error {
	if migration.Up == nil || migration.Down == nil {
		return newMigrationError(migration.Name, "must have both up() and down() methods")
	}
	return nil
}

// Migrate applies every pending unit in timestamp order and returns the
// names applied. A failure partway through propagates immediately; already
// applied units in the batch stay applied and stay in the ledger.
func (m *Migrator) Migrate() ([]string, error) {
	if err := m.CreateSchemaMigrationsTable(); err != nil {
		return nil, err
	}

	pending, err := m.pendingNames()
	if err != nil {
		return nil, err
	}

	applied := make([]string, 0, len(pending))
	schema := NewSchema(m.conn)

	for _, name := range pending {
		migration := m.migrations[name]
		if err := validateMigration(migration); err != nil {
			return applied, err
		}

		Info("Migrating: %s", name)
		if err := migration.Up(schema); err != nil {
			return applied, fmt.Errorf("migration %s failed: %w", name, err)
		}

		if _, err := m.conn.Exec(fmt.Sprintf("INSERT INTO %s (migration) VALUES (%s)", LedgerTable, m.placeholder(1)), name); err != nil {
			return applied, fmt.Errorf("failed to record migration %s: %w", name, err)
		}

		applied = append(applied, name)
		Info("Migrated: %s", name)
	}

	return applied, nil
}

// Rollback reverses the given number of most-recently-applied units, newest
// first, and returns the names rolled back. Ledger order governs, not
// registration order. Steps below 1 fail with an argument error.
func (m *Migrator) Rollback(steps int) ([]string, error) {
	if steps < 1 {
		return nil, newArgumentError("rollback steps must be at least 1, got %d", steps)
	}

	if err := m.CreateSchemaMigrationsTable(); err != nil {
		return nil, err
	}

	rows, err := m.conn.Query(
		fmt.Sprintf("SELECT migration FROM %s ORDER BY id DESC LIMIT %d", LedgerTable, steps))
	if err != nil {
		return nil, err
	}

	rolledBack := make([]string, 0, len(rows))
	schema := NewSchema(m.conn)

	for _, row := range rows {
		name := fmt.Sprintf("%v", row["migration"])

		migration, ok := m.migrations[name]
		if !ok {
			// Resolution is by name only; a renamed or unregistered unit
			// surfaces here rather than being looked up another way.
			return rolledBack, newMigrationError(name, "migration file not found")
		}
		if err := validateMigration(migration); err != nil {
			return rolledBack, err
		}

		Info("Rolling back: %s", name)
		if err := migration.Down(schema); err != nil {
			return rolledBack, fmt.Errorf("rollback %s failed: %w", name, err)
		}

		if _, err := m.conn.Exec(fmt.Sprintf("DELETE FROM %s WHERE migration = %s", LedgerTable, m.placeholder(1)), name); err != nil {
			return rolledBack, fmt.Errorf("failed to unrecord migration %s: %w", name, err)
		}

		rolledBack = append(rolledBack, name)
		Info("Rolled back: %s", name)
	}

	return rolledBack, nil
}

// Reset rolls back every currently-applied unit.
func (m *Migrator) Reset() ([]string, error) {
	if err := m.CreateSchemaMigrationsTable(); err != nil {
		return nil, err
	}

	executed, err := m.executedNames()
	if err != nil {
		return nil, err
	}
	if len(executed) == 0 {
		return []string{}, nil
	}

	return m.Rollback(len(executed))
}

// Status reports executed and pending units without touching the schema.
func (m *Migrator) Status() (*MigrationStatus, error) {
	if err := m.CreateSchemaMigrationsTable(); err != nil {
		return nil, err
	}

	executed, err := m.executedNames()
	if err != nil {
		return nil, err
	}
	pending, err := m.pendingNames()
	if err != nil {
		return nil, err
	}

	return &MigrationStatus{
		Executed:      executed,
		Pending:       pending,
		TotalExecuted: len(executed),
		TotalPending:  len(pending),
	}, nil
}
