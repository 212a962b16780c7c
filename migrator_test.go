package icebox

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
)

func setupTestConn(t *testing.T) (*Connection, func()) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("Failed to enable foreign key constraints: %v", err)
	}

	conn := NewConnection(db, "sqlite3")
	cleanup := func() {
		db.Close()
	}
	return conn, cleanup
}

func mustExec(t *testing.T, conn *Connection, query string, params ...interface{}) {
	t.Helper()
	if _, err := conn.Exec(query, params...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

func tableExists(t *testing.T, conn *Connection, name string) bool {
	t.Helper()
	rows, err := conn.Query(
		"SELECT name FROM sqlite_master WHERE type='table' AND name = ?", name)
	if err != nil {
		t.Fatalf("checking table %s: %v", name, err)
	}
	return len(rows) > 0
}

func createTableMigration(name, table string) *Migration {
	return &Migration{
		Name: name,
		Up: func(s *Schema) error {
			return s.CreateTable(table, func(t *Blueprint) {
				t.String("name")
			})
		},
		Down: func(s *Schema) error {
			return s.DropTable(table)
		},
	}
}

func TestMigrateAppliesPendingInOrder(t *testing.T) {
	conn, cleanup := setupTestConn(t)
	defer cleanup()

	migrator := NewMigrator(conn)
	// Registered out of order; timestamp prefix decides execution order.
	migrator.Register(createTableMigration("20240101000002_create_posts_table", "posts"))
	migrator.Register(createTableMigration("20240101000001_create_users_table", "users"))

	applied, err := migrator.Migrate()
	if err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	expected := []string{"20240101000001_create_users_table", "20240101000002_create_posts_table"}
	if len(applied) != 2 || applied[0] != expected[0] || applied[1] != expected[1] {
		t.Errorf("applied order: got %v, want %v", applied, expected)
	}

	if !tableExists(t, conn, "users") || !tableExists(t, conn, "posts") {
		t.Error("expected users and posts tables to exist")
	}
}

func TestLedgerAssignsSequentialIDs(t *testing.T) {
	conn, cleanup := setupTestConn(t)
	defer cleanup()

	migrator := NewMigrator(conn)
	migrator.Register(createTableMigration("20240101000001_create_a_table", "a"))
	migrator.Register(createTableMigration("20240101000002_create_b_table", "b"))
	migrator.Register(createTableMigration("20240101000003_create_c_table", "c"))

	if _, err := migrator.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	rows, err := conn.Query("SELECT id, migration FROM schema_migrations ORDER BY id")
	if err != nil {
		t.Fatalf("ledger query failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 ledger rows, got %d", len(rows))
	}

	// The id column must actually populate; rollback ordering depends on it.
	names := []string{"20240101000001_create_a_table", "20240101000002_create_b_table", "20240101000003_create_c_table"}
	for i, row := range rows {
		if row["id"] == nil {
			t.Fatalf("ledger row %d has NULL id", i)
		}
		if got := toInt64(row["id"]); got != int64(i+1) {
			t.Errorf("row %d: id %d, want %d", i, got, i+1)
		}
		if row["migration"] != names[i] {
			t.Errorf("row %d: migration %v, want %s", i, row["migration"], names[i])
		}
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	conn, cleanup := setupTestConn(t)
	defer cleanup()

	migrator := NewMigrator(conn)
	migrator.Register(createTableMigration("20240101000001_create_users_table", "users"))

	if _, err := migrator.Migrate(); err != nil {
		t.Fatalf("first Migrate failed: %v", err)
	}

	applied, err := migrator.Migrate()
	if err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("second Migrate applied %v, want nothing", applied)
	}
}

func TestMigrateRollbackMigrateRoundTrip(t *testing.T) {
	conn, cleanup := setupTestConn(t)
	defer cleanup()

	migrator := NewMigrator(conn)
	migrator.Register(createTableMigration("20240101000001_create_users_table", "users"))

	if _, err := migrator.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if _, err := migrator.Rollback(1); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
	if tableExists(t, conn, "users") {
		t.Fatal("users table should be gone after rollback")
	}

	applied, err := migrator.Migrate()
	if err != nil {
		t.Fatalf("re-Migrate failed: %v", err)
	}
	if len(applied) != 1 {
		t.Errorf("re-Migrate applied %v", applied)
	}
	if !tableExists(t, conn, "users") {
		t.Error("users table should exist again")
	}
}

func TestRollbackSteps(t *testing.T) {
	conn, cleanup := setupTestConn(t)
	defer cleanup()

	migrator := NewMigrator(conn)
	migrator.Register(createTableMigration("20240101000001_create_a_table", "a"))
	migrator.Register(createTableMigration("20240101000002_create_b_table", "b"))
	migrator.Register(createTableMigration("20240101000003_create_c_table", "c"))

	if _, err := migrator.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	rolledBack, err := migrator.Rollback(2)
	if err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	// Newest first.
	expected := []string{"20240101000003_create_c_table", "20240101000002_create_b_table"}
	if len(rolledBack) != 2 || rolledBack[0] != expected[0] || rolledBack[1] != expected[1] {
		t.Errorf("rolled back %v, want %v", rolledBack, expected)
	}

	status, err := migrator.Status()
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.TotalExecuted != 1 || status.TotalPending != 2 {
		t.Errorf("status: %d executed, %d pending", status.TotalExecuted, status.TotalPending)
	}
	if !tableExists(t, conn, "a") || tableExists(t, conn, "b") || tableExists(t, conn, "c") {
		t.Error("only table a should remain")
	}
}

func TestRollbackInvalidSteps(t *testing.T) {
	conn, cleanup := setupTestConn(t)
	defer cleanup()

	migrator := NewMigrator(conn)
	if _, err := migrator.Rollback(0); !IsArgumentError(err) {
		t.Errorf("expected argument error, got %v", err)
	}
}

func TestRollbackUnregisteredMigration(t *testing.T) {
	conn, cleanup := setupTestConn(t)
	defer cleanup()

	migrator := NewMigrator(conn)
	migrator.Register(createTableMigration("20240101000001_create_users_table", "users"))
	if _, err := migrator.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	// A fresh migrator that does not know the applied unit cannot reverse it.
	stranger := NewMigrator(conn)
	_, err := stranger.Rollback(1)

	var migErr *MigrationError
	if !errors.As(err, &migErr) {
		t.Fatalf("expected MigrationError, got %v", err)
	}
	if migErr.Message != "migration file not found" {
		t.Errorf("got message %q", migErr.Message)
	}
}

func TestMigrateRejectsHalfMigration(t *testing.T) {
	conn, cleanup := setupTestConn(t)
	defer cleanup()

	migrator := NewMigrator(conn)
	migrator.Register(&Migration{
		Name: "20240101000001_create_users_table",
		Up: func(s *Schema) error {
			return s.CreateTable("users", func(*Blueprint) {})
		},
	})

	_, err := migrator.Migrate()
	var migErr *MigrationError
	if !errors.As(err, &migErr) {
		t.Fatalf("expected MigrationError, got %v", err)
	}
	if migErr.Message != "must have both up() and down() methods" {
		t.Errorf("got message %q", migErr.Message)
	}
}

func TestMigrateFailurePreservesLedger(t *testing.T) {
	conn, cleanup := setupTestConn(t)
	defer cleanup()

	migrator := NewMigrator(conn)
	migrator.Register(createTableMigration("20240101000001_create_users_table", "users"))
	migrator.Register(&Migration{
		Name: "20240101000002_broken",
		Up: func(s *Schema) error {
			return fmt.Errorf("boom")
		},
		Down: func(*Schema) error { return nil },
	})

	applied, err := migrator.Migrate()
	if err == nil {
		t.Fatal("expected failure")
	}
	if len(applied) != 1 || applied[0] != "20240101000001_create_users_table" {
		t.Errorf("applied %v", applied)
	}

	status, statusErr := migrator.Status()
	if statusErr != nil {
		t.Fatalf("Status failed: %v", statusErr)
	}
	if status.TotalExecuted != 1 || status.TotalPending != 1 {
		t.Errorf("status after failure: %d executed, %d pending", status.TotalExecuted, status.TotalPending)
	}
}

func TestReset(t *testing.T) {
	conn, cleanup := setupTestConn(t)
	defer cleanup()

	migrator := NewMigrator(conn)
	migrator.Register(createTableMigration("20240101000001_create_a_table", "a"))
	migrator.Register(createTableMigration("20240101000002_create_b_table", "b"))

	if _, err := migrator.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	rolledBack, err := migrator.Reset()
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if len(rolledBack) != 2 {
		t.Errorf("Reset rolled back %v", rolledBack)
	}
	if tableExists(t, conn, "a") || tableExists(t, conn, "b") {
		t.Error("all tables should be gone after reset")
	}

	// Reset on an empty ledger is a no-op, not an error.
	rolledBack, err = migrator.Reset()
	if err != nil {
		t.Fatalf("empty Reset failed: %v", err)
	}
	if len(rolledBack) != 0 {
		t.Errorf("empty Reset rolled back %v", rolledBack)
	}
}

func TestStatusListsExecutedAndPending(t *testing.T) {
	conn, cleanup := setupTestConn(t)
	defer cleanup()

	migrator := NewMigrator(conn)
	migrator.Register(createTableMigration("20240101000001_create_a_table", "a"))

	status, err := migrator.Status()
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.TotalExecuted != 0 || status.TotalPending != 1 {
		t.Errorf("before migrate: %d executed, %d pending", status.TotalExecuted, status.TotalPending)
	}

	if _, err := migrator.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	status, err = migrator.Status()
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.TotalExecuted != 1 || status.TotalPending != 0 {
		t.Errorf("after migrate: %d executed, %d pending", status.TotalExecuted, status.TotalPending)
	}
	if len(status.Executed) != 1 || status.Executed[0] != "20240101000001_create_a_table" {
		t.Errorf("executed list: %v", status.Executed)
	}
}

func TestGeneratedMigrationRoundTrip(t *testing.T) {
	conn, cleanup := setupTestConn(t)
	defer cleanup()

	migration, err := GenerateMigration("20240101000001_create_items_table",
		[]string{"name:string", "price:decimal"})
	if err != nil {
		t.Fatalf("GenerateMigration failed: %v", err)
	}

	migrator := NewMigrator(conn)
	migrator.Register(migration)

	if _, err := migrator.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if !tableExists(t, conn, "items") {
		t.Fatal("items table should exist")
	}

	mustExec(t, conn, "INSERT INTO items (name, price) VALUES ('widget', 9.99)")
	rows, err := conn.Query("SELECT name, price FROM items")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(rows) != 1 || rows[0]["name"] != "widget" {
		t.Errorf("rows: %v", rows)
	}

	if _, err := migrator.Rollback(1); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
	if tableExists(t, conn, "items") {
		t.Error("items table should be gone")
	}
}

func TestSchemaAddRemoveColumnSymmetry(t *testing.T) {
	conn, cleanup := setupTestConn(t)
	defer cleanup()

	schema := NewSchema(conn)
	if err := schema.CreateTable("users", func(t *Blueprint) {
		t.String("name")
	}); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}

	if err := schema.AddColumn("users", NewColumn("email", ColumnString)); err != nil {
		t.Fatalf("AddColumn failed: %v", err)
	}
	mustExec(t, conn, "INSERT INTO users (name, email) VALUES ('alice', 'a@example.com')")

	if err := schema.RemoveColumn("users", "email"); err != nil {
		t.Fatalf("RemoveColumn failed: %v", err)
	}
	if _, err := conn.Query("SELECT email FROM users"); err == nil {
		t.Error("email column should be gone")
	}
}

func TestCreateTableCallbackRunsOnce(t *testing.T) {
	conn, cleanup := setupTestConn(t)
	defer cleanup()

	calls := 0
	schema := NewSchema(conn)
	if err := schema.CreateTable("users", func(t *Blueprint) {
		calls++
		t.String("name")
	}); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}

	if calls != 1 {
		t.Errorf("blueprint callback ran %d times, want 1", calls)
	}
}

func TestSchemaIndexes(t *testing.T) {
	conn, cleanup := setupTestConn(t)
	defer cleanup()

	schema := NewSchema(conn)
	if err := schema.CreateTable("users", func(t *Blueprint) {
		t.String("email")
		t.Index([]string{"email"}, IndexOptions{Unique: true})
	}); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}

	rows, err := conn.Query(
		"SELECT name FROM sqlite_master WHERE type='index' AND name = 'index_users_on_email'")
	if err != nil {
		t.Fatalf("index lookup failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatal("expected index_users_on_email to exist")
	}

	if err := schema.RemoveIndex("users", []string{"email"}, IndexOptions{}); err != nil {
		t.Fatalf("RemoveIndex failed: %v", err)
	}
}
