package icebox

import (
	"strings"
	"testing"
)

func TestGenerateCreateTableSQL(t *testing.T) {
	sql := GenerateCreateTableSQL("users", func(t *Blueprint) {
		t.String("name")
		t.String("email", 100).Nullable(false)
		t.Integer("age")
	})

	expected := "CREATE TABLE users (\n" +
		"  id INT AUTO_INCREMENT PRIMARY KEY,\n" +
		"  name VARCHAR(255),\n" +
		"  email VARCHAR(100) NOT NULL,\n" +
		"  age INT\n" +
		")"

	if sql != expected {
		t.Errorf("unexpected CREATE TABLE SQL:\ngot:\n%s\nwant:\n%s", sql, expected)
	}
}

func TestGenerateCreateTableSQLEmptyBlueprint(t *testing.T) {
	sql := GenerateCreateTableSQL("empty", func(*Blueprint) {})

	expected := "CREATE TABLE empty (\n  id INT AUTO_INCREMENT PRIMARY KEY\n)"
	if sql != expected {
		t.Errorf("got %q, want %q", sql, expected)
	}
}

func TestGenerateCreateTableSQLDriverVariants(t *testing.T) {
	blueprint := NewBlueprint("items")
	blueprint.String("name")

	tests := []struct {
		driver string
		idCol  string
	}{
		{"", "id INT AUTO_INCREMENT PRIMARY KEY"},
		{"mysql", "id INT AUTO_INCREMENT PRIMARY KEY"},
		{"sqlite3", "id INTEGER PRIMARY KEY AUTOINCREMENT"},
		{"postgres", "id SERIAL PRIMARY KEY"},
	}

	for _, tt := range tests {
		sql := GenerateCreateTableSQLForDriver(tt.driver, blueprint)
		expected := "CREATE TABLE items (\n  " + tt.idCol + ",\n  name VARCHAR(255)\n)"
		if sql != expected {
			t.Errorf("driver %q:\ngot:\n%s\nwant:\n%s", tt.driver, sql, expected)
		}
	}
}

func TestGenerateDropTableSQL(t *testing.T) {
	if sql := GenerateDropTableSQL("users"); sql != "DROP TABLE users" {
		t.Errorf("got %q", sql)
	}
}

func TestGenerateAddColumnSQL(t *testing.T) {
	column := NewColumn("nickname", ColumnString).Limit(50)
	sql := GenerateAddColumnSQL("users", column)

	if sql != "ALTER TABLE users ADD COLUMN nickname VARCHAR(50)" {
		t.Errorf("got %q", sql)
	}
}

func TestGenerateDropColumnSQL(t *testing.T) {
	sql := GenerateDropColumnSQL("users", "nickname")
	if sql != "ALTER TABLE users DROP COLUMN nickname" {
		t.Errorf("got %q", sql)
	}
}

func TestGenerateRenameColumnSQL(t *testing.T) {
	sql := GenerateRenameColumnSQL("users", "nickname", "handle")
	if sql != "ALTER TABLE users RENAME COLUMN nickname TO handle" {
		t.Errorf("got %q", sql)
	}
}

func TestGenerateCreateIndexSQL(t *testing.T) {
	sql := GenerateCreateIndexSQL("users", []string{"email"}, IndexOptions{})
	if sql != "CREATE INDEX index_users_on_email ON users (email)" {
		t.Errorf("got %q", sql)
	}
}

func TestGenerateCreateIndexSQLMultiColumn(t *testing.T) {
	sql := GenerateCreateIndexSQL("users", []string{"last_name", "first_name"}, IndexOptions{})
	if sql != "CREATE INDEX index_users_on_last_name_first_name ON users (last_name, first_name)" {
		t.Errorf("got %q", sql)
	}
}

func TestGenerateCreateIndexSQLUnique(t *testing.T) {
	sql := GenerateCreateIndexSQL("users", []string{"email"}, IndexOptions{Unique: true})
	if !strings.HasPrefix(sql, "CREATE UNIQUE INDEX ") {
		t.Errorf("expected UNIQUE index, got %q", sql)
	}
}

func TestGenerateCreateIndexSQLCustomName(t *testing.T) {
	sql := GenerateCreateIndexSQL("users", []string{"email"}, IndexOptions{Name: "users_email_idx"})
	if sql != "CREATE INDEX users_email_idx ON users (email)" {
		t.Errorf("got %q", sql)
	}
}

func TestGenerateDropIndexSQL(t *testing.T) {
	sql := GenerateDropIndexSQL("users", []string{"email"}, IndexOptions{})
	if sql != "DROP INDEX index_users_on_email" {
		t.Errorf("got %q", sql)
	}
}

func TestColumnDefinitionToSQL(t *testing.T) {
	tests := []struct {
		name     string
		column   *ColumnDefinition
		expected string
	}{
		{
			"string default limit",
			NewColumn("name", ColumnString),
			"name VARCHAR(255)",
		},
		{
			"string custom limit",
			NewColumn("code", ColumnString).Limit(10),
			"code VARCHAR(10)",
		},
		{
			"not null with default",
			NewColumn("status", ColumnString).Nullable(false).Default("active"),
			"status VARCHAR(255) NOT NULL DEFAULT 'active'",
		},
		{
			"decimal defaults",
			NewColumn("price", ColumnDecimal),
			"price DECIMAL(10,2)",
		},
		{
			"decimal custom precision",
			NewColumn("rate", ColumnDecimal).Precision(8).Scale(4),
			"rate DECIMAL(8,4)",
		},
		{
			"integer auto increment",
			NewColumn("seq", ColumnInteger).AutoIncrement(true),
			"seq INT AUTO_INCREMENT",
		},
		{
			"boolean default true",
			NewColumn("active", ColumnBoolean).Default(true),
			"active BOOLEAN DEFAULT 1",
		},
		{
			"boolean default false",
			NewColumn("archived", ColumnBoolean).Default(false),
			"archived BOOLEAN DEFAULT 0",
		},
		{
			"datetime current timestamp",
			NewColumn("created_at", ColumnDatetime).Nullable(false).Default("CURRENT_TIMESTAMP"),
			"created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP",
		},
		{
			"comment",
			NewColumn("notes", ColumnText).Comment("free-form notes"),
			"notes TEXT COMMENT 'free-form notes'",
		},
		{
			"unknown type falls back to varchar",
			NewColumn("blob_of_mystery", "mystery"),
			"blob_of_mystery VARCHAR(255)",
		},
		{
			"binary",
			NewColumn("payload", ColumnBinary),
			"payload BLOB",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.column.ToSQL(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestColumnTypeMapping(t *testing.T) {
	typeChecks := map[string]string{
		ColumnText:      "TEXT",
		ColumnInteger:   "INT",
		ColumnBigint:    "BIGINT",
		ColumnFloat:     "FLOAT",
		ColumnBoolean:   "BOOLEAN",
		ColumnDate:      "DATE",
		ColumnDatetime:  "DATETIME",
		ColumnTimestamp: "TIMESTAMP",
		ColumnTime:      "TIME",
	}

	for columnType, sqlType := range typeChecks {
		column := NewColumn("c", columnType)
		if got := column.ToSQL(); got != "c "+sqlType {
			t.Errorf("%s: got %q, want %q", columnType, got, "c "+sqlType)
		}
	}
}
