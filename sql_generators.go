package icebox

import (
	"fmt"
	"strings"
)

// Pure DDL string generators. Nothing here touches a connection, which
// keeps every format independently testable.

// GenerateCreateTableSQL invokes the callback with a fresh blueprint and
// renders the CREATE TABLE statement in the generic dialect. An
// auto-increment id primary key is always prepended; callers cannot opt
// out.
func GenerateCreateTableSQL(tableName string, callback func(*Blueprint)) string {
	blueprint := NewBlueprint(tableName)
	callback(blueprint)
	return GenerateCreateTableSQLForDriver("", blueprint)
}

// GenerateCreateTableSQLForDriver renders CREATE TABLE from an already
// populated blueprint, with the implicit id column in the driver's
// auto-increment form. An empty driver yields the generic dialect.
func GenerateCreateTableSQLForDriver(driver string, blueprint *Blueprint) string {
	parts := []string{"  " + implicitIDColumn(driver)}
	for _, column := range blueprint.Columns() {
		parts = append(parts, "  "+column.ToSQL())
	}

	return fmt.Sprintf("CREATE TABLE %s (\n%s\n)", blueprint.Table(), strings.Join(parts, ",\n"))
}

// implicitIDColumn renders the always-prepended primary key. sqlite3 only
// auto-populates the exact INTEGER PRIMARY KEY form (it aliases rowid;
// AUTO_INCREMENT parses as part of a type name and does nothing), and
// postgres has no AUTO_INCREMENT keyword at all.
func implicitIDColumn(driver string) string {
	switch driver {
	case "sqlite3":
		return "id INTEGER PRIMARY KEY AUTOINCREMENT"
	case "postgres":
		return "id SERIAL PRIMARY KEY"
	default:
		return "id INT AUTO_INCREMENT PRIMARY KEY"
	}
}

// GenerateDropTableSQL renders a DROP TABLE statement.
func GenerateDropTableSQL(tableName string) string {
	return fmt.Sprintf("DROP TABLE %s", tableName)
}

// GenerateAddColumnSQL renders an ALTER TABLE ... ADD COLUMN statement.
func GenerateAddColumnSQL(tableName string, column *ColumnDefinition) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", tableName, column.ToSQL())
}

// GenerateDropColumnSQL renders an ALTER TABLE ... DROP COLUMN statement.
func GenerateDropColumnSQL(tableName, columnName string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", tableName, columnName)
}

// GenerateRenameColumnSQL renders an ALTER TABLE ... RENAME COLUMN statement.
func GenerateRenameColumnSQL(tableName, oldName, newName string) string {
	return fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s", tableName, oldName, newName)
}

// GenerateCreateIndexSQL renders a CREATE INDEX statement. The index name
// defaults to index_<table>_on_<col1>_<col2>... unless options name one.
func GenerateCreateIndexSQL(tableName string, columns []string, options IndexOptions) string {
	unique := ""
	if options.Unique {
		unique = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)",
		unique, indexName(tableName, columns, options), tableName, strings.Join(columns, ", "))
}

// GenerateDropIndexSQL renders a DROP INDEX statement using the same naming
// rule as GenerateCreateIndexSQL.
func GenerateDropIndexSQL(tableName string, columns []string, options IndexOptions) string {
	return fmt.Sprintf("DROP INDEX %s", indexName(tableName, columns, options))
}

func indexName(tableName string, columns []string, options IndexOptions) string {
	if options.Name != "" {
		return options.Name
	}
	return fmt.Sprintf("index_%s_on_%s", tableName, strings.Join(columns, "_"))
}
