package icebox

import "sync"

// Migration is one forward/backward schema-change unit. Its name carries a
// sortable 14-digit timestamp prefix (20060102150405_create_items_table),
// so lexicographic order equals chronological order. Units are registered
// with a Migrator rather than discovered through dynamic loading; both
// operations must be present or the runner refuses the unit.
type Migration struct {
	Name string
	Up   func(*Schema) error
	Down func(*Schema) error
}

// Schema is the imperative vocabulary available inside migration bodies.
// Every method builds SQL through the generators and executes it
// immediately on the connection.
type Schema struct {
	conn *Connection
}

// NewSchema binds the migration vocabulary to a connection.
func NewSchema(conn *Connection) *Schema {
	return &Schema{conn: conn}
}

// CreateTable builds a table from the blueprint callback and creates it,
// followed by any indexes the blueprint recorded. The callback runs exactly
// once; columns and indexes come from the same blueprint.
func (s *Schema) CreateTable(tableName string, callback func(*Blueprint)) error {
	blueprint := NewBlueprint(tableName)
	callback(blueprint)

	createSQL := GenerateCreateTableSQLForDriver(s.conn.Driver(), blueprint)
	if _, err := s.conn.Exec(createSQL); err != nil {
		return err
	}

	for _, index := range blueprint.Indexes() {
		if _, err := s.conn.Exec(GenerateCreateIndexSQL(tableName, index.Columns, index.Options)); err != nil {
			return err
		}
	}
	return nil
}

// DropTable drops the named table.
func (s *Schema) DropTable(tableName string) error {
	_, err := s.conn.Exec(GenerateDropTableSQL(tableName))
	return err
}

// AddColumn adds one column to an existing table.
func (s *Schema) AddColumn(tableName string, column *ColumnDefinition) error {
	_, err := s.conn.Exec(GenerateAddColumnSQL(tableName, column))
	return err
}

// RemoveColumn drops one column from an existing table.
func (s *Schema) RemoveColumn(tableName, columnName string) error {
	_, err := s.conn.Exec(GenerateDropColumnSQL(tableName, columnName))
	return err
}

// RenameColumn renames a column in place.
func (s *Schema) RenameColumn(tableName, oldName, newName string) error {
	_, err := s.conn.Exec(GenerateRenameColumnSQL(tableName, oldName, newName))
	return err
}

// AddIndex creates an index on the given columns.
func (s *Schema) AddIndex(tableName string, columns []string, options IndexOptions) error {
	_, err := s.conn.Exec(GenerateCreateIndexSQL(tableName, columns, options))
	return err
}

// RemoveIndex drops the index the naming rule derives for the columns.
func (s *Schema) RemoveIndex(tableName string, columns []string, options IndexOptions) error {
	_, err := s.conn.Exec(GenerateDropIndexSQL(tableName, columns, options))
	return err
}

// Execute runs raw SQL for migrations that outgrow the DSL.
func (s *Schema) Execute(sqlText string, params ...interface{}) error {
	_, err := s.conn.Exec(sqlText, params...)
	return err
}

var (
	registryMu sync.Mutex
	registry   []*Migration
)

// RegisterMigration adds a unit to the package-level registry. Generated
// migration files call this from their init functions so importing the
// migrations package is enough to make them visible.
func RegisterMigration(migration *Migration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = append(registry, migration)
}

// RegisteredMigrations returns a copy of the package-level registry.
func RegisteredMigrations() []*Migration {
	registryMu.Lock()
	defer registryMu.Unlock()
	out := make([]*Migration, len(registry))
	copy(out, registry)
	return out
}
