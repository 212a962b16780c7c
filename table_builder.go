package icebox

// Blueprint accumulates column definitions and index specifications for one
// table. A blueprint lives for a single createTable invocation and is
// consumed once by the SQL generator; insertion order becomes column order
// in the generated DDL.
type Blueprint struct {
	table   string
	columns []*ColumnDefinition
	indexes []IndexSpec
}

// IndexSpec records an index on one or more columns. SQL is generated with
// the rest of the table, or separately in ALTER contexts.
type IndexSpec struct {
	Columns []string
	Options IndexOptions
}

// IndexOptions controls index generation.
type IndexOptions struct {
	Unique bool
	Name   string
}

// NewBlueprint creates a blueprint for the named table.
func NewBlueprint(table string) *Blueprint {
	return &Blueprint{table: table}
}

// Table returns the table name the blueprint describes.
func (b *Blueprint) Table() string {
	return b.table
}

// Columns returns the accumulated column definitions in insertion order.
func (b *Blueprint) Columns() []*ColumnDefinition {
	return b.columns
}

// Indexes returns the accumulated index specifications in insertion order.
func (b *Blueprint) Indexes() []IndexSpec {
	return b.indexes
}

func (b *Blueprint) add(column *ColumnDefinition) *ColumnDefinition {
	b.columns = append(b.columns, column)
	return column
}

// String adds a VARCHAR column, 255 wide unless a limit is given.
func (b *Blueprint) String(name string, limit ...int) *ColumnDefinition {
	column := NewColumn(name, ColumnString)
	if len(limit) > 0 {
		column.Limit(limit[0])
	}
	return b.add(column)
}

// Text adds a TEXT column.
func (b *Blueprint) Text(name string) *ColumnDefinition {
	return b.add(NewColumn(name, ColumnText))
}

// Integer adds an INT column, optionally auto-incrementing.
func (b *Blueprint) Integer(name string, autoIncrement ...bool) *ColumnDefinition {
	column := NewColumn(name, ColumnInteger)
	if len(autoIncrement) > 0 && autoIncrement[0] {
		column.AutoIncrement(true)
	}
	return b.add(column)
}

// Bigint adds a BIGINT column.
func (b *Blueprint) Bigint(name string) *ColumnDefinition {
	return b.add(NewColumn(name, ColumnBigint))
}

// Float adds a FLOAT column.
func (b *Blueprint) Float(name string) *ColumnDefinition {
	return b.add(NewColumn(name, ColumnFloat))
}

// Decimal adds a DECIMAL column, defaulting to precision 10 scale 2.
func (b *Blueprint) Decimal(name string, precisionScale ...int) *ColumnDefinition {
	column := NewColumn(name, ColumnDecimal)
	if len(precisionScale) > 0 {
		column.Precision(precisionScale[0])
	}
	if len(precisionScale) > 1 {
		column.Scale(precisionScale[1])
	}
	return b.add(column)
}

// Boolean adds a BOOLEAN column.
func (b *Blueprint) Boolean(name string) *ColumnDefinition {
	return b.add(NewColumn(name, ColumnBoolean))
}

// Date adds a DATE column.
func (b *Blueprint) Date(name string) *ColumnDefinition {
	return b.add(NewColumn(name, ColumnDate))
}

// Datetime adds a DATETIME column.
func (b *Blueprint) Datetime(name string) *ColumnDefinition {
	return b.add(NewColumn(name, ColumnDatetime))
}

// Timestamp adds a TIMESTAMP column.
func (b *Blueprint) Timestamp(name string) *ColumnDefinition {
	return b.add(NewColumn(name, ColumnTimestamp))
}

// Time adds a TIME column.
func (b *Blueprint) Time(name string) *ColumnDefinition {
	return b.add(NewColumn(name, ColumnTime))
}

// Binary adds a BLOB column.
func (b *Blueprint) Binary(name string) *ColumnDefinition {
	return b.add(NewColumn(name, ColumnBinary))
}

// Timestamps adds the created_at/updated_at bookkeeping pair: non-null
// datetime columns defaulting to CURRENT_TIMESTAMP.
func (b *Blueprint) Timestamps() {
	b.Datetime("created_at").Nullable(false).Default("CURRENT_TIMESTAMP")
	b.Datetime("updated_at").Nullable(false).Default("CURRENT_TIMESTAMP")
}

// Index records an index specification without emitting SQL immediately.
func (b *Blueprint) Index(columns []string, options ...IndexOptions) {
	spec := IndexSpec{Columns: columns}
	if len(options) > 0 {
		spec.Options = options[0]
	}
	b.indexes = append(b.indexes, spec)
}
