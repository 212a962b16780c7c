package icebox

import (
	"fmt"
	"strings"
)

// Column types understood by the schema DSL. Anything else falls back to
// VARCHAR(255) when rendered.
const (
	ColumnString    = "string"
	ColumnText      = "text"
	ColumnInteger   = "integer"
	ColumnBigint    = "bigint"
	ColumnFloat     = "float"
	ColumnDecimal   = "decimal"
	ColumnBoolean   = "boolean"
	ColumnDate      = "date"
	ColumnDatetime  = "datetime"
	ColumnTimestamp = "timestamp"
	ColumnTime      = "time"
	ColumnBinary    = "binary"
)

// ColumnDefinition describes one column: its fixed type plus modifiers
// accumulated through the fluent chain before the definition is rendered.
type ColumnDefinition struct {
	name          string
	columnType    string
	nullable      bool
	hasDefault    bool
	defaultValue  interface{}
	precision     int
	scale         int
	limit         int
	autoIncrement bool
	comment       string
}

// NewColumn creates a column definition. The type is fixed at construction;
// everything else mutates through the fluent setters.
func NewColumn(name, columnType string) *ColumnDefinition {
	return &ColumnDefinition{
		name:       name,
		columnType: columnType,
		nullable:   true,
	}
}

// Name returns the column name.
func (c *ColumnDefinition) Name() string {
	return c.name
}

// Type returns the column type.
func (c *ColumnDefinition) Type() string {
	return c.columnType
}

// Nullable marks whether the column accepts NULL. Columns are nullable
// unless told otherwise.
func (c *ColumnDefinition) Nullable(nullable bool) *ColumnDefinition {
	c.nullable = nullable
	return c
}

// Default sets the column default value.
func (c *ColumnDefinition) Default(value interface{}) *ColumnDefinition {
	c.hasDefault = true
	c.defaultValue = value
	return c
}

// Precision sets the total digit count for decimal columns.
func (c *ColumnDefinition) Precision(precision int) *ColumnDefinition {
	c.precision = precision
	return c
}

// Scale sets the fractional digit count for decimal columns.
func (c *ColumnDefinition) Scale(scale int) *ColumnDefinition {
	c.scale = scale
	return c
}

// Limit sets the length for string columns.
func (c *ColumnDefinition) Limit(limit int) *ColumnDefinition {
	c.limit = limit
	return c
}

// AutoIncrement marks the column auto-incrementing.
func (c *ColumnDefinition) AutoIncrement(autoIncrement bool) *ColumnDefinition {
	c.autoIncrement = autoIncrement
	return c
}

// Comment attaches a comment to the column.
func (c *ColumnDefinition) Comment(comment string) *ColumnDefinition {
	c.comment = comment
	return c
}

// ToSQL renders the column as a DDL fragment:
//
//	<name> <TYPE>[(size)] [NOT NULL] [DEFAULT <literal>] [AUTO_INCREMENT] [COMMENT '<text>']
//
// Column names and defaults are trusted inputs; no quote escaping is done.
func (c *ColumnDefinition) ToSQL() string {
	var sb strings.Builder
	sb.WriteString(c.name)
	sb.WriteString(" ")
	sb.WriteString(c.typeSQL())

	if !c.nullable {
		sb.WriteString(" NOT NULL")
	}

	if c.hasDefault {
		sb.WriteString(" DEFAULT ")
		sb.WriteString(renderDefault(c.defaultValue))
	}

	if c.autoIncrement {
		sb.WriteString(" AUTO_INCREMENT")
	}

	if c.comment != "" {
		sb.WriteString(fmt.Sprintf(" COMMENT '%s'", c.comment))
	}

	return sb.String()
}

func (c *ColumnDefinition) typeSQL() string {
	switch c.columnType {
	case ColumnString:
		limit := c.limit
		if limit <= 0 {
			limit = 255
		}
		return fmt.Sprintf("VARCHAR(%d)", limit)
	case ColumnText:
		return "TEXT"
	case ColumnInteger:
		return "INT"
	case ColumnBigint:
		return "BIGINT"
	case ColumnFloat:
		return "FLOAT"
	case ColumnDecimal:
		precision, scale := c.precision, c.scale
		if precision <= 0 {
			precision = 10
		}
		if scale <= 0 {
			scale = 2
		}
		return fmt.Sprintf("DECIMAL(%d,%d)", precision, scale)
	case ColumnBoolean:
		return "BOOLEAN"
	case ColumnDate:
		return "DATE"
	case ColumnDatetime:
		return "DATETIME"
	case ColumnTimestamp:
		return "TIMESTAMP"
	case ColumnTime:
		return "TIME"
	case ColumnBinary:
		return "BLOB"
	default:
		return "VARCHAR(255)"
	}
}

func renderDefault(value interface{}) string {
	switch v := value.(type) {
	case string:
		// CURRENT_TIMESTAMP and NULL pass through as SQL keywords
		upper := strings.ToUpper(v)
		if upper == "CURRENT_TIMESTAMP" || upper == "NULL" {
			return v
		}
		return fmt.Sprintf("'%s'", v)
	case bool:
		if v {
			return "1"
		}
		return "0"
	case nil:
		return "NULL"
	default:
		return fmt.Sprintf("%v", v)
	}
}
