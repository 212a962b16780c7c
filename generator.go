package icebox

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Migration generation from a name plus column specs, the same shorthand
// the make:migration command accepts: create_items_table name:string
// price:decimal. Generated units carry both operations, so they satisfy the
// runner's contract out of the box.

var (
	createTablePattern  = regexp.MustCompile(`^create_(.+)_table$`)
	addColumnPattern    = regexp.MustCompile(`^add_(?:.+)_to_(.+)$`)
	removeColumnPattern = regexp.MustCompile(`^remove_(?:.+)_from_(.+)$`)
)

// MigrationName prefixes a slug with the current UTC timestamp, producing
// the sortable 14-digit form the runner orders by.
func MigrationName(slug string) string {
	return time.Now().UTC().Format("20060102150405") + "_" + slug
}

// SplitMigrationName separates the timestamp prefix from the slug. Names
// without a timestamp prefix come back with an empty timestamp.
func SplitMigrationName(name string) (timestamp, slug string) {
	if len(name) > 15 && name[14] == '_' && isDigits(name[:14]) {
		return name[:14], name[15:]
	}
	return "", name
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// MigrationIdentifier derives the unit identifier for a generated source
// file: Migration<timestamp>_<TitleCasedSlug>.
func MigrationIdentifier(name string) string {
	timestamp, slug := SplitMigrationName(name)
	return "Migration" + timestamp + "_" + titleCase(slug)
}

func titleCase(slug string) string {
	parts := strings.Split(slug, "_")
	for i, part := range parts {
		if part != "" {
			parts[i] = strings.ToUpper(part[:1]) + part[1:]
		}
	}
	return strings.Join(parts, "_")
}

// ParseColumnSpec turns a name:type shorthand into a column definition.
// A third segment supplies the string limit (title:string:100) or the
// decimal precision and scale (price:decimal:8,2).
func ParseColumnSpec(spec string) (*ColumnDefinition, error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return nil, newArgumentError("invalid column spec %q, want name:type", spec)
	}

	column := NewColumn(parts[0], parts[1])
	if len(parts) >= 3 && parts[2] != "" {
		switch parts[1] {
		case ColumnDecimal:
			var precision, scale int
			if n, _ := fmt.Sscanf(parts[2], "%d,%d", &precision, &scale); n >= 1 {
				column.Precision(precision)
				if n == 2 {
					column.Scale(scale)
				}
			}
		case ColumnString:
			var limit int
			if _, err := fmt.Sscanf(parts[2], "%d", &limit); err == nil {
				column.Limit(limit)
			}
		}
	}
	return column, nil
}

// GenerateMigration builds an in-memory migration unit from its name. The
// slug decides the shape: create_<table>_table pairs a table create with a
// drop, add_<x>_to_<table> pairs column adds with removes,
// remove_<x>_from_<table> is the inverse, and anything else yields an empty
// skeleton for hand-written bodies.
func GenerateMigration(name string, columnSpecs []string) (*Migration, error) {
	if name == "" {
		return nil, newArgumentError("migration name is empty")
	}
	if _, slug := SplitMigrationName(name); slug == name {
		name = MigrationName(name)
	}
	_, slug := SplitMigrationName(name)

	columns := make([]*ColumnDefinition, 0, len(columnSpecs))
	for _, spec := range columnSpecs {
		column, err := ParseColumnSpec(spec)
		if err != nil {
			return nil, err
		}
		columns = append(columns, column)
	}

	switch {
	case createTablePattern.MatchString(slug):
		table := createTablePattern.FindStringSubmatch(slug)[1]
		return &Migration{
			Name: name,
			Up: func(s *Schema) error {
				return s.CreateTable(table, func(b *Blueprint) {
					for _, column := range columns {
						b.add(column)
					}
				})
			},
			Down: func(s *Schema) error {
				return s.DropTable(table)
			},
		}, nil

	case addColumnPattern.MatchString(slug):
		table := addColumnPattern.FindStringSubmatch(slug)[1]
		return &Migration{
			Name: name,
			Up: func(s *Schema) error {
				for _, column := range columns {
					if err := s.AddColumn(table, column); err != nil {
						return err
					}
				}
				return nil
			},
			Down: func(s *Schema) error {
				for _, column := range columns {
					if err := s.RemoveColumn(table, column.Name()); err != nil {
						return err
					}
				}
				return nil
			},
		}, nil

	case removeColumnPattern.MatchString(slug):
		table := removeColumnPattern.FindStringSubmatch(slug)[1]
		return &Migration{
			Name: name,
			Up: func(s *Schema) error {
				for _, column := range columns {
					if err := s.RemoveColumn(table, column.Name()); err != nil {
						return err
					}
				}
				return nil
			},
			Down: func(s *Schema) error {
				for _, column := range columns {
					if err := s.AddColumn(table, column); err != nil {
						return err
					}
				}
				return nil
			},
		}, nil

	default:
		return &Migration{
			Name: name,
			Up:   func(*Schema) error { return nil },
			Down: func(*Schema) error { return nil },
		}, nil
	}
}

// RenderMigrationFile produces Go source for a generated migration so it
// can be committed and registered through its init function.
func RenderMigrationFile(packageName, name string, columnSpecs []string) (string, error) {
	if _, slug := SplitMigrationName(name); slug == name {
		name = MigrationName(name)
	}
	_, slug := SplitMigrationName(name)

	columns := make([]*ColumnDefinition, 0, len(columnSpecs))
	for _, spec := range columnSpecs {
		column, err := ParseColumnSpec(spec)
		if err != nil {
			return "", err
		}
		columns = append(columns, column)
	}

	var up, down string
	switch {
	case createTablePattern.MatchString(slug):
		table := createTablePattern.FindStringSubmatch(slug)[1]
		var body strings.Builder
		for _, column := range columns {
			body.WriteString("\t\t\t\t" + dslCall(column) + "\n")
		}
		up = fmt.Sprintf("return s.CreateTable(%q, func(t *icebox.Blueprint) {\n%s\t\t\t})", table, body.String())
		down = fmt.Sprintf("return s.DropTable(%q)", table)

	case addColumnPattern.MatchString(slug):
		table := addColumnPattern.FindStringSubmatch(slug)[1]
		up = columnLoop("AddColumn", table, columns)
		down = removeLoop(table, columns)

	case removeColumnPattern.MatchString(slug):
		table := removeColumnPattern.FindStringSubmatch(slug)[1]
		up = removeLoop(table, columns)
		down = columnLoop("AddColumn", table, columns)

	default:
		up = "return nil"
		down = "return nil"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "package %s\n\n", packageName)
	sb.WriteString("import \"github.com/icebox-go/icebox\"\n\n")
	fmt.Fprintf(&sb, "// %s\n", MigrationIdentifier(name))
	sb.WriteString("func init() {\n")
	sb.WriteString("\ticebox.RegisterMigration(&icebox.Migration{\n")
	fmt.Fprintf(&sb, "\t\tName: %q,\n", name)
	fmt.Fprintf(&sb, "\t\tUp: func(s *icebox.Schema) error {\n\t\t\t%s\n\t\t},\n", up)
	fmt.Fprintf(&sb, "\t\tDown: func(s *icebox.Schema) error {\n\t\t\t%s\n\t\t},\n", down)
	sb.WriteString("\t})\n")
	sb.WriteString("}\n")
	return sb.String(), nil
}

func columnLoop(method, table string, columns []*ColumnDefinition) string {
	var sb strings.Builder
	for i, column := range columns {
		if i > 0 {
			sb.WriteString("\t\t\t")
		}
		fmt.Fprintf(&sb, "if err := s.%s(%q, icebox.NewColumn(%q, %q)); err != nil {\n\t\t\t\treturn err\n\t\t\t}\n", method, table, column.Name(), column.Type())
	}
	sb.WriteString("\t\t\treturn nil")
	return sb.String()
}

func removeLoop(table string, columns []*ColumnDefinition) string {
	var sb strings.Builder
	for i, column := range columns {
		if i > 0 {
			sb.WriteString("\t\t\t")
		}
		fmt.Fprintf(&sb, "if err := s.RemoveColumn(%q, %q); err != nil {\n\t\t\t\treturn err\n\t\t\t}\n", table, column.Name())
	}
	sb.WriteString("\t\t\treturn nil")
	return sb.String()
}

// dslCall renders the blueprint call for one parsed column.
func dslCall(column *ColumnDefinition) string {
	switch column.Type() {
	case ColumnString:
		if column.limit > 0 {
			return fmt.Sprintf("t.String(%q, %d)", column.Name(), column.limit)
		}
		return fmt.Sprintf("t.String(%q)", column.Name())
	case ColumnText:
		return fmt.Sprintf("t.Text(%q)", column.Name())
	case ColumnInteger:
		return fmt.Sprintf("t.Integer(%q)", column.Name())
	case ColumnBigint:
		return fmt.Sprintf("t.Bigint(%q)", column.Name())
	case ColumnFloat:
		return fmt.Sprintf("t.Float(%q)", column.Name())
	case ColumnDecimal:
		if column.precision > 0 {
			return fmt.Sprintf("t.Decimal(%q, %d, %d)", column.Name(), column.precision, column.scale)
		}
		return fmt.Sprintf("t.Decimal(%q)", column.Name())
	case ColumnBoolean:
		return fmt.Sprintf("t.Boolean(%q)", column.Name())
	case ColumnDate:
		return fmt.Sprintf("t.Date(%q)", column.Name())
	case ColumnDatetime:
		return fmt.Sprintf("t.Datetime(%q)", column.Name())
	case ColumnTimestamp:
		return fmt.Sprintf("t.Timestamp(%q)", column.Name())
	case ColumnTime:
		return fmt.Sprintf("t.Time(%q)", column.Name())
	case ColumnBinary:
		return fmt.Sprintf("t.Binary(%q)", column.Name())
	default:
		return fmt.Sprintf("t.String(%q)", column.Name())
	}
}

// WriteMigrationFile renders a migration stub into the directory, creating
// it if needed, and returns the written path.
func WriteMigrationFile(directory, slug string, columnSpecs []string) (string, error) {
	name := MigrationName(slug)
	source, err := RenderMigrationFile("migrations", name, columnSpecs)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(directory, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(directory, name+".go")
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
