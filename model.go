package icebox

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
	"unicode"
)

// ModelDefinition describes one entity type: its table, its primary key and
// the name used to infer the table when none is configured. Definitions are
// the query entry point; there is no class-level static state.
type ModelDefinition struct {
	Name       string
	Table      string
	PrimaryKey string
}

// TableName returns the configured table, or the name snake-cased with a
// trailing s. The suffix rule is deliberately simple, not an English
// pluralization engine.
func (d *ModelDefinition) TableName() string {
	if d.Table != "" {
		return d.Table
	}
	return tableize(d.Name)
}

func (d *ModelDefinition) primaryKey() string {
	if d.PrimaryKey != "" {
		return d.PrimaryKey
	}
	return "id"
}

func tableize(name string) string {
	var sb strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String() + "s"
}

// Query starts a builder bound to this entity.
func (d *ModelDefinition) Query(conn *Connection) *QueryBuilder {
	return newQueryBuilder(conn, d)
}

// Find looks an entity up by primary key. Returns nil without error when no
// row matches.
func (d *ModelDefinition) Find(conn *Connection, id interface{}) (*Record, error) {
	return d.Query(conn).Where(d.primaryKey(), id).First()
}

// New builds a transient record from an attribute map; it has no durable
// identity until saved.
func (d *ModelDefinition) New(conn *Connection, attributes map[string]interface{}) *Record {
	if attributes == nil {
		attributes = make(map[string]interface{})
	}
	return &Record{
		def:        d,
		conn:       conn,
		attributes: attributes,
		original:   make(map[string]interface{}),
	}
}

// Record is one entity instance: a string-keyed attribute map, a snapshot
// of the last persisted state for dirty-diffing, and an existence flag that
// picks the insert or update path on save.
type Record struct {
	def        *ModelDefinition
	conn       *Connection
	attributes map[string]interface{}
	original   map[string]interface{}
	exists     bool
}

func newRecordFromRow(def *ModelDefinition, conn *Connection, row map[string]interface{}) *Record {
	attributes := make(map[string]interface{}, len(row))
	original := make(map[string]interface{}, len(row))
	for key, value := range row {
		attributes[key] = value
		original[key] = value
	}
	return &Record{
		def:        def,
		conn:       conn,
		attributes: attributes,
		original:   original,
		exists:     true,
	}
}

// Exists reports whether the record has durable identity in the database.
func (r *Record) Exists() bool {
	return r.exists
}

// Get returns an attribute value and whether it is set.
func (r *Record) Get(key string) (interface{}, bool) {
	value, ok := r.attributes[key]
	return value, ok
}

// GetString returns the attribute as a string, or "" when unset or not
// string-shaped.
func (r *Record) GetString(key string) string {
	switch v := r.attributes[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// GetInt64 returns the attribute as an int64, or 0 when unset.
func (r *Record) GetInt64(key string) int64 {
	return toInt64(r.attributes[key])
}

// GetFloat64 returns the attribute as a float64, or 0 when unset.
func (r *Record) GetFloat64(key string) float64 {
	switch v := r.attributes[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case string:
		var f float64
		fmt.Sscanf(v, "%g", &f)
		return f
	default:
		return 0
	}
}

// GetBool returns the attribute as a bool; numeric attributes follow the
// SQL convention of nonzero meaning true.
func (r *Record) GetBool(key string) bool {
	switch v := r.attributes[key].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case int:
		return v != 0
	case string:
		return v == "1" || strings.EqualFold(v, "true")
	default:
		return false
	}
}

// GetTime returns the attribute as a time.Time, parsing the common SQL
// datetime format when the driver reported a string.
func (r *Record) GetTime(key string) (time.Time, bool) {
	switch v := r.attributes[key].(type) {
	case time.Time:
		return v, true
	case string:
		if t, err := time.Parse("2006-01-02 15:04:05", v); err == nil {
			return t, true
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Set assigns one attribute.
func (r *Record) Set(key string, value interface{}) *Record {
	r.attributes[key] = value
	return r
}

// Attributes returns a copy of the current attribute map.
func (r *Record) Attributes() map[string]interface{} {
	copied := make(map[string]interface{}, len(r.attributes))
	for key, value := range r.attributes {
		copied[key] = value
	}
	return copied
}

// PrimaryKeyValue returns the current primary key attribute, if present.
func (r *Record) PrimaryKeyValue() (interface{}, bool) {
	value, ok := r.attributes[r.def.primaryKey()]
	if !ok || value == nil {
		return nil, false
	}
	return value, true
}

// GetDirty returns the attributes whose value differs from, or is absent
// from, the last persisted snapshot.
func (r *Record) GetDirty() map[string]interface{} {
	dirty := make(map[string]interface{})
	for key, value := range r.attributes {
		originalValue, ok := r.original[key]
		if !ok || !reflect.DeepEqual(originalValue, value) {
			dirty[key] = value
		}
	}
	return dirty
}

// IsDirty reports whether any attribute changed since the last save/load.
func (r *Record) IsDirty() bool {
	return len(r.GetDirty()) > 0
}

func (r *Record) syncOriginal() {
	r.original = make(map[string]interface{}, len(r.attributes))
	for key, value := range r.attributes {
		r.original[key] = value
	}
}

// Save inserts when the record has no durable identity yet, updates
// otherwise.
func (r *Record) Save() (bool, error) {
	if r.exists {
		return r.Update()
	}
	return r.Insert()
}

// Insert writes all current attributes as a new row, captures the
// driver-reported id into the primary key attribute, marks the record as
// existing and resets the dirty baseline.
func (r *Record) Insert() (bool, error) {
	columns := make([]string, 0, len(r.attributes))
	for column := range r.attributes {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	placeholders := make([]string, len(columns))
	values := make([]interface{}, len(columns))
	for i, column := range columns {
		placeholders[i] = r.placeholder(i + 1)
		values[i] = r.attributes[column]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		r.def.TableName(),
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "))

	result, err := r.conn.Exec(query, values...)
	if err != nil {
		return false, err
	}

	if id, err := result.LastInsertId(); err == nil && id > 0 {
		if _, set := r.attributes[r.def.primaryKey()]; !set {
			r.attributes[r.def.primaryKey()] = id
		}
	}

	r.exists = true
	r.syncOriginal()
	return true, nil
}

// Update writes all current attributes to the row keyed by primary key.
// Returns false without error when no primary key value is present.
func (r *Record) Update() (bool, error) {
	pk := r.def.primaryKey()
	pkValue, ok := r.PrimaryKeyValue()
	if !ok {
		return false, nil
	}

	columns := make([]string, 0, len(r.attributes))
	for column := range r.attributes {
		if column != pk {
			columns = append(columns, column)
		}
	}
	sort.Strings(columns)

	setParts := make([]string, len(columns))
	values := make([]interface{}, 0, len(columns)+1)
	for i, column := range columns {
		setParts[i] = fmt.Sprintf("%s = %s", column, r.placeholder(i+1))
		values = append(values, r.attributes[column])
	}
	values = append(values, pkValue)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		r.def.TableName(),
		strings.Join(setParts, ", "),
		pk,
		r.placeholder(len(columns)+1))

	if _, err := r.conn.Exec(query, values...); err != nil {
		return false, err
	}

	r.syncOriginal()
	return true, nil
}

// Delete removes the row keyed by primary key. Returns false without error
// when the record does not exist or has no primary key value. Attributes
// stay in memory; only the existence flag flips.
func (r *Record) Delete() (bool, error) {
	if !r.exists {
		return false, nil
	}
	pkValue, ok := r.PrimaryKeyValue()
	if !ok {
		return false, nil
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
		r.def.TableName(), r.def.primaryKey(), r.placeholder(1))

	if _, err := r.conn.Exec(query, pkValue); err != nil {
		return false, err
	}

	r.exists = false
	return true, nil
}

// UpdateAttributes merges the given map into the record and saves.
func (r *Record) UpdateAttributes(attributes map[string]interface{}) (bool, error) {
	for key, value := range attributes {
		r.attributes[key] = value
	}
	return r.Save()
}

func (r *Record) placeholder(position int) string {
	if r.conn.Driver() == "postgres" {
		return fmt.Sprintf("$%d", position)
	}
	return "?"
}
