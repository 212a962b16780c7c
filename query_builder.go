package icebox

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Condition is one WHERE-clause fragment plus its bound parameters.
// Conditions compile in the order they were attached; AND is the default
// joiner unless a condition is wrapped with Or.
type Condition interface {
	render() (string, []interface{})
}

// Recognized operator tokens for the two- and three-argument Where forms.
// A two-argument call whose value collides with one of these is taken as an
// operator with a missing value; callers filtering for such literals must
// use the three-argument form.
var operatorTokens = map[string]bool{
	"=": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true,
	"LIKE": true, "IN": true, "NOT IN": true, "IS": true, "IS NOT": true,
	"BETWEEN": true,
}

func isOperatorToken(s string) bool {
	return operatorTokens[strings.ToUpper(s)]
}

type equalityCond struct {
	column string
	value  interface{}
}

func (c equalityCond) render() (string, []interface{}) {
	if c.value == nil {
		return c.column + " IS NULL", nil
	}
	return c.column + " = ?", []interface{}{c.value}
}

type comparisonCond struct {
	column   string
	operator string
	value    interface{}
}

func (c comparisonCond) render() (string, []interface{}) {
	if c.value == nil {
		switch c.operator {
		case "=":
			return c.column + " IS NULL", nil
		case "!=":
			return c.column + " IS NOT NULL", nil
		}
	}
	return fmt.Sprintf("%s %s ?", c.column, c.operator), []interface{}{c.value}
}

type nullCond struct {
	column string
	isNull bool
}

func (c nullCond) render() (string, []interface{}) {
	if c.isNull {
		return c.column + " IS NULL", nil
	}
	return c.column + " IS NOT NULL", nil
}

type setCond struct {
	column  string
	values  []interface{}
	negated bool
}

func (c setCond) render() (string, []interface{}) {
	placeholders := make([]string, len(c.values))
	for i := range c.values {
		placeholders[i] = "?"
	}
	keyword := "IN"
	if c.negated {
		keyword = "NOT IN"
	}
	return fmt.Sprintf("%s %s (%s)", c.column, keyword, strings.Join(placeholders, ", ")), c.values
}

type betweenCond struct {
	column    string
	low, high interface{}
}

func (c betweenCond) render() (string, []interface{}) {
	return c.column + " BETWEEN ? AND ?", []interface{}{c.low, c.high}
}

type orGroupCond struct {
	pairs map[string]interface{}
}

func (c orGroupCond) render() (string, []interface{}) {
	keys := make([]string, 0, len(c.pairs))
	for key := range c.pairs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	params := make([]interface{}, 0, len(keys))
	for _, key := range keys {
		if c.pairs[key] == nil {
			parts = append(parts, key+" IS NULL")
			continue
		}
		parts = append(parts, key+" = ?")
		params = append(params, c.pairs[key])
	}
	return "(" + strings.Join(parts, " OR ") + ")", params
}

type rawCond struct {
	sql    string
	params []interface{}
}

func (c rawCond) render() (string, []interface{}) {
	return c.sql, c.params
}

// disjunction marks a condition as OR-joined to the preceding clause. The
// OR keyword is baked into the rendered fragment; the join logic inspects
// the prefix instead of tracking a separate joiner.
type disjunction struct {
	inner Condition
}

func (c disjunction) render() (string, []interface{}) {
	fragment, params := c.inner.render()
	return "OR " + fragment, params
}

// Equals builds an equality condition. A nil value renders as IS NULL with
// no bound parameter.
func Equals(column string, value interface{}) Condition {
	return equalityCond{column: column, value: value}
}

// Compare builds a comparison condition with an explicit operator.
func Compare(column, operator string, value interface{}) Condition {
	return comparisonCond{column: column, operator: strings.ToUpper(operator), value: value}
}

// Raw builds a condition from a prewritten SQL fragment; the fragment is
// never parsed and its parameters are appended verbatim.
func Raw(sqlFragment string, params ...interface{}) Condition {
	return rawCond{sql: sqlFragment, params: params}
}

// Or wraps a condition so it OR-joins to the clause preceding it.
func Or(inner Condition) Condition {
	return disjunction{inner: inner}
}

// FromMap turns a column→value mapping into equality conditions in sorted
// key order. A single "or" key holding a nested mapping becomes an OR-group
// instead: every pair OR-joined together, the group AND-joined to whatever
// came before it.
func FromMap(pairs map[string]interface{}) []Condition {
	if len(pairs) == 1 {
		if nested, ok := pairs["or"].(map[string]interface{}); ok {
			return []Condition{orGroupCond{pairs: nested}}
		}
	}

	keys := make([]string, 0, len(pairs))
	for key := range pairs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	conditions := make([]Condition, 0, len(keys))
	for _, key := range keys {
		conditions = append(conditions, equalityCond{column: key, value: pairs[key]})
	}
	return conditions
}

// QueryBuilder accumulates conditions, ordering, pagination and column
// selection for one table, then compiles to a single parameterized SELECT.
// Builder methods chain; terminal methods execute. A builder should not be
// reused after a terminal call.
type QueryBuilder struct {
	conn       *Connection
	def        *ModelDefinition
	table      string
	selects    []string
	conditions []Condition
	orders     []string
	limitN     int
	offsetN    int
	err        error
}

func newQueryBuilder(conn *Connection, def *ModelDefinition) *QueryBuilder {
	return &QueryBuilder{
		conn:    conn,
		def:     def,
		table:   def.TableName(),
		limitN:  -1,
		offsetN: -1,
	}
}

// Table starts a query builder for an arbitrary table, with rows mapped to
// records keyed by id.
func (c *Connection) Table(tableName string) *QueryBuilder {
	return newQueryBuilder(c, &ModelDefinition{Table: tableName})
}

func (qb *QueryBuilder) setErr(err error) *QueryBuilder {
	if qb.err == nil {
		qb.err = err
	}
	return qb
}

// Err returns the first argument error recorded by a chained call.
func (qb *QueryBuilder) Err() error {
	return qb.err
}

// Where attaches filters. Call shapes, resolved in this order:
//
//	Where()                          no-op, returns the builder
//	Where(map[string]interface{})    equality per entry; {"or": {...}} is an OR-group
//	Where(sql, []interface{})        raw fragment with verbatim parameters
//	Where(column, value)             equality, unless value is an operator token
//	Where(column, operator, value)   explicit comparison / IN / BETWEEN / IS
//
// The operator-token check runs before the three-argument interpretation,
// so a two-argument call whose value is literally "LIKE" (or any other
// token) becomes an operator with a missing value.
func (qb *QueryBuilder) Where(args ...interface{}) *QueryBuilder {
	added, err := whereConditions(args)
	if err != nil {
		return qb.setErr(err)
	}
	qb.conditions = append(qb.conditions, added...)
	return qb
}

// OrWhere is Where with every resulting condition OR-joined to the clause
// before it.
func (qb *QueryBuilder) OrWhere(args ...interface{}) *QueryBuilder {
	added, err := whereConditions(args)
	if err != nil {
		return qb.setErr(err)
	}
	for _, cond := range added {
		qb.conditions = append(qb.conditions, disjunction{inner: cond})
	}
	return qb
}

// Filter attaches an explicitly constructed condition.
func (qb *QueryBuilder) Filter(cond Condition) *QueryBuilder {
	qb.conditions = append(qb.conditions, cond)
	return qb
}

func whereConditions(args []interface{}) ([]Condition, error) {
	switch len(args) {
	case 0:
		return nil, nil
	case 1:
		switch a := args[0].(type) {
		case nil:
			return nil, nil
		case map[string]interface{}:
			return FromMap(a), nil
		case Condition:
			return []Condition{a}, nil
		case string:
			return []Condition{rawCond{sql: a}}, nil
		default:
			return nil, newArgumentError("where: unsupported argument type %T", args[0])
		}
	case 2:
		column, ok := args[0].(string)
		if !ok {
			return nil, newArgumentError("where: column must be a string, got %T", args[0])
		}
		if params, ok := args[1].([]interface{}); ok {
			return []Condition{rawCond{sql: column, params: params}}, nil
		}
		if token, ok := args[1].(string); ok && isOperatorToken(token) {
			return []Condition{comparisonCond{column: column, operator: strings.ToUpper(token)}}, nil
		}
		return []Condition{equalityCond{column: column, value: args[1]}}, nil
	case 3:
		column, ok := args[0].(string)
		if !ok {
			return nil, newArgumentError("where: column must be a string, got %T", args[0])
		}
		operator, ok := args[1].(string)
		if !ok {
			return nil, newArgumentError("where: operator must be a string, got %T", args[1])
		}

		switch strings.ToUpper(operator) {
		case "IN", "NOT IN":
			values, ok := args[2].([]interface{})
			if !ok {
				return nil, newArgumentError("where: %s requires a value slice", strings.ToUpper(operator))
			}
			return []Condition{setCond{column: column, values: values, negated: strings.ToUpper(operator) == "NOT IN"}}, nil
		case "BETWEEN":
			values, ok := args[2].([]interface{})
			if !ok || len(values) != 2 {
				return nil, newArgumentError("whereBetween requires exactly 2 values")
			}
			return []Condition{betweenCond{column: column, low: values[0], high: values[1]}}, nil
		case "IS":
			return []Condition{nullCond{column: column, isNull: true}}, nil
		case "IS NOT":
			return []Condition{nullCond{column: column, isNull: false}}, nil
		default:
			return []Condition{comparisonCond{column: column, operator: strings.ToUpper(operator), value: args[2]}}, nil
		}
	default:
		return nil, newArgumentError("where: too many arguments (%d)", len(args))
	}
}

// WhereNull filters for rows where the column is NULL.
func (qb *QueryBuilder) WhereNull(column string) *QueryBuilder {
	return qb.Filter(nullCond{column: column, isNull: true})
}

// WhereNotNull filters for rows where the column is not NULL.
func (qb *QueryBuilder) WhereNotNull(column string) *QueryBuilder {
	return qb.Filter(nullCond{column: column, isNull: false})
}

// WhereIn filters for rows whose column value is in the set. One
// placeholder is bound per value.
func (qb *QueryBuilder) WhereIn(column string, values []interface{}) *QueryBuilder {
	return qb.Filter(setCond{column: column, values: values})
}

// WhereNotIn is the negated WhereIn.
func (qb *QueryBuilder) WhereNotIn(column string, values []interface{}) *QueryBuilder {
	return qb.Filter(setCond{column: column, values: values, negated: true})
}

// WhereBetween filters for rows whose column value lies between the two
// given bounds, inclusive. Anything other than exactly two values is an
// argument error.
func (qb *QueryBuilder) WhereBetween(column string, values []interface{}) *QueryBuilder {
	if len(values) != 2 {
		return qb.setErr(newArgumentError("whereBetween requires exactly 2 values"))
	}
	return qb.Filter(betweenCond{column: column, low: values[0], high: values[1]})
}

// Select replaces the selected columns. Columns may be given individually
// or comma-joined; calling with nothing, or with only empty strings, resets
// the selection to *.
func (qb *QueryBuilder) Select(columns ...string) *QueryBuilder {
	cleaned := make([]string, 0, len(columns))
	for _, column := range columns {
		for _, part := range strings.Split(column, ",") {
			if part = strings.TrimSpace(part); part != "" {
				cleaned = append(cleaned, part)
			}
		}
	}
	if len(cleaned) == 0 {
		qb.selects = nil
		return qb
	}
	qb.selects = cleaned
	return qb
}

// OrderBy appends a sort clause. Direction must be ASC or DESC in any case;
// repeated calls build a multi-column sort in call order.
func (qb *QueryBuilder) OrderBy(column, direction string) *QueryBuilder {
	normalized := strings.ToUpper(direction)
	if normalized != "ASC" && normalized != "DESC" {
		return qb.setErr(newArgumentError("orderBy direction must be ASC or DESC, got %q", direction))
	}
	qb.orders = append(qb.orders, column+" "+normalized)
	return qb
}

// Limit caps the row count, overwriting any prior limit.
func (qb *QueryBuilder) Limit(limit int) *QueryBuilder {
	qb.limitN = limit
	return qb
}

// Offset skips rows, overwriting any prior offset.
func (qb *QueryBuilder) Offset(offset int) *QueryBuilder {
	qb.offsetN = offset
	return qb
}

// buildWhereClause compiles the accumulated conditions in order. The first
// fragment is emitted bare; each later fragment is prefixed with AND unless
// its own rendered text already starts with OR.
func (qb *QueryBuilder) buildWhereClause() (string, []interface{}) {
	var sb strings.Builder
	var params []interface{}

	for i, cond := range qb.conditions {
		fragment, condParams := cond.render()
		if i > 0 {
			if strings.HasPrefix(strings.ToUpper(fragment), "OR ") {
				sb.WriteString(" ")
			} else {
				sb.WriteString(" AND ")
			}
		}
		sb.WriteString(fragment)
		params = append(params, condParams...)
	}

	return sb.String(), params
}

// CompileSelect renders the full SELECT plus its positional parameters.
// Compilation is pure: repeated calls on an unchanged builder yield
// byte-identical output.
func (qb *QueryBuilder) CompileSelect() (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if len(qb.selects) > 0 {
		sb.WriteString(strings.Join(qb.selects, ", "))
	} else {
		sb.WriteString("*")
	}
	sb.WriteString(" FROM ")
	sb.WriteString(qb.table)

	where, params := qb.buildWhereClause()
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}

	if len(qb.orders) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(qb.orders, ", "))
	}

	if qb.limitN >= 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT %d", qb.limitN))
	}
	if qb.offsetN >= 0 {
		sb.WriteString(fmt.Sprintf(" OFFSET %d", qb.offsetN))
	}

	return sb.String(), params
}

// Get executes the query and maps every row to a record marked as existing.
// The result is an empty slice, never nil, when nothing matches.
func (qb *QueryBuilder) Get() ([]*Record, error) {
	if qb.err != nil {
		return nil, qb.err
	}

	query, params := qb.CompileSelect()
	rows, err := qb.conn.Query(query, params...)
	if err != nil {
		return nil, err
	}

	records := make([]*Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, newRecordFromRow(qb.def, qb.conn, row))
	}
	return records, nil
}

// First executes the query with the limit forced to 1 and returns the
// single record, or nil when nothing matches.
func (qb *QueryBuilder) First() (*Record, error) {
	qb.limitN = 1
	records, err := qb.Get()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// Count executes SELECT COUNT(*) with only the WHERE clause applied;
// selection, ordering and pagination are ignored.
func (qb *QueryBuilder) Count() (int64, error) {
	if qb.err != nil {
		return 0, qb.err
	}

	var sb strings.Builder
	sb.WriteString("SELECT COUNT(*) FROM ")
	sb.WriteString(qb.table)

	where, params := qb.buildWhereClause()
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}

	rows, err := qb.conn.Query(sb.String(), params...)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	for _, value := range rows[0] {
		return toInt64(value), nil
	}
	return 0, nil
}

// Exists reports whether any row matches.
func (qb *QueryBuilder) Exists() (bool, error) {
	count, err := qb.Count()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ToSQL returns the compiled statement with parameter values interpolated
// inline. Diagnostics only: execution always binds parameters. The scan
// walks the compiled text once, so a substituted literal containing a
// question mark cannot swallow a later placeholder.
func (qb *QueryBuilder) ToSQL() string {
	query, params := qb.CompileSelect()

	var sb strings.Builder
	rest := query
	for _, param := range params {
		i := strings.Index(rest, "?")
		if i < 0 {
			break
		}
		sb.WriteString(rest[:i])
		sb.WriteString(quoteLiteral(param))
		rest = rest[i+1:]
	}
	sb.WriteString(rest)
	return sb.String()
}

func quoteLiteral(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case bool:
		if v {
			return "1"
		}
		return "0"
	case time.Time:
		return "'" + v.Format("2006-01-02 15:04:05") + "'"
	default:
		return fmt.Sprintf("%v", v)
	}
}

func toInt64(value interface{}) int64 {
	switch v := value.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		var n int64
		fmt.Sscanf(v, "%d", &n)
		return n
	case []byte:
		var n int64
		fmt.Sscanf(string(v), "%d", &n)
		return n
	default:
		return 0
	}
}
