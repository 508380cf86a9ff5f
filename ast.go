package docbase

import "time"

// QueryKind discriminates the variants of the Query tree (spec.md §3).
type QueryKind string

const (
	QueryCreateDatabase QueryKind = "create_database"
	QueryDropDatabase   QueryKind = "drop_database"
	QueryListDatabases  QueryKind = "list_databases"
	QueryCreateTable    QueryKind = "create_table"
	QueryDropTable      QueryKind = "drop_table"
	QueryListTables     QueryKind = "list_tables"
	QueryTable          QueryKind = "table"
	QueryGet            QueryKind = "get"
	QueryGetAll         QueryKind = "get_all"
	QueryInsert         QueryKind = "insert"
	QueryUpdate         QueryKind = "update"
	QueryDelete         QueryKind = "delete"
	QueryFilter         QueryKind = "filter"
	QueryOrderBy        QueryKind = "order_by"
	QueryLimit          QueryKind = "limit"
	QuerySkip           QueryKind = "skip"
	QueryCount          QueryKind = "count"
	QueryPluck          QueryKind = "pluck"
	QueryWithout        QueryKind = "without"
	QueryExpression     QueryKind = "expression"
	QuerySubquery       QueryKind = "subquery"
)

// TableRef identifies a (database, table) pair. Database is used as given:
// an empty Database is not replaced by the reserved "default" database.
type TableRef struct {
	Database string
	Table    string
}

// SortOptions pairs a field path with a sort direction, as carried by an
// OrderBy query or a Cursor.
type SortOptions struct {
	Fields []SortField
}

// Query is the recursive query tree described by spec.md §3. Every
// non-terminal carries Source, pointing at the query it composes over.
// Only the fields relevant to Kind are populated.
type Query struct {
	Kind   QueryKind
	Source *Query

	// Database/table lifecycle.
	Database string
	Table    string

	// Table/Get/GetAll.
	TableRef TableRef
	Key      Expression
	Keys     []Expression

	// CreateTable. Schema is an optional raw JSON-schema document, stored
	// verbatim but never enforced against documents (spec.md §1 Non-goals,
	// SPEC_FULL.md §B).
	Schema string

	// Insert.
	Documents []Datum

	// Update.
	Patch Expression

	// Filter.
	Predicate Expression

	// OrderBy.
	Sort []SortField

	// Limit/Skip/Count are record-free; Count has no extra fields.
	Count int64

	// Pluck/Without.
	Fields []FieldRef

	// Expression/Subquery.
	Expr  Expression
	Query *Query

	// Options carries the ambient cursor/timeout/explain settings this
	// query was submitted with. Only the root of a pipeline needs it
	// populated; the planner reads it off the root.
	Options QueryOptions
}

// QueryOptions captures the ambient settings accompanying a Query,
// per spec.md §3.
type QueryOptions struct {
	Cursor    *Cursor
	TimeoutMs int64
	Explain   bool
	// Export requests a snapshot export of the scanned table alongside
	// normal evaluation (SPEC_FULL.md §C); zero value means "no export".
	Export bool
}

// DefaultTimeout is applied when QueryOptions.TimeoutMs is zero
// (spec.md §5).
const DefaultTimeout = 30 * time.Second

// DefaultBatchSize is the cursor page size used when unset (spec.md §3).
const DefaultBatchSize = 1000

// Cursor is both an input (where to resume) and an output (where the next
// page would resume). start_key is exclusive: a scan resuming from a
// cursor emits only keys strictly greater than StartKey (spec.md §3).
type Cursor struct {
	StartKey  string
	BatchSize uint32
	Sort      *SortOptions
}

// EffectiveBatchSize returns c.BatchSize or DefaultBatchSize if c is nil or
// zero.
func (c *Cursor) EffectiveBatchSize() uint32 {
	if c == nil || c.BatchSize == 0 {
		return DefaultBatchSize
	}
	return c.BatchSize
}

// ExpressionKind discriminates the variants of the Expression tree
// (spec.md §3).
type ExpressionKind string

const (
	ExprLiteral  ExpressionKind = "literal"
	ExprField    ExpressionKind = "field"
	ExprVariable ExpressionKind = "variable"
	ExprBinary   ExpressionKind = "binary"
	ExprUnary    ExpressionKind = "unary"
	ExprMatch    ExpressionKind = "match"
	ExprSubquery ExpressionKind = "subquery"
)

// BinaryOp enumerates the binary operators an Expression may carry.
type BinaryOp string

const (
	OpEq  BinaryOp = "eq"
	OpNe  BinaryOp = "ne"
	OpLt  BinaryOp = "lt"
	OpLe  BinaryOp = "le"
	OpGt  BinaryOp = "gt"
	OpGe  BinaryOp = "ge"
	OpAnd BinaryOp = "and"
	OpOr  BinaryOp = "or"
)

// UnaryOp enumerates the unary operators an Expression may carry.
type UnaryOp string

const (
	OpNot UnaryOp = "not"
)

// Expression is the recursive predicate/projection tree described by
// spec.md §3. Only the fields relevant to Kind are populated.
type Expression struct {
	Kind ExpressionKind

	Literal Datum
	Field   FieldRef
	Name    string // Variable

	BinOp BinaryOp
	Left  *Expression
	Right *Expression

	UnOp    UnaryOp
	Operand *Expression

	MatchValue   *Expression
	MatchPattern string
	MatchFlags   string

	Subquery *Query
}

// Lit builds a Literal expression.
func Lit(d Datum) Expression { return Expression{Kind: ExprLiteral, Literal: d} }

// FieldExpr builds a Field expression.
func FieldExpr(ref FieldRef) Expression { return Expression{Kind: ExprField, Field: ref} }

// Var builds a Variable expression.
func Var(name string) Expression { return Expression{Kind: ExprVariable, Name: name} }

// Binary builds a Binary expression.
func Binary(op BinaryOp, left, right Expression) Expression {
	return Expression{Kind: ExprBinary, BinOp: op, Left: &left, Right: &right}
}

// Unary builds a Unary expression.
func Unary(op UnaryOp, operand Expression) Expression {
	return Expression{Kind: ExprUnary, UnOp: op, Operand: &operand}
}

// Match builds a regex Match expression.
func Match(value Expression, pattern, flags string) Expression {
	return Expression{Kind: ExprMatch, MatchValue: &value, MatchPattern: pattern, MatchFlags: flags}
}

// IsLiteral reports whether e is a Literal expression.
func (e Expression) IsLiteral() bool { return e.Kind == ExprLiteral }
