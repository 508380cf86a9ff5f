// Package planner builds a cost-annotated PlanNode tree from a Query and
// rewrites it to a fixed point: constant folding, predicate pushdown,
// adjacent-operator merging, and cost repricing (spec.md §4.3).
package planner

import "github.com/lychee-technology/docbase"

// Op discriminates the variant a PlanNode holds.
type Op string

const (
	OpConstant        Op = "constant"
	OpCreateDatabase  Op = "create_database"
	OpDropDatabase    Op = "drop_database"
	OpCreateTable     Op = "create_table"
	OpDropTable       Op = "drop_table"
	OpListDatabases   Op = "list_databases"
	OpListTables      Op = "list_tables"
	OpTableScan       Op = "table_scan"
	OpGet             Op = "get"
	OpGetAll          Op = "get_all"
	OpInsert          Op = "insert"
	OpUpdate          Op = "update"
	OpDelete          Op = "delete"
	OpFilter          Op = "filter"
	OpOrderBy         Op = "order_by"
	OpLimit           Op = "limit"
	OpSkip            Op = "skip"
	OpCount           Op = "count"
	OpPluck           Op = "pluck"
	OpWithout         Op = "without"
	OpSubquery        Op = "subquery"
)

// Node is a single plan node. Only the fields relevant to Op are
// populated. Cost and EstimatedRows follow spec.md §4.3's cost table;
// they are design-level ordinals, not wall-clock estimates.
type Node struct {
	Op Op

	Source *Node

	Cost          float64
	EstimatedRows int64
	Selectivity   float64

	// Constant.
	Value docbase.Datum

	// CreateDatabase/DropDatabase/ListTables.
	Database string

	// CreateTable/DropTable/TableScan/Get/GetAll.
	TableRef docbase.TableRef

	// CreateTable: optional raw JSON-schema document (spec.md §1 Non-goals,
	// SPEC_FULL.md §B — stored but never enforced).
	Schema string

	// Export mirrors QueryOptions.Export on the root node: the evaluator
	// triggers a one-off snapshot export after completing the scan this
	// plan already performs (SPEC_FULL.md §C).
	Export bool

	// TableScan: an already-pushed predicate to evaluate inside the scan.
	Filter *docbase.Expression
	Cursor *docbase.Cursor

	// Get.
	Key string
	// GetAll.
	Keys []string

	// Insert.
	Documents []docbase.Datum

	// Update.
	Patch docbase.Expression

	// Filter (standalone, not yet pushed into a scan).
	Predicate docbase.Expression

	// OrderBy.
	Sort []docbase.SortField

	// Limit/Skip.
	Count int64

	// Pluck/Without.
	Fields []docbase.FieldRef

	// Subquery.
	Query *docbase.Query

	// Explain (carried through to pair with every node at explain time).
	TimeoutMs int64
}
