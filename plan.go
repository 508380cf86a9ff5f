package docbase

// ExplainNode is a single entry of the parallel, human-readable
// presentation of an optimised plan tree (spec.md §4.3). The planner
// package builds a tree of these from its internal PlanNode representation;
// root only needs the shape so QueryResult can carry it across the wire.
type ExplainNode struct {
	Operation     string
	Properties    map[string]string
	Cost          float64
	EstimatedRows int64
	Depth         int
	Children      []*ExplainNode
}
