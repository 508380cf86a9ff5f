package planner

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/lychee-technology/docbase"
)

// Explain renders n as the parallel, human-readable presentation spec.md
// §4.3 describes: per-node operation name, readable properties, cost,
// estimated rows, and indentation depth. Used when QueryOptions.Explain
// is true.
func Explain(n *Node, logger *zap.Logger) *docbase.ExplainNode {
	if logger == nil {
		logger = zap.NewNop()
	}
	out := explainAt(n, 0)
	logger.Debug("explain tree built", zap.String("operation", out.Operation), zap.Float64("cost", out.Cost))
	return out
}

func explainAt(n *Node, depth int) *docbase.ExplainNode {
	if n == nil {
		return nil
	}
	out := &docbase.ExplainNode{
		Operation:     string(n.Op),
		Properties:    explainProperties(n),
		Cost:          n.Cost,
		EstimatedRows: n.EstimatedRows,
		Depth:         depth,
	}
	if n.Source != nil {
		out.Children = append(out.Children, explainAt(n.Source, depth+1))
	}
	return out
}

func explainProperties(n *Node) map[string]string {
	props := make(map[string]string)
	switch n.Op {
	case OpTableScan:
		props["table"] = n.TableRef.Database + ":" + n.TableRef.Table
		if n.Filter != nil {
			props["filter"] = fmt.Sprintf("%+v", *n.Filter)
		}
	case OpGet:
		props["table"] = n.TableRef.Database + ":" + n.TableRef.Table
		props["key"] = n.Key
	case OpGetAll:
		props["table"] = n.TableRef.Database + ":" + n.TableRef.Table
		props["key_count"] = strconv.Itoa(len(n.Keys))
	case OpInsert:
		props["table"] = n.TableRef.Database + ":" + n.TableRef.Table
		props["document_count"] = strconv.Itoa(len(n.Documents))
	case OpFilter:
		props["selectivity"] = strconv.FormatFloat(n.Selectivity, 'f', 3, 64)
	case OpLimit, OpSkip:
		props["count"] = strconv.FormatInt(n.Count, 10)
	case OpOrderBy:
		props["sort_fields"] = strconv.Itoa(len(n.Sort))
	case OpPluck, OpWithout:
		props["field_count"] = strconv.Itoa(len(n.Fields))
	case OpCreateTable, OpDropTable:
		props["table"] = n.TableRef.Database + ":" + n.TableRef.Table
		if n.Op == OpCreateTable && n.Schema != "" {
			props["has_schema"] = "true"
		}
	case OpCreateDatabase, OpDropDatabase, OpListTables:
		props["database"] = n.Database
	}
	return props
}
