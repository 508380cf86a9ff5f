package planner

import (
	"go.uber.org/zap"

	"github.com/lychee-technology/docbase"
	"github.com/lychee-technology/docbase/internal/expr"
)

// Optimizer rewrites a Node tree to a fixed point, applying constant
// folding, predicate pushdown, adjacent-operator merging, and cost
// repricing in order until a pass makes no change, bounded at MaxPasses
// iterations so rewriting terminates (spec.md §4.3). Its shape — a
// New() constructor, one entry point, per-pass helper methods — follows
// the teacher's Optimizer type.
type Optimizer struct {
	logger    *zap.Logger
	maxPasses int
	folds     *foldCache
}

// New constructs an Optimizer. A non-positive maxPasses defaults to 8.
func New(logger *zap.Logger, maxPasses int) *Optimizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxPasses <= 0 {
		maxPasses = 8
	}
	return &Optimizer{logger: logger, maxPasses: maxPasses, folds: newFoldCache()}
}

// Optimize rewrites root to a fixed point and reprices the final tree.
//
// Rewrite rules are free to replace the root node outright (e.g. folding
// Filter(source, true) down to source), which would otherwise silently
// drop Export: it is set once, by Build, on the original root and belongs
// to the query as a whole rather than to whichever node happens to sit on
// top, so it is carried forward onto whatever node ends up on top.
func (o *Optimizer) Optimize(root *Node) *Node {
	wantExport := root.Export
	cur := root
	for i := 0; i < o.maxPasses; i++ {
		next, changed := o.pass(cur)
		if !changed {
			next.Export = next.Export || wantExport
			repriceTree(next)
			return next
		}
		cur = next
	}
	o.logger.Debug("optimizer reached max passes without reaching a fixed point",
		zap.Int("maxPasses", o.maxPasses))
	cur.Export = cur.Export || wantExport
	repriceTree(cur)
	return cur
}

// pass applies one bottom-up rewrite over the tree: children are
// rewritten first, then fold/pushdown/merge rules fire at this node
// given its (possibly already rewritten) source.
func (o *Optimizer) pass(n *Node) (*Node, bool) {
	if n == nil {
		return nil, false
	}

	changedBelow := false
	if n.Source != nil {
		newSource, ch := o.pass(n.Source)
		n.Source = newSource
		changedBelow = ch
	}

	rewritten, changedHere := o.rewriteNode(n)
	return rewritten, changedBelow || changedHere
}

func (o *Optimizer) rewriteNode(n *Node) (*Node, bool) {
	changed := false

	// 1. Constant folding of any carried expression.
	switch n.Op {
	case OpFilter:
		folded := o.fold(n.Predicate)
		if exprKey(folded) != exprKey(n.Predicate) {
			n.Predicate = folded
			changed = true
		}
		if folded.IsLiteral() {
			if folded.Literal.Truthy() {
				// Filter(source, true) -> source.
				return n.Source, true
			}
			// Filter(source, false) -> Constant(empty array).
			return &Node{Op: OpConstant, Value: docbase.NewArray(nil)}, true
		}
	case OpTableScan:
		if n.Filter != nil {
			folded := o.fold(*n.Filter)
			if exprKey(folded) != exprKey(*n.Filter) {
				n.Filter = &folded
				changed = true
			}
		}
	}

	// 2. Predicate pushdown: Filter(TableScan{filter:F0}) -> TableScan{filter: AND(F0,P)}.
	if n.Op == OpFilter && n.Source != nil && n.Source.Op == OpTableScan {
		scan := n.Source
		merged := n.Predicate
		if scan.Filter != nil {
			merged = docbase.Binary(docbase.OpAnd, *scan.Filter, n.Predicate)
		}
		scan.Filter = &merged
		return scan, true
	}

	// Filter over Limit/Skip: push the filter below, preserving the
	// Limit/Skip above it (filtering before limiting is only correct
	// when Limit/Skip still applies after the rewrite).
	if n.Op == OpFilter && n.Source != nil && (n.Source.Op == OpLimit || n.Source.Op == OpSkip) {
		wrapper := n.Source
		inner := wrapper.Source
		pushedFilter := &Node{Op: OpFilter, Source: inner, Predicate: n.Predicate}
		rewrittenInner, _ := o.rewriteNode(pushedFilter)
		wrapper.Source = rewrittenInner
		return wrapper, true
	}

	// 3. Adjacent merge.
	switch n.Op {
	case OpFilter:
		if n.Source != nil && n.Source.Op == OpFilter {
			merged := docbase.Binary(docbase.OpAnd, n.Source.Predicate, n.Predicate)
			return &Node{Op: OpFilter, Source: n.Source.Source, Predicate: merged}, true
		}
	case OpLimit:
		if n.Source != nil && n.Source.Op == OpLimit {
			return &Node{Op: OpLimit, Source: n.Source.Source, Count: min64(n.Source.Count, n.Count)}, true
		}
	case OpSkip:
		if n.Source != nil && n.Source.Op == OpSkip {
			return &Node{Op: OpSkip, Source: n.Source.Source, Count: saturatingAdd(n.Source.Count, n.Count)}, true
		}
	}

	return n, changed
}

func saturatingAdd(a, b int64) int64 {
	sum := a + b
	if sum < a { // overflow
		return int64(^uint64(0) >> 1)
	}
	return sum
}

// fold evaluates e if every subexpression is literal, memoising results
// by the expression's canonical key (spec.md §4.3's constant-folding
// pass).
func (o *Optimizer) fold(e docbase.Expression) docbase.Expression {
	key := exprKey(e)
	if cached, ok := o.folds.get(key); ok {
		return cached
	}
	out := o.foldUncached(e)
	o.folds.put(key, out)
	return out
}

func (o *Optimizer) foldUncached(e docbase.Expression) docbase.Expression {
	switch e.Kind {
	case docbase.ExprLiteral, docbase.ExprField, docbase.ExprVariable, docbase.ExprSubquery:
		return e

	case docbase.ExprUnary:
		operand := o.fold(*e.Operand)
		// Not(Not(x)) = x
		if operand.Kind == docbase.ExprUnary && operand.UnOp == docbase.OpNot {
			return *operand.Operand
		}
		if operand.IsLiteral() {
			return docbase.Lit(docbase.NewBool(!operand.Literal.Truthy()))
		}
		return docbase.Unary(e.UnOp, operand)

	case docbase.ExprBinary:
		left := o.fold(*e.Left)
		right := o.fold(*e.Right)

		switch e.BinOp {
		case docbase.OpAnd:
			if left.IsLiteral() {
				if !left.Literal.Truthy() {
					return docbase.Lit(docbase.NewBool(false))
				}
				return right
			}
			if right.IsLiteral() && !right.Literal.Truthy() {
				return docbase.Lit(docbase.NewBool(false))
			}
		case docbase.OpOr:
			if left.IsLiteral() {
				if left.Literal.Truthy() {
					return docbase.Lit(docbase.NewBool(true))
				}
				return right
			}
			if right.IsLiteral() && right.Literal.Truthy() {
				return docbase.Lit(docbase.NewBool(true))
			}
		case docbase.OpEq:
			if exprEqual(left, right) {
				return docbase.Lit(docbase.NewBool(true))
			}
		case docbase.OpNe:
			if exprEqual(left, right) {
				return docbase.Lit(docbase.NewBool(false))
			}
		}

		if left.IsLiteral() && right.IsLiteral() {
			return docbase.Lit(expr.Eval(docbase.Binary(e.BinOp, left, right), docbase.Null()))
		}
		return docbase.Binary(e.BinOp, left, right)

	case docbase.ExprMatch:
		value := o.fold(*e.MatchValue)
		return docbase.Match(value, e.MatchPattern, e.MatchFlags)

	default:
		return e
	}
}
