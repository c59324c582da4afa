package rules

import (
	"encoding/json"
	"fmt"

	"solana-signal-engine/internal/domain"
)

// Expr is a resolved rule expression. Expressions are parsed once at rule
// load time into an immutable tree; evaluation never allocates and never
// fails, it only answers true or false.
type Expr interface {
	Eval(snap *domain.TokenStatSnapshot) bool
}

// Comparator operators.
const (
	OpGTE = ">="
	OpLTE = "<="
	OpGT  = ">"
	OpLT  = "<"
	OpEQ  = "=="
	OpNEQ = "!="
)

// Logical combinator keys.
const (
	combAll  = "all"
	combAny  = "any"
	combNone = "none"
)

// compareExpr is a leaf comparing one snapshot metric to a threshold.
// A missing, nil, or NaN metric evaluates to false.
type compareExpr struct {
	op        string
	metric    string
	threshold float64
}

func (e *compareExpr) Eval(snap *domain.TokenStatSnapshot) bool {
	v, ok := snap.Metric(e.metric)
	if !ok {
		return false
	}
	switch e.op {
	case OpGTE:
		return v >= e.threshold
	case OpLTE:
		return v <= e.threshold
	case OpGT:
		return v > e.threshold
	case OpLT:
		return v < e.threshold
	case OpEQ:
		return v == e.threshold
	case OpNEQ:
		return v != e.threshold
	}
	return false
}

// allExpr is true iff every child is true. Vacuously true when empty.
type allExpr []Expr

func (e allExpr) Eval(snap *domain.TokenStatSnapshot) bool {
	for _, child := range e {
		if !child.Eval(snap) {
			return false
		}
	}
	return true
}

// anyExpr is true iff at least one child is true. Vacuously false when empty.
type anyExpr []Expr

func (e anyExpr) Eval(snap *domain.TokenStatSnapshot) bool {
	for _, child := range e {
		if child.Eval(snap) {
			return true
		}
	}
	return false
}

// noneExpr is true iff no child is true (logical NOR). Vacuously true
// when empty.
type noneExpr []Expr

func (e noneExpr) Eval(snap *domain.TokenStatSnapshot) bool {
	for _, child := range e {
		if child.Eval(snap) {
			return false
		}
	}
	return true
}

var validOps = map[string]struct{}{
	OpGTE: {}, OpLTE: {}, OpGT: {}, OpLT: {}, OpEQ: {}, OpNEQ: {},
}

// ParseExpr parses a JSON expression tree. Each node is an object with
// exactly one key: a logical combinator ("all", "any", "none") holding a
// list of sub-expressions, or a comparator operator holding a
// [metricName, threshold] pair.
func ParseExpr(data []byte) (Expr, error) {
	var node map[string]json.RawMessage
	if err := json.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parse expression node: %w", err)
	}
	if len(node) != 1 {
		return nil, fmt.Errorf("expression node must have exactly one key, got %d", len(node))
	}

	for key, raw := range node {
		switch key {
		case combAll, combAny, combNone:
			children, err := parseChildren(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			switch key {
			case combAll:
				return allExpr(children), nil
			case combAny:
				return anyExpr(children), nil
			default:
				return noneExpr(children), nil
			}
		default:
			if _, ok := validOps[key]; !ok {
				return nil, fmt.Errorf("unknown operator %q", key)
			}
			return parseComparator(key, raw)
		}
	}

	// Unreachable: the single key is handled above.
	return nil, fmt.Errorf("empty expression node")
}

func parseChildren(raw json.RawMessage) ([]Expr, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("expected list of sub-expressions: %w", err)
	}

	children := make([]Expr, 0, len(items))
	for i, item := range items {
		child, err := ParseExpr(item)
		if err != nil {
			return nil, fmt.Errorf("sub-expression %d: %w", i, err)
		}
		children = append(children, child)
	}
	return children, nil
}

func parseComparator(op string, raw json.RawMessage) (Expr, error) {
	var args []json.RawMessage
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("%s: expected [metric, threshold] pair: %w", op, err)
	}
	if len(args) != 2 {
		return nil, fmt.Errorf("%s: expected 2 arguments, got %d", op, len(args))
	}

	var metric string
	if err := json.Unmarshal(args[0], &metric); err != nil {
		return nil, fmt.Errorf("%s: metric name must be a string: %w", op, err)
	}
	if metric == "" {
		return nil, fmt.Errorf("%s: metric name is empty", op)
	}

	var threshold float64
	if err := json.Unmarshal(args[1], &threshold); err != nil {
		return nil, fmt.Errorf("%s: threshold must be a number: %w", op, err)
	}

	return &compareExpr{op: op, metric: metric, threshold: threshold}, nil
}
