// Package gate implements deterministic pass/fail evaluation for gate
// nodes. Gate decisions must be reproducible and auditable, never
// model-judged: each acceptance criterion is a plain comparison against the
// aggregated outputs of the nodes the gate depends on.
package gate

import (
	"strconv"
	"strings"

	"github.com/deepnoodle-ai/gantry"
)

// Outputs aggregates the artifacts produced by a gate's upstream nodes.
// Fields are addressed either as "node.artifact" or as a bare artifact name
// resolved against the merged set, where later-added nodes win.
type Outputs struct {
	order  []string
	byNode map[string]map[string]string
}

// NewOutputs creates an empty aggregation.
func NewOutputs() *Outputs {
	return &Outputs{byNode: make(map[string]map[string]string)}
}

// Add records one node's artifacts. Call in graph definition order so bare
// field lookups resolve deterministically.
func (o *Outputs) Add(nodeID string, artifacts map[string]string) {
	if _, exists := o.byNode[nodeID]; !exists {
		o.order = append(o.order, nodeID)
	}
	o.byNode[nodeID] = artifacts
}

// Lookup resolves a criterion field path to a value.
func (o *Outputs) Lookup(field string) (string, bool) {
	if nodeID, artifact, ok := strings.Cut(field, "."); ok {
		if artifacts, exists := o.byNode[nodeID]; exists {
			value, found := artifacts[artifact]
			return value, found
		}
		return "", false
	}
	var value string
	var found bool
	for _, nodeID := range o.order {
		if v, ok := o.byNode[nodeID][field]; ok {
			value = v
			found = true
		}
	}
	return value, found
}

// Result is the outcome of evaluating a gate's criteria. The gate passes
// only if every criterion passes; Failed carries the failing criteria for
// diagnostics and escalation reports.
type Result struct {
	Passed   bool
	Criteria []gantry.CriterionResult
	Failed   []gantry.CriterionResult
}

// Evaluate applies each criterion to the outputs. A criterion whose field is
// missing is treated as failed, never as an error, so gates fail closed.
func Evaluate(criteria []gantry.Criterion, outputs *Outputs) *Result {
	result := &Result{Passed: true}
	for _, criterion := range criteria {
		actual, found := outputs.Lookup(criterion.Field)
		passed := found && compare(actual, criterion.Op, criterion.Expected)
		cr := gantry.CriterionResult{
			Criterion: criterion,
			Actual:    actual,
			Found:     found,
			Passed:    passed,
		}
		result.Criteria = append(result.Criteria, cr)
		if !passed {
			result.Passed = false
			result.Failed = append(result.Failed, cr)
		}
	}
	return result
}

// compare applies a type-aware scalar comparison: numeric strings compare
// numerically, booleans as booleans, everything else as normalized strings.
func compare(actual string, op gantry.CompareOp, expected string) bool {
	if op == gantry.OpContains {
		return strings.Contains(normalize(actual), normalize(expected))
	}
	if a, e, ok := asNumbers(actual, expected); ok {
		return compareNumbers(a, op, e)
	}
	if a, e, ok := asBools(actual, expected); ok {
		switch op {
		case gantry.OpEquals:
			return a == e
		case gantry.OpNotEquals:
			return a != e
		}
		return false
	}
	return compareStrings(normalize(actual), op, normalize(expected))
}

func normalize(s string) string {
	return strings.TrimSpace(s)
}

func asNumbers(actual, expected string) (float64, float64, bool) {
	a, errA := strconv.ParseFloat(normalize(actual), 64)
	e, errE := strconv.ParseFloat(normalize(expected), 64)
	if errA != nil || errE != nil {
		return 0, 0, false
	}
	return a, e, true
}

func asBools(actual, expected string) (bool, bool, bool) {
	a, errA := strconv.ParseBool(strings.ToLower(normalize(actual)))
	e, errE := strconv.ParseBool(strings.ToLower(normalize(expected)))
	if errA != nil || errE != nil {
		return false, false, false
	}
	return a, e, true
}

func compareNumbers(a float64, op gantry.CompareOp, e float64) bool {
	switch op {
	case gantry.OpEquals:
		return a == e
	case gantry.OpNotEquals:
		return a != e
	case gantry.OpGreaterThan:
		return a > e
	case gantry.OpGreaterOrEqual:
		return a >= e
	case gantry.OpLessThan:
		return a < e
	case gantry.OpLessOrEqual:
		return a <= e
	}
	return false
}

func compareStrings(a string, op gantry.CompareOp, e string) bool {
	switch op {
	case gantry.OpEquals:
		return a == e
	case gantry.OpNotEquals:
		return a != e
	case gantry.OpGreaterThan:
		return a > e
	case gantry.OpGreaterOrEqual:
		return a >= e
	case gantry.OpLessThan:
		return a < e
	case gantry.OpLessOrEqual:
		return a <= e
	}
	return false
}
