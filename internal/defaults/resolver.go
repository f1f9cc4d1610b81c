// Package defaults implements the default/exception (non-monotonic)
// resolver of spec §4.10: deciding an inheritable property's value for an
// entity by specificity-ordered defaults and exceptions over its isA
// hierarchy.
package defaults

import (
	"hdcreasoner/internal/config"
	"hdcreasoner/internal/kb"
)

// Method names the resolution outcome, matching spec §4.10's method names.
type Method string

const (
	MethodDefaultApplied       Method = "default_applied"
	MethodDefaultConflictSplit Method = "default_conflict_split"
	MethodExceptionApplied     Method = "exception_applied"
	MethodNone                 Method = "none"
)

// Result is the outcome of resolving (entity, op, value).
type Result struct {
	Applicable bool
	Value      bool
	Confidence float64
	Method     Method
	// Definitive reports whether this outcome must terminate the strategy
	// ladder outright (spec §4.10: exception_applied is definitive).
	Definitive bool
}

// Resolve implements the five-step procedure of spec §4.10.
func Resolve(store *kb.ComponentKB, semantic *kb.SemanticIndex, thresholds config.Thresholds, entity, op, value string) Result {
	if !semantic.IsInheritable(op) {
		return Result{Applicable: false}
	}

	hierarchy := isAHierarchy(store, entity)
	rank := make(map[string]int, len(hierarchy))
	for i, t := range hierarchy {
		rank[t] = i
	}

	var applicableDefaults, applicableExceptions []string
	for _, t := range hierarchy {
		if store.HasNary("Default", []string{op, t, value}) {
			applicableDefaults = append(applicableDefaults, t)
		}
		if store.HasNary("Exception", []string{op, t, value}) {
			applicableExceptions = append(applicableExceptions, t)
		}
	}

	var active []string
	for _, d := range applicableDefaults {
		blocked := false
		for _, e := range applicableExceptions {
			if rank[e] < rank[d] {
				blocked = true
				break
			}
		}
		if !blocked {
			active = append(active, d)
		}
	}

	switch {
	case len(active) == 1:
		return Result{Applicable: true, Value: true, Confidence: 0.9, Method: MethodDefaultApplied}
	case len(active) >= 2:
		return Result{Applicable: true, Value: true, Confidence: 0.9 / float64(len(active)), Method: MethodDefaultConflictSplit}
	case len(applicableExceptions) >= 1:
		return Result{Applicable: true, Value: false, Confidence: 0.95, Method: MethodExceptionApplied, Definitive: true}
	default:
		return Result{Applicable: false, Method: MethodNone}
	}
}

// isAHierarchy returns entity's isA ancestors ordered most-specific to
// most-general via breadth-first expansion, including entity itself first.
func isAHierarchy(store *kb.ComponentKB, entity string) []string {
	order := []string{entity}
	seen := map[string]bool{entity: true}
	queue := []string{entity}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, f := range store.FindByOperatorAndArg0("isA", cur, false) {
			if len(f.Metadata.Args) != 2 {
				continue
			}
			parent := f.Metadata.Args[1]
			if seen[parent] {
				continue
			}
			seen[parent] = true
			order = append(order, parent)
			queue = append(queue, parent)
		}
	}
	return order
}
