package plugins

import (
	"fmt"
)

// ValidationResult holds the outcome of checking a plugin list.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result.
func (vr *ValidationResult) AddError(format string, args ...any) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result.
func (vr *ValidationResult) AddWarning(format string, args ...any) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// Validate checks a configured order. Unknown names are errors; violated
// ordering hints are warnings, because the caller's order is authoritative.
func (r *Registry) Validate(names []string) *ValidationResult {
	result := &ValidationResult{Valid: true}
	pos := make(map[string]int, len(names))
	for i, n := range names {
		if _, ok := r.byName[n]; !ok {
			result.AddError("unknown plugin %q at step %d", n, i+1)
			continue
		}
		if _, seen := pos[n]; seen {
			result.AddWarning("plugin %q appears more than once", n)
			continue
		}
		pos[n] = i
	}

	for _, n := range names {
		d, ok := r.byName[n]
		if !ok {
			continue
		}
		for _, dep := range d.Ordering.MustRunAfter {
			if j, ok := pos[dep]; ok && j > pos[n] {
				result.AddWarning("plugin %q should run after %q", n, dep)
			}
		}
		for _, after := range d.Ordering.MustRunBefore {
			if j, ok := pos[after]; ok && j < pos[n] {
				result.AddWarning("plugin %q should run before %q", n, after)
			}
		}
	}
	return result
}

// Recommend orders names so every ordering hint holds, using Kahn's
// algorithm. Ties keep the input order, so an already valid list comes back
// unchanged.
func (r *Registry) Recommend(names []string) ([]string, error) {
	index := make(map[string]int, len(names))
	for i, n := range names {
		if _, ok := r.byName[n]; !ok {
			return nil, fmt.Errorf("unknown plugin %q", n)
		}
		if _, dup := index[n]; dup {
			return nil, fmt.Errorf("duplicate plugin name: %q", n)
		}
		index[n] = i
	}

	graph := make(map[string][]string, len(names))
	inDegree := make(map[string]int, len(names))
	for _, n := range names {
		d := r.byName[n]
		for _, dep := range d.Ordering.MustRunAfter {
			if _, ok := index[dep]; ok {
				graph[dep] = append(graph[dep], n)
				inDegree[n]++
			}
		}
		for _, after := range d.Ordering.MustRunBefore {
			if _, ok := index[after]; ok {
				graph[n] = append(graph[n], after)
				inDegree[after]++
			}
		}
	}

	var ready []string
	for _, n := range names {
		if inDegree[n] == 0 {
			ready = append(ready, n)
		}
	}

	result := make([]string, 0, len(names))
	for len(ready) > 0 {
		// pick the earliest configured name among the ready ones
		best := 0
		for i := range ready {
			if index[ready[i]] < index[ready[best]] {
				best = i
			}
		}
		current := ready[best]
		ready = append(ready[:best], ready[best+1:]...)
		result = append(result, current)

		for _, next := range graph[current] {
			inDegree[next]--
			if inDegree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}

	if len(result) != len(names) {
		return nil, fmt.Errorf("circular ordering hints among plugins")
	}
	return result, nil
}
