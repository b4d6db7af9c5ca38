package snapshot

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/roach88/pvregress/internal/ir"
)

// Drift is one solver environment variable that changed between the
// baseline and the current run. Old or New is nil when the key is absent
// on that side.
type Drift struct {
	Key string
	Old ir.IRValue
	New ir.IRValue
}

// String renders the drift as the warning line shown to users.
func (d Drift) String() string {
	return fmt.Sprintf("WARNING: The solver env variable %s is different between last time (%s) and this time (%s)",
		d.Key, ir.Format(d.Old), ir.Format(d.New))
}

// EnvDrift lists every environment key whose value differs, sorted by key.
// Drift is advisory: it explains regressions, it never causes one.
func EnvDrift(old, current ir.IRObject) []Drift {
	keys := make(map[string]struct{}, len(old)+len(current))
	for k := range old {
		keys[k] = struct{}{}
	}
	for k := range current {
		keys[k] = struct{}{}
	}

	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	var drifts []Drift
	for _, k := range sorted {
		o, n := old[k], current[k]
		if sameValue(o, n) {
			continue
		}
		drifts = append(drifts, Drift{Key: k, Old: o, New: n})
	}
	return drifts
}

func sameValue(a, b ir.IRValue) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ab, errA := ir.MarshalCanonical(a)
	bb, errB := ir.MarshalCanonical(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}
