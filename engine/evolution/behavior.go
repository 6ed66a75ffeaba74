package evolution

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/Masterminds/semver/v3"
)

// NodeProfile captures the observed shape of one node's output: its Go
// type name, a size metric (len for strings/slices/maps, else 0), and
// (for map outputs) the sorted key set.
type NodeProfile struct {
	Type string
	Size int
	Keys []string
}

// BehaviorProfile maps node id to its observed output shape.
type BehaviorProfile map[string]NodeProfile

// ProfileOutputs builds a BehaviorProfile from a run's successful outputs.
func ProfileOutputs(outputs map[string]any) BehaviorProfile {
	profile := make(BehaviorProfile, len(outputs))
	for id, v := range outputs {
		profile[id] = profileValue(v)
	}
	return profile
}

func profileValue(v any) NodeProfile {
	if v == nil {
		return NodeProfile{Type: "null"}
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return NodeProfile{Type: "string", Size: rv.Len()}
	case reflect.Slice, reflect.Array:
		return NodeProfile{Type: "array", Size: rv.Len()}
	case reflect.Map:
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, fmt.Sprintf("%v", k.Interface()))
		}
		sort.Strings(keys)
		return NodeProfile{Type: "object", Size: rv.Len(), Keys: keys}
	case reflect.Bool:
		return NodeProfile{Type: "boolean"}
	case reflect.Float64, reflect.Float32, reflect.Int, reflect.Int64:
		return NodeProfile{Type: "number"}
	default:
		return NodeProfile{Type: fmt.Sprintf("%T", v)}
	}
}

// DriftSignalKind classifies one detected behavior difference.
type DriftSignalKind string

const (
	DriftTypeChange   DriftSignalKind = "type_change"
	DriftMissingNode  DriftSignalKind = "missing_node"
	DriftNewNode      DriftSignalKind = "new_node"
	DriftKeyChange    DriftSignalKind = "key_change"
	DriftLengthShift  DriftSignalKind = "length_shift"
)

// DriftSignal is one detected difference between two behavior profiles.
type DriftSignal struct {
	Kind   DriftSignalKind
	NodeID string
	Detail string
}

// CompareBehavior diffs prev against next, returning a drift score (count
// of signals) and the typed signals themselves.
func CompareBehavior(prev, next BehaviorProfile) (int, []DriftSignal) {
	var signals []DriftSignal

	ids := make(map[string]bool, len(prev)+len(next))
	for id := range prev {
		ids[id] = true
	}
	for id := range next {
		ids[id] = true
	}
	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)

	for _, id := range sorted {
		p, hasPrev := prev[id]
		n, hasNext := next[id]
		switch {
		case hasPrev && !hasNext:
			signals = append(signals, DriftSignal{Kind: DriftMissingNode, NodeID: id})
		case !hasPrev && hasNext:
			signals = append(signals, DriftSignal{Kind: DriftNewNode, NodeID: id})
		case p.Type != n.Type:
			signals = append(signals, DriftSignal{Kind: DriftTypeChange, NodeID: id, Detail: fmt.Sprintf("%s -> %s", p.Type, n.Type)})
		default:
			if !equalKeys(p.Keys, n.Keys) {
				signals = append(signals, DriftSignal{Kind: DriftKeyChange, NodeID: id})
			} else if p.Size != n.Size {
				signals = append(signals, DriftSignal{Kind: DriftLengthShift, NodeID: id, Detail: fmt.Sprintf("%d -> %d", p.Size, n.Size)})
			}
		}
	}
	return len(signals), signals
}

func equalKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// SuggestVersionBump returns version unchanged when no drift was detected,
// otherwise appends (or increments) a "+bN" build-metadata suffix.
func SuggestVersionBump(version string, driftDetected bool) (string, error) {
	if !driftDetected {
		return version, nil
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return "", fmt.Errorf("suggest version bump: %w", err)
	}
	n := 1
	if meta := v.Metadata(); meta != "" {
		var parsed int
		if _, scanErr := fmt.Sscanf(meta, "b%d", &parsed); scanErr == nil {
			n = parsed + 1
		}
	}
	base := fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch())
	if pre := v.Prerelease(); pre != "" {
		base += "-" + pre
	}
	return fmt.Sprintf("%s+b%d", base, n), nil
}
