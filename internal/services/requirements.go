package services

import (
	"encoding/json"
	"sort"
)

// valueSet keeps distinct values in first-seen order, compared by JSON encoding.
type valueSet struct {
	seen   map[string]bool
	values []any
}

func (s *valueSet) add(v any) {
	if list, ok := v.([]any); ok {
		for _, item := range list {
			s.add(item)
		}
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if s.seen == nil {
		s.seen = map[string]bool{}
	}
	if s.seen[string(b)] {
		return
	}
	s.seen[string(b)] = true
	s.values = append(s.values, v)
}

// unionRequirements collects, per key, the distinct values seen across maps.
// List values contribute their elements.
func unionRequirements(maps []map[string]any) map[string][]any {
	sets := map[string]*valueSet{}
	for _, m := range maps {
		for k, v := range m {
			if sets[k] == nil {
				sets[k] = &valueSet{}
			}
			sets[k].add(v)
		}
	}
	out := make(map[string][]any, len(sets))
	for k, s := range sets {
		out[k] = s.values
	}
	return out
}

// mergeRequirements deep-merges maps in order. Nested maps merge key by key.
// Differing leaf values become the union of both sides as a list; equal
// scalars stay scalar.
func mergeRequirements(maps []map[string]any) map[string]any {
	out := map[string]any{}
	for _, m := range maps {
		deepMerge(out, m)
	}
	return out
}

func deepMerge(dst, src map[string]any) {
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]any)
		dstMap, dstIsMap := dst[k].(map[string]any)
		switch {
		case srcIsMap && dstIsMap:
			deepMerge(dstMap, srcMap)
		case srcIsMap:
			cp := map[string]any{}
			deepMerge(cp, srcMap)
			dst[k] = cp
		default:
			existing, ok := dst[k]
			if !ok || dstIsMap {
				dst[k] = v
				continue
			}
			dst[k] = mergeLeaf(existing, v)
		}
	}
}

func mergeLeaf(a, b any) any {
	var s valueSet
	s.add(a)
	s.add(b)
	_, aList := a.([]any)
	_, bList := b.([]any)
	if len(s.values) == 1 && !aList && !bList {
		return s.values[0]
	}
	return s.values
}

func sortedSet(values []string) []string {
	set := map[string]bool{}
	for _, v := range values {
		if v != "" {
			set[v] = true
		}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
