package polaris

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// MatchMode combines predicates.
type MatchMode int

const (
	// MatchAll keeps records satisfying every predicate
	MatchAll MatchMode = iota
	// MatchAny keeps records satisfying at least one predicate
	MatchAny
)

// Criteria are equality predicates on records. Field keys may be dotted
// paths into nested objects. Tags match an entry of the record's "tags"
// list with the same key and value.
type Criteria struct {
	Fields map[string]string
	Tags   map[string]string
}

// Empty reports whether c holds no predicate.
func (c Criteria) Empty() bool {
	return len(c.Fields) == 0 && len(c.Tags) == 0
}

type predicate func(Record) bool

func (c Criteria) predicates() []predicate {
	preds := make([]predicate, 0, len(c.Fields)+len(c.Tags))
	for _, path := range sortedKeys(c.Fields) {
		path, want := path, c.Fields[path]
		preds = append(preds, func(r Record) bool {
			v, ok := lookup(r, path)
			return ok && stringify(v) == want
		})
	}
	for _, key := range sortedKeys(c.Tags) {
		key, want := key, c.Tags[key]
		preds = append(preds, func(r Record) bool {
			return hasTag(r, key, want)
		})
	}
	return preds
}

// MatchRecords returns the idField values of the records satisfying criteria,
// in record order. Empty criteria match nothing under MatchAny and everything
// under MatchAll. Records without idField are skipped.
func MatchRecords(records []Record, idField string, criteria Criteria, mode MatchMode) []string {
	preds := criteria.predicates()
	ids := make([]string, 0)

	for _, r := range records {
		if !matches(r, preds, mode) {
			continue
		}
		id, ok := lookup(r, idField)
		if !ok || id == nil {
			continue
		}
		ids = append(ids, stringify(id))
	}
	return ids
}

func matches(r Record, preds []predicate, mode MatchMode) bool {
	if mode == MatchAny {
		for _, p := range preds {
			if p(r) {
				return true
			}
		}
		return false
	}
	for _, p := range preds {
		if !p(r) {
			return false
		}
	}
	return true
}

func lookup(r Record, path string) (any, bool) {
	var cur any = map[string]any(r)
	for _, part := range strings.Split(path, ".") {
		var m map[string]any
		switch v := cur.(type) {
		case map[string]any:
			m = v
		case Record:
			m = v
		default:
			return nil, false
		}
		next, ok := m[part]
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func hasTag(r Record, key, value string) bool {
	tags, ok := r["tags"].([]any)
	if !ok {
		return false
	}
	for _, t := range tags {
		tag, ok := t.(map[string]any)
		if !ok {
			continue
		}
		if stringify(tag["key"]) == key && stringify(tag["value"]) == value {
			return true
		}
	}
	return false
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
