package store

import (
	"sort"
	"strings"
	"time"

	"github.com/pubshare/internal/baas"
)

type sortKey struct {
	field string
	desc  bool
}

func parseSort(raw string) []sortKey {
	var keys []sortKey
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" || part == "@random" {
			continue
		}
		key := sortKey{field: part}
		switch part[0] {
		case '-':
			key.desc = true
			key.field = part[1:]
		case '+':
			key.field = part[1:]
		}
		if key.field != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// sortRecords orders records by the given keys; ties keep insertion order.
func sortRecords(records []*baas.Record, raw string) {
	keys := parseSort(raw)
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		for _, key := range keys {
			c := compareField(records[i].Get(key.field), records[j].Get(key.field))
			if c == 0 {
				continue
			}
			if key.desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compareField(a, b any) int {
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	if ab, ok := a.(bool); ok {
		bb, _ := b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	}
	c, _ := order(a, b)
	return c
}
