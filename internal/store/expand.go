package store

import (
	"sort"
	"strings"

	"github.com/pubshare/internal/baas"
)

const maxExpandDepth = 6

// expandTree is the parsed form of "user,co_authors_list,co_authors_list.user".
type expandTree map[string]expandTree

func parseExpand(raw string) expandTree {
	tree := expandTree{}
	for _, path := range strings.Split(raw, ",") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		node := tree
		for i, part := range strings.Split(path, ".") {
			if part == "" || i >= maxExpandDepth {
				break
			}
			child, ok := node[part]
			if !ok {
				child = expandTree{}
				node[part] = child
			}
			node = child
		}
	}
	return tree
}

// expand resolves relations in place. Unknown names are ignored and related
// records the caller cannot view are left out.
func (o *op) expand(rec *baas.Record, tree expandTree) {
	if rec == nil || len(tree) == 0 {
		return
	}
	schema := o.b.schemas[rec.CollectionName]
	if schema == nil {
		return
	}

	keys := make([]string, 0, len(tree))
	for key := range tree {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		var related []*baas.Record
		multiple := true

		if coll, field, ok := strings.Cut(key, "_via_"); ok {
			related = o.backRelations(rec, coll, field)
		} else {
			f, ok := schema.Field(key)
			if !ok || f.Kind != KindRelation {
				continue
			}
			multiple = f.Multiple
			for _, id := range rec.GetStrings(key) {
				if target := o.viewable(f.Collection, id); target != nil {
					related = append(related, target)
				}
			}
		}
		if len(related) == 0 {
			continue
		}

		for i, item := range related {
			item = o.present(item)
			o.expand(item, tree[key])
			related[i] = item
		}
		if rec.Expand == nil {
			rec.Expand = map[string]any{}
		}
		if multiple {
			rec.Expand[key] = related
		} else {
			rec.Expand[key] = related[0]
		}
	}
}

// backRelations 查找 coll 中通过 field 指向 rec 的记录
func (o *op) backRelations(rec *baas.Record, coll, field string) []*baas.Record {
	schema := o.b.schemas[coll]
	if schema == nil {
		return nil
	}
	f, ok := schema.Field(field)
	if !ok || f.Kind != KindRelation || f.Collection != rec.CollectionName {
		return nil
	}
	rows, err := o.all(coll)
	if err != nil {
		return nil
	}
	var out []*baas.Record
	for _, candidate := range rows {
		if !containsString(candidate.GetStrings(field), rec.ID) {
			continue
		}
		if schema.rules.view != nil && !schema.rules.view(o.rc, candidate) {
			continue
		}
		out = append(out, candidate)
	}
	return out
}

func (o *op) viewable(collection, id string) *baas.Record {
	rec := o.load(collection, id)
	if rec == nil {
		return nil
	}
	schema := o.b.schemas[collection]
	if schema != nil && schema.rules.view != nil && !schema.rules.view(o.rc, rec) {
		return nil
	}
	return rec
}

func containsString(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}
