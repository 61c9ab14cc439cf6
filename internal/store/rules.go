package store

import "github.com/pubshare/internal/baas"

// ruleContext carries the caller identity and a loader for related records.
type ruleContext struct {
	auth string
	load func(collection, id string) *baas.Record
}

func (rc *ruleContext) signedIn() bool {
	return rc.auth != ""
}

// ruleSet 描述集合级别的访问规则
type ruleSet struct {
	view   func(rc *ruleContext, rec *baas.Record) bool
	create func(rc *ruleContext, rec *baas.Record) bool
	update func(rc *ruleContext, before, after *baas.Record) bool
	delete func(rc *ruleContext, rec *baas.Record) bool
}

var userRules = ruleSet{
	view:   func(rc *ruleContext, rec *baas.Record) bool { return true },
	create: func(rc *ruleContext, rec *baas.Record) bool { return true },
	update: func(rc *ruleContext, before, after *baas.Record) bool {
		return rc.signedIn() && before.ID == rc.auth
	},
	delete: func(rc *ruleContext, rec *baas.Record) bool {
		return rc.signedIn() && rec.ID == rc.auth
	},
}

func publicationVisible(rc *ruleContext, rec *baas.Record) bool {
	return rec.GetBool("public") || (rc.signedIn() && rec.GetString("user") == rc.auth)
}

var publicationRules = ruleSet{
	view: publicationVisible,
	create: func(rc *ruleContext, rec *baas.Record) bool {
		return rc.signedIn() && rec.GetString("user") == rc.auth
	},
	update: func(rc *ruleContext, before, after *baas.Record) bool {
		if rc.signedIn() && before.GetString("user") == rc.auth {
			return true
		}
		return publicationVisible(rc, before) && onlyCountersIncreased(before, after)
	},
	delete: func(rc *ruleContext, rec *baas.Record) bool {
		return rc.signedIn() && rec.GetString("user") == rc.auth
	},
}

// 访客可以递增计数器，但不能修改其他字段
var counterFields = map[string]bool{
	"views_count":     true,
	"downloads_count": true,
	"citations_count": true,
}

func onlyCountersIncreased(before, after *baas.Record) bool {
	keys := map[string]bool{}
	for k := range before.Data {
		keys[k] = true
	}
	for k := range after.Data {
		keys[k] = true
	}
	for k := range keys {
		if counterFields[k] {
			if after.GetFloat(k) < before.GetFloat(k) {
				return false
			}
			continue
		}
		if !sameValue(before.Data[k], after.Data[k]) {
			return false
		}
	}
	return true
}

// childRules covers records owned through their parent publication.
var childRules = ruleSet{
	view: func(rc *ruleContext, rec *baas.Record) bool {
		parent := rc.parent(rec)
		return parent != nil && publicationVisible(rc, parent)
	},
	create: func(rc *ruleContext, rec *baas.Record) bool {
		return rc.ownsParent(rec)
	},
	update: func(rc *ruleContext, before, after *baas.Record) bool {
		return rc.ownsParent(before) && rc.ownsParent(after)
	},
	delete: func(rc *ruleContext, rec *baas.Record) bool {
		return rc.ownsParent(rec)
	},
}

// 评论创建后不可修改或删除
var commentRules = ruleSet{
	view: childRules.view,
	create: func(rc *ruleContext, rec *baas.Record) bool {
		if !rc.signedIn() || rec.GetString("user") != rc.auth {
			return false
		}
		parent := rc.parent(rec)
		return parent != nil && publicationVisible(rc, parent)
	},
	update: func(rc *ruleContext, before, after *baas.Record) bool { return false },
	delete: func(rc *ruleContext, rec *baas.Record) bool { return false },
}

func (rc *ruleContext) parent(rec *baas.Record) *baas.Record {
	id := rec.GetString("publication")
	if id == "" || rc.load == nil {
		return nil
	}
	return rc.load("publications", id)
}

func (rc *ruleContext) ownsParent(rec *baas.Record) bool {
	if !rc.signedIn() {
		return false
	}
	parent := rc.parent(rec)
	return parent != nil && parent.GetString("user") == rc.auth
}
