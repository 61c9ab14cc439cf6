package store

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/pubshare/internal/baas"
	"github.com/pubshare/internal/db"
	"gorm.io/gorm"
)

// op is the state of a single client call: the caller identity, the gorm
// handle and a per-call record cache.
type op struct {
	b     *Backend
	tx    *gorm.DB
	rc    *ruleContext
	cache map[string]*baas.Record
}

func cacheKey(collection, id string) string {
	return collection + "/" + id
}

func (o *op) schema(collection string) (*Schema, error) {
	s, ok := o.b.schemas[collection]
	if !ok {
		return nil, baas.NewClientError(http.StatusNotFound, "Missing collection context.", nil)
	}
	return s, nil
}

func toRecord(row db.Record) (*baas.Record, error) {
	fields, err := row.Fields()
	if err != nil {
		return nil, fmt.Errorf("decode record %s: %w", row.ID, err)
	}
	rec := baas.NewRecord(row.Collection)
	rec.ID = row.ID
	rec.Created = row.CreatedAt.UTC()
	rec.Updated = row.UpdatedAt.UTC()
	rec.Data = fields
	return rec, nil
}

// load returns the stored record or nil. Access rules are not applied.
func (o *op) load(collection, id string) *baas.Record {
	if id == "" {
		return nil
	}
	key := cacheKey(collection, id)
	if rec, ok := o.cache[key]; ok {
		return rec
	}
	var row db.Record
	err := o.tx.Where("id = ? AND collection = ?", id, collection).First(&row).Error
	if err != nil {
		o.cache[key] = nil
		return nil
	}
	rec, err := toRecord(row)
	if err != nil {
		return nil
	}
	o.cache[key] = rec
	return rec
}

// all returns every record of a collection in creation order.
func (o *op) all(collection string) ([]*baas.Record, error) {
	var rows []db.Record
	if err := o.tx.Where("collection = ?", collection).Order("created_at asc, id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*baas.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := toRecord(row)
		if err != nil {
			return nil, err
		}
		o.cache[cacheKey(collection, rec.ID)] = rec
		out = append(out, rec)
	}
	return out, nil
}

func (o *op) forget(collection, id string) {
	delete(o.cache, cacheKey(collection, id))
}

// present returns the copy handed to callers. Emails of other users are hidden.
func (o *op) present(rec *baas.Record) *baas.Record {
	if rec == nil {
		return nil
	}
	out := rec.Clone()
	out.Expand = nil
	if schema := o.b.schemas[rec.CollectionName]; schema != nil && schema.Auth && rec.ID != o.rc.auth {
		delete(out.Data, "email")
	}
	return out
}

// identify returns the user id of a valid token, or "" for guests.
func (o *op) identify(token string) string {
	if token == "" {
		return ""
	}
	id, err := o.b.signer.verify(token)
	if err != nil {
		return ""
	}
	if o.load(db.UsersCollection, id) == nil {
		return ""
	}
	return id
}

func (o *op) resolver(rec *baas.Record) resolver {
	return func(name string) any {
		if key, ok := strings.CutPrefix(name, "@request.auth."); ok {
			if key == "id" {
				return o.rc.auth
			}
			return o.load(db.UsersCollection, o.rc.auth).Get(key)
		}
		return o.resolvePath(rec, strings.Split(name, "."))
	}
}

// resolvePath follows relation fields for dotted names like "user.name".
func (o *op) resolvePath(rec *baas.Record, parts []string) any {
	if rec == nil {
		return nil
	}
	if len(parts) == 1 {
		return rec.Get(parts[0])
	}
	schema := o.b.schemas[rec.CollectionName]
	if schema == nil {
		return nil
	}
	f, ok := schema.Field(parts[0])
	if !ok || f.Kind != KindRelation {
		return nil
	}
	var out []any
	for _, id := range rec.GetStrings(parts[0]) {
		v := o.resolvePath(o.load(f.Collection, id), parts[1:])
		if items, ok := asList(v); ok {
			out = append(out, items...)
		} else {
			out = append(out, v)
		}
	}
	if !f.Multiple {
		if len(out) == 0 {
			return nil
		}
		if len(out) == 1 {
			return out[0]
		}
	}
	return out
}

func (o *op) insert(schema *Schema, rec *baas.Record, password string) error {
	ts := o.b.stamp()
	row := db.Record{ID: rec.ID, Collection: schema.Name, CreatedAt: ts, UpdatedAt: ts}
	if err := row.SetFields(rec.Data); err != nil {
		return err
	}
	err := o.tx.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		if !schema.Auth {
			return nil
		}
		hash, err := db.HashPassword(password)
		if err != nil {
			return err
		}
		return tx.Create(&db.Credential{
			RecordID:     rec.ID,
			Collection:   schema.Name,
			Email:        db.NormalizeEmail(rec.GetString("email")),
			PasswordHash: hash,
		}).Error
	})
	o.forget(schema.Name, rec.ID)
	return err
}

func (o *op) save(schema *Schema, rec *baas.Record, password string) error {
	var row db.Record
	if err := row.SetFields(rec.Data); err != nil {
		return err
	}
	err := o.tx.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&db.Record{}).
			Where("id = ? AND collection = ?", rec.ID, schema.Name).
			UpdateColumns(map[string]any{"data": row.Data, "updated_at": o.b.stamp()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errNotFound()
		}
		if !schema.Auth || password == "" {
			return nil
		}
		hash, err := db.HashPassword(password)
		if err != nil {
			return err
		}
		return tx.Model(&db.Credential{}).
			Where("record_id = ?", rec.ID).
			UpdateColumn("password_hash", hash).Error
	})
	o.forget(schema.Name, rec.ID)
	return err
}

// remove deletes rec, cascading to records whose cascade relation points at
// it and unsetting the remaining references.
func (o *op) remove(rec *baas.Record) error {
	var dirs [][2]string
	err := o.tx.Transaction(func(tx *gorm.DB) error {
		outer := o.tx
		o.tx = tx
		defer func() { o.tx = outer }()
		return o.cascade(rec, map[string]bool{}, &dirs)
	})
	if err != nil {
		return err
	}
	for _, d := range dirs {
		_ = o.b.files.RemoveRecord(d[0], d[1])
	}
	return nil
}

func (o *op) cascade(rec *baas.Record, seen map[string]bool, dirs *[][2]string) error {
	key := cacheKey(rec.CollectionName, rec.ID)
	if seen[key] {
		return nil
	}
	seen[key] = true

	names := make([]string, 0, len(o.b.schemas))
	for name := range o.b.schemas {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		schema := o.b.schemas[name]
		for _, f := range schema.Fields {
			if f.Kind != KindRelation || f.Collection != rec.CollectionName {
				continue
			}
			rows, err := o.all(name)
			if err != nil {
				return err
			}
			for _, ref := range rows {
				ids := ref.GetStrings(f.Name)
				if !containsString(ids, rec.ID) {
					continue
				}
				if f.Cascade {
					if err := o.cascade(ref, seen, dirs); err != nil {
						return err
					}
					continue
				}
				kept := make([]string, 0, len(ids))
				for _, id := range ids {
					if id != rec.ID {
						kept = append(kept, id)
					}
				}
				updated := ref.Clone()
				updated.Set(f.Name, relationValue(f, kept))
				if err := o.save(schema, updated, ""); err != nil {
					return err
				}
			}
		}
	}

	if err := o.tx.Where("id = ? AND collection = ?", rec.ID, rec.CollectionName).Delete(&db.Record{}).Error; err != nil {
		return err
	}
	if schema := o.b.schemas[rec.CollectionName]; schema != nil && schema.Auth {
		if err := o.tx.Where("record_id = ?", rec.ID).Delete(&db.Credential{}).Error; err != nil {
			return err
		}
	}
	o.cache[key] = nil
	*dirs = append(*dirs, [2]string{rec.CollectionName, rec.ID})
	return nil
}

// storeUploads writes new attachments and records their names on rec.
func (o *op) storeUploads(schema *Schema, rec *baas.Record, cs *changeSet) ([]string, error) {
	keys := make([]string, 0, len(cs.uploads))
	for k := range cs.uploads {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var saved []string
	for _, key := range keys {
		field, _ := schema.Field(key)
		names := toStrings(rec.Get(key))
		if !field.Multiple {
			cs.removed = append(cs.removed, names...)
			names = nil
		}
		for _, file := range cs.uploads[key] {
			name, err := o.b.files.Save(schema.Name, rec.ID, file)
			if err != nil {
				o.discard(schema.Name, rec.ID, saved)
				return nil, err
			}
			saved = append(saved, name)
			names = append(names, name)
		}
		rec.Set(key, relationValue(field, names))
	}
	return saved, nil
}

func (o *op) discard(collection, id string, names []string) {
	for _, name := range names {
		_ = o.b.files.Remove(collection, id, name)
	}
}

func (o *op) checkPassword(collection, id, password string) bool {
	var cred db.Credential
	if err := o.tx.Where("collection = ? AND record_id = ?", collection, id).First(&cred).Error; err != nil {
		return false
	}
	return db.CheckPassword(cred.PasswordHash, password)
}

func (o *op) emailTaken(collection, email string, base *baas.Record) bool {
	q := o.tx.Model(&db.Credential{}).Where("collection = ? AND email = ?", collection, db.NormalizeEmail(email))
	if base != nil {
		q = q.Where("record_id <> ?", base.ID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return !errors.Is(err, gorm.ErrRecordNotFound)
	}
	return count > 0
}
