// Package store is an embedded implementation of the record-collection API
// backed by gorm/sqlite. It serves development, the CLI and the tests.
package store

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pubshare/internal/baas"
	"github.com/pubshare/internal/db"
	"gorm.io/gorm"
)

const (
	defaultPerPage = 30
	maxPerPage     = 500
)

// Options configures the embedded backend.
type Options struct {
	UploadDir     string
	PublicBaseURL string
	TokenSecret   string
	TokenTTL      time.Duration
	Now           func() time.Time
}

// Backend owns the database connection, the collection schemas and the
// upload directory. Clients created from it share that state.
type Backend struct {
	db      *gorm.DB
	schemas map[string]*Schema
	files   *FileStore
	signer  *tokenSigner
	baseURL string
	now     func() time.Time

	mu   sync.Mutex
	last time.Time
}

// NewBackend wires a backend over an already migrated database.
func NewBackend(gdb *gorm.DB, opts Options) (*Backend, error) {
	if gdb == nil {
		return nil, errors.New("database not initialized")
	}
	if strings.TrimSpace(opts.TokenSecret) == "" {
		return nil, errors.New("token secret is required")
	}
	uploadDir := strings.TrimSpace(opts.UploadDir)
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	ttl := opts.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	schemas := map[string]*Schema{}
	for _, s := range DefaultSchemas() {
		schemas[s.Name] = s
	}
	return &Backend{
		db:      gdb,
		schemas: schemas,
		files:   NewFileStore(uploadDir),
		signer:  &tokenSigner{secret: []byte(opts.TokenSecret), ttl: ttl, now: now},
		baseURL: strings.TrimRight(opts.PublicBaseURL, "/"),
		now:     now,
	}, nil
}

// Client returns a client bound to auth. A nil store gets a fresh one.
func (b *Backend) Client(auth *baas.AuthStore) baas.Client {
	if auth == nil {
		auth = baas.NewAuthStore()
	}
	return &Client{b: b, auth: auth}
}

// Factory adapts the backend to baas.ClientFactory.
func (b *Backend) Factory() baas.ClientFactory {
	return b.Client
}

// UploadDir is the directory served under /api/files.
func (b *Backend) UploadDir() string {
	return b.files.Root()
}

// stamp returns strictly increasing timestamps so that "-created" ordering
// is stable even for records written within the same clock tick.
func (b *Backend) stamp() time.Time {
	t := b.now().UTC()
	if !t.After(b.last) {
		t = b.last.Add(time.Microsecond)
	}
	b.last = t
	return t
}

// Client implements baas.Client against the embedded backend.
type Client struct {
	b    *Backend
	auth *baas.AuthStore
}

var _ baas.Client = (*Client)(nil)

func (c *Client) AuthStore() *baas.AuthStore {
	return c.auth
}

func (c *Client) FileURL(record *baas.Record, filename string) string {
	return baas.BuildFileURL(c.b.baseURL, record, filename)
}

func (c *Client) List(ctx context.Context, collection string, page, perPage int, opts baas.ListOptions) (*baas.ListResult, error) {
	var result *baas.ListResult
	err := c.run(ctx, func(o *op) error {
		schema, err := o.schema(collection)
		if err != nil {
			return err
		}
		filter, err := parseFilter(opts.Filter)
		if err != nil {
			return baas.NewClientError(http.StatusBadRequest, "Invalid filter parameters.", err)
		}
		rows, err := o.all(collection)
		if err != nil {
			return err
		}

		matched := make([]*baas.Record, 0, len(rows))
		for _, rec := range rows {
			if !schema.rules.view(o.rc, rec) {
				continue
			}
			if !filter.eval(o.resolver(rec)) {
				continue
			}
			matched = append(matched, rec)
		}
		sortRecords(matched, opts.Sort)

		if page < 1 {
			page = 1
		}
		if perPage <= 0 {
			perPage = defaultPerPage
		}
		if perPage > maxPerPage {
			perPage = maxPerPage
		}
		total := len(matched)
		start := (page - 1) * perPage
		if start > total {
			start = total
		}
		end := start + perPage
		if end > total {
			end = total
		}

		tree := parseExpand(opts.Expand)
		items := make([]*baas.Record, 0, end-start)
		for _, rec := range matched[start:end] {
			out := o.present(rec)
			o.expand(out, tree)
			items = append(items, out)
		}
		result = &baas.ListResult{
			Page:       page,
			PerPage:    perPage,
			TotalItems: total,
			TotalPages: (total + perPage - 1) / perPage,
			Items:      items,
		}
		return nil
	})
	return result, err
}

func (c *Client) Get(ctx context.Context, collection, id string, opts baas.GetOptions) (*baas.Record, error) {
	var result *baas.Record
	err := c.run(ctx, func(o *op) error {
		if _, err := o.schema(collection); err != nil {
			return err
		}
		rec := o.viewable(collection, id)
		if rec == nil {
			return errNotFound()
		}
		result = o.present(rec)
		o.expand(result, parseExpand(opts.Expand))
		return nil
	})
	return result, err
}

func (c *Client) Create(ctx context.Context, collection string, form *baas.Form) (*baas.Record, error) {
	if form == nil {
		form = baas.NewForm()
	}
	var result *baas.Record
	err := c.run(ctx, func(o *op) error {
		schema, err := o.schema(collection)
		if err != nil {
			return err
		}
		cs := o.apply(schema, nil, form)
		if len(cs.errs) > 0 {
			return baas.NewValidationError("Failed to create record.", cs.errs)
		}

		rec := baas.NewRecord(collection)
		rec.ID = db.NewRecordID()
		rec.Data = cs.data
		if !schema.rules.create(o.rc, rec) {
			return errForbidden()
		}

		saved, err := o.storeUploads(schema, rec, cs)
		if err != nil {
			return err
		}
		if err := o.insert(schema, rec, cs.password); err != nil {
			o.discard(collection, rec.ID, saved)
			return err
		}
		result = o.present(o.load(collection, rec.ID))
		return nil
	})
	return result, err
}

func (c *Client) Update(ctx context.Context, collection, id string, form *baas.Form) (*baas.Record, error) {
	if form == nil {
		form = baas.NewForm()
	}
	var result *baas.Record
	err := c.run(ctx, func(o *op) error {
		schema, err := o.schema(collection)
		if err != nil {
			return err
		}
		before := o.viewable(collection, id)
		if before == nil {
			return errNotFound()
		}
		cs := o.apply(schema, before, form)
		if len(cs.errs) > 0 {
			return baas.NewValidationError("Failed to update record.", cs.errs)
		}

		after := before.Clone()
		after.Data = cs.data
		if !schema.rules.update(o.rc, before, after) {
			return errForbidden()
		}

		saved, err := o.storeUploads(schema, after, cs)
		if err != nil {
			return err
		}
		if err := o.save(schema, after, cs.password); err != nil {
			o.discard(collection, id, saved)
			return err
		}
		for _, name := range cs.removed {
			_ = o.b.files.Remove(collection, id, name)
		}
		result = o.present(o.load(collection, id))
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.auth.Refresh(collection, id, result)
	return result, nil
}

func (c *Client) Delete(ctx context.Context, collection, id string) error {
	err := c.run(ctx, func(o *op) error {
		schema, err := o.schema(collection)
		if err != nil {
			return err
		}
		rec := o.viewable(collection, id)
		if rec == nil {
			return errNotFound()
		}
		if !schema.rules.delete(o.rc, rec) {
			return errForbidden()
		}
		return o.remove(rec)
	})
	if err != nil {
		return err
	}
	c.auth.Refresh(collection, id, nil)
	return nil
}

func (c *Client) AuthWithPassword(ctx context.Context, collection, identity, password string) (*baas.AuthResult, error) {
	var result *baas.AuthResult
	err := c.run(ctx, func(o *op) error {
		schema, err := o.schema(collection)
		if err != nil {
			return err
		}
		if !schema.Auth {
			return baas.NewClientError(http.StatusBadRequest, "The collection is not an auth collection.", nil)
		}
		var cred db.Credential
		err = o.tx.Where("collection = ? AND email = ?", collection, db.NormalizeEmail(identity)).First(&cred).Error
		if err != nil || !db.CheckPassword(cred.PasswordHash, password) {
			return baas.NewClientError(http.StatusBadRequest, "Failed to authenticate.", err)
		}
		rec := o.load(collection, cred.RecordID)
		if rec == nil {
			return baas.NewClientError(http.StatusBadRequest, "Failed to authenticate.", nil)
		}
		token, err := o.b.signer.issue(collection, rec.ID)
		if err != nil {
			return err
		}
		o.rc.auth = rec.ID
		result = &baas.AuthResult{Token: token, Record: o.present(rec)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.auth.Save(result.Token, result.Record)
	return result, nil
}

// run executes fn under the backend lock and normalizes its error.
func (c *Client) run(ctx context.Context, fn func(o *op) error) error {
	if err := ctx.Err(); err != nil {
		return baas.NewClientError(0, "request canceled", err)
	}
	c.b.mu.Lock()
	defer c.b.mu.Unlock()

	o := &op{
		b:     c.b,
		tx:    c.b.db.WithContext(ctx),
		cache: map[string]*baas.Record{},
	}
	o.rc = &ruleContext{load: o.load}
	o.rc.auth = o.identify(c.auth.Token())

	err := fn(o)
	if err == nil {
		return nil
	}
	if _, ok := baas.AsClientError(err); ok {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return baas.NewClientError(0, "request canceled", ctxErr)
	}
	return baas.NewClientError(http.StatusInternalServerError, "Something went wrong while processing your request.", err)
}

func errNotFound() error {
	return baas.NewClientError(http.StatusNotFound, "The requested resource wasn't found.", nil)
}

func errForbidden() error {
	return baas.NewClientError(http.StatusForbidden, "You are not allowed to perform this request.", nil)
}
