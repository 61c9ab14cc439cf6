// Package metrics exposes Prometheus collectors for backend calls and
// reconciliation batches.
package metrics

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/pubshare/internal/baas"
)

var (
	// BaaSRequests counts backend calls by collection, operation and outcome.
	BaaSRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pubshare_baas_requests_total",
		Help: "Total number of backend record API calls",
	}, []string{"collection", "operation", "outcome"})

	// BaaSLatency records backend call latency.
	BaaSLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pubshare_baas_request_duration_seconds",
		Help:    "Backend record API call latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"collection", "operation"})

	// SyncItems counts reconciliation items by kind, action and outcome.
	SyncItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pubshare_sync_items_total",
		Help: "Total number of co-author/file items processed by publication workflows",
	}, []string{"kind", "action", "outcome"})
)

// RecordSync increments the sync counter.
func RecordSync(kind, action string, err error) {
	SyncItems.WithLabelValues(kind, action, outcome(err)).Inc()
}

// Handler serves the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if ce, ok := baas.AsClientError(err); ok {
		switch {
		case ce.Status == 0:
			return "transport_error"
		case ce.Status == 404:
			return "not_found"
		case ce.Status == 401 || ce.Status == 403:
			return "forbidden"
		case ce.Status < 500:
			return "client_error"
		}
	}
	return "server_error"
}

// InstrumentClient wraps c so that every call is counted and timed.
func InstrumentClient(c baas.Client) baas.Client {
	if c == nil {
		return nil
	}
	if _, ok := c.(*instrumented); ok {
		return c
	}
	return &instrumented{next: c}
}

// InstrumentFactory wraps every client produced by f.
func InstrumentFactory(f baas.ClientFactory) baas.ClientFactory {
	return func(auth *baas.AuthStore) baas.Client {
		return InstrumentClient(f(auth))
	}
}

type instrumented struct {
	next baas.Client
}

func observe(collection, operation string, start time.Time, err error) {
	BaaSLatency.WithLabelValues(collection, operation).Observe(time.Since(start).Seconds())
	BaaSRequests.WithLabelValues(collection, operation, outcome(err)).Inc()
}

func (i *instrumented) List(ctx context.Context, collection string, page, perPage int, opts baas.ListOptions) (*baas.ListResult, error) {
	start := time.Now()
	res, err := i.next.List(ctx, collection, page, perPage, opts)
	observe(collection, "list", start, err)
	return res, err
}

func (i *instrumented) Get(ctx context.Context, collection, id string, opts baas.GetOptions) (*baas.Record, error) {
	start := time.Now()
	rec, err := i.next.Get(ctx, collection, id, opts)
	observe(collection, "get", start, err)
	return rec, err
}

func (i *instrumented) Create(ctx context.Context, collection string, form *baas.Form) (*baas.Record, error) {
	start := time.Now()
	rec, err := i.next.Create(ctx, collection, form)
	observe(collection, "create", start, err)
	return rec, err
}

func (i *instrumented) Update(ctx context.Context, collection, id string, form *baas.Form) (*baas.Record, error) {
	start := time.Now()
	rec, err := i.next.Update(ctx, collection, id, form)
	observe(collection, "update", start, err)
	return rec, err
}

func (i *instrumented) Delete(ctx context.Context, collection, id string) error {
	start := time.Now()
	err := i.next.Delete(ctx, collection, id)
	observe(collection, "delete", start, err)
	return err
}

func (i *instrumented) AuthWithPassword(ctx context.Context, collection, identity, password string) (*baas.AuthResult, error) {
	start := time.Now()
	res, err := i.next.AuthWithPassword(ctx, collection, identity, password)
	observe(collection, "auth", start, err)
	return res, err
}

func (i *instrumented) FileURL(record *baas.Record, filename string) string {
	return i.next.FileURL(record, filename)
}

func (i *instrumented) AuthStore() *baas.AuthStore {
	return i.next.AuthStore()
}
