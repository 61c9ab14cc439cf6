package metrics

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/pubshare/internal/baas"
)

type stubClient struct {
	baas.Client
	err error
}

func (s stubClient) Get(ctx context.Context, collection, id string, opts baas.GetOptions) (*baas.Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	return baas.NewRecord(collection), nil
}

func TestInstrumentClientCountsOutcomes(t *testing.T) {
	ok := InstrumentClient(stubClient{})
	missing := InstrumentClient(stubClient{err: baas.NewClientError(http.StatusNotFound, "missing", nil)})

	before := testutil.ToFloat64(BaaSRequests.WithLabelValues("publications", "get", "ok"))
	beforeMissing := testutil.ToFloat64(BaaSRequests.WithLabelValues("publications", "get", "not_found"))

	if _, err := ok.Get(context.Background(), "publications", "a", baas.GetOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := missing.Get(context.Background(), "publications", "b", baas.GetOptions{}); err == nil {
		t.Fatalf("expected error")
	}

	if got := testutil.ToFloat64(BaaSRequests.WithLabelValues("publications", "get", "ok")); got != before+1 {
		t.Fatalf("expected ok counter %v, got %v", before+1, got)
	}
	if got := testutil.ToFloat64(BaaSRequests.WithLabelValues("publications", "get", "not_found")); got != beforeMissing+1 {
		t.Fatalf("expected not_found counter %v, got %v", beforeMissing+1, got)
	}
	if InstrumentClient(ok) != ok {
		t.Fatalf("wrapping twice should return the same client")
	}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{baas.NewClientError(0, "", context.DeadlineExceeded), "transport_error"},
		{baas.NewClientError(http.StatusForbidden, "", nil), "forbidden"},
		{baas.NewValidationError("bad", nil), "client_error"},
		{baas.NewClientError(http.StatusBadGateway, "", nil), "server_error"},
		{errors.New("boom"), "server_error"},
	}
	for _, tt := range tests {
		if got := outcome(tt.err); got != tt.want {
			t.Fatalf("outcome(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
