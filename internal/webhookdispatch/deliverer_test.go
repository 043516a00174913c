package webhookdispatch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/smallbiznis/subtrack/internal/config"
	"go.uber.org/zap/zaptest"
)

type recordedRequest struct {
	header http.Header
	body   []byte
}

func TestDeliverClassifiesResponses(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   Outcome
	}{
		{name: "200 delivered", status: http.StatusOK, want: OutcomeDelivered},
		{name: "204 delivered", status: http.StatusNoContent, want: OutcomeDelivered},
		{name: "500 retryable", status: http.StatusInternalServerError, want: OutcomeRetryable},
		{name: "503 retryable", status: http.StatusServiceUnavailable, want: OutcomeRetryable},
		{name: "429 retryable", status: http.StatusTooManyRequests, want: OutcomeRetryable},
		{name: "404 client error", status: http.StatusNotFound, want: OutcomeClientError},
		{name: "400 client error", status: http.StatusBadRequest, want: OutcomeClientError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer server.Close()

			deliverer := newTestDeliverer(t)
			outcome, err := deliverer.Deliver(context.Background(), server.URL, "", "1001", []byte(`{}`))
			if outcome != tc.want {
				t.Fatalf("expected outcome %d, got %d (err=%v)", tc.want, outcome, err)
			}
			if tc.want == OutcomeDelivered && err != nil {
				t.Fatalf("expected no error on delivery, got %v", err)
			}
			if tc.want != OutcomeDelivered && err == nil {
				t.Fatal("expected error detail on failure")
			}
		})
	}
}

func TestDeliverConnectionFailureIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	deliverer := newTestDeliverer(t)
	outcome, err := deliverer.Deliver(context.Background(), server.URL, "", "1001", []byte(`{}`))
	if outcome != OutcomeRetryable {
		t.Fatalf("expected retryable outcome, got %d", outcome)
	}
	if err == nil {
		t.Fatal("expected connection error")
	}
}

func TestDeliverSetsHeaders(t *testing.T) {
	var mu sync.Mutex
	var requests []recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, recordedRequest{header: r.Header.Clone(), body: body})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	deliverer := newTestDeliverer(t)
	body := []byte(`{"event":"subscription.renewed"}`)

	for i := 0; i < 2; i++ {
		if outcome, err := deliverer.Deliver(context.Background(), server.URL, "whsec_123", "1001", body); outcome != OutcomeDelivered || err != nil {
			t.Fatalf("deliver %d: outcome=%d err=%v", i, outcome, err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(requests))
	}

	first := requests[0]
	if got := first.header.Get(headerEventType); got != EventTypeSubscriptionRenewed {
		t.Fatalf("unexpected event type header %q", got)
	}
	if got := first.header.Get(headerSubscriptionID); got != "1001" {
		t.Fatalf("unexpected subscription header %q", got)
	}
	if first.header.Get(headerRequestID) == "" {
		t.Fatal("expected request id header")
	}

	wantSignature, _ := Sign(body, "whsec_123")
	if got := first.header.Get(headerSignature); got != "sha256="+wantSignature {
		t.Fatalf("unexpected signature header %q", got)
	}

	// Each attempt carries a fresh request id.
	if requests[0].header.Get(headerRequestID) == requests[1].header.Get(headerRequestID) {
		t.Fatal("request id must be fresh per attempt")
	}
}

func TestDeliverOmitsSignatureWithoutSecret(t *testing.T) {
	var header http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	deliverer := newTestDeliverer(t)
	if outcome, err := deliverer.Deliver(context.Background(), server.URL, "", "1001", []byte(`{}`)); outcome != OutcomeDelivered || err != nil {
		t.Fatalf("deliver: outcome=%d err=%v", outcome, err)
	}

	if _, present := header[headerSignature]; present {
		t.Fatal("signature header must be omitted entirely without a secret")
	}
}

func newTestDeliverer(t *testing.T) *Deliverer {
	t.Helper()
	holder, err := config.NewPipelineConfigHolder()
	if err != nil {
		t.Fatalf("pipeline config: %v", err)
	}
	return &Deliverer{
		client: &http.Client{},
		log:    zaptest.NewLogger(t),
		holder: holder,
	}
}
