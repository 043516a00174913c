package webhookdispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/subtrack/internal/clock"
	"github.com/smallbiznis/subtrack/internal/config"
	"github.com/smallbiznis/subtrack/internal/jobqueue"
	"github.com/smallbiznis/subtrack/internal/observability/metrics"
	webhookdomain "github.com/smallbiznis/subtrack/internal/webhook/domain"
	webhookrepository "github.com/smallbiznis/subtrack/internal/webhook/repository"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func TestHandleNoActiveConfigIsNoOp(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	handler, db, node := setupDeliveryHandler(t)
	userID := node.Generate()

	// The user's only config is deactivated, so delivery must not
	// touch the endpoint at all.
	webhookConfig, err := webhookdomain.NewWebhookConfig(node.Generate(), userID, server.URL, "", time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("new webhook config: %v", err)
	}
	webhookConfig.Deactivate(time.Date(2026, 8, 28, 0, 1, 0, 0, time.UTC))
	if err := webhookrepository.Provide().Insert(context.Background(), db, webhookConfig); err != nil {
		t.Fatalf("insert webhook config: %v", err)
	}

	job := deliveryJob(t, node, userID, 1)
	if err := handler.Handle(context.Background(), job); err != nil {
		t.Fatalf("expected no-op success, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("expected no HTTP call, got %d", calls.Load())
	}
}

func TestHandleDeliversSnapshotBody(t *testing.T) {
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	handler, db, node := setupDeliveryHandler(t)
	userID := node.Generate()
	seedWebhookConfig(t, db, node, userID, server.URL, "whsec_123")

	job := deliveryJob(t, node, userID, 1)
	if err := handler.Handle(context.Background(), job); err != nil {
		t.Fatalf("handle: %v", err)
	}

	var event RenewalEvent
	if err := json.Unmarshal(body, &event); err != nil {
		t.Fatalf("decode delivered body: %v", err)
	}
	if event.Event != EventTypeSubscriptionRenewed {
		t.Fatalf("unexpected event %q", event.Event)
	}
	if event.Data.Subscription.NextBillingDate != "2026-08-28" {
		t.Fatalf("expected pre-advancement date in snapshot, got %s", event.Data.Subscription.NextBillingDate)
	}
	if event.Data.Billing.Amount != 4990 {
		t.Fatalf("expected billing amount 4990, got %d", event.Data.Billing.Amount)
	}
	if event.Metadata.Attempt != 1 {
		t.Fatalf("expected attempt 1, got %d", event.Metadata.Attempt)
	}
}

func TestHandleServerErrorStaysRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	handler, db, node := setupDeliveryHandler(t)
	userID := node.Generate()
	seedWebhookConfig(t, db, node, userID, server.URL, "")

	for attempt := 1; attempt <= 4; attempt++ {
		job := deliveryJob(t, node, userID, attempt)
		err := handler.Handle(context.Background(), job)
		if err == nil {
			t.Fatalf("attempt %d: expected error", attempt)
		}
		if jobqueue.IsPermanent(err) {
			t.Fatalf("attempt %d: 5xx must stay retryable, got permanent", attempt)
		}
	}
}

func TestHandleClientErrorTurnsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	handler, db, node := setupDeliveryHandler(t)
	userID := node.Generate()
	seedWebhookConfig(t, db, node, userID, server.URL, "")

	for attempt := 1; attempt <= 2; attempt++ {
		err := handler.Handle(context.Background(), deliveryJob(t, node, userID, attempt))
		if err == nil || jobqueue.IsPermanent(err) {
			t.Fatalf("attempt %d: expected retryable client error, got %v", attempt, err)
		}
	}

	err := handler.Handle(context.Background(), deliveryJob(t, node, userID, 3))
	if !jobqueue.IsPermanent(err) {
		t.Fatalf("attempt 3: expected permanent failure, got %v", err)
	}
}

func setupDeliveryHandler(t *testing.T) (*DeliveryHandler, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := db.Exec(`CREATE TABLE IF NOT EXISTS webhook_configs (
		id BIGINT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		url TEXT NOT NULL,
		secret TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP
	)`).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	holder, err := config.NewPipelineConfigHolder()
	if err != nil {
		t.Fatalf("pipeline config: %v", err)
	}

	log := zaptest.NewLogger(t)
	handler := NewDeliveryHandler(DeliveryHandlerParam{
		DB:    db,
		Log:   log,
		Clock: clock.NewFakeClock(time.Date(2026, 8, 28, 0, 5, 0, 0, time.UTC)),
		Repo:  webhookrepository.Provide(),
		Deliverer: &Deliverer{
			client: &http.Client{},
			log:    log,
			holder: holder,
		},
		Metrics: metrics.NewWithRegisterer(prometheus.NewRegistry()),
		Holder:  holder,
	})
	return handler, db, node
}

func seedWebhookConfig(t *testing.T, db *gorm.DB, node *snowflake.Node, userID snowflake.ID, url, secret string) {
	t.Helper()

	webhookConfig, err := webhookdomain.NewWebhookConfig(node.Generate(), userID, url, secret, time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("new webhook config: %v", err)
	}
	if err := webhookrepository.Provide().Insert(context.Background(), db, webhookConfig); err != nil {
		t.Fatalf("insert webhook config: %v", err)
	}
}

func deliveryJob(t *testing.T, node *snowflake.Node, userID snowflake.ID, attempt int) *jobqueue.Job {
	t.Helper()

	snapshot := RenewalSnapshot{
		UserID: userID.String(),
		Subscription: SubscriptionSnapshot{
			ID:              node.Generate().String(),
			Name:            "Spotify",
			Amount:          4990,
			Currency:        "USD",
			NextBillingDate: "2026-08-28",
		},
		Billing: BillingSnapshot{
			ID:       node.Generate().String(),
			Date:     "2026-08-28",
			Amount:   4990,
			Currency: "USD",
		},
		OccurredAt: time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	return &jobqueue.Job{
		ID:          "job-test",
		Type:        jobqueue.JobTypeWebhookDelivery,
		Status:      jobqueue.JobStatusProcessing,
		Payload:     payload,
		Attempt:     attempt,
		MaxAttempts: 5,
	}
}
