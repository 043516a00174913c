package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/subtrack/internal/clock"
	webhookdomain "github.com/smallbiznis/subtrack/internal/webhook/domain"
	webhookrepository "github.com/smallbiznis/subtrack/internal/webhook/repository"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func TestCreateAndGetWebhookConfig(t *testing.T) {
	service, _, _, node, _ := setupWebhookService(t)
	userID := node.Generate().String()

	created, err := service.Create(context.Background(), webhookdomain.CreateWebhookConfigRequest{
		UserID: userID,
		URL:    "https://example.com/hooks/renewals",
		Secret: "whsec_123",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !created.HasSecret {
		t.Fatal("expected has_secret to be true")
	}

	got, err := service.GetByID(context.Background(), userID, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.URL != "https://example.com/hooks/renewals" {
		t.Fatalf("unexpected url %s", got.URL)
	}
}

func TestCreateRejectsInvalidURL(t *testing.T) {
	service, _, _, node, _ := setupWebhookService(t)

	_, err := service.Create(context.Background(), webhookdomain.CreateWebhookConfigRequest{
		UserID: node.Generate().String(),
		URL:    "example.com/no-scheme",
	})
	if !errors.Is(err, webhookdomain.ErrInvalidURL) {
		t.Fatalf("expected ErrInvalidURL, got %v", err)
	}
}

func TestUpdateDeactivatesConfig(t *testing.T) {
	service, repo, db, node, _ := setupWebhookService(t)
	userID := node.Generate()

	created, err := service.Create(context.Background(), webhookdomain.CreateWebhookConfigRequest{
		UserID: userID.String(),
		URL:    "https://example.com/hook",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	active := false
	updated, err := service.Update(context.Background(), webhookdomain.UpdateWebhookConfigRequest{
		UserID:   userID.String(),
		ConfigID: created.ID,
		Active:   &active,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Active {
		t.Fatal("expected config to be inactive")
	}

	config, err := repo.FindActiveByUserID(context.Background(), db, userID)
	if err != nil {
		t.Fatalf("find active: %v", err)
	}
	if config != nil {
		t.Fatalf("expected no active config, got %s", config.ID.String())
	}
}

func TestFindActivePrefersLatestUpdated(t *testing.T) {
	service, repo, db, node, fake := setupWebhookService(t)
	userID := node.Generate()

	first, err := service.Create(context.Background(), webhookdomain.CreateWebhookConfigRequest{
		UserID: userID.String(),
		URL:    "https://example.com/hook/a",
	})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}

	fake.Advance(time.Minute)
	if _, err := service.Create(context.Background(), webhookdomain.CreateWebhookConfigRequest{
		UserID: userID.String(),
		URL:    "https://example.com/hook/b",
	}); err != nil {
		t.Fatalf("create second: %v", err)
	}

	// Touching the first config makes it the delivery target again.
	fake.Advance(time.Minute)
	rotated := "whsec_rotated"
	if _, err := service.Update(context.Background(), webhookdomain.UpdateWebhookConfigRequest{
		UserID:   userID.String(),
		ConfigID: first.ID,
		Secret:   &rotated,
	}); err != nil {
		t.Fatalf("update first: %v", err)
	}

	config, err := repo.FindActiveByUserID(context.Background(), db, userID)
	if err != nil {
		t.Fatalf("find active: %v", err)
	}
	if config == nil {
		t.Fatal("expected an active config")
	}
	if config.ID.String() != first.ID {
		t.Fatalf("expected config %s, got %s", first.ID, config.ID.String())
	}
}

func TestDeleteUnknownConfig(t *testing.T) {
	service, _, _, node, _ := setupWebhookService(t)

	err := service.Delete(context.Background(), node.Generate().String(), node.Generate().String())
	if !errors.Is(err, webhookdomain.ErrWebhookConfigNotFound) {
		t.Fatalf("expected ErrWebhookConfigNotFound, got %v", err)
	}
}

func setupWebhookService(t *testing.T) (webhookdomain.Service, webhookdomain.Repository, *gorm.DB, *snowflake.Node, *clock.FakeClock) {
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
	fake := clock.NewFakeClock(time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC))
	repo := webhookrepository.Provide()

	service := NewService(ServiceParam{
		DB:    db,
		Log:   zaptest.NewLogger(t),
		GenID: node,
		Clock: fake,
		Repo:  repo,
	})
	return service, repo, db, node, fake
}
