package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
)

func TestNewWebhookConfigValidatesURL(t *testing.T) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	now := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		url     string
		wantErr error
	}{
		{name: "https", url: "https://example.com/hooks/renewals"},
		{name: "http", url: "http://localhost:9000/hook"},
		{name: "surrounding whitespace", url: "  https://example.com/hook  "},
		{name: "missing scheme", url: "example.com/hook", wantErr: ErrInvalidURL},
		{name: "unsupported scheme", url: "ftp://example.com/hook", wantErr: ErrInvalidURL},
		{name: "missing host", url: "https:///hook", wantErr: ErrInvalidURL},
		{name: "empty", url: "", wantErr: ErrInvalidURL},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			config, err := NewWebhookConfig(node.Generate(), node.Generate(), tc.url, "", now)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("new webhook config: %v", err)
			}
			if !config.Active {
				t.Fatal("expected new config to be active")
			}
		})
	}
}

func TestChangeURLRejectsInvalid(t *testing.T) {
	node, _ := snowflake.NewNode(1)
	now := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	config, err := NewWebhookConfig(node.Generate(), node.Generate(), "https://example.com/hook", "s3cret", now)
	if err != nil {
		t.Fatalf("new webhook config: %v", err)
	}

	if err := config.ChangeURL("not a url", now); !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("expected ErrInvalidURL, got %v", err)
	}
	if config.URL != "https://example.com/hook" {
		t.Fatalf("url mutated on failed change: %s", config.URL)
	}
}
