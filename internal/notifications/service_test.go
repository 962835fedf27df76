package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"coldstakepool/internal/config"
	"coldstakepool/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyBlockFound(context.Background(), 200100, "pcs1example", "2.85"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		notify         func(svc notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "block found",
			notify: func(svc notifications.Service) error {
				return svc.NotifyBlockFound(context.Background(), 200100, "pcs1staker", "2.85")
			},
			expectTitle:   "ColdStakePool - Block Found",
			expectMessage: "Pool staked block 200100 (reward 2.85, staker pcs1staker)",
			expectTags:    "coldstakepool,block,found",
		},
		{
			name: "payout sent",
			notify: func(svc notifications.Service) error {
				return svc.NotifyPayoutSent(context.Background(), "batch-1", "txid-1", 3, "12.5")
			},
			expectTitle:   "ColdStakePool - Payout Sent",
			expectMessage: "Paid 12.5 to 3 participants\nBatch: batch-1\nTxid: txid-1",
			expectTags:    "coldstakepool,payout,sent",
		},
		{
			name: "payout failed",
			notify: func(svc notifications.Service) error {
				return svc.NotifyPayoutFailed(context.Background(), "batch-2", errors.New("insufficient funds"))
			},
			expectTitle:    "ColdStakePool - Payout Failed",
			expectMessage:  "Payout batch batch-2 failed: insufficient funds",
			expectTags:     "coldstakepool,payout,failed",
			expectPriority: "high",
		},
		{
			name: "error",
			notify: func(svc notifications.Service) error {
				return svc.NotifyError(context.Background(), errors.New("rpc unreachable"), "engine")
			},
			expectTitle:    "ColdStakePool - Error",
			expectMessage:  "Error with engine: rpc unreachable",
			expectTags:     "coldstakepool,error,alert",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := tc.notify(svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceSurfacesHTTPFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic over quota", http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	err := svc.TestNotification(context.Background())
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected status code in error, got %v", err)
	}
}
