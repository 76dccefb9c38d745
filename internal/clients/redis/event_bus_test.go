package redis

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/audience-backend/internal/platform/logger"
)

func TestConfigOptions(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantAddr string
		wantDB   int
		wantErr  bool
	}{
		{"addr", Config{Addr: "cache:6379", DB: 2}, "cache:6379", 2, false},
		{"url wins", Config{URL: "redis://:pw@events:6380/3", Addr: "ignored:1"}, "events:6380", 3, false},
		{"bad url", Config{URL: "http://nope"}, "", 0, true},
		{"nothing", Config{}, "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := tt.cfg.options()
			if (err != nil) != tt.wantErr {
				t.Fatalf("options() err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && (opts.Addr != tt.wantAddr || opts.DB != tt.wantDB) {
				t.Fatalf("options() = %s db %d", opts.Addr, opts.DB)
			}
		})
	}
	if (Config{}).Enabled() || !(Config{URL: "redis://x"}).Enabled() {
		t.Fatalf("Enabled mismatch")
	}
}

func TestChannelFor(t *testing.T) {
	if got := (Config{}).ChannelFor("u1"); got != "audience-events:u1" {
		t.Fatalf("default channel = %s", got)
	}
	if got := (Config{Channel: "jobs"}).ChannelFor("u1"); got != "jobs:u1" {
		t.Fatalf("channel = %s", got)
	}
}

func TestEncode(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	raw, err := encode(Event{UserID: "u1", Event: "job_done", Data: map[string]any{"job_id": "j"}}, now)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var back Event
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !back.At.Equal(now) || back.Data["job_id"] != "j" {
		t.Fatalf("round trip = %+v", back)
	}
	if _, err := encode(Event{Event: "job_done"}, now); err == nil {
		t.Fatalf("expected error without user id")
	}
}

func TestNewEventBusFailsFastWithoutServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := NewEventBus(ctx, logger.Nop(), Config{Addr: "127.0.0.1:1"})
	if err == nil || !strings.Contains(err.Error(), "redis ping") {
		t.Fatalf("expected ping error, got %v", err)
	}
}
