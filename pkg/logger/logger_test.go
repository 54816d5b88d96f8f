package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestContextFieldsPropagate(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "core-test", Level: zerolog.InfoLevel, Output: &buf})

	ctx := logg.WithBranchID(context.Background(), "branch-123")
	ctx = logg.WithActorRole(ctx, "branch-admin")
	logg.Info(ctx, "order created")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not json: %v", err)
	}
	if entry["branch_id"] != "branch-123" {
		t.Fatalf("branch_id missing from entry: %v", entry)
	}
	if entry["actor_role"] != "branch-admin" {
		t.Fatalf("actor_role missing from entry: %v", entry)
	}
	if entry["service"] != "core-test" {
		t.Fatalf("service missing from entry: %v", entry)
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("warn") != zerolog.WarnLevel {
		t.Fatal("warn should parse")
	}
	if ParseLevel("") != zerolog.InfoLevel {
		t.Fatal("empty level should default to info")
	}
	if ParseLevel("bogus") != zerolog.InfoLevel {
		t.Fatal("bogus level should default to info")
	}
}
