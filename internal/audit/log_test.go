package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"gatehouse.org/internal/obs"
)

func TestEmitWritesOneJSONLine(t *testing.T) {
	logger := obs.Logger()
	original := logger.Writer()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(original)

	e := NewEntry("actor-1", ActionSetStatus, "target-1", Origin{IP: "203.0.113.7"})
	Emit(e.Failed("self-modification"))

	line := buf.String()
	if line == "" {
		t.Fatal("expected log output")
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log not valid JSON: %v", err)
	}
	if entry["type"] != "audit" {
		t.Fatalf("unexpected type: %v", entry["type"])
	}
	if entry["action"] != string(ActionSetStatus) {
		t.Fatalf("unexpected action: %v", entry["action"])
	}
	if entry["outcome"] != string(OutcomeFailure) {
		t.Fatalf("unexpected outcome: %v", entry["outcome"])
	}
	if entry["reason"] != "self-modification" {
		t.Fatalf("unexpected reason: %v", entry["reason"])
	}
	if entry["actor_id"] != "actor-1" || entry["target_id"] != "target-1" {
		t.Fatalf("unexpected ids: %v %v", entry["actor_id"], entry["target_id"])
	}
	if entry["origin_ip"] != "203.0.113.7" {
		t.Fatalf("unexpected origin: %v", entry["origin_ip"])
	}
}

func TestMemoryQueryFiltersAndOrder(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	first := NewEntry("actor-1", ActionLogin, "", Origin{}).Succeeded()
	second := NewEntry("actor-1", ActionLogin, "", Origin{}).Failed("invalid credentials")
	third := NewEntry("actor-2", ActionDeleteUser, "target-9", Origin{}).Succeeded()
	for _, e := range []*Entry{first, second, third} {
		if err := m.Append(ctx, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	res, err := m.Query(ctx, Filters{ActorID: "actor-1"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("expected two entries, got %d", len(res))
	}
	// Newest first.
	if res[0].ID != second.ID || res[1].ID != first.ID {
		t.Fatalf("unexpected order: %s, %s", res[0].ID, res[1].ID)
	}

	res, err = m.Query(ctx, Filters{Action: ActionDeleteUser})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(res) != 1 || res[0].TargetID != "target-9" {
		t.Fatalf("unexpected entries: %+v", res)
	}

	res, err = m.Query(ctx, Filters{Limit: 2})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("expected limit to apply, got %d", len(res))
	}
}
