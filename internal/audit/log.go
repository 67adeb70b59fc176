package audit

import (
	"encoding/json"
	"time"

	"gatehouse.org/internal/obs"
)

// Emit mirrors an entry to the structured log and the audit metrics. It is
// called at the decision point alongside the durable append, so operators
// can tail privileged activity without querying the store.
func Emit(e *Entry) {
	if e == nil {
		return
	}
	line := map[string]any{
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"type":    "audit",
		"id":      e.ID,
		"action":  string(e.Action),
		"outcome": string(e.Outcome),
	}
	if e.ActorID != "" {
		line["actor_id"] = e.ActorID
	}
	if e.TargetID != "" {
		line["target_id"] = e.TargetID
	}
	if e.Reason != "" {
		line["reason"] = e.Reason
	}
	if e.Origin.IP != "" {
		line["origin_ip"] = e.Origin.IP
	}
	data, err := json.Marshal(line)
	if err != nil {
		obs.Logger().Println(`{"level":"error","msg":"audit marshal failed"}`)
		return
	}
	obs.Logger().Println(string(data))
	obs.ObserveAudit(string(e.Action), string(e.Outcome))
}
