package schema

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestLadderIndex(t *testing.T) {
	cases := []struct {
		level FidelityLevel
		want  int
	}{
		{FidelityFullFHIR, 0},
		{FidelityFull, 1},
		{FidelitySequential, 2},
		{FidelityTable, 3},
		{FidelityEvaluationOnly, 4},
		{FidelityDraft, 5},
		{FidelityNone, 6},
		{FidelityLevel("bogus"), -1},
	}
	for _, c := range cases {
		if got := LadderIndex(c.level); got != c.want {
			t.Errorf("LadderIndex(%q) = %d, want %d", c.level, got, c.want)
		}
	}
}

func TestLadder_NoneIsFloor(t *testing.T) {
	if Ladder[len(Ladder)-1] != FidelityNone {
		t.Errorf("ladder floor = %q, want none", Ladder[len(Ladder)-1])
	}
}

func TestTierOrdinal(t *testing.T) {
	if !(TierOrdinal(TierHigh) < TierOrdinal(TierMedium) &&
		TierOrdinal(TierMedium) < TierOrdinal(TierLow)) {
		t.Error("tier ordinals out of order")
	}
	if TierOrdinal(PriorityTier("odd")) <= TierOrdinal(TierLow) {
		t.Error("unknown tier must sort last")
	}
}

// Report field names are the external diffing contract; renaming one is a
// breaking change.
func TestFidelityRun_StableFieldNames(t *testing.T) {
	run := FidelityRun{
		RequestedLevel: FidelityTable,
		AchievedLevel:  FidelityTable,
		DocumentName:   "guide",
		Success:        true,
		Fallbacks:      []Fallback{{From: FidelityFull, To: FidelityTable, Reason: "x"}},
	}
	b, err := json.Marshal(run)
	if err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{
		`"requested_level"`, `"achieved_level"`, `"document_name"`,
		`"execution_time_ns"`, `"success"`, `"fallbacks"`,
	} {
		if !strings.Contains(string(b), field) {
			t.Errorf("serialized run missing field %s", field)
		}
	}
}

func TestInventoryEntry_StableFieldNames(t *testing.T) {
	b, err := json.Marshal(InventoryEntry{})
	if err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{
		`"identifier"`, `"category_id"`, `"clinical_domain"`, `"persona"`,
		`"care_setting"`, `"trigger_event"`, `"data_inputs"`,
		`"expected_response"`, `"interaction_style"`, `"evidence_source"`,
		`"risk_level"`, `"complexity_band"`, `"review_status"`,
		`"origin_document"`, `"match_score"`, `"synthetic"`,
	} {
		if !strings.Contains(string(b), field) {
			t.Errorf("serialized inventory entry missing field %s", field)
		}
	}
}
