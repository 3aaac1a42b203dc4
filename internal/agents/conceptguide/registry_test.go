package conceptguide

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/nswprep/examgen/internal/models"
)

func writeCatalog(t *testing.T, dir, key string, concepts ...map[string]interface{}) {
	t.Helper()
	file := map[string]interface{}{
		"subtopic_id":   "11111111-1111-1111-1111-111111111111",
		"subtopic_name": key,
		"topic_id":      "22222222-2222-2222-2222-222222222222",
		"topic_name":    "Thinking Skills",
		"concepts":      concepts,
	}
	data, err := json.Marshal(file)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, key+".json"), data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func concept(id string, dmin, dmax int, blooms ...string) map[string]interface{} {
	if len(blooms) == 0 {
		blooms = []string{"application"}
	}
	return map[string]interface{}{
		"id":             id,
		"name":           "concept " + id,
		"description":    "test concept",
		"difficulty_min": dmin,
		"difficulty_max": dmax,
		"bloom_levels":   blooms,
		"common_misconceptions": []string{
			"misreads the relation", "reverses the mapping", "ignores order", "overgeneralizes",
		},
		"question_patterns": []string{"A is to B as C is to ?"},
	}
}

func TestSelectRespectsExclusions(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "analogies",
		concept("c1", 1, 3),
		concept("c2", 1, 3),
	)
	r := NewRegistry(dir)
	r.seed(1)

	// With c1 excluded and c2 eligible, c2 must always win.
	for i := 0; i < 20; i++ {
		sel, err := r.Select("analogies", 2, []string{"c1"})
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if sel.Concept.ID != "c2" {
			t.Fatalf("selected excluded-adjacent concept %s", sel.Concept.ID)
		}
	}
}

func TestSelectAllExcludedIsNoEligible(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "analogies", concept("c1", 1, 3), concept("c2", 1, 3))
	r := NewRegistry(dir)

	_, err := r.Select("analogies", 2, []string{"c1", "c2"})
	if err == nil || err.Error() != "no_eligible" {
		t.Fatalf("err = %v, want no_eligible", err)
	}
}

func TestSelectDifficultyFallback(t *testing.T) {
	// Only concept covers difficulty 1..2; asking for 3 must relax the
	// window rather than fail, and bloom stays at application because the
	// concept does not offer analysis.
	dir := t.TempDir()
	writeCatalog(t, dir, "x", concept("c1", 1, 2))
	r := NewRegistry(dir)

	sel, err := r.Select("x", 3, nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sel.Concept.ID != "c1" {
		t.Fatalf("concept = %s", sel.Concept.ID)
	}
	if sel.TargetBloomLevel != models.BloomApplication {
		t.Fatalf("bloom = %s, want application", sel.TargetBloomLevel)
	}
}

func TestLoadClampsDifficultyWindow(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "x",
		concept("c1", 2, 5),
		concept("c2", 0, 0),
		concept("c3", 4, 2),
	)
	r := NewRegistry(dir)

	got := map[string][2]int{}
	for _, c := range r.Graph("x").Concepts {
		got[c.ID] = [2]int{c.DifficultyMin, c.DifficultyMax}
	}
	want := map[string][2]int{
		"c1": {2, 3}, // max capped to the scale
		"c2": {1, 3}, // zero values take the defaults
		"c3": {2, 2}, // inverted window narrows to max
	}
	for id, w := range want {
		if got[id] != w {
			t.Errorf("%s: window = %v, want %v", id, got[id], w)
		}
	}

	// A capped concept must now be selectable at the top of the scale.
	sel, err := r.Select("x", 3, []string{"c2", "c3"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sel.Concept.ID != "c1" || sel.Concept.DifficultyMax != 3 {
		t.Fatalf("sel = %+v", sel.Concept)
	}
}

func TestSelectBloomDerivation(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "x",
		concept("c1", 1, 3, "comprehension", "application", "analysis"),
	)
	r := NewRegistry(dir)

	tests := []struct {
		difficulty int
		want       models.BloomLevel
	}{
		{3, models.BloomAnalysis},
		{2, models.BloomApplication},
		{1, models.BloomComprehension},
	}
	for _, tt := range tests {
		sel, err := r.Select("x", tt.difficulty, nil)
		if err != nil {
			t.Fatalf("Select(%d): %v", tt.difficulty, err)
		}
		if sel.TargetBloomLevel != tt.want {
			t.Errorf("difficulty %d: bloom = %s, want %s", tt.difficulty, sel.TargetBloomLevel, tt.want)
		}
	}
}

func TestSelectMisconceptionCap(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "x", concept("c1", 1, 3))
	r := NewRegistry(dir)

	sel, err := r.Select("x", 2, nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(sel.SelectedMisconceptions) != 3 {
		t.Fatalf("misconceptions = %d, want 3", len(sel.SelectedMisconceptions))
	}
	// Catalog order is preserved.
	if sel.SelectedMisconceptions[0] != "misreads the relation" {
		t.Fatalf("first misconception = %q", sel.SelectedMisconceptions[0])
	}
}

func TestConcurrentFirstAccessLoadsOnce(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "x", concept("c1", 1, 3))
	r := NewRegistry(dir)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := len(r.Subtopics()); got != 1 {
				t.Errorf("subtopics = %d", got)
			}
		}()
	}
	wg.Wait()

	if len(r.Graph("x").Concepts) != 1 {
		t.Fatal("catalog mangled by concurrent load")
	}
}

func TestAgentSelectConceptAction(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "analogies", concept("c1", 1, 3))
	agent := NewAgent(NewRegistry(dir), 5001)

	out, err := agent.Handle(context.Background(), "select_concept",
		json.RawMessage(`{"action":"select_concept","subtopic":"analogies","difficulty":2,"exclude_ids":[]}`))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	data, _ := json.Marshal(out)
	var resp struct {
		Success   bool                     `json:"success"`
		Selection *models.ConceptSelection `json:"selection"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Selection == nil || resp.Selection.Concept.ID != "c1" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestAgentNoEligibleError(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "analogies", concept("c1", 1, 3))
	agent := NewAgent(NewRegistry(dir), 5001)

	out, err := agent.Handle(context.Background(), "select_concept",
		json.RawMessage(`{"action":"select_concept","subtopic":"analogies","difficulty":2,"exclude_ids":["c1"]}`))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	data, _ := json.Marshal(out)
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Success || resp.Error != "no_eligible" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestListSubtopics(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "analogies", concept("c1", 1, 2), concept("c2", 2, 3))
	writeCatalog(t, dir, "sequences", concept("c3", 1, 3))
	agent := NewAgent(NewRegistry(dir), 5001)

	out, err := agent.Handle(context.Background(), "list_subtopics",
		json.RawMessage(`{"action":"list_subtopics"}`))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	data, _ := json.Marshal(out)
	var resp struct {
		Success        bool `json:"success"`
		TotalSubtopics int  `json:"total_subtopics"`
		TotalConcepts  int  `json:"total_concepts"`
		Subtopics      []struct {
			Key             string         `json:"key"`
			ConceptCount    int            `json:"concept_count"`
			DifficultyRange map[string]int `json:"difficulty_range"`
		} `json:"subtopics"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TotalSubtopics != 2 || resp.TotalConcepts != 3 {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Subtopics[0].Key != "analogies" || resp.Subtopics[0].DifficultyRange["max"] != 3 {
		t.Fatalf("subtopic[0] = %+v", resp.Subtopics[0])
	}
}
