// Package conceptguide implements the concept registry service: it loads
// the atomic-concept catalog from disk and selects concepts matching a
// requested subtopic and difficulty.
package conceptguide

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/nswprep/examgen/internal/logging"
	"github.com/nswprep/examgen/internal/models"
)

// Registry holds the in-memory concept catalog. The catalog is loaded at
// most once, on first use, and is read-only afterwards.
type Registry struct {
	dir    string
	once   sync.Once
	graphs map[string]*models.ConceptGraph
	keys   []string
	log    *logging.Logger

	mu   sync.Mutex
	rand *rand.Rand
}

// NewRegistry builds a registry over a directory of subtopic JSON files.
func NewRegistry(dir string) *Registry {
	return &Registry{
		dir:  dir,
		log:  logging.Global().WithComponent("ConceptGuide"),
		rand: rand.New(rand.NewSource(rand.Int63())),
	}
}

// catalogFile is the on-disk shape of one subtopic's concept file.
type catalogFile struct {
	SubtopicID             string   `json:"subtopic_id"`
	SubtopicName           string   `json:"subtopic_name"`
	TopicID                string   `json:"topic_id"`
	TopicName              string   `json:"topic_name"`
	TypicallyRequiresImage bool     `json:"typically_requires_image"`
	ImageTypes             []string `json:"image_types"`
	Concepts               []struct {
		ID                   string              `json:"id"`
		Name                 string              `json:"name"`
		Description          string              `json:"description"`
		DifficultyMin        int                 `json:"difficulty_min"`
		DifficultyMax        int                 `json:"difficulty_max"`
		BloomLevels          []models.BloomLevel `json:"bloom_levels"`
		CommonMisconceptions []string            `json:"common_misconceptions"`
		QuestionPatterns     []string            `json:"question_patterns"`
		ExampleStems         []string            `json:"example_stems"`
	} `json:"concepts"`
}

// ensureLoaded loads the catalog exactly once. Concurrent first callers
// block until the load finishes.
func (r *Registry) ensureLoaded() {
	r.once.Do(func() {
		r.graphs = make(map[string]*models.ConceptGraph)

		files, err := filepath.Glob(filepath.Join(r.dir, "*.json"))
		if err != nil || len(files) == 0 {
			r.log.Warn("no concept files found in %s", r.dir)
			return
		}

		for _, path := range files {
			key := strings.TrimSuffix(filepath.Base(path), ".json")
			graph, err := loadCatalogFile(path)
			if err != nil {
				r.log.Error("loading %s: %v", path, err)
				continue
			}
			r.graphs[key] = graph
			r.keys = append(r.keys, key)
			r.log.Info("loaded %d concepts for %s", len(graph.Concepts), key)
		}
		sort.Strings(r.keys)
	})
}

func loadCatalogFile(path string) (*models.ConceptGraph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f catalogFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}

	graph := &models.ConceptGraph{
		SubtopicID:   f.SubtopicID,
		SubtopicName: f.SubtopicName,
		TopicID:      f.TopicID,
		TopicName:    f.TopicName,
	}
	for _, c := range f.Concepts {
		dmin, dmax := c.DifficultyMin, c.DifficultyMax
		if dmax == 0 {
			dmax = 3
		}
		dmin, dmax = clampDifficulty(dmin), clampDifficulty(dmax)
		if dmin > dmax {
			dmin = dmax
		}
		blooms := c.BloomLevels
		if len(blooms) == 0 {
			blooms = []models.BloomLevel{models.BloomApplication}
		}
		graph.Concepts = append(graph.Concepts, models.AtomicConcept{
			ID:                     c.ID,
			Name:                   c.Name,
			Description:            c.Description,
			SubtopicID:             f.SubtopicID,
			SubtopicName:           f.SubtopicName,
			TopicID:                f.TopicID,
			TopicName:              f.TopicName,
			DifficultyMin:          dmin,
			DifficultyMax:          dmax,
			BloomLevels:            blooms,
			CommonMisconceptions:   c.CommonMisconceptions,
			QuestionPatterns:       c.QuestionPatterns,
			ExampleStems:           c.ExampleStems,
			TypicallyRequiresImage: f.TypicallyRequiresImage,
			ImageTypes:             f.ImageTypes,
		})
	}
	return graph, nil
}

// clampDifficulty forces a catalog value onto the 1..3 difficulty scale.
// Catalogs are hand-authored; an out-of-range window is narrowed rather
// than rejected so one bad entry cannot take the subtopic offline.
func clampDifficulty(d int) int {
	if d < 1 {
		return 1
	}
	if d > 3 {
		return 3
	}
	return d
}

// Subtopics returns the loaded subtopic keys in sorted order.
func (r *Registry) Subtopics() []string {
	r.ensureLoaded()
	return r.keys
}

// Graph returns one subtopic's catalog, or nil if unknown.
func (r *Registry) Graph(subtopic string) *models.ConceptGraph {
	r.ensureLoaded()
	return r.graphs[subtopic]
}

// Select picks a concept for (subtopic, difficulty) excluding the given
// ids. Concepts whose difficulty window contains the target are preferred;
// if none qualify, the difficulty constraint is relaxed.
func (r *Registry) Select(subtopic string, difficulty int, excludeIDs []string) (*models.ConceptSelection, error) {
	r.ensureLoaded()

	graph, ok := r.graphs[subtopic]
	if !ok {
		return nil, fmt.Errorf("unknown subtopic: %s", subtopic)
	}

	excluded := make(map[string]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}

	var eligible []models.AtomicConcept
	for _, c := range graph.Concepts {
		if c.DifficultyMin <= difficulty && difficulty <= c.DifficultyMax && !excluded[c.ID] {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		// Relax the difficulty window, keep the exclusion set.
		for _, c := range graph.Concepts {
			if !excluded[c.ID] {
				eligible = append(eligible, c)
			}
		}
	}
	if len(eligible) == 0 {
		return nil, errNoEligible
	}

	selected := eligible[r.intn(len(eligible))]

	targetBloom := models.BloomApplication
	if difficulty >= 3 && selected.HasBloomLevel(models.BloomAnalysis) {
		targetBloom = models.BloomAnalysis
	} else if difficulty <= 1 && selected.HasBloomLevel(models.BloomComprehension) {
		targetBloom = models.BloomComprehension
	}

	misconceptions := selected.CommonMisconceptions
	if len(misconceptions) > 3 {
		misconceptions = misconceptions[:3]
	}

	var pattern string
	if len(selected.QuestionPatterns) > 0 {
		pattern = selected.QuestionPatterns[r.intn(len(selected.QuestionPatterns))]
	}

	return &models.ConceptSelection{
		Concept:                selected,
		TargetDifficulty:       difficulty,
		TargetBloomLevel:       targetBloom,
		SelectedMisconceptions: misconceptions,
		SelectedPattern:        pattern,
	}, nil
}

func (r *Registry) intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// seed re-seeds the selection RNG. Used by tests.
func (r *Registry) seed(s int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand = rand.New(rand.NewSource(s))
}

var errNoEligible = fmt.Errorf("no_eligible")
