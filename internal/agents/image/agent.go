// Package image generates exam diagrams: several SVG candidates from the
// LLM, a judge pass to pick the best, an optional critic refinement, and
// an upload of the winner to object storage.
package image

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nswprep/examgen/internal/a2a"
	"github.com/nswprep/examgen/internal/llm"
	"github.com/nswprep/examgen/internal/logging"
	"github.com/nswprep/examgen/internal/storage"
)

// Agent generates SAT-style educational diagrams.
type Agent struct {
	llm      *llm.Client
	model    string
	uploader storage.Uploader
	port     int
	log      *logging.Logger
}

// NewAgent builds an image agent.
func NewAgent(client *llm.Client, model string, uploader storage.Uploader, port int) *Agent {
	return &Agent{
		llm:      client,
		model:    model,
		uploader: uploader,
		port:     port,
		log:      logging.Global().WithComponent("ImageAgent"),
	}
}

// Card returns the agent descriptor.
func (a *Agent) Card() a2a.AgentCard {
	return a2a.AgentCard{
		Name:        "ImageAgent",
		Description: "Generates SAT-style educational diagrams",
		URL:         a2a.Endpoint{Port: a.port}.BaseURL() + "/",
		Version:     "1.0.0",
		Skills: []a2a.AgentSkill{
			{ID: "generate_diagram", Name: "Generate Diagram", Description: "Generate a diagram from a description", Tags: []string{"image", "diagram", "svg"}},
		},
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
	}
}

type diagramRequest struct {
	Description string `json:"description"`
}

// Result is the generate_diagram response body.
type Result struct {
	Success          bool   `json:"success"`
	Error            string `json:"error,omitempty"`
	ImageURL         string `json:"image_url,omitempty"`
	Format           string `json:"format,omitempty"`
	GenerationMethod string `json:"generation_method,omitempty"`
}

// Handle routes one task.
func (a *Agent) Handle(ctx context.Context, action string, raw json.RawMessage) (interface{}, error) {
	switch action {
	case "generate_diagram":
		var req diagramRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, err
		}
		if strings.TrimSpace(req.Description) == "" {
			return &Result{Success: false, Error: "No description provided"}, nil
		}
		return a.generateDiagram(ctx, req.Description), nil
	default:
		return a2a.UnknownAction(action), nil
	}
}

// strategies give each candidate generation a different bias so the judge
// has real alternatives to choose from.
var strategies = []struct {
	name        string
	instruction string
}{
	{"precise", "Focus on geometric precision and exact positioning. Use calculated coordinates."},
	{"minimal", "Use the simplest possible shapes. Fewer elements, maximum clarity."},
	{"structured", "Organize elements in a clear grid or hierarchical layout."},
}

func (a *Agent) generateDiagram(ctx context.Context, description string) *Result {
	candidates := a.generateCandidates(ctx, description)
	if len(candidates) == 0 {
		return &Result{Success: false, Error: "No valid SVG candidates generated"}
	}

	best := a.judgeCandidates(ctx, description, candidates)
	final := a.criticRefine(ctx, description, best)

	url, err := a.uploader.Upload(ctx, []byte(final), "diagrams", "svg", "image/svg+xml")
	if err != nil {
		a.log.Error("upload failed: %v", err)
		return &Result{Success: false, Error: fmt.Sprintf("Upload failed: %v", err)}
	}
	return &Result{Success: true, ImageURL: url, Format: "svg", GenerationMethod: "ccj"}
}

// generateCandidates asks for one SVG per strategy, concurrently, and
// keeps those that validate.
func (a *Agent) generateCandidates(ctx context.Context, description string) []string {
	results := make([]string, len(strategies))
	g, gctx := errgroup.WithContext(ctx)
	for i, strategy := range strategies {
		g.Go(func() error {
			out, err := a.llm.Generate(gctx, a.model, "", candidatePrompt(description, strategy.instruction))
			if err != nil {
				a.log.Warn("candidate %s failed: %v", strategy.name, err)
				return nil
			}
			results[i] = out
			return nil
		})
	}
	g.Wait()

	var candidates []string
	for _, out := range results {
		if svg := extractSVG(out); svg != "" && validSVG(svg) {
			candidates = append(candidates, svg)
		}
	}
	return candidates
}

// judgeCandidates picks the candidate that best matches the description.
// Any judge trouble falls back to the first candidate.
func (a *Agent) judgeCandidates(ctx context.Context, description string, candidates []string) string {
	if len(candidates) == 1 {
		return candidates[0]
	}
	out, err := a.llm.Generate(ctx, a.model, "", judgePrompt(description, candidates))
	if err != nil {
		return candidates[0]
	}
	for _, r := range strings.TrimSpace(out) {
		if r >= '1' && r <= '9' {
			idx := int(r - '1')
			if idx < len(candidates) {
				return candidates[idx]
			}
			break
		}
	}
	return candidates[0]
}

// criticRefine asks for issues and one improvement pass. The original SVG
// survives any failure along the way.
func (a *Agent) criticRefine(ctx context.Context, description, svg string) string {
	critique, err := a.llm.Generate(ctx, a.model, "", criticPrompt(description, svg))
	if err != nil || strings.Contains(strings.ToUpper(critique), "APPROVED") {
		return svg
	}
	out, err := a.llm.Generate(ctx, a.model, "", refinePrompt(description, svg, critique))
	if err != nil {
		return svg
	}
	if refined := extractSVG(out); refined != "" && validSVG(refined) {
		return refined
	}
	return svg
}

var svgPattern = regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`)

// extractSVG pulls the first SVG element out of model output, fenced or
// not.
func extractSVG(text string) string {
	if m := svgPattern.FindString(text); m != "" {
		return m
	}
	return ""
}

// validSVG checks the candidate is well-formed XML rooted at <svg>.
func validSVG(svg string) bool {
	decoder := xml.NewDecoder(strings.NewReader(svg))
	sawRoot := false
	for {
		tok, err := decoder.Token()
		if err != nil {
			return errors.Is(err, io.EOF) && sawRoot
		}
		if start, ok := tok.(xml.StartElement); ok && !sawRoot {
			if !strings.EqualFold(start.Name.Local, "svg") {
				return false
			}
			sawRoot = true
		}
	}
}
