package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
)

const (
	highAffinityRationale = "You two have a lot of common ground. This looks like a match worth a conversation."
	genericRationale      = "You share some interests and could make a good professional connection."

	// Enrichment output shorter than this is treated as degenerate and discarded.
	minRationaleLength = 12

	enrichTimeout = 4 * time.Second
)

// TextGenerator is the optional enrichment capability: anything that can
// turn profile + overlap context into free text. Implementations are
// fail-open; an error just means the rule-based text is used instead.
type TextGenerator interface {
	Generate(ctx context.Context, req EnrichmentRequest) (string, error)
}

// EnrichmentRequest is the structured context handed to the generator.
type EnrichmentRequest struct {
	Me       Profile  `json:"me"`
	Other    Profile  `json:"other"`
	Overlaps []string `json:"overlaps"`
	Context  string   `json:"context"`
	Score    int      `json:"score"`
}

// textGenerator is the process-wide enrichment hook. Defaults to the
// null generator, so the rule-based path works with zero configuration.
var textGenerator TextGenerator = nullGenerator{}

// nullGenerator always fails, which routes every caller to the fallback.
type nullGenerator struct{}

var errNoGenerator = errors.New("no text generator configured")

func (nullGenerator) Generate(ctx context.Context, req EnrichmentRequest) (string, error) {
	return "", errNoGenerator
}

// ruleBasedRationale is the guaranteed, side-effect-free explanation path.
func ruleBasedRationale(score int) string {
	if score >= 80 {
		return highAffinityRationale
	}
	return genericRationale
}

// ruleBasedSynergy builds a deterministic summary for a mutual match.
func ruleBasedSynergy(a, b Profile) string {
	shared := overlapMatches(a.Interests, b.Interests, 3)
	shared = append(shared, overlapMatches(a.Skills, b.Skills, 3)...)
	shared = append(shared, overlapMatches(a.Industries, b.Industries, 3)...)
	if len(shared) == 0 {
		return "You both liked each other, which is a great starting point for a conversation."
	}
	return fmt.Sprintf("You connected over shared ground in %s. Reach out and compare notes!",
		strings.Join(shared, ", "))
}

// explainScore returns the rationale for a pairwise score: the enriched
// text when the generator produces something usable, the rule-based
// sentence otherwise. Enrichment failures are swallowed, never propagated.
func explainScore(ctx context.Context, me, other Profile, score int) string {
	fallback := ruleBasedRationale(score)
	req := EnrichmentRequest{
		Me:       me,
		Other:    other,
		Overlaps: overlapMatches(me.Interests, other.Interests, 5),
		Context:  "candidate_rationale",
		Score:    score,
	}
	if text, ok := tryEnrich(ctx, req); ok {
		return text
	}
	return fallback
}

// synergySummary returns the mutual-match summary text, enriched when
// possible, rule-based otherwise.
func synergySummary(ctx context.Context, a, b Profile) string {
	req := EnrichmentRequest{
		Me:       a,
		Other:    b,
		Overlaps: append(overlapMatches(a.Interests, b.Interests, 3), overlapMatches(a.Skills, b.Skills, 3)...),
		Context:  "mutual_synergy",
		Score:    compatibilityScore(a, b),
	}
	if text, ok := tryEnrich(ctx, req); ok {
		return text
	}
	return ruleBasedSynergy(a, b)
}

// tryEnrich runs the generator under its own timeout and validates the
// output. Returns ok=false for any failure or degenerate result.
func tryEnrich(parent context.Context, req EnrichmentRequest) (string, bool) {
	ctx, cancel := context.WithTimeout(parent, enrichTimeout)
	defer cancel()

	text, err := textGenerator.Generate(ctx, req)
	if err != nil {
		if !errors.Is(err, errNoGenerator) {
			log.Println("Enrichment failed, using rule-based text:", err)
		}
		return "", false
	}
	text = strings.TrimSpace(text)
	if len(text) < minRationaleLength {
		return "", false
	}
	return text, true
}

// httpGenerator calls an external text-generation service over HTTP.
// A circuit breaker keeps a flapping service from slowing every queue
// build down to its timeout.
type httpGenerator struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[string]
}

func newHTTPGenerator(url string) *httpGenerator {
	return &httpGenerator{
		url:    url,
		client: &http.Client{Timeout: enrichTimeout},
		breaker: gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
			Name:    "enrichment",
			Timeout: 30 * time.Second,
		}),
	}
}

func (g *httpGenerator) Generate(ctx context.Context, req EnrichmentRequest) (string, error) {
	return g.breaker.Execute(func() (string, error) {
		body, err := json.Marshal(req)
		if err != nil {
			return "", err
		}
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := g.client.Do(httpReq)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("enrichment service returned status %d", resp.StatusCode)
		}

		var out struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&out); err != nil {
			return "", err
		}
		return out.Text, nil
	})
}

// initTextGenerator wires the enrichment service when ENRICH_URL is set.
func initTextGenerator() {
	if url := os.Getenv("ENRICH_URL"); url != "" {
		textGenerator = newHTTPGenerator(url)
		log.Println("Enrichment service configured:", url)
	}
}
