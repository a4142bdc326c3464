package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeGenerator returns a canned response or error.
type fakeGenerator struct {
	text string
	err  error
	// delay lets tests simulate a slow enrichment service
	delay time.Duration
}

func (f fakeGenerator) Generate(ctx context.Context, req EnrichmentRequest) (string, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

// withGenerator swaps the process-wide generator for the duration of a test.
func withGenerator(t *testing.T, g TextGenerator) {
	t.Helper()
	prev := textGenerator
	textGenerator = g
	t.Cleanup(func() { textGenerator = prev })
}

func TestRuleBasedRationale(t *testing.T) {
	assert.Equal(t, highAffinityRationale, ruleBasedRationale(80))
	assert.Equal(t, highAffinityRationale, ruleBasedRationale(100))
	assert.Equal(t, genericRationale, ruleBasedRationale(79))
	assert.Equal(t, genericRationale, ruleBasedRationale(0))
}

func TestExplainScore(t *testing.T) {
	me := Profile{Interests: []string{"AI"}}
	other := Profile{Interests: []string{"AI"}}

	t.Run("uses the fallback with no generator configured", func(t *testing.T) {
		withGenerator(t, nullGenerator{})
		assert.Equal(t, genericRationale, explainScore(context.Background(), me, other, 40))
		assert.Equal(t, highAffinityRationale, explainScore(context.Background(), me, other, 90))
	})

	t.Run("prefers usable enriched text", func(t *testing.T) {
		withGenerator(t, fakeGenerator{text: "You both care deeply about applied AI."})
		assert.Equal(t, "You both care deeply about applied AI.", explainScore(context.Background(), me, other, 40))
	})

	t.Run("generator error falls back", func(t *testing.T) {
		withGenerator(t, fakeGenerator{err: errors.New("service exploded")})
		assert.Equal(t, genericRationale, explainScore(context.Background(), me, other, 40))
	})

	t.Run("degenerate short output falls back", func(t *testing.T) {
		withGenerator(t, fakeGenerator{text: "ok!"})
		assert.Equal(t, genericRationale, explainScore(context.Background(), me, other, 40))
	})

	t.Run("whitespace-only output falls back", func(t *testing.T) {
		withGenerator(t, fakeGenerator{text: "                 "})
		assert.Equal(t, genericRationale, explainScore(context.Background(), me, other, 40))
	})

	t.Run("a generator slower than its deadline falls back", func(t *testing.T) {
		withGenerator(t, fakeGenerator{text: "late but lovely answer", delay: enrichTimeout + time.Second})
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		assert.Equal(t, genericRationale, explainScore(ctx, me, other, 40))
	})
}

func TestSynergySummary(t *testing.T) {
	a := Profile{Interests: []string{"AI", "Climate"}, Skills: []string{"Go"}}
	b := Profile{Interests: []string{"Climate"}, Skills: []string{"go", "Rust"}}

	t.Run("rule-based summary names the shared ground", func(t *testing.T) {
		withGenerator(t, nullGenerator{})
		summary := synergySummary(context.Background(), a, b)
		assert.Contains(t, summary, "Climate")
		assert.Contains(t, summary, "Go")
	})

	t.Run("no overlap still yields a sentence", func(t *testing.T) {
		withGenerator(t, nullGenerator{})
		summary := synergySummary(context.Background(), Profile{}, Profile{})
		assert.True(t, len(summary) >= minRationaleLength)
		assert.False(t, strings.Contains(summary, "%"))
	})

	t.Run("enriched summary wins when usable", func(t *testing.T) {
		withGenerator(t, fakeGenerator{text: "A climate-tech duo in the making."})
		assert.Equal(t, "A climate-tech duo in the making.", synergySummary(context.Background(), a, b))
	})
}
