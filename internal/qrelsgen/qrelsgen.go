// Package qrelsgen fabricates plausible relevance judgments from a run,
// for demos and smoke tests where no real judgments exist.
package qrelsgen

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/ricesearch/rice-eval/internal/pkg/errors"
	"github.com/ricesearch/rice-eval/internal/trec"
)

// Options controls generation. The seed makes output reproducible.
type Options struct {
	RelevanceRate float64
	Seed          int64
	FallbackDepth int
}

// Judgment is one generated relevant document.
type Judgment struct {
	Topic string
	Doc   string
}

// Generator produces judgments from runs.
type Generator struct {
	opts Options
}

// New creates a generator.
func New(opts Options) (*Generator, error) {
	if opts.RelevanceRate <= 0 || opts.RelevanceRate > 1 {
		return nil, errors.ValidationError(fmt.Sprintf("relevance rate %v must be in (0, 1]", opts.RelevanceRate))
	}
	if opts.FallbackDepth < 1 {
		return nil, errors.ValidationError("fallback depth must be positive")
	}
	return &Generator{opts: opts}, nil
}

// Generate selects relevant documents per topic. Selection probability
// decays linearly from rate at the top of the list to rate/2 at the
// bottom, each topic gets at most max(1, n*rate) documents, and a topic
// with no selection falls back to its top-ranked documents.
func (g *Generator) Generate(run *trec.Run) []Judgment {
	rng := rand.New(rand.NewSource(g.opts.Seed))
	rate := g.opts.RelevanceRate

	var out []Judgment
	for _, topic := range run.Topics() {
		docs := run.Ranked(topic)
		n := len(docs)
		if n == 0 {
			continue
		}

		quota := int(float64(n) * rate)
		if quota < 1 {
			quota = 1
		}

		var picked []string
		for i, doc := range docs {
			prob := rate * (1.0 - (float64(i)/float64(n))*0.5)
			if rng.Float64() < prob && len(picked) < quota {
				picked = append(picked, doc)
			}
		}

		if len(picked) == 0 {
			depth := min(g.opts.FallbackDepth, n)
			picked = docs[:depth]
		}

		for _, doc := range picked {
			out = append(out, Judgment{Topic: topic, Doc: doc})
		}
	}
	return out
}

// Write emits judgments in qrels format, one "topic 0 doc 1" line each.
func Write(w io.Writer, judgments []Judgment) error {
	bw := bufio.NewWriter(w)
	for _, j := range judgments {
		if _, err := fmt.Fprintf(bw, "%s 0 %s 1\n", j.Topic, j.Doc); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile writes judgments to path, creating parent directories.
func WriteFile(path string, judgments []Judgment) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.IOError(filepath.Dir(path), err)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.IOError(path, err)
	}
	if err := Write(f, judgments); err != nil {
		f.Close()
		return errors.IOError(path, err)
	}
	if err := f.Close(); err != nil {
		return errors.IOError(path, err)
	}
	return nil
}
