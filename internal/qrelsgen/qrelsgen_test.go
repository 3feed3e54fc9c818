package qrelsgen

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ricesearch/rice-eval/internal/pkg/errors"
	"github.com/ricesearch/rice-eval/internal/trec"
)

func sampleRun(t *testing.T, topics, depth int) *trec.Run {
	t.Helper()
	var sb strings.Builder
	for q := 0; q < topics; q++ {
		for r := 1; r <= depth; r++ {
			fmt.Fprintf(&sb, "%d Q0 DOC-%d-%03d %d %f student\n", 400+q, q, r, r, 100.0/float64(r))
		}
	}
	run, err := trec.ParseRun("student.run", strings.NewReader(sb.String()))
	require.NoError(t, err)
	return run
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{RelevanceRate: 0, FallbackDepth: 3})
	assert.True(t, errors.IsValidation(err))

	_, err = New(Options{RelevanceRate: 1.2, FallbackDepth: 3})
	assert.True(t, errors.IsValidation(err))

	_, err = New(Options{RelevanceRate: 0.25, FallbackDepth: 0})
	assert.True(t, errors.IsValidation(err))
}

func TestGenerate_Reproducible(t *testing.T) {
	run := sampleRun(t, 5, 100)

	g1, err := New(Options{RelevanceRate: 0.25, Seed: 42, FallbackDepth: 3})
	require.NoError(t, err)
	g2, err := New(Options{RelevanceRate: 0.25, Seed: 42, FallbackDepth: 3})
	require.NoError(t, err)

	assert.Equal(t, g1.Generate(run), g2.Generate(run))
	// A generator can be reused without drifting.
	assert.Equal(t, g1.Generate(run), g1.Generate(run))
}

func TestGenerate_EveryTopicWithinQuota(t *testing.T) {
	run := sampleRun(t, 8, 40)
	g, err := New(Options{RelevanceRate: 0.25, Seed: 7, FallbackDepth: 3})
	require.NoError(t, err)

	perTopic := map[string]int{}
	for _, j := range g.Generate(run) {
		perTopic[j.Topic]++
		assert.Contains(t, run.Ranked(j.Topic), j.Doc)
	}

	require.Len(t, perTopic, 8)
	for topic, n := range perTopic {
		assert.GreaterOrEqual(t, n, 1, topic)
		assert.LessOrEqual(t, n, 10, topic) // 40 * 0.25
	}
}

func TestGenerate_FallbackToTopRanked(t *testing.T) {
	run := sampleRun(t, 1, 5)
	g, err := New(Options{RelevanceRate: 1e-9, Seed: 1, FallbackDepth: 3})
	require.NoError(t, err)

	got := g.Generate(run)

	assert.Equal(t, []Judgment{
		{Topic: "400", Doc: "DOC-0-001"},
		{Topic: "400", Doc: "DOC-0-002"},
		{Topic: "400", Doc: "DOC-0-003"},
	}, got)
}

func TestGenerate_FallbackCappedByListLength(t *testing.T) {
	run := sampleRun(t, 1, 2)
	g, err := New(Options{RelevanceRate: 1e-9, Seed: 1, FallbackDepth: 3})
	require.NoError(t, err)

	assert.Len(t, g.Generate(run), 2)
}

func TestWrite_RoundTripsAsQrels(t *testing.T) {
	run := sampleRun(t, 3, 20)
	g, err := New(Options{RelevanceRate: 0.25, Seed: 42, FallbackDepth: 3})
	require.NoError(t, err)
	judgments := g.Generate(run)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, judgments))

	qrels, err := trec.ParseQrels("generated", &buf)
	require.NoError(t, err)

	total := 0
	for _, topic := range qrels.Topics() {
		total += len(qrels.Relevant(topic))
	}
	assert.Equal(t, len(judgments), total)
	assert.Equal(t, 3, qrels.Len())
}

func TestWriteFile_CreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "qrels.demo.txt")

	require.NoError(t, WriteFile(path, []Judgment{{Topic: "401", Doc: "FT-1"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "401 0 FT-1 1\n", string(data))
}
