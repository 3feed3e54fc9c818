package trec

import (
	"io"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/ricesearch/rice-eval/internal/pkg/errors"
)

// Run is the ranking store for one run file: topic -> ranked documents.
type Run struct {
	name     string
	checksum string
	topics   []string
	ranked   map[string][]string
}

type rankedDoc struct {
	rank int
	doc  string
}

// ParseRun reads result lines of the form "topic unused document rank score tag".
// Documents are ordered by their declared rank; equal ranks keep file order.
// Score and tag must be present but are not interpreted.
func ParseRun(name string, r io.Reader) (*Run, error) {
	pending := make(map[string][]rankedDoc)
	var topics []string

	err := scanFields(name, r, func(lineNo int, fields []string) error {
		if len(fields) < runFields {
			return nil
		}

		rank, err := strconv.Atoi(fields[3])
		if err != nil {
			return errors.ParseError(name, lineNo, "rank is not an integer", err).
				WithDetail("value", fields[3])
		}

		topic := fields[0]
		if _, ok := pending[topic]; !ok {
			topics = append(topics, topic)
		}
		pending[topic] = append(pending[topic], rankedDoc{rank: rank, doc: fields[2]})
		return nil
	})
	if err != nil {
		return nil, err
	}

	run := &Run{
		name:   name,
		topics: topics,
		ranked: make(map[string][]string, len(pending)),
	}
	for topic, entries := range pending {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].rank < entries[j].rank
		})
		docs := make([]string, len(entries))
		for i, e := range entries {
			docs[i] = e.doc
		}
		run.ranked[topic] = docs
	}

	return run, nil
}

// LoadRun parses the run file at path. The run is named after the file's base name.
func LoadRun(path string) (*Run, error) {
	var run *Run
	sum, err := withFile(path, func(r io.Reader) error {
		var err error
		run, err = ParseRun(path, r)
		return err
	})
	if err != nil {
		return nil, err
	}
	run.name = filepath.Base(path)
	run.checksum = sum
	return run, nil
}

// Name returns the run name.
func (r *Run) Name() string {
	return r.name
}

// Checksum returns the SHA256 of the loaded file, or "" for parsed input.
func (r *Run) Checksum() string {
	return r.checksum
}

// Topics returns the topics the run addressed, in order of first appearance.
func (r *Run) Topics() []string {
	out := make([]string, len(r.topics))
	copy(out, r.topics)
	return out
}

// Len returns the number of topics in the run.
func (r *Run) Len() int {
	return len(r.topics)
}

// Ranked returns the ranked documents for topic, or nil if the run never
// addressed it. Callers must not modify the returned slice.
func (r *Run) Ranked(topic string) []string {
	return r.ranked[topic]
}
