// Package trec reads TREC relevance judgments and run files into
// per-topic structures. Both stores are built once and are read-only
// afterwards, so they can be shared between goroutines.
package trec

import (
	"io"
	"strconv"

	"github.com/ricesearch/rice-eval/internal/pkg/errors"
)

// Minimum field counts. Shorter lines are skipped silently.
const (
	qrelsFields = 4
	runFields   = 6
)

// Qrels is the judgment store: topic -> document -> relevant.
type Qrels struct {
	name      string
	checksum  string
	topics    []string
	judgments map[string]map[string]bool
}

// ParseQrels reads judgment lines of the form "topic unused document grade".
// A grade above zero marks the document relevant. Later lines for the same
// (topic, document) pair overwrite earlier ones.
func ParseQrels(name string, r io.Reader) (*Qrels, error) {
	q := &Qrels{
		name:      name,
		judgments: make(map[string]map[string]bool),
	}

	err := scanFields(name, r, func(lineNo int, fields []string) error {
		if len(fields) < qrelsFields {
			return nil
		}

		grade, err := strconv.Atoi(fields[3])
		if err != nil {
			return errors.ParseError(name, lineNo, "grade is not an integer", err).
				WithDetail("value", fields[3])
		}

		topic, doc := fields[0], fields[2]
		docs, ok := q.judgments[topic]
		if !ok {
			docs = make(map[string]bool)
			q.judgments[topic] = docs
			q.topics = append(q.topics, topic)
		}
		docs[doc] = grade > 0
		return nil
	})
	if err != nil {
		return nil, err
	}

	return q, nil
}

// LoadQrels parses the judgment file at path.
func LoadQrels(path string) (*Qrels, error) {
	var q *Qrels
	sum, err := withFile(path, func(r io.Reader) error {
		var err error
		q, err = ParseQrels(path, r)
		return err
	})
	if err != nil {
		return nil, err
	}
	q.checksum = sum
	return q, nil
}

// Name returns the name the store was parsed under.
func (q *Qrels) Name() string {
	return q.name
}

// Checksum returns the SHA256 of the loaded file, or "" for parsed input.
func (q *Qrels) Checksum() string {
	return q.checksum
}

// Topics returns judged topics in order of first appearance.
func (q *Qrels) Topics() []string {
	out := make([]string, len(q.topics))
	copy(out, q.topics)
	return out
}

// Len returns the number of judged topics.
func (q *Qrels) Len() int {
	return len(q.topics)
}

// Relevant returns the set of relevant documents for topic.
// The returned map is freshly built and safe to modify.
func (q *Qrels) Relevant(topic string) map[string]struct{} {
	rel := make(map[string]struct{})
	for doc, ok := range q.judgments[topic] {
		if ok {
			rel[doc] = struct{}{}
		}
	}
	return rel
}
