// Package report renders run standings as CSV, Markdown, HTML and JSON.
package report

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/ricesearch/rice-eval/internal/evaluation"
	"github.com/ricesearch/rice-eval/internal/pkg/errors"
)

// Columns of the standings table.
var Columns = []string{"rank", "run", "MAP", "P@5", "P@20", "nDCG@20"}

// Report is the input to every writer.
type Report struct {
	Qrels         string                `json:"qrels"`
	QrelsChecksum string                `json:"qrels_sha256,omitempty"`
	Topics        int                   `json:"topics"`
	Standings     []evaluation.Standing `json:"standings"`
}

// Paths selects which artifacts WriteFiles produces. Empty paths are skipped.
type Paths struct {
	CSV      string
	Markdown string
	HTML     string
	JSON     string
}

// WriteFiles writes every configured artifact, creating parent directories
// as needed, and returns the paths written in CSV, Markdown, HTML, JSON order.
func WriteFiles(rep *Report, paths Paths) ([]string, error) {
	targets := []struct {
		path  string
		write func(io.Writer, *Report) error
	}{
		{paths.CSV, WriteCSV},
		{paths.Markdown, WriteMarkdown},
		{paths.HTML, WriteHTML},
		{paths.JSON, WriteJSON},
	}

	var written []string
	for _, t := range targets {
		if t.path == "" {
			continue
		}
		if err := writeFile(t.path, func(w io.Writer) error { return t.write(w, rep) }); err != nil {
			return written, err
		}
		written = append(written, t.path)
	}
	return written, nil
}

func writeFile(path string, fn func(w io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.IOError(dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.IOError(path, err)
	}

	bw := bufio.NewWriter(f)
	if err := fn(bw); err != nil {
		f.Close()
		return errors.IOError(path, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return errors.IOError(path, err)
	}
	if err := f.Close(); err != nil {
		return errors.IOError(path, err)
	}
	return nil
}
