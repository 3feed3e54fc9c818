package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

const (
	markdownHeader    = "| Rank | Run | MAP | P@5 | P@20 | nDCG@20 |\n"
	markdownSeparator = "|---:|:---|---:|---:|---:|---:|\n"
)

// WriteMarkdown writes the standings as a Markdown table, metrics rounded
// to four decimals.
func WriteMarkdown(w io.Writer, rep *Report) error {
	if _, err := io.WriteString(w, markdownHeader+markdownSeparator); err != nil {
		return err
	}

	for _, s := range rep.Standings {
		_, err := fmt.Fprintf(w, "| %d | %s | %.4f | %.4f | %.4f | %.4f |\n",
			s.Rank, escapeCell(s.Run), s.MAP, s.P5, s.P20, s.NDCG20)
		if err != nil {
			return err
		}
	}
	return nil
}

// markdownBytes renders the table into memory for the HTML writer.
func markdownBytes(rep *Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteMarkdown(&buf, rep); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
