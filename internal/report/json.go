package report

import (
	"encoding/json"
	"io"
)

// WriteJSON writes the full report, including per-topic results.
func WriteJSON(w io.Writer, rep *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
