package report

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"
)

// WriteCSV writes the standings as CSV with full-precision metric values.
func WriteCSV(w io.Writer, rep *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}

	for _, s := range rep.Standings {
		record := []string{
			strconv.Itoa(s.Rank),
			s.Run,
			formatFull(s.MAP),
			formatFull(s.P5),
			formatFull(s.P20),
			formatFull(s.NDCG20),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// formatFull renders v the way Python prints a float: shortest round-trip
// digits, whole numbers as "1.0", exponent form below 1e-4 and from 1e16.
func formatFull(v float64) string {
	if abs := math.Abs(v); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
