package trec

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/ricesearch/rice-eval/internal/pkg/errors"
	"github.com/ricesearch/rice-eval/internal/pkg/hash"
)

// scanFields calls fn with the 1-based line number and whitespace-separated
// fields of every non-blank line of the input called name. Lines have no
// length limit. Scanning stops at the first error.
func scanFields(name string, r io.Reader, fn func(lineNo int, fields []string) error) error {
	br := bufio.NewReaderSize(r, 64*1024)

	lineNo := 0
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			lineNo++
			if fields := strings.Fields(line); len(fields) > 0 {
				if ferr := fn(lineNo, fields); ferr != nil {
					return ferr
				}
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.IOError(name, err)
		}
	}
}

// withFile opens path and hands it to fn, mapping open failures to
// NOT_FOUND or IO_ERROR. It returns the SHA256 of the bytes fn consumed.
func withFile(path string, fn func(r io.Reader) error) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NotFoundError(path).WithDetail("path", path)
		}
		return "", errors.IOError(path, err)
	}
	defer f.Close()

	hr := hash.NewReader(f)
	if err := fn(hr); err != nil {
		return "", err
	}
	return hr.Sum(), nil
}
