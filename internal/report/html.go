package report

import (
	"fmt"
	"html"
	"io"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Table),
)

// WriteHTML renders the Markdown standings table into a standalone HTML page.
func WriteHTML(w io.Writer, rep *Report) error {
	src, err := markdownBytes(rep)
	if err != nil {
		return err
	}

	title := "Run standings"
	if rep.Qrels != "" {
		title = fmt.Sprintf("Run standings for %s", rep.Qrels)
	}

	if _, err := fmt.Fprintf(w, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n<h1>%s</h1>\n",
		html.EscapeString(title), html.EscapeString(title)); err != nil {
		return err
	}
	if err := markdown.Convert(src, w); err != nil {
		return fmt.Errorf("rendering markdown: %w", err)
	}
	_, err = io.WriteString(w, "</body>\n</html>\n")
	return err
}
