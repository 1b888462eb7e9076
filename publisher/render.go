package publisher

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"diploma_generator/generator"
)

// Sections may carry Markdown tables; raw HTML from the model stays escaped
// because goldmark's renderer is left in safe mode.
var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// RenderHTML converts the document to an HTML fragment, one h2 per section.
func RenderHTML(doc *generator.Document) (string, error) {
	var md strings.Builder
	for _, s := range doc.Sections {
		md.WriteString("## ")
		md.WriteString(s.Title)
		md.WriteString("\n\n")
		md.WriteString(s.Text)
		md.WriteString("\n\n")
	}

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md.String()), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderPage wraps RenderHTML output in a standalone page titled by the topic.
func RenderPage(run *generator.Run) (string, error) {
	body, err := RenderHTML(run.Document)
	if err != nil {
		return "", err
	}
	title := html.EscapeString(run.Request.Topic)
	return fmt.Sprintf("<!DOCTYPE html>\n<html lang=\"uk\">\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n<h1>%s</h1>\n%s</body>\n</html>\n",
		title, title, body), nil
}
