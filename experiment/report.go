// ABOUTME: Classwise classification report rendered as a markdown table and converted to HTML.
package experiment

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var reportMarkdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// ReportMarkdown lays out precision, recall and F1 per class.
func ReportMarkdown(r Results) string {
	var b strings.Builder
	b.WriteString("| Class | Precision | Recall | F1 score |\n")
	b.WriteString("|---|---:|---:|---:|\n")
	for i := range r.Labels {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			escapeCell(r.Labels[i]), metricAt(r.Precision, i), metricAt(r.Recall, i), metricAt(r.F1Score, i))
	}
	fmt.Fprintf(&b, "\n**Accuracy:** %.2f%%\n", r.Accuracy*100)
	return b.String()
}

// Report renders the classification report to HTML.
func Report(r Results) template.HTML {
	src := ReportMarkdown(r)
	var buf bytes.Buffer
	if err := reportMarkdown.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

func metricAt(vals []float64, i int) string {
	if i >= len(vals) {
		return "-"
	}
	return fmt.Sprintf("%.3f", vals[i])
}

func escapeCell(s string) string {
	return strings.ReplaceAll(template.HTMLEscapeString(s), "|", `\|`)
}
