package reporting

import (
	"bytes"
	"fmt"
	"html"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/gridcheck/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// RenderMarkdown renders a run summary as a Markdown report
func RenderMarkdown(summary *models.RunSummary) string {
	var b strings.Builder

	status := "PASSED"
	if !summary.Success() {
		status = "FAILED"
	}

	fmt.Fprintf(&b, "# %s: %s\n\n", summary.TestID, status)
	fmt.Fprintf(&b, "- Run: `%s`\n", summary.ID)
	fmt.Fprintf(&b, "- Target: %s\n", summary.BaseURL)
	fmt.Fprintf(&b, "- Started: %s\n", summary.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Duration: %s\n", summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(&b, "- Baseline: %d rows\n", summary.Baseline)
	fmt.Fprintf(&b, "- Scenarios: %d passed, %d failed\n", summary.Passed, summary.Failed)
	if summary.Error != "" {
		fmt.Fprintf(&b, "- Error: %s\n", summary.Error)
	}

	if len(summary.Results) == 0 {
		return b.String()
	}

	b.WriteString("\n| Scenario | Result | Steps | Duration | Detail |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, r := range summary.Results {
		result := "pass"
		detail := ""
		if !r.Passed {
			result = "**fail**"
			detail = fmt.Sprintf("%s: %s", r.ErrorKind, r.Error)
		}
		fmt.Fprintf(&b, "| %s | %s | %d | %s | %s |\n",
			r.ScenarioID, result, len(r.Steps), r.Duration.Round(time.Millisecond), escapeCell(detail))
	}

	for _, r := range summary.Results {
		if r.Passed {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n", r.ScenarioID)
		for _, step := range r.Steps {
			switch {
			case step.Skipped:
				fmt.Fprintf(&b, "- [ ] %s: skipped\n", step.ID)
			case step.Passed:
				fmt.Fprintf(&b, "- [x] %s: %s\n", step.ID, step.Detail)
			default:
				fmt.Fprintf(&b, "- [ ] %s: %s\n", step.ID, step.Detail)
			}
		}
		if r.Screenshot != "" {
			fmt.Fprintf(&b, "\n![%s](screenshots/%s)\n", r.ScenarioID, filepath.Base(r.Screenshot))
		}
	}

	return b.String()
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

// RenderHTML converts a Markdown report into a standalone HTML page
func RenderHTML(title, markdown string) ([]byte, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.TaskList),
	)

	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&page, "<title>%s</title>\n", html.EscapeString(title))
	page.WriteString("<style>body{font-family:sans-serif;margin:2em}table{border-collapse:collapse}td,th{border:1px solid #ccc;padding:4px 8px}</style>\n")
	page.WriteString("</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}
