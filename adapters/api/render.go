package api

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// RenderReportHTML turns a stored report payload into a readable HTML page
// via a markdown intermediate.
func RenderReportHTML(payload map[string]any) []byte {
	md := reportMarkdown(payload)
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.ToHTML([]byte(md), p, renderer)
}

func reportMarkdown(payload map[string]any) string {
	var b strings.Builder

	name, _ := payload["estimator_name"].(string)
	class, _ := payload["estimator_class"].(string)
	fmt.Fprintf(&b, "# Estimation Report: %s\n\n", name)
	fmt.Fprintf(&b, "Estimator class: **%s**\n\n", class)

	if fitted, ok := payload["is_fitted"].(bool); ok {
		fmt.Fprintf(&b, "- Fitted: %v\n", fitted)
	}
	if n, ok := payload["n_samples"]; ok {
		fmt.Fprintf(&b, "- Samples: %v\n", n)
	}
	if ot, ok := payload["outcome_type"]; ok {
		fmt.Fprintf(&b, "- Outcome type: %v\n", ot)
	}
	if levels, ok := payload["treatment_levels"].([]any); ok {
		parts := make([]string, len(levels))
		for i, l := range levels {
			parts[i] = fmt.Sprint(l)
		}
		fmt.Fprintf(&b, "- Treatment levels: %s\n", strings.Join(parts, ", "))
	} else if levels, ok := payload["treatment_levels"].([]string); ok {
		fmt.Fprintf(&b, "- Treatment levels: %s\n", strings.Join(levels, ", "))
	}
	b.WriteString("\n")

	if report, ok := payload["report"].(map[string]any); ok {
		writeSection(&b, "Propensity Scores", report["propensity_stats"])
		writeSection(&b, "Weight Distribution", report["weight_distribution"])
		writeSection(&b, "Overlap", report["overlap_diagnostic"])
	}

	if warnings := stringList(payload["warnings"]); len(warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, w := range warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func writeSection(b *strings.Builder, title string, v any) {
	section, ok := v.(map[string]any)
	if !ok || len(section) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	keys := make([]string, 0, len(section))
	for k := range section {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	b.WriteString("| Metric | Value |\n|---|---|\n")
	for _, k := range keys {
		fmt.Fprintf(b, "| %s | %v |\n", k, section[k])
	}
	b.WriteString("\n")
}

func stringList(v any) []string {
	switch vs := v.(type) {
	case []string:
		return vs
	case []any:
		out := make([]string, len(vs))
		for i, s := range vs {
			out[i] = fmt.Sprint(s)
		}
		return out
	}
	return nil
}
