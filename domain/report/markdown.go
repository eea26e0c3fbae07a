package report

import (
	"fmt"
	"strconv"
	"strings"

	"studyqc/domain/qc"
)

// RenderMarkdown renders the report as a markdown document. The layout is
// stable so archived reports diff cleanly between runs.
func RenderMarkdown(r Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", r.Title())
	fmt.Fprintf(&b, "Run `%s`, generated %s.\n\n", r.RunID, r.GeneratedAt)

	b.WriteString("## Dataset\n\n")
	b.WriteString("| stage | rows | columns |\n|---|---:|---:|\n")
	fmt.Fprintf(&b, "| input | %d | %d |\n", r.Input.Rows, r.Input.Columns)
	fmt.Fprintf(&b, "| corrected | %d | %d |\n", r.Output.Rows, r.Output.Columns)
	fmt.Fprintf(&b, "| flagged | %d | %d |\n\n", r.Flagged.Rows, r.Flagged.Columns)

	fmt.Fprintf(&b, "Applied %d correction rules and %d review rules.\n\n",
		r.ChangeRules, r.WarningRules)

	b.WriteString("## Corrections applied\n\n")
	writeFrequencyTable(&b, r.Summary.ChangeCounts, "No corrections were applied.")

	b.WriteString("## Review flags\n\n")
	writeFrequencyTable(&b, r.Summary.WarningCounts, "No rows were flagged for review.")

	b.WriteString("## Dictionary coverage\n\n")
	if r.Summary.NoneMissing() {
		b.WriteString("All dictionary variables are present in the dataset.\n\n")
	} else {
		fmt.Fprintf(&b, "Missing variables: %s\n\n",
			strings.Join(r.Summary.MissingVariables, ", "))
	}

	if len(r.Renames) > 0 {
		b.WriteString("## Column renames\n\n")
		for _, rn := range r.Renames {
			fmt.Fprintf(&b, "- `%s` normalized to `%s`\n", rn.From, rn.To)
		}
		b.WriteString("\n")
	}

	if len(r.Events) > 0 {
		b.WriteString("## Run log\n\n")
		b.WriteString("| kind | rule | detail |\n|---|---|---|\n")
		for _, e := range r.Events {
			fmt.Fprintf(&b, "| %s | %s | %s |\n",
				e.Kind, escapeCell(e.Rule), escapeCell(e.Detail))
		}
		b.WriteString("\n")
	}

	if len(r.Profiles) > 0 {
		b.WriteString("## Numeric profile\n\n")
		b.WriteString("| column | n | missing | mean | median | sd | min | max |\n")
		b.WriteString("|---|---:|---:|---:|---:|---:|---:|---:|\n")
		for _, p := range r.Profiles {
			fmt.Fprintf(&b, "| %s | %d | %d | %s | %s | %s | %s | %s |\n",
				escapeCell(p.Column), p.Count, p.Missing,
				num(p.Mean), num(p.Median), num(p.StdDev), num(p.Min), num(p.Max))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func writeFrequencyTable(b *strings.Builder, counts map[string]int, empty string) {
	if len(counts) == 0 {
		b.WriteString(empty + "\n\n")
		return
	}
	b.WriteString("| comment | count |\n|---|---:|\n")
	for _, comment := range qc.SortedComments(counts) {
		fmt.Fprintf(b, "| %s | %d |\n", escapeCell(comment), counts[comment])
	}
	b.WriteString("\n")
}

// escapeCell keeps free-text comments from breaking pipe tables
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
