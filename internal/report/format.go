package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// placeholder is rendered for fields missing from the document.
const placeholder = "None"

// Format renders the report as a human-readable summary. The metrics
// sections (Summary, Invalid Data, Valid Data) are only present when the
// report carries series counts.
func Format(r *ValidationReport) string {
	if r == nil {
		r = &ValidationReport{}
	}

	var lines []string
	add := func(format string, args ...any) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}

	validSeries := r.ValidData.totalSeries()
	invalidSeries := r.InvalidData.totalSeries()

	if validSeries+invalidSeries > 0 {
		add("Summary:")
		add("  %s valid series + %s series with errors", formatNumber(validSeries), formatNumber(invalidSeries))
		add("")

		add("Invalid Data:")
		lines = append(lines, r.InvalidData.lines()...)
		add("")

		add("Valid Data:")
		lines = append(lines, r.ValidData.lines()...)
		add("")
	}

	add("Datasets Summary:")
	for _, ds := range r.Datasets {
		add("  DSD: %s", text(ds.DSD))
		add("  Dataflow: %s", text(ds.Dataflow))
		add("  Series Count: %s", num(ds.KeysCount))
		add("  Observations Count: %s", num(ds.ObsCount))
		add("  Groups Count: %s", num(ds.GroupsCount))
		for _, p := range ds.ReportedPeriods {
			add("    Period %s: %s (%s to %s)", p.Key, text(p.Name), text(p.StartPeriod), text(p.EndPeriod))
		}
		for _, rule := range ds.ValidationReport {
			add("")
			add("    Validation Rule: %s", text(rule.Type))
			for _, e := range rule.Errors {
				add("      Error Code: %s", text(e.ErrorCode))
				add("      Message: %s", text(e.Message))
				add("      Dataset: %s", text(e.Dataset))
				add("      Position: %s", text(e.Position))
				add("      Keys: %s", joinKeys(e.Keys))
				if len(e.ComponentId) > 0 {
					add("      ComponentId: %s", rawValue(e.ComponentId))
				}
				if len(e.ReportedValue) > 0 {
					add("      Reported Value: %s", rawValue(e.ReportedValue))
					add("")
				}
			}
		}
	}
	add("")

	return strings.Join(lines, "\n") + "\n"
}

// Print writes the rendering of r to w.
func Print(w io.Writer, r *ValidationReport) error {
	_, err := io.WriteString(w, Format(r))
	return err
}

func (g *DatasetGroup) totalSeries() float64 {
	if g == nil {
		return 0
	}
	total := 0.0
	for _, ds := range g.Datasets {
		if ds.Series == nil {
			continue
		}
		if n, ok := ds.Series.Value(); ok {
			total += n
		}
	}
	return total
}

func (g *DatasetGroup) lines() []string {
	if g == nil {
		return nil
	}
	var lines []string
	for _, ds := range g.Datasets {
		lines = append(lines,
			"  Structure: "+text(ds.Structure),
			"  Series: "+num(ds.Series),
			"  Observations: "+num(ds.Observations),
			"  Groups: "+num(ds.Groups),
		)
	}
	return lines
}

func text(t *Text) string {
	if t == nil {
		return placeholder
	}
	return string(*t)
}

func num(c *Count) string {
	if c == nil {
		return placeholder
	}
	return c.String()
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func joinKeys(keys List[Text]) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, string(k))
	}
	return strings.Join(parts, ", ")
}

func rawValue(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	switch value := v.(type) {
	case nil:
		return placeholder
	case string:
		return value
	}
	return string(raw)
}
