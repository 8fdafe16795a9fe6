package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/nudgekit/nudge/internal/compliance"
	"github.com/nudgekit/nudge/internal/policy"
)

// evaluationReport is what evaluate and watch print for one evaluation.
type evaluationReport struct {
	Timestamp        string              `json:"timestamp"`
	Policy           string              `json:"policy"`
	CurrentOSVersion string              `json:"currentOSVersion"`
	MinimumOSVersion string              `json:"minimumOSVersion"`
	CutoffDate       string              `json:"cutoffDate"`
	Mode             string              `json:"mode"`
	Compliant        bool                `json:"compliant"`
	MoreInfoURL      string              `json:"moreInfoURL,omitempty"`
	Verdict          *compliance.Verdict `json:"verdict"`
}

func newEvaluationReport(l *policy.Loaded, fact compliance.Fact, v *compliance.Verdict, mode compliance.ComparisonMode) *evaluationReport {
	return &evaluationReport{
		Timestamp:        fact.CurrentDate.Format(time.RFC3339),
		Policy:           l.Path,
		CurrentOSVersion: fact.CurrentOSVersion,
		MinimumOSVersion: l.Policy.MinimumOSVersion,
		CutoffDate:       l.Policy.CutoffDate.Format(time.RFC3339),
		Mode:             mode.String(),
		Compliant:        v.Compliant(mode),
		MoreInfoURL:      l.Prefs.MoreInfoURL,
		Verdict:          v,
	}
}

// resolveFormat turns "auto" into text for terminals and json otherwise.
func resolveFormat(format string, w io.Writer) (string, error) {
	switch format {
	case "text", "json":
		return format, nil
	case "auto", "":
		if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return "text", nil
		}
		return "json", nil
	default:
		return "", fmt.Errorf("invalid format %q: expected auto, text or json", format)
	}
}

func writeReport(w io.Writer, format string, r *evaluationReport) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	writeReportText(w, r)
	return nil
}

func writeReportText(w io.Writer, r *evaluationReport) {
	status := "COMPLIANT"
	if !r.Compliant {
		status = "NOT COMPLIANT"
	}

	rows := [][2]string{
		{"Policy", r.Policy},
		{"Current OS", r.CurrentOSVersion},
		{"Required OS", fmt.Sprintf("%s (%s comparison)", r.MinimumOSVersion, r.Mode)},
		{"Cutoff", r.CutoffDate},
		{"Days until cutoff", fmt.Sprintf("%d", r.Verdict.DaysUntilCutoff)},
		{"Past cutoff", yesNo(r.Verdict.IsPastCutoff)},
		{"Dual-close prompt", yesNo(r.Verdict.RequiresDualCloseButtons)},
		{"Status", status},
	}
	if r.MoreInfoURL != "" {
		rows = append(rows, [2]string{"More info", r.MoreInfoURL})
	}

	width := 0
	for _, row := range rows {
		width = max(width, runewidth.StringWidth(row[0]))
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%s  %s\n", padRight(row[0]+":", width+1), row[1])
	}
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
