package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"

	"github.com/CodeMonkeyCybersecurity/squatwatch/pkg/report"
)

func printScanHeader(w io.Writer, target, mode string, similarityCheck bool) {
	color.New(color.FgCyan, color.Bold).Fprintf(w, "Scanning %s for look-alike domains\n", target)
	if similarityCheck {
		fmt.Fprintf(w, "  similarity: %s\n\n", mode)
	} else {
		fmt.Fprintf(w, "  similarity: disabled\n\n")
	}
}

// printScanSummary reports how many live look-alikes copy the original
// closely, grouped by score band.
func printScanSummary(w io.Writer, records []report.Record) {
	if len(records) == 0 {
		return
	}

	bands := map[string]int{}
	for _, r := range records {
		bands[scoreBand(r)]++
	}

	fmt.Fprintln(w)
	color.New(color.Bold).Fprintf(w, "%d live look-alike(s)\n", len(records))
	names := make([]string, 0, len(bands))
	for name := range bands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-12s %d\n", colorBand(name), bands[name])
	}
}

func scoreBand(r report.Record) string {
	switch {
	case !r.Similarity.Computed:
		return "unscored"
	case r.Similarity.Value >= 80:
		return "high"
	case r.Similarity.Value >= 50:
		return "medium"
	default:
		return "low"
	}
}

func colorBand(band string) string {
	switch band {
	case "high":
		return color.New(color.FgRed, color.Bold).Sprint(band)
	case "medium":
		return color.New(color.FgYellow).Sprint(band)
	case "low":
		return color.New(color.FgCyan).Sprint(band)
	default:
		return band
	}
}
