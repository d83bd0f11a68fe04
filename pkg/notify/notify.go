// Package notify delivers scan reports to a callback URL or a local writer.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/httpclient"
	"github.com/CodeMonkeyCybersecurity/squatwatch/pkg/report"
)

type Notifier interface {
	Deliver(ctx context.Context, records []report.Record) error
}

// Webhook POSTs the records as a JSON array, once. There is no retry.
type Webhook struct {
	URL    string
	Client *http.Client
}

func NewWebhook(url string, client *http.Client) *Webhook {
	if client == nil {
		client = http.DefaultClient
	}
	return &Webhook{URL: url, Client: client}
}

func (w *Webhook) Deliver(ctx context.Context, records []report.Record) error {
	if records == nil {
		records = []report.Record{}
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("invalid callback url: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("callback delivery failed: %w", err)
	}
	defer httpclient.CloseBody(resp)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("callback returned status %d", resp.StatusCode)
	}
	return nil
}

// Output formats understood by Writer.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Writer renders records to Out.
type Writer struct {
	Out    io.Writer
	Format string
}

func NewWriter(out io.Writer, format string) (*Writer, error) {
	format = strings.ToLower(format)
	switch format {
	case "":
		format = FormatTable
	case FormatTable, FormatJSON, FormatYAML:
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
	return &Writer{Out: out, Format: format}, nil
}

func (w *Writer) Deliver(_ context.Context, records []report.Record) error {
	if records == nil {
		records = []report.Record{}
	}
	switch w.Format {
	case FormatJSON:
		enc := json.NewEncoder(w.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case FormatYAML:
		enc := yaml.NewEncoder(w.Out)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return w.table(records)
	}
}

func (w *Writer) table(records []report.Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w.Out, "No live look-alike domains found.")
		return err
	}

	tw := tabwriter.NewWriter(w.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DOMAIN\tA\tMX\tNS\tSIMILARITY")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.Domain,
			joinOrDash(r.ARecords),
			joinOrDash(r.MXRecords),
			joinOrDash(r.NSRecords),
			colorScore(r),
		)
	}
	return tw.Flush()
}

func colorScore(r report.Record) string {
	s := r.Similarity
	switch {
	case !s.Computed:
		return s.String()
	case s.Value >= 80:
		return color.New(color.FgRed, color.Bold).Sprint(s.String())
	case s.Value >= 50:
		return color.New(color.FgYellow).Sprint(s.String())
	default:
		return color.New(color.FgGreen).Sprint(s.String())
	}
}

func joinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ",")
}

// Multi delivers to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Deliver(ctx context.Context, records []report.Record) error {
	var errs []error
	for _, n := range m {
		if err := n.Deliver(ctx, records); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
