// Package report joins probe, fetch and similarity results into the records
// delivered to callers.
package report

import (
	"github.com/CodeMonkeyCybersecurity/squatwatch/pkg/domain"
	"github.com/CodeMonkeyCybersecurity/squatwatch/pkg/probe"
	"github.com/CodeMonkeyCybersecurity/squatwatch/pkg/similarity"
	"github.com/CodeMonkeyCybersecurity/squatwatch/pkg/whois"
)

// Record describes one live look-alike domain.
type Record struct {
	Domain     string           `json:"domain" yaml:"domain"`
	ARecords   []string         `json:"a_records" yaml:"a_records"`
	MXRecords  []string         `json:"mx_records" yaml:"mx_records"`
	NSRecords  []string         `json:"ns_records" yaml:"ns_records"`
	Similarity similarity.Score `json:"similarity" yaml:"similarity"`
	Whois      *whois.Info      `json:"whois,omitempty" yaml:"whois,omitempty"`
}

// Scorer is the part of similarity.Scorer the aggregator needs.
type Scorer interface {
	Score(candidateHTML string) similarity.Score
}

// Aggregate builds records in candidate order. Candidates without an A record
// and the original domain itself are dropped. A nil scorer or a missing
// fetch result leaves the similarity uncomputed.
func Aggregate(original domain.Domain, probes []probe.ProbeResult, fetches map[string]probe.FetchResult, scorer Scorer) []Record {
	records := make([]Record, 0, len(probes))
	for _, p := range probes {
		if !p.Alive() || original.IsOriginal(p.Domain) {
			continue
		}

		score := similarity.NotComputed()
		if f, ok := fetches[p.Domain]; ok && f.OK && scorer != nil {
			score = scorer.Score(f.Body)
		}

		records = append(records, Record{
			Domain:     p.Domain,
			ARecords:   nonNil(p.A),
			MXRecords:  nonNil(p.MX),
			NSRecords:  nonNil(p.NS),
			Similarity: score,
		})
	}
	return records
}

// AttachWhois sets the whois field of records found in info.
func AttachWhois(records []Record, info map[string]*whois.Info) {
	for i := range records {
		if w, ok := info[records[i].Domain]; ok {
			records[i].Whois = w
		}
	}
}

// Domains lists the record domains in order.
func Domains(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Domain
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
