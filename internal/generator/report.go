package generator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// ReportJSON is the machine-readable report file name.
	ReportJSON = "staticboot-report.json"
	// ReportText is the one-line summary file name.
	ReportText = "staticboot-report.txt"
)

// reportSchemaVersion is bumped on incompatible changes to the JSON layout.
const reportSchemaVersion = 1

type reportPage struct {
	Route      string  `json:"route"`
	Path       string  `json:"path"`
	Bytes      int     `json:"bytes,omitempty"`
	DurationMS float64 `json:"duration_ms"`
	Kind       string  `json:"failure_kind,omitempty"`
	Error      string  `json:"error,omitempty"`
}

type report struct {
	SchemaVersion int          `json:"schema_version"`
	BatchID       string       `json:"batch_id"`
	OutputRoot    string       `json:"output_root"`
	Start         time.Time    `json:"start"`
	End           time.Time    `json:"end"`
	DurationMS    float64      `json:"duration_ms"`
	Outcome       string       `json:"outcome"`
	Routes        int          `json:"routes"`
	Written       int          `json:"written"`
	Failed        int          `json:"failed"`
	Pages         []reportPage `json:"pages"`
}

func durationMS(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

func (o *Outcome) report() report {
	r := report{
		SchemaVersion: reportSchemaVersion,
		BatchID:       o.BatchID,
		OutputRoot:    o.OutputRoot,
		Start:         o.Start,
		End:           o.End,
		DurationMS:    durationMS(o.Duration()),
		Outcome:       string(o.Label()),
		Routes:        len(o.Pages),
		Pages:         make([]reportPage, 0, len(o.Pages)),
	}
	for _, p := range o.Pages {
		rp := reportPage{Route: p.Route, Path: p.Path, Bytes: p.Bytes, DurationMS: durationMS(p.Duration)}
		if p.Err != nil {
			rp.Kind = string(p.Err.Kind)
			rp.Error = p.Err.Err.Error()
			r.Failed++
		} else {
			r.Written++
		}
		r.Pages = append(r.Pages, rp)
	}
	return r
}

// Persist writes the report atomically into root:
//
//	staticboot-report.json  (machine readable)
//	staticboot-report.txt   (human summary)
func (o *Outcome) Persist(root string) error {
	if root == "" {
		return fmt.Errorf("report directory not set")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("ensure report directory: %w", err)
	}
	jb, err := json.MarshalIndent(o.report(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report json: %w", err)
	}
	if err := replaceFile(filepath.Join(root, ReportJSON), jb); err != nil {
		return fmt.Errorf("write report json: %w", err)
	}
	if err := replaceFile(filepath.Join(root, ReportText), []byte(o.Summary()+"\n")); err != nil {
		return fmt.Errorf("write report summary: %w", err)
	}
	return nil
}

func replaceFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
