// Package report aggregates per-row outcomes into the run summary and
// renders it for the terminal and as files next to the output directories.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"gopkg.in/yaml.v3"

	forgeerr "github.com/arthur-debert/siteforge/pkg/errors"
)

// Summary file names written into the output root.
const (
	TextFileName = "summary.txt"
	YAMLFileName = "summary.yaml"
)

// Duration wraps time.Duration so the YAML sidecar carries "1.5s" rather
// than raw nanosecond integers.
type Duration time.Duration

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// RowOutcome is the terminal result of one row's pipeline.
type RowOutcome struct {
	Domain   string   `yaml:"domain"`
	Success  bool     `yaml:"success"`
	Path     string   `yaml:"path,omitempty"`
	Error    string   `yaml:"error,omitempty"`
	Duration Duration `yaml:"duration"`
}

// Summary is the read-only aggregate of a whole run.
type Summary struct {
	GeneratedAt time.Time    `yaml:"generated_at"`
	Total       int          `yaml:"total"`
	Succeeded   int          `yaml:"succeeded"`
	Failed      int          `yaml:"failed"`
	Rows        []RowOutcome `yaml:"rows"`
}

// New builds a Summary from row outcomes, stamping the generation time.
func New(rows []RowOutcome) *Summary {
	s := &Summary{
		GeneratedAt: time.Now(),
		Total:       len(rows),
		Rows:        rows,
	}
	for _, row := range rows {
		if row.Success {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}
	return s
}

// Render writes the styled human-readable summary to w.
func (s *Summary) Render(w io.Writer) {
	success := pterm.NewStyle(pterm.FgGreen)
	failure := pterm.NewStyle(pterm.FgRed, pterm.Bold)
	muted := pterm.NewStyle(pterm.FgGray)

	fmt.Fprintln(w, pterm.NewStyle(pterm.Bold).Sprint("Generation summary"))
	fmt.Fprintf(w, "  %d total, %s, %s\n",
		s.Total,
		success.Sprintf("%d succeeded", s.Succeeded),
		failure.Sprintf("%d failed", s.Failed))
	fmt.Fprintln(w)

	for _, row := range s.Rows {
		if row.Success {
			fmt.Fprintf(w, "  %s %s %s\n",
				success.Sprint("✓"), row.Domain, muted.Sprint(row.Path))
		} else {
			fmt.Fprintf(w, "  %s %s: %s\n",
				failure.Sprint("✗"), row.Domain, firstLine(row.Error))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, muted.Sprintf("generated at %s", s.GeneratedAt.Format(time.RFC3339)))
}

// WriteFiles writes summary.txt and summary.yaml into outputRoot.
func (s *Summary) WriteFiles(outputRoot string) error {
	if err := s.writeText(filepath.Join(outputRoot, TextFileName)); err != nil {
		return err
	}
	return s.writeYAML(filepath.Join(outputRoot, YAMLFileName))
}

// writeText emits the plain-text report: counts, one line per row, the
// generation timestamp.
func (s *Summary) writeText(path string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Generated at: %s\n", s.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Total: %d  Succeeded: %d  Failed: %d\n\n", s.Total, s.Succeeded, s.Failed)
	for _, row := range s.Rows {
		if row.Success {
			fmt.Fprintf(&b, "OK   %s -> %s\n", row.Domain, row.Path)
		} else {
			fmt.Fprintf(&b, "FAIL %s: %s\n", row.Domain, row.Error)
		}
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return forgeerr.Wrapf(err, forgeerr.ErrFileWrite, "failed to write %s", path)
	}
	return nil
}

// writeYAML emits the machine-readable sidecar.
func (s *Summary) writeYAML(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return forgeerr.Wrap(err, forgeerr.ErrInternal, "failed to encode summary")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return forgeerr.Wrapf(err, forgeerr.ErrFileWrite, "failed to write %s", path)
	}
	return nil
}

// firstLine trims an error message down to its first line for the terminal
// listing; the full text is in summary.txt.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
