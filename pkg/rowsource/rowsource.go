// Package rowsource reads the tabular site definitions (one row per site)
// from a CSV file and validates them before any generation starts.
package rowsource

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	forgeerr "github.com/arthur-debert/siteforge/pkg/errors"
	"github.com/arthur-debert/siteforge/pkg/finalize"
	"github.com/arthur-debert/siteforge/pkg/logging"
)

// RequiredFields must be present and non-blank in every row.
var RequiredFields = []string{"domain", "title", "description", "phone", "address"}

// Row is one site definition: field name to literal value.
type Row map[string]string

// Domain returns the row's domain value.
func (r Row) Domain() string {
	return r["domain"]
}

// Load reads and validates the CSV at path.
func Load(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, forgeerr.Wrapf(err, forgeerr.ErrSourceParse, "failed to open row source %s", path)
	}
	defer f.Close()

	rows, err := Parse(f)
	if err != nil {
		return nil, err
	}
	if err := Validate(rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Parse reads CSV records into rows. The first record is the header; every
// following record becomes one Row keyed by header name.
func Parse(r io.Reader) ([]Row, error) {
	logger := logging.GetLogger("rowsource")

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, forgeerr.Wrap(err, forgeerr.ErrSourceParse, "failed to parse row source")
	}
	if len(records) == 0 {
		return nil, forgeerr.New(forgeerr.ErrSourceParse, "row source is empty")
	}

	header := make([]string, len(records[0]))
	for i, name := range records[0] {
		header[i] = strings.TrimSpace(name)
	}

	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(Row, len(header))
		for i, value := range record {
			if i < len(header) {
				row[header[i]] = value
			}
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, forgeerr.New(forgeerr.ErrSourceParse, "row source contains no data rows")
	}

	logger.Debug().Int("rows", len(rows)).Strs("fields", header).Msg("parsed row source")
	return rows, nil
}

// Validate checks every row for the required fields and rejects domains
// that would collide on disk: each row owns its output directory
// exclusively, so two domains mapping to the same slug are as fatal as an
// exact duplicate. Row indices in errors are 1-based data-row positions.
func Validate(rows []Row) error {
	type owner struct {
		index  int
		domain string
	}
	seen := make(map[string]owner, len(rows))

	for i, row := range rows {
		for _, field := range RequiredFields {
			value, ok := row[field]
			if !ok || strings.TrimSpace(value) == "" {
				return forgeerr.Newf(forgeerr.ErrSourceValidate,
					"row %d: required field %q is missing or blank", i+1, field).
					WithDetail("row", i+1).
					WithDetail("field", field)
			}
		}

		domain := strings.TrimSpace(row.Domain())
		slug := finalize.Slug(domain)
		if prev, dup := seen[slug]; dup {
			return forgeerr.Newf(forgeerr.ErrDuplicateDomain,
				"row %d: domain %q maps to the same output directory %q as row %d (%q)",
				i+1, domain, slug, prev.index, prev.domain).
				WithDetail("row", i+1).
				WithDetail("domain", domain).
				WithDetail("slug", slug)
		}
		seen[slug] = owner{index: i + 1, domain: domain}
	}
	return nil
}
