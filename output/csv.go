package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/craftedsignal/attackmap/mapping"
)

// maxCSVEvidenceChars caps the evidence column so spreadsheet cells stay
// readable.
const maxCSVEvidenceChars = 500

// WriteCSV writes one row per technique with semicolon-joined tactics and
// evidence.
func WriteCSV(w io.Writer, mappings []mapping.Mapping) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"technique_id", "technique_name", "tactics", "confidence", "band", "evidence"}); err != nil {
		return fmt.Errorf("output: write csv header: %w", err)
	}

	for _, m := range mappings {
		row := []string{
			m.TechniqueID,
			m.Name,
			strings.Join(m.Tactics, "; "),
			fmt.Sprintf("%.2f", m.Confidence),
			mapping.Band(m.Confidence),
			joinEvidence(m.Evidence, maxCSVEvidenceChars),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("output: write csv row for %s: %w", m.TechniqueID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
