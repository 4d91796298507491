package output

import (
	"encoding/json"
	"io"

	"github.com/craftedsignal/attackmap"
	"github.com/craftedsignal/attackmap/mapping"
)

// jsonDocument is the JSON output shape.
type jsonDocument struct {
	Metadata   jsonMetadata      `json:"metadata"`
	Statistics Statistics        `json:"statistics"`
	Techniques []mapping.Mapping `json:"techniques"`
	Report     attackmap.Report  `json:"report"`
}

type jsonMetadata struct {
	Metadata
	RunID         string `json:"run_id"`
	GeneratedAt   string `json:"generated_at"`
	AttackVersion string `json:"attack_version"`
}

// WriteJSON serializes the full result, including per-chunk report detail,
// as indented JSON.
func WriteJSON(w io.Writer, result *attackmap.Result, meta Metadata) error {
	doc := jsonDocument{
		Metadata: jsonMetadata{
			Metadata:      meta,
			RunID:         result.RunID,
			GeneratedAt:   result.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"),
			AttackVersion: result.CatalogVersion,
		},
		Statistics: Summarize(result.Mappings),
		Techniques: result.Mappings,
		Report:     result.Report,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(doc)
}
