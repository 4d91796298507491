package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/craftedsignal/attackmap"
)

// Navigator layer format versions.
const (
	navigatorVersion = "5.3.0"
	layerVersion     = "4.5"
)

// navigatorLayer is the ATT&CK Navigator layer file shape.
type navigatorLayer struct {
	Name                    string               `json:"name"`
	Versions                navigatorVersions    `json:"versions"`
	Domain                  string               `json:"domain"`
	Description             string               `json:"description"`
	Filters                 navigatorFilters     `json:"filters"`
	Sorting                 int                  `json:"sorting"`
	Layout                  navigatorLayout      `json:"layout"`
	HideDisabled            bool                 `json:"hideDisabled"`
	Techniques              []navigatorTechnique `json:"techniques"`
	Gradient                navigatorGradient    `json:"gradient"`
	LegendItems             []any                `json:"legendItems"`
	Metadata                []any                `json:"metadata"`
	Links                   []any                `json:"links"`
	ShowTacticRowBackground bool                 `json:"showTacticRowBackground"`
	TacticRowBackground     string               `json:"tacticRowBackground"`
}

type navigatorVersions struct {
	Attack    string `json:"attack"`
	Navigator string `json:"navigator"`
	Layer     string `json:"layer"`
}

type navigatorFilters struct {
	Platforms []string `json:"platforms"`
}

type navigatorLayout struct {
	Layout                 string `json:"layout"`
	AggregateFunction      string `json:"aggregateFunction"`
	ShowID                 bool   `json:"showID"`
	ShowName               bool   `json:"showName"`
	ShowAggregateScores    bool   `json:"showAggregateScores"`
	CountUnscored          bool   `json:"countUnscored"`
	ExpandedSubtechniques  string `json:"expandedSubtechniques"`
}

type navigatorGradient struct {
	Colors   []string `json:"colors"`
	MinValue float64  `json:"minValue"`
	MaxValue float64  `json:"maxValue"`
}

type navigatorTechnique struct {
	TechniqueID       string  `json:"techniqueID"`
	Tactic            string  `json:"tactic"`
	Color             string  `json:"color"`
	Comment           string  `json:"comment"`
	Enabled           bool    `json:"enabled"`
	Metadata          []any   `json:"metadata"`
	Links             []any   `json:"links"`
	ShowSubtechniques bool    `json:"showSubtechniques"`
	Score             float64 `json:"score"`
}

// WriteNavigator serializes the result as an ATT&CK Navigator layer with
// confidence as the technique score on a 0-1 gradient.
func WriteNavigator(w io.Writer, result *attackmap.Result, meta Metadata) error {
	name := "attackmap"
	if meta.Title != "" {
		name = "attackmap - " + meta.Title
	}

	layer := navigatorLayer{
		Name: name,
		Versions: navigatorVersions{
			Attack:    result.CatalogVersion,
			Navigator: navigatorVersion,
			Layer:     layerVersion,
		},
		Domain:      "enterprise-attack",
		Description: fmt.Sprintf("ATT&CK mapping generated from: %s", orDefault(meta.Source, "unknown")),
		Filters:     navigatorFilters{Platforms: []string{}},
		Layout: navigatorLayout{
			Layout:                "side",
			AggregateFunction:     "average",
			ShowID:                true,
			ShowName:              true,
			ExpandedSubtechniques: "annotated",
		},
		Techniques: []navigatorTechnique{},
		Gradient: navigatorGradient{
			Colors:   []string{"#ffffff", "#42a5f5", "#ff4444"},
			MinValue: 0,
			MaxValue: 1,
		},
		LegendItems:         []any{},
		Metadata:            []any{},
		Links:               []any{},
		TacticRowBackground: "#dddddd",
	}

	for _, m := range result.Mappings {
		tactic := ""
		if len(m.Tactics) > 0 {
			tactic = m.Tactics[0]
		}
		layer.Techniques = append(layer.Techniques, navigatorTechnique{
			TechniqueID:       m.TechniqueID,
			Tactic:            tactic,
			Comment:           fmt.Sprintf("Confidence: %.2f\nEvidence: %s", m.Confidence, joinEvidence(m.Evidence, 200)),
			Enabled:           true,
			Metadata:          []any{},
			Links:             []any{},
			ShowSubtechniques: true,
			Score:             m.Confidence,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(layer)
}
