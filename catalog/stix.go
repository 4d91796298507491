package catalog

import (
	"encoding/json"
	"fmt"
	"io"
)

// DefaultSTIXURL is the canonical source for the ATT&CK Enterprise STIX
// bundle published by MITRE.
const DefaultSTIXURL = "https://raw.githubusercontent.com/mitre/cti/master/enterprise-attack/enterprise-attack.json"

// stixBundle is the subset of a STIX 2.x bundle we read.
type stixBundle struct {
	Objects []stixObject `json:"objects"`
}

type stixObject struct {
	Type            string          `json:"type"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Deprecated      bool            `json:"x_mitre_deprecated"`
	Revoked         bool            `json:"revoked"`
	Version         string          `json:"x_mitre_version"`
	ExternalRefs    []stixReference `json:"external_references"`
	KillChainPhases []stixPhase     `json:"kill_chain_phases"`
}

type stixReference struct {
	SourceName string `json:"source_name"`
	ExternalID string `json:"external_id"`
}

type stixPhase struct {
	KillChainName string `json:"kill_chain_name"`
	PhaseName     string `json:"phase_name"`
}

// ParseSTIX reads an ATT&CK STIX bundle and returns the active techniques
// and sub-techniques. Deprecated and revoked attack patterns are skipped, as
// are patterns without a mitre-attack external id.
func ParseSTIX(r io.Reader) ([]Technique, error) {
	var bundle stixBundle
	if err := json.NewDecoder(r).Decode(&bundle); err != nil {
		return nil, fmt.Errorf("catalog: decode STIX bundle: %w", err)
	}

	var techniques []Technique
	for _, obj := range bundle.Objects {
		if obj.Type != "attack-pattern" || obj.Deprecated || obj.Revoked {
			continue
		}

		var id string
		for _, ref := range obj.ExternalRefs {
			if ref.SourceName == "mitre-attack" {
				id = ref.ExternalID
				break
			}
		}
		if id == "" {
			continue
		}

		var tactics []string
		for _, phase := range obj.KillChainPhases {
			if phase.KillChainName == "mitre-attack" && phase.PhaseName != "" {
				tactics = append(tactics, phase.PhaseName)
			}
		}

		techniques = append(techniques, Technique{
			ID:          id,
			Name:        obj.Name,
			Tactics:     tactics,
			Description: obj.Description,
		})
	}

	if len(techniques) == 0 {
		return nil, fmt.Errorf("catalog: STIX bundle contains no attack patterns")
	}
	return techniques, nil
}

// LoadSTIX parses a STIX bundle and builds a Catalog tagged with the given
// framework version.
func LoadSTIX(r io.Reader, version string) (*Catalog, error) {
	techniques, err := ParseSTIX(r)
	if err != nil {
		return nil, err
	}
	return New(techniques, version)
}
