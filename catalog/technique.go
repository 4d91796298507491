package catalog

import (
	"fmt"
	"strings"
)

// Technique is a single ATT&CK technique or sub-technique. Techniques are
// immutable once loaded into a Catalog.
type Technique struct {
	// ID is the stable ATT&CK identifier (e.g. "T1566" or "T1566.001").
	ID string `json:"technique_id"`

	// Name is the human-readable technique name.
	Name string `json:"name"`

	// Tactics lists the tactic names this technique belongs to, in the
	// order they appear in the framework data. A technique may belong to
	// more than one tactic.
	Tactics []string `json:"tactics"`

	// Description is the framework's free-text description.
	Description string `json:"description"`

	// Version is the framework version tag the technique was loaded from.
	Version string `json:"version,omitempty"`
}

// IsSubtechnique reports whether the technique is a sub-technique
// (a dotted id such as "T1566.001").
func (t Technique) IsSubtechnique() bool {
	return strings.Contains(t.ID, ".")
}

// HasTactic reports whether the technique belongs to the named tactic.
// Matching is case-insensitive.
func (t Technique) HasTactic(tactic string) bool {
	for _, name := range t.Tactics {
		if strings.EqualFold(name, tactic) {
			return true
		}
	}
	return false
}

// Validate checks that the technique carries the required fields.
func (t Technique) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("catalog: technique id is required")
	}
	if t.Name == "" {
		return fmt.Errorf("catalog: technique %s has no name", t.ID)
	}
	return nil
}

// String returns the conventional "ID: Name" rendering.
func (t Technique) String() string {
	return fmt.Sprintf("%s: %s", t.ID, t.Name)
}
