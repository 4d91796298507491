package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Common errors returned by catalog operations.
var (
	// ErrUnknownTechnique is returned when a technique id is not present in
	// the catalog for the loaded framework version.
	ErrUnknownTechnique = errors.New("catalog: unknown technique id")

	// ErrEmptyCatalog is returned when a catalog is constructed with no
	// techniques.
	ErrEmptyCatalog = errors.New("catalog: no techniques")
)

// Catalog is a read-only index of ATT&CK techniques keyed by id.
// It is safe for concurrent use after construction.
type Catalog struct {
	version  string
	byID     map[string]Technique
	ids      []string
	byTactic map[string][]string
}

// New builds a Catalog from the given techniques, tagged with the framework
// version. Duplicate ids keep the first occurrence; invalid techniques are
// rejected.
func New(techniques []Technique, version string) (*Catalog, error) {
	if len(techniques) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{
		version:  version,
		byID:     make(map[string]Technique, len(techniques)),
		byTactic: make(map[string][]string),
	}

	for _, t := range techniques {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, ok := c.byID[t.ID]; ok {
			continue
		}
		t.Version = version
		// Copy the tactic slice so later caller mutation cannot reach the
		// catalog's view.
		t.Tactics = append([]string(nil), t.Tactics...)
		c.byID[t.ID] = t
		c.ids = append(c.ids, t.ID)
		for _, tactic := range t.Tactics {
			key := normalizeTactic(tactic)
			c.byTactic[key] = append(c.byTactic[key], t.ID)
		}
	}

	sort.Strings(c.ids)
	for _, ids := range c.byTactic {
		sort.Strings(ids)
	}

	return c, nil
}

// Version returns the framework version tag the catalog was loaded with.
func (c *Catalog) Version() string {
	return c.version
}

// Len returns the number of techniques in the catalog.
func (c *Catalog) Len() int {
	return len(c.ids)
}

// Has reports whether the technique id exists in the catalog.
func (c *Catalog) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// Get returns the technique for the given id.
func (c *Catalog) Get(id string) (Technique, error) {
	t, ok := c.byID[id]
	if !ok {
		return Technique{}, fmt.Errorf("%w: %s", ErrUnknownTechnique, id)
	}
	return t, nil
}

// IDs returns all technique ids in ascending order. The returned slice is a
// copy and may be retained by the caller.
func (c *Catalog) IDs() []string {
	return append([]string(nil), c.ids...)
}

// ByTactic returns the ids of techniques belonging to the named tactic, in
// ascending order. Matching is case-insensitive and tolerates both
// "initial-access" and "Initial Access" spellings.
func (c *Catalog) ByTactic(tactic string) []string {
	return append([]string(nil), c.byTactic[normalizeTactic(tactic)]...)
}

// Tactics returns the distinct tactic names present in the catalog, in
// ascending normalized order.
func (c *Catalog) Tactics() []string {
	out := make([]string, 0, len(c.byTactic))
	for tactic := range c.byTactic {
		out = append(out, tactic)
	}
	sort.Strings(out)
	return out
}

// normalizeTactic folds case and spelling differences between kill-chain
// phase names ("initial-access") and display names ("Initial Access").
func normalizeTactic(tactic string) string {
	s := strings.ToLower(strings.TrimSpace(tactic))
	return strings.ReplaceAll(s, " ", "-")
}
