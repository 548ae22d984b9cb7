package catalog

import "fmt"

// Kind classifies a learnable entry.
type Kind string

const (
	KindTerminology  Kind = "terminology"
	KindPattern      Kind = "pattern"
	KindStepSparring Kind = "step_sparring"
	KindTheory       Kind = "theory"
)

// Entry is an immutable learnable unit supplied by the content loader.
type Entry struct {
	ID         string `json:"id"`
	GateLevel  Rank   `json:"gate_level"`
	Difficulty int    `json:"difficulty"`
	Kind       Kind   `json:"kind"`
	Term       string `json:"term,omitempty"`
	Meaning    string `json:"meaning,omitempty"`
}

// Profile is a learner identity. The core only reads CurrentRank.
type Profile struct {
	ID          string
	Name        string
	CurrentRank Rank
}

// Catalog is a read-only snapshot of every entry known to the process.
type Catalog struct {
	version string
	entries []Entry
	byID    map[string]int
}

// New builds a catalog from entries. Entry ids must be unique and non-empty.
func New(version string, entries []Entry) (*Catalog, error) {
	c := &Catalog{
		version: version,
		entries: make([]Entry, len(entries)),
		byID:    make(map[string]int, len(entries)),
	}
	copy(c.entries, entries)

	for i, e := range c.entries {
		if e.ID == "" {
			return nil, fmt.Errorf("entry %d: empty id", i)
		}
		if _, dup := c.byID[e.ID]; dup {
			return nil, fmt.Errorf("duplicate entry id %q", e.ID)
		}
		if e.Difficulty < 1 {
			c.entries[i].Difficulty = 1
		}
		c.byID[e.ID] = i
	}
	return c, nil
}

// Version returns the curriculum version the catalog was loaded from.
func (c *Catalog) Version() string {
	return c.version
}

// Lookup returns the entry with the given id.
func (c *Catalog) Lookup(id string) (Entry, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Entries returns a copy of all entries in load order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}
