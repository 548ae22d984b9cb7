package catalog

// EligibleEntries returns every entry whose gate level is at or below the
// profile's current rank. A profile below every gate gets an empty, non-nil
// slice.
func EligibleEntries(p Profile, entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.GateLevel <= p.CurrentRank {
			out = append(out, e)
		}
	}
	return out
}

// Eligible applies EligibleEntries to the whole catalog.
func (c *Catalog) Eligible(p Profile) []Entry {
	return EligibleEntries(p, c.entries)
}
