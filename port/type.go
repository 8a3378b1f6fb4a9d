package port

// Entry is one probe target in a Catalog.
type Entry struct {
	Number  uint16
	Service string // display label only, never used for matching
}

// Catalog is an ordered, immutable list of ports. Probing and reporting follow
// catalog order, not numeric order.
type Catalog struct {
	entries []Entry
}

// NewCatalog copies entries into a new Catalog. Duplicate port numbers keep
// their first position.
func NewCatalog(entries ...Entry) Catalog {
	seen := make(map[uint16]struct{}, len(entries))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.Number]; dup {
			continue
		}
		seen[e.Number] = struct{}{}
		out = append(out, e)
	}
	return Catalog{entries: out}
}

// FromPorts builds a Catalog from bare port numbers, labelling the ones that
// also appear in the default catalog.
func FromPorts(ports []uint16) Catalog {
	entries := make([]Entry, 0, len(ports))
	for _, p := range ports {
		entries = append(entries, Entry{Number: p, Service: Default().Service(p)})
	}
	return NewCatalog(entries...)
}

func (c Catalog) Len() int { return len(c.entries) }

// Entries returns a copy of the catalog entries.
func (c Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Ports returns the port numbers in catalog order.
func (c Catalog) Ports() []uint16 {
	out := make([]uint16, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Number
	}
	return out
}

// Service returns the label for p, or "" when p is not in the catalog.
func (c Catalog) Service(p uint16) string {
	for _, e := range c.entries {
		if e.Number == p {
			return e.Service
		}
	}
	return ""
}
