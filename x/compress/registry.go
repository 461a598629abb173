package compress

import "sort"

// ProviderTable maps an encoding name to its provider. A table is built once
// per call via Resolve and is read-only afterwards, so concurrent lookups
// need no locking.
type ProviderTable map[string]Provider

// Resolve builds a provider table from an ordered provider sequence. The
// first provider registered for a name wins; later duplicates are ignored.
// An empty sequence yields an empty table.
func Resolve(providers ...Provider) ProviderTable {
	table := make(ProviderTable, len(providers))
	for _, p := range providers {
		if _, ok := table[p.Name()]; ok {
			continue
		}
		table[p.Name()] = p
	}
	return table
}

// Lookup returns the provider registered for name, if any.
func (t ProviderTable) Lookup(name string) (Provider, bool) {
	p, ok := t[name]
	return p, ok
}

// Names returns the registered encoding names in sorted order.
func (t ProviderTable) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
