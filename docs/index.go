package docs

import "strings"

// IndexEntry is what an alias in the [Index] resolves to.
type IndexEntry struct {
	Peripheral    string  `json:"peripheral"`
	Object        string  `json:"object,omitempty"`
	Name          string  `json:"name"`
	FormattedName string  `json:"formatted_name"`
	Method        *Method `json:"-"`
}

// Index maps lowercase method aliases to their methods. Aliases iterate in
// the order they were first inserted, which is dataset order. An Index is
// read-only once built and safe for concurrent use.
type Index struct {
	keys    []string
	entries map[string]*IndexEntry
}

// BuildIndex registers every alias of every method in ds.
//
// A peripheral method `m` of `P` is reachable as `m`, `P.m` and (if it
// is called with a colon) `P:m`. A method `m` of object `O` in `P` is
// reachable as `P/O.m` and `O.m`, plus `P/O:m` and `O:m` for colon calls.
// When two methods share an alias, the one later in the dataset wins.
func BuildIndex(ds *Dataset) *Index {
	idx := &Index{entries: map[string]*IndexEntry{}}
	if ds == nil {
		return idx
	}
	for _, p := range ds.Peripherals {
		for _, m := range p.Methods {
			e := newIndexEntry(m)
			idx.insert(m.Name, e)
			idx.insert(p.Name+"."+m.Name, e)
			if m.ColonCall {
				idx.insert(p.Name+":"+m.Name, e)
			}
		}
		for _, o := range p.Objects {
			for _, m := range o.Methods {
				e := newIndexEntry(m)
				idx.insert(p.Name+"/"+o.Name+"."+m.Name, e)
				if m.ColonCall {
					idx.insert(p.Name+"/"+o.Name+":"+m.Name, e)
				}
				idx.insert(o.Name+"."+m.Name, e)
				if m.ColonCall {
					idx.insert(o.Name+":"+m.Name, e)
				}
			}
		}
	}
	return idx
}

func newIndexEntry(m *Method) *IndexEntry {
	return &IndexEntry{
		Peripheral:    m.Peripheral,
		Object:        m.Object,
		Name:          m.Name,
		FormattedName: m.FormattedName(),
		Method:        m,
	}
}

func (x *Index) insert(alias string, e *IndexEntry) {
	alias = strings.ToLower(alias)
	if _, exists := x.entries[alias]; !exists {
		x.keys = append(x.keys, alias)
	}
	x.entries[alias] = e
}

// Lookup returns the entry registered for alias, ignoring case.
func (x *Index) Lookup(alias string) (*IndexEntry, bool) {
	e, ok := x.entries[strings.ToLower(alias)]
	return e, ok
}

// Len returns the number of aliases.
func (x *Index) Len() int {
	return len(x.keys)
}

// Aliases returns every alias in iteration order.
func (x *Index) Aliases() []string {
	keys := make([]string, len(x.keys))
	copy(keys, x.keys)
	return keys
}

// Each calls fn for every alias in iteration order, until fn returns false.
func (x *Index) Each(fn func(alias string, entry *IndexEntry) bool) {
	for _, k := range x.keys {
		if !fn(k, x.entries[k]) {
			return
		}
	}
}

// Entries returns the distinct entries still reachable through at least
// one alias, ordered by their first alias.
func (x *Index) Entries() []*IndexEntry {
	seen := make(map[*IndexEntry]struct{}, len(x.keys))
	var entries []*IndexEntry
	for _, k := range x.keys {
		e := x.entries[k]
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		entries = append(entries, e)
	}
	return entries
}
