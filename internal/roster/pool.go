// Package roster holds the pool of roster entries that are still unclaimed
// during a reconciliation run.
package roster

import (
	"slices"
	"strings"

	"github.com/sells-group/rollcall/internal/fuzzy"
	"github.com/sells-group/rollcall/internal/model"
)

// NewEntry builds a RosterEntry from a raw name cell and its source row.
// It returns false when the name is blank.
func NewEntry(rawName string, row []model.Cell) (model.RosterEntry, bool) {
	name := strings.TrimSpace(rawName)
	key := fuzzy.NormalizeKey(name)
	if key == "" {
		return model.RosterEntry{}, false
	}
	return model.RosterEntry{Key: key, Name: name, Row: row}, true
}

// Pool is an insertion-ordered set of unclaimed roster entries keyed by
// normalized name. After Load it only shrinks. A Pool belongs to a single
// run and is not safe for concurrent use.
type Pool struct {
	order      []string
	entries    map[string]model.RosterEntry
	duplicates []model.RosterEntry
}

// Load builds a pool from entries. When two entries share a key the first
// one wins; the later ones are kept aside and returned by Duplicates.
// Entries with an empty key are ignored.
func Load(entries []model.RosterEntry) *Pool {
	p := &Pool{
		order:   make([]string, 0, len(entries)),
		entries: make(map[string]model.RosterEntry, len(entries)),
	}
	for _, e := range entries {
		if e.Key == "" {
			continue
		}
		if _, ok := p.entries[e.Key]; ok {
			p.duplicates = append(p.duplicates, e)
			continue
		}
		p.entries[e.Key] = e
		p.order = append(p.order, e.Key)
	}
	return p
}

// Keys returns the live keys in insertion order.
func (p *Pool) Keys() []string {
	return slices.Clone(p.order)
}

// Entries returns the live entries in insertion order.
func (p *Pool) Entries() []model.RosterEntry {
	out := make([]model.RosterEntry, 0, len(p.order))
	for _, k := range p.order {
		out = append(out, p.entries[k])
	}
	return out
}

// Remove claims key. It reports false and does nothing when key is absent.
func (p *Pool) Remove(key string) bool {
	if _, ok := p.entries[key]; !ok {
		return false
	}
	delete(p.entries, key)
	if i := slices.Index(p.order, key); i >= 0 {
		p.order = slices.Delete(p.order, i, i+1)
	}
	return true
}

// Len returns the number of live entries.
func (p *Pool) Len() int { return len(p.order) }

// IsEmpty reports whether every entry has been claimed.
func (p *Pool) IsEmpty() bool { return len(p.order) == 0 }

// Duplicates returns the entries dropped at Load because an earlier entry
// had the same key.
func (p *Pool) Duplicates() []model.RosterEntry {
	return slices.Clone(p.duplicates)
}
