package identity

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"sort"
	"strings"
)

// CanonicalIdentity is one entry in the matching directory: a short
// canonical name plus zero or more known aliases.
type CanonicalIdentity struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
}

// entry is a precomputed directory candidate: one normalized form
// (canonical name or alias) pointing back at its canonical name.
// sortedStripped is the form with its trailing token dropped, so a
// mascot-carrying directory name can still meet a mascot-free query.
type entry struct {
	canonical      string
	form           string // normalized form this entry matches on
	sorted         string // form with tokens sorted alphabetically
	sortedStripped string // sorted form minus the trailing raw token, "" if single-token
}

// Directory is an immutable, matchable snapshot of canonical identities.
// A Directory's Version is a stable hash of its contents, so two snapshots
// built from the same data share a version regardless of when or where
// they were constructed. The matcher keys its memo cache on that version,
// never on the Directory pointer.
type Directory struct {
	entries []entry
	byForm  map[string]string // normalized form -> canonical name
	version string
}

// NewDirectory builds a Directory from identities. Entries with empty
// names after normalization are skipped.
func NewDirectory(ids []CanonicalIdentity) *Directory {
	d := &Directory{
		byForm: make(map[string]string, len(ids)),
	}

	h := fnv.New64a()
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, id.Name+"\x00"+strings.Join(id.Aliases, "\x00"))
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0xff})
	}
	d.version = fmt.Sprintf("%016x", h.Sum64())

	for _, id := range ids {
		d.add(id.Name, id.Name)
		for _, alias := range id.Aliases {
			d.add(id.Name, alias)
		}
	}
	return d
}

func (d *Directory) add(canonical, form string) {
	norm := Normalize(form)
	if norm == "" {
		return
	}
	toks := strings.Split(norm, " ")
	e := entry{
		canonical: canonical,
		form:      norm,
		sorted:    sortedTokenString(toks),
	}
	if len(toks) > 1 {
		e.sortedStripped = sortedTokenString(toks[:len(toks)-1])
	}
	d.entries = append(d.entries, e)
	if _, exists := d.byForm[norm]; !exists {
		d.byForm[norm] = canonical
	}
}

// Version returns the stable content hash of the directory. Identical
// contents always produce identical versions across process restarts.
func (d *Directory) Version() string { return d.version }

// Len returns the number of matchable forms in the directory.
func (d *Directory) Len() int { return len(d.entries) }

// Names returns the canonical names in the directory, deduplicated and
// sorted.
func (d *Directory) Names() []string {
	seen := make(map[string]struct{}, len(d.entries))
	var names []string
	for _, e := range d.entries {
		if _, ok := seen[e.canonical]; !ok {
			seen[e.canonical] = struct{}{}
			names = append(names, e.canonical)
		}
	}
	sort.Strings(names)
	return names
}

// FormsOf returns every normalized form registered for canonical, the
// name itself included. Useful for carrying roster aliases into a
// directory built from another source.
func (d *Directory) FormsOf(canonical string) []string {
	var forms []string
	for _, e := range d.entries {
		if e.canonical == canonical {
			forms = append(forms, e.form)
		}
	}
	return forms
}

// LoadDirectory reads a JSON roster file containing an array of
// CanonicalIdentity records and builds a Directory from it.
func LoadDirectory(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading roster: %w", err)
	}
	var ids []CanonicalIdentity
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decoding roster %s: %w", path, err)
	}
	return NewDirectory(ids), nil
}

func sortedTokenString(toks []string) string {
	s := make([]string, len(toks))
	copy(s, toks)
	sort.Strings(s)
	return strings.Join(s, " ")
}
