// Package dict models a study's data dictionary: the ordered catalogue of
// variables a dataset is expected to carry. The dictionary drives two checks
// around the rule engine, neither of which mutates study values: column-name
// case normalization before a run, and the missing-variables report after.
package dict

import (
	"strings"

	"studyqc/domain/rules"
	"studyqc/domain/table"
)

// Entry is one dictionary record. Variable and Category are required by the
// source format; Label is free text carried through to reports when present.
type Entry struct {
	Variable string `json:"variable"`
	Category string `json:"category"`
	Label    string `json:"label,omitempty"`
}

// Dictionary is the ordered variable catalogue for one study.
type Dictionary struct {
	Entries []Entry

	byLower map[string]int
}

// New builds a dictionary, keeping entry order. Later duplicates of the same
// variable name (case-insensitively) are kept in Entries but the first one
// wins for lookups.
func New(entries []Entry) *Dictionary {
	d := &Dictionary{
		Entries: entries,
		byLower: make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		key := strings.ToLower(e.Variable)
		if _, ok := d.byLower[key]; !ok {
			d.byLower[key] = i
		}
	}
	return d
}

// ParseEntries maps header-keyed records onto dictionary entries, tolerating
// the header spellings seen across study workbooks. Records with no variable
// name are blank rows and are dropped.
func ParseEntries(records []rules.RawRecord) []Entry {
	var entries []Entry
	for _, rec := range records {
		variable := rec.Field("variable", "var", "name", "field")
		if variable == "" {
			continue
		}
		entries = append(entries, Entry{
			Variable: variable,
			Category: rec.Field("category", "cat", "group", "domain"),
			Label:    rec.Field("label", "description", "desc"),
		})
	}
	return entries
}

// Variables returns the variable names in dictionary order.
func (d *Dictionary) Variables() []string {
	names := make([]string, len(d.Entries))
	for i, e := range d.Entries {
		names[i] = e.Variable
	}
	return names
}

// Lookup finds an entry by variable name, case-insensitively.
func (d *Dictionary) Lookup(name string) (Entry, bool) {
	i, ok := d.byLower[strings.ToLower(name)]
	if !ok {
		return Entry{}, false
	}
	return d.Entries[i], true
}

// Len returns the number of entries.
func (d *Dictionary) Len() int {
	return len(d.Entries)
}

// Categories returns the distinct categories in first-appearance order.
func (d *Dictionary) Categories() []string {
	seen := make(map[string]bool)
	var cats []string
	for _, e := range d.Entries {
		if e.Category == "" || seen[e.Category] {
			continue
		}
		seen[e.Category] = true
		cats = append(cats, e.Category)
	}
	return cats
}

// Rename records one column-name normalization.
type Rename struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// NormalizeColumns renames dataset columns that match a dictionary variable
// in everything but case to the dictionary's canonical spelling, so rule
// variables written against the dictionary resolve. A rename that would
// collide with an existing column is left alone. Returns the renames made.
func (d *Dictionary) NormalizeColumns(ds *table.Dataset) []Rename {
	cols := append([]string(nil), ds.Columns...)
	var renames []Rename
	for _, col := range cols {
		i, ok := d.byLower[strings.ToLower(col)]
		if !ok {
			continue
		}
		want := d.Entries[i].Variable
		if want == col {
			continue
		}
		if err := ds.RenameColumn(col, want); err != nil {
			continue
		}
		renames = append(renames, Rename{From: col, To: want})
	}
	return renames
}

// MissingFrom returns the dictionary variables the dataset does not carry,
// in dictionary order. Run it after NormalizeColumns so case differences do
// not count as missing.
func (d *Dictionary) MissingFrom(ds *table.Dataset) []string {
	var missing []string
	for _, e := range d.Entries {
		if !ds.HasColumn(e.Variable) {
			missing = append(missing, e.Variable)
		}
	}
	return missing
}
