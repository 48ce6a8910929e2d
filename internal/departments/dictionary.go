// Package departments holds the keyword dictionary that maps lexical variants
// found in appointment requests to canonical department labels.
package departments

import "strings"

// Canonical department labels.
const (
	Dentistry       = "Dentistry"
	Cardiology      = "Cardiology"
	GeneralPractice = "General Practice"
	Dermatology     = "Dermatology"
)

// Entry pairs a lower-case keyword with its canonical label.
type Entry struct {
	Keyword string
	Label   string
}

// Dictionary is an ordered, immutable keyword table. Matching walks entries in
// order and the first hit wins, so order is part of its behavior.
type Dictionary struct {
	entries []Entry
	index   map[string]string
}

// New builds a dictionary from entries. Keywords are lower-cased; a repeated
// keyword keeps its first position and label.
func New(entries []Entry) *Dictionary {
	d := &Dictionary{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[string]string, len(entries)),
	}
	for _, e := range entries {
		kw := strings.ToLower(strings.TrimSpace(e.Keyword))
		if kw == "" || e.Label == "" {
			continue
		}
		if _, dup := d.index[kw]; dup {
			continue
		}
		d.entries = append(d.entries, Entry{Keyword: kw, Label: e.Label})
		d.index[kw] = e.Label
	}
	return d
}

var defaultEntries = []Entry{
	{"dentist", Dentistry},
	{"dentistry", Dentistry},
	{"dental", Dentistry},
	{"cardiology", Cardiology},
	{"cardiologist", Cardiology},
	{"general", GeneralPractice},
	{"gp", GeneralPractice},
	{"dermatologist", Dermatology},
	{"skin", Dermatology},
}

// Default returns the system dictionary.
func Default() *Dictionary {
	return New(defaultEntries)
}

// Match scans lower-cased text for the first keyword, in dictionary order,
// that occurs as a substring. It returns the keyword and its label.
func (d *Dictionary) Match(text string) (keyword, label string, ok bool) {
	lower := strings.ToLower(text)
	for _, e := range d.entries {
		if strings.Contains(lower, e.Keyword) {
			return e.Keyword, e.Label, true
		}
	}
	return "", "", false
}

// Canonical returns the label for a raw keyword, case-insensitively.
func (d *Dictionary) Canonical(raw string) (string, bool) {
	label, ok := d.index[strings.ToLower(strings.TrimSpace(raw))]
	return label, ok
}

// IsCanonical reports whether label is one of the dictionary's target labels.
func (d *Dictionary) IsCanonical(label string) bool {
	for _, e := range d.entries {
		if e.Label == label {
			return true
		}
	}
	return false
}

// Entries returns a copy of the dictionary in match order.
func (d *Dictionary) Entries() []Entry {
	out := make([]Entry, len(d.entries))
	copy(out, d.entries)
	return out
}
