package departments

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchFirstHitWins(t *testing.T) {
	d := Default()

	tests := []struct {
		name        string
		text        string
		wantKeyword string
		wantLabel   string
	}{
		{"dentist", "Book dentist next Friday", "dentist", Dentistry},
		{"dentistry matches dentist first", "Dentistry appointment", "dentist", Dentistry},
		{"dental", "dental cleaning", "dental", Dentistry},
		{"cardiologist matches cardiology prefix", "see a cardiologist", "cardiologist", Cardiology},
		{"gp upper case", "GP visit tomorrow", "gp", GeneralPractice},
		{"general", "general checkup", "general", GeneralPractice},
		{"skin", "skin rash", "skin", Dermatology},
		{"dermatologist", "dermatologist @ 10am tomorrow", "dermatologist", Dermatology},
		{"order beats position", "skin issue, maybe dentist", "dentist", Dentistry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kw, label, ok := d.Match(tt.text)
			require.True(t, ok)
			assert.Equal(t, tt.wantKeyword, kw)
			assert.Equal(t, tt.wantLabel, label)
		})
	}
}

func TestMatchNoKeyword(t *testing.T) {
	_, _, ok := Default().Match("see someone sometime")
	assert.False(t, ok)
}

func TestCanonical(t *testing.T) {
	d := Default()

	label, ok := d.Canonical("Dermatologist")
	require.True(t, ok)
	assert.Equal(t, Dermatology, label)

	_, ok = d.Canonical("orthopedics")
	assert.False(t, ok)

	_, ok = d.Canonical("")
	assert.False(t, ok)
}

func TestEveryMatchCanonicalizes(t *testing.T) {
	d := Default()
	for _, e := range d.Entries() {
		kw, label, ok := d.Match("please book " + e.Keyword)
		require.True(t, ok, e.Keyword)
		canonical, ok := d.Canonical(kw)
		require.True(t, ok, kw)
		assert.Equal(t, label, canonical)
		assert.True(t, d.IsCanonical(canonical))
	}
}

func TestNewDropsDuplicatesAndBlanks(t *testing.T) {
	d := New([]Entry{
		{"Eye", "Ophthalmology"},
		{"eye", "Optometry"},
		{"", "Nothing"},
		{"ear", ""},
	})

	entries := d.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, Entry{Keyword: "eye", Label: "Ophthalmology"}, entries[0])

	entries[0].Label = "mutated"
	label, _ := d.Canonical("eye")
	assert.Equal(t, "Ophthalmology", label)
}
