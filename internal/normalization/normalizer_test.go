package normalization

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/appointment-intake/internal/extraction"
)

func ptr(s string) *string { return &s }

func monday(t *testing.T) time.Time {
	t.Helper()
	loc, err := time.LoadLocation(TargetTimezone)
	require.NoError(t, err)
	return time.Date(2026, time.October, 19, 9, 0, 0, 0, loc)
}

func TestNormalizer_Normalize(t *testing.T) {
	n, err := New(nil)
	require.NoError(t, err)

	got := n.Normalize(extraction.Entities{
		DatePhrase:    ptr("next Friday"),
		TimePhrase:    ptr("3pm"),
		DepartmentRaw: ptr("dentist"),
	}, monday(t))

	require.NotNil(t, got.Normalized.Date)
	require.NotNil(t, got.Normalized.Time)
	assert.Equal(t, "2026-10-30", *got.Normalized.Date)
	assert.Equal(t, "15:00", *got.Normalized.Time)
	assert.Equal(t, TargetTimezone, got.Normalized.TZ)
	require.NotNil(t, got.DepartmentNormalized)
	assert.Equal(t, "Dentistry", *got.DepartmentNormalized)
	assert.Equal(t, ConfidenceResolved, got.Confidence)
}

func TestNormalizer_RejoinsSplitPhrase(t *testing.T) {
	n, err := New(nil)
	require.NoError(t, err)

	got := n.Normalize(extraction.Entities{
		DatePhrase: ptr("10am tomorrow"),
		TimePhrase: ptr("10am"),
	}, monday(t))

	require.NotNil(t, got.Normalized.Date)
	assert.Equal(t, "2026-10-20", *got.Normalized.Date)
	assert.Equal(t, "10:00", *got.Normalized.Time)
	assert.Nil(t, got.DepartmentNormalized)
}

func TestNormalizer_BareHourAfterSeparator(t *testing.T) {
	n, err := New(nil)
	require.NoError(t, err)

	tests := []struct {
		date, clock string
		wantDate    string
		wantTime    string
	}{
		{"tomorrow", "3", "2026-10-20", "03:00"},
		{"7 next monday", "7", "2026-10-26", "07:00"},
		{"tomorrow", "10.30", "2026-10-20", "10:30"},
		{"10.30am tomorrow", "10.30am", "2026-10-20", "10:30"},
	}
	for _, tt := range tests {
		t.Run(tt.date+" "+tt.clock, func(t *testing.T) {
			got := n.Normalize(extraction.Entities{DatePhrase: ptr(tt.date), TimePhrase: ptr(tt.clock)}, monday(t))
			require.NotNil(t, got.Normalized.Date)
			require.NotNil(t, got.Normalized.Time)
			assert.Equal(t, tt.wantDate, *got.Normalized.Date)
			assert.Equal(t, tt.wantTime, *got.Normalized.Time)
		})
	}
}

func TestNormalizer_Unresolved(t *testing.T) {
	n, err := New(nil)
	require.NoError(t, err)

	tests := []struct {
		name string
		ents extraction.Entities
	}{
		{"no phrases", extraction.Entities{}},
		{"blank phrases", extraction.Entities{DatePhrase: ptr("  "), TimePhrase: ptr("")}},
		{"unrecognized phrase", extraction.Entities{DatePhrase: ptr("sometime soon")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.Normalize(tt.ents, monday(t))
			assert.Nil(t, got.Normalized.Date)
			assert.Nil(t, got.Normalized.Time)
			assert.Equal(t, TargetTimezone, got.Normalized.TZ)
			assert.Equal(t, ConfidenceUnresolved, got.Confidence)
		})
	}
}

func TestNormalizer_Department(t *testing.T) {
	n, err := New(nil)
	require.NoError(t, err)

	got := n.Normalize(extraction.Entities{DepartmentRaw: ptr("SKIN")}, monday(t))
	require.NotNil(t, got.DepartmentNormalized)
	assert.Equal(t, "Dermatology", *got.DepartmentNormalized)
	assert.Equal(t, "Dermatology", *got.Normalized.Department)

	got = n.Normalize(extraction.Entities{DepartmentRaw: ptr("podiatry")}, monday(t))
	assert.Nil(t, got.DepartmentNormalized)
	assert.Nil(t, got.Normalized.Department)
}

func TestNormalizer_AnchorModes(t *testing.T) {
	now := time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)
	ents := extraction.Entities{DatePhrase: ptr("tomorrow"), TimePhrase: ptr("3pm")}

	ref, err := New(nil, WithAnchorMode(AnchorReference))
	require.NoError(t, err)
	got := ref.Normalize(ents, now)
	assert.Equal(t, "2026-10-20", *got.Normalized.Date)
	assert.Equal(t, "20:30", *got.Normalized.Time)

	target, err := New(nil, WithAnchorMode(AnchorTarget))
	require.NoError(t, err)
	got = target.Normalize(ents, now)
	assert.Equal(t, "2026-10-20", *got.Normalized.Date)
	assert.Equal(t, "15:00", *got.Normalized.Time)
}

func TestParseAnchorMode(t *testing.T) {
	mode, err := ParseAnchorMode("")
	require.NoError(t, err)
	assert.Equal(t, AnchorReference, mode)

	mode, err = ParseAnchorMode(" Target ")
	require.NoError(t, err)
	assert.Equal(t, AnchorTarget, mode)

	_, err = ParseAnchorMode("server")
	assert.Error(t, err)
}
