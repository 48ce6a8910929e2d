package extraction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/appointment-intake/internal/departments"
	"github.com/wolfman30/appointment-intake/internal/temporal"
)

func monday(t *testing.T) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	return time.Date(2026, time.October, 19, 9, 0, 0, 0, loc)
}

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}

func TestExtractor_Extract(t *testing.T) {
	e := New(nil, nil)
	now := monday(t)

	tests := []struct {
		name       string
		text       string
		department string
		date       string
		time       string
		confidence float64
	}{
		{"separator at", "Book dentist next Friday at 3pm", "dentist", "next Friday", "3pm", ConfidenceMatched},
		{"clock recovered from certain hour", "dermatologist @ 10am tomorrow", "dermatologist", "10am tomorrow", "10am", ConfidenceMatched},
		{"nothing recognized", "see someone sometime", "<nil>", "<nil>", "<nil>", ConfidenceWeak},
		{"department only", "I need a dental cleaning", "dental", "<nil>", "<nil>", ConfidenceWeak},
		{"date only", "Friday works", "<nil>", "Friday", "<nil>", ConfidenceWeak},
		{"implied hour keeps time empty", "skin check tomorrow", "skin", "tomorrow", "<nil>", ConfidenceMatched},
		{"minutes preferred", "cardiology on Oct 30 3:30pm", "cardiology", "Oct 30 3:30pm", "3:30pm", ConfidenceMatched},
		{"first keyword wins", "Dentistry appointment", "dentist", "<nil>", "<nil>", ConfidenceWeak},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Extract(tt.text, now)
			assert.Equal(t, tt.department, deref(got.Entities.DepartmentRaw))
			assert.Equal(t, tt.date, deref(got.Entities.DatePhrase))
			assert.Equal(t, tt.time, deref(got.Entities.TimePhrase))
			assert.Equal(t, tt.confidence, got.Confidence)
		})
	}
}

func TestExtractor_Deterministic(t *testing.T) {
	e := New(departments.Default(), temporal.NewParser(temporal.WithForwardDate()))
	now := monday(t)
	first := e.Extract("gp tomorrow at 9:15am", now)
	second := e.Extract("gp tomorrow at 9:15am", now)
	assert.Equal(t, first, second)
}

type stubRecognizer struct {
	result temporal.Result
	ok     bool
	calls  int
}

func (s *stubRecognizer) ParseFirst(string, time.Time) (temporal.Result, bool) {
	s.calls++
	return s.result, s.ok
}

func TestExtractor_UsesInjectedRecognizer(t *testing.T) {
	stub := &stubRecognizer{result: temporal.Result{Text: "someday @ noon"}, ok: true}
	e := New(nil, stub)

	got := e.Extract("cardiologist someday @ noon", monday(t))

	assert.Equal(t, 1, stub.calls)
	assert.Equal(t, "someday", deref(got.Entities.DatePhrase))
	assert.Equal(t, "noon", deref(got.Entities.TimePhrase))
	assert.Equal(t, ConfidenceMatched, got.Confidence)
}

func TestSplitPhrase(t *testing.T) {
	tests := []struct {
		matched     string
		hourCertain bool
		want        Split
	}{
		{"next Friday at 3pm", true, Split{DatePart: "next Friday", TimePart: "3pm"}},
		{"tomorrow @ 10am", true, Split{DatePart: "tomorrow", TimePart: "10am"}},
		{"10am tomorrow", true, Split{DatePart: "10am tomorrow", TimePart: "10am"}},
		{"10am tomorrow", false, Split{DatePart: "10am tomorrow"}},
		{"Friday evening", false, Split{DatePart: "Friday evening"}},
		{"2026-11-02 14:30", true, Split{DatePart: "2026-11-02 14:30", TimePart: "14:30"}},
		{"Oct 30 3:30pm", true, Split{DatePart: "Oct 30 3:30pm", TimePart: "3:30pm"}},
		{"10.30am tomorrow", true, Split{DatePart: "10.30am tomorrow", TimePart: "10.30am"}},
		{"tomorrow 9.45", true, Split{DatePart: "tomorrow 9.45", TimePart: "9.45"}},
		{"tomorrow at 3", true, Split{DatePart: "tomorrow", TimePart: "3"}},
		{"7 next monday", true, Split{DatePart: "7 next monday", TimePart: "7"}},
	}
	for _, tt := range tests {
		t.Run(tt.matched, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitPhrase(tt.matched, tt.hourCertain))
		})
	}
}
