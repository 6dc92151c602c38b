package donors

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"pgregory.net/rapid"
)

func TestParseRangeRejectsUnknownValues(testContext *testing.T) {
	for _, raw := range []string{"", "weeks", "DAYS", "day"} {
		_, err := ParseRange(raw)
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			testContext.Fatalf("expected validation error for %q, got %v", raw, err)
		}
		if validationErr.Message != msgInvalidRange {
			testContext.Fatalf("unexpected message %q", validationErr.Message)
		}
	}
}

func TestBuildBucketQueryWindows(testContext *testing.T) {
	testCases := []struct {
		name          string
		query         AggregateQuery
		expectedStart time.Time
		expectedEnd   time.Time
		expectWindow  bool
	}{
		{
			name:          "days within month",
			query:         AggregateQuery{Range: "days", Year: "2024", Month: "2"},
			expectWindow:  true,
			expectedStart: time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
			expectedEnd:   time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:          "december rolls over",
			query:         AggregateQuery{Range: "days", Year: "2023", Month: "12"},
			expectWindow:  true,
			expectedStart: time.Date(2023, time.December, 1, 0, 0, 0, 0, time.UTC),
			expectedEnd:   time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:          "months within year",
			query:         AggregateQuery{Range: "months", Year: "2024"},
			expectWindow:  true,
			expectedStart: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
			expectedEnd:   time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		},
		{name: "days without month", query: AggregateQuery{Range: "days", Year: "2024"}},
		{name: "months without year", query: AggregateQuery{Range: "months", Month: "3"}},
		{name: "years ignores filters", query: AggregateQuery{Range: "years", Year: "2024", Month: "3"}},
	}

	for _, testCase := range testCases {
		testContext.Run(testCase.name, func(t *testing.T) {
			query, err := buildBucketQuery(testCase.query)
			if err != nil {
				t.Fatalf("build bucket query failed: %v", err)
			}
			if !testCase.expectWindow {
				if query.Window != nil {
					t.Fatalf("expected no window, got %+v", query.Window)
				}
				return
			}
			if query.Window == nil {
				t.Fatalf("expected window")
			}
			if !query.Window.Start.Equal(testCase.expectedStart) || !query.Window.End.Equal(testCase.expectedEnd) {
				t.Fatalf("unexpected window %v - %v", query.Window.Start, query.Window.End)
			}
		})
	}
}

func TestBuildBucketQueryRejectsMalformedPeriods(testContext *testing.T) {
	queries := []AggregateQuery{
		{Range: "days", Year: "2024", Month: "13"},
		{Range: "days", Year: "2024", Month: "zero"},
		{Range: "months", Year: "twenty"},
		{Range: "months", Year: "0"},
	}
	for _, query := range queries {
		_, err := buildBucketQuery(query)
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) || validationErr.Message != msgInvalidPeriod {
			testContext.Fatalf("expected invalid period for %+v, got %v", query, err)
		}
	}
}

func TestRangeLabel(testContext *testing.T) {
	moment := time.Date(2024, time.March, 9, 23, 30, 0, 0, time.FixedZone("ahead", 2*60*60))
	if got := RangeDays.Label(moment); got != "2024-03-09" {
		testContext.Fatalf("unexpected day label %q", got)
	}
	if got := RangeMonths.Label(moment); got != "2024-03" {
		testContext.Fatalf("unexpected month label %q", got)
	}
	if got := RangeYears.Label(moment); got != "2024" {
		testContext.Fatalf("unexpected year label %q", got)
	}
}

func TestMonthWindowContainsOnlyItsMonth(testContext *testing.T) {
	rapid.Check(testContext, func(t *rapid.T) {
		year := rapid.IntRange(1971, 2100).Draw(t, "year")
		month := rapid.IntRange(1, 12).Draw(t, "month")
		offsetHours := rapid.IntRange(-24*40, 24*40).Draw(t, "offsetHours")

		query, err := buildBucketQuery(AggregateQuery{
			Range: "days",
			Year:  strconv.Itoa(year),
			Month: strconv.Itoa(month),
		})
		if err != nil {
			t.Fatalf("build bucket query failed: %v", err)
		}
		start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		moment := start.Add(time.Duration(offsetHours) * time.Hour)
		inMonth := moment.Year() == year && int(moment.Month()) == month
		if query.Window.Contains(moment) != inMonth {
			t.Fatalf("window containment mismatch for %v", moment)
		}
	})
}
