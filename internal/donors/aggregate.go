package donors

import (
	"strconv"
	"strings"
	"time"
)

// Range selects the time bucket used to aggregate donations.
type Range string

const (
	RangeDays   Range = "days"
	RangeMonths Range = "months"
	RangeYears  Range = "years"
)

// AggregateQuery is the raw aggregation request. Month and Year are optional.
type AggregateQuery struct {
	Range string
	Month string
	Year  string
}

// TimeWindow is a half-open [Start, End) interval in UTC.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// BucketQuery is the validated form of an AggregateQuery handed to a Store.
type BucketQuery struct {
	Range  Range
	Window *TimeWindow
}

// Bucket is the summed amount of all contributions sharing a label.
type Bucket struct {
	Label string
	Total float64
}

// ParseRange accepts days, months or years.
func ParseRange(raw string) (Range, error) {
	switch Range(strings.TrimSpace(raw)) {
	case RangeDays:
		return RangeDays, nil
	case RangeMonths:
		return RangeMonths, nil
	case RangeYears:
		return RangeYears, nil
	default:
		return "", newValidationError("invalid_range", msgInvalidRange)
	}
}

// Label formats t (in UTC) as the bucket label for the range.
func (r Range) Label(t time.Time) string {
	utc := t.UTC()
	switch r {
	case RangeDays:
		return utc.Format("2006-01-02")
	case RangeMonths:
		return utc.Format("2006-01")
	default:
		return utc.Format("2006")
	}
}

// dateFormat is the strftime-style pattern producing Label, understood by both SQLite
// strftime and MongoDB $dateToString.
func (r Range) dateFormat() string {
	switch r {
	case RangeDays:
		return "%Y-%m-%d"
	case RangeMonths:
		return "%Y-%m"
	default:
		return "%Y"
	}
}

// buildBucketQuery applies the filter rules: a calendar month for days with year and month,
// a calendar year for months with year, and no filter otherwise.
func buildBucketQuery(query AggregateQuery) (BucketQuery, error) {
	bucketRange, err := ParseRange(query.Range)
	if err != nil {
		return BucketQuery{}, err
	}
	yearText := strings.TrimSpace(query.Year)
	monthText := strings.TrimSpace(query.Month)

	switch {
	case bucketRange == RangeDays && yearText != "" && monthText != "":
		year, err := parseYear(yearText)
		if err != nil {
			return BucketQuery{}, err
		}
		month, err := parseMonth(monthText)
		if err != nil {
			return BucketQuery{}, err
		}
		start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		return BucketQuery{Range: bucketRange, Window: &TimeWindow{Start: start, End: start.AddDate(0, 1, 0)}}, nil
	case bucketRange == RangeMonths && yearText != "":
		year, err := parseYear(yearText)
		if err != nil {
			return BucketQuery{}, err
		}
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return BucketQuery{Range: bucketRange, Window: &TimeWindow{Start: start, End: start.AddDate(1, 0, 0)}}, nil
	default:
		return BucketQuery{Range: bucketRange}, nil
	}
}

func parseYear(raw string) (int, error) {
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1 || year > 9999 {
		return 0, newValidationError("invalid_year", msgInvalidPeriod)
	}
	return year, nil
}

func parseMonth(raw string) (int, error) {
	month, err := strconv.Atoi(raw)
	if err != nil || month < 1 || month > 12 {
		return 0, newValidationError("invalid_month", msgInvalidPeriod)
	}
	return month, nil
}
