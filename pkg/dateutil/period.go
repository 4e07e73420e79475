package dateutil

import (
	"fmt"
	"time"
)

const periodLayout = "2006-01"

// Period is a calendar month. Its key has the form YYYY-MM.
type Period struct {
	start time.Time
}

func PeriodOf(t time.Time) Period {
	return Period{start: BeginningOfMonth(t)}
}

// ParsePeriod parses a YYYY-MM key in the given location.
func ParsePeriod(key string, loc *time.Location) (Period, error) {
	if loc == nil {
		loc = time.UTC
	}

	t, err := time.ParseInLocation(periodLayout, key, loc)
	if err != nil {
		return Period{}, fmt.Errorf("invalid period key %q, expected YYYY-MM", key)
	}

	return Period{start: t}, nil
}

func (p Period) Key() string {
	return p.start.Format(periodLayout)
}

func (p Period) Start() time.Time {
	return p.start
}

// End returns the first instant of the following month.
func (p Period) End() time.Time {
	return NextMonth(p.start)
}

// DrawDate is the last day of the period, the day the draw is held.
func (p Period) DrawDate() time.Time {
	return p.End().AddDate(0, 0, -1)
}

func (p Period) Previous() Period {
	return Period{start: LastMonth(p.start)}
}

func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.start) && t.Before(p.End())
}
