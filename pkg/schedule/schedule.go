package schedule

import (
	"fmt"
	"time"

	"github.com/nedpals/opentaxjs/pkg/rule"
)

// Frequency values accepted in filing-schedule metadata.
const (
	FrequencyQuarterly = "quarterly"
	FrequencyAnnual    = "annual"
)

// Period is one filing period covered by a date range.
type Period struct {
	// Label names the period, e.g. "2026-Q1" or "2026".
	Label string

	// Start is the first day of the period.
	Start time.Time

	// End is the last day of the period.
	End time.Time

	// DueDate is when the filing for this period is due.
	DueDate time.Time

	// Forms lists the government form identifiers for the filing.
	Forms []string

	// Coverage is the fraction of the period the date range covers,
	// in (0, 1].
	Coverage float64
}

// Amount is a liability share assigned to one period.
type Amount struct {
	Period Period
	Value  float64
}

// Periods returns the filing periods a date range touches under a
// schedule, oldest first. The range is inclusive on both ends.
func Periods(fs *rule.FilingSchedule, from, to time.Time) ([]Period, error) {
	if fs == nil {
		return nil, fmt.Errorf("filing schedule is nil")
	}
	if to.Before(from) {
		return nil, fmt.Errorf("range end %s is before start %s", to.Format(time.DateOnly), from.Format(time.DateOnly))
	}

	from = truncateToDay(from)
	to = truncateToDay(to)

	switch fs.Frequency {
	case FrequencyQuarterly:
		return quarterlyPeriods(fs, from, to), nil
	case FrequencyAnnual:
		return annualPeriods(fs, from, to), nil
	default:
		return nil, fmt.Errorf("unknown filing frequency %q", fs.Frequency)
	}
}

// Prorate splits a liability across periods in proportion to each
// period's coverage.
func Prorate(liability float64, periods []Period) []Amount {
	total := 0.0
	for _, p := range periods {
		total += p.Coverage
	}

	amounts := make([]Amount, len(periods))
	for i, p := range periods {
		share := 0.0
		if total > 0 {
			share = liability * (p.Coverage / total)
		}
		amounts[i] = Amount{Period: p, Value: share}
	}
	return amounts
}

func quarterlyPeriods(fs *rule.FilingSchedule, from, to time.Time) []Period {
	var periods []Period

	year, quarter := from.Year(), quarterOf(from)
	for {
		start := quarterStart(year, quarter)
		end := quarterStart(year, quarter).AddDate(0, 3, -1)
		if start.After(to) {
			break
		}

		periods = append(periods, buildPeriod(
			fmt.Sprintf("%d-Q%d", year, quarter),
			start, end, from, to, fs,
		))

		quarter++
		if quarter > 4 {
			quarter = 1
			year++
		}
	}
	return periods
}

func annualPeriods(fs *rule.FilingSchedule, from, to time.Time) []Period {
	var periods []Period

	for year := from.Year(); year <= to.Year(); year++ {
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

		periods = append(periods, buildPeriod(
			fmt.Sprintf("%d", year),
			start, end, from, to, fs,
		))
	}
	return periods
}

// buildPeriod clips a period against the requested range and computes
// its coverage and due date.
func buildPeriod(label string, start, end, from, to time.Time, fs *rule.FilingSchedule) Period {
	coveredStart := maxTime(start, from)
	coveredEnd := minTime(end, to)

	periodDays := daysInclusive(start, end)
	coveredDays := daysInclusive(coveredStart, coveredEnd)

	return Period{
		Label:    label,
		Start:    start,
		End:      end,
		DueDate:  end.AddDate(0, 0, fs.DeadlineDays),
		Forms:    fs.Forms,
		Coverage: float64(coveredDays) / float64(periodDays),
	}
}

func quarterOf(t time.Time) int {
	return (int(t.Month())-1)/3 + 1
}

func quarterStart(year, quarter int) time.Time {
	return time.Date(year, time.Month((quarter-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysInclusive(from, to time.Time) int {
	return int(to.Sub(from).Hours()/24) + 1
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
