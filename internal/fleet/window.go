package fleet

import (
	"strings"
	"time"

	"github.com/Shahid-khan015/FarmTrack/internal/models"
)

const dateLayout = "2006-01-02"

// Accepted time-of-day layouts. The fractional layout also accepts whole seconds.
var clockLayouts = []string{"15:04:05.999999", "15:04"}

// WindowQuery holds the raw report filter parameters.
type WindowQuery struct {
	FilterType string
	Date       string
	StartDate  string
	EndDate    string
	StartTime  string
	EndTime    string
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Microsecond)
}

func parseDate(name, value string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(value), time.Local)
	if err != nil {
		return time.Time{}, invalid("invalid %s %q: expected YYYY-MM-DD", name, value)
	}
	return d, nil
}

func parseDateTime(dateName, date, timeName, clock string) (time.Time, error) {
	d, err := parseDate(dateName, date)
	if err != nil {
		return time.Time{}, err
	}
	for _, layout := range clockLayouts {
		t, err := time.ParseInLocation(dateLayout+"T"+layout, d.Format(dateLayout)+"T"+strings.TrimSpace(clock), time.Local)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, invalid("invalid %s %q: expected HH:MM or HH:MM:SS", timeName, clock)
}

// ResolveWindow turns report filter parameters into an inclusive window.
// A filter whose parameters are missing falls back to today.
func ResolveWindow(q WindowQuery, now time.Time) (models.ReportWindow, error) {
	switch {
	case q.FilterType == models.FilterDay && q.Date != "":
		d, err := parseDate("date", q.Date)
		if err != nil {
			return models.ReportWindow{}, err
		}
		return models.ReportWindow{FilterType: q.FilterType, Start: d, End: endOfDay(d)}, nil

	case q.FilterType == models.FilterDateRange && q.StartDate != "" && q.EndDate != "":
		start, err := parseDate("startDate", q.StartDate)
		if err != nil {
			return models.ReportWindow{}, err
		}
		end, err := parseDate("endDate", q.EndDate)
		if err != nil {
			return models.ReportWindow{}, err
		}
		if end.Before(start) {
			return models.ReportWindow{}, invalid("endDate is before startDate")
		}
		return models.ReportWindow{FilterType: q.FilterType, Start: start, End: endOfDay(end)}, nil

	case q.FilterType == models.FilterDateTimeRange &&
		q.StartDate != "" && q.EndDate != "" && q.StartTime != "" && q.EndTime != "":
		start, err := parseDateTime("startDate", q.StartDate, "startTime", q.StartTime)
		if err != nil {
			return models.ReportWindow{}, err
		}
		end, err := parseDateTime("endDate", q.EndDate, "endTime", q.EndTime)
		if err != nil {
			return models.ReportWindow{}, err
		}
		if end.Before(start) {
			return models.ReportWindow{}, invalid("end is before start")
		}
		return models.ReportWindow{FilterType: q.FilterType, Start: start, End: end}, nil
	}

	return models.ReportWindow{FilterType: models.FilterToday, Start: startOfDay(now), End: endOfDay(now)}, nil
}
