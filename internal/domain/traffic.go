// Package domain contains the core data structures and domain logic for the application.
package domain

import (
	"sort"
	"time"
)

// DateLayout is the calendar date format used as the natural key of the traffic log.
const DateLayout = "2006-01-02"

// TrafficPoint is a single per-day entry reported by one traffic endpoint.
type TrafficPoint struct {
	Date    string
	Count   int
	Uniques int
}

// DailyRecord holds the merged view and clone statistics for one calendar date.
// A nil field means the source API did not report it for that date, which is
// different from a reported zero.
type DailyRecord struct {
	Date           string
	Views          *int
	UniqueVisitors *int
	Clones         *int
	UniqueCloners  *int
}

// RecordSet maps a date to its merged record.
type RecordSet map[string]*DailyRecord

// DateOf returns the UTC calendar date of t in DateLayout.
func DateOf(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

func (s RecordSet) ensure(date string) *DailyRecord {
	rec, ok := s[date]
	if !ok {
		rec = &DailyRecord{Date: date}
		s[date] = rec
	}
	return rec
}

// AddViews sets the views pair of the point's date.
func (s RecordSet) AddViews(p TrafficPoint) {
	rec := s.ensure(p.Date)
	rec.Views = intPtr(p.Count)
	rec.UniqueVisitors = intPtr(p.Uniques)
}

// AddClones sets the clones pair of the point's date.
func (s RecordSet) AddClones(p TrafficPoint) {
	rec := s.ensure(p.Date)
	rec.Clones = intPtr(p.Count)
	rec.UniqueCloners = intPtr(p.Uniques)
}

// SortedDates returns the dates of the set in ascending order.
// Zero-padded ISO dates sort correctly as strings.
func (s RecordSet) SortedDates() []string {
	dates := make([]string, 0, len(s))
	for date := range s {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}

func intPtr(v int) *int {
	return &v
}
