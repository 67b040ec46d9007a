package usecase

import (
	"fmt"
	"log"

	"github.com/montanaflynn/stats"
	"github.com/naka-gawa/github-traffic/internal/domain"
)

// LogReader is the read side of the traffic log.
type LogReader interface {
	ReadAll() ([]*domain.DailyRecord, error)
}

// MetricSummary holds the statistics of one log column.
// Days counts the rows where the metric was reported; blank cells are excluded.
type MetricSummary struct {
	Days   int     `json:"days"`
	Total  float64 `json:"total"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
}

// Summary describes the whole traffic log.
type Summary struct {
	Rows           int            `json:"rows"`
	FirstDate      string         `json:"first_date,omitempty"`
	LastDate       string         `json:"last_date,omitempty"`
	Views          *MetricSummary `json:"views,omitempty"`
	UniqueVisitors *MetricSummary `json:"unique_visitors,omitempty"`
	Clones         *MetricSummary `json:"clones,omitempty"`
	UniqueCloners  *MetricSummary `json:"unique_cloners,omitempty"`
}

// Summarizer computes statistics over the traffic log.
type Summarizer struct {
	reader LogReader
	logger *log.Logger
}

// NewSummarizer creates a new Summarizer instance.
func NewSummarizer(reader LogReader, logger *log.Logger) *Summarizer {
	return &Summarizer{reader: reader, logger: logger}
}

// Summarize reads every row of the log and summarises each metric column.
func (s *Summarizer) Summarize() (*Summary, error) {
	s.logger.Println("Usecase: Reading traffic log...")
	records, err := s.reader.ReadAll()
	if err != nil {
		return nil, err
	}

	summary := &Summary{Rows: len(records)}
	var views, visitors, clones, cloners stats.Float64Data
	for _, rec := range records {
		if summary.FirstDate == "" || rec.Date < summary.FirstDate {
			summary.FirstDate = rec.Date
		}
		if rec.Date > summary.LastDate {
			summary.LastDate = rec.Date
		}
		views = appendOptional(views, rec.Views)
		visitors = appendOptional(visitors, rec.UniqueVisitors)
		clones = appendOptional(clones, rec.Clones)
		cloners = appendOptional(cloners, rec.UniqueCloners)
	}

	columns := []struct {
		name string
		data stats.Float64Data
		dst  **MetricSummary
	}{
		{"views", views, &summary.Views},
		{"unique_visitors", visitors, &summary.UniqueVisitors},
		{"clones", clones, &summary.Clones},
		{"unique_cloners", cloners, &summary.UniqueCloners},
	}
	for _, col := range columns {
		if len(col.data) == 0 {
			continue
		}
		m, err := summarizeMetric(col.data)
		if err != nil {
			return nil, fmt.Errorf("failed to summarize %s: %w", col.name, err)
		}
		*col.dst = m
	}
	s.logger.Printf("Usecase: Summarized %d rows.", summary.Rows)
	return summary, nil
}

func appendOptional(data stats.Float64Data, v *int) stats.Float64Data {
	if v == nil {
		return data
	}
	return append(data, float64(*v))
}

func summarizeMetric(data stats.Float64Data) (*MetricSummary, error) {
	total, err := stats.Sum(data)
	if err != nil {
		return nil, err
	}
	mean, err := stats.Mean(data)
	if err != nil {
		return nil, err
	}
	median, err := stats.Median(data)
	if err != nil {
		return nil, err
	}
	peak, err := stats.Max(data)
	if err != nil {
		return nil, err
	}
	return &MetricSummary{Days: len(data), Total: total, Mean: mean, Median: median, Max: peak}, nil
}
