// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/naka-gawa/github-traffic/internal/domain"
	"github.com/naka-gawa/github-traffic/internal/gateway"
)

// ErrNoTrafficData is returned when a sync has nothing to persist.
// An empty fetch is always treated as a failure, never as "nothing to do".
var ErrNoTrafficData = errors.New("no traffic data retrieved")

// LogStore is the durable store the Syncer appends to.
type LogStore interface {
	ExistingDates() (map[string]struct{}, error)
	Append(records []*domain.DailyRecord) error
}

// SyncResult describes the outcome of a successful sync.
type SyncResult struct {
	Fetched  int `json:"fetched"`
	Appended int `json:"appended"`
	Skipped  int `json:"skipped"`
}

// Syncer is the use case for syncing repository traffic into the log.
// It orchestrates one fetch-merge-append cycle.
type Syncer struct {
	fetcher gateway.TrafficFetcher
	store   LogStore
	logger  *log.Logger
}

// NewSyncer creates a new Syncer instance.
func NewSyncer(fetcher gateway.TrafficFetcher, store LogStore, logger *log.Logger) *Syncer {
	return &Syncer{
		fetcher: fetcher,
		store:   store,
		logger:  logger,
	}
}

// Fetch retrieves views then clones for owner/repo and merges them by date.
// Either request failing fails the whole fetch; no partial result is returned.
func (s *Syncer) Fetch(ctx context.Context, owner, repo string) (domain.RecordSet, error) {
	s.logger.Println("Usecase: Fetching repository traffic...")

	views, err := s.fetcher.FetchViews(ctx, owner, repo)
	if err != nil {
		return nil, err
	}
	clones, err := s.fetcher.FetchClones(ctx, owner, repo)
	if err != nil {
		return nil, err
	}
	s.logger.Printf("Usecase: Got %d days of views, %d days of clones.", len(views), len(clones))

	records := make(domain.RecordSet)
	for _, p := range views {
		records.AddViews(p)
	}
	for _, p := range clones {
		records.AddClones(p)
	}
	return records, nil
}

// Persist appends the records whose date is not yet in the log, in ascending
// date order. Dates already stored are left untouched.
func (s *Syncer) Persist(records domain.RecordSet) (*SyncResult, error) {
	if len(records) == 0 {
		return nil, ErrNoTrafficData
	}
	existing, err := s.store.ExistingDates()
	if err != nil {
		return nil, fmt.Errorf("failed to load existing dates: %w", err)
	}

	result := &SyncResult{Fetched: len(records)}
	var fresh []*domain.DailyRecord
	for _, date := range records.SortedDates() {
		if _, ok := existing[date]; ok {
			result.Skipped++
			continue
		}
		fresh = append(fresh, records[date])
	}
	if len(fresh) > 0 {
		if err := s.store.Append(fresh); err != nil {
			return nil, fmt.Errorf("failed to append to traffic log: %w", err)
		}
	}
	result.Appended = len(fresh)
	s.logger.Printf("Usecase: Appended %d new records, skipped %d known dates.", result.Appended, result.Skipped)
	return result, nil
}

// Run performs one complete sync. The log is only written when the fetch succeeded.
func (s *Syncer) Run(ctx context.Context, owner, repo string) (*SyncResult, error) {
	records, err := s.Fetch(ctx, owner, repo)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoTrafficData
	}
	return s.Persist(records)
}
