// Package gateway provides a gateway to the GitHub traffic API,
// abstracting away the underlying REST client.
package gateway

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/naka-gawa/github-traffic/internal/domain"
)

// TrafficFetcher defines the behavior of a gateway for fetching repository traffic from GitHub.
type TrafficFetcher interface {
	FetchViews(ctx context.Context, owner, repo string) ([]domain.TrafficPoint, error)
	FetchClones(ctx context.Context, owner, repo string) ([]domain.TrafficPoint, error)
}

// APIError is returned when a traffic endpoint answers with a non-2xx status
// or the request never completed. StatusCode is 0 for transport failures.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("failed to fetch traffic %s: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("failed to fetch traffic %s: status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Options tunes the HTTP client built by NewGitHubGateway.
type Options struct {
	// MaxRateLimitSleep caps a single secondary rate limit sleep.
	// Zero means never sleep: a rate limited request fails immediately.
	MaxRateLimitSleep time.Duration
}

// GitHubGateway is the concrete implementation of the TrafficFetcher interface.
type GitHubGateway struct {
	restClient *github.Client
	logger     *log.Logger
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
func NewGitHubGateway(token string, opts Options, logger *log.Logger) (*GitHubGateway, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil,
		github_ratelimit.WithSingleSleepLimit(opts.MaxRateLimitSleep, func(_ *github_ratelimit.CallbackContext) {
			logger.Printf("Secondary rate limit exceeded the allowed sleep of %s", opts.MaxRateLimitSleep)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}
	return &GitHubGateway{
		restClient: github.NewClient(httpClient),
		logger:     logger,
	}, nil
}

// dailyBreakdown asks the traffic endpoints for per-day buckets.
var dailyBreakdown = &github.TrafficBreakdownOptions{Per: "day"}

// FetchViews returns the per-day page views of owner/repo.
func (g *GitHubGateway) FetchViews(ctx context.Context, owner, repo string) ([]domain.TrafficPoint, error) {
	g.logger.Printf("[1/2] Fetching traffic views for %s/%s...", owner, repo)
	views, resp, err := g.restClient.Repositories.ListTrafficViews(ctx, owner, repo, dailyBreakdown)
	if err != nil {
		return nil, newAPIError("views", resp, err)
	}
	points, err := toPoints(views.Views)
	if err != nil {
		return nil, fmt.Errorf("unexpected traffic views response: %w", err)
	}
	g.logger.Printf("Fetched %d days of view data.", len(points))
	return points, nil
}

// FetchClones returns the per-day git clones of owner/repo.
func (g *GitHubGateway) FetchClones(ctx context.Context, owner, repo string) ([]domain.TrafficPoint, error) {
	g.logger.Printf("[2/2] Fetching traffic clones for %s/%s...", owner, repo)
	clones, resp, err := g.restClient.Repositories.ListTrafficClones(ctx, owner, repo, dailyBreakdown)
	if err != nil {
		return nil, newAPIError("clones", resp, err)
	}
	points, err := toPoints(clones.Clones)
	if err != nil {
		return nil, fmt.Errorf("unexpected traffic clones response: %w", err)
	}
	g.logger.Printf("Fetched %d days of clone data.", len(points))
	return points, nil
}

func toPoints(data []*github.TrafficData) ([]domain.TrafficPoint, error) {
	points := make([]domain.TrafficPoint, 0, len(data))
	for i, d := range data {
		if d == nil || d.Timestamp == nil {
			return nil, fmt.Errorf("entry %d has no timestamp", i)
		}
		points = append(points, domain.TrafficPoint{
			Date:    domain.DateOf(d.GetTimestamp().Time),
			Count:   d.GetCount(),
			Uniques: d.GetUniques(),
		})
	}
	return points, nil
}

// newAPIError records the status and raw body of a failed call. CheckResponse
// leaves the bytes it read on resp.Body, so non-JSON bodies survive.
func newAPIError(endpoint string, resp *github.Response, err error) *APIError {
	apiErr := &APIError{Endpoint: endpoint, Err: err, Body: err.Error()}
	if resp == nil || resp.Response == nil {
		return apiErr
	}
	apiErr.StatusCode = resp.StatusCode
	if resp.Body != nil {
		if raw, readErr := io.ReadAll(resp.Body); readErr == nil {
			if body := strings.TrimSpace(string(raw)); body != "" {
				apiErr.Body = body
				return apiErr
			}
		}
	}
	if errResp, ok := err.(*github.ErrorResponse); ok && errResp.Message != "" {
		apiErr.Body = errResp.Message
	}
	return apiErr
}
