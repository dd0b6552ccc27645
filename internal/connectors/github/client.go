package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	maxPerPage = 100
)

// Client wraps the go-github client with rate limiting and pagination
// bounded by a result limit.
type Client struct {
	gh      *gh.Client
	limiter *RateLimiter
}

// NewClient creates a client. An empty token makes anonymous requests.
func NewClient(ctx context.Context, token, baseURL string, rps float64) (*Client, error) {
	var hc *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		hc = oauth2.NewClient(ctx, ts)
	} else {
		hc = &http.Client{}
	}
	hc.Timeout = DefaultTimeout

	c := gh.NewClient(hc)
	if baseURL != "" {
		u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("github: parse base url: %w", err)
		}
		c.BaseURL = u
	}
	return &Client{gh: c, limiter: NewRateLimiter(rps)}, nil
}

// RateLimiter returns the limiter for inspection.
func (c *Client) RateLimiter() *RateLimiter {
	return c.limiter
}

// ListIssues returns up to limit issues, most recently updated first.
// The issues endpoint also returns pull requests.
func (c *Client) ListIssues(ctx context.Context, owner, repo string, limit int) ([]*gh.Issue, error) {
	opts := &gh.IssueListByRepoOptions{
		State:       "all",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: gh.ListOptions{PerPage: perPage(limit)},
	}
	var out []*gh.Issue
	for len(out) < limit {
		if err := c.limiter.Wait(ctx); err != nil {
			return out, fmt.Errorf("rate limit wait: %w", err)
		}
		issues, resp, err := c.gh.Issues.ListByRepo(ctx, owner, repo, opts)
		c.update(resp)
		if err != nil {
			return out, c.wrapError(err, "list issues")
		}
		out = append(out, issues...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return truncate(out, limit), nil
}

// ListPullRequests returns up to limit pull requests, most recently updated first.
func (c *Client) ListPullRequests(ctx context.Context, owner, repo string, limit int) ([]*gh.PullRequest, error) {
	opts := &gh.PullRequestListOptions{
		State:       "all",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: gh.ListOptions{PerPage: perPage(limit)},
	}
	var out []*gh.PullRequest
	for len(out) < limit {
		if err := c.limiter.Wait(ctx); err != nil {
			return out, fmt.Errorf("rate limit wait: %w", err)
		}
		prs, resp, err := c.gh.PullRequests.List(ctx, owner, repo, opts)
		c.update(resp)
		if err != nil {
			return out, c.wrapError(err, "list pull requests")
		}
		out = append(out, prs...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return truncate(out, limit), nil
}

// ListComments returns up to limit comments on an issue or pull request.
func (c *Client) ListComments(ctx context.Context, owner, repo string, number, limit int) ([]*gh.IssueComment, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	opts := &gh.IssueListCommentsOptions{ListOptions: gh.ListOptions{PerPage: perPage(limit)}}
	comments, resp, err := c.gh.Issues.ListComments(ctx, owner, repo, number, opts)
	c.update(resp)
	if err != nil {
		return nil, c.wrapError(err, "list comments")
	}
	return truncate(comments, limit), nil
}

// SearchIssues runs an issue search and returns up to limit results, best match first.
func (c *Client) SearchIssues(ctx context.Context, query string, limit int) ([]*gh.Issue, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	opts := &gh.SearchOptions{ListOptions: gh.ListOptions{PerPage: perPage(limit)}}
	result, resp, err := c.gh.Search.Issues(ctx, query, opts)
	c.update(resp)
	if err != nil {
		return nil, c.wrapError(err, "search issues")
	}
	return truncate(result.Issues, limit), nil
}

func (c *Client) update(resp *gh.Response) {
	if resp != nil {
		c.limiter.Update(resp.Response)
	}
}

// wrapError converts go-github errors to our error types.
func (c *Client) wrapError(err error, operation string) error {
	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return &RateLimitError{
			ResetAt:   rateErr.Rate.Reset.Time,
			Remaining: rateErr.Rate.Remaining,
			Limit:     rateErr.Rate.Limit,
		}
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		apiErr := &APIError{StatusCode: ghErr.Response.StatusCode, Message: ghErr.Message}
		if ghErr.Response.Request != nil {
			apiErr.URL = ghErr.Response.Request.URL.String()
		}
		return fmt.Errorf("%s: %w", operation, apiErr)
	}

	return fmt.Errorf("%s: %w", operation, err)
}

func perPage(limit int) int {
	if limit <= 0 || limit > maxPerPage {
		return maxPerPage
	}
	return limit
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
