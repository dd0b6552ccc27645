package github

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"

	"github.com/custodia-labs/quarry/internal/core/domain"
	"github.com/custodia-labs/quarry/internal/logger"
)

// SourceName is the worker name announced on readiness.
const SourceName = "github"

// maxComments caps the comments appended to one item.
const maxComments = 20

// Source serves one repository's issues and pull requests.
type Source struct {
	client *Client
	cfg    Config
}

// New creates a source. The client is built from cfg.
func New(ctx context.Context, cfg Config) (*Source, error) {
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("%w: owner and name are required", ErrInvalidRepo)
	}
	if len(cfg.ContentTypes) == 0 {
		cfg.ContentTypes = AllContentTypes()
	}
	client, err := NewClient(ctx, cfg.Token, cfg.BaseURL, 0)
	if err != nil {
		return nil, err
	}
	return &Source{client: client, cfg: cfg}, nil
}

// Name returns the worker name.
func (s *Source) Name() string {
	return SourceName
}

// Fetch returns the limit most recently updated issues and pull requests.
func (s *Source) Fetch(ctx context.Context, limit int) ([]domain.ToolItem, error) {
	type entry struct {
		item    domain.ToolItem
		number  int
		updated time.Time
	}
	var entries []entry

	if s.cfg.HasContentType(ContentIssues) {
		issues, err := s.client.ListIssues(ctx, s.cfg.Owner, s.cfg.Repo, limit)
		if err != nil {
			return nil, err
		}
		for _, is := range issues {
			// Pull requests come back from the issues endpoint too.
			if is.IsPullRequest() {
				continue
			}
			entries = append(entries, entry{item: issueItem(is), number: is.GetNumber(), updated: is.GetUpdatedAt().Time})
		}
	}
	if s.cfg.HasContentType(ContentPRs) {
		prs, err := s.client.ListPullRequests(ctx, s.cfg.Owner, s.cfg.Repo, limit)
		if err != nil {
			return nil, err
		}
		for _, pr := range prs {
			entries = append(entries, entry{item: pullItem(pr), number: pr.GetNumber(), updated: pr.GetUpdatedAt().Time})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].updated.After(entries[j].updated) })
	if len(entries) > limit {
		entries = entries[:limit]
	}

	items := make([]domain.ToolItem, len(entries))
	for i, e := range entries {
		items[i] = e.item
		if s.cfg.Comments {
			items[i].Body = s.withComments(ctx, e.item.Body, e.number)
		}
	}
	return items, nil
}

// withComments appends comments to body. Failures leave body unchanged.
func (s *Source) withComments(ctx context.Context, body string, number int) string {
	comments, err := s.client.ListComments(ctx, s.cfg.Owner, s.cfg.Repo, number, maxComments)
	if err != nil {
		logger.Debug("github: comments for #%d: %v", number, err)
		return body
	}
	var b strings.Builder
	b.WriteString(body)
	for _, c := range comments {
		text := strings.TrimSpace(c.GetBody())
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "\n\n%s: %s", c.GetUser().GetLogin(), text)
	}
	return b.String()
}

// Search runs a GitHub issue search scoped to the repository.
func (s *Source) Search(ctx context.Context, query string, limit int) ([]domain.ToolItem, error) {
	q := fmt.Sprintf("%s repo:%s/%s", strings.TrimSpace(query), s.cfg.Owner, s.cfg.Repo)
	switch {
	case !s.cfg.HasContentType(ContentPRs):
		q += " is:issue"
	case !s.cfg.HasContentType(ContentIssues):
		q += " is:pr"
	}

	issues, err := s.client.SearchIssues(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	items := make([]domain.ToolItem, len(issues))
	for i, is := range issues {
		items[i] = issueItem(is)
	}
	return items, nil
}

// issueItem converts an issue (or a pull request seen through the issues API).
func issueItem(is *gh.Issue) domain.ToolItem {
	kind := "issue"
	if is.IsPullRequest() {
		kind = "pull"
	}
	labels := make([]string, len(is.Labels))
	for i, l := range is.Labels {
		labels[i] = l.GetName()
	}
	return domain.ToolItem{
		ID:          fmt.Sprintf("%s/%d", kind, is.GetNumber()),
		Title:       fmt.Sprintf("#%d %s", is.GetNumber(), is.GetTitle()),
		Body:        itemBody(is.GetBody(), is.GetState(), is.GetUser().GetLogin(), labels),
		URL:         is.GetHTMLURL(),
		PublishedAt: is.GetUpdatedAt().Time,
	}
}

func pullItem(pr *gh.PullRequest) domain.ToolItem {
	labels := make([]string, len(pr.Labels))
	for i, l := range pr.Labels {
		labels[i] = l.GetName()
	}
	state := pr.GetState()
	if pr.GetMerged() || pr.MergedAt != nil {
		state = "merged"
	}
	return domain.ToolItem{
		ID:          fmt.Sprintf("pull/%d", pr.GetNumber()),
		Title:       fmt.Sprintf("#%d %s", pr.GetNumber(), pr.GetTitle()),
		Body:        itemBody(pr.GetBody(), state, pr.GetUser().GetLogin(), labels),
		URL:         pr.GetHTMLURL(),
		PublishedAt: pr.GetUpdatedAt().Time,
	}
}

func itemBody(body, state, author string, labels []string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(body))
	meta := []string{"State: " + state}
	if author != "" {
		meta = append(meta, "Author: "+author)
	}
	if len(labels) > 0 {
		meta = append(meta, "Labels: "+strings.Join(labels, ", "))
	}
	if b.Len() > 0 {
		b.WriteString("\n\n")
	}
	b.WriteString(strings.Join(meta, "\n"))
	return b.String()
}
