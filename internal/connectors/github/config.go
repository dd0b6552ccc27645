package github

import (
	"fmt"
	"strings"
)

// ContentType represents the type of content to serve.
type ContentType string

const (
	ContentIssues ContentType = "issues"
	ContentPRs    ContentType = "prs"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvToken   = "GITHUB_TOKEN"
	EnvRepo    = "GITHUB_REPO"
	EnvContent = "GITHUB_CONTENT"
	EnvAPIURL  = "GITHUB_API_URL"
)

// AllContentTypes returns all supported content types.
func AllContentTypes() []ContentType {
	return []ContentType{ContentIssues, ContentPRs}
}

// Config holds the parsed configuration for a repository source.
type Config struct {
	Owner string
	Repo  string

	// Token is optional; anonymous access is heavily rate limited.
	Token string

	// BaseURL overrides https://api.github.com/.
	BaseURL string

	// ContentTypes specifies what to serve. Default: all types.
	ContentTypes []ContentType

	// Comments appends issue comments to fetched item bodies.
	Comments bool
}

// ConfigFromEnv reads a Config from environment variables. Values set on
// base win over the environment.
func ConfigFromEnv(base Config, getenv func(string) string) (Config, error) {
	cfg := base
	if cfg.Owner == "" || cfg.Repo == "" {
		owner, repo, err := ParseRepo(getenv(EnvRepo))
		if err != nil {
			return Config{}, err
		}
		cfg.Owner, cfg.Repo = owner, repo
	}
	if cfg.Token == "" {
		cfg.Token = getenv(EnvToken)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = getenv(EnvAPIURL)
	}
	if len(cfg.ContentTypes) == 0 {
		types, err := ParseContentTypes(getenv(EnvContent))
		if err != nil {
			return Config{}, err
		}
		cfg.ContentTypes = types
	}
	return cfg, nil
}

// ParseRepo splits "owner/name".
func ParseRepo(s string) (owner, repo string, err error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), ".git")
	s = strings.TrimPrefix(s, "https://github.com/")
	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %q, want owner/name", ErrInvalidRepo, s)
	}
	return parts[0], parts[1], nil
}

// ParseContentTypes parses a comma-separated content types string.
// An empty string selects all types.
func ParseContentTypes(s string) ([]ContentType, error) {
	parts := strings.Split(s, ",")
	types := make([]ContentType, 0, len(parts))
	valid := map[string]ContentType{
		"issues": ContentIssues,
		"prs":    ContentPRs,
		"pulls":  ContentPRs,
	}

	for _, part := range parts {
		part = strings.TrimSpace(strings.ToLower(part))
		if part == "" {
			continue
		}
		ct, ok := valid[part]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrConfigInvalidContentType, part)
		}
		types = append(types, ct)
	}

	if len(types) == 0 {
		return AllContentTypes(), nil
	}
	return types, nil
}

// HasContentType checks if a content type is enabled.
func (c *Config) HasContentType(ct ContentType) bool {
	for _, t := range c.ContentTypes {
		if t == ct {
			return true
		}
	}
	return false
}
