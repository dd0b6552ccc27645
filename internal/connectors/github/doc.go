// Package github serves the issues and pull requests of one GitHub
// repository as tool items.
//
// # Authentication
//
// A personal access token is read from GITHUB_TOKEN. Classic and
// fine-grained tokens both work; private repositories need the 'repo'
// scope. Without a token requests are anonymous and limited to 60 per hour.
//
// # Configuration
//
//   - GITHUB_REPO or --repo: the repository as owner/name (required).
//   - GITHUB_CONTENT or --content: comma-separated content types,
//     issues and prs. Default: both.
//   - GITHUB_API_URL: API base URL for GitHub Enterprise.
//
// # Rate limiting
//
// Requests are throttled proactively with a token bucket and reactively
// from the X-RateLimit-* response headers. When fewer than MinBuffer
// requests remain the client waits for the reset time.
package github
