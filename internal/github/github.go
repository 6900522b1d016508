// Package github resolves linked pull requests against the upstream
// Airflow repository. Lookups are anonymous by default; a GITHUB_TOKEN
// raises the rate limit but is never required, since pr link and
// pr clear are purely local metadata edits.
package github

import (
	"context"
	"fmt"
	"os"

	gh "github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// Upstream repository the PR numbers refer to.
const (
	DefaultOwner = "apache"
	DefaultRepo  = "airflow"
)

// PR is the subset of pull request data abm cares about.
type PR struct {
	Number int
	Title  string
	State  string
	URL    string
}

// Client looks up pull requests.
type Client struct {
	gh    *gh.Client
	owner string
	repo  string
}

// NewClient builds a client for the upstream repository, authenticated
// through GITHUB_TOKEN when present.
func NewClient(ctx context.Context) *Client {
	client := gh.NewClient(nil)
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		client = gh.NewClient(oauth2.NewClient(ctx, ts))
	}
	return &Client{gh: client, owner: DefaultOwner, repo: DefaultRepo}
}

// PullRequest fetches one PR by number.
func (c *Client) PullRequest(ctx context.Context, number int) (*PR, error) {
	pr, _, err := c.gh.PullRequests.Get(ctx, c.owner, c.repo, number)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s/%s#%d: %w", c.owner, c.repo, number, err)
	}
	return &PR{
		Number: pr.GetNumber(),
		Title:  pr.GetTitle(),
		State:  pr.GetState(),
		URL:    pr.GetHTMLURL(),
	}, nil
}

// PullURL is the browser URL for a PR, usable without touching the API.
func PullURL(number int) string {
	return fmt.Sprintf("https://github.com/%s/%s/pull/%d", DefaultOwner, DefaultRepo, number)
}
