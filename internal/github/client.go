// Package github provides the review-host gateway: a thin client for
// creating, querying, and retargeting pull requests. Unavailability of the
// review host is never fatal to version-control-only operations.
package github

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"
)

// ReviewState is the lifecycle state of a review request
type ReviewState string

const (
	// StateOpen means the request is open for review
	StateOpen ReviewState = "open"
	// StateMerged means the request was merged
	StateMerged ReviewState = "merged"
	// StateClosed means the request was closed without merging
	StateClosed ReviewState = "closed"
)

// ReviewRequest is jflow's read-only view of a pull request. It is associated
// with a bookmark by head-branch name equality.
type ReviewRequest struct {
	Number int
	State  ReviewState
	Base   string
	Head   string
	Title  string
	URL    string
}

// CreateOptions contains options for creating a pull request
type CreateOptions struct {
	Title string
	Body  string
	Head  string
	Base  string
	Draft bool
}

// Client is the review-host gateway consumed by the engine
type Client interface {
	// GetReviewRequest returns the request whose head is the bookmark name,
	// or nil when none exists
	GetReviewRequest(ctx context.Context, bookmark string) (*ReviewRequest, error)
	// CreateReviewRequest opens a new pull request
	CreateReviewRequest(ctx context.Context, opts CreateOptions) (*ReviewRequest, error)
	// RetargetReviewRequest changes the base branch of an existing request
	RetargetReviewRequest(ctx context.Context, number int, newBase string) error
}

// RealClient implements Client against the GitHub API
type RealClient struct {
	client *github.Client
	owner  string
	repo   string
}

// NewRealClient creates a client for the repository behind the colocated git
// remote. Returns an error when no token or no GitHub remote is available;
// callers treat that as the review host being unavailable.
func NewRealClient(ctx context.Context, repoRoot, remoteName string) (*RealClient, error) {
	token, err := getToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get GitHub token: %w", err)
	}

	info, err := RepoInfoFromColocatedGit(repoRoot, remoteName)
	if err != nil {
		return nil, fmt.Errorf("failed to get repository info: %w", err)
	}

	client, err := newAPIClient(ctx, info.Hostname, token)
	if err != nil {
		return nil, err
	}

	return &RealClient{client: client, owner: info.Owner, repo: info.Repo}, nil
}

// GetOwnerRepo returns the repository owner and name
func (c *RealClient) GetOwnerRepo() (string, string) {
	return c.owner, c.repo
}

func (c *RealClient) GetReviewRequest(ctx context.Context, bookmark string) (*ReviewRequest, error) {
	prs, _, err := c.client.PullRequests.List(ctx, c.owner, c.repo, &github.PullRequestListOptions{
		Head:  fmt.Sprintf("%s:%s", c.owner, bookmark),
		State: "all",
		ListOptions: github.ListOptions{
			PerPage: 1,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pull requests: %w", err)
	}

	if len(prs) == 0 {
		return nil, nil
	}

	return toReviewRequest(prs[0]), nil
}

func (c *RealClient) CreateReviewRequest(ctx context.Context, opts CreateOptions) (*ReviewRequest, error) {
	pr := &github.NewPullRequest{
		Title: github.String(opts.Title),
		Head:  github.String(opts.Head),
		Base:  github.String(opts.Base),
		Draft: github.Bool(opts.Draft),
	}
	if opts.Body != "" {
		pr.Body = github.String(opts.Body)
	}

	createdPR, _, err := c.client.PullRequests.Create(ctx, c.owner, c.repo, pr)
	if err != nil {
		return nil, fmt.Errorf("failed to create pull request: %w", err)
	}

	return toReviewRequest(createdPR), nil
}

func (c *RealClient) RetargetReviewRequest(ctx context.Context, number int, newBase string) error {
	update := &github.PullRequest{
		Base: &github.PullRequestBranch{
			Ref: github.String(newBase),
		},
	}

	_, _, err := c.client.PullRequests.Edit(ctx, c.owner, c.repo, number, update)
	if err != nil {
		return fmt.Errorf("failed to retarget pull request #%d: %w", number, err)
	}
	return nil
}

// toReviewRequest maps a go-github pull request onto jflow's view. GitHub
// reports merged PRs as state "closed" with the merged flag set.
func toReviewRequest(pr *github.PullRequest) *ReviewRequest {
	if pr == nil {
		return nil
	}

	req := &ReviewRequest{}
	if pr.Number != nil {
		req.Number = *pr.Number
	}
	if pr.Title != nil {
		req.Title = *pr.Title
	}
	if pr.HTMLURL != nil {
		req.URL = *pr.HTMLURL
	}
	if pr.Base != nil && pr.Base.Ref != nil {
		req.Base = *pr.Base.Ref
	}
	if pr.Head != nil && pr.Head.Ref != nil {
		req.Head = *pr.Head.Ref
	}

	req.State = resolveState(pr)
	return req
}

func resolveState(pr *github.PullRequest) ReviewState {
	merged := pr.Merged != nil && *pr.Merged
	if pr.MergedAt != nil {
		merged = true
	}

	state := ""
	if pr.State != nil {
		state = strings.ToLower(*pr.State)
	}

	switch {
	case merged:
		return StateMerged
	case state == "open":
		return StateOpen
	default:
		return StateClosed
	}
}

// newAPIClient creates a go-github client configured for the given hostname,
// supporting both github.com and GitHub Enterprise instances.
func newAPIClient(ctx context.Context, hostname, token string) (*github.Client, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)
	client := github.NewClient(tc)

	if hostname != "" && hostname != "github.com" {
		baseURL, err := url.Parse(fmt.Sprintf("https://%s/api/v3/", hostname))
		if err != nil {
			return nil, fmt.Errorf("failed to parse base URL for hostname %s: %w", hostname, err)
		}
		uploadURL, err := url.Parse(fmt.Sprintf("https://%s/api/uploads/", hostname))
		if err != nil {
			return nil, fmt.Errorf("failed to parse upload URL for hostname %s: %w", hostname, err)
		}
		client.BaseURL = baseURL
		client.UploadURL = uploadURL
	}

	return client, nil
}
