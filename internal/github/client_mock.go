package github

import (
	"context"
	"fmt"
	"sync"
)

// FakeClient is a deterministic Client for tests. Requests are keyed by head
// branch name; mutations are recorded.
type FakeClient struct {
	mu       sync.Mutex
	requests map[string]*ReviewRequest
	err      error

	Created    []CreateOptions
	Retargeted map[int]string
}

// NewFakeClient creates an empty FakeClient
func NewFakeClient() *FakeClient {
	return &FakeClient{
		requests:   map[string]*ReviewRequest{},
		Retargeted: map[int]string{},
	}
}

// AddRequest registers a review request for its head branch
func (c *FakeClient) AddRequest(req *ReviewRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests[req.Head] = req
}

// FailWith makes every call return err, simulating an unavailable host
func (c *FakeClient) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

func (c *FakeClient) GetReviewRequest(_ context.Context, bookmark string) (*ReviewRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	req, ok := c.requests[bookmark]
	if !ok {
		return nil, nil
	}
	copied := *req
	return &copied, nil
}

func (c *FakeClient) CreateReviewRequest(_ context.Context, opts CreateOptions) (*ReviewRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}

	c.Created = append(c.Created, opts)
	req := &ReviewRequest{
		Number: len(c.requests) + 1,
		State:  StateOpen,
		Base:   opts.Base,
		Head:   opts.Head,
		Title:  opts.Title,
		URL:    fmt.Sprintf("https://github.com/fake/fake/pull/%d", len(c.requests)+1),
	}
	c.requests[opts.Head] = req
	copied := *req
	return &copied, nil
}

func (c *FakeClient) RetargetReviewRequest(_ context.Context, number int, newBase string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}

	c.Retargeted[number] = newBase
	for _, req := range c.requests {
		if req.Number == number {
			req.Base = newBase
		}
	}
	return nil
}
