package github

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	gogit "github.com/go-git/go-git/v5"
)

// RepoInfo identifies a GitHub repository behind a remote URL
type RepoInfo struct {
	Hostname string
	Owner    string
	Repo     string
}

// RepoInfoFromColocatedGit reads the named remote's URL from the colocated
// git repository under the jj workspace and parses it. jj stores its git
// backing store as a regular .git directory, which go-git can open directly.
func RepoInfoFromColocatedGit(repoRoot, remoteName string) (*RepoInfo, error) {
	repo, err := gogit.PlainOpenWithOptions(repoRoot, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open colocated git repository: %w", err)
	}

	remote, err := repo.Remote(remoteName)
	if err != nil {
		return nil, fmt.Errorf("failed to find remote %s: %w", remoteName, err)
	}

	urls := remote.Config().URLs
	if len(urls) == 0 {
		return nil, fmt.Errorf("remote %s has no URL", remoteName)
	}

	return ParseRemoteURL(urls[0])
}

// ParseRemoteURL extracts hostname, owner, and repo from a git remote URL.
// Supports github.com and GitHub Enterprise, in both forms:
//   - https://hostname/owner/repo.git
//   - git@hostname:owner/repo.git
func ParseRemoteURL(remoteURL string) (*RepoInfo, error) {
	remoteURL = strings.TrimSuffix(strings.TrimSpace(remoteURL), ".git")

	var hostname, path string

	switch {
	case strings.Contains(remoteURL, "://"):
		rest := remoteURL[strings.Index(remoteURL, "://")+3:]
		slash := strings.Index(rest, "/")
		if slash < 0 {
			return nil, fmt.Errorf("invalid remote URL %q: missing path", remoteURL)
		}
		hostname, path = rest[:slash], rest[slash+1:]
		if at := strings.Index(hostname, "@"); at >= 0 {
			hostname = hostname[at+1:]
		}
	case strings.Contains(remoteURL, "@"):
		rest := remoteURL[strings.Index(remoteURL, "@")+1:]
		sep := strings.IndexAny(rest, ":/")
		if sep < 0 {
			return nil, fmt.Errorf("invalid SSH remote URL %q: missing path", remoteURL)
		}
		hostname, path = rest[:sep], rest[sep+1:]
	default:
		return nil, fmt.Errorf("unrecognized remote URL %q", remoteURL)
	}

	parts := strings.Split(path, "/")
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid remote URL %q: path must be owner/repo", remoteURL)
	}

	info := &RepoInfo{
		Hostname: hostname,
		Owner:    parts[0],
		Repo:     parts[len(parts)-1],
	}
	if info.Hostname == "" || info.Owner == "" || info.Repo == "" {
		return nil, fmt.Errorf("failed to parse owner and repo from %q", remoteURL)
	}
	return info, nil
}

// getToken finds a GitHub token from the environment, falling back to the gh
// CLI when installed.
func getToken(ctx context.Context) (string, error) {
	for _, name := range []string{"GITHUB_TOKEN", "GH_TOKEN"} {
		if token := os.Getenv(name); token != "" {
			return token, nil
		}
	}

	out, err := exec.CommandContext(ctx, "gh", "auth", "token").Output()
	if err != nil {
		return "", fmt.Errorf("no GITHUB_TOKEN set and gh CLI unavailable: %w", err)
	}

	token := strings.TrimSpace(string(out))
	if token == "" {
		return "", fmt.Errorf("empty GitHub token")
	}
	return token, nil
}
