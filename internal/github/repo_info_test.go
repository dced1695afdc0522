package github

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRemoteURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		url      string
		hostname string
		owner    string
		repo     string
	}{
		{
			name:     "https with .git suffix",
			url:      "https://github.com/acme/widgets.git",
			hostname: "github.com",
			owner:    "acme",
			repo:     "widgets",
		},
		{
			name:     "https without suffix",
			url:      "https://github.com/acme/widgets",
			hostname: "github.com",
			owner:    "acme",
			repo:     "widgets",
		},
		{
			name:     "scp-style ssh",
			url:      "git@github.com:acme/widgets.git",
			hostname: "github.com",
			owner:    "acme",
			repo:     "widgets",
		},
		{
			name:     "ssh url form",
			url:      "ssh://git@github.com/acme/widgets.git",
			hostname: "github.com",
			owner:    "acme",
			repo:     "widgets",
		},
		{
			name:     "enterprise hostname",
			url:      "https://github.example.com/platform/api.git",
			hostname: "github.example.com",
			owner:    "platform",
			repo:     "api",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			info, err := ParseRemoteURL(tt.url)
			require.NoError(t, err)
			require.Equal(t, tt.hostname, info.Hostname)
			require.Equal(t, tt.owner, info.Owner)
			require.Equal(t, tt.repo, info.Repo)
		})
	}

	t.Run("rejects unrecognized urls", func(t *testing.T) {
		t.Parallel()

		for _, url := range []string{
			"",
			"not-a-url",
			"https://github.com",
			"git@github.com",
		} {
			_, err := ParseRemoteURL(url)
			require.Error(t, err, "url %q", url)
		}
	})
}
