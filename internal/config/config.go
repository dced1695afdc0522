// Package config loads jflow configuration from TOML files. A repo-local
// .jflow.toml overlays the global config; defaults fill everything else.
// The core engine only ever reads the resulting Config.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Push styles
const (
	PushStyleSquash = "squash"
	PushStyleAppend = "append"
)

// Merge styles
const (
	MergeStyleSquash = "squash"
	MergeStyleMerge  = "merge"
	MergeStyleRebase = "rebase"
)

// Config is the full jflow configuration
type Config struct {
	Remote    RemoteConfig   `toml:"remote"`
	GitHub    GitHubConfig   `toml:"github"`
	Bookmarks BookmarkConfig `toml:"bookmarks"`
	Stack     StackConfig    `toml:"stack"`
}

// RemoteConfig names the remote and the primary branch
type RemoteConfig struct {
	// Name is the remote name, e.g. "origin"
	Name string `toml:"name"`
	// Primary is the primary branch name, e.g. "main". "trunk" is accepted
	// as an alias for backward compatibility.
	Primary string `toml:"primary"`
	Trunk   string `toml:"trunk"`
}

// GitHubConfig controls push/merge behavior against GitHub
type GitHubConfig struct {
	// PushStyle is "squash" (force-move, force-push) or "append"
	// (descendant-only pushes)
	PushStyle string `toml:"push_style"`
	// MergeStyle is "squash", "merge", or "rebase"
	MergeStyle string `toml:"merge_style"`
	// StackContext appends a stack overview to PR bodies
	StackContext bool `toml:"stack_context"`
}

// BookmarkConfig controls bookmark naming
type BookmarkConfig struct {
	// Prefix is prepended to every bookmark jflow creates, e.g. "jf/"
	Prefix string `toml:"prefix"`
}

// StackConfig overrides stack selection
type StackConfig struct {
	// Revset overrides the default stack selection expression
	Revset string `toml:"revset"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Remote: RemoteConfig{
			Name:    "origin",
			Primary: "main",
		},
		GitHub: GitHubConfig{
			PushStyle:    PushStyleSquash,
			MergeStyle:   MergeStyleSquash,
			StackContext: true,
		},
	}
}

// ConfigFileName is the repo-local configuration file name
const ConfigFileName = ".jflow.toml"

// GlobalConfigPath returns the global config location, or "" when the user
// config directory cannot be determined.
func GlobalConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "jflow", "config.toml")
}

// Load reads the global config and overlays the repo-local one on top of the
// defaults. Missing files are fine; malformed files are not.
func Load(repoRoot string) (*Config, error) {
	cfg := Default()

	if global := GlobalConfigPath(); global != "" {
		if err := decodeFile(global, cfg); err != nil {
			return nil, err
		}
	}

	if repoRoot != "" {
		local := filepath.Join(repoRoot, ConfigFileName)
		if err := decodeFile(local, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes a single TOML document over the defaults
func Parse(contents string) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyTrunkAlias(md)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.applyTrunkAlias(md)
	return nil
}

// applyTrunkAlias maps the legacy remote.trunk key onto remote.primary when
// primary itself was not set in the same document.
func (c *Config) applyTrunkAlias(md toml.MetaData) {
	if c.Remote.Trunk != "" && !md.IsDefined("remote", "primary") {
		c.Remote.Primary = c.Remote.Trunk
	}
	c.Remote.Trunk = ""
}

// Validate checks enum-valued fields
func (c *Config) Validate() error {
	switch c.GitHub.PushStyle {
	case PushStyleSquash, PushStyleAppend:
	default:
		return fmt.Errorf("invalid push_style %q (want %q or %q)", c.GitHub.PushStyle, PushStyleSquash, PushStyleAppend)
	}

	switch c.GitHub.MergeStyle {
	case MergeStyleSquash, MergeStyleMerge, MergeStyleRebase:
	default:
		return fmt.Errorf("invalid merge_style %q (want %q, %q or %q)", c.GitHub.MergeStyle, MergeStyleSquash, MergeStyleMerge, MergeStyleRebase)
	}

	return nil
}

// RemoteRef returns the remote-tracking ref for the primary branch, e.g. "main@origin"
func (c *Config) RemoteRef() string {
	return fmt.Sprintf("%s@%s", c.Remote.Primary, c.Remote.Name)
}

// StackRevset returns the selection expression for the stack: ancestors of
// the working copy, excluding ancestors of primaryRef.
func (c *Config) StackRevset(primaryRef string) string {
	if c.Stack.Revset != "" {
		return c.Stack.Revset
	}
	return fmt.Sprintf("::@ ~ ::%s", primaryRef)
}

// BookmarkName applies the configured prefix to a bookmark name
func (c *Config) BookmarkName(name string) string {
	return c.Bookmarks.Prefix + name
}
