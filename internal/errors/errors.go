// Package errors provides sentinel errors and custom error types for the jflow application.
// Use errors.Is() and errors.As() to check for specific error types.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common conditions
var (
	// ErrNotARepository indicates that the current directory is not inside a jj repository
	ErrNotARepository = errors.New("not a jj repository")

	// ErrNoPrimaryBranch indicates that the configured primary branch does not exist on the remote
	ErrNoPrimaryBranch = errors.New("primary branch not found")

	// ErrQueryParse indicates that jj produced output that does not match the expected shape
	ErrQueryParse = errors.New("unexpected jj output")

	// ErrRemoteUnavailable indicates that the remote could not be reached
	ErrRemoteUnavailable = errors.New("remote unavailable")

	// ErrReviewHostUnavailable indicates that GitHub could not be reached or is not configured
	ErrReviewHostUnavailable = errors.New("review host unavailable")

	// ErrNonLinearHistory indicates an append-style push whose local commit does not
	// descend from the remote-tracked commit
	ErrNonLinearHistory = errors.New("non-linear history")

	// ErrBookmarkConflict indicates that a bookmark moved concurrently between query and write
	ErrBookmarkConflict = errors.New("bookmark moved concurrently")

	// ErrRebaseConflict indicates that a rebase left unresolved conflicts
	ErrRebaseConflict = errors.New("rebase conflict")

	// ErrPartialFailure indicates that some independent sub-actions failed while others succeeded
	ErrPartialFailure = errors.New("some actions failed")
)

// QueryParseError reports jj output that failed shape validation. The output
// format is a contract jflow validates on every parse rather than trusts.
type QueryParseError struct {
	Command string
	Line    string
	Err     error
}

func (e *QueryParseError) Error() string {
	msg := fmt.Sprintf("failed to parse %s output", e.Command)
	if e.Line != "" {
		msg += fmt.Sprintf(": %q", e.Line)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Is returns true if the target error is ErrQueryParse
func (e *QueryParseError) Is(target error) bool {
	return target == ErrQueryParse
}

func (e *QueryParseError) Unwrap() error {
	return e.Err
}

// NewQueryParseError creates a new QueryParseError
func NewQueryParseError(command, line string, err error) *QueryParseError {
	return &QueryParseError{Command: command, Line: line, Err: err}
}

// NonLinearHistoryError identifies the bookmark whose push was refused
type NonLinearHistoryError struct {
	Bookmark string
}

func (e *NonLinearHistoryError) Error() string {
	return fmt.Sprintf("bookmark %s is not a descendant of its remote position (append push style)", e.Bookmark)
}

// Is returns true if the target error is ErrNonLinearHistory
func (e *NonLinearHistoryError) Is(target error) bool {
	return target == ErrNonLinearHistory
}

// NewNonLinearHistoryError creates a new NonLinearHistoryError
func NewNonLinearHistoryError(bookmark string) *NonLinearHistoryError {
	return &NonLinearHistoryError{Bookmark: bookmark}
}

// BookmarkConflictError reports a bookmark that moved between query and write
type BookmarkConflictError struct {
	Bookmark string
	Expected string
	Actual   string
}

func (e *BookmarkConflictError) Error() string {
	if e.Expected == "" && e.Actual == "" {
		return fmt.Sprintf("bookmark %s moved concurrently on the remote", e.Bookmark)
	}
	return fmt.Sprintf("bookmark %s moved concurrently (expected %s, found %s)", e.Bookmark, e.Expected, e.Actual)
}

// Is returns true if the target error is ErrBookmarkConflict
func (e *BookmarkConflictError) Is(target error) bool {
	return target == ErrBookmarkConflict
}

// NewBookmarkConflictError creates a new BookmarkConflictError
func NewBookmarkConflictError(bookmark, expected, actual string) *BookmarkConflictError {
	return &BookmarkConflictError{Bookmark: bookmark, Expected: expected, Actual: actual}
}

// RebaseConflictError carries the change IDs left conflicted by a rebase.
// The repository stays in jj's own paused-conflict state, which the user
// resolves manually.
type RebaseConflictError struct {
	ChangeIDs []string
	Message   string
}

func (e *RebaseConflictError) Error() string {
	if len(e.ChangeIDs) > 0 {
		return fmt.Sprintf("rebase produced conflicts in: %s", strings.Join(e.ChangeIDs, ", "))
	}
	if e.Message != "" {
		return fmt.Sprintf("rebase produced conflicts: %s", e.Message)
	}
	return "rebase produced conflicts"
}

// Is returns true if the target error is ErrRebaseConflict
func (e *RebaseConflictError) Is(target error) bool {
	return target == ErrRebaseConflict
}

// NewRebaseConflictError creates a new RebaseConflictError
func NewRebaseConflictError(changeIDs []string, message string) *RebaseConflictError {
	return &RebaseConflictError{ChangeIDs: changeIDs, Message: message}
}

// PartialFailureError aggregates independent sub-action failures. Succeeded
// actions are never rolled back; the external backend has its own concurrent
// writers and rollback is infeasible.
type PartialFailureError struct {
	Failed int
	Total  int
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%d of %d actions failed", e.Failed, e.Total)
}

// Is returns true if the target error is ErrPartialFailure
func (e *PartialFailureError) Is(target error) bool {
	return target == ErrPartialFailure
}

// NewPartialFailureError creates a new PartialFailureError
func NewPartialFailureError(failed, total int) *PartialFailureError {
	return &PartialFailureError{Failed: failed, Total: total}
}

// JJCommandError represents an error from a jj command execution
type JJCommandError struct {
	Args   []string
	Stdout string
	Stderr string
	Err    error
}

func (e *JJCommandError) Error() string {
	msg := "jj command failed"
	if len(e.Args) > 0 {
		msg += fmt.Sprintf(": jj %s", strings.Join(e.Args, " "))
	}
	if e.Stderr != "" {
		msg += fmt.Sprintf("\nstderr: %s", e.Stderr)
	}
	if e.Stdout != "" {
		msg += fmt.Sprintf("\nstdout: %s", e.Stdout)
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n%v", e.Err)
	}
	return msg
}

func (e *JJCommandError) Unwrap() error {
	return e.Err
}

// NewJJCommandError creates a new JJCommandError
func NewJJCommandError(args []string, stdout, stderr string, err error) *JJCommandError {
	return &JJCommandError{Args: args, Stdout: stdout, Stderr: stderr, Err: err}
}
