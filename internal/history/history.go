// Package history keeps an audit trail of the studio's data directory
// using go-git (pure Go, no git binary dependency). Every configuration
// mutation lands as a commit, so the owner can see what changed and pull
// an older local.json back out if an edit goes wrong.
package history

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	authorName  = "patisserie-studio"
	authorEmail = "studio@localhost"
)

// Commit is one entry in the audit trail.
type Commit struct {
	Hash    string    `json:"hash"`
	Message string    `json:"message"`
	When    time.Time `json:"when"`
}

// Log records data-directory mutations as git commits. A nil *Log is a
// disabled log; its methods are no-ops.
type Log struct {
	dir  string
	repo *gogit.Repository
	mu   sync.Mutex
}

// Open opens or initializes the repository at dir.
func Open(dir string) (*Log, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		repo, err = gogit.PlainInit(dir, false)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize history repo: %w", err)
		}
		cfg, err := repo.Config()
		if err != nil {
			return nil, fmt.Errorf("failed to read history repo config: %w", err)
		}
		cfg.User.Name = authorName
		cfg.User.Email = authorEmail
		if err := repo.SetConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to write history repo config: %w", err)
		}
	}
	return &Log{dir: dir, repo: repo}, nil
}

// Record stages the named paths and commits them with msg. Recording
// nothing new is not an error. Paths are relative to the data directory;
// an empty list stages everything.
func (l *Log) Record(_ context.Context, msg string, paths ...string) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	w, err := l.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		if _, err := w.Add(p); err != nil {
			return fmt.Errorf("failed to stage %s: %w", p, err)
		}
	}
	status, err := w.Status()
	if err != nil {
		return fmt.Errorf("failed to get worktree status: %w", err)
	}
	if status.IsClean() {
		return nil
	}
	now := time.Now()
	sig := &object.Signature{Name: authorName, Email: authorEmail, When: now}
	if _, err := w.Commit(msg, &gogit.CommitOptions{Author: sig, Committer: sig}); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// History returns up to n commits touching path, newest first. An empty
// path means the whole data directory. No commits yet is not an error.
func (l *Log) History(_ context.Context, path string, n int) ([]*Commit, error) {
	if l == nil {
		return nil, nil
	}
	if n <= 0 || n > 1000 {
		n = 1000
	}
	opts := &gogit.LogOptions{}
	if path != "" && path != "." {
		opts.FileName = &path
	}
	iter, err := l.repo.Log(opts)
	if err != nil {
		return nil, nil
	}
	defer iter.Close()

	var commits []*Commit
	for range n {
		c, err := iter.Next()
		if err != nil {
			break
		}
		subject, _, _ := strings.Cut(c.Message, "\n")
		commits = append(commits, &Commit{
			Hash:    c.Hash.String(),
			Message: subject,
			When:    c.Author.When,
		})
	}
	return commits, nil
}

// FileAt retrieves the content of a file at a specific commit. Pass
// "HEAD" to read the latest committed version.
func (l *Log) FileAt(_ context.Context, hash, filePath string) ([]byte, error) {
	if l == nil {
		return nil, fmt.Errorf("history is not enabled")
	}
	h := plumbing.NewHash(hash)
	if hash == "HEAD" {
		ref, err := l.repo.Head()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
		}
		h = ref.Hash()
	}
	c, err := l.repo.CommitObject(h)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}
	f, err := c.File(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get file at commit: %w", err)
	}
	reader, err := f.Reader()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = reader.Close() }()
	return io.ReadAll(reader)
}
