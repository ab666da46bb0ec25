// Package gitrepo is the version-control collaborator of a release. It
// inspects the repository with go-git and mutates it (commit, tag, push,
// reset) through the git binary.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/bcomnes/podrelease/internal/command"
	podrelease "github.com/bcomnes/podrelease/pkg"
)

// DefaultRemote is the remote pushed to when none is configured.
const DefaultRemote = "origin"

// Repo is a git working tree. It implements podrelease.Repository.
type Repo struct {
	dir    string
	remote string
	repo   *git.Repository

	// Git is the git binary used for mutations.
	Git string
}

// Open opens the repository containing dir. Pushes go to remote.
func Open(dir, remote string) (*Repo, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening git repository at %s: %w", dir, err)
	}
	if remote == "" {
		remote = DefaultRemote
	}
	return &Repo{dir: dir, remote: remote, repo: repo, Git: "git"}, nil
}

func (r *Repo) git(ctx context.Context, args ...string) (string, error) {
	return command.Run(ctx, r.dir, r.Git, args...)
}

// Branch returns the short name of the checked-out branch.
func (r *Repo) Branch() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("reading HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", errors.New("HEAD is detached")
	}
	return head.Name().Short(), nil
}

// MatchBranch reports whether branch satisfies constraint: an exact name,
// or else a regular expression matched against the whole branch name.
func MatchBranch(constraint, branch string) (bool, error) {
	if constraint == branch {
		return true, nil
	}
	re, err := regexp.Compile(`^(?:` + constraint + `)$`)
	if err != nil {
		return false, fmt.Errorf("invalid branch constraint %q: %w", constraint, err)
	}
	return re.MatchString(branch), nil
}

// CheckBranch fails with podrelease.ErrBranchMismatch unless the current
// branch satisfies constraint.
func (r *Repo) CheckBranch(_ context.Context, constraint string) error {
	branch, err := r.Branch()
	if err != nil {
		return fmt.Errorf("%w: %v", podrelease.ErrBranchMismatch, err)
	}
	ok, err := MatchBranch(constraint, branch)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: currently on %q, expected %q", podrelease.ErrBranchMismatch, branch, constraint)
	}
	return nil
}

// CheckCleanStatus fails with podrelease.ErrDirtyWorkingTree, listing the
// paths, when the working tree has staged, unstaged or untracked changes.
func (r *Repo) CheckCleanStatus(context.Context) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("opening worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return fmt.Errorf("reading git status: %w", err)
	}
	if status.IsClean() {
		return nil
	}

	var dirty []string
	for path, s := range status {
		if s.Staging == git.Unmodified && s.Worktree == git.Unmodified {
			continue
		}
		dirty = append(dirty, path)
	}
	sort.Strings(dirty)
	return fmt.Errorf("%w: %s", podrelease.ErrDirtyWorkingTree, strings.Join(dirty, ", "))
}

// FetchRemoteRefs refreshes the remote-tracking refs.
func (r *Repo) FetchRemoteRefs(ctx context.Context) error {
	_, err := r.git(ctx, "remote", "update")
	return err
}

// CurrentCommit returns the hash HEAD points at.
func (r *Repo) CurrentCommit(context.Context) (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("reading HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

// UpstreamCommit returns the hash of the upstream of the current branch,
// taken from the branch tracking configuration and defaulting to the same
// branch on the configured remote.
func (r *Repo) UpstreamCommit(context.Context) (string, error) {
	branch, err := r.Branch()
	if err != nil {
		return "", err
	}
	remote, merge := r.remote, branch

	cfg, err := r.repo.Config()
	if err != nil {
		return "", fmt.Errorf("reading git config: %w", err)
	}
	if b, ok := cfg.Branches[branch]; ok {
		if b.Remote != "" && b.Remote != "." {
			remote = b.Remote
		}
		if b.Merge.IsBranch() {
			merge = b.Merge.Short()
		}
	}

	ref, err := r.repo.Reference(plumbing.NewRemoteReferenceName(remote, merge), true)
	if err != nil {
		return "", fmt.Errorf("no upstream %s/%s for branch %q: %w", remote, merge, branch, err)
	}
	return ref.Hash().String(), nil
}

// TagExists reports whether the tag exists locally or on the remote.
func (r *Repo) TagExists(ctx context.Context, name string) (bool, error) {
	local, err := r.localTag(name)
	if err != nil {
		return false, err
	}
	if local != "" {
		return true, nil
	}
	pushed, err := r.remoteTag(ctx, name)
	if err != nil {
		return false, err
	}
	return pushed != "", nil
}

// localTag returns the hash of the local tag ref, or "" when there is none.
func (r *Repo) localTag(name string) (string, error) {
	ref, err := r.repo.Tag(name)
	if errors.Is(err, git.ErrTagNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("looking up tag %s: %w", name, err)
	}
	return ref.Hash().String(), nil
}

// remoteTag returns the hash the remote's tag ref points at, or "" when the
// remote has no such tag.
func (r *Repo) remoteTag(ctx context.Context, name string) (string, error) {
	ref := "refs/tags/" + name
	out, err := r.git(ctx, "ls-remote", "--tags", "--refs", r.remote, ref)
	if err != nil {
		return "", fmt.Errorf("listing remote tag %s: %w", name, err)
	}
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 && fields[1] == ref {
			return fields[0], nil
		}
	}
	return "", nil
}

// Commit stages paths, commits them with message and returns the new hash.
func (r *Repo) Commit(ctx context.Context, message string, paths []string) (string, error) {
	if _, err := r.git(ctx, append([]string{"add", "--"}, paths...)...); err != nil {
		return "", err
	}
	if _, err := r.git(ctx, "commit", "-m", message); err != nil {
		return "", err
	}
	return r.CurrentCommit(ctx)
}

// CreateTag creates an annotated tag at HEAD.
func (r *Repo) CreateTag(ctx context.Context, name string) error {
	_, err := r.git(ctx, "tag", "-a", name, "-m", name)
	return err
}

// DeleteTag removes the local tag and, if remote is set, the tag on the
// remote. A tag that is already gone is not an error. The remote tag is only
// deleted when it points where the local tag did, so a tag pushed by someone
// else is left in place.
func (r *Repo) DeleteTag(ctx context.Context, name string, remote bool) error {
	var errs []error

	local, err := r.localTag(name)
	if err != nil {
		errs = append(errs, err)
	} else if local != "" {
		if _, err := r.git(ctx, "tag", "-d", name); err != nil {
			errs = append(errs, err)
		}
	}

	if remote && local != "" {
		if err := r.deleteRemoteTag(ctx, name, local); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Repo) deleteRemoteTag(ctx context.Context, name, want string) error {
	pushed, err := r.remoteTag(ctx, name)
	if err != nil {
		return err
	}
	if pushed != want {
		return nil
	}
	ref := "refs/tags/" + name
	_, err = r.git(ctx, "push", r.remote, "--delete", ref)
	var cmdErr *podrelease.CommandError
	if errors.As(err, &cmdErr) && strings.Contains(cmdErr.Stderr, "remote ref does not exist") {
		return nil
	}
	return err
}

// PushBranch pushes the current branch, and tags, to the remote in one
// atomic update: either every ref moves or none does. force overwrites the
// remote branch, which is how a rollback restores it.
func (r *Repo) PushBranch(ctx context.Context, force bool, tags ...string) error {
	branch, err := r.Branch()
	if err != nil {
		return err
	}
	args := []string{"push"}
	if force {
		args = append(args, "--force")
	} else {
		args = append(args, "--atomic")
	}
	ref := "refs/heads/" + branch
	args = append(args, r.remote, ref+":"+ref)
	for _, t := range tags {
		args = append(args, "refs/tags/"+t)
	}
	_, err = r.git(ctx, args...)
	return err
}

// ResetHard moves the branch and working tree back to commit.
func (r *Repo) ResetHard(ctx context.Context, commit string) error {
	_, err := r.git(ctx, "reset", "--hard", commit)
	return err
}

var _ podrelease.Repository = (*Repo)(nil)
