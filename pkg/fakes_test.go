package podrelease

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// recorder keeps every collaborator call of a run, in order.
type recorder struct {
	calls []string
}

func (r *recorder) add(format string, args ...any) {
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

// after returns the calls recorded after the first call equal to marker.
func (r *recorder) after(marker string) []string {
	for i, c := range r.calls {
		if c == marker {
			return append([]string(nil), r.calls[i+1:]...)
		}
	}
	return nil
}

// has reports whether any call starts with prefix.
func (r *recorder) has(prefix string) bool {
	for _, c := range r.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

type fakeRepo struct {
	rec *recorder

	head      string
	upstream  string
	tagExists bool

	branchErr    error
	cleanErr     error
	fetchErr     error
	commitErr    error
	tagErr       error
	pushErr      error
	forcePushErr error
	deleteTagErr error
	resetErr     error
}

func (f *fakeRepo) CheckBranch(_ context.Context, constraint string) error {
	f.rec.add("repo.CheckBranch(%s)", constraint)
	return f.branchErr
}

func (f *fakeRepo) CheckCleanStatus(context.Context) error {
	f.rec.add("repo.CheckCleanStatus")
	return f.cleanErr
}

func (f *fakeRepo) FetchRemoteRefs(context.Context) error {
	f.rec.add("repo.FetchRemoteRefs")
	return f.fetchErr
}

func (f *fakeRepo) CurrentCommit(context.Context) (string, error) {
	f.rec.add("repo.CurrentCommit")
	return f.head, nil
}

func (f *fakeRepo) UpstreamCommit(context.Context) (string, error) {
	f.rec.add("repo.UpstreamCommit")
	return f.upstream, nil
}

func (f *fakeRepo) TagExists(_ context.Context, name string) (bool, error) {
	f.rec.add("repo.TagExists(%s)", name)
	return f.tagExists, nil
}

func (f *fakeRepo) Commit(_ context.Context, message string, paths []string) (string, error) {
	f.rec.add("repo.Commit(%s)", message)
	if f.commitErr != nil {
		return "", f.commitErr
	}
	return "releasecommit", nil
}

func (f *fakeRepo) CreateTag(_ context.Context, name string) error {
	f.rec.add("repo.CreateTag(%s)", name)
	return f.tagErr
}

func (f *fakeRepo) DeleteTag(_ context.Context, name string, remote bool) error {
	f.rec.add("repo.DeleteTag(%s,remote=%t)", name, remote)
	return f.deleteTagErr
}

func (f *fakeRepo) PushBranch(_ context.Context, force bool, tags ...string) error {
	f.rec.add("repo.PushBranch(force=%t,tags=%v)", force, tags)
	if force {
		return f.forcePushErr
	}
	return f.pushErr
}

func (f *fakeRepo) ResetHard(_ context.Context, commit string) error {
	f.rec.add("repo.ResetHard(%s)", commit)
	return f.resetErr
}

type fakeManifest struct {
	rec      *recorder
	version  string
	readErr  error
	writeErr error
}

func (f *fakeManifest) ReadVersion(string) (string, error) {
	f.rec.add("manifest.ReadVersion")
	return f.version, f.readErr
}

func (f *fakeManifest) WriteVersion(_ string, version string) error {
	f.rec.add("manifest.WriteVersion(%s)", version)
	if f.writeErr != nil {
		return f.writeErr
	}
	f.version = version
	return nil
}

type fakeProject struct {
	rec      *recorder
	version  string
	build    string
	writeErr error
	buildErr error
}

func (f *fakeProject) ReadVersion(string) (string, error) {
	f.rec.add("project.ReadVersion")
	return f.version, nil
}

func (f *fakeProject) WriteVersion(_ string, version string) error {
	f.rec.add("project.WriteVersion(%s)", version)
	if f.writeErr != nil {
		return f.writeErr
	}
	f.version = version
	return nil
}

func (f *fakeProject) BumpBuildNumber(_ string, explicit string) (string, error) {
	f.rec.add("project.BumpBuildNumber(%s)", explicit)
	if f.buildErr != nil {
		return "", f.buildErr
	}
	if explicit != "" {
		f.build = explicit
	} else {
		f.build += "+1"
	}
	return f.build, nil
}

type fakeRegistry struct {
	rec *recorder
	got PublishRequest
	err error
}

func (f *fakeRegistry) Publish(_ context.Context, req PublishRequest) error {
	f.rec.add("registry.Publish(%s)", req.Repo)
	f.got = req
	return f.err
}

// fixture bundles a Releaser with fakes and a request whose paths exist.
type fixture struct {
	rec      *recorder
	repo     *fakeRepo
	manifest *fakeManifest
	project  *fakeProject
	registry *fakeRegistry
	req      *Request
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	podspec := filepath.Join(dir, "MyLib.podspec")
	require.NoError(t, os.WriteFile(podspec, []byte("s.version = '1.2.3'\n"), 0644))
	proj := filepath.Join(dir, "MyLib.xcodeproj")
	require.NoError(t, os.MkdirAll(proj, 0755))

	rec := &recorder{}
	return &fixture{
		rec:      rec,
		repo:     &fakeRepo{rec: rec, head: "basecommit", upstream: "basecommit"},
		manifest: &fakeManifest{rec: rec, version: "1.2.3"},
		project:  &fakeProject{rec: rec, version: "1.2.3", build: "7"},
		registry: &fakeRegistry{rec: rec},
		req:      NewRequest(podspec, proj),
	}
}

func (f *fixture) releaser(opts ...Option) *Releaser {
	r := New(f.repo, f.manifest, f.project, f.registry, opts...)
	r.newRunID = func() string { return "run-1" }
	return r
}
