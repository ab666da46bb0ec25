package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMain triggers the CLI as a subprocess when GO_HELPER_PROCESS is set.
func TestMain(m *testing.M) {
	if os.Getenv("GO_HELPER_PROCESS") == "1" {
		main()
		os.Exit(0)
	}
	os.Exit(m.Run())
}

// runCLI runs the CLI in helper process mode in dir and returns stdout and
// stderr separately.
func runCLI(t *testing.T, dir string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := exec.Command(os.Args[0], args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GO_HELPER_PROCESS=1")
	var outBuf, errBuf strings.Builder
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err = cmd.Run()
	return outBuf.String(), errBuf.String(), err
}

// newPodRepo creates a repository holding a pod at version 1.2.3, pushed to
// a bare origin, and a pod script that succeeds.
func newPodRepo(t *testing.T) (dir, bare, podBin string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	runGit := func(dir string, args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v failed: %v\n%s", args, err, out)
		}
	}

	bare = t.TempDir()
	runGit(bare, "init", "--bare")

	dir = t.TempDir()
	runGit(dir, "init")
	runGit(dir, "symbolic-ref", "HEAD", "refs/heads/master")
	runGit(dir, "config", "user.email", "test@example.com")
	runGit(dir, "config", "user.name", "Test User")
	runGit(dir, "config", "commit.gpgsign", "false")
	runGit(dir, "config", "tag.gpgsign", "false")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "MyLib.podspec"), []byte("Pod::Spec.new do |s|\n  s.name = 'MyLib'\n  s.version = '1.2.3'\nend\n"), 0644))
	proj := filepath.Join(dir, "MyLib.xcodeproj")
	require.NoError(t, os.Mkdir(proj, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(proj, "project.pbxproj"), []byte("MARKETING_VERSION = 1.2.3;\nCURRENT_PROJECT_VERSION = 1;\n"), 0644))

	runGit(dir, "add", ".")
	runGit(dir, "commit", "-m", "initial")
	runGit(dir, "remote", "add", "origin", bare)
	runGit(dir, "push", "-u", "origin", "master")

	podBin = filepath.Join(t.TempDir(), "pod")
	require.NoError(t, os.WriteFile(podBin, []byte("#!/bin/sh\nexit 0\n"), 0755))
	return dir, bare, podBin
}

func TestCLIHelp(t *testing.T) {
	out, _, _ := runCLI(t, ".", "--help")
	if !strings.Contains(out, "Usage:") {
		t.Errorf("expected help output, got:\n%s", out)
	}
}

func TestCLIVersionFlag(t *testing.T) {
	out, _, _ := runCLI(t, ".", "--version")
	if !strings.Contains(out, Version) {
		t.Errorf("expected CLI version in output, got:\n%s", out)
	}
}

func TestCLITooManyArgs(t *testing.T) {
	_, stderr, err := runCLI(t, ".", "patch", "minor")
	require.Error(t, err)
	assert.Contains(t, stderr, "Error: accepts at most 1 arg(s)")
}

func TestCLIConflictingVersionOptions(t *testing.T) {
	dir, _, podBin := newPodRepo(t)

	stdout, stderr, err := runCLI(t, dir, "--pod-bin", podBin, "--bump-type", "minor", "2.0.0")
	require.Error(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Error: configuration error: ExplicitVersion and BumpType are mutually exclusive")
}

func TestCLIDirtyWorkingTree(t *testing.T) {
	dir, _, podBin := newPodRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scratch.txt"), []byte("wip"), 0644))

	_, stderr, err := runCLI(t, dir, "--pod-bin", podBin, "--log-format", "json")
	require.Error(t, err)
	assert.Contains(t, stderr, "Error: validate: working tree has uncommitted changes: scratch.txt")
}

func TestCLIDryRun(t *testing.T) {
	dir, _, podBin := newPodRepo(t)

	stdout, stderr, err := runCLI(t, dir, "--pod-bin", podBin, "--dry-run", "minor")
	require.NoError(t, err, stderr)
	assert.Equal(t, "1.3.0\n", stdout)
	assert.Contains(t, stderr, "Old Version: 1.2.3")
	assert.Contains(t, stderr, "Files that would be updated:")
	assert.Contains(t, stderr, "publish")

	data, err := os.ReadFile(filepath.Join(dir, "MyLib.podspec"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "s.version = '1.2.3'", "dry run must not touch the podspec")

	tags, err := exec.Command("git", "-C", dir, "tag", "--list").CombinedOutput()
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(string(tags)))
}

func TestOverrides(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("bump-type", "", "")
	fs.String("tag-prefix", "", "")
	fs.Bool("require-clean", true, "")
	fs.StringSlice("include", nil, "")
	fs.String("log-level", "info", "")
	fs.String("not-a-key", "", "")

	require.NoError(t, fs.Parse([]string{
		"--bump-type=minor",
		"--require-clean=false",
		"--include", "CHANGELOG.md",
		"--include", "README.md",
		"--log-level=debug",
		"--not-a-key=x",
	}))

	o, err := overrides(fs)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"bump_type":     "minor",
		"require_clean": false,
		"include":       []string{"CHANGELOG.md", "README.md"},
		"log.level":     "debug",
	}, o)
}

func TestApplyVersionArg(t *testing.T) {
	o := map[string]any{}
	applyVersionArg([]string{"Major"}, o)
	assert.Equal(t, map[string]any{"bump_type": "major"}, o)

	o = map[string]any{}
	applyVersionArg([]string{"2.0.0"}, o)
	assert.Equal(t, map[string]any{"version": "2.0.0"}, o)

	o = map[string]any{}
	applyVersionArg(nil, o)
	assert.Empty(t, o)
}
