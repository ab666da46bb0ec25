package main_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestCLIBinaryIntegration(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	// 1. Build the CLI binary.
	binPath := filepath.Join(t.TempDir(), "podrelease")
	buildCmd := exec.Command("go", "build", "-o", binPath, "./")
	if out, err := buildCmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to build CLI binary: %v; build output: %s", err, out)
	}

	git := func(dir string, args ...string) string {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		if err != nil {
			t.Fatalf("git %v failed: %v\n%s", args, err, out)
		}
		return strings.TrimSpace(string(out))
	}

	// 2. A bare origin and a working repository holding the pod.
	bare := t.TempDir()
	git(bare, "init", "--bare")

	repo := t.TempDir()
	git(repo, "init")
	git(repo, "symbolic-ref", "HEAD", "refs/heads/master")
	git(repo, "config", "user.email", "test@example.com")
	git(repo, "config", "user.name", "Test User")
	git(repo, "config", "commit.gpgsign", "false")
	git(repo, "config", "tag.gpgsign", "false")

	podspec := `Pod::Spec.new do |s|
  s.name    = 'MyLib'
  s.version = '1.2.3'
  s.source  = { :git => 'https://example.com/MyLib.git', :tag => s.version.to_s }
end
`
	if err := os.WriteFile(filepath.Join(repo, "MyLib.podspec"), []byte(podspec), 0644); err != nil {
		t.Fatal(err)
	}
	projDir := filepath.Join(repo, "MyLib.xcodeproj")
	if err := os.Mkdir(projDir, 0755); err != nil {
		t.Fatal(err)
	}
	pbxproj := "MARKETING_VERSION = 1.2.3;\nCURRENT_PROJECT_VERSION = 41;\nMARKETING_VERSION = 1.2.3;\nCURRENT_PROJECT_VERSION = 41;\n"
	if err := os.WriteFile(filepath.Join(projDir, "project.pbxproj"), []byte(pbxproj), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(repo, "CHANGELOG.md"), []byte("# Changelog\n"), 0644); err != nil {
		t.Fatal(err)
	}
	git(repo, "add", ".")
	git(repo, "commit", "-m", "initial")
	git(repo, "remote", "add", "origin", bare)
	git(repo, "push", "-u", "origin", "master")

	// 3. A pod stand-in recording its arguments.
	podDir := t.TempDir()
	podArgs := filepath.Join(podDir, "args")
	podBin := filepath.Join(podDir, "pod")
	script := "#!/bin/sh\necho \"$@\" > " + podArgs + "\n"
	if err := os.WriteFile(podBin, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}

	// The changelog is edited by hand before the release and committed with it.
	cmd := exec.Command(binPath,
		"--pod-bin", podBin,
		"--tag-prefix", "v",
		"--bump-build-number",
		"--include", "CHANGELOG.md",
		"--require-clean=false",
		"--log-format", "json",
		"minor",
	)
	if err := os.WriteFile(filepath.Join(repo, "CHANGELOG.md"), []byte("# Changelog\n\n## 1.3.0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cmd.Dir = repo
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("CLI failed: %v\nstderr:\n%s", err, stderr.String())
	}

	// 4. The version is the only thing on stdout.
	if got := stdout.String(); got != "1.3.0\n" {
		t.Errorf("expected stdout %q, got %q", "1.3.0\n", got)
	}

	// 5. Files were bumped and committed.
	contents, err := os.ReadFile(filepath.Join(repo, "MyLib.podspec"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(contents), "s.version = '1.3.0'") {
		t.Errorf("expected bumped podspec, got:\n%s", contents)
	}
	contents, err = os.ReadFile(filepath.Join(projDir, "project.pbxproj"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(string(contents), "MARKETING_VERSION = 1.3.0;") != 2 || strings.Count(string(contents), "CURRENT_PROJECT_VERSION = 42;") != 2 {
		t.Errorf("expected bumped project, got:\n%s", contents)
	}
	if status := git(repo, "status", "--porcelain"); status != "" {
		t.Errorf("expected everything committed, status:\n%s", status)
	}
	if msg := git(repo, "log", "-1", "--pretty=%s"); msg != "Version bump" {
		t.Errorf("expected commit message %q, got %q", "Version bump", msg)
	}

	// 6. Branch and tag reached the remote.
	head := git(repo, "rev-parse", "HEAD")
	if remoteHead := git(bare, "rev-parse", "refs/heads/master"); remoteHead != head {
		t.Errorf("expected origin/master at %s, got %s", head, remoteHead)
	}
	if tagged := git(bare, "rev-parse", "refs/tags/v1.3.0^{commit}"); tagged != head {
		t.Errorf("expected tag v1.3.0 at %s, got %s", head, tagged)
	}
	if changelog := git(bare, "show", "master:CHANGELOG.md"); !strings.Contains(changelog, "## 1.3.0") {
		t.Errorf("expected CHANGELOG.md in the release commit, got:\n%s", changelog)
	}

	// 7. The pod was pushed to trunk.
	args, err := os.ReadFile(podArgs)
	if err != nil {
		t.Fatalf("pod was not run: %v", err)
	}
	expected := "trunk push " + filepath.Join(".", "MyLib.podspec") + " --allow-warnings --sources=https://github.com/CocoaPods/Specs"
	if got := strings.TrimSpace(string(args)); got != expected {
		t.Errorf("expected pod args %q, got %q", expected, got)
	}
}
