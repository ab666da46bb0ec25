// Package command runs the external tools the collaborators drive (git, pod).
package command

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	podrelease "github.com/bcomnes/podrelease/pkg"
)

// Run executes name with args in dir and returns its trimmed stdout. A
// failure is returned as a *podrelease.CommandError carrying stderr.
func Run(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		detail := stderr.String()
		if strings.TrimSpace(detail) == "" {
			// pod reports lint failures on stdout.
			detail = stdout.String()
		}
		return "", podrelease.NewCommandError(Line(name, args...), exitCode, detail, err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Line renders a command line for messages and logs.
func Line(name string, args ...string) string {
	return strings.TrimSpace(name + " " + strings.Join(args, " "))
}
