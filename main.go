// Package main implements the podrelease command.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/bcomnes/podrelease/internal/config"
	"github.com/bcomnes/podrelease/internal/logging"
	podrelease "github.com/bcomnes/podrelease/pkg"
	"github.com/bcomnes/podrelease/pkg/cocoapods"
	"github.com/bcomnes/podrelease/pkg/gitrepo"
	"github.com/bcomnes/podrelease/pkg/manifest"
	"github.com/bcomnes/podrelease/pkg/xcodeproj"
)

var (
	configFile string
	dryRun     bool
)

// flagKeys maps flag names onto configuration keys.
var flagKeys = map[string]string{
	"dir":                 "dir",
	"remote":              "remote",
	"manifest":            "manifest",
	"project":             "project",
	"release-version":     "version",
	"bump-type":           "bump_type",
	"tag-prefix":          "tag_prefix",
	"bump-build-number":   "bump_build_number",
	"build-number":        "build_number",
	"commit-message":      "commit_message",
	"include":             "include",
	"branch":              "branch",
	"require-clean":       "require_clean",
	"check-remote-parity": "check_remote_parity",
	"check-version-sync":  "check_version_sync",
	"registry-repo":       "registry_repo",
	"registry-source":     "registry_sources",
	"allow-warnings":      "allow_warnings",
	"pod-bin":             "pod_bin",
	"log-level":           "log.level",
	"log-format":          "log.format",
}

var rootCmd = &cobra.Command{
	Use:   "podrelease [flags] [<version-bump>]",
	Short: "Release a new version of a CocoaPods library",
	Long: `Releases a new version of a CocoaPods library in one guarded run.

Checks the branch, the working tree and the upstream, resolves the new version,
writes it into the podspec and the Xcode project, commits, tags, pushes and
publishes the pod. When the commit, tag, push or publish step fails, everything
already done is undone so the remote ends up as it was.

The optional positional argument is one of patch, minor, major, or an explicit
version like 1.2.3. The resolved version is printed on stdout.

Configuration is read from flags, PODRELEASE_* environment variables and
.podrelease.yml, in that order of precedence.

Examples:
  podrelease
  podrelease minor
  podrelease 2.0.0 --tag-prefix v
  podrelease --dry-run --bump-type major`,
	Args:          cobra.MaximumNArgs(1),
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRelease,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&configFile, "config", "", "Path to a YAML config file (default ./.podrelease.yml)")
	f.BoolVar(&dryRun, "dry-run", false, "Validate and resolve the version without changing anything")

	f.String("dir", ".", "Repository directory")
	f.String("remote", "origin", "Remote to push to")
	f.String("manifest", "", "Path to the podspec (default: first *.podspec in dir)")
	f.String("project", "", "Path to the .xcodeproj or Info.plist (default: first *.xcodeproj in dir)")
	f.String("release-version", "", "Explicit version to release, used verbatim (1.3, 1.3.0, v1.3.0-beta.1)")
	f.String("bump-type", "", "Version increment: patch, minor or major (default patch)")
	f.String("tag-prefix", "", "Prefix prepended to the version to form the tag")
	f.Bool("bump-build-number", false, "Also bump the project build number")
	f.String("build-number", "", "Explicit build number (with --bump-build-number)")
	f.String("commit-message", podrelease.DefaultCommitMessage, "Message of the version bump commit")
	f.StringSlice("include", nil, "Additional file to include in the commit. May be repeated.")
	f.String("branch", podrelease.DefaultBranch, "Branch the release must run on (name or regular expression)")
	f.Bool("require-clean", true, "Require a clean working tree")
	f.Bool("check-remote-parity", true, "Require HEAD to match its upstream")
	f.Bool("check-version-sync", true, "Require the podspec and project versions to match")
	f.String("registry-repo", podrelease.DefaultRegistryRepo, "Spec repo to push to (Trunk uses pod trunk push)")
	f.StringSlice("registry-source", podrelease.DefaultRegistrySources, "Spec source used to lint the pod. May be repeated.")
	f.Bool("allow-warnings", true, "Publish even if the pod has lint warnings")
	f.String("pod-bin", "pod", "Path to the pod executable")
	f.String("log-level", "info", "Log level: debug, info, warn or error")
	f.String("log-format", logging.FormatAuto, "Log format: json, console or auto")
}

// overrides collects the flags set on the command line, keyed like the
// configuration file.
func overrides(flags *pflag.FlagSet) (map[string]any, error) {
	out := make(map[string]any)
	var err error
	flags.Visit(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || err != nil {
			return
		}
		switch v := f.Value.(type) {
		case pflag.SliceValue:
			out[key] = v.GetSlice()
		default:
			if f.Value.Type() == "bool" {
				var b bool
				if b, err = strconv.ParseBool(f.Value.String()); err == nil {
					out[key] = b
				}
				return
			}
			out[key] = f.Value.String()
		}
	})
	return out, err
}

// applyVersionArg turns the positional argument into bump_type or version.
func applyVersionArg(args []string, o map[string]any) {
	if len(args) == 0 {
		return
	}
	if b, err := podrelease.ParseBumpType(args[0]); err == nil {
		o["bump_type"] = string(b)
		return
	}
	o["version"] = args[0]
}

func runRelease(cmd *cobra.Command, args []string) error {
	o, err := overrides(cmd.Flags())
	if err != nil {
		return err
	}
	applyVersionArg(args, o)

	cfg, err := config.Load(config.LoadOptions{File: configFile, Overrides: o})
	if err != nil {
		return err
	}
	logger, err := logging.New(&cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	req := cfg.ToRequest()
	if err := req.Validate(); err != nil {
		return err
	}

	repo, err := gitrepo.Open(cfg.Dir, cfg.Remote)
	if err != nil {
		return err
	}
	publisher := cocoapods.NewPublisher(cfg.PodBin, cfg.Dir)
	publisher.Logger = logger

	r := podrelease.New(repo, manifest.Podspec{}, xcodeproj.Project{}, publisher, podrelease.WithLogger(logger))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var res *podrelease.Result
	if dryRun {
		res, err = r.DryRun(ctx, req)
	} else {
		res, err = r.Run(ctx, req)
	}
	if err != nil {
		return err
	}

	printSummary(cmd.ErrOrStderr(), res, dryRun)
	logger.Debug("result", zap.Any("states", res.States))
	fmt.Fprintln(cmd.OutOrStdout(), res.NewVersion)
	return nil
}

func printSummary(w io.Writer, res *podrelease.Result, dry bool) {
	if dry {
		fmt.Fprintln(w, "Dry run complete, nothing was changed.")
	} else {
		fmt.Fprintln(w, "Release successful!")
	}
	fmt.Fprintf(w, "Old Version: %s\n", res.OldVersion)
	fmt.Fprintf(w, "New Version: %s\n", res.NewVersion)
	fmt.Fprintf(w, "Bump Type:   %s\n", res.BumpType)
	fmt.Fprintf(w, "Tag:         %s\n", res.Tag)
	if res.BuildNumber != "" {
		fmt.Fprintf(w, "Build:       %s\n", res.BuildNumber)
	}

	if len(res.UpdatedFiles) > 0 {
		if dry {
			fmt.Fprintln(w, "Files that would be updated:")
		} else {
			fmt.Fprintln(w, "Files updated:")
		}
		for _, f := range res.UpdatedFiles {
			fmt.Fprintf(w, "  %s\n", f)
		}
	}
	if dry && len(res.Plan) > 0 {
		fmt.Fprintln(w, "Steps that would run:")
		for _, s := range res.Plan {
			fmt.Fprintf(w, "  %s\n", s)
		}
	}
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
