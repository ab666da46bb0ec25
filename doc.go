// Package main implements the podrelease CLI tool.
//
// The podrelease tool publishes a new version of a CocoaPods library in one
// guarded run. It checks that the repository is on the release branch, clean
// and level with its upstream, resolves the new version (an explicit one, or
// the podspec version bumped by patch, minor or major), writes it into the
// podspec and the Xcode project, optionally bumps the build number, then
// commits, tags, pushes and runs `pod trunk push` (or `pod repo push`).
//
// If the commit, tag, push or publish step fails, the steps already done are
// undone: the branch is reset to where it was, the tag is deleted locally and
// on the remote, and the remote branch is force-pushed back.
//
// Command Usage:
//
//	podrelease [flags] [<version-bump>]
//
// <version-bump> is patch, minor, major or an explicit version such as 1.2.3.
// Without it the bump type comes from --bump-type and defaults to patch.
//
// Flags:
//
//	--config:          YAML config file (default ./.podrelease.yml when present).
//	--dry-run:         Validate and resolve, print the plan, change nothing.
//	--manifest:        The podspec (default: first *.podspec in --dir).
//	--project:         The .xcodeproj or Info.plist (default: first *.xcodeproj).
//	--release-version: Explicit version, used verbatim; conflicts with --bump-type.
//	--bump-type:       patch, minor or major.
//	--tag-prefix:      Prepended to the version to form the tag.
//	--branch:          Branch name or regular expression (default master).
//	--include:         Extra file to commit. May be repeated.
//	--registry-repo:   Spec repo (default Trunk, meaning pod trunk push).
//	--registry-source: Spec source for linting. May be repeated.
//
// Every flag can also be set as PODRELEASE_<KEY> in the environment, for
// example PODRELEASE_BUMP_TYPE=minor, or as <key> in the config file.
//
// Example:
//
//	podrelease minor --tag-prefix v
//
// On success the released version is printed on stdout and the command
// exits 0. On failure "Error: <message>" is printed on stderr and the
// command exits 1.
package main
