// Package podrelease provides a library for publishing a new version of a
// CocoaPods library in one guarded run.
//
// It provides functionalities for:
//   - Preflight checks on the repository (branch, clean working tree, parity
//     with the upstream branch).
//   - Resolving the new version, either verbatim or by bumping the manifest
//     version with patch, minor or major, and cross-checking it against the
//     project metadata.
//   - Writing the version into the manifest and the project, optionally
//     bumping the build number, then committing, tagging, pushing and
//     publishing the package.
//   - Rolling back commit, tag and push when a later step fails, so the
//     remote ends up exactly as it was before the run.
//
// The collaborators (git, manifest and project files, the registry) are
// interfaces; the gitrepo, manifest, xcodeproj and cocoapods packages hold
// the implementations used by the podrelease command.
//
// Usage Example:
//
//	import (
//	    "context"
//	    "log"
//
//	    podrelease "github.com/bcomnes/podrelease/pkg"
//	    "github.com/bcomnes/podrelease/pkg/cocoapods"
//	    "github.com/bcomnes/podrelease/pkg/gitrepo"
//	    "github.com/bcomnes/podrelease/pkg/manifest"
//	    "github.com/bcomnes/podrelease/pkg/xcodeproj"
//	)
//
//	func main() {
//	    repo, err := gitrepo.Open(".", "origin")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    r := podrelease.New(repo, manifest.Podspec{}, xcodeproj.Project{}, cocoapods.NewPublisher("pod", "."))
//
//	    req := podrelease.NewRequest("MyLib.podspec", "MyLib.xcodeproj")
//	    req.BumpType = podrelease.BumpMinor
//	    res, err := r.Run(context.Background(), req)
//	    if err != nil {
//	        log.Fatalf("release failed: %v", err)
//	    }
//	    log.Println("released", res.NewVersion)
//	}
package podrelease
