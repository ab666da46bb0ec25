// Package cocoapods publishes a podspec with the pod command line tool.
package cocoapods

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/bcomnes/podrelease/internal/command"
	podrelease "github.com/bcomnes/podrelease/pkg"
)

// TrunkRepo is the registry repo name that selects `pod trunk push`.
const TrunkRepo = "Trunk"

// Publisher runs `pod trunk push` or `pod repo push`. It implements
// podrelease.Registry.
type Publisher struct {
	// Bin is the pod executable.
	Bin string
	// Dir is the working directory pod runs in.
	Dir string

	Logger *zap.Logger
}

// NewPublisher returns a Publisher running bin (default "pod") in dir.
func NewPublisher(bin, dir string) *Publisher {
	if bin == "" {
		bin = "pod"
	}
	return &Publisher{Bin: bin, Dir: dir, Logger: zap.NewNop()}
}

// Args returns the pod arguments for req.
func Args(req podrelease.PublishRequest) []string {
	var args []string
	if req.Repo == "" || strings.EqualFold(req.Repo, TrunkRepo) {
		args = []string{"trunk", "push", req.ManifestPath}
	} else {
		args = []string{"repo", "push", req.Repo, req.ManifestPath}
	}
	if req.AllowWarnings {
		args = append(args, "--allow-warnings")
	}
	if len(req.Sources) > 0 {
		args = append(args, "--sources="+strings.Join(req.Sources, ","))
	}
	return args
}

// Publish pushes the podspec to the registry. A failure is returned as a
// *podrelease.CommandError.
func (p *Publisher) Publish(ctx context.Context, req podrelease.PublishRequest) error {
	args := Args(req)
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("publishing pod", zap.String("command", command.Line(p.Bin, args...)))

	out, err := command.Run(ctx, p.Dir, p.Bin, args...)
	if err != nil {
		return err
	}
	log.Debug("pod output", zap.String("output", out))
	return nil
}

var _ podrelease.Registry = (*Publisher)(nil)
