// Package config loads the podrelease configuration.
//
// Configuration precedence (highest to lowest):
//  1. Command line flags
//  2. Environment variables (PODRELEASE_BUMP_TYPE, PODRELEASE_LOG_LEVEL, ...)
//  3. YAML config file (--config, else .podrelease.yml in the working directory)
//  4. Defaults
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/bcomnes/podrelease/internal/logging"
	podrelease "github.com/bcomnes/podrelease/pkg"
)

const (
	// EnvPrefix prefixes every environment variable read.
	EnvPrefix = "PODRELEASE_"

	// DefaultFile is loaded from the working directory when no file is given.
	DefaultFile = ".podrelease.yml"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

// listKeys hold comma-separated lists when set from the environment.
var listKeys = map[string]bool{
	"include":          true,
	"registry_sources": true,
}

// Config is the full podrelease configuration.
type Config struct {
	Dir      string `koanf:"dir"`
	Remote   string `koanf:"remote"`
	Manifest string `koanf:"manifest"`
	Project  string `koanf:"project"`

	Version         string `koanf:"version"`
	BumpType        string `koanf:"bump_type"`
	TagPrefix       string `koanf:"tag_prefix"`
	BumpBuildNumber bool   `koanf:"bump_build_number"`
	BuildNumber     string `koanf:"build_number"`

	CommitMessage string   `koanf:"commit_message"`
	Include       []string `koanf:"include"`

	Branch            string `koanf:"branch"`
	RequireClean      bool   `koanf:"require_clean"`
	CheckRemoteParity bool   `koanf:"check_remote_parity"`
	CheckVersionSync  bool   `koanf:"check_version_sync"`

	RegistryRepo    string   `koanf:"registry_repo"`
	RegistrySources []string `koanf:"registry_sources"`
	AllowWarnings   bool     `koanf:"allow_warnings"`
	PodBin          string   `koanf:"pod_bin"`

	Log logging.Config `koanf:"log"`
}

// defaults are loaded first. bump_type has no default so that a conflict
// with version can be detected.
func defaults() map[string]any {
	return map[string]any{
		"dir":                 ".",
		"remote":              "origin",
		"commit_message":      podrelease.DefaultCommitMessage,
		"branch":              podrelease.DefaultBranch,
		"require_clean":       true,
		"check_remote_parity": true,
		"check_version_sync":  true,
		"registry_repo":       podrelease.DefaultRegistryRepo,
		"registry_sources":    append([]string(nil), podrelease.DefaultRegistrySources...),
		"allow_warnings":      true,
		"pod_bin":             "pod",
		"log.level":           "info",
		"log.format":          logging.FormatAuto,
	}
}

// LoadOptions controls Load.
type LoadOptions struct {
	// File is an explicit config file; it must exist.
	File string
	// Overrides are applied last, keyed like the YAML file ("log.level").
	Overrides map[string]any
}

// Load builds the configuration from defaults, the config file, the
// environment and opts.Overrides.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	for key, v := range defaults() {
		if err := k.Set(key, v); err != nil {
			return nil, fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}

	path, required := opts.File, true
	if path == "" {
		path, required = DefaultFile, false
	}
	if err := loadFile(k, path, required); err != nil {
		return nil, err
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	for key, v := range opts.Overrides {
		if err := k.Set(key, v); err != nil {
			return nil, fmt.Errorf("failed to apply flag %s: %w", key, err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Log.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", podrelease.ErrConfiguration, err)
	}
	return &cfg, nil
}

// envKey maps PODRELEASE_BUMP_TYPE to bump_type and PODRELEASE_LOG_LEVEL to
// log.level. List keys are split on commas.
func envKey(key, value string) (string, any) {
	k := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if rest, ok := strings.CutPrefix(k, "log_"); ok {
		k = "log." + rest
	}
	if listKeys[k] {
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return k, items
	}
	return k, value
}

func loadFile(k *koanf.Koanf, path string, required bool) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) && !required {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: failed to open config file: %v", podrelease.ErrConfiguration, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("%w: config file %s is larger than %d bytes", podrelease.ErrConfiguration, path, maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return fmt.Errorf("%w: failed to load config file %s: %v", podrelease.ErrConfiguration, path, err)
	}
	return nil
}

// firstMatch returns the first entry of dir matching pattern, or "".
func firstMatch(dir, pattern string) string {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil || len(matches) == 0 {
		return ""
	}
	return matches[0]
}

// inDir resolves a relative path against dir.
func (c *Config) inDir(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// ToRequest builds the release request. An unset manifest or project
// defaults to the first *.podspec or *.xcodeproj in Dir; a bump type that
// does not parse is passed through so the request validation reports it.
func (c *Config) ToRequest() *podrelease.Request {
	manifest := c.inDir(c.Manifest)
	if manifest == "" {
		manifest = firstMatch(c.Dir, "*.podspec")
	}
	project := c.inDir(c.Project)
	if project == "" {
		project = firstMatch(c.Dir, "*.xcodeproj")
	}

	req := podrelease.NewRequest(manifest, project)
	req.ExplicitVersion = c.Version
	req.BumpType = podrelease.BumpType(c.BumpType)
	if b, err := podrelease.ParseBumpType(c.BumpType); err == nil {
		req.BumpType = b
	}
	req.TagPrefix = c.TagPrefix
	req.BumpBuildNumber = c.BumpBuildNumber
	req.BuildNumber = c.BuildNumber
	req.CommitMessage = c.CommitMessage
	for _, p := range c.Include {
		req.IncludePaths = append(req.IncludePaths, c.inDir(p))
	}
	req.BranchConstraint = c.Branch
	req.RequireCleanStatus = c.RequireClean
	req.CheckRemoteParity = c.CheckRemoteParity
	req.CheckVersionSync = c.CheckVersionSync
	req.RegistryRepo = c.RegistryRepo
	req.RegistrySources = c.RegistrySources
	req.AllowPublishWarnings = c.AllowWarnings
	return req
}
