// Package release automates cutting a release of the project: a release
// branch and pull request to start, then a merge, a tag and a GitHub release
// to finish.
package release

import (
	"path"
	"strings"

	"github.com/coreos/go-semver/semver"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
)

// Config describes the project and the release being made.
type Config struct {
	// Changelog is the change log file, relative to the repository root.
	Changelog string

	// Owner and Project name the repository on GitHub.
	Owner   string
	Project string

	// TargetBranch is the branch releases are merged into.
	TargetBranch string

	// Remote is the git remote to push to.
	Remote string
}

// DefaultConfig is the configuration of this project.
var DefaultConfig = Config{
	Changelog:    "Changes.md",
	Owner:        "zostay",
	Project:      "go-mimetree",
	TargetBranch: "master",
	Remote:       "origin",
}

// Version names the refs used while releasing one version.
type Version struct {
	*semver.Version
}

// ParseVersion parses a version with or without its leading "v".
func ParseVersion(v string) (Version, error) {
	sv, err := semver.NewVersion(strings.TrimPrefix(v, "v"))
	if err != nil {
		return Version{}, err
	}
	return Version{sv}, nil
}

// Tag is the name of the release tag, such as "v1.2.3".
func (v Version) Tag() string {
	return "v" + v.String()
}

// Branch is the name of the release branch.
func (v Version) Branch() string {
	return "release-" + v.Tag()
}

// BranchRef is the full reference name of the release branch.
func (v Version) BranchRef() plumbing.ReferenceName {
	return plumbing.NewBranchReferenceName(v.Branch())
}

// TagRef is the full reference name of the release tag.
func (v Version) TagRef() plumbing.ReferenceName {
	return plumbing.NewTagReferenceName(v.Tag())
}

// VersionFromBranch recovers the version from the name of a release branch.
func VersionFromBranch(ref plumbing.ReferenceName) (Version, error) {
	name := ref.Short()
	if !strings.HasPrefix(name, "release-v") {
		return Version{}, ErrNotReleaseBranch
	}
	return ParseVersion(strings.TrimPrefix(name, "release-"))
}

func refSpec(ref plumbing.ReferenceName) config.RefSpec {
	r := path.Clean(ref.String())
	return config.RefSpec(r + ":" + r)
}
