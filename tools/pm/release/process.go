package release

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/google/go-github/v49/github"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/zostay/go-mimetree/tools/pm/changes"
)

// Errors returned while releasing.
var (
	ErrNoToken          = errors.New("the GITHUB_TOKEN environment variable is missing")
	ErrNotReleaseBranch = errors.New("HEAD is not a release branch")
	ErrDirty            = errors.New("the working copy has uncommitted changes")
	ErrNotPushed        = errors.New("the local branch differs from the remote")
	ErrChecksPending    = errors.New("required checks have not passed")
)

// Process is a release in progress. Each step records how to undo itself so
// a failed release can be backed out.
type Process struct {
	Config
	Version

	log logrus.FieldLogger

	gh     *github.Client
	repo   *git.Repository
	remote *git.Remote
	wc     *git.Worktree

	undo []func()
}

// Open prepares a release of version v, or of the version named by the
// current release branch when v is empty. The repository is the one in the
// working directory.
func Open(ctx context.Context, cfg Config, v string, log logrus.FieldLogger) (*Process, error) {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		return nil, ErrNoToken
	}

	p := &Process{
		Config: cfg,
		log:    log,
		gh: github.NewClient(oauth2.NewClient(ctx,
			oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))),
	}

	var err error
	if p.repo, err = git.PlainOpen("."); err != nil {
		return nil, fmt.Errorf("unable to open git repository: %w", err)
	}
	if p.remote, err = p.repo.Remote(cfg.Remote); err != nil {
		return nil, fmt.Errorf("unable to find remote %s: %w", cfg.Remote, err)
	}
	if p.wc, err = p.repo.Worktree(); err != nil {
		return nil, fmt.Errorf("unable to examine the working copy: %w", err)
	}

	if v != "" {
		p.Version, err = ParseVersion(v)
		return p, err
	}

	head, err := p.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("unable to find HEAD: %w", err)
	}

	p.Version, err = VersionFromBranch(head.Name())
	return p, err
}

func (p *Process) onUndo(f func()) {
	p.undo = append(p.undo, f)
}

// Rollback undoes the steps taken so far, newest first.
func (p *Process) Rollback() {
	for i := len(p.undo) - 1; i >= 0; i-- {
		p.undo[i]()
	}
	p.undo = nil
}

// Start creates the release branch with the change log heading filled in,
// pushes it and opens a pull request for it.
func (p *Process) Start(ctx context.Context) error {
	steps := []func() error{
		p.checkClean,
		p.lintChangelog,
		p.makeBranch,
		p.stampChangelog,
		p.pushBranch,
		func() error { return p.openPullRequest(ctx) },
	}
	return p.run(steps)
}

// Finish merges the pull request of the release branch once its checks have
// passed, then tags the merge and creates the GitHub release.
func (p *Process) Finish(ctx context.Context) error {
	var notes string
	steps := []func() error{
		func() (err error) {
			notes, err = p.releaseNotes()
			return err
		},
		func() error { return p.checkPassing(ctx) },
		func() error { return p.merge(ctx) },
		p.tag,
		func() error { return p.publish(ctx, notes) },
	}
	return p.run(steps)
}

func (p *Process) run(steps []func() error) error {
	for _, step := range steps {
		if err := step(); err != nil {
			p.log.WithError(err).Error("release cancelled")
			p.Rollback()
			return err
		}
	}
	return nil
}

func (p *Process) checkClean() error {
	head, err := p.repo.Head()
	if err != nil {
		return fmt.Errorf("unable to find HEAD: %w", err)
	}

	target := plumbing.NewBranchReferenceName(p.TargetBranch)
	if head.Name() != target {
		return fmt.Errorf("you must checkout %s to release", p.TargetBranch)
	}

	refs, err := p.remote.List(&git.ListOptions{})
	if err != nil {
		return fmt.Errorf("unable to list remote references: %w", err)
	}

	pushed := false
	for _, ref := range refs {
		if ref.Name() == target {
			pushed = ref.Hash() == head.Hash()
			break
		}
	}
	if !pushed {
		return ErrNotPushed
	}

	st, err := p.wc.Status()
	if err != nil {
		return fmt.Errorf("unable to check working copy status: %w", err)
	}
	if !st.IsClean() {
		return ErrDirty
	}

	return nil
}

func (p *Process) lintChangelog() error {
	f, err := os.Open(p.Changelog)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	return changes.Lint(f, changes.PreRelease)
}

func (p *Process) makeBranch() error {
	err := p.repo.CreateBranch(&config.Branch{
		Name:   p.Branch(),
		Remote: p.Remote,
		Merge:  p.BranchRef(),
	})
	if err != nil {
		return fmt.Errorf("unable to create branch %s: %w", p.Branch(), err)
	}
	p.onUndo(func() { _ = p.repo.DeleteBranch(p.Branch()) })

	head, err := p.repo.Head()
	if err != nil {
		return err
	}

	err = p.wc.Checkout(&git.CheckoutOptions{Branch: p.BranchRef(), Hash: head.Hash(), Create: true})
	if err != nil {
		return fmt.Errorf("unable to switch to %s: %w", p.Branch(), err)
	}
	p.onUndo(func() {
		_ = p.wc.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(p.TargetBranch)})
	})

	p.log.WithField("branch", p.Branch()).Info("created release branch")
	return nil
}

// stampChangelog replaces the WIP heading with the version and today's date
// and commits the result.
func (p *Process) stampChangelog() error {
	orig, err := os.ReadFile(p.Changelog)
	if err != nil {
		return err
	}

	var out bytes.Buffer
	sc := bufio.NewScanner(bytes.NewReader(orig))
	for sc.Scan() {
		line := sc.Text()
		if changes.IsWIP(line) {
			line = fmt.Sprintf("%s  %s", p.Tag(), time.Now().Format("2006-01-02"))
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return err
	}

	if err := os.WriteFile(p.Changelog, out.Bytes(), 0o644); err != nil {
		return err
	}
	p.onUndo(func() { _ = os.WriteFile(p.Changelog, orig, 0o644) })

	if _, err := p.wc.Add(p.Changelog); err != nil {
		return fmt.Errorf("unable to add %s: %w", p.Changelog, err)
	}

	if _, err := p.wc.Commit("releng: "+p.Tag(), &git.CommitOptions{}); err != nil {
		return fmt.Errorf("unable to commit: %w", err)
	}

	return nil
}

func (p *Process) pushBranch() error {
	err := p.repo.Push(&git.PushOptions{
		RemoteName: p.Remote,
		RefSpecs:   []config.RefSpec{refSpec(p.BranchRef())},
	})
	if err != nil {
		return fmt.Errorf("unable to push %s: %w", p.Branch(), err)
	}
	return nil
}

func (p *Process) openPullRequest(ctx context.Context) error {
	pr, _, err := p.gh.PullRequests.Create(ctx, p.Owner, p.Project, &github.NewPullRequest{
		Title: github.String("Release " + p.Tag()),
		Head:  github.String(p.Branch()),
		Base:  github.String(p.TargetBranch),
		Body:  github.String(fmt.Sprintf("Pull request to release %s of %s.", p.Tag(), p.Project)),
	})
	if err != nil {
		return fmt.Errorf("unable to create pull request: %w", err)
	}

	p.log.WithField("url", pr.GetHTMLURL()).Info("opened pull request")
	return nil
}

func (p *Process) releaseNotes() (string, error) {
	f, err := os.Open(p.Changelog)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	return changes.Section(f, p.Tag())
}

func (p *Process) checkPassing(ctx context.Context) error {
	bp, _, err := p.gh.Repositories.GetBranchProtection(ctx, p.Owner, p.Project, p.TargetBranch)
	if err != nil {
		return fmt.Errorf("unable to get protection of %s: %w", p.TargetBranch, err)
	}

	passed := map[string]bool{}
	for _, check := range bp.GetRequiredStatusChecks().Checks {
		passed[check.Context] = false
	}

	runs, _, err := p.gh.Checks.ListCheckRunsForRef(ctx, p.Owner, p.Project, p.Branch(), &github.ListCheckRunsOptions{})
	if err != nil {
		return fmt.Errorf("unable to list check runs of %s: %w", p.Branch(), err)
	}

	for _, run := range runs.CheckRuns {
		passed[run.GetName()] = run.GetStatus() == "completed" && run.GetConclusion() == "success"
	}

	for name, ok := range passed {
		if !ok {
			return fmt.Errorf("%w: %s", ErrChecksPending, name)
		}
	}
	return nil
}

func (p *Process) merge(ctx context.Context) error {
	prs, _, err := p.gh.PullRequests.List(ctx, p.Owner, p.Project, &github.PullRequestListOptions{
		Head: p.Owner + ":" + p.Branch(),
	})
	if err != nil {
		return fmt.Errorf("unable to list pull requests: %w", err)
	}
	if len(prs) == 0 {
		return fmt.Errorf("no pull request found for %s", p.Branch())
	}

	n := prs[0].GetNumber()
	res, _, err := p.gh.PullRequests.Merge(ctx, p.Owner, p.Project, n, "Merging release branch.", &github.PullRequestOptions{})
	if err != nil {
		return fmt.Errorf("unable to merge pull request %d: %w", n, err)
	}
	if !res.GetMerged() {
		return fmt.Errorf("pull request %d was not merged: %s", n, res.GetMessage())
	}

	p.log.WithField("pr", n).Info("merged release")
	return nil
}

func (p *Process) tag() error {
	target := plumbing.NewBranchReferenceName(p.TargetBranch)
	if err := p.wc.Checkout(&git.CheckoutOptions{Branch: target}); err != nil {
		return fmt.Errorf("unable to switch to %s: %w", p.TargetBranch, err)
	}

	err := p.wc.Pull(&git.PullOptions{RemoteName: p.Remote, ReferenceName: target})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("unable to pull %s: %w", p.TargetBranch, err)
	}

	head, err := p.repo.Head()
	if err != nil {
		return err
	}

	_, err = p.repo.CreateTag(p.Tag(), head.Hash(), &git.CreateTagOptions{
		Message: "Release tag for " + p.Tag(),
	})
	if err != nil {
		return fmt.Errorf("unable to tag %s: %w", p.Tag(), err)
	}
	p.onUndo(func() { _ = p.repo.DeleteTag(p.Tag()) })

	err = p.repo.Push(&git.PushOptions{
		RemoteName: p.Remote,
		RefSpecs:   []config.RefSpec{refSpec(p.TagRef())},
	})
	if err != nil {
		return fmt.Errorf("unable to push %s: %w", p.Tag(), err)
	}
	p.onUndo(func() {
		_ = p.remote.Push(&git.PushOptions{
			RemoteName: p.Remote,
			RefSpecs:   []config.RefSpec{config.RefSpec(":" + p.TagRef().String())},
		})
	})

	return nil
}

func (p *Process) publish(ctx context.Context, notes string) error {
	rel, _, err := p.gh.Repositories.CreateRelease(ctx, p.Owner, p.Project, &github.RepositoryRelease{
		TagName:    github.String(p.Tag()),
		Name:       github.String("Release " + p.Tag()),
		Body:       github.String(notes),
		MakeLatest: github.String("true"),
	})
	if err != nil {
		return fmt.Errorf("unable to create release %s: %w", p.Tag(), err)
	}

	p.log.WithField("url", rel.GetHTMLURL()).Info("published release")
	return nil
}
