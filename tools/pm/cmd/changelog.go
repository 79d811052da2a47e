package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zostay/go-mimetree/tools/pm/changes"
	"github.com/zostay/go-mimetree/tools/pm/release"
)

var (
	changelogCmd = &cobra.Command{
		Use:   "changelog",
		Short: "Commands related to change logs",
	}

	lintChangelogCmd = &cobra.Command{
		Use:   "lint",
		Short: "Check the change log for formatting mistakes",
		Args:  cobra.NoArgs,
		RunE:  LintChangelog,
	}

	extractChangelogCmd = &cobra.Command{
		Use:   "extract <version>",
		Short: "Print the change log notes of a version",
		Args:  cobra.ExactArgs(1),
		RunE:  ExtractChangelog,
	}

	lintPreRelease bool
	lintRelease    bool
)

func init() {
	changelogCmd.AddCommand(lintChangelogCmd)
	changelogCmd.AddCommand(extractChangelogCmd)

	lintChangelogCmd.Flags().BoolVar(&lintPreRelease, "pre-release", false, "require a WIP heading at the top")
	lintChangelogCmd.Flags().BoolVar(&lintRelease, "release", false, "forbid any WIP heading")
	lintChangelogCmd.MarkFlagsMutuallyExclusive("pre-release", "release")
}

func LintChangelog(cmd *cobra.Command, _ []string) error {
	f, err := os.Open(release.DefaultConfig.Changelog)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	mode := changes.Standard
	switch {
	case lintPreRelease:
		mode = changes.PreRelease
	case lintRelease:
		mode = changes.Release
	}

	if err := changes.Lint(f, mode); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "change log is clean")
	return nil
}

func ExtractChangelog(cmd *cobra.Command, args []string) error {
	v, err := release.ParseVersion(args[0])
	if err != nil {
		return err
	}

	f, err := os.Open(release.DefaultConfig.Changelog)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	notes, err := changes.Section(f, v.Tag())
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), notes)
	return nil
}
