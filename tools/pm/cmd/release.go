package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zostay/go-mimetree/tools/pm/release"
)

var (
	releaseCmd = &cobra.Command{
		Use:   "release",
		Short: "commands related to software releases",
	}

	startReleaseCmd = &cobra.Command{
		Use:   "start <version>",
		Short: "Start a release",
		Args:  cobra.ExactArgs(1),
		RunE:  StartRelease,
	}

	finishReleaseCmd = &cobra.Command{
		Use:   "finish",
		Short: "Finish the release started on the current branch",
		Args:  cobra.NoArgs,
		RunE:  FinishRelease,
	}

	targetBranch string
)

func init() {
	releaseCmd.AddCommand(startReleaseCmd)
	releaseCmd.AddCommand(finishReleaseCmd)

	releaseCmd.PersistentFlags().StringVar(&targetBranch, "target-branch", "master", "the branch to merge into during release")
}

func MakeReleaseConfig() release.Config {
	cfg := release.DefaultConfig
	cfg.TargetBranch = targetBranch
	return cfg
}

func StartRelease(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	p, err := release.Open(ctx, MakeReleaseConfig(), args[0], logger.WithField("step", "start"))
	if err != nil {
		return err
	}

	return p.Start(ctx)
}

func FinishRelease(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	p, err := release.Open(ctx, MakeReleaseConfig(), "", logger.WithField("step", "finish"))
	if err != nil {
		return err
	}

	return p.Finish(ctx)
}
