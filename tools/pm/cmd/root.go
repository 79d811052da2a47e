package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:          "pm",
		Short:        "Golang project management tools by zostay",
		SilenceUsage: true,
	}

	logger = logrus.New()
)

func init() {
	logger.SetOutput(os.Stderr)

	rootCmd.AddCommand(changelogCmd)
	rootCmd.AddCommand(releaseCmd)
}

func Execute() error {
	return rootCmd.Execute()
}
