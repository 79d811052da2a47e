package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zostay/go-mimetree/message"
)

var (
	rootCmd = &cobra.Command{
		Use:   "mimetree",
		Short: "Tools for inspecting how messages are parsed",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if verbose {
				logger.SetLevel(logrus.DebugLevel)
			}
		},
	}

	logger = logrus.New()

	verbose bool
	strict  bool
	detect  bool
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log the problems the parser recovers from")
	rootCmd.PersistentFlags().BoolVarP(&strict, "strict", "s", false, "fail reads on malformed content")
	rootCmd.PersistentFlags().BoolVar(&detect, "detect-charset", false, "guess the charset of text parts that do not declare one")

	logger.SetOutput(os.Stderr)
}

// Execute runs the mimetree command.
func Execute() error {
	return rootCmd.Execute()
}

// openMessage parses the message file at path using the options set by the
// global flags. The returned function closes both the message and the file.
func openMessage(path string, opts ...message.ParseOption) (*message.Message, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	opts = append(opts, message.WithLogger(logger.WithField("file", path)))
	if strict {
		opts = append(opts, message.WithStrict())
	}
	if detect {
		opts = append(opts, message.DetectUndeclaredCharset())
	}

	m, err := message.Parse(f, opts...)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}

	return m, func() {
		_ = m.Close()
		_ = f.Close()
	}, nil
}
