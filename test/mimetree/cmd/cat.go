package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zostay/go-mimetree/message"
)

var (
	catCmd = &cobra.Command{
		Use:   "cat message [path]",
		Short: "Write the content of one part to standard output",
		Long: `Write the content of one part to standard output.

The part is picked by its path, a dot separated list of child indexes
starting from the top-level part ("1.0" is the first child of the second
child), or by its Content-ID. Without either the top-level part is used.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: RunCat,
	}

	catRaw      bool
	catCID      string
	catCharset  string
	catNoRecode bool
)

func init() {
	catCmd.Flags().BoolVarP(&catRaw, "raw", "r", false, "write the content without decoding it")
	catCmd.Flags().StringVar(&catCID, "cid", "", "pick the part with this Content-ID")
	catCmd.Flags().StringVar(&catCharset, "charset", message.DefaultTargetCharset, "charset to convert text to")
	catCmd.Flags().BoolVar(&catNoRecode, "no-recode", false, "leave text in the charset it was sent in")
	rootCmd.AddCommand(catCmd)
}

// findPath follows a dotted list of child indexes down from start.
func findPath(start *message.Part, path string) (*message.Part, error) {
	p := start
	if path == "" {
		return p, nil
	}

	for _, step := range strings.Split(path, ".") {
		i, err := strconv.Atoi(step)
		if err != nil {
			return nil, fmt.Errorf("bad part path %q: %w", path, err)
		}

		c := p.Child(i)
		if c == nil {
			return nil, fmt.Errorf("no part at %q", path)
		}
		p = c
	}

	return p, nil
}

// RunCat copies the decoded or raw content of a part to standard output.
func RunCat(cmd *cobra.Command, args []string) error {
	opts := []message.ParseOption{message.WithTargetCharset(catCharset)}
	if catNoRecode {
		opts = append(opts, message.WithoutCharsetConversion())
	}

	m, done, err := openMessage(args[0], opts...)
	if err != nil {
		return err
	}
	defer done()

	var p *message.Part
	switch {
	case catCID != "":
		p = m.Root().FindByContentID(catCID)
		if p == nil {
			return fmt.Errorf("no part with Content-ID %q", catCID)
		}
	case len(args) > 1:
		p, err = findPath(m.Root(), args[1])
		if err != nil {
			return err
		}
	default:
		p = m.Root()
	}

	var r io.Reader = p.Reader()
	if catRaw {
		r = p.RawReader()
	}

	_, err = io.Copy(cmd.OutOrStdout(), r)
	return err
}
