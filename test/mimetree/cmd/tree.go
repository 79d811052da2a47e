package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zostay/go-mimetree/message"
	"github.com/zostay/go-mimetree/message/walker"
)

var (
	treeCmd = &cobra.Command{
		Use:   "tree message",
		Short: "Print the part tree of a message",
		Args:  cobra.ExactArgs(1),
		RunE:  RunTree,
	}

	maxDepth int
)

func init() {
	treeCmd.Flags().IntVarP(&maxDepth, "depth", "d", -1, "do not split multipart parts nested deeper than this")
	rootCmd.AddCommand(treeCmd)
}

// RunTree prints one line per part, indented by depth.
func RunTree(cmd *cobra.Command, args []string) error {
	m, done, err := openMessage(args[0], message.WithMaxDepth(maxDepth))
	if err != nil {
		return err
	}
	defer done()

	out := cmd.OutOrStdout()
	var pw walker.PartWalker = func(depth, i int, p *message.Part) error {
		desc := []string{p.ContentType()}
		if cs := p.Charset(); cs != "" {
			desc = append(desc, "charset="+cs)
		}
		if cte := p.TransferEncoding(); cte != "7bit" {
			desc = append(desc, "encoding="+cte)
		}
		if fn := p.Filename(); fn != "" {
			desc = append(desc, fmt.Sprintf("filename=%q", fn))
		}
		if cid := p.ContentID(); cid != "" {
			desc = append(desc, "cid="+cid)
		}
		if p.Truncated() {
			desc = append(desc, "truncated")
		}

		_, err := fmt.Fprintf(out, "%s[%d] #%d %s (%d-%d)\n",
			strings.Repeat("  ", depth), i, p.ID(),
			strings.Join(desc, " "),
			p.BodyOffset(), p.EndOffset())
		if err != nil {
			return err
		}

		for _, perr := range p.Errors() {
			if _, err := fmt.Fprintf(out, "%s  ! %v\n", strings.Repeat("  ", depth), perr); err != nil {
				return err
			}
		}
		return nil
	}

	if err := pw.Walk(m.Root()); err != nil {
		return err
	}

	return m.Err()
}
