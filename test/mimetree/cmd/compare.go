package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/jhillyerd/enmime"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/zostay/go-mimetree/message"
	"github.com/zostay/go-mimetree/message/walker"
)

var compareCmd = &cobra.Command{
	Use:   "compare message...",
	Short: "Cross-check the leaf parts of messages against enmime",
	Args:  cobra.MinimumNArgs(1),
	RunE:  RunCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)
}

// leaf is one content part as both parsers see it.
type leaf struct {
	contentType string
	text        bool
	content     []byte
}

func ourLeaves(m *message.Message) ([]leaf, error) {
	var leaves []leaf
	var pw walker.PartWalker = func(_, _ int, p *message.Part) error {
		// uuencoded attachments are found only by this parser
		if p.IsUUEncoded() || (p.IsMultipart() && p.ChildCount() > 0) {
			return nil
		}

		b, err := io.ReadAll(p.Reader())
		if err != nil {
			return fmt.Errorf("part #%d: %w", p.ID(), err)
		}

		leaves = append(leaves, leaf{
			contentType: p.ContentType(),
			text:        p.IsText(),
			content:     b,
		})
		return nil
	}

	if err := pw.Walk(m.Root()); err != nil {
		return nil, err
	}
	return leaves, m.Err()
}

func enmimeLeaves(path string) ([]leaf, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	env, err := enmime.ReadEnvelope(f)
	if err != nil {
		return nil, err
	}

	for _, perr := range env.Errors {
		logger.WithField("file", path).Debugf("enmime: %v", perr)
	}

	var (
		leaves []leaf
		visit  func(p *enmime.Part)
	)
	visit = func(p *enmime.Part) {
		if p.FirstChild == nil {
			leaves = append(leaves, leaf{
				contentType: p.ContentType,
				content:     p.Content,
			})
			return
		}
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(env.Root)

	return leaves, nil
}

// compareOne reports the differences found in one message and returns how
// many leaves disagree.
func compareOne(out io.Writer, path string) (int, error) {
	m, done, err := openMessage(path)
	if err != nil {
		return 0, err
	}
	defer done()

	ours, err := ourLeaves(m)
	if err != nil {
		return 0, err
	}

	theirs, err := enmimeLeaves(path)
	if err != nil {
		return 0, err
	}

	if len(ours) != len(theirs) {
		_, _ = fmt.Fprintf(out, "%s: %d leaves, enmime found %d\n", path, len(ours), len(theirs))
		return 1, nil
	}

	dmp := diffmatchpatch.New()
	bad := 0
	for i := range ours {
		a, b := ours[i], theirs[i]
		if a.contentType != b.contentType {
			_, _ = fmt.Fprintf(out, "%s: leaf %d is %s, enmime says %s\n", path, i, a.contentType, b.contentType)
			bad++
			continue
		}

		if !a.text {
			if !bytes.Equal(a.content, b.content) {
				_, _ = fmt.Fprintf(out, "%s: leaf %d (%s) content differs: %d bytes, enmime has %d\n",
					path, i, a.contentType, len(a.content), len(b.content))
				bad++
			}
			continue
		}

		at := string(bytes.TrimRight(a.content, "\r\n"))
		bt := string(bytes.TrimRight(b.content, "\r\n"))
		if at != bt {
			diffs := dmp.DiffMain(bt, at, false)
			_, _ = fmt.Fprintf(out, "%s: leaf %d (%s) text differs:\n%s\n", path, i, a.contentType, dmp.DiffPrettyText(diffs))
			bad++
		}
	}

	return bad, nil
}

// RunCompare parses each message with both parsers and prints where they
// disagree.
func RunCompare(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	failed := 0
	for _, path := range args {
		bad, err := compareOne(out, path)
		if err != nil {
			_, _ = fmt.Fprintf(out, "%s: %v\n", path, err)
			failed++
			continue
		}

		if bad > 0 {
			failed++
			continue
		}

		logger.WithField("file", path).Info("same")
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d messages differ", failed, len(args))
	}
	return nil
}
