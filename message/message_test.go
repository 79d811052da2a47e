package message_test

import (
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zostay/go-mimetree/message"
	"github.com/zostay/go-mimetree/message/header/field"
)

const nestedMsg = "Subject: nested\n" +
	"Content-Type: multipart/mixed; boundary=AAA\n" +
	"\n" +
	"This is the preamble.\n" +
	"--AAA\n" +
	"Content-Type: multipart/alternative; boundary=BBB\n" +
	"\n" +
	"--BBB\n" +
	"Content-Type: text/plain; charset=utf-8\n" +
	"\n" +
	"plain text\n" +
	"--BBB\n" +
	"Content-Type: text/html; charset=utf-8\n" +
	"\n" +
	"<p>html</p>\n" +
	"--BBB--\n" +
	"--AAA\n" +
	"Content-Type: application/octet-stream\n" +
	"Content-Transfer-Encoding: base64\n" +
	"Content-ID: <abc123>\n" +
	"\n" +
	"aGVsbG8=\n" +
	"--AAA--\n" +
	"This is the epilogue.\n"

func parse(t *testing.T, in string, opts ...message.ParseOption) *message.Message {
	t.Helper()

	m, err := message.Parse(strings.NewReader(in), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func content(t *testing.T, p *message.Part) string {
	t.Helper()

	b, err := io.ReadAll(p.Reader())
	require.NoError(t, err)
	return string(b)
}

func raw(t *testing.T, p *message.Part) string {
	t.Helper()

	b, err := io.ReadAll(p.RawReader())
	require.NoError(t, err)
	return string(b)
}

func TestParse_Nested(t *testing.T) {
	t.Parallel()

	m := parse(t, nestedMsg)
	root := m.Root()

	assert.Equal(t, "nested", root.HeaderValue("subject", ""))
	assert.True(t, root.IsMultipart())
	assert.Nil(t, root.Parent())
	assert.Equal(t, message.PartID(0), root.ID())

	kids := root.Children()
	require.Len(t, kids, 2)

	alt, att := kids[0], kids[1]
	assert.Equal(t, "multipart/alternative", alt.ContentType())
	assert.Equal(t, 1, alt.Depth())
	assert.Same(t, root, alt.Parent())

	leaves := alt.Children()
	require.Len(t, leaves, 2)
	assert.Equal(t, "text/plain", leaves[0].ContentType())
	assert.Equal(t, "plain text", content(t, leaves[0]))
	assert.Equal(t, "text/html", leaves[1].ContentType())
	assert.Equal(t, "<p>html</p>", content(t, leaves[1]))
	assert.Equal(t, 2, leaves[1].Depth())

	assert.Equal(t, "application/octet-stream", att.ContentType())
	assert.Equal(t, "aGVsbG8=", raw(t, att))
	assert.Equal(t, "hello", content(t, att))

	assert.Equal(t,
		"--BBB\n"+
			"Content-Type: text/plain; charset=utf-8\n"+
			"\n"+
			"plain text\n"+
			"--BBB\n"+
			"Content-Type: text/html; charset=utf-8\n"+
			"\n"+
			"<p>html</p>\n"+
			"--BBB--",
		raw(t, alt))

	body := nestedMsg[strings.Index(nestedMsg, "\n\n")+2:]
	assert.Equal(t, body, raw(t, root))
	assert.Equal(t, int64(len(nestedMsg)), root.EndOffset())

	assert.Equal(t, 5, m.Len())
	assert.NoError(t, m.Err())
	for id := message.PartID(0); int(id) < m.Len(); id++ {
		assert.Empty(t, m.Part(id).Errors(), "part %d", id)
	}
}

func TestParse_Containment(t *testing.T) {
	t.Parallel()

	m := parse(t, nestedMsg)

	var check func(p *message.Part)
	check = func(p *message.Part) {
		assert.LessOrEqual(t, p.HeaderOffset(), p.BodyOffset())
		assert.LessOrEqual(t, p.BodyOffset(), p.EndOffset())

		kids := p.Children()
		for i, c := range kids {
			assert.GreaterOrEqual(t, c.HeaderOffset(), p.BodyOffset())
			assert.LessOrEqual(t, c.EndOffset(), p.EndOffset())
			if i > 0 {
				assert.LessOrEqual(t, kids[i-1].EndOffset(), c.HeaderOffset())
			}
			check(c)
		}
	}

	check(m.Root())
}

func TestParse_CRLF(t *testing.T) {
	t.Parallel()

	in := strings.ReplaceAll(nestedMsg, "\n", "\r\n")
	m := parse(t, in)

	plain := m.Root().Child(0).Child(0)
	require.NotNil(t, plain)
	assert.Equal(t, "plain text", content(t, plain))

	att := m.Root().Child(1)
	require.NotNil(t, att)
	assert.Equal(t, "aGVsbG8=", raw(t, att))
	assert.Equal(t, "hello", content(t, att))
}

func TestParse_Lazy(t *testing.T) {
	t.Parallel()

	m := parse(t, nestedMsg)
	assert.Equal(t, 1, m.Len(), "only the root header is read up front")

	alt := m.Root().Child(0)
	require.NotNil(t, alt)
	assert.Equal(t, 2, m.Len())

	plain := alt.Child(0)
	require.NotNil(t, plain)
	assert.Equal(t, 3, m.Len())

	assert.Len(t, m.Root().Children(), 2)
	assert.Equal(t, 5, m.Len())

	assert.Nil(t, m.Root().Child(2))
	assert.Nil(t, m.Root().Child(-1))
	assert.Nil(t, m.Part(5))
	assert.Nil(t, m.Part(message.NoPart))
}

func TestParse_HeaderlessRoot(t *testing.T) {
	t.Parallel()

	m := parse(t, "just some text\nmore\n")
	root := m.Root()

	assert.Equal(t, 0, root.Header().Len())
	assert.Equal(t, "text/plain", root.ContentType())
	assert.Equal(t, int64(0), root.BodyOffset())
	assert.Equal(t, "just some text\nmore\n", content(t, root))
	assert.Empty(t, root.Children())
}

func TestParse_HeaderOnly(t *testing.T) {
	t.Parallel()

	m := parse(t, "Subject: hi")
	root := m.Root()

	assert.Equal(t, "hi", root.HeaderValue("Subject", ""))
	assert.Equal(t, int64(11), root.BodyOffset())
	assert.Equal(t, "", content(t, root))
}

func TestParse_Empty(t *testing.T) {
	t.Parallel()

	m := parse(t, "")
	root := m.Root()

	assert.Equal(t, 0, root.Header().Len())
	assert.Equal(t, "", content(t, root))
	assert.Equal(t, 0, root.ChildCount())
	assert.NoError(t, m.Err())
}

func TestParse_MalformedHeader(t *testing.T) {
	t.Parallel()

	m := parse(t, "Subject: ok\nX-Fine: yes\nno colon here\n\nbody\n")
	root := m.Root()

	assert.Equal(t, "ok", root.HeaderValue("subject", ""))
	assert.Equal(t, "yes", root.HeaderValue("x-fine", ""))
	assert.Equal(t, "body\n", content(t, root))

	errs := root.Errors()
	require.Len(t, errs, 1)
	var mhe *field.MalformedHeaderError
	assert.ErrorAs(t, errs[0], &mhe)
}

func TestParse_LargeHeader(t *testing.T) {
	t.Parallel()

	m := parse(t, "Subject: short\nX-Long: aaaaaaaaaaaaaaaa\n\nbody",
		message.WithMaxHeaderLength(20))
	root := m.Root()

	assert.Equal(t, "short", root.HeaderValue("Subject", ""))
	assert.Equal(t, "", root.HeaderValue("X-Long", ""))
	assert.Equal(t, "X-Long: aaaaaaaaaaaaaaaa\n\nbody", content(t, root))
	assert.Contains(t, root.Errors(), message.ErrLargeHeader)
}

func TestParse_WithoutMultipart(t *testing.T) {
	t.Parallel()

	m := parse(t, nestedMsg, message.WithoutMultipart())
	root := m.Root()

	assert.True(t, root.IsMultipart())
	assert.Equal(t, 0, root.ChildCount())
	assert.Empty(t, root.Errors())

	body := nestedMsg[strings.Index(nestedMsg, "\n\n")+2:]
	assert.Equal(t, body, raw(t, root))
}

func TestParse_WithoutRecursion(t *testing.T) {
	t.Parallel()

	m := parse(t, nestedMsg, message.WithoutRecursion())
	kids := m.Root().Children()
	require.Len(t, kids, 2)

	alt := kids[0]
	assert.True(t, alt.IsMultipart())
	assert.Equal(t, 0, alt.ChildCount())
	assert.True(t, strings.HasPrefix(raw(t, alt), "--BBB\n"))
	assert.Equal(t, "hello", content(t, kids[1]))
}

func TestParse_Spooled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m, err := message.Parse(iotest.OneByteReader(strings.NewReader(nestedMsg)),
		message.WithChunkSize(7),
		message.WithMemoryLimit(16),
		message.WithTempDir(dir),
	)
	require.NoError(t, err)

	att := m.Root().FindByContentID("abc123")
	require.NotNil(t, att)
	assert.Equal(t, "hello", content(t, att))

	plain := m.Root().Child(0).Child(0)
	assert.Equal(t, "plain text", content(t, plain))

	spooled, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, spooled)

	require.NoError(t, m.Close())

	spooled, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, spooled)
}

func TestParse_ShortLines(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 100)
	in := "Content-Type: multipart/mixed; boundary=b\n\n" +
		"--b\n\n" + long + "\n" +
		"--b\n\n" + "not a boundary: --b in the middle " + long + "\n" +
		"--b--\n"

	m := parse(t, in, message.WithMaxLineLength(16))
	kids := m.Root().Children()
	require.Len(t, kids, 2)
	assert.Equal(t, long, content(t, kids[0]))
	assert.Equal(t, "not a boundary: --b in the middle "+long, content(t, kids[1]))
}

func TestParse_ShortLinesSplitCRLF(t *testing.T) {
	t.Parallel()

	const line = "abcdefghijklmno"
	in := "Content-Type: multipart/mixed; boundary=AAA\r\n\r\n" +
		"--AAA\r\n\r\n" +
		line + "\r\n" +
		"--AAA\r\n\r\n" +
		line + "\rmore\r\n" +
		"--AAA--\r\n"

	m := parse(t, in, message.WithMaxLineLength(16))
	kids := m.Root().Children()
	require.Len(t, kids, 2)

	assert.Equal(t, line, content(t, kids[0]))
	assert.Equal(t, line, raw(t, kids[0]))
	assert.Equal(t, int64(strings.Index(in, line)+len(line)), kids[0].EndOffset())

	assert.Equal(t, line+"\rmore", raw(t, kids[1]), "a CR without LF is content")
}

func TestParse_ShortLinesHeader(t *testing.T) {
	t.Parallel()

	m := parse(t, "Content-Type: multipart/mixed; boundary=AAA\n\n"+
		"--AAA\n"+
		"Content-Type: text/html\n\n"+
		"<p>hi</p>\n"+
		"--AAA--\n", message.WithMaxLineLength(8))

	root := m.Root()
	assert.Equal(t, "multipart/mixed", root.ContentType())

	kids := root.Children()
	require.Len(t, kids, 1)
	assert.Equal(t, "text/html", kids[0].ContentType())
	assert.Equal(t, "<p>hi</p>", content(t, kids[0]))

	const text = "just some text: no header here\n"
	m = parse(t, text, message.WithMaxLineLength(8))
	assert.Equal(t, 0, m.Root().Header().Len())
	assert.Equal(t, int64(0), m.Root().BodyOffset())
	assert.Equal(t, text, raw(t, m.Root()))
}

func TestMessage_Close(t *testing.T) {
	t.Parallel()

	m, err := message.Parse(strings.NewReader(nestedMsg))
	require.NoError(t, err)

	alt := m.Root().Child(0)
	require.NotNil(t, alt)
	r := alt.Child(0).Reader()

	require.NoError(t, m.Close())

	_, err = io.ReadAll(r)
	assert.ErrorIs(t, err, message.ErrSourceClosed)

	_, err = io.ReadAll(alt.RawReader())
	assert.ErrorIs(t, err, message.ErrSourceClosed)

	_, err = alt.ReadContent(make([]byte, 10))
	assert.ErrorIs(t, err, message.ErrSourceClosed)

	kids := m.Root().Children()
	assert.Len(t, kids, 1, "nothing more is discovered once closed")
	assert.ErrorIs(t, m.Err(), message.ErrSourceClosed)
}

func TestMessage_Locking(t *testing.T) {
	t.Parallel()

	m := parse(t, nestedMsg, message.WithLocking())

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			var p *message.Part
			if i%2 == 0 {
				p = m.Root().FindByContentID("abc123")
			} else {
				p = m.Root().Find(func(p *message.Part) bool {
					return p.ContentType() == "text/html"
				})
			}
			if p == nil {
				return
			}

			b, err := io.ReadAll(p.Reader())
			if err == nil {
				results[i] = string(b)
			}
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		if i%2 == 0 {
			assert.Equal(t, "hello", got)
		} else {
			assert.Equal(t, "<p>html</p>", got)
		}
	}
	assert.Equal(t, 5, m.Len())
}

func TestMessage_LockingRoot(t *testing.T) {
	t.Parallel()

	m := parse(t, nestedMsg, message.WithLocking())
	root := m.Root()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			if i%2 == 0 {
				root.FindAll(func(*message.Part) bool { return true })
				return
			}

			for j := 0; j < 100; j++ {
				assert.Same(t, root, m.Root())
				assert.Same(t, root, root.Child(0).Root())
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, m.Len())
}

func TestPart_ParseEmbedded(t *testing.T) {
	t.Parallel()

	in := "Content-Type: multipart/mixed; boundary=outer\n\n" +
		"--outer\n" +
		"Content-Type: message/rfc822\n\n" +
		"Subject: inside\n" +
		"Content-Type: multipart/mixed; boundary=inner\n\n" +
		"--inner\n\nfirst\n" +
		"--inner\n\nsecond\n" +
		"--inner--\n" +
		"--outer--\n"

	m := parse(t, in)
	em := m.Root().Child(0)
	require.NotNil(t, em)
	assert.Equal(t, 0, em.ChildCount(), "embedded messages are leaves")

	inner, err := em.ParseEmbedded()
	require.NoError(t, err)
	t.Cleanup(func() { _ = inner.Close() })

	assert.Equal(t, "inside", inner.Root().HeaderValue("subject", ""))
	kids := inner.Root().Children()
	require.Len(t, kids, 2)
	assert.Equal(t, "first", content(t, kids[0]))
	assert.Equal(t, "second", content(t, kids[1]))

	_, err = m.Root().ParseEmbedded()
	assert.ErrorIs(t, err, message.ErrNotEmbedded)
}
