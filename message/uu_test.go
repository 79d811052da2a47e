package message_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zostay/go-mimetree/message"
	"github.com/zostay/go-mimetree/message/transfer"
)

const uuMsg = "Subject: a file\n" +
	"\n" +
	"Here is the file:\n" +
	"begin 644 cat.txt\n" +
	"#0V%T\n" +
	"`\n" +
	"end\n" +
	"And another:\n" +
	"begin 600 as is.txt\n" +
	"%87,@:7,`\n" +
	"`\n" +
	"end\n" +
	"Bye.\n"

func TestUU_Attachments(t *testing.T) {
	t.Parallel()

	m := parse(t, uuMsg)
	root := m.Root()
	assert.Equal(t, 1, m.Len())

	kids := root.Children()
	require.Len(t, kids, 2)

	cat := kids[0]
	assert.True(t, cat.IsUUEncoded())
	assert.Equal(t, "cat.txt", cat.Filename())
	assert.Equal(t, "application/octet-stream", cat.ContentType())
	assert.Equal(t, "attachment", cat.Disposition())
	assert.Equal(t, transfer.UUEncode, cat.TransferEncoding())
	assert.Equal(t, os.FileMode(0o644), cat.UnixMode())
	assert.Equal(t, 1, cat.Depth())
	assert.Equal(t, "Cat", content(t, cat))
	assert.Equal(t, "begin 644 cat.txt\n#0V%T\n`\nend\n", raw(t, cat))
	assert.Empty(t, cat.Errors())

	other := kids[1]
	assert.Equal(t, "as is.txt", other.Filename())
	assert.Equal(t, os.FileMode(0o600), other.UnixMode())
	assert.Equal(t, "as is", content(t, other))

	assert.False(t, root.IsUUEncoded())
	assert.Equal(t, os.FileMode(0), root.UnixMode())
	assert.Equal(t, "Here is the file:\nAnd another:\nBye.\n", content(t, root))
}

func TestUU_MissingEnd(t *testing.T) {
	t.Parallel()

	m := parse(t, "Content-Type: text/plain\n\n"+
		"text\n"+
		"begin 644 cat.txt\n"+
		"#0V%T\n")

	root := m.Root()
	kids := root.Children()
	require.Len(t, kids, 1)

	assert.Equal(t, "Cat", content(t, kids[0]))
	assert.Contains(t, kids[0].Errors(), transfer.ErrMissingEnd)
	assert.Equal(t, "text\n", content(t, root))
}

func TestUU_InsideMultipart(t *testing.T) {
	t.Parallel()

	m := parse(t, "Content-Type: multipart/mixed; boundary=b\n\n"+
		"--b\n"+
		"Content-Type: text/plain\n\n"+
		"begin 644 cat.txt\n"+
		"#0V%T\n"+
		"`\n"+
		"end\n"+
		"--b\n"+
		"Content-Type: text/plain\n\n"+
		"nothing here\n"+
		"--b--\n")

	text := m.Root().Child(0)
	require.NotNil(t, text)

	uu := text.Child(0)
	require.NotNil(t, uu)
	assert.Equal(t, "Cat", content(t, uu))
	assert.Equal(t, "", content(t, text))

	found := m.Root().Find(func(p *message.Part) bool {
		return p.Filename() == "cat.txt"
	})
	assert.Same(t, uu, found)

	assert.Equal(t, 0, m.Root().Child(1).ChildCount())
}

func TestUU_NotSearched(t *testing.T) {
	t.Parallel()

	m := parse(t, uuMsg, message.WithoutUUEncode())
	assert.Equal(t, 0, m.Root().ChildCount())
	assert.Equal(t, uuMsg[len("Subject: a file\n\n"):], content(t, m.Root()))

	m = parse(t, "Content-Type: text/html\n\n"+uuMsg[len("Subject: a file\n\n"):])
	assert.Equal(t, 0, m.Root().ChildCount(), "only text/plain is searched")

	m = parse(t, "Content-Type: text/plain\nContent-Transfer-Encoding: base64\n\n"+
		"YmVnaW4gNjQ0IGNhdC50eHQKIzBWJVQKYAplbmQK\n")
	assert.Equal(t, 0, m.Root().ChildCount(), "encoded text is not searched")
}

func TestUU_NotABeginLine(t *testing.T) {
	t.Parallel()

	const body = "begin the story here\nbegin 644\nend\n"
	m := parse(t, "Content-Type: text/plain\n\n"+body)
	assert.Equal(t, 0, m.Root().ChildCount())
	assert.Equal(t, body, content(t, m.Root()))
}

func TestUU_EightBitFilename(t *testing.T) {
	t.Parallel()

	const name = "caf\xe9\tx \"1\".txt"
	m := parse(t, "Content-Type: text/plain\n\n"+
		"begin 644 "+name+"\n"+
		"#0V%T\n"+
		"`\n"+
		"end\n")

	uu := m.Root().Child(0)
	require.NotNil(t, uu)
	assert.Equal(t, name, uu.Filename())
	assert.Equal(t, name, uu.HeaderParameter("Content-Type", "name", ""))
	assert.Equal(t, "Cat", content(t, uu))
}
