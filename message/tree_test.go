package message_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zostay/go-mimetree/message"
)

func isLeaf(p *message.Part) bool {
	return !p.IsMultipart()
}

func contentTypes(ps []*message.Part) []string {
	cts := make([]string, len(ps))
	for i, p := range ps {
		cts[i] = p.ContentType()
	}
	return cts
}

func TestPart_Find(t *testing.T) {
	t.Parallel()

	m := parse(t, nestedMsg)

	plain := m.Root().Find(func(p *message.Part) bool {
		return p.ContentType() == "text/plain"
	})
	require.NotNil(t, plain)
	assert.Equal(t, "plain text", content(t, plain))
	assert.Equal(t, 3, m.Len(), "Find stops discovering at the first match")

	assert.Same(t, m.Root(), m.Root().Find(func(*message.Part) bool { return true }))

	none := m.Root().Find(func(p *message.Part) bool {
		return p.ContentType() == "image/png"
	})
	assert.Nil(t, none)
	assert.Equal(t, 5, m.Len())
}

func TestPart_FindBreadthFirst(t *testing.T) {
	t.Parallel()

	m := parse(t, nestedMsg)

	first := m.Root().Find(isLeaf)
	require.NotNil(t, first)
	assert.Equal(t, "text/plain", first.ContentType())

	shallow := m.Root().FindBreadthFirst(isLeaf)
	require.NotNil(t, shallow)
	assert.Equal(t, "application/octet-stream", shallow.ContentType())

	assert.Nil(t, m.Root().FindBreadthFirst(func(*message.Part) bool { return false }))
}

func TestPart_FindAll(t *testing.T) {
	t.Parallel()

	m := parse(t, nestedMsg)

	assert.Equal(t,
		[]string{"text/plain", "text/html", "application/octet-stream"},
		contentTypes(m.Root().FindAll(isLeaf)))

	assert.Equal(t,
		[]string{"text/plain", "text/html"},
		contentTypes(m.Root().FindAll((*message.Part).IsText)))

	alt := m.Root().Child(0)
	require.NotNil(t, alt)
	assert.Equal(t,
		[]string{"multipart/alternative", "text/plain", "text/html"},
		contentTypes(alt.FindAll(func(*message.Part) bool { return true })),
		"FindAll stays below the part it starts from")

	assert.Empty(t, m.Root().FindAll(func(*message.Part) bool { return false }))
}

func TestPart_FindByContentID(t *testing.T) {
	t.Parallel()

	m := parse(t, "Content-Type: multipart/related; boundary=r\n"+
		"Content-ID: <root@example.com>\n\n"+
		"--r\n"+
		"Content-Type: text/html\n\n"+
		"<img src=\"cid:logo@example.com\">\n"+
		"--r\n"+
		"Content-Type: image/png\n"+
		"Content-ID: <logo@example.com>\n\n"+
		"first\n"+
		"--r\n"+
		"Content-Type: image/png\n"+
		"Content-ID: <logo@example.com>\n\n"+
		"second\n"+
		"--r\n"+
		"Content-Type: text/plain\n"+
		"Content-ID: \n\n"+
		"blank id\n"+
		"--r--\n")

	root := m.Root()

	for _, id := range []string{"logo@example.com", "<logo@example.com>", " LOGO@example.COM "} {
		logo := root.FindByContentID(id)
		require.NotNil(t, logo, id)
		assert.Equal(t, "first", raw(t, logo), "the first match in document order wins")
	}

	assert.Same(t, root, root.FindByContentID("root@example.com"))
	assert.Nil(t, root.FindByContentID("missing@example.com"))
	assert.Nil(t, root.FindByContentID(""))
	assert.Nil(t, root.FindByContentID("<>"))
}
