package transfer_test

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zostay/go-mimetree/message/transfer"
)

const uuCat = "begin 644 cat.txt\n" +
	"#0V%T\n" +
	"`\n" +
	"end\n"

const uuLonger = "junk before\r\n" +
	"begin 0600 hello.txt\r\n" +
	",:&5L;&\\@=V]R;&0*\r\n" +
	"`\r\n" +
	"end\r\n" +
	"junk after\r\n"

func TestNewUUDecoder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short", uuCat, "Cat"},
		{"surrounded", uuLonger, "hello world\n"},
		{"no terminator line", "begin 644 x\n#0V%T\nend\n", "Cat"},
		{"no end", "begin 644 x\n#0V%T\n", "Cat"},
		{"short line padded", "begin 644 x\n#0V\nend\n", "C`\x00"},
		{"no begin", "#0V%T\nend\n", ""},
	}

	for _, test := range tests {
		r := transfer.NewUUDecoder(strings.NewReader(test.in), false)
		got, err := io.ReadAll(r)
		require.NoError(t, err, test.name)
		assert.Equal(t, test.want, string(got), test.name)
	}
}

func TestNewUUDecoder_Strict(t *testing.T) {
	t.Parallel()

	got, err := io.ReadAll(transfer.NewUUDecoder(strings.NewReader(uuLonger), true))
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", string(got))

	bad := []struct {
		name string
		in   string
		err  error
	}{
		{"no begin", "#0V%T\nend\n", transfer.ErrMissingBegin},
		{"no end", "begin 644 x\n#0V%T\n", transfer.ErrMissingEnd},
		{"short line", "begin 644 x\n#0V\nend\n", transfer.ErrShortLine},
		{"bad character", "begin 644 x\n#0V\x7fT\nend\n", transfer.ErrBadCharacter},
	}

	for _, test := range bad {
		_, err := io.ReadAll(transfer.NewUUDecoder(strings.NewReader(test.in), true))
		var de *transfer.DecodeError
		require.ErrorAs(t, err, &de, test.name)
		assert.Equal(t, transfer.UUEncode, de.Encoding, test.name)
		assert.ErrorIs(t, err, test.err, test.name)
	}
}

func TestParseBeginLine(t *testing.T) {
	t.Parallel()

	mode, name, ok := transfer.ParseBeginLine([]byte("begin 644 cat.txt\r\n"))
	assert.True(t, ok)
	assert.Equal(t, uint32(0o644), mode)
	assert.Equal(t, "cat.txt", name)

	mode, name, ok = transfer.ParseBeginLine([]byte("begin 0755 my file.sh"))
	assert.True(t, ok)
	assert.Equal(t, uint32(0o755), mode)
	assert.Equal(t, "my file.sh", name)

	for _, line := range []string{
		"begin 64 x",
		"begin 648 x",
		"begin 644",
		"begin 644 ",
		"Begin 644 x",
		"beginning 644 x",
	} {
		assert.False(t, transfer.IsBeginLine([]byte(line)), line)
	}

	assert.True(t, transfer.IsEndLine([]byte("end\r\n")))
	assert.True(t, transfer.IsEndLine([]byte("end  ")))
	assert.False(t, transfer.IsEndLine([]byte("ending")))
}
