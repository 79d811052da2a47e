package changes_test

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zostay/go-mimetree/tools/pm/changes"
)

const goodLog = `WIP

 * Add the thing.
 * Fix the other thing, which took a
   second line to describe.

v0.2.0  2023-02-01

 * Second release.

v0.1.0  2023-01-15

 * First release.
`

func TestLint(t *testing.T) {
	t.Parallel()

	assert.NoError(t, changes.Lint(strings.NewReader(goodLog), changes.Standard))
	assert.NoError(t, changes.Lint(strings.NewReader(goodLog), changes.PreRelease))

	err := changes.Lint(strings.NewReader(goodLog), changes.Release)
	var cerr *changes.Error
	require.ErrorAs(t, err, &cerr)
	require.Len(t, cerr.Failures, 1)
	assert.Equal(t, 1, cerr.Failures[0].Line)

	released := strings.Replace(goodLog, "WIP", "v0.3.0  2023-03-01", 1)
	assert.NoError(t, changes.Lint(strings.NewReader(released), changes.Release))

	err = changes.Lint(strings.NewReader(released), changes.PreRelease)
	assert.ErrorAs(t, err, &cerr)
}

func TestLint_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		log  string
		line int
	}{
		{"version order", "v0.1.0  2023-01-01\n\n * a\n\nv0.2.0  2022-12-01\n\n * b\n", 5},
		{"date order", "v0.2.0  2023-01-01\n\n * a\n\nv0.1.0  2023-02-01\n\n * b\n", 5},
		{"bullet first", " * a\n", 1},
		{"no blank after heading", "v0.1.0  2023-01-01\n * a\n", 2},
		{"double blank", "v0.1.0  2023-01-01\n\n\n * a\n", 3},
		{"orphan continuation", "v0.1.0  2023-01-01\n\n   more\n", 3},
		{"spaces", "v0.1.0  2023-01-01\n\n * a\n  \n", 4},
		{"junk", "v0.1.0  2023-01-01\n\n * a\nwhat is this\n", 4},
		{"late WIP", "v0.1.0  2023-01-01\n\n * a\n\nWIP\n", 5},
	}

	for _, test := range tests {
		err := changes.Lint(strings.NewReader(test.log), changes.Standard)

		var cerr *changes.Error
		require.ErrorAs(t, err, &cerr, test.name)
		assert.Equal(t, test.line, cerr.Failures[0].Line, test.name)
	}
}

func TestSection(t *testing.T) {
	t.Parallel()

	s, err := changes.Section(strings.NewReader(goodLog), "v0.2.0")
	require.NoError(t, err)
	assert.Equal(t, " * Second release.\n", s)

	s, err = changes.Section(strings.NewReader(goodLog), changes.WIP)
	require.NoError(t, err)
	assert.Equal(t, " * Add the thing.\n * Fix the other thing, which took a\n   second line to describe.\n", s)

	_, err = changes.Section(strings.NewReader(goodLog), "v9.9.9")
	assert.Error(t, err)
}

func TestLint_ProjectChangeLog(t *testing.T) {
	t.Parallel()

	f, err := os.Open("../../../Changes.md")
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.NoError(t, changes.Lint(f, changes.Standard))
}
