// Package changes checks and reads the change log of the project.
//
// The change log lists releases newest first. Each release starts with a
// heading of the form "v1.2.3  2006-01-02", followed by a blank line and a
// list of bullets. Unreleased work sits under a "WIP" heading on the first
// line.
package changes

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/coreos/go-semver/semver"
)

// Mode selects how strict the linter is about the WIP heading.
type Mode int

const (
	// Standard accepts a change log with or without a WIP heading.
	Standard Mode = iota

	// PreRelease requires the WIP heading, since a release is about to be
	// cut from it.
	PreRelease

	// Release rejects the WIP heading, which should have been replaced by a
	// version heading.
	Release
)

// WIP is the heading of unreleased changes.
const WIP = "WIP"

// Failure is one problem found by the linter.
type Failure struct {
	Line    int
	Message string
}

// Error is returned by Lint when the change log has problems.
type Error struct {
	Failures []Failure
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("change log check failed:")
	for _, f := range e.Failures {
		fmt.Fprintf(&b, "\n * line %d: %s", f.Line, f.Message)
	}
	return b.String()
}

var (
	versionHeading = regexp.MustCompile(`^v(\d\S+) {2}(20\d\d-\d\d-\d\d)$`)
	bulletStart    = regexp.MustCompile(`^ \* \S`)
	bulletMore     = regexp.MustCompile(`^ {3}\S`)
)

// IsWIP returns true for the heading of unreleased changes.
func IsWIP(line string) bool {
	return line == WIP || line == WIP+"  TBD"
}

type lineKind int

const (
	kindNone lineKind = iota
	kindHeading
	kindBlank
	kindBullet
)

type linter struct {
	mode     Mode
	failures []Failure

	prev        lineKind
	headingLine int
	version     *semver.Version
	date        string
}

func (l *linter) failf(n int, f string, args ...any) {
	l.failures = append(l.failures, Failure{n, fmt.Sprintf(f, args...)})
}

func (l *linter) heading(n int, line string) {
	if n > 1 && l.prev != kindBlank {
		l.failf(n, "heading needs a blank line before it")
	}

	if IsWIP(line) {
		if n > 1 {
			l.failf(n, "WIP heading found after line 1")
		}
		if l.mode == Release {
			l.failf(n, "WIP heading found during release")
		}
		l.headingLine = n
		return
	}

	m := versionHeading.FindStringSubmatch(line)
	v, err := semver.NewVersion(m[1])
	if err != nil {
		l.failf(n, "bad version in heading: %v", err)
		l.headingLine = n
		return
	}

	if l.version != nil && l.version.LessThan(*v) {
		l.failf(n, "version %s is newer than %s on line %d", v, l.version, l.headingLine)
	}
	if l.date != "" && l.date < m[2] {
		l.failf(n, "date %s is later than %s on line %d", m[2], l.date, l.headingLine)
	}

	l.version, l.date, l.headingLine = v, m[2], n
}

func (l *linter) line(n int, line string) lineKind {
	if n == 1 && l.mode == PreRelease && !IsWIP(line) {
		l.failf(n, "WIP heading is missing before release")
	}

	switch {
	case IsWIP(line) || versionHeading.MatchString(line):
		l.heading(n, line)
		return kindHeading

	case line == "":
		if l.prev == kindBlank {
			l.failf(n, "consecutive blank lines")
		}
		return kindBlank

	case bulletStart.MatchString(line):
		switch {
		case l.headingLine == 0:
			l.failf(n, "bullet before the first heading")
		case l.prev == kindHeading:
			l.failf(n, "bullet needs a blank line after the heading")
		case l.prev == kindBlank && n > l.headingLine+2:
			l.failf(n, "blank line between bullets")
		}
		return kindBullet

	case bulletMore.MatchString(line):
		if l.prev != kindBullet {
			l.failf(n, "continuation line without a bullet")
		}
		return kindBullet

	case strings.TrimSpace(line) == "":
		l.failf(n, "line looks blank but has spaces in it")
		return kindBlank
	}

	l.failf(n, "badly formatted line")
	return kindNone
}

// Lint checks the change log read from r. It returns an *Error listing
// every problem found.
func Lint(r io.Reader, mode Mode) error {
	l := &linter{mode: mode}

	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		l.prev = l.line(n, sc.Text())
	}

	if err := sc.Err(); err != nil {
		return err
	}

	if len(l.failures) > 0 {
		return &Error{l.failures}
	}
	return nil
}
