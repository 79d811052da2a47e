package changes

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Section returns the bullets listed under the heading for version, which is
// given with its leading "v" or as "WIP".
func Section(r io.Reader, version string) (string, error) {
	var (
		b       strings.Builder
		started bool
	)

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()

		isHeading := IsWIP(line) || versionHeading.MatchString(line)
		if !started {
			started = isHeading && (line == version || strings.HasPrefix(line, version+"  "))
			continue
		}

		if isHeading {
			break
		}

		if line != "" {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	if err := sc.Err(); err != nil {
		return "", err
	}

	if !started {
		return "", fmt.Errorf("no change log section for %s", version)
	}

	return b.String(), nil
}
