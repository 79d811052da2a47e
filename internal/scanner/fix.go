package scanner

import (
	"bufio"
	"errors"
)

// ErrContinue may be returned by a SplitFunc wrapped with
// MakeSplitFuncExitByAdvance to say that the advance should be taken without
// returning a token, even where the scanner would otherwise stop.
var ErrContinue = errors.New("split func continue")

// MakeSplitFuncExitByAdvance wraps a bufio.SplitFunc so that a call that
// consumes input without producing a token loops back into split instead of
// handing control back to bufio.Scanner, which would end the scan at EOF when
// no token is returned. This lets a SplitFunc drop data (such as lines that are
// being skipped) without writing an inner loop of its own.
func MakeSplitFuncExitByAdvance(split bufio.SplitFunc) bufio.SplitFunc {
	return func(data []byte, atEOF bool) (int, []byte, error) {
		totalAdvance := 0
		for {
			advance, token, err := split(data, atEOF)

			// advance == 0 means split wants more input; returning is the only
			// way to get it.
			if !errors.Is(err, ErrContinue) && (token != nil || advance == 0 || len(data)-advance <= 0 || err != nil) {
				return totalAdvance + advance, token, err
			}

			data = data[advance:]
			totalAdvance += advance
		}
	}
}
