package source

import (
	"bytes"
	"io"
	"os"
)

// spool keeps every byte pulled from a forward-only reader so that it can be
// read again by offset. Data lives in memory until maxMemory is exceeded and
// is then moved into a temporary file.
type spool struct {
	maxMemory int64
	tempDir   string

	size int64
	mem  bytes.Buffer
	file *os.File
}

func newSpool(maxMemory int64, tempDir string) *spool {
	return &spool{
		maxMemory: maxMemory,
		tempDir:   tempDir,
	}
}

func (s *spool) Write(p []byte) (int, error) {
	if s.file == nil && s.size+int64(len(p)) > s.maxMemory {
		f, err := os.CreateTemp(s.tempDir, "mimetree-spool-")
		if err != nil {
			return 0, err
		}

		if _, err := f.Write(s.mem.Bytes()); err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
			return 0, err
		}

		s.file = f
		s.mem = bytes.Buffer{}
	}

	var (
		n   int
		err error
	)
	if s.file != nil {
		n, err = s.file.WriteAt(p, s.size)
	} else {
		n, err = s.mem.Write(p)
	}

	s.size += int64(n)
	return n, err
}

func (s *spool) ReadAt(p []byte, off int64) (int, error) {
	if off >= s.size {
		return 0, io.EOF
	}

	if s.file != nil {
		want := p
		if rest := s.size - off; int64(len(want)) > rest {
			want = want[:rest]
		}
		n, err := s.file.ReadAt(want, off)
		if err == nil && n < len(p) {
			err = io.EOF
		}
		return n, err
	}

	n := copy(p, s.mem.Bytes()[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (s *spool) Size() int64 { return s.size }

func (s *spool) Close() error {
	s.mem = bytes.Buffer{}
	if s.file != nil {
		err := s.file.Close()
		_ = os.Remove(s.file.Name())
		s.file = nil
		return err
	}
	return nil
}
