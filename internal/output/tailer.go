package output

import (
	"bufio"
	"io"
	"os"

	jerrors "jeeves/internal/errors"
)

// Tailer tracks a byte offset into a growing log file and yields lines
// appended since the last call. If the file shrinks below the tracked
// offset (truncated or replaced by a new file of the same name) the offset
// resets to zero before reading, so the next call re-reads from the start.
type Tailer struct {
	path     string
	lastSize int64
	offset   int64
}

// NewTailer creates a Tailer starting at offset zero.
func NewTailer(path string) *Tailer {
	return &Tailer{path: path}
}

// Offset reports the tailer's current read position.
func (t *Tailer) Offset() int64 { return t.offset }

// ReadNewLines returns any complete lines appended to the file since the
// last read. A trailing partial line (no final newline yet) is left
// unconsumed so a subsequent call can complete it.
func (t *Tailer) ReadNewLines() ([]string, error) {
	info, err := os.Stat(t.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, jerrors.Wrap(jerrors.KindIO, "output.Tailer.ReadNewLines", err)
	}
	size := info.Size()
	if size < t.lastSize {
		t.offset = 0
	}
	t.lastSize = size
	if t.offset >= size {
		return nil, nil
	}

	f, err := os.Open(t.path)
	if err != nil {
		return nil, jerrors.Wrap(jerrors.KindIO, "output.Tailer.ReadNewLines", err)
	}
	defer f.Close()

	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return nil, jerrors.Wrap(jerrors.KindIO, "output.Tailer.ReadNewLines", err)
	}

	var lines []string
	reader := bufio.NewReader(f)
	consumed := t.offset
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 && line[len(line)-1] == '\n' {
			lines = append(lines, line[:len(line)-1])
			consumed += int64(len(line))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return lines, jerrors.Wrap(jerrors.KindIO, "output.Tailer.ReadNewLines", err)
		}
	}
	t.offset = consumed
	return lines, nil
}
