package process

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// tailWindow bounds how much of a log file is read to find the last lines
const tailWindow = 64 * 1024

// Tail returns up to n trailing lines of the file at path
func Tail(path string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat log: %w", err)
	}

	offset := int64(0)
	if info.Size() > tailWindow {
		offset = info.Size() - tailWindow
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek log: %w", err)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}

	data = bytes.TrimRight(data, "\n")
	if len(data) == 0 {
		return nil, nil
	}

	lines := bytes.Split(data, []byte("\n"))
	if offset > 0 && len(lines) > 1 {
		// the first line is probably cut in half
		lines = lines[1:]
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}

	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = string(l)
	}
	return out, nil
}
