package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
)

// Read returns at most maxLines from the end of the file at path. A missing
// file yields no lines and no error.
func Read(path string, maxLines int) ([]string, error) {
	if maxLines <= 0 {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	ring := make([]string, maxLines)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	seen := 0
	for scanner.Scan() {
		ring[seen%maxLines] = scanner.Text()
		seen++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	if seen <= maxLines {
		return append([]string(nil), ring[:seen]...), nil
	}
	lines := make([]string, maxLines)
	start := seen % maxLines
	for i := range lines {
		lines[i] = ring[(start+i)%maxLines]
	}
	return lines, nil
}

// Tail reads the last maxLines of path and decodes them. Lines that are not
// JSON log events are kept as plain messages.
func Tail(path string, maxLines int) ([]Entry, error) {
	lines, err := Read(path, maxLines)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		entries = append(entries, Parse(line))
	}
	return entries, nil
}
