package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// CurrentName is the pointer the daemon keeps at its active log file.
const CurrentName = "docflow.log"

const (
	defaultPoll = 250 * time.Millisecond
	maxLineSize = 1024 * 1024
)

// TailOptions controls a single read. A negative Offset means "last Limit
// lines"; otherwise reading resumes at Offset.
type TailOptions struct {
	Offset int64
	Limit  int
	Match  string
}

type TailResult struct {
	Lines  []string
	Offset int64
}

// CurrentPath returns the log file the daemon is writing to inside logDir.
func CurrentPath(logDir string) string {
	current := filepath.Join(logDir, CurrentName)
	target, err := os.Readlink(current)
	if err != nil {
		return current
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(logDir, target)
	}
	return target
}

// Tail reads lines from path. A missing file yields no lines and offset 0.
func Tail(path string, opts TailOptions) (TailResult, error) {
	result := TailResult{Offset: opts.Offset}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			result.Offset = 0
			return result, nil
		}
		return result, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return result, fmt.Errorf("log path %q is a directory", path)
	}

	match := newMatcher(opts.Match)
	if opts.Offset < 0 {
		lines, offset, err := readLastLines(path, opts.Limit, match)
		if err != nil {
			return result, err
		}
		return TailResult{Lines: lines, Offset: offset}, nil
	}

	offset := opts.Offset
	if offset > info.Size() {
		// Rotated or truncated underneath us; start over.
		offset = 0
	}
	lines, next, err := readForward(path, offset, match)
	if err != nil {
		return result, err
	}
	return TailResult{Lines: lines, Offset: next}, nil
}

// Follow polls path from offset and hands each new line to emit until ctx
// is cancelled. A nil error is returned on cancellation.
func Follow(ctx context.Context, path string, offset int64, match string, poll time.Duration, emit func(string)) error {
	if poll <= 0 {
		poll = defaultPoll
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		result, err := Tail(path, TailOptions{Offset: offset, Match: match})
		if err != nil {
			return err
		}
		for _, line := range result.Lines {
			emit(line)
		}
		offset = result.Offset

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

var folder = cases.Fold()

func newMatcher(pattern string) func(string) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return func(string) bool { return true }
	}
	needle := folder.String(pattern)
	return func(line string) bool {
		return strings.Contains(folder.String(line), needle)
	}
}

func readLastLines(path string, limit int, match func(string) bool) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		offset, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, offset, nil
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	ring := make([]string, limit)
	count, idx := 0, 0
	for scanner.Scan() {
		line := scanner.Text()
		if !match(line) {
			continue
		}
		ring[idx] = line
		idx = (idx + 1) % limit
		if count < limit {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	offset, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	lines := make([]string, count)
	if count == limit {
		for i := range count {
			lines[i] = ring[(idx+i)%limit]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, offset, nil
}

func readForward(path string, offset int64, match func(string) bool) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	// Only consume complete lines so a half-written entry is picked up whole
	// on the next poll.
	reader := bufio.NewReaderSize(file, 64*1024)
	var lines []string
	next := offset
	for {
		chunk, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, 0, fmt.Errorf("read log file: %w", err)
		}
		next += int64(len(chunk))
		line := strings.TrimRight(chunk, "\r\n")
		if match(line) {
			lines = append(lines, line)
		}
	}
	return lines, next, nil
}
