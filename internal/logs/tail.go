package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const pollInterval = 250 * time.Millisecond

// TailOptions controls a Tail call. A negative Offset reads the last Limit
// matching entries; otherwise reading resumes at Offset. With Follow set and
// nothing new, Tail polls for up to Wait.
type TailOptions struct {
	Offset int64
	Limit  int
	Follow bool
	Wait   time.Duration
	Filter Filter
}

// TailResult carries the matching entries and the offset to resume from.
type TailResult struct {
	Entries []Entry
	Offset  int64
}

// Tail reads entries from the log at path. A missing file yields no entries.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
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
	if opts.Wait < 0 {
		opts.Wait = 0
	}

	var entries []Entry
	var offset int64
	if opts.Offset < 0 {
		entries, offset, err = scanFrom(path, 0, opts.Filter)
		if err != nil {
			return result, err
		}
		if opts.Limit <= 0 {
			entries = nil
		} else if len(entries) > opts.Limit {
			entries = entries[len(entries)-opts.Limit:]
		}
	} else {
		start := opts.Offset
		if start > info.Size() {
			// Truncated or rotated; start over.
			start = 0
		}
		entries, offset, err = scanFrom(path, start, opts.Filter)
		if err != nil {
			return result, err
		}
	}

	result.Entries = entries
	result.Offset = offset
	if opts.Follow && opts.Wait > 0 && len(entries) == 0 {
		return waitForEntries(ctx, path, offset, opts)
	}
	return result, nil
}

func scanFrom(path string, offset int64, filter Filter) ([]Entry, int64, error) {
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

	reader := bufio.NewReader(file)
	var entries []Entry
	pos := offset
	for {
		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			// A partial trailing line is left for the next read.
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read log file: %w", err)
		}
		pos += int64(len(line))
		entry, ok := ParseEntry(line)
		if !ok || !filter.Match(entry) {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, pos, nil
}

func waitForEntries(ctx context.Context, path string, offset int64, opts TailOptions) (TailResult, error) {
	deadline := time.Now().Add(opts.Wait)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	result := TailResult{Offset: offset}
	for {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-ticker.C:
		}

		entries, next, err := scanFrom(path, result.Offset, opts.Filter)
		if err != nil {
			return result, err
		}
		result.Offset = next
		if len(entries) > 0 {
			result.Entries = entries
			return result, nil
		}
		if time.Now().After(deadline) {
			return result, nil
		}
	}
}
