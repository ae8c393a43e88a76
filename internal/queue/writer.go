package queue

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"

	"ctbb/internal/fileutil"
	"ctbb/internal/jobs"
)

const queueFileMode = 0o644

// Writer commits entries to a queue file.
type Writer struct {
	// Sync flushes each commit to stable storage before returning.
	Sync bool
}

// Commit writes entries to the queue at path according to priority.
//
// PriorityNormal appends the entries after the current content in one write.
// PriorityHigh places them ahead of the current content and replaces the file
// atomically; a missing file counts as empty. Any other priority returns a
// *ConfigurationError before the file is touched. Committing zero entries
// leaves the file as it is and does not create it.
func (w Writer) Commit(path string, entries []jobs.Entry, priority Priority) error {
	if priority != PriorityNormal && priority != PriorityHigh {
		return &ConfigurationError{Field: "priority", Value: string(priority), Msg: "must be normal or high"}
	}
	if len(entries) == 0 {
		return nil
	}
	payload := jobs.Encode(entries)

	if priority == PriorityHigh {
		existing, err := fileutil.ReadFileOrEmpty(path)
		if err != nil {
			return ioErr("read", path, err)
		}
		data := make([]byte, 0, len(payload)+len(existing))
		data = append(data, payload...)
		data = append(data, existing...)
		return ioErr("replace", path, fileutil.WriteFileAtomic(path, data, queueFileMode, w.Sync))
	}

	unterminated, err := lacksTrailingNewline(path)
	if err != nil {
		return ioErr("read", path, err)
	}
	if unterminated {
		payload = append([]byte{'\n'}, payload...)
	}
	return ioErr("append", path, fileutil.AppendFile(path, payload, queueFileMode, w.Sync))
}

// lacksTrailingNewline reports whether path is a non-empty file whose last
// byte is not a newline, which would glue the next appended entry onto the
// final line.
func lacksTrailingNewline(path string) (bool, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if info.Size() == 0 {
		return false, nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	return last[0] != '\n', nil
}

// Read returns the entries currently in the queue. A missing file is an
// empty queue.
func Read(path string) ([]jobs.Entry, error) {
	data, err := fileutil.ReadFileOrEmpty(path)
	if err != nil {
		return nil, ioErr("read", path, err)
	}
	entries, err := jobs.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ioErr("parse", path, err)
	}
	return entries, nil
}

// Stats summarises the queue file.
type Stats struct {
	Path    string `json:"path"`
	Exists  bool   `json:"exists"`
	Entries int    `json:"entries"`
	Bytes   int64  `json:"bytes"`
}

// Stat counts the non-blank lines in the queue without parsing them, so a
// malformed line written by another tool does not hide the backlog size.
func Stat(path string) (Stats, error) {
	stats := Stats{Path: path}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return stats, nil
	}
	if err != nil {
		return stats, ioErr("read", path, err)
	}
	stats.Exists = true
	stats.Bytes = int64(len(data))
	for line := range bytes.Lines(data) {
		if len(bytes.TrimSpace(line)) > 0 {
			stats.Entries++
		}
	}
	return stats, nil
}
