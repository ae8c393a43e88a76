package jobs

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

const fieldCount = 4

// Entry is one serialized job record.
type Entry struct {
	Case      string
	Dose      int
	Kernel    int
	Thickness float64
}

// String renders the entry without the trailing newline.
func (e Entry) String() string {
	var b strings.Builder
	b.Grow(len(e.Case) + 16)
	b.WriteString(e.Case)
	b.WriteByte(',')
	b.WriteString(strconv.Itoa(e.Dose))
	b.WriteByte(',')
	b.WriteString(strconv.Itoa(e.Kernel))
	b.WriteByte(',')
	b.WriteString(FormatThickness(e.Thickness))
	return b.String()
}

// Line renders the entry as a complete queue line.
func (e Entry) Line() string {
	return e.String() + "\n"
}

// FormatThickness renders a slice thickness the way existing queue files
// spell it: shortest round-trip decimal, always with a fractional part
// (5 -> "5.0"), and exponent form only for very large or very small values.
func FormatThickness(v float64) string {
	abs := math.Abs(v)
	if abs != 0 && !math.IsInf(v, 0) && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}

// Encode concatenates the queue lines for entries in order.
func Encode(entries []Entry) []byte {
	var buf bytes.Buffer
	for _, e := range entries {
		buf.WriteString(e.Line())
	}
	return buf.Bytes()
}

// ParseEntry decodes one queue line. A trailing newline is tolerated.
func ParseEntry(line string) (Entry, error) {
	line = strings.TrimRight(line, "\r\n")
	fields := strings.Split(line, ",")
	if len(fields) != fieldCount {
		return Entry{}, fmt.Errorf("queue line %q: expected %d fields, got %d", line, fieldCount, len(fields))
	}
	if fields[0] == "" {
		return Entry{}, fmt.Errorf("queue line %q: empty case", line)
	}
	dose, err := strconv.Atoi(fields[1])
	if err != nil {
		return Entry{}, fmt.Errorf("queue line %q: dose: %w", line, err)
	}
	kernel, err := strconv.Atoi(fields[2])
	if err != nil {
		return Entry{}, fmt.Errorf("queue line %q: kernel: %w", line, err)
	}
	thickness, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return Entry{}, fmt.Errorf("queue line %q: thickness: %w", line, err)
	}
	return Entry{Case: fields[0], Dose: dose, Kernel: kernel, Thickness: thickness}, nil
}

// Decode parses every line read from r. Blank lines are skipped.
func Decode(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		entry, err := ParseEntry(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
