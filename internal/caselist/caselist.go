// Package caselist reads the ordered case identifiers a launch queues jobs for.
package caselist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Load reads one case identifier per line from path. Surrounding whitespace
// is trimmed, blank lines and lines starting with '#' are skipped, and
// identifiers are normalised to Unicode NFC so the same case typed on
// different systems produces the same queue entry. Order is preserved and
// duplicates are kept.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open case list: %w", err)
	}
	defer f.Close()
	cases, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("read case list %s: %w", path, err)
	}
	return cases, nil
}

// Parse applies the Load rules to r.
func Parse(r io.Reader) ([]string, error) {
	var cases []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cases = append(cases, norm.NFC.String(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cases, nil
}
