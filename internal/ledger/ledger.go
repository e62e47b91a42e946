package ledger

import (
	"errors"
	"os"
	"strings"
)

// FileLedger records processed source filenames in a plain-text file,
// one name per line. Writes are append-only: prior entries are never
// rewritten or truncated. Duplicate lines are harmless because the set
// is de-duplicated at read time.
type FileLedger struct {
	path string
}

func New(path string) *FileLedger { return &FileLedger{path: path} }

// Load returns the set of filenames previously marked processed. A
// missing ledger file means nothing has been processed yet.
func (l *FileLedger) Load() (map[string]struct{}, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]struct{}{}, nil
		}
		return nil, err
	}
	set := make(map[string]struct{})
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		set[line] = struct{}{}
	}
	return set, nil
}

// Mark durably appends the given filenames to the ledger.
func (l *FileLedger) Mark(names []string) error {
	if len(names) == 0 {
		return nil
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte('\n')
	}
	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
