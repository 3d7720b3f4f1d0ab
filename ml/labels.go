package ml

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// LoadLabels reads a newline delimited label file. Line i is the label for model output
// index i, so blank lines are kept to preserve positions. Surrounding whitespace is trimmed.
func LoadLabels(path string) (labels []string, err error) {
	//nolint:gosec
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, errors.Wrapf(err, "could not open label file %q", path)
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		labels = append(labels, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "could not read label file %q", path)
	}
	if len(labels) == 0 {
		return nil, errors.Errorf("label file %q is empty", path)
	}
	return labels, nil
}
