package forest

import (
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/t-abe/octrf/tree"
)

// MarshalLines appends the serialized forest to lines: the number of trees,
// then every tree in ensemble order followed by a blank line.
func (f *Forest[Y, X, S, L, R]) MarshalLines(lines []string) []string {
	lines = append(lines, strconv.Itoa(len(f.trees)))
	for _, t := range f.trees {
		lines = t.MarshalLines(lines)
		lines = append(lines, "")
	}
	return lines
}

// UnmarshalLines replaces the trees of f with the ones encoded in lines and
// returns the lines left over. Blank lines must already be removed. On
// error f is left unchanged.
func (f *Forest[Y, X, S, L, R]) UnmarshalLines(lines []string) ([]string, error) {
	if len(lines) == 0 {
		return lines, tree.ErrTruncated
	}

	n, err := strconv.Atoi(lines[0])
	if err != nil || n < 0 {
		return lines, errors.Wrapf(tree.ErrMalformed, "tree count %q", lines[0])
	}

	rest := lines[1:]
	trees := make([]*tree.Tree[Y, X, S, L], n)
	for i := range trees {
		trees[i] = f.newTree()
		if rest, err = trees[i].UnmarshalLines(rest); err != nil {
			return lines, errors.Wrapf(err, "tree %d", i)
		}
	}

	f.trees = trees
	f.cursor = 0
	return rest, nil
}

// Save writes f to w.
func (f *Forest[Y, X, S, L, R]) Save(w io.Writer) error {
	return tree.WriteLines(w, f.MarshalLines(nil))
}

// Load replaces f with the forest read from r. Blank lines are skipped and
// lines after the last tree are ignored.
func (f *Forest[Y, X, S, L, R]) Load(r io.Reader) error {
	lines, err := tree.ReadLines(r, true)
	if err != nil {
		return err
	}
	_, err = f.UnmarshalLines(lines)
	return err
}

// SaveFile writes f to the named file, creating or truncating it.
func (f *Forest[Y, X, S, L, R]) SaveFile(name string) error {
	fh, err := os.Create(name)
	if err != nil {
		return errors.Wrapf(err, "create %s", name)
	}

	if err := f.Save(fh); err != nil {
		fh.Close()
		return errors.Wrapf(err, "write %s", name)
	}

	return errors.Wrapf(fh.Close(), "close %s", name)
}

// LoadFile replaces f with the forest stored in the named file.
func (f *Forest[Y, X, S, L, R]) LoadFile(name string) error {
	fh, err := os.Open(name)
	if err != nil {
		return errors.Wrapf(err, "open %s", name)
	}
	defer fh.Close()

	return errors.Wrapf(f.Load(fh), "load %s", name)
}
