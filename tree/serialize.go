package tree

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// node line flags
const (
	splitFlag = "0"
	leafFlag  = "1"
)

var (
	// ErrTruncated is returned when serialized input ends before a tree is
	// complete.
	ErrTruncated = errors.New("tree: unexpected end of input")
	// ErrMalformed is returned for a node line that is not "<0|1>\t<payload>".
	ErrMalformed = errors.New("tree: malformed node line")
)

// MarshalLines appends one line per node to lines, in pre-order with the
// right subtree before the left, and returns the extended slice. Leaves are
// written as "1\t<leaf>" and internal nodes as "0\t<test>".
func (t *Tree[Y, X, S, L]) MarshalLines(lines []string) []string {
	t.walk(0, func(n *Tree[Y, X, S, L], _ int) {
		switch v := n.n.(type) {
		case *leafNode[Y, X, L]:
			lines = append(lines, leafFlag+"\t"+v.value.String())
		case *splitNode[Y, X, S, L]:
			lines = append(lines, splitFlag+"\t"+v.test.String())
		}
	})
	return lines
}

// UnmarshalLines rebuilds t from the lines MarshalLines produced and
// returns the lines left over. On error t is left unchanged.
func (t *Tree[Y, X, S, L]) UnmarshalLines(lines []string) ([]string, error) {
	fresh := t.child(t.proto)
	rest, err := fresh.unmarshal(lines)
	if err != nil {
		return lines, err
	}
	t.proto, t.n = fresh.proto, fresh.n
	return rest, nil
}

func (t *Tree[Y, X, S, L]) unmarshal(lines []string) ([]string, error) {
	if len(lines) == 0 {
		return nil, ErrTruncated
	}

	flag, payload, err := splitLine(lines[0])
	if err != nil {
		return nil, err
	}
	lines = lines[1:]

	if flag == leafFlag {
		var zero L
		v, err := zero.Parse(payload)
		if err != nil {
			return nil, errors.Wrapf(err, "parse leaf %q", payload)
		}
		// an empty payload is how an untrained leaf is written
		t.n = &leafNode[Y, X, L]{value: v, fitted: payload != ""}
		return lines, nil
	}

	test, err := t.proto.Parse(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "parse test %q", payload)
	}
	t.proto = test

	s := &splitNode[Y, X, S, L]{
		test:  test,
		right: t.child(test),
		left:  t.child(test),
	}
	if lines, err = s.right.unmarshal(lines); err != nil {
		return nil, err
	}
	if lines, err = s.left.unmarshal(lines); err != nil {
		return nil, err
	}
	t.n = s
	return lines, nil
}

func splitLine(line string) (flag, payload string, err error) {
	i := strings.IndexByte(line, '\t')
	if i < 0 {
		return "", "", errors.Wrapf(ErrMalformed, "%q", line)
	}
	flag, payload = line[:i], line[i+1:]
	if flag != leafFlag && flag != splitFlag {
		return "", "", errors.Wrapf(ErrMalformed, "%q", line)
	}
	return flag, payload, nil
}

// Save writes t to w, one node per line.
func (t *Tree[Y, X, S, L]) Save(w io.Writer) error {
	return WriteLines(w, t.MarshalLines(nil))
}

// Load replaces t with the tree read from r. Lines after the last node of
// the tree are ignored. Examples buffered by Train1 are not saved, and a leaf
// whose value was written as an empty payload loads as untrained.
func (t *Tree[Y, X, S, L]) Load(r io.Reader) error {
	lines, err := ReadLines(r, false)
	if err != nil {
		return err
	}
	_, err = t.UnmarshalLines(lines)
	return err
}

// SaveFile writes t to the named file, creating or truncating it.
func (t *Tree[Y, X, S, L]) SaveFile(name string) error {
	f, err := os.Create(name)
	if err != nil {
		return errors.Wrapf(err, "create %s", name)
	}

	if err := t.Save(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %s", name)
	}

	return errors.Wrapf(f.Close(), "close %s", name)
}

// LoadFile replaces t with the tree stored in the named file.
func (t *Tree[Y, X, S, L]) LoadFile(name string) error {
	f, err := os.Open(name)
	if err != nil {
		return errors.Wrapf(err, "open %s", name)
	}
	defer f.Close()

	return errors.Wrapf(t.Load(f), "load %s", name)
}

// ReadLines reads r line by line with any trailing "\r" removed. Blank lines
// are kept unless dropBlank is set.
func ReadLines(r io.Reader, dropBlank bool) ([]string, error) {
	var (
		lines []string
		rdr   = bufio.NewReader(r)
	)

	for {
		line, err := rdr.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimRight(line, "\r\n")
			if line != "" || !dropBlank {
				lines = append(lines, line)
			}
		}
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "read")
		}
	}
}

// WriteLines writes every line to w followed by a newline.
func WriteLines(w io.Writer, lines []string) error {
	wtr := bufio.NewWriter(w)

	for _, line := range lines {
		_, err := wtr.WriteString(line)
		if err != nil {
			return err
		}

		err = wtr.WriteByte('\n')
		if err != nil {
			return err
		}
	}

	return wtr.Flush()
}
