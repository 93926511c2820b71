package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/t-abe/octrf/forest"
	"github.com/t-abe/octrf/impurity"
	"github.com/t-abe/octrf/split"
	"github.com/t-abe/octrf/tree"
)

// the forest methods the CLI needs, for either kind of split test
type classifier interface {
	Fit(X [][]float64, Y []string) error
	Update(y string, x []float64) error
	PredictAll(X [][]float64) []string
	Score(X [][]float64, Y []string) (classes []string, confMat [][]int, accuracy float64)
	FeatureUsage() []int
	MarshalLines(lines []string) []string
	UnmarshalLines(lines []string) ([]string, error)
	Len() int
	MaxDepth() int
	Dot(i int) (string, error)
}

type regressor interface {
	Fit(X [][]float64, Y []float64) error
	Update(y float64, x []float64) error
	PredictAll(X [][]float64) []float64
	Score(X [][]float64, Y []float64) (mse, rSquared float64)
	FeatureUsage() []int
	MarshalLines(lines []string) []string
	UnmarshalLines(lines []string) ([]string, error)
	Len() int
	MaxDepth() int
	Dot(i int) (string, error)
}

const (
	kindClassification = "classification"
	kindRegression     = "regression"
)

type modelOptions struct {
	params   forest.Params
	impurity impurity.Measure
	test     string
	forest   []func(forest.Configer)
}

type Model struct {
	IsRegression bool
	Test         string
	Dim          int
	Clf          classifier
	Reg          regressor
	VarNames     []string
	fitTime      time.Duration
	opt          modelOptions
	nSample      int
	score        trainScore
}

// fit on the training examples, filled in by Score
type trainScore struct {
	done     bool
	classes  []string
	confMat  [][]int
	accuracy float64
	mse      float64
	rSquared float64
}

// newModel returns an empty model whose trees sample split tests over the
// feature ranges of X. X may be nil when the model is only used to predict.
func newModel(isRegression bool, dim int, X [][]float64, opt modelOptions) (*Model, error) {
	m := &Model{IsRegression: isRegression, Test: opt.test, Dim: dim, opt: opt}

	switch {
	case isRegression && opt.test == "threshold":
		m.Reg = forest.NewRegressor(dim, split.NewThreshold(X), opt.params, opt.forest...)
	case isRegression && opt.test == "pair":
		m.Reg = forest.NewRegressor(dim, split.NewPair(X), opt.params, opt.forest...)
	case opt.test == "threshold":
		m.Clf = forest.NewClassifier(dim, split.NewThreshold(X), opt.params, opt.impurity, opt.forest...)
	case opt.test == "pair":
		m.Clf = forest.NewClassifier(dim, split.NewPair(X), opt.params, opt.impurity, opt.forest...)
	default:
		return nil, errors.Errorf("unknown split test %q, expected threshold or pair", opt.test)
	}

	return m, nil
}

func (m *Model) Fit(d *parsedInput) error {
	start := time.Now()

	var err error
	if m.IsRegression {
		err = m.Reg.Fit(d.X, d.YReg)
	} else {
		err = m.Clf.Fit(d.X, d.YClf)
	}
	if err != nil {
		return err
	}

	m.fitTime = time.Since(start)
	m.VarNames = d.VarNames
	m.nSample = len(d.X)
	return nil
}

// Update feeds every example of d to the forest, one at a time.
func (m *Model) Update(d *parsedInput) error {
	start := time.Now()

	for i, x := range d.X {
		var err error
		if m.IsRegression {
			err = m.Reg.Update(d.YReg[i], x)
		} else {
			err = m.Clf.Update(d.YClf[i], x)
		}
		if err != nil {
			return errors.Wrapf(err, "example %d", i)
		}
	}

	m.fitTime = time.Since(start)
	m.VarNames = d.VarNames
	m.nSample = len(d.X)
	return nil
}

// Score measures how well the forest fits the examples of d and keeps the
// result for Report.
func (m *Model) Score(d *parsedInput) {
	s := trainScore{done: true}
	if m.IsRegression {
		s.mse, s.rSquared = m.Reg.Score(d.X, d.YReg)
	} else {
		s.classes, s.confMat, s.accuracy = m.Clf.Score(d.X, d.YClf)
	}
	m.score = s
}

func (m *Model) Predict(d *parsedInput) []string {
	pStr := make([]string, len(d.X))

	if m.IsRegression {
		for i, v := range m.Reg.PredictAll(d.X) {
			pStr[i] = strconv.FormatFloat(v, 'f', -1, 64)
		}
	} else {
		copy(pStr, m.Clf.PredictAll(d.X))
	}

	return pStr
}

func (m *Model) NTrees() int {
	if m.IsRegression {
		return m.Reg.Len()
	}
	return m.Clf.Len()
}

func (m *Model) MaxDepth() int {
	if m.IsRegression {
		return m.Reg.MaxDepth()
	}
	return m.Clf.MaxDepth()
}

func (m *Model) FeatureUsage() []int {
	if m.IsRegression {
		return m.Reg.FeatureUsage()
	}
	return m.Clf.FeatureUsage()
}

// Dot renders the first tree of the forest.
func (m *Model) Dot() (string, error) {
	if m.IsRegression {
		return m.Reg.Dot(0)
	}
	return m.Clf.Dot(0)
}

func (m *Model) kind() string {
	if m.IsRegression {
		return kindRegression
	}
	return kindClassification
}

// Save writes the header line "<kind> <test> <dim>" followed by the forest.
func (m *Model) Save(w io.Writer) error {
	lines := []string{fmt.Sprintf("%s %s %d", m.kind(), m.Test, m.Dim)}
	if m.IsRegression {
		lines = m.Reg.MarshalLines(lines)
	} else {
		lines = m.Clf.MarshalLines(lines)
	}
	return tree.WriteLines(w, lines)
}

// loadModel reads a model saved with Save. X, when not nil, supplies the
// feature ranges used to sample new split tests during an update.
func loadModel(r io.Reader, X [][]float64, opt modelOptions) (*Model, error) {
	lines, err := tree.ReadLines(r, true)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, errors.Wrap(tree.ErrTruncated, "model header")
	}

	fields := strings.Fields(lines[0])
	if len(fields) != 3 {
		return nil, errors.Wrapf(tree.ErrMalformed, "model header %q", lines[0])
	}
	if fields[0] != kindClassification && fields[0] != kindRegression {
		return nil, errors.Wrapf(tree.ErrMalformed, "model kind %q", fields[0])
	}
	dim, err := strconv.Atoi(fields[2])
	if err != nil || dim < 1 {
		return nil, errors.Wrapf(tree.ErrMalformed, "model dimension %q", fields[2])
	}
	if len(X) > 0 && len(X[0]) != dim {
		return nil, errors.Errorf("model expects %d features, data has %d", dim, len(X[0]))
	}

	opt.test = fields[1]
	m, err := newModel(fields[0] == kindRegression, dim, X, opt)
	if err != nil {
		return nil, err
	}

	if m.IsRegression {
		_, err = m.Reg.UnmarshalLines(lines[1:])
	} else {
		_, err = m.Clf.UnmarshalLines(lines[1:])
	}
	return m, errors.Wrap(err, "load forest")
}

func (m *Model) Report(w io.Writer) {
	// generic stuff
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("MODEL")
	t.AppendRows([]table.Row{
		{"type", m.kind()},
		{"split test", m.Test},
		{"trees", m.NTrees()},
		{"max depth", m.MaxDepth()},
		{"examples", m.nSample},
		{"seconds", fmt.Sprintf("%.2f", m.fitTime.Seconds())},
	})
	t.AppendSeparator()
	tp := m.opt.params.Tree
	t.AppendRows([]table.Row{
		{"objective_threshold", tp.ObjectiveThreshold},
		{"objective_restart", tp.ObjectiveRestart},
		{"min_examples", tp.MinExamples},
		{"restart_examples", tp.RestartExamples},
		{"samplings", tp.Samplings},
	})
	t.Render()

	m.ReportFeatureUsage(w, 20)

	if m.IsRegression {
		m.reportReg(w)
	} else {
		m.reportClf(w)
	}
}

// ReportFeatureUsage prints the maxVars features read by the most split
// tests.
func (m *Model) ReportFeatureUsage(w io.Writer, maxVars int) {
	type usage struct {
		name  string
		count int
	}

	counts := m.FeatureUsage()
	vars := make([]usage, len(counts))
	for i, ct := range counts {
		name := fmt.Sprintf("X%d", i+1)
		if i < len(m.VarNames) {
			name = m.VarNames[i]
		}
		vars[i] = usage{name, ct}
	}
	slices.SortStableFunc(vars, func(a, b usage) bool { return a.count > b.count })

	// only show top n
	if maxVars > len(vars) {
		maxVars = len(vars)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("FEATURE USAGE")
	t.AppendHeader(table.Row{"Feature", "Split Tests"})
	for _, v := range vars[:maxVars] {
		t.AppendRow(table.Row{v.name, v.count})
	}
	t.Render()
}

func (m *Model) reportClf(w io.Writer) {
	if !m.score.done {
		return
	}

	header := table.Row{"actual \\ predicted"}
	for _, class := range m.score.classes {
		header = append(header, class)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("CONFUSION MATRIX")
	t.AppendHeader(header)
	for i, class := range m.score.classes {
		row := table.Row{class}
		for _, ct := range m.score.confMat[i] {
			row = append(row, ct)
		}
		t.AppendRow(row)
	}
	t.AppendFooter(table.Row{"accuracy", fmt.Sprintf("%.2f%%", 100*m.score.accuracy)})
	t.Render()
}

func (m *Model) reportReg(w io.Writer) {
	if !m.score.done {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("TRAINING FIT")
	t.AppendRows([]table.Row{
		{"Mean Squared Error", fmt.Sprintf("%.3f", m.score.mse)},
		{"R-Squared", fmt.Sprintf("%.3f%%", 100*m.score.rSquared)},
	})
	t.Render()
}
