package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/pkg/errors"
)

type parsedInput struct {
	isRegression bool
	X            [][]float64
	YClf         []string  // will be nil when isRegression = true
	YReg         []float64 // will be nil when isRegression = false
	VarNames     []string
}

// parse csv file, detect if first row is header/has var names. The first
// column holds the label, every other column a numeric feature. Labels that
// all parse as numbers make a regression problem unless forceClf is set.
func parseCSV(r io.Reader, forceClf bool) (*parsedInput, error) {
	raw := dataframe.ReadCSV(r,
		dataframe.HasHeader(false),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues([]string{}))
	if raw.Err != nil {
		return nil, errors.Wrap(raw.Err, "read csv")
	}
	if raw.Ncol() < 2 {
		return nil, errors.New("expected a label column and at least one feature column")
	}

	records := raw.Records()[1:] // drop the generated column names
	p := &parsedInput{}

	// check if it's a header row
	if varNames, ok := headerNames(records[0]); ok {
		p.VarNames = varNames
		records = records[1:]
	} else {
		// use X1, X2,...Xn for var names
		for i := range records[0][1:] {
			p.VarNames = append(p.VarNames, fmt.Sprintf("X%d", i+1))
		}
	}
	if len(records) == 0 {
		return nil, errors.New("no examples after the header row")
	}

	// reload with typed columns: the label as text, features as numbers
	names := []string{"y"}
	for i := range p.VarNames {
		names = append(names, "x"+strconv.Itoa(i))
	}
	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(false),
		dataframe.Names(names...),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.Float),
		dataframe.WithTypes(map[string]series.Type{"y": series.String}),
		dataframe.NaNValues([]string{}))
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "load examples")
	}

	p.X = make([][]float64, df.Nrow())
	for i := range p.X {
		p.X[i] = make([]float64, len(p.VarNames))
	}
	for j, name := range names[1:] {
		col := df.Col(name)
		if col.HasNaN() {
			return nil, errors.Errorf("column %s has non-numeric values", p.VarNames[j])
		}
		for i, v := range col.Float() {
			p.X[i][j] = v
		}
	}

	p.YClf = df.Col("y").Records()
	if !forceClf {
		// numeric labels make it a regression problem, anything else keeps
		// the class labels
		_ = p.toRegression()
	}

	return p, nil
}

// toRegression turns the class labels of p into regression targets. It
// fails, leaving p unchanged, when a label is not a number.
func (p *parsedInput) toRegression() error {
	if p.isRegression {
		return nil
	}

	yReg := series.New(p.YClf, series.Float, "y")
	if yReg.HasNaN() {
		return errors.New("labels are not numeric")
	}

	// drop the y vals we aren't using
	p.isRegression = true
	p.YReg = yReg.Float()
	p.YClf = nil
	return nil
}

// headerNames returns the feature names in row when row is a header. We
// only accept numeric feature values, so a row where none of the feature
// cells is a number is taken as the header.
func headerNames(row []string) ([]string, bool) {
	for _, val := range row[1:] {
		if _, err := strconv.ParseFloat(val, 64); err == nil {
			return nil, false
		}
	}
	return append([]string(nil), row[1:]...), true
}
