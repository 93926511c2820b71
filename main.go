package main

import (
	"fmt"
	"os"

	"github.com/cheggaaa/pb/v3"
	flag "github.com/docker/docker/pkg/mflag"
	"github.com/pkg/errors"
	"github.com/pkg/profile"
	"go.uber.org/zap"

	"github.com/t-abe/octrf/forest"
	"github.com/t-abe/octrf/impurity"
	"github.com/t-abe/octrf/tree"
)

var (
	// model/prediction files
	dataFile    = flag.String([]string{"d", "-data"}, "", "example data")
	predictFile = flag.String([]string{"p", "-predictions"}, "", "file to output predictions")
	modelFile   = flag.String([]string{"f", "-final_model"}, "octrf.model", "file to output fitted model")
	dotFile     = flag.String([]string{"-dot"}, "", "file to output the first tree in Graphviz DOT format")
	update      = flag.Bool([]string{"-update"}, false, "update the model with the examples one at a time instead of refitting")
	configFile  = flag.String([]string{"-config"}, "", "config file (yaml, toml or json) with defaults for the model params")
	// model params
	nTree        = flag.Int([]string{"-trees"}, 10, "number of trees")
	samplings    = flag.Int([]string{"-samplings"}, 300, "number of random split tests tried at each node")
	objThreshold = flag.Float64([]string{"-objective_threshold"}, 0, "stop splitting a node whose objective is at or below this value")
	objRestart   = flag.Float64([]string{"-objective_restart"}, 0.1, "objective a leaf must reach before an update splits it")
	minExamples  = flag.Int([]string{"-min_examples"}, 1, "stop splitting a node with this many examples or fewer")
	restartEx    = flag.Int([]string{"-restart_examples"}, 500, "examples a leaf buffers before an update splits it")
	impurityName = flag.String([]string{"-impurity"}, "gini", "objective for classification splits: gini, entropy or distinct")
	testName     = flag.String([]string{"-test"}, "threshold", "split test: threshold (x[i] > v) or pair (x[i] - x[j] > v)")
	// force classification
	forceClf = flag.Bool([]string{"c", "-classification"}, false, "force parser to use integer targets/labels for classification")
	// runtime params
	nWorkers   = flag.Int([]string{"-workers"}, 1, "number of workers for fitting trees")
	seed       = flag.Int([]string{"-seed"}, 0, "random seed, 0 seeds from the clock")
	chatty     = flag.Bool([]string{"-chatty"}, false, "log every node while training")
	verbose    = flag.Bool([]string{"-verbose"}, false, "debug logging")
	runProfile = flag.Bool([]string{"-profile"}, false, "cpu profile")
)

var logger = zap.NewNop()

func parseModelOpts() (modelOptions, error) {
	tp, err := tree.NewParams(
		tree.ObjectiveThreshold(*objThreshold),
		tree.ObjectiveRestart(*objRestart),
		tree.MinExamples(*minExamples),
		tree.RestartExamples(*restartEx),
		tree.Samplings(*samplings),
		tree.Chatty(*chatty))
	if err != nil {
		return modelOptions{}, err
	}

	p, err := forest.NewParams(forest.NumTrees(*nTree), forest.TreeParams(tp))
	if err != nil {
		return modelOptions{}, err
	}

	imp, ok := impurity.Parse(*impurityName)
	if !ok {
		return modelOptions{}, errors.Errorf("unknown impurity %q", *impurityName)
	}

	o := modelOptions{
		params:   p,
		impurity: imp,
		test:     *testName,
		forest:   []func(forest.Configer){forest.NumWorkers(*nWorkers), forest.Logger(logger)},
	}
	if *seed != 0 {
		o.forest = append(o.forest, forest.RandState(int64(*seed)))
	}

	return o, nil
}

func main() {
	flag.Parse()

	logger = newLogger(*verbose)
	defer logger.Sync()

	if *runProfile {
		defer profile.Start(profile.CPUProfile).Stop()
	}

	// make sure user specified csv file w/ data
	if *dataFile == "" {
		fmt.Fprintf(os.Stderr, "Usage of octrf:\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := applyConfig(flag.CommandLine, *configFile); err != nil {
		fatal("error reading config", err)
	}

	opt, err := parseModelOpts()
	if err != nil {
		fatal("invalid model option", err)
	}

	f, err := os.Open(*dataFile)
	if err != nil {
		fatal("error opening data file", err)
	}
	// an update keeps the labels as text until the model kind is known
	d, err := parseCSV(f, *forceClf || *update)
	f.Close()
	if err != nil {
		fatal("error parsing input data", err)
	}
	logger.Debug("parsed data",
		zap.String("file", *dataFile),
		zap.Int("examples", len(d.X)),
		zap.Int("features", len(d.VarNames)))

	// consider non-blank *predictFile as prediction, update or fit otherwise
	var m *Model
	switch {
	case *predictFile != "":
		m, err = openModel(*modelFile, d.X, opt)
		if err != nil {
			fatal("error opening model file", err)
		}

		if err := writePred(*predictFile, m.Predict(d)); err != nil {
			fatal("error writing predictions", err)
		}

	case *update:
		m, err = updateModel(d, opt)
		if err != nil {
			fatal("error updating model", err)
		}

	default:
		m, err = fitModel(d, opt)
		if err != nil {
			fatal("error fitting model", err)
		}
	}

	if *dotFile != "" {
		if err := writeDot(*dotFile, m); err != nil {
			fatal("error writing tree", err)
		}
	}

	if *predictFile == "" {
		// save model to disk
		if err := saveModel(*modelFile, m); err != nil {
			fatal("error saving model", err)
		}
		m.Score(d)
		m.Report(os.Stderr)
	}
}

func fitModel(d *parsedInput, opt modelOptions) (*Model, error) {
	// per-node logging and the bar would interleave on stderr
	if !opt.params.Tree.Chatty {
		bar := pb.StartNew(opt.params.NTrees)
		defer bar.Finish()
		opt.forest = append(opt.forest, forest.OnTreeDone(func(done, total int) {
			bar.Increment()
		}))
	}

	m, err := newModel(d.isRegression, len(d.VarNames), d.X, opt)
	if err != nil {
		return nil, err
	}

	return m, m.Fit(d)
}

// updateModel feeds d to the saved model, or to a new one when no model was
// saved yet.
func updateModel(d *parsedInput, opt modelOptions) (*Model, error) {
	m, err := openModel(*modelFile, d.X, opt)
	if os.IsNotExist(errors.Cause(err)) {
		if !*forceClf {
			// non-numeric labels stay class labels
			_ = d.toRegression()
		}
		logger.Info("no saved model, starting a new one", zap.String("file", *modelFile))
		m, err = newModel(d.isRegression, len(d.VarNames), d.X, opt)
	}
	if err != nil {
		return nil, err
	}

	if m.IsRegression {
		if err := d.toRegression(); err != nil {
			return nil, errors.Wrap(err, "regression model")
		}
	}

	return m, m.Update(d)
}

func openModel(name string, X [][]float64, opt modelOptions) (*Model, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", name)
	}
	defer f.Close()

	m, err := loadModel(f, X, opt)
	return m, errors.Wrapf(err, "load %s", name)
}

func saveModel(name string, m *Model) error {
	f, err := os.Create(name)
	if err != nil {
		return errors.Wrapf(err, "create %s", name)
	}

	if err := m.Save(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %s", name)
	}
	return errors.Wrapf(f.Close(), "close %s", name)
}

func writeDot(name string, m *Model) error {
	dot, err := m.Dot()
	if err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(name, []byte(dot), 0o644), "write %s", name)
}

func writePred(name string, prediction []string) error {
	f, err := os.Create(name)
	if err != nil {
		return errors.Wrapf(err, "create %s", name)
	}

	if err := tree.WriteLines(f, prediction); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %s", name)
	}
	return errors.Wrapf(f.Close(), "close %s", name)
}

func fatal(msg string, err error) {
	logger.Fatal(msg, zap.Error(err))
}
