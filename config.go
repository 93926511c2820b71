package main

import (
	"strings"

	flag "github.com/docker/docker/pkg/mflag"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// configKeys are the settings a config file may hold. Each key is the long
// name of the flag it sets.
var configKeys = []string{
	"trees",
	"samplings",
	"objective_threshold",
	"objective_restart",
	"min_examples",
	"restart_examples",
	"impurity",
	"test",
	"workers",
	"seed",
	"chatty",
}

// applyConfig reads the config file name (YAML, TOML or JSON) and sets every
// flag it names that was not given on the command line.
func applyConfig(fs *flag.FlagSet, name string) error {
	if name == "" {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(name)
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "read config %s", name)
	}

	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		for _, n := range f.Names {
			explicit[strings.TrimLeft(n, "-")] = true
		}
	})

	for _, key := range configKeys {
		if explicit[key] || !v.IsSet(key) {
			continue
		}
		if err := fs.Set("-"+key, v.GetString(key)); err != nil {
			return errors.Wrapf(err, "config %s: %s", name, key)
		}
	}

	return nil
}
