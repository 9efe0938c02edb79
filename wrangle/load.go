package main

import (
	"fmt"

	"github.com/apparentlymart/adl-meta/adl"
	"github.com/apparentlymart/adl-meta/log"
)

func loadConfig(filename string) (*adl.Config, error) {
	if filename == "" {
		return adl.DefaultConfig(), nil
	}
	return adl.LoadConfig(filename)
}

// loadModels builds every core of the description in filename, or just the
// one selected with --core.
func loadModels(filename string, flags *globalFlags) ([]*adl.Model, error) {
	cfg, err := loadConfig(flags.configFile)
	if err != nil {
		return nil, err
	}
	root, err := adl.LoadDocument(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to load description: %s", err)
	}
	models, err := adl.BuildDocument(root, cfg, adl.Options{Strict: flags.strict})
	if err != nil {
		return nil, err
	}
	l := log.New("file", filename)
	l.Debug(log.CLIModule, "loaded description", "cores", len(models))
	for _, m := range models {
		l.Debug(log.CLIModule, "built core", "core", m.Name,
			"instructions", len(m.Instructions), "dropped", len(m.Diagnostics.Errors))
	}

	if flags.core == "" {
		return models, nil
	}
	for _, m := range models {
		if m.Name == flags.core {
			return []*adl.Model{m}, nil
		}
	}
	return nil, fmt.Errorf("%s has no core named %q", filename, flags.core)
}
