package main

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

func loadConfig(filePath string) (config *Config, err error) {
	configBytes, err := os.ReadFile(filePath)
	if err != nil {
		err = errors.Wrapf(err, "cannot read file '%v'", filePath)
		return
	}

	err = yaml.Unmarshal(configBytes, &config)
	if err != nil {
		err = errors.Wrapf(err, "cannot parse config from file '%v'", filePath)
		return
	}

	return
}

// Config lists groups of decrypt results to summarize together.
type Config struct {
	Tasks []*TaskEntry `yaml:"tasks"`
}

// TaskEntry holds the paths of the JSON files printed by `datawave decrypt`.
type TaskEntry struct {
	Results []string `yaml:"results"`
}
