// Package taskset loads and merges declarative experiment task lists. The
// merge is purely structural: task arrays are concatenated in argument
// order, nothing is deduplicated or reordered.
package taskset

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Task describes one training job to be scheduled by the orchestration side.
type Task struct {
	Type            string            `yaml:"type"`
	Dataset         string            `yaml:"dataset"`
	Network         string            `yaml:"network"`
	Parallelism     int               `yaml:"parallelism,omitempty"`
	Replication     int               `yaml:"replication,omitempty"`
	Priority        int               `yaml:"priority,omitempty"`
	HyperParameters map[string]string `yaml:"hyper_parameters,omitempty"`
}

// TaskSet is one task-list file: a version marker and an array of tasks.
type TaskSet struct {
	Version string `yaml:"version,omitempty"`
	Tasks   []Task `yaml:"tasks"`
}

// Load reads and parses a task-set YAML file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func Load(path string) (*TaskSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading task set: %w", err)
	}
	var set TaskSet
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&set); err != nil {
		return nil, fmt.Errorf("parsing task set %s: %w", path, err)
	}
	return &set, nil
}

// Merge concatenates the task arrays of all sets into one.
func Merge(sets []*TaskSet) (*TaskSet, error) {
	if len(sets) == 0 {
		return nil, fmt.Errorf("at least one task set required")
	}
	merged := &TaskSet{Version: sets[0].Version}
	for _, s := range sets {
		merged.Tasks = append(merged.Tasks, s.Tasks...)
	}
	return merged, nil
}

// Write marshals the set as YAML.
func (s *TaskSet) Write(w io.Writer) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling task set: %w", err)
	}
	_, err = w.Write(data)
	return err
}
