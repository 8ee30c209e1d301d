// Package dataset resolves dataset descriptions and defines the batch
// types the validation engine iterates over.
package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrDatasetNotFound reports that the configured data source could not be
// resolved for the requested task.
var ErrDatasetNotFound = errors.New("dataset not found")

// TaskInfo describes one prediction task of the dataset.
type TaskInfo struct {
	Name       string   `yaml:"name"`
	NumClasses int      `yaml:"nc"`
	Names      []string `yaml:"names"`
	Labels     string   `yaml:"labels"` // detection label dir, relative to Path
	Masks      string   `yaml:"masks"`  // segmentation mask dir, relative to Path
}

// Description is the structured form of a dataset description file: task
// list, per-task class counts and label names, plus the explicit
// class-index to external-category-id table used by the JSON export.
type Description struct {
	Path        string      `yaml:"path"`
	Val         string      `yaml:"val"`
	Tasks       []TaskInfo  `yaml:"tasks"`
	CategoryMap map[int]int `yaml:"category_map"`
}

// Split returns the absolute path of the named split's image directory.
func (d *Description) Split(name string) string {
	if name == "" || name == "val" {
		return filepath.Join(d.Path, d.Val)
	}
	return filepath.Join(d.Path, name)
}

// Resolve loads and validates a dataset description file.
func Resolve(path string) (*Description, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDatasetNotFound, path, err)
	}
	var d Description
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDatasetNotFound, path, err)
	}
	if len(d.Tasks) == 0 {
		return nil, fmt.Errorf("%w: %s: no tasks declared", ErrDatasetNotFound, path)
	}
	for i, t := range d.Tasks {
		if t.Name == "" {
			return nil, fmt.Errorf("%w: %s: task %d has no name", ErrDatasetNotFound, path, i)
		}
	}
	if d.Path == "" {
		d.Path = filepath.Dir(path)
	}
	return &d, nil
}
