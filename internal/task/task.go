// Package task ties each configured task name to its kind and routes batch
// slices to the matching post-processor and metrics accumulator.
package task

import (
	"strings"

	"github.com/yunqiao/multival/internal/dataset"
)

// Kind is the closed set of task kinds. It is resolved once from the task
// name at configuration time; task identity never changes mid-run.
type Kind int

const (
	KindUnknown Kind = iota
	KindDetection
	KindSegmentation
)

func (k Kind) String() string {
	switch k {
	case KindDetection:
		return "detection"
	case KindSegmentation:
		return "segmentation"
	default:
		return "unknown"
	}
}

// KindFromName classifies a task by its name: names denoting detection map
// to KindDetection, names denoting segmentation to KindSegmentation,
// anything else to KindUnknown.
func KindFromName(name string) Kind {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "det"):
		return KindDetection
	case strings.Contains(lower, "seg"):
		return KindSegmentation
	default:
		return KindUnknown
	}
}

// Spec is one configured task: name, resolved kind, class count and label
// names.
type Spec struct {
	Name       string
	Kind       Kind
	NumClasses int
	Names      []string
}

// SpecsFromDescription resolves every dataset task into a Spec.
func SpecsFromDescription(d *dataset.Description) []Spec {
	specs := make([]Spec, len(d.Tasks))
	for i, t := range d.Tasks {
		specs[i] = Spec{
			Name:       t.Name,
			Kind:       KindFromName(t.Name),
			NumClasses: t.NumClasses,
			Names:      t.Names,
		}
	}
	return specs
}
