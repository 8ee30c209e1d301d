package task

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yunqiao/multival/internal/dataset"
)

func TestKindFromName(t *testing.T) {
	cases := map[string]Kind{
		"detect":        KindDetection,
		"object_det":    KindDetection,
		"DETECTION":     KindDetection,
		"segment":       KindSegmentation,
		"lane_seg":      KindSegmentation,
		"Segmentation":  KindSegmentation,
		"classify":      KindUnknown,
		"":              KindUnknown,
		"pose_estimate": KindUnknown,
	}
	for name, want := range cases {
		assert.Equalf(t, want, KindFromName(name), "name %q", name)
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "detection", KindDetection.String())
	assert.Equal(t, "segmentation", KindSegmentation.String())
	assert.Equal(t, "unknown", KindUnknown.String())
}

func TestSpecsFromDescription(t *testing.T) {
	d := &dataset.Description{
		Tasks: []dataset.TaskInfo{
			{Name: "detect", NumClasses: 80, Names: []string{"person"}},
			{Name: "lane_seg", NumClasses: 2},
			{Name: "depth", NumClasses: 1},
		},
	}
	specs := SpecsFromDescription(d)

	assert.Len(t, specs, 3)
	assert.Equal(t, KindDetection, specs[0].Kind)
	assert.Equal(t, 80, specs[0].NumClasses)
	assert.Equal(t, KindSegmentation, specs[1].Kind)
	assert.Equal(t, KindUnknown, specs[2].Kind)
}
