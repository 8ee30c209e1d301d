package dataset

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDescription(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestResolve(t *testing.T) {
	path := writeDescription(t, `
path: /data/bdd
val: images/val
tasks:
  - name: detect
    nc: 10
    names: [person, car]
    labels: labels/val
  - name: lane_seg
    nc: 2
    masks: masks/val
category_map:
  0: 1
  1: 3
`)
	d, err := Resolve(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/bdd", d.Path)
	require.Len(t, d.Tasks, 2)
	assert.Equal(t, "detect", d.Tasks[0].Name)
	assert.Equal(t, 10, d.Tasks[0].NumClasses)
	assert.Equal(t, []string{"person", "car"}, d.Tasks[0].Names)
	assert.Equal(t, "masks/val", d.Tasks[1].Masks)
	assert.Equal(t, map[int]int{0: 1, 1: 3}, d.CategoryMap)
}

func TestResolveDefaultsPathToFileDir(t *testing.T) {
	path := writeDescription(t, `
val: images/val
tasks:
  - name: detect
    nc: 1
`)
	d, err := Resolve(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Dir(path), d.Path)
	assert.Equal(t, filepath.Join(d.Path, "images/val"), d.Split("val"))
	assert.Equal(t, filepath.Join(d.Path, "test"), d.Split("test"))
}

func TestResolveMissingFile(t *testing.T) {
	_, err := Resolve(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, ErrDatasetNotFound)
}

func TestResolveNoTasks(t *testing.T) {
	path := writeDescription(t, "val: images/val\n")
	_, err := Resolve(path)
	assert.ErrorIs(t, err, ErrDatasetNotFound)
}

func TestResolveUnnamedTask(t *testing.T) {
	path := writeDescription(t, `
tasks:
  - nc: 3
`)
	_, err := Resolve(path)
	assert.ErrorIs(t, err, ErrDatasetNotFound)
}

func TestSliceLoaderSequence(t *testing.T) {
	b1 := &Batch{Metas: make([]ImageMeta, 2)}
	b2 := &Batch{Metas: make([]ImageMeta, 1)}
	l := NewSliceLoader([][]*Batch{{b1}, {b2}})

	assert.Equal(t, 2, l.Batches())
	assert.Equal(t, 3, l.Images())

	got, err := l.Next()
	require.NoError(t, err)
	assert.Same(t, b1, got[0])

	got, err = l.Next()
	require.NoError(t, err)
	assert.Same(t, b2, got[0])

	_, err = l.Next()
	assert.ErrorIs(t, err, io.EOF)
}
