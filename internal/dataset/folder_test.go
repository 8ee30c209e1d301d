package dataset

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

// folderFixture lays out a three-image dataset with detection labels for
// the first image and a class map for the second.
func folderFixture(t *testing.T) *Description {
	t.Helper()
	root := t.TempDir()

	white := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			white.SetRGBA(x, y, color.RGBA{255, 255, 255, 255})
		}
	}
	for _, name := range []string{"0001.png", "0002.png", "0003.png"} {
		writePNG(t, filepath.Join(root, "images/val", name), white)
	}

	require.NoError(t, os.MkdirAll(filepath.Join(root, "labels/val"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "labels/val/0001.txt"),
		[]byte("0 0.5 0.5 0.5 0.5\n1 0.25 0.25 0.25 0.25\n"), 0o644))

	mask := image.NewGray(image.Rect(0, 0, 8, 6))
	mask.SetGray(2, 3, color.Gray{Y: 1})
	mask.SetGray(3, 3, color.Gray{Y: 1})
	writePNG(t, filepath.Join(root, "masks/val/0002.png"), mask)

	return &Description{
		Path: root,
		Val:  "images/val",
		Tasks: []TaskInfo{
			{Name: "detect", NumClasses: 2, Labels: "labels/val"},
			{Name: "lane_seg", NumClasses: 1, Masks: "masks/val"},
		},
	}
}

func TestFolderLoaderBatching(t *testing.T) {
	l, err := NewFolderLoader(folderFixture(t), "val", 16, 2)
	require.NoError(t, err)

	assert.Equal(t, 3, l.Images())
	assert.Equal(t, 2, l.Batches())

	first, err := l.Next()
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, 2, first[0].Len())

	second, err := l.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, second[0].Len())

	_, err = l.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestFolderLoaderSharesImageTensorAcrossTasks(t *testing.T) {
	l, err := NewFolderLoader(folderFixture(t), "val", 16, 2)
	require.NoError(t, err)

	aligned, err := l.Next()
	require.NoError(t, err)
	assert.Same(t, aligned[0].Images, aligned[1].Images)
	assert.Equal(t, []int{2, 3, 16, 16}, aligned[0].Images.Shape())
}

func TestFolderLoaderLetterboxFrame(t *testing.T) {
	l, err := NewFolderLoader(folderFixture(t), "val", 16, 2)
	require.NoError(t, err)

	aligned, err := l.Next()
	require.NoError(t, err)
	frame := aligned[0].Metas[0].Frame
	assert.Equal(t, 8, frame.OrigW)
	assert.Equal(t, 6, frame.OrigH)
	assert.InDelta(t, 2.0, float64(frame.Letterbox.Scale), 1e-6)
	assert.InDelta(t, 0.0, float64(frame.Letterbox.PadX), 1e-6)
	assert.InDelta(t, 2.0, float64(frame.Letterbox.PadY), 1e-6)
}

func TestFolderLoaderLabels(t *testing.T) {
	l, err := NewFolderLoader(folderFixture(t), "val", 16, 2)
	require.NoError(t, err)

	aligned, err := l.Next()
	require.NoError(t, err)
	det := aligned[0]

	// 0001 has two labeled objects in the original 8x6 frame.
	require.Len(t, det.Boxes[0], 2)
	assert.Equal(t, []int{0, 1}, det.Classes[0])
	b := det.Boxes[0][0]
	assert.InDelta(t, 2.0, float64(b.X1), 1e-5)
	assert.InDelta(t, 1.5, float64(b.Y1), 1e-5)
	assert.InDelta(t, 6.0, float64(b.X2), 1e-5)
	assert.InDelta(t, 4.5, float64(b.Y2), 1e-5)

	// 0002 has no label file, so zero objects.
	assert.Empty(t, det.Boxes[1])
	assert.Empty(t, det.Classes[1])
}

func TestFolderLoaderMasks(t *testing.T) {
	l, err := NewFolderLoader(folderFixture(t), "val", 16, 2)
	require.NoError(t, err)

	aligned, err := l.Next()
	require.NoError(t, err)
	seg := aligned[1]

	// 0001 has no mask file: all background at the original resolution.
	assert.Equal(t, 8, seg.Masks[0].W)
	assert.Equal(t, 6, seg.Masks[0].H)
	assert.Equal(t, 0, seg.Masks[0].Foreground())

	// 0002's class map carries two foreground pixels.
	assert.Equal(t, 2, seg.Masks[1].Foreground())
	assert.Equal(t, int32(1), seg.Masks[1].At(2, 3))
}

func TestFolderLoaderMissingDirectory(t *testing.T) {
	desc := &Description{
		Path:  t.TempDir(),
		Val:   "images/absent",
		Tasks: []TaskInfo{{Name: "detect", NumClasses: 1}},
	}
	_, err := NewFolderLoader(desc, "val", 16, 2)
	assert.ErrorIs(t, err, ErrDatasetNotFound)
}

func TestFolderLoaderEmptyDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "images/val"), 0o755))
	desc := &Description{
		Path:  root,
		Val:   "images/val",
		Tasks: []TaskInfo{{Name: "detect", NumClasses: 1}},
	}
	_, err := NewFolderLoader(desc, "val", 16, 2)
	assert.ErrorIs(t, err, ErrDatasetNotFound)
}
