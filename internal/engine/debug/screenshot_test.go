package debug

import (
	"image/png"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFlipRGBA(t *testing.T) {
	// Two rows: bottom red, top blue.
	pixels := []byte{
		255, 0, 0, 255,
		0, 0, 255, 255,
	}
	img, err := FlipRGBA(pixels, 1, 2)
	require.NoError(t, err)
	require.Equal(t, uint8(255), img.RGBAAt(0, 0).B)
	require.Equal(t, uint8(255), img.RGBAAt(0, 1).R)

	_, err = FlipRGBA(pixels, 2, 2)
	require.Error(t, err)
}

func TestCapture(t *testing.T) {
	s := NewScreenshots(t.TempDir(), "shot")
	s.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	path, err := s.Capture(make([]byte, 4*3*2), 3, 2)
	require.NoError(t, err)
	require.Contains(t, path, "shot_2024-05-01_12-00-00.000.png")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	require.Equal(t, 3, img.Bounds().Dx())
}
