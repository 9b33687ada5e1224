package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArchives(t *testing.T) {
	backends := []string{BackendDir, BackendLevelDB}
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			a, err := Open(backend, filepath.Join(t.TempDir(), "map"))
			require.NoError(t, err)
			defer a.Close()

			_, err = a.Read("map.json")
			require.ErrorIs(t, err, ErrNotFound)
			require.False(t, a.Exists("map.json"))

			require.NoError(t, a.Write("map.json", []byte(`{"name":"test"}`)))
			require.NoError(t, a.Write("terrain/section_0_0.dat", []byte{1, 2, 3}))
			require.NoError(t, a.Write(`terrain\section_-1_0.dat`, []byte{4}))
			require.NoError(t, a.Write("region_0_0.0", []byte{5}))

			data, err := a.Read("terrain/section_0_0.dat")
			require.NoError(t, err)
			require.Equal(t, []byte{1, 2, 3}, data)
			require.True(t, a.Exists("terrain/section_-1_0.dat"))

			names, err := a.List("terrain/")
			require.NoError(t, err)
			require.ElementsMatch(t, []string{"terrain/section_0_0.dat", "terrain/section_-1_0.dat"}, names)

			require.NoError(t, a.Write("map.json", []byte(`{}`)))
			data, err = a.Read("map.json")
			require.NoError(t, err)
			require.Equal(t, []byte(`{}`), data)

			require.NoError(t, a.Delete("region_0_0.0"))
			require.ErrorIs(t, a.Delete("region_0_0.0"), ErrNotFound)
			require.False(t, a.Exists("region_0_0.0"))
		})
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open("zip", t.TempDir())
	require.Error(t, err)
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"map.json", "map.json"},
		{"/terrain/section_0_0.dat", "terrain/section_0_0.dat"},
		{`terrain\section_0_0.dat`, "terrain/section_0_0.dat"},
		{"terrain//./section_0_0.dat", "terrain/section_0_0.dat"},
		{"../escape", "escape"},
	}
	for _, tc := range tests {
		if got := normalizeName(tc.in); got != tc.want {
			t.Errorf("normalizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
