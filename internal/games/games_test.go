package games

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"romforge/internal/container"
	"romforge/internal/dispatch"
	"romforge/internal/editor"
)

func emptyGARC(t *testing.T) []byte {
	t.Helper()
	data, err := container.NewGARC([][]byte{{0x00}}).Bytes()
	require.NoError(t, err)
	return data
}

// threeDSDump lays out exefs/code.bin and archives 0 through count-1.
func threeDSDump(t *testing.T, count int) map[string][]byte {
	t.Helper()
	garc := emptyGARC(t)
	files := map[string][]byte{"exefs/code.bin": {0x00, 0x00, 0x00, 0xea}}
	for n := 0; n < count; n++ {
		files[garcPath(n)] = garc
	}
	return files
}

func markerFiles(t *testing.T) map[string]map[string][]byte {
	gfpak := append([]byte("GFLXPACK"), make([]byte, 24)...)
	npdm := []byte("META")
	return map[string]map[string][]byte{
		"XY":   threeDSDump(t, 271),
		"ORAS": threeDSDump(t, 299),
		"SM":   threeDSDump(t, 311),
		"USUM": threeDSDump(t, 333),
		"GG":   {"exefs/main.npdm": npdm, "romfs/bin/archive/field/resident/data_table.gfpak": gfpak},
		"SWSH": {
			"exefs/main.npdm": npdm,
			"romfs/bin/archive/field/resident/data_table.gfpak": gfpak,
			"romfs/bin/pml/personal/personal_total.bin":         {1, 2, 3, 4},
		},
		"PLA": {"exefs/main.npdm": npdm, "romfs/bin/pml/personal/personal_array.bin": {1, 2}},
		"SV":  {"exefs/main.npdm": npdm, "romfs/arc/data.trpfd": {1}, "romfs/arc/data.trpfs": {2}},
	}
}

func writeDump(t *testing.T, files map[string][]byte) string {
	t.Helper()
	root := t.TempDir()
	for rel, data := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, data, 0o644))
	}
	return root
}

func TestRegistryBuilds(t *testing.T) {
	reg, err := Registry()
	require.NoError(t, err)
	assert.Equal(t, len(Profiles()), reg.Len())
}

func TestEveryProfileResolvesFromItsMarkers(t *testing.T) {
	reg, err := Registry()
	require.NoError(t, err)
	d := dispatch.New(reg, nil)
	fixtures := markerFiles(t)

	for _, p := range reg.Profiles() {
		t.Run(p.Game.Name, func(t *testing.T) {
			files, ok := fixtures[p.Game.Name]
			require.True(t, ok, "no marker fixture for %s", p.Game.Name)
			root := writeDump(t, files)

			ed, err := d.Resolve(root, editor.LanguageEnglish)
			require.NoError(t, err)
			t.Cleanup(func() { _ = ed.Close() })

			assert.Equal(t, p.Game.Name, ed.Game().Name)
			assert.Equal(t, p.Game.Generation, ed.Game().Generation)
			assert.Equal(t, root, ed.Location())
			assert.NotEmpty(t, ed.Controls(editor.CategoryNone))
		})
	}
}

func TestMissingCodeIsUnrecognized(t *testing.T) {
	reg, err := Registry()
	require.NoError(t, err)

	files := markerFiles(t)["SM"]
	delete(files, "exefs/code.bin")
	_, err = dispatch.New(reg, nil).Resolve(writeDump(t, files), editor.LanguageEnglish)
	require.ErrorIs(t, err, editor.ErrUnrecognizedGameData)
}

func TestBrokenPersonalArchiveFailsInitialization(t *testing.T) {
	reg, err := Registry()
	require.NoError(t, err)

	files := markerFiles(t)["SM"]
	files["romfs/a/0/1/7"] = []byte("not an archive")
	_, err = dispatch.New(reg, nil).Resolve(writeDump(t, files), editor.LanguageEnglish)
	require.ErrorIs(t, err, editor.ErrInitialization)
}

func TestThreeDSDumpsWithEveryArchiveResolve(t *testing.T) {
	reg, err := Registry()
	require.NoError(t, err)
	d := dispatch.New(reg, nil)
	garc := emptyGARC(t)

	cases := []struct {
		name  string
		game  string
		extra []int
	}{
		{"usum with an xy archive number", "USUM", []int{218}},
		{"sm with an oras archive number", "SM", []int{195}},
		{"oras", "ORAS", nil},
		{"xy", "XY", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			files := markerFiles(t)[tc.game]
			for _, n := range tc.extra {
				files[garcPath(n)] = garc
			}
			ed, err := d.Resolve(writeDump(t, files), editor.LanguageEnglish)
			require.NoError(t, err)
			t.Cleanup(func() { _ = ed.Close() })
			assert.Equal(t, tc.game, ed.Game().Name)
		})
	}
}

func TestArchiveMarkersNest(t *testing.T) {
	assert.Len(t, archiveMarkers(271), 2)
	assert.Len(t, archiveMarkers(333), 5)
	usum := make(map[string]bool)
	for _, m := range archiveMarkers(333) {
		usum[m.Key()] = true
	}
	for _, m := range archiveMarkers(311) {
		assert.True(t, usum[m.Key()], m.Key())
	}
}

func TestGarcPath(t *testing.T) {
	assert.Equal(t, "romfs/a/0/1/7", garcPath(17))
	assert.Equal(t, "romfs/a/2/6/8", garcPath(268))
}
