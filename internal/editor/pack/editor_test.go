package pack

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"romforge/internal/container"
	"romforge/internal/editor"
)

var testGame = editor.Game{Name: "SM", Title: "Sun & Moon", Generation: 7}

func testLayout() Layout {
	return Layout{
		Units: []UnitSpec{
			{Name: "code", Path: "exefs/code.bin", Kind: UnitRaw},
			{Name: "personal", Path: "romfs/a/0/1/7", Kind: UnitGARC},
			{Name: "encounters", Path: "romfs/a/0/8/2", Kind: UnitMini},
			{Name: "zone", Path: "romfs/a/9/9/9", Kind: UnitGARC, Optional: true},
		},
		Controls: []ControlSpec{
			{ID: "personal_stats", Category: editor.CategoryPokemon, Units: []string{"personal"}},
			{ID: "wild", Label: "Wild Encounters", Category: editor.CategoryField, Units: []string{"encounters"}},
			{ID: "zone_data", Category: editor.CategoryField, Units: []string{"zone"}},
			{ID: "game_text", Category: editor.CategoryText},
		},
		Text: TextSpec{
			Source: TextGARC,
			Paths:  map[editor.Language]string{editor.LanguageEnglish: "romfs/a/0/3/2"},
		},
	}
}

func writeFile(t *testing.T, root, rel string, data []byte) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func buildDump(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	personal, err := container.NewGARC([][]byte{[]byte("bulbasaur"), []byte("ivysaur")}).Bytes()
	require.NoError(t, err)
	encounters, err := (&container.Mini{Ident: "EG", Entries: [][]byte{[]byte("route1"), []byte("route2")}}).Bytes()
	require.NoError(t, err)
	table, err := (&container.TextTable{Lines: []string{"Hello", "Goodbye"}}).Bytes()
	require.NoError(t, err)
	text, err := container.NewGARC([][]byte{table}).Bytes()
	require.NoError(t, err)

	writeFile(t, root, "exefs/code.bin", []byte{0xde, 0xad, 0xbe, 0xef})
	writeFile(t, root, "romfs/a/0/1/7", personal)
	writeFile(t, root, "romfs/a/0/8/2", encounters)
	writeFile(t, root, "romfs/a/0/3/2", text)
	return root
}

func snapshot(t *testing.T, root string) map[string][]byte {
	t.Helper()
	out := make(map[string][]byte)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out[path] = data
		return nil
	})
	require.NoError(t, err)
	return out
}

func openDump(t *testing.T, root string) *Editor {
	t.Helper()
	ed, err := New(root, testGame, testLayout(), editor.LanguageEnglish)
	require.NoError(t, err)
	require.NoError(t, ed.Initialize())
	t.Cleanup(func() { _ = ed.Close() })
	return ed
}

func TestSaveWithoutChangesIsByteIdentical(t *testing.T) {
	root := buildDump(t)
	before := snapshot(t, root)

	ed := openDump(t, root)
	require.NoError(t, ed.Save())
	require.NoError(t, ed.Close())

	assert.Equal(t, before, snapshot(t, root))
}

func TestCloseTwice(t *testing.T) {
	ed := openDump(t, buildDump(t))
	require.NoError(t, ed.Close())
	require.NoError(t, ed.Close())

	_, err := ed.Entry("personal", 0)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, ed.Save(), ErrClosed)
}

func TestInitializeMissingRequiredUnit(t *testing.T) {
	root := buildDump(t)
	require.NoError(t, os.Remove(filepath.Join(root, "romfs", "a", "0", "1", "7")))

	ed, err := New(root, testGame, testLayout(), editor.LanguageEnglish)
	require.NoError(t, err)
	err = ed.Initialize()
	require.ErrorIs(t, err, editor.ErrInitialization)
	require.ErrorIs(t, err, fs.ErrNotExist)
	assert.Empty(t, ed.Units())
	require.NoError(t, ed.Close())
}

func TestInitializeTruncatedUnit(t *testing.T) {
	root := buildDump(t)
	path := filepath.Join(root, "romfs", "a", "0", "1", "7")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-3], 0o644))

	ed, err := New(root, testGame, testLayout(), editor.LanguageEnglish)
	require.NoError(t, err)
	err = ed.Initialize()
	require.ErrorIs(t, err, editor.ErrInitialization)
	require.ErrorIs(t, err, container.ErrTruncated)
}

func TestSetEntryPersistsOnSave(t *testing.T) {
	root := buildDump(t)
	ed := openDump(t, root)

	require.NoError(t, ed.SetEntry("personal", 1, []byte("venusaur")))
	require.NoError(t, ed.SetEntry("encounters", 0, []byte("route9")))
	assert.ElementsMatch(t, []string{"personal", "encounters"}, ed.Dirty())

	require.NoError(t, ed.Save())
	assert.Empty(t, ed.Dirty())
	require.NoError(t, ed.Close())

	reopened := openDump(t, root)
	got, err := reopened.Entry("personal", 1)
	require.NoError(t, err)
	assert.Equal(t, "venusaur", string(got))
	got, err = reopened.Entry("personal", 0)
	require.NoError(t, err)
	assert.Equal(t, "bulbasaur", string(got))
	got, err = reopened.Entry("encounters", 0)
	require.NoError(t, err)
	assert.Equal(t, "route9", string(got))

	code, err := reopened.Raw("code")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, code)
}

func TestSetRawValidatesKind(t *testing.T) {
	ed := openDump(t, buildDump(t))

	require.ErrorIs(t, ed.SetRaw("personal", []byte("not a garc")), container.ErrTruncated)
	assert.Empty(t, ed.Dirty())

	require.NoError(t, ed.SetRaw("code", []byte{1, 2, 3}))
	raw, err := ed.Raw("code")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, raw)
}

func TestControlsHideMissingOptionalUnits(t *testing.T) {
	ed := openDump(t, buildDump(t))

	all := ed.Controls(editor.CategoryNone)
	editor.SortControls(all)
	labels := make([]string, len(all))
	for i, c := range all {
		labels[i] = c.Label
	}
	assert.Equal(t, []string{"Game Text", "Personal Stats", "Wild Encounters"}, labels)

	field := ed.Controls(editor.CategoryField)
	require.Len(t, field, 1)
	assert.Equal(t, "wild", field[0].ID)

	_, err := ed.Entry("zone", 0)
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestTextFollowsLanguage(t *testing.T) {
	ed := openDump(t, buildDump(t))

	lines, err := ed.TextLines(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello", "Goodbye"}, lines)

	ed.SetLanguage(editor.LanguageFrench)
	_, err = ed.TextLines(0)
	require.ErrorIs(t, err, fs.ErrNotExist)

	ed.SetLanguage(editor.LanguageEnglish)
	n, err := ed.TextCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLayoutValidate(t *testing.T) {
	l := testLayout()
	l.Controls = append(l.Controls, ControlSpec{ID: "bad", Units: []string{"nope"}})
	require.ErrorContains(t, l.Validate(), `unknown unit "nope"`)

	l = testLayout()
	l.Units = append(l.Units, UnitSpec{Name: "code", Path: "../escape"})
	err := l.Validate()
	require.ErrorContains(t, err, "duplicate unit")
	require.ErrorContains(t, err, "clean relative path")
}
