package dispatch

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"romforge/internal/editor"
	"romforge/internal/profile"
)

type fakeEditor struct {
	game    editor.Game
	root    string
	lang    editor.Language
	initErr error
	closed  int
}

func (f *fakeEditor) Game() editor.Game { return f.game }
func (f *fakeEditor) Location() string { return f.root }
func (f *fakeEditor) Language() editor.Language { return f.lang }
func (f *fakeEditor) SetLanguage(l editor.Language) { f.lang = l }
func (f *fakeEditor) Initialize() error { return f.initErr }
func (f *fakeEditor) Controls(editor.Category) []editor.Control { return nil }
func (f *fakeEditor) Save() error { return nil }
func (f *fakeEditor) Close() error { f.closed++; return nil }

type built struct {
	handles []*fakeEditor
}

func (b *built) profile(name string, gen, priority int, initErr error, markers ...string) profile.Profile {
	game := editor.Game{Name: name, Generation: gen}
	ms := make([]profile.Marker, len(markers))
	for i, m := range markers {
		ms[i] = profile.Path(m)
	}
	return profile.Profile{
		Game:     game,
		Markers:  ms,
		Priority: priority,
		Factory: func(root string, lang editor.Language) (editor.Editor, error) {
			h := &fakeEditor{game: game, root: root, lang: lang, initErr: initErr}
			b.handles = append(b.handles, h)
			return h, nil
		},
	}
}

func newDispatcher(t *testing.T, profiles ...profile.Profile) *Dispatcher {
	t.Helper()
	reg, err := profile.NewRegistry(profiles...)
	require.NoError(t, err)
	return New(reg, nil)
}

func dumpWith(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte{0}, 0o644))
	}
	return root
}

func requireKind(t *testing.T, err error, want editor.Kind) {
	t.Helper()
	require.Error(t, err)
	kind, ok := editor.KindOf(err)
	require.True(t, ok, "expected *editor.Error, got %T: %v", err, err)
	require.Equal(t, want, kind, err.Error())
}

func TestResolveSingleMarker(t *testing.T) {
	var b built
	d := newDispatcher(t,
		b.profile("A", 3, 1, nil, "main.exe"),
		b.profile("B", 4, 1, nil, "other.bin"),
	)
	dir := dumpWith(t, "main.exe")

	ed, err := d.Resolve(dir, editor.LanguageJapaneseKana)
	require.NoError(t, err)
	assert.Equal(t, 3, ed.Game().Generation)
	assert.Equal(t, dir, ed.Location())
	assert.Equal(t, editor.LanguageJapaneseKana, ed.Language())
}

func TestResolveUnrecognized(t *testing.T) {
	var b built
	d := newDispatcher(t, b.profile("A", 3, 1, nil, "main.exe", "data.bin"))

	_, err := d.Resolve(t.TempDir(), editor.LanguageEnglish)
	requireKind(t, err, editor.KindUnrecognizedGameData)
	require.ErrorIs(t, err, editor.ErrUnrecognizedGameData)

	_, err = d.Resolve(dumpWith(t, "main.exe"), editor.LanguageEnglish)
	requireKind(t, err, editor.KindUnrecognizedGameData)

	file := filepath.Join(dumpWith(t, "main.exe"), "main.exe")
	_, err = d.Resolve(file, editor.LanguageEnglish)
	requireKind(t, err, editor.KindUnrecognizedGameData)

	assert.Empty(t, b.handles, "no handle may be built for unrecognized folders")
}

func TestResolveMissingPathIsIOFailure(t *testing.T) {
	var b built
	d := newDispatcher(t, b.profile("A", 3, 1, nil, "main.exe"))

	_, err := d.Resolve(filepath.Join(t.TempDir(), "gone"), editor.LanguageEnglish)
	requireKind(t, err, editor.KindIOFailure)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestResolveAmbiguous(t *testing.T) {
	var b built
	d := newDispatcher(t,
		b.profile("A", 6, 1, nil, "main.exe"),
		b.profile("B", 7, 1, nil, "main.exe"),
	)

	_, err := d.Resolve(dumpWith(t, "main.exe"), editor.LanguageEnglish)
	requireKind(t, err, editor.KindAmbiguousFormat)
	var e *editor.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "A, B", e.Detail)
	assert.Empty(t, b.handles)
}

func TestResolvePriorityIndependentOfOrder(t *testing.T) {
	for _, reversed := range []bool{false, true} {
		var b built
		low := b.profile("Low", 6, 1, nil, "main.exe")
		high := b.profile("High", 8, 2, nil, "main.exe")
		profiles := []profile.Profile{low, high}
		if reversed {
			profiles = []profile.Profile{high, low}
		}
		d := newDispatcher(t, profiles...)

		ed, err := d.Resolve(dumpWith(t, "main.exe"), editor.LanguageEnglish)
		require.NoError(t, err)
		assert.Equal(t, "High", ed.Game().Name)
		assert.Equal(t, 8, ed.Game().Generation)
	}
}

func TestResolveCoverageBeatsPriority(t *testing.T) {
	var b built
	d := newDispatcher(t,
		b.profile("SM", 7, 9, nil, "exefs/code.bin", "romfs/a/0/1/7"),
		b.profile("USUM", 7, 1, nil, "exefs/code.bin", "romfs/a/0/1/7", "romfs/a/2/6/8"),
	)

	ed, err := d.Resolve(dumpWith(t, "exefs/code.bin", "romfs/a/0/1/7", "romfs/a/2/6/8"), editor.LanguageEnglish)
	require.NoError(t, err)
	assert.Equal(t, "USUM", ed.Game().Name)

	ed, err = d.Resolve(dumpWith(t, "exefs/code.bin", "romfs/a/0/1/7"), editor.LanguageEnglish)
	require.NoError(t, err)
	assert.Equal(t, "SM", ed.Game().Name)
}

func TestResolveInitializationFailureClosesHandle(t *testing.T) {
	var b built
	d := newDispatcher(t, b.profile("A", 7, 1, errors.New("personal table truncated"), "main.exe"))

	ed, err := d.Resolve(dumpWith(t, "main.exe"), editor.LanguageEnglish)
	assert.Nil(t, ed)
	requireKind(t, err, editor.KindInitializationFailure)
	require.ErrorIs(t, err, editor.ErrInitialization)

	var e *editor.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, InitFailureMessage, e.Message)
	assert.Equal(t, "personal table truncated", e.Detail)

	require.Len(t, b.handles, 1)
	assert.Equal(t, 1, b.handles[0].closed)
}

func TestResolveIOFailurePassesThrough(t *testing.T) {
	var b built
	ioErr := editor.NewError(editor.KindIOFailure, "/x", "map unit", os.ErrPermission)
	d := newDispatcher(t, b.profile("A", 7, 1, ioErr, "main.exe"))

	_, err := d.Resolve(dumpWith(t, "main.exe"), editor.LanguageEnglish)
	requireKind(t, err, editor.KindIOFailure)
	require.ErrorIs(t, err, os.ErrPermission)
}

func TestResolveRecoversFactoryPanic(t *testing.T) {
	reg, err := profile.NewRegistry(profile.Profile{
		Game:     editor.Game{Name: "A", Generation: 7},
		Markers:  []profile.Marker{profile.Path("main.exe")},
		Priority: 1,
		Factory: func(string, editor.Language) (editor.Editor, error) {
			panic("bad layout")
		},
	})
	require.NoError(t, err)

	_, err = New(reg, nil).Resolve(dumpWith(t, "main.exe"), editor.LanguageEnglish)
	requireKind(t, err, editor.KindInitializationFailure)
	assert.Contains(t, err.Error(), "bad layout")
}

func TestResolveRecordsLanguageWithoutClamping(t *testing.T) {
	var b built
	d := newDispatcher(t, b.profile("XY", 6, 1, nil, "main.exe"))

	ed, err := d.Resolve(dumpWith(t, "main.exe"), editor.LanguageChineseTraditional)
	require.NoError(t, err)
	assert.Equal(t, editor.LanguageChineseTraditional, ed.Language())
}
