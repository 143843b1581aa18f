// Package games is the built-in catalog of supported dumps.
package games

import (
	"fmt"
	"sort"

	"romforge/internal/container"
	"romforge/internal/editor"
	"romforge/internal/editor/pack"
	"romforge/internal/profile"
	"romforge/pkg/sigmatch"
)

var (
	garcSignature  = sigmatch.Signature{Name: "garc", Magic: container.GARCMagic}
	gfpakSignature = sigmatch.Signature{Name: "gfpak", Magic: []byte("GFLXPACK")}
)

var (
	XY   = editor.Game{Name: "XY", Title: "Pokémon X & Y", Generation: 6}
	ORAS = editor.Game{Name: "ORAS", Title: "Pokémon Omega Ruby & Alpha Sapphire", Generation: 6}
	SM   = editor.Game{Name: "SM", Title: "Pokémon Sun & Moon", Generation: 7}
	USUM = editor.Game{Name: "USUM", Title: "Pokémon Ultra Sun & Ultra Moon", Generation: 7}
	GG   = editor.Game{Name: "GG", Title: "Pokémon Let's Go Pikachu & Eevee", Generation: 7}
	SWSH = editor.Game{Name: "SWSH", Title: "Pokémon Sword & Shield", Generation: 8}
	PLA  = editor.Game{Name: "PLA", Title: "Pokémon Legends: Arceus", Generation: 8}
	SV   = editor.Game{Name: "SV", Title: "Pokémon Scarlet & Violet", Generation: 9}
)

// garcPath spells a 3DS romfs archive number the way the dumps store it,
// one directory per digit.
func garcPath(n int) string {
	return fmt.Sprintf("romfs/a/%d/%d/%d", n/100, n/10%10, n%10)
}

// threeDSArchives is the number of romfs/a archives each 3DS title ships.
// Later titles carry every archive number of the earlier ones.
var threeDSArchives = map[string]int{
	XY.Name:   271,
	ORAS.Name: 299,
	SM.Name:   311,
	USUM.Name: 333,
}

// archiveMarkers requires exefs/code.bin and, for every known archive count
// up to count, the last archive of that count. A dump of a later title
// satisfies a strict superset of an earlier title's markers.
func archiveMarkers(count int) []profile.Marker {
	counts := make([]int, 0, len(threeDSArchives))
	for _, n := range threeDSArchives {
		if n <= count {
			counts = append(counts, n)
		}
	}
	sort.Ints(counts)
	markers := []profile.Marker{profile.Path("exefs/code.bin")}
	for _, n := range counts {
		markers = append(markers, profile.Signature(garcPath(n-1), garcSignature))
	}
	return markers
}

// garcText maps each language of generation gen to consecutive text
// archives starting at first.
func garcText(gen, first int) pack.TextSpec {
	paths := make(map[editor.Language]string)
	for l := editor.LanguageJapaneseKana; l <= editor.MaxLanguage(gen); l++ {
		paths[l] = garcPath(first + int(l))
	}
	return pack.TextSpec{Source: pack.TextGARC, Paths: paths}
}

var switchLanguageDirs = map[editor.Language]string{
	editor.LanguageJapaneseKana:       "JPN",
	editor.LanguageJapaneseKanji:      "JPN_KANJI",
	editor.LanguageEnglish:            "English",
	editor.LanguageFrench:             "French",
	editor.LanguageItalian:            "Italian",
	editor.LanguageGerman:             "German",
	editor.LanguageSpanish:            "Spanish",
	editor.LanguageKorean:             "Korean",
	editor.LanguageChineseSimplified:  "Simp_Chinese",
	editor.LanguageChineseTraditional: "Trad_Chinese",
}

// dirText maps each language to base/<language folder>/common.
func dirText(base string) pack.TextSpec {
	paths := make(map[editor.Language]string, len(switchLanguageDirs))
	for l, dir := range switchLanguageDirs {
		paths[l] = base + "/" + dir + "/common"
	}
	return pack.TextSpec{Source: pack.TextDir, Paths: paths}
}

func threeDSLayout(gen, personal, learnsets, trainers, encounters, text int, extra ...pack.UnitSpec) pack.Layout {
	units := []pack.UnitSpec{
		{Name: "code", Path: "exefs/code.bin", Kind: pack.UnitRaw},
		{Name: "personal", Path: garcPath(personal), Kind: pack.UnitGARC},
		{Name: "learnsets", Path: garcPath(learnsets), Kind: pack.UnitGARC, Optional: true},
		{Name: "trainers", Path: garcPath(trainers), Kind: pack.UnitGARC, Optional: true},
		{Name: "encounters", Path: garcPath(encounters), Kind: pack.UnitGARC, Optional: true},
	}
	units = append(units, extra...)
	return pack.Layout{
		Units: units,
		Controls: []pack.ControlSpec{
			{ID: "personal_stats", Category: editor.CategoryPokemon, Units: []string{"personal"}},
			{ID: "level_up_moves", Category: editor.CategoryPokemon, Units: []string{"learnsets"}},
			{ID: "trainers", Category: editor.CategoryBattle, Units: []string{"trainers"}},
			{ID: "wild_encounters", Category: editor.CategoryField, Units: []string{"encounters"}},
			{ID: "shop_items", Category: editor.CategoryItems, Units: []string{"code"}},
			{ID: "move_tutors", Category: editor.CategoryMoves, Units: []string{"code"}},
			{ID: "game_text", Category: editor.CategoryText},
			{ID: "code_patches", Category: editor.CategoryMisc, Units: []string{"code"}},
		},
		Text: garcText(gen, text),
	}
}

func switchLayout(units []pack.UnitSpec, controls []pack.ControlSpec, text pack.TextSpec) pack.Layout {
	controls = append(controls,
		pack.ControlSpec{ID: "game_text", Category: editor.CategoryText},
		pack.ControlSpec{ID: "exheader", Label: "ExeFS Metadata", Category: editor.CategoryMisc, Units: []string{"npdm"}},
	)
	return pack.Layout{Units: units, Controls: controls, Text: text}
}

var npdmUnit = pack.UnitSpec{Name: "npdm", Path: "exefs/main.npdm", Kind: pack.UnitRaw}

func catalog() []profile.Profile {
	xy := threeDSLayout(6, 218, 214, 38, 12, 72)
	oras := threeDSLayout(6, 195, 191, 36, 13, 71)
	sm := threeDSLayout(7, 17, 13, 106, 82, 30)
	usum := threeDSLayout(7, 17, 13, 106, 82, 30,
		pack.UnitSpec{Name: "zones", Path: garcPath(268), Kind: pack.UnitGARC},
	)
	usum.Controls = append(usum.Controls, pack.ControlSpec{ID: "zone_data", Category: editor.CategoryField, Units: []string{"zones"}})

	gg := switchLayout(
		[]pack.UnitSpec{
			npdmUnit,
			{Name: "data_table", Path: "romfs/bin/archive/field/resident/data_table.gfpak", Kind: pack.UnitRaw},
			{Name: "trainers", Path: "romfs/bin/trainer/trainer_data.gfpak", Kind: pack.UnitRaw, Optional: true},
		},
		[]pack.ControlSpec{
			{ID: "field_tables", Category: editor.CategoryField, Units: []string{"data_table"}},
			{ID: "trainers", Category: editor.CategoryBattle, Units: []string{"trainers"}},
		},
		dirText("romfs/bin/message"),
	)
	swsh := switchLayout(
		[]pack.UnitSpec{
			npdmUnit,
			{Name: "data_table", Path: "romfs/bin/archive/field/resident/data_table.gfpak", Kind: pack.UnitRaw},
			{Name: "personal", Path: "romfs/bin/pml/personal/personal_total.bin", Kind: pack.UnitRaw},
			{Name: "items", Path: "romfs/bin/pml/item/item.dat", Kind: pack.UnitRaw, Optional: true},
			{Name: "moves", Path: "romfs/bin/pml/waza/waza_total.bin", Kind: pack.UnitRaw, Optional: true},
		},
		[]pack.ControlSpec{
			{ID: "field_tables", Category: editor.CategoryField, Units: []string{"data_table"}},
			{ID: "personal_stats", Category: editor.CategoryPokemon, Units: []string{"personal"}},
			{ID: "item_data", Category: editor.CategoryItems, Units: []string{"items"}},
			{ID: "move_data", Category: editor.CategoryMoves, Units: []string{"moves"}},
		},
		dirText("romfs/bin/message"),
	)
	pla := switchLayout(
		[]pack.UnitSpec{
			npdmUnit,
			{Name: "personal", Path: "romfs/bin/pml/personal/personal_array.bin", Kind: pack.UnitRaw},
			{Name: "outbreaks", Path: "romfs/bin/field/param/outbreak/outbreak_array.bin", Kind: pack.UnitRaw, Optional: true},
		},
		[]pack.ControlSpec{
			{ID: "personal_stats", Category: editor.CategoryPokemon, Units: []string{"personal"}},
			{ID: "mass_outbreaks", Category: editor.CategoryField, Units: []string{"outbreaks"}},
		},
		dirText("romfs/bin/message"),
	)
	sv := switchLayout(
		[]pack.UnitSpec{
			npdmUnit,
			{Name: "trpfd", Path: "romfs/arc/data.trpfd", Kind: pack.UnitRaw},
			{Name: "trpfs", Path: "romfs/arc/data.trpfs", Kind: pack.UnitRaw},
		},
		[]pack.ControlSpec{
			{ID: "file_index", Category: editor.CategoryMisc, Units: []string{"trpfd"}},
			{ID: "archive_browser", Category: editor.CategoryGraphics, Units: []string{"trpfs"}},
		},
		dirText("romfs/arc/message"),
	)

	threeDS := func(game editor.Game, layout pack.Layout) profile.Profile {
		return profile.Profile{
			Game:     game,
			Markers:  archiveMarkers(threeDSArchives[game.Name]),
			Priority: 1,
			Factory:  pack.Factory(game, layout),
		}
	}
	ggMarkers := []profile.Marker{
		profile.Path("exefs/main.npdm"),
		profile.Signature("romfs/bin/archive/field/resident/data_table.gfpak", gfpakSignature),
	}

	return []profile.Profile{
		threeDS(XY, xy),
		threeDS(ORAS, oras),
		threeDS(SM, sm),
		threeDS(USUM, usum),
		{Game: GG, Markers: ggMarkers, Priority: 1, Factory: pack.Factory(GG, gg)},
		{
			Game:     SWSH,
			Markers:  append(append([]profile.Marker(nil), ggMarkers...), profile.Path("romfs/bin/pml/personal/personal_total.bin")),
			Priority: 1,
			Factory:  pack.Factory(SWSH, swsh),
		},
		{
			Game:     PLA,
			Markers:  []profile.Marker{profile.Path("exefs/main.npdm"), profile.Path("romfs/bin/pml/personal/personal_array.bin")},
			Priority: 1,
			Factory:  pack.Factory(PLA, pla),
		},
		{
			Game:     SV,
			Markers:  []profile.Marker{profile.Path("exefs/main.npdm"), profile.Path("romfs/arc/data.trpfd"), profile.Path("romfs/arc/data.trpfs")},
			Priority: 1,
			Factory:  pack.Factory(SV, sv),
		},
	}
}

// Profiles returns the built-in profiles.
func Profiles() []profile.Profile {
	return catalog()
}

// Registry builds the registry of built-in profiles.
func Registry() (*profile.Registry, error) {
	return profile.NewRegistry(catalog()...)
}
