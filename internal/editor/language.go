package editor

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

// Language is the locale ordinal used to pick text tables.
type Language int

const (
	LanguageJapaneseKana Language = iota
	LanguageJapaneseKanji
	LanguageEnglish
	LanguageFrench
	LanguageItalian
	LanguageGerman
	LanguageSpanish
	LanguageKorean
	LanguageChineseSimplified
	LanguageChineseTraditional
)

// LanguageDefault is used when a requested language cannot be served.
const LanguageDefault = LanguageEnglish

type languageInfo struct {
	code string
	name string
	tag  language.Tag
}

var languages = []languageInfo{
	LanguageJapaneseKana:       {"ja-Hrkt", "Japanese (Kana)", language.MustParse("ja-Hrkt")},
	LanguageJapaneseKanji:      {"ja", "Japanese (Kanji)", language.Japanese},
	LanguageEnglish:            {"en", "English", language.English},
	LanguageFrench:             {"fr", "French", language.French},
	LanguageItalian:            {"it", "Italian", language.Italian},
	LanguageGerman:             {"de", "German", language.German},
	LanguageSpanish:            {"es", "Spanish", language.Spanish},
	LanguageKorean:             {"ko", "Korean", language.Korean},
	LanguageChineseSimplified:  {"zh-Hans", "Chinese (Simplified)", language.SimplifiedChinese},
	LanguageChineseTraditional: {"zh-Hant", "Chinese (Traditional)", language.TraditionalChinese},
}

// Languages returns every known language in ordinal order.
func Languages() []Language {
	out := make([]Language, len(languages))
	for i := range languages {
		out[i] = Language(i)
	}
	return out
}

// Valid reports whether l is a known ordinal.
func (l Language) Valid() bool {
	return l >= 0 && int(l) < len(languages)
}

func (l Language) String() string {
	if !l.Valid() {
		return fmt.Sprintf("Language(%d)", int(l))
	}
	return languages[l].name
}

// Code is the short code used in file names and flags.
func (l Language) Code() string {
	if !l.Valid() {
		return strconv.Itoa(int(l))
	}
	return languages[l].code
}

// Tag returns the BCP 47 tag of l, or language.Und.
func (l Language) Tag() language.Tag {
	if !l.Valid() {
		return language.Und
	}
	return languages[l].tag
}

// MaxLanguage is the highest language a generation ships text for.
func MaxLanguage(generation int) Language {
	if generation < 7 {
		return LanguageKorean
	}
	return LanguageChineseTraditional
}

// ClampLanguage maps a language a generation cannot serve to
// LanguageDefault. The second result reports whether l was replaced.
func ClampLanguage(generation int, l Language) (Language, bool) {
	if !l.Valid() || l > MaxLanguage(generation) {
		return LanguageDefault, true
	}
	return l, false
}

// ParseLanguage accepts an ordinal, a short code or an English name.
func ParseLanguage(s string) (Language, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		l := Language(n)
		if !l.Valid() {
			return 0, fmt.Errorf("language ordinal %d out of range 0-%d", n, len(languages)-1)
		}
		return l, nil
	}
	for i, info := range languages {
		if strings.EqualFold(s, info.code) || strings.EqualFold(s, info.name) {
			return Language(i), nil
		}
	}
	return 0, fmt.Errorf("unknown language %q", s)
}
