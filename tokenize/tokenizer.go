// Package tokenize derives engine synonym groups from document tags.
// CJK tags are segmented so that fuzzy matching works on their parts;
// other scripts are left to the engine's own tokenizer.
package tokenize

import (
	"unicode"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

func InitTokenizer() (*tokenizer.Tokenizer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return t, nil
}

func containsCJK(text string) bool {
	for _, r := range text {
		if unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han) {
			return true
		}
	}
	return false
}

// IsCJKTag reports whether a tag needs segmentation-based synonyms.
func IsCJKTag(text string) bool {
	return containsCJK(text)
}

// SynonymsForTags maps each CJK tag to its segmented tokens. Tags without
// CJK runes contribute nothing.
func SynonymsForTags(t *tokenizer.Tokenizer, tags []string) map[string][]string {
	if t == nil {
		return nil
	}

	result := make(map[string][]string)
	for _, tag := range tags {
		if !IsCJKTag(tag) {
			continue
		}
		tokens := t.Wakati(tag)
		if len(tokens) > 1 {
			result[tag] = tokens
		}
	}
	return result
}
