package router

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// AnchorKind indicates which syntax introduced the anchor part of a reference.
type AnchorKind string

const (
	AnchorKindColon AnchorKind = "colon" // @content:section
	AnchorKindHash  AnchorKind = "hash"  // @content#section
)

// ReferenceAnchor is the optional sub-target of a reference.
type ReferenceAnchor struct {
	Kind  AnchorKind
	Value string
}

// ReferenceToken is one @reference extracted from a prompt. StartIndex and
// EndIndex are byte offsets into the original prompt covering the whole match
// including the leading '@'.
type ReferenceToken struct {
	Raw        string
	Identifier string
	Anchor     *ReferenceAnchor
	StartIndex int
	EndIndex   int
}

// maxReferencesPerPrompt bounds pathological prompts; anything beyond the cap
// is ignored.
const maxReferencesPerPrompt = 50

// A segment starts and ends with an alphanumeric so trailing punctuation
// ("see @report.") stays out of the identifier. Interior dots and dashes are
// allowed for file names and slugs.
const identSeg = `[A-Za-z0-9](?:[A-Za-z0-9.\-]*[A-Za-z0-9])?`

// @identifier with optional ':' namespacing and an optional '#anchor'.
var referencePattern = regexp.MustCompile(`@(` + identSeg + `(?::` + identSeg + `)*)(?:#(` + identSeg + `))?`)

// ParseReferences extracts all @identifier references from a prompt.
// Supports:
//   - @slug               → whole-document reference
//   - @file-name.ext      → file reference
//   - @content:section    → colon anchor (section of a document)
//   - @content#section    → hash anchor, same meaning as colon
//
// Email addresses are not references: a '@' directly preceded by a word
// character is skipped. Tokens are returned in prompt order.
func ParseReferences(prompt string) []ReferenceToken {
	if !strings.ContainsRune(prompt, '@') {
		return nil
	}

	var tokens []ReferenceToken
	for _, loc := range referencePattern.FindAllStringSubmatchIndex(prompt, -1) {
		if len(tokens) >= maxReferencesPerPrompt {
			break
		}

		start, end := loc[0], loc[1]
		if isEmailLocalPart(prompt, start) {
			continue
		}

		identifier := prompt[loc[2]:loc[3]]
		var anchor *ReferenceAnchor

		if loc[4] >= 0 {
			anchor = &ReferenceAnchor{Kind: AnchorKindHash, Value: prompt[loc[4]:loc[5]]}
		} else if sep := strings.LastIndex(identifier, ":"); sep >= 0 {
			// Without a hash, the last colon segment is read as the anchor.
			anchor = &ReferenceAnchor{Kind: AnchorKindColon, Value: identifier[sep+1:]}
			identifier = identifier[:sep]
		}

		tokens = append(tokens, ReferenceToken{
			Raw:        prompt[start:end],
			Identifier: identifier,
			Anchor:     anchor,
			StartIndex: start,
			EndIndex:   end,
		})
	}
	return tokens
}

// isEmailLocalPart reports whether the '@' at byte offset atPos sits directly
// after a word character, which means it belongs to an email-like string.
func isEmailLocalPart(prompt string, atPos int) bool {
	if atPos == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(prompt[:atPos])
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
