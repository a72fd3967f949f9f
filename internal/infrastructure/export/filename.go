// Package export encodes transcripts and records into the files handed to
// the registrar's office: PDF documents, zip archives and CSV sheets.
package export

import (
	"fmt"
	"path"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// MaxNameRunes caps the length of a sanitised file name stem.
const MaxNameRunes = 80

// FallbackName is used when nothing printable is left of a name.
const FallbackName = "student"

// SanitizeName turns an arbitrary person name into a safe file name stem.
// Accents are stripped after NFD decomposition and every run of characters
// outside [A-Za-z0-9._-] becomes a single "_".
func SanitizeName(name string) string {
	decomposed := norm.NFD.String(name)

	var sb strings.Builder
	sb.Grow(len(decomposed))
	pendingSep := false
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if isNameRune(r) {
			if pendingSep && sb.Len() > 0 {
				sb.WriteByte('_')
			}
			pendingSep = false
			sb.WriteRune(r)
			continue
		}
		pendingSep = true
	}

	out := strings.Trim(sb.String(), "._-")
	if runes := []rune(out); len(runes) > MaxNameRunes {
		out = strings.TrimRight(string(runes[:MaxNameRunes]), "._-")
	}
	if out == "" {
		return FallbackName
	}
	return out
}

func isNameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '_', r == '-':
		return true
	default:
		return false
	}
}

// EntryName names a student's document: the registration number when
// present, else the sanitised name, plus the semester suffix and ext.
func EntryName(registrationNumber, name, suffix, ext string) string {
	stem := strings.TrimSpace(registrationNumber)
	if stem == "" {
		stem = name
	}
	return SanitizeName(stem) + suffix + ext
}

// nameSet hands out unique entry names, appending -2, -3, ... to repeats.
type nameSet struct {
	used map[string]bool
}

func newNameSet() *nameSet {
	return &nameSet{used: make(map[string]bool)}
}

func (s *nameSet) claim(name string) string {
	if !s.used[name] {
		s.used[name] = true
		return name
	}
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, i, ext)
		if !s.used[candidate] {
			s.used[candidate] = true
			return candidate
		}
	}
}
