// Package settings reads and edits top-level keys of a flat settings
// document such as opensearch.yml without re-serializing it.
//
// Rendered documents may legitimately contain the same key more than once
// (the user overlay is appended as raw text), so every lookup applies
// "last occurrence wins", matching how the search service itself loads the
// file.
package settings

import (
	"bytes"
	"regexp"
	"strings"
)

// Change describes what Set did to a document
type Change int

const (
	Unchanged Change = iota
	Replaced
	Appended
)

func (c Change) String() string {
	switch c {
	case Replaced:
		return "replaced"
	case Appended:
		return "appended"
	default:
		return "unchanged"
	}
}

func keyPattern(key string) *regexp.Regexp {
	return regexp.MustCompile(`^` + regexp.QuoteMeta(key) + `[ \t]*:(.*)$`)
}

// Lookup returns the effective value of key, i.e. its last occurrence
func Lookup(doc []byte, key string) (string, bool) {
	re := keyPattern(key)

	var (
		value string
		found bool
	)
	for _, line := range lines(doc) {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		value = cleanValue(m[1])
		found = true
	}
	return value, found
}

// Set makes value the effective value of key.
//
// An absent key is appended. A key whose effective value differs has every
// occurrence rewritten in place, so no earlier duplicate can disagree with
// the last one. A key that already carries value is left untouched and the
// document is returned as is.
//
// Only the flat "http.port: 9200" form at the start of a line is recognized.
// The nested form (http: followed by an indented port:) is not seen, so Set
// would append a flat key beside it and the document would carry two
// conflicting values. Rendered documents never contain the nested form of
// the port key because the assembler rejects it.
func Set(doc []byte, key, value string) ([]byte, Change) {
	current, found := Lookup(doc, key)
	if found && current == value {
		return doc, Unchanged
	}

	entry := key + ": " + value

	if !found {
		var buf bytes.Buffer
		buf.Write(doc)
		if len(doc) > 0 && !bytes.HasSuffix(doc, []byte("\n")) {
			buf.WriteByte('\n')
		}
		buf.WriteString(entry)
		buf.WriteByte('\n')
		return buf.Bytes(), Appended
	}

	re := keyPattern(key)
	src := lines(doc)
	out := make([]string, len(src))
	for i, line := range src {
		if re.MatchString(line) {
			out[i] = entry
			continue
		}
		out[i] = line
	}

	result := strings.Join(out, "\n")
	if bytes.HasSuffix(doc, []byte("\n")) {
		result += "\n"
	}
	return []byte(result), Replaced
}

// lines splits doc on newlines, dropping the empty element after a trailing
// newline and any carriage returns.
func lines(doc []byte) []string {
	text := strings.TrimSuffix(string(doc), "\n")
	if text == "" {
		return nil
	}
	parts := strings.Split(text, "\n")
	for i, p := range parts {
		parts[i] = strings.TrimSuffix(p, "\r")
	}
	return parts
}

func cleanValue(raw string) string {
	v := strings.TrimSpace(raw)
	if i := strings.Index(v, " #"); i >= 0 {
		v = strings.TrimSpace(v[:i])
	}
	if len(v) >= 2 && (v[0] == '"' && v[len(v)-1] == '"' || v[0] == '\'' && v[len(v)-1] == '\'') {
		v = v[1 : len(v)-1]
	}
	return v
}
