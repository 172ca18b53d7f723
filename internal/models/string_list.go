package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// StringList is stored as a delimited text column (",music,chess,") so that
// membership can be matched portably with LIKE '%,music,%'.
type StringList []string

const stringListSep = ","

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	clean := l.Normalize()
	if len(clean) == 0 {
		return "", nil
	}
	return stringListSep + strings.Join(clean, stringListSep) + stringListSep, nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
	*l = ParseStringList(raw)
	return nil
}

// Normalize trims entries, drops empties and duplicates, and keeps order.
func (l StringList) Normalize() StringList {
	out := make(StringList, 0, len(l))
	seen := make(map[string]struct{}, len(l))
	for _, s := range l {
		s = strings.TrimSpace(s)
		if s == "" || strings.Contains(s, stringListSep) {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Contains reports whether s is a member of the list.
func (l StringList) Contains(s string) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}

// ParseStringList splits a comma-separated value into a normalized list.
func ParseStringList(raw string) StringList {
	return StringList(strings.Split(raw, stringListSep)).Normalize()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// EscapeLike escapes LIKE wildcards in s so it only matches literally.
// Pair the pattern with ESCAPE '\'.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// StringListLikePattern returns the LIKE pattern matching membership of s.
// Wildcards in s are escaped.
func StringListLikePattern(s string) string {
	return "%" + stringListSep + EscapeLike(strings.TrimSpace(s)) + stringListSep + "%"
}
