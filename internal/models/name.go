package models

import "strings"

// Turkish dotted and dotless i fold onto plain "i", so "SINAV", "Sınav" and
// "sinav" share a key, as do "İstatistik" and "istatistik".
var dotlessI = strings.NewReplacer("i\u0307", "i", "\u0131", "i")

// FoldName returns the case-insensitive comparison key for a display name.
// Every name match (content identities, header resolution, overrides) goes
// through it; the database never folds case itself.
func FoldName(name string) string {
	return dotlessI.Replace(strings.ToLower(strings.TrimSpace(name)))
}

// SameName reports whether two names are equal under FoldName.
func SameName(a, b string) bool {
	return FoldName(a) == FoldName(b)
}
