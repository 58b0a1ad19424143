package catalog

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// normalizeText folds text for matching: Unicode NFC composition, then case
// folding. Stored rows and search input go through the same fold, so a
// search matches regardless of how either side composed its accents or
// cased its letters.
func normalizeText(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}

// likeEscaper protects LIKE metacharacters in user search input. Queries
// using the result must declare ESCAPE '\'.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern builds a substring LIKE pattern from already-normalized text.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
