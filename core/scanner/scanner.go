// Package scanner finds import directives in raw Nix source text.
//
// It does not parse Nix. A directive is the keyword "import" followed by
// whitespace and a double-quoted path, a single-quoted path, or a bare token
// running up to the next whitespace or semicolon. Occurrences inside comments
// and string literals are reported like any other.
package scanner

import (
	"regexp"
	"strings"

	"github.com/tristendillon/nixbundle/core/models"
)

var importPattern = regexp.MustCompile(`import\s+(?:"([^"]+)"|'([^']+)'|([^\s;]+))`)

// Scan returns the import occurrences of content in line order, then
// left-to-right within a line. id is only used for error reporting.
func Scan(id models.FileIdentity, content string) ([]models.ImportOccurrence, error) {
	var imports []models.ImportOccurrence

	offset := 0
	lineNo := 0
	for offset <= len(content) {
		lineNo++
		line := content[offset:]
		next := len(content) + 1
		if i := strings.IndexByte(line, '\n'); i >= 0 {
			line = line[:i]
			next = offset + i + 1
		}

		for _, m := range importPattern.FindAllStringSubmatchIndex(line, -1) {
			target, ok := captured(line, m)
			literal := line[m[0]:m[1]]
			if !ok {
				return nil, models.NewImportSyntaxError(id, lineNo, literal)
			}

			imports = append(imports, models.ImportOccurrence{
				Target:  target,
				Line:    lineNo,
				Column:  m[0] + 1,
				Literal: literal,
				Start:   offset + m[0],
				End:     offset + m[1],
			})
		}

		offset = next
	}

	return imports, nil
}

// captured returns the first non-empty path group of a match.
func captured(line string, m []int) (string, bool) {
	for g := 1; g <= 3; g++ {
		start, end := m[2*g], m[2*g+1]
		if start >= 0 && end > start {
			return line[start:end], true
		}
	}
	return "", false
}
