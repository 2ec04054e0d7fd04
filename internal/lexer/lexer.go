// Package lexer implements the clause splitter (C3): it normalises a
// raw query string (case-folding and whitespace-collapsing everything
// outside quoted literals, while preserving literals verbatim), then
// locates the fixed top-level keywords in order and returns each
// clause's body text.
package lexer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/omniql-engine/esql/internal/errtaxonomy"
)

// Clauses holds the raw body text of each recognised clause. An
// absent optional clause has an empty string body.
type Clauses struct {
	Select   string
	From     string
	Over     string
	Where    string
	SuchThat string
	Having   string
	OrderBy  string
}

// clauseSpec describes one of the fixed keywords spec §4.1 lists, in
// the order they must appear.
type clauseSpec struct {
	name     string // canonical name used in error messages
	keyword  string // normalised (lower-case, single-spaced) keyword text
	required bool
}

var clauseOrder = []clauseSpec{
	{"SELECT", "select", true},
	{"FROM", "from", true},
	{"OVER", "over", false},
	{"WHERE", "where", false},
	{"SUCH THAT", "such that", false},
	{"HAVING", "having", false},
	{"ORDER BY", "order by", false},
}

var keywordNames = func() []string {
	names := make([]string, len(clauseOrder))
	for i, c := range clauseOrder {
		names[i] = c.name
	}
	return names
}()

const placeholderMarker = '\x00'

// Split normalises raw query text and slices it into clause bodies.
func Split(raw string) (*Clauses, error) {
	normalized, literals := extractLiterals(raw)
	normalized = foldAndCollapse(normalized)

	positions := make(map[string]int, len(clauseOrder))
	for _, spec := range clauseOrder {
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(spec.keyword) + `\b`)
		matches := re.FindAllStringIndex(normalized, -1)
		switch len(matches) {
		case 0:
			positions[spec.keyword] = -1
		case 1:
			positions[spec.keyword] = matches[0][0]
		default:
			return nil, errtaxonomy.NewParseError(spec.name, spec.name,
				fmt.Sprintf("keyword %s must appear at most once", spec.name))
		}
	}

	if positions["select"] != 0 {
		token := "?"
		if positions["select"] < 0 {
			return nil, errtaxonomy.NewParseError("SELECT", "", "query must start with SELECT")
		}
		return nil, errtaxonomy.NewParseError("SELECT", token, "SELECT must be the first keyword")
	}
	if positions["from"] < 0 {
		return nil, errtaxonomy.NewParseError("FROM", "", "missing FROM clause")
	}

	// present keywords, in the order they were found, to validate
	// monotonic ordering against clauseOrder.
	type found struct {
		spec clauseSpec
		pos  int
	}
	var presentInOrder []found
	for _, spec := range clauseOrder {
		if pos := positions[spec.keyword]; pos >= 0 {
			presentInOrder = append(presentInOrder, found{spec, pos})
		}
	}
	for i := 1; i < len(presentInOrder); i++ {
		if presentInOrder[i].pos <= presentInOrder[i-1].pos {
			return nil, errtaxonomy.NewParseError(presentInOrder[i].spec.name, presentInOrder[i].spec.name,
				fmt.Sprintf("%s must appear after %s", presentInOrder[i].spec.name, presentInOrder[i-1].spec.name))
		}
	}

	bodies := make(map[string]string, len(clauseOrder))
	for i, f := range presentInOrder {
		start := f.pos + len(f.spec.keyword)
		end := len(normalized)
		if i+1 < len(presentInOrder) {
			end = presentInOrder[i+1].pos
		}
		body := strings.TrimSpace(normalized[start:end])
		if body == "" {
			return nil, errtaxonomy.NewParseError(f.spec.name, "", fmt.Sprintf("empty %s clause", f.spec.name))
		}
		bodies[f.spec.keyword] = restoreLiterals(body, literals)
	}

	return &Clauses{
		Select:   bodies["select"],
		From:     bodies["from"],
		Over:     bodies["over"],
		Where:    bodies["where"],
		SuchThat: bodies["such that"],
		Having:   bodies["having"],
		OrderBy:  bodies["order by"],
	}, nil
}

// extractLiterals replaces every single- or double-quoted region in
// raw with a placeholder token, returning the literal text (including
// its surrounding quotes, casing preserved) indexed by placeholder
// number.
func extractLiterals(raw string) (string, []string) {
	var out strings.Builder
	var literals []string

	i := 0
	for i < len(raw) {
		ch := raw[i]
		if ch == '\'' || ch == '"' {
			j := i + 1
			for j < len(raw) && raw[j] != ch {
				j++
			}
			end := j
			if end < len(raw) {
				end++ // include closing quote
			}
			literals = append(literals, raw[i:end])
			fmt.Fprintf(&out, "%c%d%c", placeholderMarker, len(literals)-1, placeholderMarker)
			i = end
			continue
		}
		out.WriteByte(ch)
		i++
	}
	return out.String(), literals
}

var placeholderRe = regexp.MustCompile(string(placeholderMarker) + `(\d+)` + string(placeholderMarker))

// foldAndCollapse lower-cases and whitespace-collapses text outside
// placeholders, leaving placeholders themselves untouched.
func foldAndCollapse(s string) string {
	s = strings.ToLower(s)
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

func restoreLiterals(body string, literals []string) string {
	return placeholderRe.ReplaceAllStringFunc(body, func(m string) string {
		sub := placeholderRe.FindStringSubmatch(m)
		var idx int
		fmt.Sscanf(sub[1], "%d", &idx)
		if idx < 0 || idx >= len(literals) {
			return m
		}
		return literals[idx]
	})
}

// KeywordNames exposes the recognised top-level keyword names, for
// error-suggestion helpers such as errtaxonomy.SuggestSimilar.
func KeywordNames() []string { return keywordNames }
