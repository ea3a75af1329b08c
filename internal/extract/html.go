package extract

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// Engine selects the markup dialect for HTML extraction.
type Engine string

const (
	EngineGoogle Engine = "google"
	EngineYahoo  Engine = "yahoo"
)

// Suggestion text length bounds in runes. Shorter strings are markup
// debris, longer ones are sentence fragments from result snippets.
const (
	minTermLen = 3
	maxTermLen = 100
)

// Selector sets tried first via goquery. Regex patterns below are the
// fallback when the DOM walk finds nothing.
var engineSelectors = map[Engine][]string{
	EngineGoogle: {
		`div#botstuff a`,
		`div[data-q]`,
		`a[data-ved] b`,
	},
	EngineYahoo: {
		`div.Unit--related a`,
		`section.related a`,
		`ul.SouthUnits a`,
	},
}

// Loose patterns over class names shared by both engines' related
// search blocks. Markup drifts constantly, so these aim wide.
var relatedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<div[^>]*class="[^"]*related[^"]*"[^>]*>(.*?)</div>`),
	regexp.MustCompile(`(?is)<section[^>]*class="[^"]*related[^"]*"[^>]*>(.*?)</section>`),
	regexp.MustCompile(`(?is)<ul[^>]*class="[^"]*related[^"]*"[^>]*>(.*?)</ul>`),
	regexp.MustCompile(`(?is)<li[^>]*class="[^"]*related[^"]*"[^>]*>([^<]+)</li>`),
	regexp.MustCompile(`(?is)<a[^>]*class="[^"]*related[^"]*"[^>]*>([^<]+)</a>`),
	regexp.MustCompile(`(?is)<div[^>]*class="[^"]*suggestion[^"]*"[^>]*>(.*?)</div>`),
	regexp.MustCompile(`(?is)関連する検索[^>]*>([^<]+)</a>`),
	regexp.MustCompile(`(?is)関連検索[^>]*>([^<]+)</a>`),
}

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// RelatedTerms extracts related-search and PAA terms from a search
// result page. It never fails: unparseable or unmatched markup yields
// an empty slice.
func RelatedTerms(html []byte, engine Engine) []string {
	var out []string
	seen := make(map[string]struct{})

	add := func(s string) {
		s = strings.TrimSpace(s)
		if !validTerm(s) {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html)); err == nil {
		for _, sel := range engineSelectors[engine] {
			doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
				if q, ok := s.Attr("data-q"); ok {
					add(q)
					return
				}
				add(s.Text())
			})
		}
	}

	if len(out) > 0 {
		return out
	}

	// DOM walk came up empty; fall back to pattern scraping over the
	// raw markup.
	for _, pat := range relatedPatterns {
		for _, m := range pat.FindAllSubmatch(html, -1) {
			text := tagPattern.ReplaceAllString(string(m[1]), "\n")
			for _, line := range strings.Split(text, "\n") {
				add(line)
			}
		}
	}
	return out
}

func validTerm(s string) bool {
	n := utf8.RuneCountInString(s)
	return n >= minTermLen && n <= maxTermLen
}
