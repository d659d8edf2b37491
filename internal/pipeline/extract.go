package pipeline

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/intelliscan/intelliscan/internal/model"
)

// pattern pairs a compiled expression with an optional syntactic validator
// applied to each raw match.
type pattern struct {
	re    *regexp.Regexp
	valid func(match string) bool
}

var (
	emailPatterns = []pattern{
		{re: regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)},
	}

	phonePatterns = []pattern{
		// International with country code: +1 234 567 8900, +44-20-7946-0958
		{re: regexp.MustCompile(`\+\d{1,3}[\s.-]?\(?\d{1,4}\)?(?:[\s.-]?\d{2,4}){1,4}`), valid: validPhone},
		// Parenthesized area code: (123) 456-7890
		{re: regexp.MustCompile(`\(\d{3}\)\s*\d{3}[\s.-]?\d{4}`), valid: validPhone},
		// Separated groups: 123-456-7890, 123.456.7890
		{re: regexp.MustCompile(`\b\d{3}[.-]\d{3}[.-]\d{4}\b`), valid: validPhone},
	}

	datePatterns = []pattern{
		// DD/MM/YYYY, MM-DD-YY and friends
		{re: regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`), valid: validDayFirst},
		// YYYY-MM-DD
		{re: regexp.MustCompile(`\b\d{4}[/-]\d{1,2}[/-]\d{1,2}\b`), valid: validYearFirst},
		// January 1, 2024 / Sep 03 2025
		{re: regexp.MustCompile(`(?i)\b(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+\d{1,2},?\s+\d{4}\b`), valid: validMonthName},
	}

	amountPatterns = []pattern{
		// Currency symbol prefix: $1,250.00, € 99.95
		{re: regexp.MustCompile(`[$€£₹]\s?\d+(?:,\d{3})*(?:\.\d+)?`)},
		// Currency code or word suffix: 1,250.00 USD, 42 dollars
		{re: regexp.MustCompile(`(?i)\b\d+(?:,\d{3})*(?:\.\d+)?\s?(?:USD|EUR|GBP|INR|CAD|AUD|dollars?|euros?|rupees?)\b`)},
	}

	urlPatterns = []pattern{
		// Scheme matches case-insensitively; the stored value keeps its casing.
		{re: regexp.MustCompile(`(?i:https?)://[^\s<>"{}|\\^` + "`" + `\[\]]+`)},
	}
)

// Extract scans text for structured entities. Pure function of its input:
// each kind's matcher scans the full text once, matches are trimmed,
// deduplicated (case-insensitively for emails and URLs, first-seen casing
// kept) and returned in first-occurrence order. Cross-kind overlap is
// accepted.
func Extract(text string) model.EntitySet {
	lower := strings.ToLower
	return model.EntitySet{
		Emails:  matchAll(text, emailPatterns, lower),
		Phones:  matchAll(text, phonePatterns, nil),
		Dates:   matchAll(text, datePatterns, nil),
		Amounts: matchAll(text, amountPatterns, nil),
		URLs:    matchAll(text, urlPatterns, lower),
	}
}

// matchAll collects matches for all patterns of one entity kind, orders them
// by position in the text, and deduplicates by normalized key. A match whose
// span lies wholly inside another match of the same kind is dropped, so
// "234-567-8900" inside "+1-234-567-8900" does not surface twice. The
// returned slice is never nil.
func matchAll(text string, patterns []pattern, normKey func(string) string) []string {
	type hit struct {
		start, end int
		val        string
	}
	var hits []hit
	for _, p := range patterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			val := trimEntity(text[loc[0]:loc[1]])
			if val == "" {
				continue
			}
			if p.valid != nil && !p.valid(val) {
				continue
			}
			hits = append(hits, hit{start: loc[0], end: loc[1], val: val})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].start != hits[j].start {
			return hits[i].start < hits[j].start
		}
		return hits[i].end > hits[j].end
	})

	var spans [][2]int
	seen := make(map[string]struct{}, len(hits))
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		contained := false
		for _, s := range spans {
			if h.start >= s[0] && h.end <= s[1] {
				contained = true
				break
			}
		}
		if contained {
			continue
		}
		spans = append(spans, [2]int{h.start, h.end})

		key := h.val
		if normKey != nil {
			key = normKey(key)
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, h.val)
	}
	return out
}

// trimEntity strips surrounding whitespace and sentence punctuation that
// regex boundaries let through.
func trimEntity(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, `.,;:!?"'`)
	s = strings.TrimLeft(s, `"'`)
	// A trailing paren is punctuation unless it closes one inside the match.
	if strings.HasSuffix(s, ")") && !strings.Contains(s, "(") {
		s = strings.TrimSuffix(s, ")")
	}
	return s
}

// validPhone requires 7 to 15 significant digits.
func validPhone(match string) bool {
	var digits int
	for _, r := range match {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 7 && digits <= 15
}

var numberRe = regexp.MustCompile(`\d+`)

// validDayFirst checks day <= 31 and month <= 12 for two-digit-leading
// numeric dates, accepting both day-first and month-first orderings.
func validDayFirst(match string) bool {
	nums := numberRe.FindAllString(match, 3)
	if len(nums) != 3 {
		return false
	}
	a, b := atoi(nums[0]), atoi(nums[1])
	return (inRange(a, 1, 31) && inRange(b, 1, 12)) || (inRange(a, 1, 12) && inRange(b, 1, 31))
}

// validYearFirst checks month <= 12 and day <= 31 for YYYY-MM-DD dates.
func validYearFirst(match string) bool {
	nums := numberRe.FindAllString(match, 3)
	if len(nums) != 3 {
		return false
	}
	return inRange(atoi(nums[1]), 1, 12) && inRange(atoi(nums[2]), 1, 31)
}

// validMonthName checks day <= 31 for month-name dates.
func validMonthName(match string) bool {
	nums := numberRe.FindAllString(match, 2)
	if len(nums) != 2 {
		return false
	}
	return inRange(atoi(nums[0]), 1, 31)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func inRange(n, lo, hi int) bool {
	return n >= lo && n <= hi
}
