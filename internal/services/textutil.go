package services

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {}, "for": {},
	"from": {}, "has": {}, "have": {}, "in": {}, "into": {}, "is": {}, "it": {}, "its": {}, "of": {},
	"on": {}, "or": {}, "our": {}, "that": {}, "the": {}, "their": {}, "this": {}, "to": {}, "we": {},
	"will": {}, "with": {}, "you": {}, "your": {}, "who": {}, "can": {}, "able": {}, "ability": {},
	"experience": {}, "experienced": {}, "years": {}, "year": {}, "yrs": {}, "strong": {}, "solid": {},
	"good": {}, "excellent": {}, "knowledge": {}, "understanding": {}, "proven": {}, "plus": {},
	"must": {}, "required": {}, "requirement": {}, "requirements": {}, "preferred": {}, "skills": {},
	"skill": {}, "work": {}, "working": {}, "familiarity": {}, "familiar": {}, "proficiency": {},
	"proficient": {}, "hands-on": {}, "using": {}, "use": {}, "etc": {}, "other": {}, "least": {},
}

var actionVerbs = map[string]struct{}{
	"led": {}, "lead": {}, "leading": {}, "built": {}, "build": {}, "building": {}, "rebuilt": {},
	"designed": {}, "developed": {}, "developing": {}, "implemented": {}, "architected": {},
	"launched": {}, "managed": {}, "managing": {}, "created": {}, "delivered": {}, "migrated": {},
	"optimized": {}, "optimised": {}, "improved": {}, "reduced": {}, "increased": {}, "scaled": {},
	"deployed": {}, "automated": {}, "mentored": {}, "mentoring": {}, "owned": {}, "shipped": {},
	"maintained": {}, "wrote": {}, "drove": {}, "established": {}, "integrated": {}, "refactored": {},
	"coordinated": {}, "spearheaded": {}, "handled": {}, "introduced": {}, "processed": {},
	"trained": {}, "analyzed": {}, "analysed": {}, "researched": {}, "published": {}, "negotiated": {},
	"cut": {}, "grew": {}, "saved": {}, "resolved": {}, "modernized": {}, "streamlined": {},
}

var (
	leadershipWords    = []string{"led", "lead", "leading", "mentored", "mentoring", "managed", "managing", "team of", "headed", "supervised", "coached"}
	collaborationWords = []string{"team", "collaborated", "cross-functional", "stakeholders", "partnered", "communicated", "presented", "worked with", "coordinated"}
	vaguePhrases       = []string{"responsible for", "worked on", "involved in", "helped with", "exposure to", "familiar with", "various", "assisted with", "participated in", "etc"}
	scaleWords         = []string{
		"req/s", "rps", "qps", "tps", "requests", "users", "customers", "transactions", "throughput",
		"latency", "uptime", "million", "billion", "thousand", "terabytes", "petabytes", "tb", "gb",
	}
)

var (
	wordPattern     = regexp.MustCompile(`[a-z0-9][a-z0-9+#./-]*`)
	numberPattern   = regexp.MustCompile(`\d`)
	emailPattern    = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern    = regexp.MustCompile(`\+?\d[\d\s().\-]{7,}\d`)
	urlPattern      = regexp.MustCompile(`(?i)(https?://\S+|www\.\S+|linkedin\.com/\S+|github\.com/\S+)`)
	bulletPattern   = regexp.MustCompile(`^\s*(?:[-*•▪◦‣·]|\d{1,2}[.)])\s+`)
	yearsPattern    = regexp.MustCompile(`(?i)(\d{1,2}(?:\.\d+)?)\s*\+?\s*(?:years?|yrs?)\b`)
	yearsExpPattern = regexp.MustCompile(`(?i)(\d{1,2}(?:\.\d+)?)\s*\+?\s*(?:years?|yrs?)(?:\s+of)?(?:\s+[a-z\-]+){0,2}?\s+(?:experience|exp)\b`)
	dateRangePattern = regexp.MustCompile(
		`(?i)(?:(jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?\s+)?((?:19|20)\d{2})\s*(?:-|–|—|to|until)\s*` +
			`(?:(?:(jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?\s+)?((?:19|20)\d{2})|(present|current|now|today))`,
	)
)

var monthIndex = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "sept": 9, "oct": 10, "nov": 11, "dec": 12,
}

// normalizeText lower-cases and collapses whitespace.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// normalizeForDedup reduces a sentence to letters, digits and single spaces.
func normalizeForDedup(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func tokenize(s string) []string {
	raw := wordPattern.FindAllString(strings.ToLower(s), -1)
	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.TrimRight(t, ".-/")
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// contentTokens drops stopwords and very short tokens.
func contentTokens(s string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, t := range tokenize(s) {
		if len(t) < 3 && !strings.ContainsAny(t, "+#") {
			continue
		}
		if _, stop := stopwords[t]; stop {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// containsTerm finds term in lowered text on word boundaries.
func containsTerm(lower, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return false
	}

	offset := 0
	for {
		idx := strings.Index(lower[offset:], term)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(term)

		before, after := ' ', ' '
		if start > 0 {
			before, _ = utf8.DecodeLastRuneInString(lower[:start])
		}
		if end < len(lower) {
			after, _ = utf8.DecodeRuneInString(lower[end:])
		}

		firstTerm, _ := utf8.DecodeRuneInString(term)
		lastTerm, _ := utf8.DecodeLastRuneInString(term)
		leftOK := !isWordRune(before) || !isWordRune(firstTerm)
		rightOK := !isWordRune(after) || !isWordRune(lastTerm)
		if leftOK && rightOK {
			return true
		}

		offset = start + 1
		if offset >= len(lower) {
			return false
		}
	}
}

func containsAnyTerm(lower string, terms []string) bool {
	for _, t := range terms {
		if containsTerm(lower, t) {
			return true
		}
	}
	return false
}

func countTerms(lower string, terms []string) int {
	n := 0
	for _, t := range terms {
		if containsTerm(lower, t) {
			n++
		}
	}
	return n
}

func hasActionVerb(text string) bool {
	for _, t := range tokenize(text) {
		if _, ok := actionVerbs[t]; ok {
			return true
		}
	}
	return false
}

func startsWithActionVerb(text string) bool {
	tokens := tokenize(bulletPattern.ReplaceAllString(text, ""))
	if len(tokens) == 0 {
		return false
	}
	_, ok := actionVerbs[tokens[0]]
	return ok
}

// hasQuantifiedOutcome reports a number or a scale word.
func hasQuantifiedOutcome(lower string) bool {
	return numberPattern.MatchString(lower) || containsAnyTerm(lower, scaleWords)
}

// hasSpecifics reports whether a description carries concrete detail beyond
// naming skill: a number or scale, an outcome verb, or another named tool.
func hasSpecifics(lower, skill string) bool {
	if hasQuantifiedOutcome(lower) {
		return true
	}
	if containsAnyTerm(lower, []string{"reduced", "increased", "improved", "cut", "saved", "grew", "optimized", "optimised"}) {
		return true
	}
	for _, other := range FindSkills(lower) {
		if other != skill {
			return true
		}
	}
	return false
}

func isVague(lower string) bool {
	return containsAnyTerm(lower, vaguePhrases) && !hasQuantifiedOutcome(lower) && !hasActionVerb(lower)
}

// explicitYears reads "N years of experience" style statements.
func explicitYears(text string) (float64, bool) {
	m := yearsExpPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// requiredYears reads the first "N+ years" mention of a job description.
func requiredYears(text string) (float64, bool) {
	m := yearsPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// dateSpan is a parsed "2019 - present" style range in fractional years.
type dateSpan struct {
	Text  string
	Start float64
	End   float64
}

func fractionalYear(year, month int) float64 {
	if month < 1 {
		month = 1
	}
	return float64(year) + float64(month-1)/12
}

// findDateSpan parses the first date range in s. "present" resolves against
// now, and nothing may run past it.
func findDateSpan(s string, now time.Time) (dateSpan, bool) {
	m := dateRangePattern.FindStringSubmatchIndex(s)
	if m == nil {
		return dateSpan{}, false
	}

	group := func(i int) string {
		if m[2*i] < 0 {
			return ""
		}
		return strings.ToLower(s[m[2*i]:m[2*i+1]])
	}

	current := fractionalYear(now.Year(), int(now.Month()))

	startYear, _ := strconv.Atoi(group(2))
	start := math.Min(fractionalYear(startYear, monthIndex[group(1)]), current)

	end := current
	if group(5) == "" {
		endYear, _ := strconv.Atoi(group(4))
		end = math.Min(fractionalYear(endYear, monthIndex[group(3)]), current)
	}

	if end < start {
		return dateSpan{}, false
	}

	return dateSpan{Text: strings.TrimSpace(s[m[0]:m[1]]), Start: start, End: end}, true
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

func stripBullet(line string) string {
	return strings.TrimSpace(bulletPattern.ReplaceAllString(line, ""))
}

func isBullet(line string) bool {
	return bulletPattern.MatchString(line)
}

// nonEmptyLines splits text into trimmed, non-blank lines.
func nonEmptyLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// appendUnique appends items whose dedup form is not already present.
func appendUnique(dst []string, items ...string) []string {
	seen := make(map[string]struct{}, len(dst))
	for _, d := range dst {
		seen[normalizeForDedup(d)] = struct{}{}
	}
	for _, item := range items {
		item = strings.TrimSpace(item)
		key := normalizeForDedup(item)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		dst = append(dst, item)
	}
	return dst
}

var seniorityLevels = []struct {
	cue   string
	label string
	level int
}{
	{"intern", "intern", 0},
	{"trainee", "intern", 0},
	{"junior", "junior", 1},
	{"jr", "junior", 1},
	{"associate", "junior", 1},
	{"graduate", "junior", 1},
	{"mid-level", "mid", 2},
	{"mid level", "mid", 2},
	{"intermediate", "mid", 2},
	{"senior", "senior", 3},
	{"sr", "senior", 3},
	{"staff", "staff", 4},
	{"lead", "lead", 4},
	{"manager", "lead", 4},
	{"architect", "staff", 4},
	{"principal", "principal", 5},
	{"director", "principal", 5},
	{"head of", "principal", 5},
	{"vp", "principal", 5},
	{"cto", "principal", 5},
}

// seniorityOf reads the seniority cue from a title. The highest cue wins.
func seniorityOf(title string) (string, int, bool) {
	lower := strings.ToLower(title)
	label, level, found := "", -1, false
	for _, s := range seniorityLevels {
		if containsTerm(lower, s.cue) && s.level > level {
			label, level, found = s.label, s.level, true
		}
	}
	return label, level, found
}

func seniorityLevel(label string) int {
	for _, s := range seniorityLevels {
		if s.label == label {
			return s.level
		}
	}
	return -1
}

var roleNouns = []string{
	"engineer", "developer", "programmer", "manager", "analyst", "designer", "scientist", "consultant",
	"architect", "intern", "lead", "director", "administrator", "specialist", "officer", "head of",
	"cto", "vp", "devops", "sre", "technician", "researcher", "coordinator", "product owner", "founder",
}

func hasRoleNoun(lower string) bool {
	return containsAnyTerm(lower, roleNouns)
}

var degreePattern = regexp.MustCompile(
	`(?i)\b(ph\.?\s?d|doctorate|doctor of|master'?s?|m\.\s?sc|msc|m\.s\.|mba|m\.\s?eng|meng|bachelor'?s?|b\.\s?sc|bsc|b\.s\.|b\.a\.|b\.\s?eng|beng|b\.\s?tech|btech|associate'?s? degree|diploma|bootcamp|certificate|degree)`,
)

// degreeLevel scores a degree string: 0 when no degree cue is present.
func degreeLevel(degree string) int {
	lower := strings.ToLower(degree)
	switch {
	case containsAnyTerm(lower, []string{"phd", "ph.d", "ph. d", "doctorate", "doctor of"}):
		return 5
	case containsAnyTerm(lower, []string{"master", "masters", "master's", "msc", "m.sc", "m.s.", "mba", "meng", "m.eng"}):
		return 4
	case containsAnyTerm(lower, []string{"bachelor", "bachelors", "bachelor's", "bsc", "b.sc", "b.s.", "b.a.", "beng", "b.eng", "btech", "b.tech"}):
		return 3
	case containsAnyTerm(lower, []string{"associate", "associates", "associate's"}):
		return 2
	case containsAnyTerm(lower, []string{"diploma", "bootcamp", "certificate"}):
		return 1
	case containsTerm(lower, "degree"):
		return 3
	default:
		return 0
	}
}

func hasDegreeCue(s string) bool {
	return degreePattern.MatchString(s)
}
