package services

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"alfredoptarigan/hiring-evaluator/internal/logger"
	"alfredoptarigan/hiring-evaluator/internal/models"
)

// minGroundedShare is the share of a model-proposed description's tokens
// that must occur in the resume before the description is accepted.
const minGroundedShare = 0.6

type resumeSection int

const (
	sectionNone resumeSection = iota
	sectionSummary
	sectionExperience
	sectionSkills
	sectionEducation
	sectionProjects
	sectionOther
)

var sectionHeadings = map[string]resumeSection{
	"summary":                    sectionSummary,
	"professional summary":       sectionSummary,
	"profile":                    sectionSummary,
	"about":                      sectionSummary,
	"about me":                   sectionSummary,
	"objective":                  sectionSummary,
	"experience":                 sectionExperience,
	"work experience":            sectionExperience,
	"professional experience":    sectionExperience,
	"relevant experience":        sectionExperience,
	"employment":                 sectionExperience,
	"employment history":         sectionExperience,
	"work history":               sectionExperience,
	"career history":             sectionExperience,
	"skills":                     sectionSkills,
	"technical skills":           sectionSkills,
	"core skills":                sectionSkills,
	"key skills":                 sectionSkills,
	"technologies":               sectionSkills,
	"tech stack":                 sectionSkills,
	"tools":                      sectionSkills,
	"skills & tools":             sectionSkills,
	"competencies":               sectionSkills,
	"education":                  sectionEducation,
	"academic background":        sectionEducation,
	"qualifications":             sectionEducation,
	"education & certifications": sectionEducation,
	"certifications":             sectionEducation,
	"projects":                   sectionProjects,
	"personal projects":          sectionProjects,
	"key projects":               sectionProjects,
	"selected projects":          sectionProjects,
	"interests":                  sectionOther,
	"hobbies":                    sectionOther,
	"languages":                  sectionSkills,
	"references":                 sectionOther,
}

var (
	headerSeparators = regexp.MustCompile(`\s+(?:at|@)\s+|\s*[|,–—]\s*|\s+-\s+`)
	skillSeparators  = regexp.MustCompile(`\s*[,;|•·]\s*`)
	institutionCues  = []string{"university", "college", "institute", "school", "academy", "polytechnic", "universitas"}
	fieldSeparators  = regexp.MustCompile(`(?i)\s+(?:in|of)\s+`)
)

// ResumeParser turns resume text into a candidate profile.
type ResumeParser interface {
	Parse(ctx context.Context, resumeText string, job *models.RequirementProfile) (*models.CandidateProfile, error)
}

type resumeParser struct {
	backend Backend
	prompts *PromptBuilder
	logger  *zap.Logger
	now     func() time.Time
}

// NewResumeParser builds a parser. now resolves "present" in date ranges.
func NewResumeParser(backend Backend, prompts *PromptBuilder, log *zap.Logger, now func() time.Time) ResumeParser {
	if prompts == nil {
		prompts = NewPromptBuilder()
	}
	if now == nil {
		now = time.Now
	}
	return &resumeParser{
		backend: backend,
		prompts: prompts,
		logger:  logger.OrNop(log),
		now:     now,
	}
}

func (p *resumeParser) Parse(ctx context.Context, resumeText string, job *models.RequirementProfile) (*models.CandidateProfile, error) {
	text := strings.TrimSpace(resumeText)
	if text == "" {
		return nil, &ParseError{Reason: "resume text is empty"}
	}
	if strings.IndexFunc(text, unicode.IsLetter) < 0 {
		return nil, &ParseError{Reason: "resume text contains no readable words"}
	}

	now := p.now()
	profile := parseResumeText(text, job, now)

	if p.backend == nil {
		return profile, nil
	}

	completion, err := p.backend.Complete(ctx, p.prompts.BuildResumeParsePrompt(text), resumeParseSchema)
	if err != nil {
		if IsMalformed(err) {
			p.logger.Warn("resume parse answer unusable, keeping heuristic profile", zap.Error(err))
			return profile, nil
		}
		return nil, err
	}

	mergeResumeAnswer(profile, completion, text, job, now)

	p.logger.Debug("resume parsed",
		zap.Int("skills", len(profile.Skills)),
		zap.Int("experience_entries", len(profile.Experience)),
		zap.Int("education_entries", len(profile.Education)),
	)

	return profile, nil
}

type entryBuilder struct {
	entry       models.ExperienceEntry
	description []string
}

func (b *entryBuilder) build() models.ExperienceEntry {
	e := b.entry
	e.Description = strings.Join(b.description, " ")
	return e
}

type resumeScan struct {
	now        time.Time
	entries    []*entryBuilder
	skills     []string
	education  []string
	projects   []string
	summary    []string
	nameLineNo int
}

// parseResumeText builds the candidate profile without a language model.
func parseResumeText(text string, job *models.RequirementProfile, now time.Time) *models.CandidateProfile {
	lines := nonEmptyLines(text)
	scan := &resumeScan{now: now, nameLineNo: -1}

	profile := &models.CandidateProfile{
		Email: emailPattern.FindString(text),
		Phone: findPhone(text),
	}
	profile.Name, scan.nameLineNo = findName(lines)

	section := sectionNone
	for i, line := range lines {
		if i == scan.nameLineNo {
			continue
		}

		if heading, rest, ok := detectHeading(line); ok {
			section = heading
			if rest == "" {
				continue
			}
			line = rest
		}

		if isContactLine(line) {
			continue
		}

		scan.add(section, line)
	}

	profile.Experience = make([]models.ExperienceEntry, 0, len(scan.entries))
	for _, b := range scan.entries {
		profile.Experience = append(profile.Experience, b.build())
	}
	profile.Projects = scan.projects
	profile.Education = parseEducation(scan.education)
	profile.Summary = truncateRunes(strings.Join(scan.summary, " "), 600)
	profile.Skills = scan.skills
	profile.YearsExperience = estimateYears(text, profile.Experience)

	finalizeSkills(profile, job)

	return profile
}

func (s *resumeScan) add(section resumeSection, line string) {
	switch section {
	case sectionSkills:
		s.skills = append(s.skills, splitSkillItems(line)...)
	case sectionEducation:
		s.education = append(s.education, stripBullet(line))
	case sectionProjects:
		s.projects = append(s.projects, stripBullet(line))
	case sectionSummary:
		s.summary = append(s.summary, stripBullet(line))
	case sectionExperience:
		s.addExperience(line)
	case sectionOther:
	default:
		switch {
		case isSkillListLine(line):
			s.skills = append(s.skills, splitSkillItems(line)...)
		case hasDegreeCue(line) && len(strings.Fields(line)) <= 20 && !hasActionVerb(line):
			s.education = append(s.education, stripBullet(line))
		case s.looksLikeExperience(line):
			s.addExperience(line)
		default:
			s.summary = append(s.summary, stripBullet(line))
		}
	}
}

func (s *resumeScan) looksLikeExperience(line string) bool {
	if _, dated := findDateSpan(line, s.now); dated {
		return true
	}
	if hasActionVerb(line) {
		return true
	}
	// Bullets under an entry header belong to that entry.
	return isBullet(line) && len(s.entries) > 0
}

func (s *resumeScan) addExperience(line string) {
	bullet := isBullet(line)
	clean := stripBullet(line)
	lower := strings.ToLower(clean)

	span, dated := findDateSpan(clean, s.now)
	header := !bullet && (dated || (hasRoleNoun(lower) && !startsWithActionVerb(clean) && len(strings.Fields(clean)) <= 12))

	if header {
		s.entries = append(s.entries, parseEntryHeader(clean, span, dated))
		return
	}

	if len(s.entries) == 0 {
		s.entries = append(s.entries, &entryBuilder{})
	}
	current := s.entries[len(s.entries)-1]
	current.description = append(current.description, clean)
}

func parseEntryHeader(line string, span dateSpan, dated bool) *entryBuilder {
	b := &entryBuilder{}
	rest := line
	if dated {
		b.entry.Duration = span.Text
		b.entry.Start = span.Start
		b.entry.End = span.End
		rest = strings.Replace(rest, span.Text, " ", 1)
	}

	var parts []string
	for _, p := range headerSeparators.Split(rest, -1) {
		p = strings.Trim(strings.TrimSpace(p), "()[]:-–— ")
		if p != "" {
			parts = append(parts, p)
		}
	}

	for _, p := range parts {
		switch {
		case len(strings.Fields(p)) >= 6:
			b.description = append(b.description, p)
		case b.entry.Role == "" && hasRoleNoun(strings.ToLower(p)):
			b.entry.Role = p
		case b.entry.Organization == "":
			b.entry.Organization = p
		default:
			b.description = append(b.description, p)
		}
	}

	if b.entry.Role == "" && b.entry.Organization != "" && len(parts) > 1 {
		b.entry.Role, b.entry.Organization = b.entry.Organization, ""
		for _, p := range parts {
			if p != b.entry.Role && len(strings.Fields(p)) < 6 {
				b.entry.Organization = p
				break
			}
		}
	}

	return b
}

// detectHeading recognizes section headings, including inline ones such as
// "Skills: Python, Go".
func detectHeading(line string) (resumeSection, string, bool) {
	clean := strings.Trim(strings.TrimSpace(line), "#*_=-: ")
	lower := strings.ToLower(clean)

	if section, ok := sectionHeadings[lower]; ok {
		return section, "", true
	}

	if idx := strings.Index(clean, ":"); idx > 0 {
		label := strings.ToLower(strings.TrimSpace(clean[:idx]))
		if section, ok := sectionHeadings[label]; ok {
			return section, strings.TrimSpace(clean[idx+1:]), true
		}
	}

	return sectionNone, "", false
}

func isContactLine(line string) bool {
	if emailPattern.MatchString(line) || urlPattern.MatchString(line) {
		return len(strings.Fields(line)) <= 8
	}
	return findPhone(line) != "" && len(strings.Fields(line)) <= 6
}

func findPhone(text string) string {
	for _, candidate := range phonePattern.FindAllString(text, -1) {
		digits := 0
		for _, r := range candidate {
			if unicode.IsDigit(r) {
				digits++
			}
		}
		if digits < 9 || digits > 15 {
			continue
		}
		if dateRangePattern.MatchString(candidate) {
			continue
		}
		return strings.TrimSpace(candidate)
	}
	return ""
}

// findName looks for a short capitalized line near the top of the resume.
func findName(lines []string) (string, int) {
	for i, line := range lines[:min(len(lines), 3)] {
		if idx := strings.Index(strings.ToLower(line), "name:"); idx >= 0 {
			return strings.TrimSpace(line[idx+len("name:"):]), i
		}

		if strings.ContainsAny(line, "@0123456789:/|,") {
			continue
		}
		if _, _, ok := detectHeading(line); ok {
			continue
		}

		words := strings.Fields(line)
		if len(words) > 4 {
			continue
		}
		// A lone word only counts on the first line.
		if len(words) < 2 && (i > 0 || !isNameWord(words[0])) {
			continue
		}
		if len(FindSkills(line)) > 0 || hasRoleNoun(strings.ToLower(line)) {
			continue
		}

		capitalized := true
		for _, w := range words {
			r := []rune(w)[0]
			if !unicode.IsUpper(r) {
				capitalized = false
				break
			}
		}
		if capitalized {
			return line, i
		}
	}
	return "", -1
}

var documentTitles = map[string]bool{"resume": true, "résumé": true, "cv": true, "profile": true, "curriculum": true}

func isNameWord(w string) bool {
	if utf8.RuneCountInString(w) < 2 || documentTitles[strings.ToLower(w)] {
		return false
	}
	for _, r := range w {
		if !unicode.IsLetter(r) && r != '-' && r != '\'' {
			return false
		}
	}
	return true
}

func splitSkillItems(line string) []string {
	line = stripBullet(line)
	// "Languages: Python, Go" groups carry a label.
	if idx := strings.Index(line, ":"); idx > 0 && idx < 30 {
		line = line[idx+1:]
	}

	var items []string
	for _, item := range skillSeparators.Split(line, -1) {
		item = normalizeSkill(item)
		if item == "" || len(strings.Fields(item)) > 4 {
			continue
		}
		items = append(items, item)
	}
	return items
}

// isSkillListLine reports an unlabeled list whose items are mostly known skills.
func isSkillListLine(line string) bool {
	if startsWithActionVerb(line) {
		return false
	}
	items := splitSkillItems(line)
	if len(items) < 2 {
		return false
	}
	known := 0
	for _, item := range items {
		if _, ok := CanonicalSkill(item); ok {
			known++
		}
	}
	return known*2 >= len(items)
}

func parseEducation(lines []string) []models.Education {
	var out []models.Education
	for _, line := range lines {
		lower := strings.ToLower(line)
		if !hasDegreeCue(line) {
			if len(out) > 0 && out[len(out)-1].Institution == "" && containsAnyTerm(lower, institutionCues) {
				out[len(out)-1].Institution = strings.TrimSpace(line)
			}
			continue
		}
		out = append(out, parseEducationLine(line))
	}
	return out
}

func parseEducationLine(line string) models.Education {
	var edu models.Education

	var segments []string
	for _, seg := range headerSeparators.Split(line, -1) {
		if seg = strings.Trim(strings.TrimSpace(seg), "()"); seg != "" {
			segments = append(segments, seg)
		}
	}

	for _, seg := range segments {
		lower := strings.ToLower(seg)
		switch {
		case edu.Degree == "" && hasDegreeCue(seg):
			degree, field := splitDegreeField(seg)
			edu.Degree = degree
			edu.Field = field
		case edu.Institution == "" && containsAnyTerm(lower, institutionCues):
			edu.Institution = seg
		case edu.Field == "" && edu.Degree != "" && !yearsOnly(seg):
			edu.Field = seg
		}
	}

	if edu.Institution != "" {
		return edu
	}
	for _, seg := range segments {
		if seg != edu.Degree && !strings.Contains(seg, edu.Degree) && seg != edu.Field && !yearsOnly(seg) {
			edu.Institution = seg
			break
		}
	}
	return edu
}

func splitDegreeField(segment string) (string, string) {
	loc := fieldSeparators.FindAllStringIndex(segment, -1)
	if len(loc) == 0 {
		return strings.TrimSpace(segment), ""
	}
	// Prefer " in " ("Bachelor of Science in Physics") over " of ".
	cut := loc[0]
	for _, l := range loc {
		if strings.EqualFold(strings.TrimSpace(segment[l[0]:l[1]]), "in") {
			cut = l
			break
		}
	}
	return strings.TrimSpace(segment[:cut[0]]), strings.TrimSpace(segment[cut[1]:])
}

func yearsOnly(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// estimateYears prefers an explicit statement and otherwise spans the dated entries.
func estimateYears(text string, entries []models.ExperienceEntry) *float64 {
	if years, ok := explicitYears(text); ok {
		return &years
	}

	earliest, latest := 0.0, 0.0
	for _, e := range entries {
		if !e.Dated() {
			continue
		}
		if earliest == 0 || e.Start < earliest {
			earliest = e.Start
		}
		if e.End > latest {
			latest = e.End
		}
	}
	if earliest == 0 {
		return nil
	}

	years := roundTo(latest-earliest, 1)
	return &years
}

// finalizeSkills dedupes claimed skills and adds required skills that are
// named in experience or project descriptions.
func finalizeSkills(profile *models.CandidateProfile, job *models.RequirementProfile) {
	skills := profile.Skills
	if job != nil {
		lower := strings.ToLower(evidenceText(profile))
		for _, required := range job.RequiredSkills {
			if mentionsSkill(lower, required) {
				skills = append(skills, required)
			}
		}
	}
	profile.Skills = dedupeSkills(skills)
}

// evidenceText joins everything that can corroborate a claim.
func evidenceText(profile *models.CandidateProfile) string {
	parts := make([]string, 0, len(profile.Experience)+len(profile.Projects))
	for _, e := range profile.Experience {
		parts = append(parts, e.Role+" "+e.Description)
	}
	parts = append(parts, profile.Projects...)
	return strings.Join(parts, "\n")
}

// mergeResumeAnswer fills fields the heuristics left blank. Every model value
// must be traceable to the resume text.
func mergeResumeAnswer(profile *models.CandidateProfile, completion *Completion, text string, job *models.RequirementProfile, now time.Time) {
	lower := strings.ToLower(text)
	resumeTokens := tokenSet(text)

	if profile.Name == "" {
		if name := strings.TrimSpace(completion.Get("name").String()); name != "" && strings.Contains(lower, strings.ToLower(name)) {
			profile.Name = name
		}
	}
	if profile.Email == "" {
		if email := strings.TrimSpace(completion.Get("email").String()); emailPattern.MatchString(email) && strings.Contains(lower, strings.ToLower(email)) {
			profile.Email = email
		}
	}
	if profile.Phone == "" {
		if phone := strings.TrimSpace(completion.Get("phone").String()); phone != "" && strings.Contains(text, phone) {
			profile.Phone = phone
		}
	}
	if profile.Summary == "" {
		if summary := strings.TrimSpace(completion.Get("summary").String()); groundedShare(summary, resumeTokens) >= minGroundedShare {
			profile.Summary = truncateRunes(summary, 600)
		}
	}

	for _, skill := range completion.Get("skills").Array() {
		raw := normalizeSkill(skill.String())
		canonical, _ := CanonicalSkill(raw)
		if raw != "" && (containsTerm(lower, raw) || mentionsSkill(lower, canonical)) {
			profile.Skills = append(profile.Skills, canonical)
		}
	}

	if len(profile.Experience) == 0 {
		completion.Get("experience").ForEach(func(_, item gjson.Result) bool {
			entry := experienceFromAnswer(item, now)
			if groundedShare(entry.Role+" "+entry.Description, resumeTokens) >= minGroundedShare {
				profile.Experience = append(profile.Experience, entry)
			}
			return true
		})
	}

	if len(profile.Projects) == 0 {
		for _, project := range completion.Get("projects").Array() {
			if p := strings.TrimSpace(project.String()); groundedShare(p, resumeTokens) >= minGroundedShare {
				profile.Projects = append(profile.Projects, p)
			}
		}
	}

	if len(profile.Education) == 0 {
		completion.Get("education").ForEach(func(_, item gjson.Result) bool {
			var edu models.Education
			if item.Type == gjson.String {
				edu = parseEducationLine(item.String())
			} else {
				edu = models.Education{
					Degree:      strings.TrimSpace(item.Get("degree").String()),
					Field:       strings.TrimSpace(item.Get("field").String()),
					Institution: strings.TrimSpace(item.Get("institution").String()),
				}
			}
			if educationGrounded(edu, lower) {
				profile.Education = append(profile.Education, edu)
			}
			return true
		})
	}

	if profile.YearsExperience == nil {
		profile.YearsExperience = estimateYears(text, profile.Experience)
	}

	finalizeSkills(profile, job)
}

func experienceFromAnswer(item gjson.Result, now time.Time) models.ExperienceEntry {
	if item.Type == gjson.String {
		return models.ExperienceEntry{Description: strings.TrimSpace(item.String())}
	}

	entry := models.ExperienceEntry{
		Role:         strings.TrimSpace(item.Get("role").String()),
		Organization: strings.TrimSpace(item.Get("organization").String()),
		Duration:     strings.TrimSpace(item.Get("duration").String()),
		Description:  strings.TrimSpace(item.Get("description").String()),
	}
	if span, ok := findDateSpan(entry.Duration, now); ok {
		entry.Start, entry.End = span.Start, span.End
	}
	return entry
}

func educationGrounded(edu models.Education, lower string) bool {
	for _, part := range []string{edu.Institution, edu.Field, edu.Degree} {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" && strings.Contains(lower, part) {
			return true
		}
	}
	return false
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range tokenize(text) {
		set[t] = struct{}{}
	}
	return set
}

// groundedShare is the fraction of content tokens in s that occur in the resume.
func groundedShare(s string, resumeTokens map[string]struct{}) float64 {
	tokens := contentTokens(s)
	if len(tokens) == 0 {
		return 0
	}
	hits := 0
	for _, t := range tokens {
		if _, ok := resumeTokens[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(tokens))
}
