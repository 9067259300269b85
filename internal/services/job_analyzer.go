package services

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"alfredoptarigan/hiring-evaluator/internal/logger"
	"alfredoptarigan/hiring-evaluator/internal/models"
)

const (
	minJobDescriptionLength = 20
	maxTitleLength          = 80
	maxKeyRequirements      = 12
)

var (
	titlePrefix       = regexp.MustCompile(`(?i)^(job\s+title|title|position|role|we\s+are\s+hiring|hiring)\s*[:\-–]\s*`)
	requirementCues   = []string{"experience", "knowledge", "proficien", "familiar", "ability", "must", "required", "responsib", "you will", "strong", "degree", "understanding", "hands-on", "background in"}
	preferredCues     = []string{"nice to have", "nice-to-have", "preferred", "bonus", "a plus", "is a plus", "desirable", "good to have"}
	sectionHeaderOnly = regexp.MustCompile(`(?i)^(requirements|qualifications|responsibilities|what you will do|what we are looking for|about you|about the role|nice to have|preferred|benefits|about us)\s*:?$`)
	clauseSplit       = regexp.MustCompile(`\s*[;]\s*|\.\s+`)
)

// JobAnalyzer turns a job description into a requirement profile.
type JobAnalyzer interface {
	Analyze(ctx context.Context, jobDescription string) (*models.RequirementProfile, error)
}

type jobAnalyzer struct {
	backend Backend
	prompts *PromptBuilder
	logger  *zap.Logger
}

// NewJobAnalyzer builds an analyzer. A nil backend keeps the analysis purely heuristic.
func NewJobAnalyzer(backend Backend, prompts *PromptBuilder, log *zap.Logger) JobAnalyzer {
	if prompts == nil {
		prompts = NewPromptBuilder()
	}
	return &jobAnalyzer{
		backend: backend,
		prompts: prompts,
		logger:  logger.OrNop(log),
	}
}

type jobAnalysisAnswer struct {
	Title                 string   `json:"title"`
	Seniority             string   `json:"seniority"`
	ExperienceRequired    *float64 `json:"experience_required"`
	RequiredSkills        []string `json:"required_skills"`
	PreferredSkills       []string `json:"preferred_skills"`
	EducationRequirements []string `json:"education_requirements"`
	KeyRequirements       []string `json:"key_requirements"`
}

func (a *jobAnalyzer) Analyze(ctx context.Context, jobDescription string) (*models.RequirementProfile, error) {
	text := strings.TrimSpace(jobDescription)
	if utf8.RuneCountInString(text) < minJobDescriptionLength {
		return nil, &AnalysisError{Reason: "job description is empty or too short to analyze"}
	}

	profile := analyzeJobText(text)

	if a.backend == nil {
		return profile, nil
	}

	completion, err := a.backend.Complete(ctx, a.prompts.BuildJobAnalysisPrompt(text), jobAnalysisSchema)
	if err != nil {
		if IsMalformed(err) {
			a.logger.Warn("job analysis answer unusable, keeping heuristic profile", zap.Error(err))
			return profile, nil
		}
		return nil, &AnalysisError{Reason: "language model unavailable", Err: err}
	}

	var answer jobAnalysisAnswer
	if err := completion.Decode(&answer); err != nil {
		a.logger.Warn("job analysis answer could not be decoded", zap.Error(err))
		return profile, nil
	}

	mergeJobAnswer(profile, &answer, text)

	a.logger.Info("job analyzed",
		zap.String("title", profile.Title),
		zap.Strings("required_skills", profile.RequiredSkills),
		zap.Int("key_requirements", len(profile.KeyRequirements)),
	)

	return profile, nil
}

// analyzeJobText builds the requirement profile without a language model.
func analyzeJobText(text string) *models.RequirementProfile {
	lines := nonEmptyLines(text)

	title := extractTitle(lines)
	profile := &models.RequirementProfile{Title: title}

	if label, _, ok := seniorityOf(title); ok {
		profile.SeniorityHint = label
	} else if label, _, ok := seniorityOf(text); ok {
		profile.SeniorityHint = label
	}

	if years, ok := requiredYears(text); ok {
		profile.YearsRequired = &years
	}

	var required, preferred []string
	inPreferred := false
	for _, line := range lines {
		lower := strings.ToLower(line)
		if sectionHeaderOnly.MatchString(line) {
			inPreferred = containsAnyTerm(lower, preferredCues)
		}
		skills := append(FindSkills(line), listedSkills(line)...)
		if inPreferred || containsAnyTerm(lower, preferredCues) {
			preferred = append(preferred, skills...)
			continue
		}
		required = append(required, skills...)
		if hasDegreeCue(line) {
			profile.EducationRequirements = appendUnique(profile.EducationRequirements, stripBullet(line))
		}
	}
	profile.RequiredSkills = dedupeSkills(required)
	profile.PreferredSkills = subtractSkills(dedupeSkills(preferred), profile.RequiredSkills)
	profile.KeyRequirements = extractKeyRequirements(lines, title)

	return profile
}

func extractTitle(lines []string) string {
	for _, line := range lines {
		if m := titlePrefix.FindStringIndex(line); m != nil {
			return cleanTitle(line[m[1]:])
		}
	}
	if len(lines) == 0 {
		return ""
	}
	for _, line := range lines[:min(len(lines), 5)] {
		candidate := cleanTitle(line)
		if len(strings.Fields(candidate)) <= 8 && hasRoleNoun(strings.ToLower(candidate)) {
			return candidate
		}
	}
	return cleanTitle(lines[0])
}

func cleanTitle(line string) string {
	line = stripBullet(titlePrefix.ReplaceAllString(strings.TrimSpace(line), ""))
	line = strings.Trim(line, "#*: ")
	for _, sep := range []string{",", ". ", " - ", " – ", " | ", "(", ":"} {
		if idx := strings.Index(line, sep); idx > 0 {
			line = line[:idx]
		}
	}
	return strings.TrimSpace(truncateRunes(strings.TrimSpace(line), maxTitleLength))
}

// extractKeyRequirements picks requirement phrases: bullets, cue sentences,
// and the items of short comma lists. The title line and nice-to-have
// sections are never requirements.
func extractKeyRequirements(lines []string, title string) []string {
	var requirements []string
	titleKey := normalizeForDedup(title)

	inPreferred := false
	for i, line := range lines {
		if sectionHeaderOnly.MatchString(line) {
			inPreferred = containsAnyTerm(strings.ToLower(line), preferredCues)
			continue
		}
		if inPreferred {
			continue
		}

		bullet := isBullet(line)
		line = stripBullet(line)
		lower := strings.ToLower(line)

		var clauses []string
		switch {
		case i == 0 && !bullet && isShortCommaList(line):
			clauses = titleLineClauses(line)
		case bullet:
			clauses = []string{line}
		case isShortCommaList(line):
			clauses = splitCommaList(line)
		case containsAnyTerm(lower, requirementCues) || len(FindSkills(line)) > 0:
			clauses = clauseSplit.Split(line, -1)
		}

		for _, clause := range clauses {
			clause = strings.Trim(strings.TrimSpace(clause), ".,;:")
			if utf8.RuneCountInString(clause) < 2 || normalizeForDedup(clause) == titleKey {
				continue
			}
			if containsAnyTerm(strings.ToLower(clause), preferredCues) {
				continue
			}
			requirements = appendUnique(requirements, clause)
		}
	}

	if len(requirements) > maxKeyRequirements {
		requirements = requirements[:maxKeyRequirements]
	}
	return requirements
}

// titleLineClauses handles one-line descriptions such as
// "Senior backend engineer, 5+ years, Python, distributed systems".
func titleLineClauses(line string) []string {
	parts := splitCommaList(line)
	if len(parts) <= 1 {
		return nil
	}
	return parts[1:]
}

func isShortCommaList(line string) bool {
	parts := splitCommaList(line)
	if len(parts) < 2 {
		return false
	}
	for _, p := range parts {
		if len(strings.Fields(p)) > 5 {
			return false
		}
	}
	return true
}

func splitCommaList(line string) []string {
	var out []string
	for _, p := range strings.Split(line, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// listedSkills picks vocabulary items out of a comma list, including
// spellings that are too ambiguous to scan for in prose.
func listedSkills(line string) []string {
	if !isShortCommaList(line) {
		return nil
	}
	var out []string
	for _, item := range splitCommaList(line) {
		if canonical, ok := CanonicalSkill(item); ok {
			out = append(out, canonical)
		}
	}
	return out
}

func subtractSkills(skills, remove []string) []string {
	var out []string
	for _, s := range skills {
		keep := true
		for _, r := range remove {
			if s == r {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, s)
		}
	}
	return out
}

// mergeJobAnswer refines a heuristic profile with model output. Skills are
// kept only when the job text mentions them.
func mergeJobAnswer(profile *models.RequirementProfile, answer *jobAnalysisAnswer, text string) {
	lower := strings.ToLower(text)

	if profile.Title == "" {
		profile.Title = cleanTitle(answer.Title)
	}
	if profile.SeniorityHint == "" && seniorityLevel(strings.ToLower(strings.TrimSpace(answer.Seniority))) >= 0 {
		profile.SeniorityHint = strings.ToLower(strings.TrimSpace(answer.Seniority))
	}
	if profile.YearsRequired == nil && answer.ExperienceRequired != nil && *answer.ExperienceRequired > 0 {
		years := *answer.ExperienceRequired
		profile.YearsRequired = &years
	}

	var grounded []string
	for _, skill := range answer.RequiredSkills {
		canonical, _ := CanonicalSkill(skill)
		if canonical != "" && (mentionsSkill(lower, canonical) || containsTerm(lower, normalizeSkill(skill))) {
			grounded = append(grounded, canonical)
		}
	}
	profile.RequiredSkills = dedupeSkills(append(profile.RequiredSkills, grounded...))

	var preferred []string
	for _, skill := range answer.PreferredSkills {
		canonical, _ := CanonicalSkill(skill)
		if canonical != "" && mentionsSkill(lower, canonical) {
			preferred = append(preferred, canonical)
		}
	}
	profile.PreferredSkills = subtractSkills(dedupeSkills(append(profile.PreferredSkills, preferred...)), profile.RequiredSkills)

	if len(profile.EducationRequirements) == 0 {
		profile.EducationRequirements = appendUnique(nil, answer.EducationRequirements...)
	}

	profile.KeyRequirements = appendUnique(profile.KeyRequirements, answer.KeyRequirements...)
	if len(profile.KeyRequirements) > maxKeyRequirements {
		profile.KeyRequirements = profile.KeyRequirements[:maxKeyRequirements]
	}
}
