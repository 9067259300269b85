package services

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"alfredoptarigan/hiring-evaluator/internal/models"
)

const (
	yearsPoints       = 15.0
	relevancePoints   = 15.0
	defaultYearsScale = 10.0

	// A skill that is only listed never earns more than this share.
	exposureFloor          = 0.2
	specificWeight         = 1.0
	corroboratedWeight     = 0.6
	inferredWeight         = 0.6
	inferredSpecificWeight = 0.7

	keywordStuffingListSize = 15
	maxRequirementGaps      = 3
)

var (
	strongFields = []string{
		"computer science", "software engineering", "computer engineering", "information technology",
		"information systems", "data science", "artificial intelligence", "informatics", "computing",
	}
	adjacentFields = []string{
		"mathematics", "math", "statistics", "physics", "electrical engineering", "electronics",
		"engineering", "economics", "applied science", "computational",
	}
)

// evidence is one description that can corroborate a claim.
type evidence struct {
	role    string
	lower   string
	action  bool
	project bool
}

func collectEvidence(c *models.CandidateProfile) []evidence {
	var out []evidence
	for _, e := range c.Experience {
		text := strings.TrimSpace(e.Role + " " + e.Description)
		if text == "" {
			continue
		}
		out = append(out, evidence{
			role:   e.Role,
			lower:  strings.ToLower(text),
			action: hasActionVerb(e.Description),
		})
	}
	for _, p := range c.Projects {
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, evidence{lower: strings.ToLower(p), action: hasActionVerb(p), project: true})
	}
	return out
}

// assess applies the scoring rubric. It is a pure function of its inputs.
func assess(job *models.RequirementProfile, c *models.CandidateProfile) *Assessment {
	a := &Assessment{}
	entries := collectEvidence(c)

	experience, expNote := scoreExperience(a, job, c, entries)
	skills, skillNote := scoreSkills(a, job, c, entries)
	education, eduNote := scoreEducation(a, job, c)
	fit, fitNote := scoreOverallFit(a, job, c, entries)

	a.Breakdown = models.NewScoreBreakdown(experience, skills, education, fit)
	a.Reasoning = fmt.Sprintf("Experience %d/%d: %s Skills %d/%d: %s Education %d/%d: %s Overall fit %d/%d: %s",
		a.Breakdown.Experience, models.MaxExperienceScore, expNote,
		a.Breakdown.Skills, models.MaxSkillsScore, skillNote,
		a.Breakdown.Education, models.MaxEducationScore, eduNote,
		a.Breakdown.OverallFit, models.MaxOverallFitScore, fitNote,
	)

	return a
}

// requirementTarget is the term set a key requirement is matched with.
type requirementTarget struct {
	text    string
	terms   []string
	minHits int
}

func relevanceTargets(job *models.RequirementProfile) []requirementTarget {
	var targets []requirementTarget

	for _, req := range job.KeyRequirements {
		skills := FindSkills(req)
		if canonical, ok := CanonicalSkill(req); ok {
			skills = dedupeSkills(append(skills, canonical))
		}

		if len(skills) > 0 {
			targets = append(targets, requirementTarget{text: req, terms: skillEvidenceTerms(skills), minHits: 1})
			continue
		}

		remainder := yearsPattern.ReplaceAllString(req, " ")
		tokens := contentTokens(remainder)
		if len(tokens) == 0 {
			// Duration-only requirements are scored by the years component.
			continue
		}
		targets = append(targets, requirementTarget{text: req, terms: tokens, minHits: (len(tokens) + 1) / 2})
	}

	if len(targets) == 0 {
		for _, skill := range job.RequiredSkills {
			targets = append(targets, requirementTarget{text: skill, terms: skillEvidenceTerms([]string{skill}), minHits: 1})
		}
	}

	return targets
}

func skillEvidenceTerms(skills []string) []string {
	var terms []string
	for _, s := range skills {
		term, ok := skillIndex[s]
		if !ok {
			terms = append(terms, s)
			continue
		}
		terms = append(terms, term.scanTerms()...)
		terms = append(terms, term.Related...)
	}
	return terms
}

func scoreExperience(a *Assessment, job *models.RequirementProfile, c *models.CandidateProfile, entries []evidence) (int, string) {
	var notes []string

	yearsScore := 0.0
	switch {
	case c.YearsExperience == nil:
		a.addGap(GapYearsUnknown, "Years of experience could not be determined from the resume")
		notes = append(notes, "years of experience unknown")
	case job.YearsRequired != nil && *job.YearsRequired > 0:
		years, required := *c.YearsExperience, *job.YearsRequired
		yearsScore = yearsPoints * math.Min(years/required, 1)
		if years >= required {
			a.addStrength(fmt.Sprintf("%g years of experience meets the %g+ years required", years, required))
		} else {
			a.addGap(GapYearsShort, fmt.Sprintf("Experience (%g years) is below the %g+ years required", years, required))
		}
		notes = append(notes, fmt.Sprintf("%g years against %g+ required", years, required))
	default:
		years := *c.YearsExperience
		yearsScore = yearsPoints * math.Min(years/defaultYearsScale, 1)
		notes = append(notes, fmt.Sprintf("%g years of experience", years))
	}

	targets := relevanceTargets(job)
	relevance := 0.0

	switch {
	case len(entries) == 0:
		a.addGap(GapRequirement, "No described work experience or projects to compare with the role's requirements")
		notes = append(notes, "no described work to compare")
	case len(targets) == 0:
		for _, e := range entries {
			if e.action {
				relevance = 0.5
				break
			}
		}
		notes = append(notes, "no comparable requirements in the job description")
	default:
		var addressed, missed []string
		total := 0.0
		for _, t := range targets {
			best := 0.0
			for _, e := range entries {
				if countTerms(e.lower, t.terms) < t.minHits {
					continue
				}
				v := 0.5
				if e.action {
					v = 1.0
				}
				best = math.Max(best, v)
			}
			total += best
			switch best {
			case 1.0:
				addressed = append(addressed, t.text)
			case 0:
				missed = append(missed, t.text)
			}
		}
		relevance = total / float64(len(targets))

		if len(addressed) > 0 {
			a.addStrength("Hands-on experience aligned with: " + strings.Join(firstN(addressed, 3), "; "))
		}
		for _, m := range firstN(missed, maxRequirementGaps) {
			a.addGap(GapRequirement, "No described experience addressing: "+m, m)
		}
		notes = append(notes, fmt.Sprintf("%d of %d key requirements addressed in described work", len(addressed), len(targets)))
	}

	score := int(math.Round(yearsScore + relevancePoints*relevance))
	return score, strings.Join(notes, "; ") + "."
}

func scoreSkills(a *Assessment, job *models.RequirementProfile, c *models.CandidateProfile, entries []evidence) (int, string) {
	flagVagueEntries(a, entries)

	if len(job.RequiredSkills) == 0 {
		return scoreSkillsWithoutRequirements(a, c, entries)
	}

	counts := make(map[SkillBasis]int)
	total := 0.0
	var specific, inferred, listed []string

	for _, skill := range job.RequiredSkills {
		ev := skillEvidence(skill, c, entries)
		a.Skills = append(a.Skills, ev)
		counts[ev.Basis]++
		total += ev.Weight

		switch ev.Basis {
		case BasisSpecific:
			specific = append(specific, skill)
		case BasisInferred:
			inferred = append(inferred, skill)
		case BasisListed:
			listed = append(listed, skill)
			a.addRedFlag(fmt.Sprintf("Skill %q is listed but never demonstrated in experience or projects", skill))
		case BasisMissing:
			a.addGap(GapMissingSkill, "No evidence of required skill: "+skill, skill)
		}
	}

	if len(specific) > 0 {
		a.addStrength("Substantiated skills with concrete detail: " + strings.Join(specific, ", "))
	}
	if len(inferred) > 0 {
		a.addStrength("Related work suggests experience with: " + strings.Join(inferred, ", "))
	}
	if len(listed) > 0 {
		a.addGap(GapUnsubstantiated, fmt.Sprintf("Vague/unsubstantiated claims: %s listed without supporting experience or project detail",
			strings.Join(listed, ", ")), listed...)
	}

	flagKeywordStuffing(a, c, entries)

	score := int(math.Round(float64(models.MaxSkillsScore) * total / float64(len(job.RequiredSkills))))
	note := fmt.Sprintf("%d of %d required skills corroborated with specifics, %d corroborated without specifics, %d inferred from related work, %d only listed, %d missing.",
		counts[BasisSpecific], len(job.RequiredSkills), counts[BasisCorroborated], counts[BasisInferred], counts[BasisListed], counts[BasisMissing])
	return score, note
}

// skillEvidence grades one required skill against the candidate's descriptions.
func skillEvidence(skill string, c *models.CandidateProfile, entries []evidence) SkillEvidence {
	direct, directSpecific := false, false
	related, relatedSpecific := false, false

	for _, e := range entries {
		if mentionsSkill(e.lower, skill) {
			direct = true
			directSpecific = directSpecific || hasSpecifics(e.lower, skill)
			continue
		}
		if len(relatedEvidence(e.lower, skill)) > 0 {
			related = true
			relatedSpecific = relatedSpecific || hasSpecifics(e.lower, skill)
		}
	}

	switch {
	case direct && directSpecific:
		return SkillEvidence{Skill: skill, Basis: BasisSpecific, Weight: specificWeight}
	case direct:
		return SkillEvidence{Skill: skill, Basis: BasisCorroborated, Weight: corroboratedWeight}
	case related && relatedSpecific:
		return SkillEvidence{Skill: skill, Basis: BasisInferred, Weight: inferredSpecificWeight}
	case related:
		return SkillEvidence{Skill: skill, Basis: BasisInferred, Weight: inferredWeight}
	case c.HasSkill(skill):
		return SkillEvidence{Skill: skill, Basis: BasisListed, Weight: exposureFloor}
	default:
		return SkillEvidence{Skill: skill, Basis: BasisMissing}
	}
}

func scoreSkillsWithoutRequirements(a *Assessment, c *models.CandidateProfile, entries []evidence) (int, string) {
	if len(c.Skills) == 0 {
		a.addGap(GapNote, "No skills could be identified in the resume")
		return 0, "no skills identified."
	}

	var corroborated, listed []string
	for _, skill := range c.Skills {
		found := false
		for _, e := range entries {
			if mentionsSkill(e.lower, skill) {
				found = true
				break
			}
		}
		if found {
			corroborated = append(corroborated, skill)
		} else {
			listed = append(listed, skill)
		}
	}

	if len(corroborated) > 0 {
		a.addStrength("Skills demonstrated in described work: " + strings.Join(firstN(corroborated, 5), ", "))
	}
	if len(corroborated) == 0 {
		a.addGap(GapUnsubstantiated, fmt.Sprintf("Vague/unsubstantiated claims: %s listed without supporting experience or project detail",
			strings.Join(firstN(listed, 5), ", ")), firstN(listed, 5)...)
	}
	flagKeywordStuffing(a, c, entries)

	share := float64(len(corroborated)) / float64(len(c.Skills))
	score := int(math.Round(float64(models.MaxSkillsScore) / 2 * share))
	return score, fmt.Sprintf("no required skills stated; %d of %d listed skills demonstrated in described work.", len(corroborated), len(c.Skills))
}

func flagVagueEntries(a *Assessment, entries []evidence) {
	vague := 0
	for _, e := range entries {
		if !isVague(e.lower) {
			continue
		}
		vague++
		a.addRedFlag(fmt.Sprintf("Vague description without concrete outcome: %q", truncateRunes(e.lower, 80)))
	}
	if vague > 0 {
		a.addGap(GapVagueClaims, "Vague/unsubstantiated claims: experience described without concrete outcomes, tooling or scale")
	}
}

func flagKeywordStuffing(a *Assessment, c *models.CandidateProfile, entries []evidence) {
	if len(c.Skills) < keywordStuffingListSize {
		return
	}
	corroborated := 0
	for _, skill := range c.Skills {
		for _, e := range entries {
			if mentionsSkill(e.lower, skill) {
				corroborated++
				break
			}
		}
	}
	if corroborated*4 < len(c.Skills) {
		a.addRedFlag(fmt.Sprintf("Long skills list (%d items) with little supporting detail, possible keyword stuffing", len(c.Skills)))
		a.addGap(GapVagueClaims, "Vague/unsubstantiated claims: most listed skills are not reflected in any described work")
	}
}

func scoreEducation(a *Assessment, job *models.RequirementProfile, c *models.CandidateProfile) (int, string) {
	if len(c.Education) == 0 {
		a.addGap(GapEducation, "No education details found in the resume")
		return 0, "no education listed."
	}

	technical := len(job.RequiredSkills) > 0
	jobTokens := tokenSet(job.Title + " " + strings.Join(job.KeyRequirements, " ") + " " + strings.Join(job.RequiredSkills, " "))

	bestScore, bestLevel, bestRelevance := -1, 0, 0
	var best models.Education

	for _, edu := range c.Education {
		level := degreeLevel(edu.Degree)
		relevance := fieldRelevance(edu, technical, jobTokens)
		score := degreePoints(level) + relevance
		if score > bestScore {
			bestScore, bestLevel, bestRelevance, best = score, level, relevance, edu
		}
	}

	label := strings.TrimSpace(best.Degree)
	if best.Field != "" {
		label = strings.TrimSpace(label + " in " + best.Field)
	}
	if label == "" {
		label = best.Institution
	}

	switch {
	case bestRelevance >= 12:
		a.addStrength("Relevant education: " + label)
	case technical && bestRelevance <= 2:
		a.addGap(GapEducation, fmt.Sprintf("Degree field (%s) has limited relevance to the role", orNA(best.Field)))
	}

	required := 0
	requirement := ""
	for _, req := range job.EducationRequirements {
		if lvl := degreeLevel(req); lvl > required {
			required, requirement = lvl, req
		}
	}
	if required > 0 && bestLevel < required {
		a.addGap(GapEducation, "Education does not meet the stated requirement: "+requirement)
	}

	relevanceNote := "generic field"
	switch {
	case bestRelevance >= 12:
		relevanceNote = "strongly relevant field"
	case bestRelevance >= 8:
		relevanceNote = "adjacent field"
	}

	return bestScore, fmt.Sprintf("%s, %s.", orNA(label), relevanceNote)
}

func degreePoints(level int) int {
	switch level {
	case 5:
		return 8
	case 4:
		return 7
	case 3:
		return 6
	case 2:
		return 4
	case 1:
		return 3
	default:
		return 2
	}
}

// fieldRelevance grades the field of study: 12 strong, 8 adjacent, low but
// non-zero otherwise.
func fieldRelevance(edu models.Education, technical bool, jobTokens map[string]struct{}) int {
	subject := strings.ToLower(strings.TrimSpace(edu.Field))
	if subject == "" {
		subject = strings.ToLower(edu.Degree)
	}

	for _, t := range contentTokens(subject) {
		if len(t) < 4 || degreeLevel(t) > 0 {
			continue
		}
		if _, ok := jobTokens[t]; ok {
			return 12
		}
	}

	if !technical {
		return 4
	}
	switch {
	case containsAnyTerm(subject, strongFields):
		return 12
	case containsAnyTerm(subject, adjacentFields):
		return 8
	default:
		return 2
	}
}

func scoreOverallFit(a *Assessment, job *models.RequirementProfile, c *models.CandidateProfile, entries []evidence) (int, string) {
	trajectory := scoreTrajectory(a, job, c, entries)
	communication := scoreCommunication(a, c, entries)
	return trajectory + communication, fmt.Sprintf("trajectory %d/10, communication %d/10.", trajectory, communication)
}

func scoreTrajectory(a *Assessment, job *models.RequirementProfile, c *models.CandidateProfile, entries []evidence) int {
	if len(c.Experience) == 0 {
		a.addGap(GapTrajectory, "No work history to assess career trajectory")
		return 0
	}

	ordered := chronological(c.Experience)

	var levels []int
	for _, e := range ordered {
		if _, level, ok := seniorityOf(e.Role); ok {
			levels = append(levels, level)
		}
	}

	score := 4
	switch {
	case len(levels) >= 2 && levels[len(levels)-1] > levels[0]:
		score = 8
		a.addStrength("Clear progression in seniority across roles")
	case len(levels) >= 2 && levels[len(levels)-1] == levels[0]:
		score = 6
	case len(levels) >= 2:
		score = 3
		a.addGap(GapTrajectory, "Seniority decreases across the most recent roles")
	case len(ordered) >= 2:
		score = 5
	}

	leadership := false
	for _, e := range entries {
		if containsAnyTerm(e.lower, leadershipWords) {
			leadership = true
			break
		}
	}
	if leadership {
		score += 2
		a.addStrength("Demonstrated leadership of people or projects")
	}

	if wanted := seniorityLevel(job.SeniorityHint); wanted >= 3 && len(levels) > 0 {
		top := 0
		for _, l := range levels {
			top = max(top, l)
		}
		switch {
		case top >= wanted:
			score++
		case !leadership:
			a.addGap(GapTrajectory, fmt.Sprintf("Limited evidence of the %s-level scope the role expects", job.SeniorityHint))
		}
	}

	return min(score, 10)
}

// chronological orders entries oldest first. Dated entries sort by start;
// otherwise resumes are assumed to list the newest role first.
func chronological(entries []models.ExperienceEntry) []models.ExperienceEntry {
	ordered := append([]models.ExperienceEntry(nil), entries...)

	allDated := true
	for _, e := range ordered {
		if !e.Dated() {
			allDated = false
			break
		}
	}

	if allDated {
		sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Start < ordered[j].Start })
		return ordered
	}

	for i, j := 0, len(ordered)-1; i < j; i, j = i+1, j-1 {
		ordered[i], ordered[j] = ordered[j], ordered[i]
	}
	return ordered
}

func scoreCommunication(a *Assessment, c *models.CandidateProfile, entries []evidence) int {
	if len(entries) == 0 && strings.TrimSpace(c.Summary) == "" {
		a.addGap(GapCommunication, "Resume offers too little descriptive text to assess communication")
		return 0
	}

	score := 0
	quantified, collaborative, vague := false, false, false
	actions, words := 0, 0

	for _, e := range entries {
		quantified = quantified || hasQuantifiedOutcome(e.lower)
		collaborative = collaborative || containsAnyTerm(e.lower, collaborationWords)
		vague = vague || isVague(e.lower)
		if e.action {
			actions++
		}
		words += len(strings.Fields(e.lower))
	}
	if summary := strings.ToLower(c.Summary); summary != "" {
		collaborative = collaborative || containsAnyTerm(summary, collaborationWords)
	}

	if quantified {
		score += 3
		a.addStrength("Describes outcomes with concrete numbers and scale")
	}
	if len(entries) > 0 && actions*2 >= len(entries) {
		score += 3
	}
	if collaborative {
		score += 2
	}
	if len(entries) > 0 {
		if avg := words / len(entries); avg >= 6 && avg <= 60 {
			score += 2
		}
	} else {
		score++
	}
	if vague {
		score -= 2
	}

	return max(min(score, 10), 0)
}
