package services

import (
	"alfredoptarigan/hiring-evaluator/internal/models"
)

// GapKind tells the question generator which template probes a gap.
type GapKind string

const (
	GapMissingSkill    GapKind = "missing_skill"
	GapUnsubstantiated GapKind = "unsubstantiated"
	GapVagueClaims     GapKind = "vague_claims"
	GapYearsShort      GapKind = "years_short"
	GapYearsUnknown    GapKind = "years_unknown"
	GapRequirement     GapKind = "requirement"
	GapEducation       GapKind = "education"
	GapTrajectory      GapKind = "trajectory"
	GapCommunication   GapKind = "communication"
	GapNote            GapKind = "note"
)

type Gap struct {
	Kind     GapKind
	Subjects []string
	Text     string
}

// SkillBasis records how a required skill was supported by the resume.
type SkillBasis string

const (
	BasisSpecific     SkillBasis = "corroborated_specific"
	BasisCorroborated SkillBasis = "corroborated"
	BasisInferred     SkillBasis = "inferred"
	BasisListed       SkillBasis = "listed_only"
	BasisMissing      SkillBasis = "missing"
)

type SkillEvidence struct {
	Skill  string
	Basis  SkillBasis
	Weight float64
}

// Assessment is the evaluator's output for one candidate before questions
// are attached.
type Assessment struct {
	Breakdown models.ScoreBreakdown
	Strengths []string
	Gaps      []Gap
	RedFlags  []string
	Reasoning string
	Skills    []SkillEvidence
}

func (a *Assessment) addGap(kind GapKind, text string, subjects ...string) {
	for _, g := range a.Gaps {
		if g.Text == text {
			return
		}
	}
	a.Gaps = append(a.Gaps, Gap{Kind: kind, Subjects: subjects, Text: text})
}

func (a *Assessment) addStrength(text string) {
	a.Strengths = appendUnique(a.Strengths, text)
}

func (a *Assessment) addRedFlag(text string) {
	a.RedFlags = appendUnique(a.RedFlags, text)
}

func (a *Assessment) GapTexts() []string {
	out := make([]string, 0, len(a.Gaps))
	for _, g := range a.Gaps {
		out = append(out, g.Text)
	}
	return out
}

// UnsubstantiatedSkills lists required skills that were only claimed in a list.
func (a *Assessment) UnsubstantiatedSkills() []string {
	return a.skillsWith(BasisListed)
}

// WeaklySubstantiatedSkills lists required skills backed by context but without specifics.
func (a *Assessment) WeaklySubstantiatedSkills() []string {
	return a.skillsWith(BasisCorroborated, BasisInferred)
}

func (a *Assessment) skillsWith(bases ...SkillBasis) []string {
	var out []string
	for _, s := range a.Skills {
		for _, b := range bases {
			if s.Basis == b {
				out = append(out, s.Skill)
				break
			}
		}
	}
	return out
}

// Result assembles the immutable evaluation record.
func (a *Assessment) Result(profile *models.CandidateProfile, questions []string) *models.EvaluationResult {
	return &models.EvaluationResult{
		Profile:            *profile,
		Breakdown:          a.Breakdown,
		Score:              a.Breakdown.Total(),
		Strengths:          append([]string(nil), a.Strengths...),
		Gaps:               a.GapTexts(),
		RedFlags:           append([]string(nil), a.RedFlags...),
		Reasoning:          a.Reasoning,
		InterviewQuestions: append([]string(nil), questions...),
	}
}
