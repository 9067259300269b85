package models

import "fmt"

const (
	MaxExperienceScore = 30
	MaxSkillsScore     = 30
	MaxEducationScore  = 20
	MaxOverallFitScore = 20
)

type ScoreBreakdown struct {
	Experience int `json:"experience"`
	Skills     int `json:"skills"`
	Education  int `json:"education"`
	OverallFit int `json:"overall_fit"`
}

// NewScoreBreakdown clamps every component into its allowed range.
func NewScoreBreakdown(experience, skills, education, overallFit int) ScoreBreakdown {
	return ScoreBreakdown{
		Experience: clamp(experience, MaxExperienceScore),
		Skills:     clamp(skills, MaxSkillsScore),
		Education:  clamp(education, MaxEducationScore),
		OverallFit: clamp(overallFit, MaxOverallFitScore),
	}
}

func (b ScoreBreakdown) Total() int {
	return b.Experience + b.Skills + b.Education + b.OverallFit
}

func (b ScoreBreakdown) Validate() error {
	checks := []struct {
		name  string
		value int
		max   int
	}{
		{"experience", b.Experience, MaxExperienceScore},
		{"skills", b.Skills, MaxSkillsScore},
		{"education", b.Education, MaxEducationScore},
		{"overall_fit", b.OverallFit, MaxOverallFitScore},
	}

	for _, c := range checks {
		if c.value < 0 || c.value > c.max {
			return fmt.Errorf("invalid %s score %d (must be 0-%d)", c.name, c.value, c.max)
		}
	}

	return nil
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

type CandidateStatus string

const (
	StatusDone   CandidateStatus = "done"
	StatusFailed CandidateStatus = "failed"
)

// CandidateStage names where a candidate is, or was when it failed.
type CandidateStage string

const (
	StageExtracting  CandidateStage = "extracting"
	StageParsing     CandidateStage = "parsing"
	StageScoring     CandidateStage = "scoring"
	StageQuestionGen CandidateStage = "question_gen"
	StageDone        CandidateStage = "done"
)

// EvaluationResult is the assembled decision record for one candidate.
type EvaluationResult struct {
	Profile            CandidateProfile `json:"profile"`
	Breakdown          ScoreBreakdown   `json:"breakdown"`
	Score              int              `json:"score"`
	Strengths          []string         `json:"strengths"`
	Gaps               []string         `json:"gaps"`
	RedFlags           []string         `json:"red_flags"`
	Reasoning          string           `json:"reasoning"`
	InterviewQuestions []string         `json:"interview_questions"`
}

type ErrorKind string

const (
	KindAnalysis   ErrorKind = "analysis"
	KindParse      ErrorKind = "parse"
	KindExtraction ErrorKind = "extraction"
	KindGeneration ErrorKind = "generation"
	KindTimeout    ErrorKind = "timeout"
)

// PipelineError records why a single candidate did not complete.
type PipelineError struct {
	Candidate string         `json:"candidate"`
	Kind      ErrorKind      `json:"kind"`
	Stage     CandidateStage `json:"stage"`
	Reason    string         `json:"reason"`
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s error at %s: %s", e.Candidate, e.Kind, e.Stage, e.Reason)
}
