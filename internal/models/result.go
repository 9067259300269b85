package models

type RequestState string

const (
	RequestAnalyzingJob         RequestState = "analyzing_job"
	RequestEvaluatingCandidates RequestState = "evaluating_candidates"
	RequestAssembled            RequestState = "assembled"
	RequestFailed               RequestState = "failed"
)

type JobAnalysis struct {
	Title                 string   `json:"title"`
	KeyRequirements       []string `json:"key_requirements"`
	RequiredSkills        []string `json:"required_skills"`
	SeniorityHint         string   `json:"seniority_hint,omitempty"`
	YearsRequired         *float64 `json:"years_required,omitempty"`
	PreferredSkills       []string `json:"preferred_skills,omitempty"`
	EducationRequirements []string `json:"education_requirements,omitempty"`
}

func NewJobAnalysis(p *RequirementProfile) JobAnalysis {
	return JobAnalysis{
		Title:                 p.Title,
		KeyRequirements:       nonNil(p.KeyRequirements),
		RequiredSkills:        nonNil(p.RequiredSkills),
		SeniorityHint:         p.SeniorityHint,
		YearsRequired:         p.YearsRequired,
		PreferredSkills:       p.PreferredSkills,
		EducationRequirements: p.EducationRequirements,
	}
}

// CandidateResult is one entry of the response. Exactly one of the score
// fields or Error is meaningful, selected by Status.
type CandidateResult struct {
	Filename           string          `json:"filename"`
	Status             CandidateStatus `json:"status"`
	Name               string          `json:"name,omitempty"`
	Email              string          `json:"email,omitempty"`
	Score              *int            `json:"score,omitempty"`
	Breakdown          *ScoreBreakdown `json:"breakdown,omitempty"`
	Strengths          []string        `json:"strengths,omitempty"`
	Gaps               []string        `json:"gaps,omitempty"`
	RedFlags           []string        `json:"red_flags,omitempty"`
	InterviewQuestions []string        `json:"interview_questions,omitempty"`
	Reasoning          string          `json:"reasoning,omitempty"`
	Error              *PipelineError  `json:"error,omitempty"`

	index int
}

func NewSucceededResult(filename string, index int, r *EvaluationResult) CandidateResult {
	score := r.Score
	breakdown := r.Breakdown
	return CandidateResult{
		Filename:           filename,
		Status:             StatusDone,
		Name:               r.Profile.Name,
		Email:              r.Profile.Email,
		Score:              &score,
		Breakdown:          &breakdown,
		Strengths:          nonNil(r.Strengths),
		Gaps:               nonNil(r.Gaps),
		RedFlags:           nonNil(r.RedFlags),
		InterviewQuestions: nonNil(r.InterviewQuestions),
		Reasoning:          r.Reasoning,
		index:              index,
	}
}

func NewFailedResult(index int, pErr *PipelineError) CandidateResult {
	return CandidateResult{
		Filename: pErr.Candidate,
		Status:   StatusFailed,
		Error:    pErr,
		index:    index,
	}
}

// Index is the position of the resume in the submitted batch.
func (c CandidateResult) Index() int {
	return c.index
}

type AnalyzeResponse struct {
	RequestID   string            `json:"request_id"`
	State       RequestState      `json:"state"`
	JobAnalysis JobAnalysis       `json:"job_analysis"`
	Candidates  []CandidateResult `json:"candidates"`
	Succeeded   int               `json:"succeeded"`
	Failed      int               `json:"failed"`
}

type ErrorResponse struct {
	RequestID string       `json:"request_id,omitempty"`
	State     RequestState `json:"state"`
	Error     string       `json:"error"`
	Kind      ErrorKind    `json:"kind,omitempty"`
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
