package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"alfredoptarigan/hiring-evaluator/internal/models"
)

const (
	jobPromptLimit    = 3000
	resumePromptLimit = 4000
)

var (
	jobAnalysisSchema = Schema{
		Name: "job_analysis",
		Fields: []SchemaField{
			{Path: "title", Type: FieldString},
			{Path: "required_skills", Type: FieldStringArray, Required: true},
			{Path: "key_requirements", Type: FieldStringArray, Required: true},
			{Path: "seniority", Type: FieldString},
			{Path: "experience_required", Type: FieldNumber},
			{Path: "preferred_skills", Type: FieldStringArray},
			{Path: "education_requirements", Type: FieldStringArray},
		},
	}

	resumeParseSchema = Schema{
		Name: "resume_parse",
		Fields: []SchemaField{
			{Path: "name", Type: FieldString},
			{Path: "email", Type: FieldString},
			{Path: "phone", Type: FieldString},
			{Path: "experience_years", Type: FieldNumber},
			{Path: "skills", Type: FieldStringArray, Required: true},
			{Path: "experience", Type: FieldArray},
			{Path: "education", Type: FieldArray},
			{Path: "projects", Type: FieldStringArray},
			{Path: "summary", Type: FieldString},
		},
	}

	evaluationSchema = Schema{
		Name: "evaluation",
		Fields: []SchemaField{
			{Path: "reasoning", Type: FieldString, Required: true},
			{Path: "strengths", Type: FieldStringArray},
			{Path: "gaps", Type: FieldStringArray},
		},
	}

	questionSchema = Schema{
		Name: "interview_questions",
		Fields: []SchemaField{
			{Path: "questions", Type: FieldStringArray, Required: true},
		},
	}
)

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildJobAnalysisPrompt asks for the requirement profile of a job description.
func (pb *PromptBuilder) BuildJobAnalysisPrompt(jobDescription string) Prompt {
	return Prompt{
		System: `You are a job requirements analyzer. Extract key requirements from job descriptions.
Focus on must-have skills, experience levels, and important qualifications.`,
		User: fmt.Sprintf(`Analyze this job description and extract requirements in JSON format:
{
  "title": "job title",
  "seniority": "intern | junior | mid | senior | staff | lead | principal, or empty",
  "experience_required": <number of years, or null>,
  "required_skills": ["must-have skills, short names only"],
  "preferred_skills": ["nice-to-have skills"],
  "education_requirements": ["education requirements"],
  "key_requirements": ["the main requirements and responsibilities, one short phrase each"]
}

JOB DESCRIPTION:
%s

Only list skills that are written in the job description. Return ONLY the JSON object, no other text.`,
			truncateRunes(jobDescription, jobPromptLimit)),
	}
}

// BuildResumeParsePrompt asks for the structured profile of one resume.
func (pb *PromptBuilder) BuildResumeParsePrompt(resumeText string) Prompt {
	return Prompt{
		System: `You are a resume parser. Extract key information from resumes and return it in JSON format.
Focus on concrete details, not just keywords. Look for evidence of actual work and accomplishments.
Never invent information that is not in the resume.`,
		User: fmt.Sprintf(`Parse this resume and extract the following information in JSON format:
{
  "name": "candidate name",
  "email": "email address",
  "phone": "phone number",
  "experience_years": <number, or null when not stated>,
  "skills": ["skills exactly as written in the resume"],
  "experience": [{"role": "", "organization": "", "duration": "", "description": "what was done, in the resume's words"}],
  "education": [{"degree": "", "field": "", "institution": ""}],
  "projects": ["notable projects with outcomes"],
  "summary": "brief professional summary"
}

RESUME:
%s

Return ONLY the JSON object, no other text.`,
			truncateRunes(resumeText, resumePromptLimit)),
	}
}

// BuildEvaluationPrompt asks for the narrative behind an already computed
// breakdown. The model explains the scores; it does not set them.
func (pb *PromptBuilder) BuildEvaluationPrompt(job *models.RequirementProfile, candidate *models.CandidateProfile, a *Assessment, rubricContext string) Prompt {
	candidateJSON, _ := json.MarshalIndent(candidate, "", "  ")

	rubric := ""
	if strings.TrimSpace(rubricContext) != "" {
		rubric = fmt.Sprintf("\nSCORING RUBRIC CONTEXT:\n%s\n", rubricContext)
	}

	return Prompt{
		System: `You are an expert technical recruiter. Evaluate candidates based on:
1. DEPTH over keywords - look for concrete examples and achievements
2. RELEVANCE - how well experience matches the role
3. CONSISTENCY - check for logical career progression
4. RED FLAGS - identify vague claims or keyword stuffing

The scores below are final. Explain them with specific evidence from the candidate profile.`,
		User: fmt.Sprintf(`JOB REQUIREMENTS:
- Title: %s
- Seniority: %s
- Experience: %s
- Required Skills: %s
- Key Requirements: %s
%s
CANDIDATE PROFILE:
%s

COMPUTED SCORES:
- Experience: %d/%d
- Skills: %d/%d
- Education: %d/%d
- Overall Fit: %d/%d
- Total: %d/100

FINDINGS:
- Strengths: %s
- Gaps: %s
- Red flags: %s

Return your response in the following JSON format:
{
  "reasoning": "<3-5 sentences explaining the scores with specific evidence>",
  "strengths": ["additional strengths with specific examples, if any"],
  "gaps": ["additional concerns, if any"]
}

Penalize vague claims without supporting details. Return ONLY the JSON object, no other text.`,
			job.Title,
			orNA(job.SeniorityHint),
			formatYears(job.YearsRequired),
			orNA(strings.Join(job.RequiredSkills, ", ")),
			orNA(strings.Join(firstN(job.KeyRequirements, 5), "; ")),
			rubric,
			string(candidateJSON),
			a.Breakdown.Experience, models.MaxExperienceScore,
			a.Breakdown.Skills, models.MaxSkillsScore,
			a.Breakdown.Education, models.MaxEducationScore,
			a.Breakdown.OverallFit, models.MaxOverallFitScore,
			a.Breakdown.Total(),
			orNA(strings.Join(a.Strengths, "; ")),
			orNA(strings.Join(a.GapTexts(), "; ")),
			orNA(strings.Join(a.RedFlags, "; ")),
		),
	}
}

// BuildQuestionPrompt asks for interview questions that probe the recorded gaps.
func (pb *PromptBuilder) BuildQuestionPrompt(job *models.RequirementProfile, candidateName string, a *Assessment, guideContext string) Prompt {
	guide := ""
	if strings.TrimSpace(guideContext) != "" {
		guide = fmt.Sprintf("\nINTERVIEW GUIDE CONTEXT:\n%s\n", guideContext)
	}

	return Prompt{
		System: `You are an expert interviewer. Generate probing questions that:
1. Verify depth of claimed skills
2. Explore gaps or concerns
3. Assess problem-solving ability
4. Check role fit

Questions should be specific to the candidate's background.`,
		User: fmt.Sprintf(`Generate 3-6 targeted interview questions for this candidate.

Job: %s
Candidate: %s
Score: %d/100
Strengths: %s
Gaps: %s
Unsubstantiated claims: %s
%s
Every gap should be probed by at least one question.

Return your response in the following JSON format:
{"questions": ["Question 1?", "Question 2?"]}

Return ONLY the JSON object, no other text.`,
			job.Title,
			orNA(candidateName),
			a.Breakdown.Total(),
			orNA(strings.Join(a.Strengths, "; ")),
			orNA(strings.Join(a.GapTexts(), "; ")),
			orNA(strings.Join(a.UnsubstantiatedSkills(), ", ")),
			guide,
		),
	}
}

// BuildRetrievalQuery creates the query for rubric retrieval.
func (pb *PromptBuilder) BuildRetrievalQuery(job *models.RequirementProfile) string {
	if len(job.RequiredSkills) == 0 {
		return fmt.Sprintf("Evaluation criteria and scoring guidelines for %s", job.Title)
	}
	return fmt.Sprintf("Evaluation criteria and scoring guidelines for %s (%s)",
		job.Title, strings.Join(job.RequiredSkills, ", "))
}

// BuildGuideQuery creates the query for interview guide retrieval.
func (pb *PromptBuilder) BuildGuideQuery(job *models.RequirementProfile) string {
	if len(job.RequiredSkills) == 0 {
		return fmt.Sprintf("Interview questions for %s", job.Title)
	}
	return fmt.Sprintf("Interview questions for %s covering %s",
		job.Title, strings.Join(job.RequiredSkills, ", "))
}

// FormatRAGContext renders retrieved rubric passages for a prompt.
func FormatRAGContext(results []SearchResult) string {
	if len(results) == 0 {
		return ""
	}

	var parts []string
	for i, result := range results {
		parts = append(parts, fmt.Sprintf("--- Context %d (Score: %.2f) ---\n%s",
			i+1, result.Score, strings.TrimSpace(result.Text)))
	}

	return strings.Join(parts, "\n\n")
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func formatYears(years *float64) string {
	if years == nil {
		return "N/A"
	}
	return fmt.Sprintf("%g+ years", *years)
}

func firstN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
