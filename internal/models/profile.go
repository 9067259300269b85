package models

// RequirementProfile is the structured view of a job description. It is built
// once per request and shared read-only by every candidate evaluation.
type RequirementProfile struct {
	Title                 string   `json:"title"`
	KeyRequirements       []string `json:"key_requirements"`
	RequiredSkills        []string `json:"required_skills"`
	SeniorityHint         string   `json:"seniority_hint,omitempty"`
	YearsRequired         *float64 `json:"years_required,omitempty"`
	PreferredSkills       []string `json:"preferred_skills,omitempty"`
	EducationRequirements []string `json:"education_requirements,omitempty"`
}

// RequiresSkill reports whether the canonical skill is in RequiredSkills.
func (p *RequirementProfile) RequiresSkill(skill string) bool {
	for _, s := range p.RequiredSkills {
		if s == skill {
			return true
		}
	}
	return false
}

type Education struct {
	Degree      string `json:"degree"`
	Field       string `json:"field"`
	Institution string `json:"institution"`
}

type ExperienceEntry struct {
	Role         string `json:"role"`
	Organization string `json:"organization"`
	Duration     string `json:"duration"`
	Description  string `json:"description"`

	// Parsed span of Duration in fractional years; zero when undated.
	Start float64 `json:"-"`
	End   float64 `json:"-"`
}

// Dated reports whether the entry carries a usable start and end.
func (e ExperienceEntry) Dated() bool {
	return e.Start > 0 && e.End >= e.Start
}

// CandidateProfile is the structured view of one resume.
type CandidateProfile struct {
	Name            string            `json:"name"`
	Email           string            `json:"email"`
	Phone           string            `json:"phone,omitempty"`
	YearsExperience *float64          `json:"years_experience,omitempty"`
	Skills          []string          `json:"skills"`
	Education       []Education       `json:"education"`
	Experience      []ExperienceEntry `json:"experience"`
	Projects        []string          `json:"projects,omitempty"`
	Summary         string            `json:"summary,omitempty"`
}

// HasSkill reports whether the canonical skill was claimed by the candidate.
func (p *CandidateProfile) HasSkill(skill string) bool {
	for _, s := range p.Skills {
		if s == skill {
			return true
		}
	}
	return false
}
