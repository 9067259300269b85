package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"alfredoptarigan/hiring-evaluator/internal/logger"
	"alfredoptarigan/hiring-evaluator/internal/models"
)

const (
	MinQuestions = 3
	MaxQuestions = 6
)

// QuestionGenerator derives interview questions from an assessment.
type QuestionGenerator interface {
	Generate(ctx context.Context, job *models.RequirementProfile, candidate *models.CandidateProfile, a *Assessment) ([]string, error)
}

type questionGenerator struct {
	backend Backend
	prompts *PromptBuilder
	guide   RubricRetriever
	logger  *zap.Logger
}

// NewQuestionGenerator builds a generator. Template questions are always
// produced; the backend only adds to them. guide may be nil.
func NewQuestionGenerator(backend Backend, prompts *PromptBuilder, guide RubricRetriever, log *zap.Logger) QuestionGenerator {
	if prompts == nil {
		prompts = NewPromptBuilder()
	}
	return &questionGenerator{
		backend: backend,
		prompts: prompts,
		guide:   guide,
		logger:  logger.OrNop(log),
	}
}

// Generate never fails the candidate: backend problems fall back to templates.
func (g *questionGenerator) Generate(ctx context.Context, job *models.RequirementProfile, candidate *models.CandidateProfile, a *Assessment) ([]string, error) {
	questions := templateQuestions(job, a)

	if g.backend != nil && len(questions) < MaxQuestions {
		name := ""
		if candidate != nil {
			name = candidate.Name
		}

		prompt := g.prompts.BuildQuestionPrompt(job, name, a, g.retrieveGuide(ctx, job))
		completion, err := g.backend.Complete(ctx, prompt, questionSchema)
		if err != nil {
			g.logger.Warn("question generation fell back to templates",
				zap.Bool("malformed", IsMalformed(err)),
				zap.Error(err),
			)
		} else {
			for _, q := range completion.Get("questions").Array() {
				questions = appendUnique(questions, q.String())
			}
		}
	}

	questions = padQuestions(questions, job)
	if len(questions) > MaxQuestions {
		questions = questions[:MaxQuestions]
	}

	return questions, nil
}

func (g *questionGenerator) retrieveGuide(ctx context.Context, job *models.RequirementProfile) string {
	if g.guide == nil {
		return ""
	}

	guide, err := g.guide.Retrieve(ctx, g.prompts.BuildGuideQuery(job))
	if err != nil {
		g.logger.Warn("failed to retrieve interview guide", zap.Error(err))
		return ""
	}
	return guide
}

var gapPriority = map[GapKind]int{
	GapUnsubstantiated: 0,
	GapMissingSkill:    1,
	GapRequirement:     2,
	GapYearsShort:      3,
	GapVagueClaims:     4,
	GapYearsUnknown:    5,
	GapTrajectory:      6,
	GapEducation:       7,
	GapCommunication:   8,
	GapNote:            9,
}

// templateQuestions maps every gap, and every skill backed without
// specifics, onto a probing question.
func templateQuestions(job *models.RequirementProfile, a *Assessment) []string {
	gaps := append([]Gap(nil), a.Gaps...)
	sort.SliceStable(gaps, func(i, j int) bool {
		return gapPriority[gaps[i].Kind] < gapPriority[gaps[j].Kind]
	})

	var questions []string
	for _, gap := range gaps {
		questions = appendUnique(questions, gapQuestions(job, gap)...)
	}

	for _, skill := range a.WeaklySubstantiatedSkills() {
		questions = appendUnique(questions, fmt.Sprintf(
			"You mention %s in your experience. What was the hardest technical decision you made with it, and why?", skill))
	}

	return questions
}

func gapQuestions(job *models.RequirementProfile, gap Gap) []string {
	var out []string

	switch gap.Kind {
	case GapUnsubstantiated:
		for _, s := range gap.Subjects {
			out = append(out, fmt.Sprintf(
				"You list %s on your resume. Describe a specific problem you solved with %s, the tooling around it, and the measurable outcome.", s, s))
		}
	case GapMissingSkill:
		for _, s := range gap.Subjects {
			out = append(out, fmt.Sprintf(
				"This role relies on %s. Can you walk us through any work where you used %s, including the scale and your specific role?", s, s))
		}
	case GapRequirement:
		if len(gap.Subjects) == 0 {
			return []string{"Which of your past work is closest to what this role requires, and what did you deliver there?"}
		}
		for _, s := range gap.Subjects {
			out = append(out, fmt.Sprintf("How have you handled %s in previous roles? Please give a concrete example.", s))
		}
	case GapYearsShort:
		if job.YearsRequired != nil {
			return []string{fmt.Sprintf(
				"This role asks for %g+ years of experience. Which parts of your background best show equivalent depth?", *job.YearsRequired)}
		}
		return []string{"Which parts of your background best show the depth this role needs?"}
	case GapYearsUnknown:
		return []string{"How many years have you worked professionally in this area, and in which roles?"}
	case GapVagueClaims:
		return []string{"Pick one of the projects on your resume and explain exactly what you built, which tools you used, and what result it produced."}
	case GapEducation:
		return []string{"How did you build the foundational knowledge this role relies on, inside or outside formal education?"}
	case GapTrajectory:
		return []string{"How has the scope of your responsibilities grown from one role to the next?"}
	case GapCommunication:
		return []string{"Describe a recent project end to end: the goal, your contribution, and how you measured success."}
	default:
		text := strings.TrimRight(strings.TrimSpace(gap.Text), ".")
		if text == "" {
			return nil
		}
		return []string{fmt.Sprintf("We noted the following about your background: %s. How would you respond?", text)}
	}

	return out
}

// padQuestions tops the list up to MinQuestions from the key requirements.
func padQuestions(questions []string, job *models.RequirementProfile) []string {
	for _, req := range job.KeyRequirements {
		if len(questions) >= MinQuestions {
			return questions
		}
		if _, ok := requiredYears(req); ok && len(contentTokens(yearsPattern.ReplaceAllString(req, " "))) == 0 {
			continue
		}
		questions = appendUnique(questions, fmt.Sprintf("Describe your most relevant experience with %s.", req))
	}

	for _, q := range FallbackQuestions(job) {
		if len(questions) >= MinQuestions {
			break
		}
		questions = appendUnique(questions, q)
	}

	return questions
}

// FallbackQuestions is the minimal generic set used when nothing better exists.
func FallbackQuestions(job *models.RequirementProfile) []string {
	role := "this"
	if job != nil && strings.TrimSpace(job.Title) != "" {
		role = "the " + strings.TrimSpace(job.Title)
	}
	return []string{
		"Walk us through the project you are most proud of and your specific contribution to it.",
		fmt.Sprintf("What interests you about %s role, and what would you focus on first?", role),
		"Tell us about a difficult technical problem you solved recently and how you approached it.",
	}
}
