package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"alfredoptarigan/hiring-evaluator/internal/logger"
	"alfredoptarigan/hiring-evaluator/internal/models"
)

const maxModelFindings = 2

// Evaluator scores one candidate against the requirement profile.
type Evaluator interface {
	Evaluate(ctx context.Context, job *models.RequirementProfile, candidate *models.CandidateProfile) (*Assessment, error)
}

type evaluator struct {
	backend   Backend
	prompts   *PromptBuilder
	retriever RubricRetriever
	logger    *zap.Logger
}

// NewEvaluator builds an evaluator. Scores always come from the rubric; the
// backend only writes the narrative. retriever may be nil.
func NewEvaluator(backend Backend, prompts *PromptBuilder, retriever RubricRetriever, log *zap.Logger) Evaluator {
	if prompts == nil {
		prompts = NewPromptBuilder()
	}
	return &evaluator{
		backend:   backend,
		prompts:   prompts,
		retriever: retriever,
		logger:    logger.OrNop(log),
	}
}

func (e *evaluator) Evaluate(ctx context.Context, job *models.RequirementProfile, candidate *models.CandidateProfile) (*Assessment, error) {
	a := assess(job, candidate)

	if e.backend == nil {
		return a, nil
	}

	rubricContext := e.retrieveRubric(ctx, job)

	completion, err := e.backend.Complete(ctx, e.prompts.BuildEvaluationPrompt(job, candidate, a, rubricContext), evaluationSchema)
	if err != nil {
		if IsMalformed(err) {
			e.logger.Warn("evaluation narrative unusable, keeping rubric reasoning", zap.Error(err))
			return a, nil
		}
		return nil, err
	}

	if reasoning := strings.TrimSpace(completion.Get("reasoning").String()); reasoning != "" {
		a.Reasoning = reasoning
	}

	added := 0
	for _, s := range completion.Get("strengths").Array() {
		if added == maxModelFindings {
			break
		}
		if text := strings.TrimSpace(s.String()); text != "" {
			before := len(a.Strengths)
			a.addStrength(text)
			if len(a.Strengths) > before {
				added++
			}
		}
	}

	added = 0
	for _, g := range completion.Get("gaps").Array() {
		if added == maxModelFindings {
			break
		}
		if text := strings.TrimSpace(g.String()); text != "" {
			before := len(a.Gaps)
			a.addGap(GapNote, text)
			if len(a.Gaps) > before {
				added++
			}
		}
	}

	e.logger.Debug("candidate evaluated",
		zap.Int("score", a.Breakdown.Total()),
		zap.Int("gaps", len(a.Gaps)),
		zap.Int("red_flags", len(a.RedFlags)),
	)

	return a, nil
}

// retrieveRubric fetches scoring guidance. Retrieval problems only cost context.
func (e *evaluator) retrieveRubric(ctx context.Context, job *models.RequirementProfile) string {
	if e.retriever == nil {
		return ""
	}

	rubric, err := e.retriever.Retrieve(ctx, e.prompts.BuildRetrievalQuery(job))
	if err != nil {
		e.logger.Warn("failed to retrieve rubric context", zap.Error(err))
		return ""
	}
	return rubric
}
