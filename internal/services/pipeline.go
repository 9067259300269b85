package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/hiring-evaluator/internal/logger"
	"alfredoptarigan/hiring-evaluator/internal/metrics"
	"alfredoptarigan/hiring-evaluator/internal/models"
)

const stageAnalyzing = "analyzing_job"

// AnalyzeRequest is one job description and the resumes to rank against it.
type AnalyzeRequest struct {
	JobDescription string
	Resumes        []models.Document
}

type PipelineOptions struct {
	MaxBatchSize  int
	RequestBudget time.Duration
	// SortByScore puts succeeded candidates first, best score first.
	SortByScore bool
}

func DefaultPipelineOptions() PipelineOptions {
	return PipelineOptions{
		MaxBatchSize:  10,
		RequestBudget: 120 * time.Second,
		SortByScore:   true,
	}
}

type PipelineDeps struct {
	Extractor TextExtractor
	Analyzer  JobAnalyzer
	Parser    ResumeParser
	Evaluator Evaluator
	Questions QuestionGenerator
	Logger    *zap.Logger
	Recorder  metrics.Recorder
}

// Pipeline runs the job analysis once and then every candidate in turn.
// Candidates share only the read-only requirement profile.
type Pipeline struct {
	extractor TextExtractor
	analyzer  JobAnalyzer
	parser    ResumeParser
	evaluator Evaluator
	questions QuestionGenerator
	opts      PipelineOptions
	logger    *zap.Logger
	recorder  metrics.Recorder
	newID     func() string
}

func NewPipeline(deps PipelineDeps, opts PipelineOptions) *Pipeline {
	if deps.Extractor == nil {
		deps.Extractor = NewTextExtractor()
	}
	if deps.Recorder == nil {
		deps.Recorder = metrics.Nop{}
	}
	if opts.MaxBatchSize <= 0 {
		opts.MaxBatchSize = DefaultPipelineOptions().MaxBatchSize
	}

	return &Pipeline{
		extractor: deps.Extractor,
		analyzer:  deps.Analyzer,
		parser:    deps.Parser,
		evaluator: deps.Evaluator,
		questions: deps.Questions,
		opts:      opts,
		logger:    logger.OrNop(deps.Logger),
		recorder:  deps.Recorder,
		newID:     uuid.NewString,
	}
}

// Run evaluates the batch. A non-nil error means the request failed as a
// whole (batch limits, unusable job description); the returned response then
// carries the failed state and no candidates.
func (p *Pipeline) Run(ctx context.Context, req AnalyzeRequest) (*models.AnalyzeResponse, error) {
	start := time.Now()
	resp := &models.AnalyzeResponse{
		RequestID:  p.newID(),
		State:      models.RequestAnalyzingJob,
		Candidates: []models.CandidateResult{},
	}
	log := p.logger.With(zap.String(logger.FieldRequestID, resp.RequestID))

	fail := func(err error) (*models.AnalyzeResponse, error) {
		resp.State = models.RequestFailed
		p.recorder.ObserveRequest(string(resp.State), time.Since(start))
		log.Warn("analyze request failed", zap.Error(err))
		return resp, err
	}

	switch n := len(req.Resumes); {
	case n == 0:
		return fail(ErrEmptyBatch)
	case n > p.opts.MaxBatchSize:
		return fail(fmt.Errorf("%w: got %d, maximum is %d", ErrBatchTooLarge, n, p.opts.MaxBatchSize))
	}

	if p.opts.RequestBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.RequestBudget)
		defer cancel()
	}

	log.Info("analyzing job description", zap.Int("resumes", len(req.Resumes)))

	stageStart := time.Now()
	job, err := p.analyzer.Analyze(ctx, req.JobDescription)
	p.recorder.ObserveStage(stageAnalyzing, time.Since(stageStart))
	if err != nil {
		var analysisErr *AnalysisError
		if !errors.As(err, &analysisErr) {
			err = &AnalysisError{Reason: "job analysis failed", Err: err}
		}
		return fail(err)
	}

	resp.JobAnalysis = models.NewJobAnalysis(job)
	resp.State = models.RequestEvaluatingCandidates

	for i, doc := range req.Resumes {
		if budgetErr := ctx.Err(); budgetErr != nil {
			for j := i; j < len(req.Resumes); j++ {
				resp.Candidates = append(resp.Candidates, p.timeoutResult(j, req.Resumes[j], budgetErr))
			}
			log.Warn("request budget exhausted, remaining candidates marked as timed out",
				zap.Int("remaining", len(req.Resumes)-i))
			break
		}

		resp.Candidates = append(resp.Candidates, p.evaluateCandidate(ctx, log, i, doc, job))
	}

	p.assemble(resp)
	p.recorder.ObserveRequest(string(resp.State), time.Since(start))

	log.Info("analyze request assembled",
		zap.Int("succeeded", resp.Succeeded),
		zap.Int("failed", resp.Failed),
		zap.Duration("elapsed", time.Since(start)),
	)

	return resp, nil
}

// evaluateCandidate runs extract, parse, score and question generation for
// one resume. Every failure is recorded on the result and never escapes.
func (p *Pipeline) evaluateCandidate(ctx context.Context, log *zap.Logger, index int, doc models.Document, job *models.RequirementProfile) models.CandidateResult {
	name := candidateName(index, doc)
	log = log.With(zap.String(logger.FieldCandidate, name))

	stage := models.StageExtracting
	fail := func(err error) models.CandidateResult {
		kind := classifyError(err)
		if ctx.Err() != nil {
			kind = models.KindTimeout
			err = &TimeoutError{Err: err}
		}

		p.recorder.ObserveCandidate(string(models.StatusFailed), string(kind))
		log.Warn("candidate failed",
			zap.String(logger.FieldStage, string(stage)),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)

		return models.NewFailedResult(index, &models.PipelineError{
			Candidate: name,
			Kind:      kind,
			Stage:     stage,
			Reason:    err.Error(),
		})
	}

	if doc.LoadErr != nil {
		return fail(&ExtractionError{Filename: name, Err: doc.LoadErr})
	}

	var text string
	err := p.timed(log, stage, func() (err error) {
		text, err = p.extractor.Extract(doc)
		return err
	})
	if err != nil {
		return fail(err)
	}

	stage = models.StageParsing
	var profile *models.CandidateProfile
	err = p.timed(log, stage, func() (err error) {
		profile, err = p.parser.Parse(ctx, text, job)
		return err
	})
	if err != nil {
		return fail(err)
	}

	stage = models.StageScoring
	var assessment *Assessment
	err = p.timed(log, stage, func() (err error) {
		assessment, err = p.evaluator.Evaluate(ctx, job, profile)
		return err
	})
	if err != nil {
		return fail(err)
	}

	stage = models.StageQuestionGen
	var questions []string
	err = p.timed(log, stage, func() (err error) {
		questions, err = p.questions.Generate(ctx, job, profile, assessment)
		return err
	})
	if err != nil || len(questions) == 0 {
		log.Warn("using fallback interview questions", zap.Error(err))
		questions = FallbackQuestions(job)
	}

	result := assessment.Result(profile, questions)
	p.recorder.ObserveCandidate(string(models.StatusDone), "")
	log.Info("candidate evaluated",
		zap.String(logger.FieldStage, string(models.StageDone)),
		zap.Int("score", result.Score),
	)

	return models.NewSucceededResult(name, index, result)
}

func (p *Pipeline) timed(log *zap.Logger, stage models.CandidateStage, fn func() error) error {
	log.Debug("candidate stage started", zap.String(logger.FieldStage, string(stage)))
	start := time.Now()
	err := fn()
	p.recorder.ObserveStage(string(stage), time.Since(start))
	return err
}

func (p *Pipeline) timeoutResult(index int, doc models.Document, cause error) models.CandidateResult {
	p.recorder.ObserveCandidate(string(models.StatusFailed), string(models.KindTimeout))
	err := &TimeoutError{Err: cause}
	return models.NewFailedResult(index, &models.PipelineError{
		Candidate: candidateName(index, doc),
		Kind:      models.KindTimeout,
		Stage:     models.StageExtracting,
		Reason:    err.Error(),
	})
}

// assemble orders the candidates and fills the counts.
func (p *Pipeline) assemble(resp *models.AnalyzeResponse) {
	if p.opts.SortByScore {
		sort.SliceStable(resp.Candidates, func(i, j int) bool {
			a, b := resp.Candidates[i], resp.Candidates[j]
			if a.Status != b.Status {
				return a.Status == models.StatusDone
			}
			if a.Status == models.StatusDone {
				return *a.Score > *b.Score
			}
			return a.Index() < b.Index()
		})
	}

	resp.Succeeded, resp.Failed = 0, 0
	for _, c := range resp.Candidates {
		if c.Status == models.StatusDone {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
	}
	resp.State = models.RequestAssembled
}

func candidateName(index int, doc models.Document) string {
	if doc.Filename != "" {
		return doc.Filename
	}
	return fmt.Sprintf("resume_%d", index+1)
}
