package services

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeRetriever struct {
	rubric string
	err    error
}

func (f fakeRetriever) Retrieve(context.Context, string) (string, error) {
	return f.rubric, f.err
}

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(text)), 1}, nil
}

type fakeVectorStore struct {
	results  map[string][]SearchResult
	searched []string
	upserted []string
	deleted  []string
	failIDs  map[string]bool
}

func (f *fakeVectorStore) SearchSimilar(_ context.Context, _ []float32, docType string, _ int) ([]SearchResult, error) {
	f.searched = append(f.searched, docType)
	return f.results[docType], nil
}

func (f *fakeVectorStore) UpsertPassage(_ context.Context, passage Passage, _ []float32) error {
	if f.failIDs[passage.ID] {
		return errors.New("write rejected")
	}
	f.upserted = append(f.upserted, passage.ID)
	return nil
}

func (f *fakeVectorStore) DeleteSource(_ context.Context, source string) error {
	f.deleted = append(f.deleted, source)
	return nil
}

func TestEvaluatorWithoutBackend(t *testing.T) {
	Convey("Without a backend the rubric assessment is returned unchanged", t, func() {
		job := analyzeForTest(backendJob)
		candidate := parseForTest(strongResume, job)

		a, err := NewEvaluator(nil, nil, nil, nil).Evaluate(context.Background(), job, candidate)
		So(err, ShouldBeNil)
		So(a.Breakdown, ShouldResemble, assess(job, candidate).Breakdown)
		So(a.Reasoning, ShouldNotBeBlank)
	})
}

func TestEvaluatorNarrative(t *testing.T) {
	Convey("Given the strong candidate and a stub backend", t, func() {
		job := analyzeForTest(backendJob)
		candidate := parseForTest(strongResume, job)
		baseline := assess(job, candidate)
		stub := NewStubBackend()

		Convey("The model writes the reasoning but never the scores", func() {
			stub.Enqueue(evaluationSchema.Name, `{
				"reasoning": "Six years of backend work with measurable payments scale.",
				"strengths": ["Owns high-throughput services", "Has led a team", "Writes clearly"],
				"gaps": ["No public talks", "No open source", "No on-call detail"]
			}`)

			a, err := NewEvaluator(stub, nil, nil, nil).Evaluate(context.Background(), job, candidate)
			So(err, ShouldBeNil)
			So(a.Breakdown, ShouldResemble, baseline.Breakdown)
			So(a.Reasoning, ShouldEqual, "Six years of backend work with measurable payments scale.")
			So(len(a.Strengths), ShouldEqual, len(baseline.Strengths)+maxModelFindings)
			So(len(a.Gaps), ShouldEqual, len(baseline.Gaps)+maxModelFindings)
			So(a.GapTexts(), ShouldNotContain, "No on-call detail")
		})

		Convey("An empty reasoning keeps the rubric reasoning", func() {
			a, err := NewEvaluator(stub, nil, nil, nil).Evaluate(context.Background(), job, candidate)
			So(err, ShouldBeNil)
			So(a.Reasoning, ShouldEqual, baseline.Reasoning)
		})

		Convey("Malformed output is logged and the rubric result kept", func() {
			core, logs := observer.New(zapcore.WarnLevel)
			stub.Enqueue(evaluationSchema.Name, `{"strengths": ["missing reasoning"]}`)

			a, err := NewEvaluator(stub, nil, nil, zap.New(core)).Evaluate(context.Background(), job, candidate)
			So(err, ShouldBeNil)
			So(a.Reasoning, ShouldEqual, baseline.Reasoning)
			So(logs.FilterMessage("evaluation narrative unusable, keeping rubric reasoning").Len(), ShouldEqual, 1)
		})

		Convey("A transport failure is returned", func() {
			stub.FailWith(evaluationSchema.Name, errors.New("502 bad gateway"))

			a, err := NewEvaluator(stub, nil, nil, nil).Evaluate(context.Background(), job, candidate)
			So(err, ShouldNotBeNil)
			So(a, ShouldBeNil)
		})
	})
}

func TestEvaluatorRubricContext(t *testing.T) {
	Convey("Given a retriever", t, func() {
		job := analyzeForTest(backendJob)
		candidate := parseForTest(strongResume, job)
		stub := NewStubBackend()

		Convey("Retrieved guidance is placed in the evaluation prompt", func() {
			retriever := fakeRetriever{rubric: "Reward measured throughput claims."}

			_, err := NewEvaluator(stub, nil, retriever, nil).Evaluate(context.Background(), job, candidate)
			So(err, ShouldBeNil)
			So(stub.Calls()[0].Prompt.User, ShouldContainSubstring, "Reward measured throughput claims.")
		})

		Convey("A failing retriever only costs the context", func() {
			core, logs := observer.New(zapcore.WarnLevel)
			retriever := fakeRetriever{err: errors.New("qdrant unavailable")}

			a, err := NewEvaluator(stub, nil, retriever, zap.New(core)).Evaluate(context.Background(), job, candidate)
			So(err, ShouldBeNil)
			So(a.Breakdown.Total(), ShouldEqual, assess(job, candidate).Breakdown.Total())
			So(logs.FilterMessage("failed to retrieve rubric context").Len(), ShouldEqual, 1)
			So(stub.Calls()[0].Prompt.User, ShouldNotContainSubstring, "SCORING RUBRIC CONTEXT")
		})
	})
}

func TestRubricRetriever(t *testing.T) {
	Convey("Given a vector store with rubric and role passages", t, func() {
		store := &fakeVectorStore{results: map[string][]SearchResult{
			DocTypeScoringRubric: {{ID: "r1", Score: 0.91, Text: "Score depth over keywords."}},
			DocTypeRoleProfile:   {{ID: "p1", Score: 0.75, Text: "Backend engineers own services."}},
		}}
		embedder := &fakeEmbedder{}

		Convey("Both document types are searched and formatted in order", func() {
			rubric, err := NewRubricRetriever(store, embedder, 0).Retrieve(context.Background(), "backend rubric")
			So(err, ShouldBeNil)
			So(store.searched, ShouldResemble, []string{DocTypeScoringRubric, DocTypeRoleProfile})
			So(rubric, ShouldEqual, "--- Context 1 (Score: 0.91) ---\nScore depth over keywords.\n\n"+
				"--- Context 2 (Score: 0.75) ---\nBackend engineers own services.")
		})

		Convey("A blank query skips the embedder", func() {
			rubric, err := NewRubricRetriever(store, embedder, 0).Retrieve(context.Background(), "  ")
			So(err, ShouldBeNil)
			So(rubric, ShouldBeBlank)
			So(embedder.calls, ShouldEqual, 0)
		})

		Convey("Embedding failures are returned", func() {
			embedder.err = errors.New("quota exceeded")
			_, err := NewRubricRetriever(store, embedder, 0).Retrieve(context.Background(), "backend rubric")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestEvaluatorScoresIgnoreBackend(t *testing.T) {
	Convey("Scores are the same with and without a backend", t, func() {
		job := analyzeForTest(dataJob)
		for _, text := range []string{strongResume, keywordResume} {
			candidate := parseForTest(text, job)

			plain, err := NewEvaluator(nil, nil, nil, nil).Evaluate(context.Background(), job, candidate)
			So(err, ShouldBeNil)
			stub := NewStubBackend().Enqueue(evaluationSchema.Name, `{"reasoning": "Great candidate, 100/100."}`)
			narrated, err := NewEvaluator(stub, nil, nil, nil).Evaluate(context.Background(), job, candidate)
			So(err, ShouldBeNil)

			So(narrated.Breakdown, ShouldResemble, plain.Breakdown)
			So(narrated.RedFlags, ShouldResemble, plain.RedFlags)
		}
	})

	Convey("The profile is not modified by evaluation", t, func() {
		job := analyzeForTest(backendJob)
		candidate := parseForTest(keywordResume, job)
		before := *candidate
		before.Skills = append([]string(nil), candidate.Skills...)

		_, _ = NewEvaluator(NewStubBackend(), nil, nil, nil).Evaluate(context.Background(), job, candidate)
		So(candidate.Skills, ShouldResemble, before.Skills)
		So(candidate.Name, ShouldEqual, before.Name)
	})
}
