package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"alfredoptarigan/hiring-evaluator/internal/models"
)

func mentioning(questions []string, term string) int {
	n := 0
	for _, q := range questions {
		if strings.Contains(strings.ToLower(q), term) {
			n++
		}
	}
	return n
}

func TestQuestionGeneratorTemplates(t *testing.T) {
	Convey("Given the backend job", t, func() {
		job := analyzeForTest(backendJob)
		generator := NewQuestionGenerator(nil, nil, nil, nil)

		Convey("A keyword-only resume is probed on its unsubstantiated skills first", func() {
			candidate := parseForTest(keywordResume, job)
			questions, err := generator.Generate(context.Background(), job, candidate, assess(job, candidate))

			So(err, ShouldBeNil)
			So(len(questions), ShouldBeBetweenOrEqual, MinQuestions, MaxQuestions)
			So(questions[0], ShouldContainSubstring, "distributed systems")
			So(mentioning(questions, "python"), ShouldBeGreaterThanOrEqualTo, 1)
		})

		Convey("A strong resume is still asked at least the minimum", func() {
			candidate := parseForTest(strongResume, job)
			questions, err := generator.Generate(context.Background(), job, candidate, assess(job, candidate))

			So(err, ShouldBeNil)
			So(len(questions), ShouldBeBetweenOrEqual, MinQuestions, MaxQuestions)
			So(mentioning(questions, "distributed systems"), ShouldBeGreaterThanOrEqualTo, 1)
		})
	})

	Convey("A missing required skill produces a question on that theme", t, func() {
		job := &models.RequirementProfile{
			Title:           "Backend Engineer",
			RequiredSkills:  []string{"distributed systems"},
			KeyRequirements: []string{"distributed systems"},
		}
		candidate := &models.CandidateProfile{
			Experience: []models.ExperienceEntry{{Role: "Developer", Description: "Built a CRM in PHP for 30 sales staff"}},
		}

		questions, _ := NewQuestionGenerator(nil, nil, nil, nil).Generate(context.Background(), job, candidate, assess(job, candidate))
		So(mentioning(questions, "distributed systems"), ShouldBeGreaterThanOrEqualTo, 1)
	})
}

func TestQuestionGeneratorWithBackend(t *testing.T) {
	Convey("Given the strong candidate", t, func() {
		job := analyzeForTest(backendJob)
		candidate := parseForTest(strongResume, job)
		a := assess(job, candidate)
		stub := NewStubBackend()

		Convey("Model questions are appended after templates and deduplicated", func() {
			stub.Enqueue(questionSchema.Name, `{"questions": [
				"How did you partition Kafka topics for the payments service?",
				"how did you partition kafka topics for the payments service",
				"What did you learn from leading the team?"
			]}`)

			questions, err := NewQuestionGenerator(stub, nil, nil, nil).Generate(context.Background(), job, candidate, a)
			So(err, ShouldBeNil)
			So(len(questions), ShouldBeLessThanOrEqualTo, MaxQuestions)
			So(mentioning(questions, "partition kafka topics"), ShouldEqual, 1)
			So(questions, ShouldContain, "What did you learn from leading the team?")
		})

		Convey("Interview guide passages are added to the prompt", func() {
			store := &fakeVectorStore{results: map[string][]SearchResult{
				DocTypeInterviewGuide: {{ID: "g1", Score: 0.88, Text: "Ask how they handled a production incident."}},
				DocTypeScoringRubric:  {{ID: "r1", Score: 0.95, Text: "Score depth over keywords."}},
			}}
			guide := NewRubricRetriever(store, &fakeEmbedder{}, 0, DocTypeInterviewGuide)

			_, err := NewQuestionGenerator(stub, nil, guide, nil).Generate(context.Background(), job, candidate, a)
			So(err, ShouldBeNil)
			So(store.searched, ShouldResemble, []string{DocTypeInterviewGuide})

			prompt := stub.Calls()[0].Prompt.User
			So(prompt, ShouldContainSubstring, "INTERVIEW GUIDE CONTEXT")
			So(prompt, ShouldContainSubstring, "Ask how they handled a production incident.")
			So(prompt, ShouldNotContainSubstring, "Score depth over keywords.")
		})

		Convey("A failing guide lookup only costs the context", func() {
			core, logs := observer.New(zapcore.WarnLevel)
			guide := fakeRetriever{err: errors.New("qdrant unavailable")}

			questions, err := NewQuestionGenerator(stub, nil, guide, zap.New(core)).Generate(context.Background(), job, candidate, a)
			So(err, ShouldBeNil)
			So(len(questions), ShouldBeGreaterThanOrEqualTo, MinQuestions)
			So(logs.FilterMessage("failed to retrieve interview guide").Len(), ShouldEqual, 1)
			So(stub.Calls()[0].Prompt.User, ShouldNotContainSubstring, "INTERVIEW GUIDE CONTEXT")
		})

		Convey("A failing backend falls back to templates without an error", func() {
			core, logs := observer.New(zapcore.WarnLevel)
			stub.FailWith(questionSchema.Name, errors.New("timeout"))

			questions, err := NewQuestionGenerator(stub, nil, nil, zap.New(core)).Generate(context.Background(), job, candidate, a)
			So(err, ShouldBeNil)
			So(len(questions), ShouldBeGreaterThanOrEqualTo, MinQuestions)
			So(logs.FilterMessage("question generation fell back to templates").Len(), ShouldEqual, 1)
		})
	})
}

func TestFallbackQuestions(t *testing.T) {
	Convey("Fallback questions name the role when it is known", t, func() {
		questions := FallbackQuestions(&models.RequirementProfile{Title: "Data Engineer"})
		So(questions, ShouldHaveLength, MinQuestions)
		So(questions[1], ShouldContainSubstring, "the Data Engineer role")

		So(FallbackQuestions(nil), ShouldHaveLength, MinQuestions)
	})
}
