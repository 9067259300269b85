package services

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"

	"alfredoptarigan/hiring-evaluator/internal/metrics"
)

var testSchema = Schema{
	Name: "test",
	Fields: []SchemaField{
		{Path: "title", Type: FieldString, Required: true},
		{Path: "score", Type: FieldNumber},
		{Path: "tags", Type: FieldStringArray},
		{Path: "meta.ok", Type: FieldBool},
	},
}

func TestSchemaValidate(t *testing.T) {
	Convey("Given a schema with one required field", t, func() {
		Convey("A document with the right types passes", func() {
			So(testSchema.Validate(`{"title": "x", "score": 3, "tags": ["a"], "meta": {"ok": true}}`), ShouldBeNil)
		})

		Convey("Optional fields may be absent or null", func() {
			So(testSchema.Validate(`{"title": "x", "score": null}`), ShouldBeNil)
		})

		Convey("Broken documents are malformed", func() {
			for _, doc := range []string{
				`not json`,
				`["title"]`,
				`{"score": 3}`,
				`{"title": 7}`,
				`{"title": "x", "tags": ["a", 2]}`,
				`{"title": "x", "meta": {"ok": "yes"}}`,
			} {
				err := testSchema.Validate(doc)
				So(errors.Is(err, ErrMalformedOutput), ShouldBeTrue)
			}
		})
	})
}

func TestNewCompletion(t *testing.T) {
	Convey("JSON is recovered from fenced or chatty answers", t, func() {
		for _, raw := range []string{
			"```json\n{\"title\": \"Engineer\"}\n```",
			"Sure, here it is: {\"title\": \"Engineer\"} Let me know!",
		} {
			completion, err := NewCompletion(raw, testSchema)
			So(err, ShouldBeNil)
			So(completion.JSON, ShouldEqual, `{"title": "Engineer"}`)
			So(completion.Get("title").String(), ShouldEqual, "Engineer")
		}
	})

	Convey("An empty answer is malformed", t, func() {
		_, err := NewCompletion("  ", testSchema)
		So(errors.Is(err, ErrMalformedOutput), ShouldBeTrue)
	})

	Convey("Decode fills a struct", t, func() {
		completion, err := NewCompletion(`{"title": "Engineer", "tags": ["go"]}`, testSchema)
		So(err, ShouldBeNil)

		var out struct {
			Title string   `json:"title"`
			Tags  []string `json:"tags"`
		}
		So(completion.Decode(&out), ShouldBeNil)
		So(out.Title, ShouldEqual, "Engineer")
		So(out.Tags, ShouldResemble, []string{"go"})
	})
}

func TestRetryingBackend(t *testing.T) {
	Convey("Given a stub wrapped with two retries", t, func() {
		stub := NewStubBackend()
		backend := testRetrying(stub, 2)

		Convey("A malformed answer is re-queried", func() {
			stub.Enqueue(testSchema.Name, "no json here")
			stub.Enqueue(testSchema.Name, `{"title": "ok"}`)

			completion, err := backend.Complete(context.Background(), Prompt{User: "q"}, testSchema)
			So(err, ShouldBeNil)
			So(completion.Get("title").String(), ShouldEqual, "ok")
			So(stub.CallsFor(testSchema.Name), ShouldEqual, 2)
		})

		Convey("Persistently malformed answers exhaust the budget", func() {
			for i := 0; i < 3; i++ {
				stub.Enqueue(testSchema.Name, `{"title": 1}`)
			}

			_, err := backend.Complete(context.Background(), Prompt{User: "q"}, testSchema)

			var genErr *GenerationError
			So(errors.As(err, &genErr), ShouldBeTrue)
			So(genErr.Attempts, ShouldEqual, 3)
			So(IsMalformed(err), ShouldBeTrue)
		})

		Convey("Transport errors are retried and then surfaced", func() {
			cause := errors.New("connection reset")
			stub.FailWith(testSchema.Name, cause)

			_, err := backend.Complete(context.Background(), Prompt{User: "q"}, testSchema)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(IsMalformed(err), ShouldBeFalse)
			So(stub.CallsFor(testSchema.Name), ShouldEqual, 3)
		})

		Convey("A cancelled context stops immediately", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := backend.Complete(ctx, Prompt{User: "q"}, testSchema)

			var genErr *GenerationError
			So(errors.As(err, &genErr), ShouldBeTrue)
			So(genErr.Attempts, ShouldEqual, 1)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})

		Convey("The wrapper reports the inner identity", func() {
			So(backend.Provider(), ShouldEqual, "stub")
			So(backend.Model(), ShouldEqual, "stub-deterministic")
		})
	})

	Convey("Attempts are counted by outcome", t, func() {
		stub := NewStubBackend()
		recorder := metrics.New()
		backend := NewRetryingBackend(stub, RetryPolicy{MaxRetries: 1}, nil, recorder)

		stub.Enqueue(testSchema.Name, "{}")
		stub.Enqueue(testSchema.Name, `{"title": "ok"}`)

		_, err := backend.Complete(context.Background(), Prompt{User: "q"}, testSchema)
		So(err, ShouldBeNil)

		series, err := testutil.GatherAndCount(recorder.Registry(), "hiring_evaluator_backend_attempts_total")
		So(err, ShouldBeNil)
		So(series, ShouldEqual, 2)
	})

	Convey("A negative retry count still makes one attempt", t, func() {
		stub := NewStubBackend().FailWith(testSchema.Name, errors.New("down"))
		_, err := testRetrying(stub, -1).Complete(context.Background(), Prompt{}, testSchema)

		So(err, ShouldNotBeNil)
		So(stub.CallsFor(testSchema.Name), ShouldEqual, 1)
	})
}

func TestStubMinimalDocument(t *testing.T) {
	Convey("The stub answers every stage schema with a valid empty document", t, func() {
		for _, schema := range []Schema{jobAnalysisSchema, resumeParseSchema, evaluationSchema, questionSchema} {
			So(schema.Validate(minimalDocument(schema)), ShouldBeNil)
		}
		So(minimalDocument(questionSchema), ShouldEqual, `{"questions":[]}`)
	})
}
