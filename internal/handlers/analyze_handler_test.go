package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/tidwall/gjson"

	"alfredoptarigan/hiring-evaluator/internal/metrics"
	"alfredoptarigan/hiring-evaluator/internal/models"
	"alfredoptarigan/hiring-evaluator/internal/services"
)

const (
	testJob = "Senior backend engineer, 5+ years, Python, distributed systems"

	testResume = `Jane Doe
jane.doe@example.com
Experience
Senior Backend Engineer, Payments Co, 2019 - Present
- Built a payments service handling 10k req/s using Python and Kafka`
)

type upload struct {
	field    string
	filename string
	content  string
}

func multipartRequest(t *testing.T, values map[string]string, files ...upload) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range values {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range files {
		part, err := writer.CreateFormFile(f.field, f.filename)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write([]byte(f.content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/analyze", body)
	req.Header.Set(fiber.HeaderContentType, writer.FormDataContentType())
	return req
}

func heuristicPipeline() *services.Pipeline {
	return services.NewPipeline(services.PipelineDeps{
		Analyzer:  services.NewJobAnalyzer(nil, nil, nil),
		Parser:    services.NewResumeParser(nil, nil, nil, nil),
		Evaluator: services.NewEvaluator(nil, nil, nil, nil),
		Questions: services.NewQuestionGenerator(nil, nil, nil, nil),
	}, services.DefaultPipelineOptions())
}

func newTestApp(runner BatchRunner, maxFileSize int64) *fiber.App {
	return NewApp(
		NewAnalyzeHandler(runner, services.NewDocumentLoader(maxFileSize), nil),
		NewHealthHandler("stub", "stub-deterministic"),
		AppOptions{Metrics: metrics.New().Handler()},
	)
}

func doRequest(app *fiber.App, req *http.Request) (int, gjson.Result) {
	resp, err := app.Test(req, -1)
	So(err, ShouldBeNil)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	So(err, ShouldBeNil)
	return resp.StatusCode, gjson.ParseBytes(body)
}

type fakeRunner struct {
	resp *models.AnalyzeResponse
	err  error
}

func (f fakeRunner) Run(context.Context, services.AnalyzeRequest) (*models.AnalyzeResponse, error) {
	return f.resp, f.err
}

func TestAnalyzeHandler(t *testing.T) {
	Convey("Given the API backed by the heuristic pipeline", t, func() {
		app := newTestApp(heuristicPipeline(), 1<<20)

		Convey("A valid batch is evaluated", func() {
			status, body := doRequest(app, multipartRequest(t,
				map[string]string{"job_description": testJob},
				upload{"resumes", "jane.txt", testResume},
				upload{"resumes", "empty.txt", ""},
			))

			So(status, ShouldEqual, fiber.StatusOK)
			So(body.Get("state").String(), ShouldEqual, string(models.RequestAssembled))
			So(body.Get("request_id").String(), ShouldNotBeBlank)
			So(body.Get("job_analysis.required_skills").Array(), ShouldHaveLength, 2)
			So(body.Get("candidates.#").Int(), ShouldEqual, 2)
			So(body.Get("succeeded").Int(), ShouldEqual, 1)
			So(body.Get("failed").Int(), ShouldEqual, 1)

			So(body.Get("candidates.0.filename").String(), ShouldEqual, "jane.txt")
			So(body.Get("candidates.0.status").String(), ShouldEqual, "done")
			So(body.Get("candidates.0.score").Int(), ShouldEqual, body.Get("candidates.0.breakdown.experience").Int()+
				body.Get("candidates.0.breakdown.skills").Int()+
				body.Get("candidates.0.breakdown.education").Int()+
				body.Get("candidates.0.breakdown.overall_fit").Int())
			So(body.Get("candidates.1.error.kind").String(), ShouldEqual, "extraction")
		})

		Convey("The job description may be uploaded as a file", func() {
			status, body := doRequest(app, multipartRequest(t, nil,
				upload{"job_description", "job.txt", testJob},
				upload{"resumes", "jane.txt", testResume},
			))

			So(status, ShouldEqual, fiber.StatusOK)
			So(body.Get("succeeded").Int(), ShouldEqual, 1)
		})

		Convey("A missing job description is rejected", func() {
			status, body := doRequest(app, multipartRequest(t, nil, upload{"resumes", "jane.txt", testResume}))

			So(status, ShouldEqual, fiber.StatusBadRequest)
			So(body.Get("error").String(), ShouldEqual, "job_description is required")
			So(body.Get("state").String(), ShouldEqual, "failed")
		})

		Convey("A request without resumes is rejected", func() {
			status, body := doRequest(app, multipartRequest(t, map[string]string{"job_description": testJob}))

			So(status, ShouldEqual, fiber.StatusBadRequest)
			So(body.Get("error").String(), ShouldEqual, services.ErrEmptyBatch.Error())
		})

		Convey("An unusable job description is an analysis error", func() {
			status, body := doRequest(app, multipartRequest(t,
				map[string]string{"job_description": "Engineer"},
				upload{"resumes", "jane.txt", testResume},
			))

			So(status, ShouldEqual, fiber.StatusBadRequest)
			So(body.Get("kind").String(), ShouldEqual, "analysis")
			So(body.Get("request_id").String(), ShouldNotBeBlank)
		})

		Convey("A body that is not multipart is rejected", func() {
			req := httptest.NewRequest(fiber.MethodPost, "/api/v1/analyze", bytes.NewBufferString(`{"job_description": "x"}`))
			req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

			status, body := doRequest(app, req)
			So(status, ShouldEqual, fiber.StatusBadRequest)
			So(body.Get("error").String(), ShouldEqual, "failed to parse multipart form")
		})
	})

	Convey("An oversized resume fails alone and the rest of the batch is evaluated", t, func() {
		app := newTestApp(heuristicPipeline(), 400)

		status, body := doRequest(app, multipartRequest(t,
			map[string]string{"job_description": testJob},
			upload{"resumes", "jane.txt", testResume},
			upload{"resumes", "big.txt", strings.Repeat("Built things with Python. ", 40)},
		))

		So(status, ShouldEqual, fiber.StatusOK)
		So(body.Get("candidates.#").Int(), ShouldEqual, 2)
		So(body.Get("succeeded").Int(), ShouldEqual, 1)
		So(body.Get("failed").Int(), ShouldEqual, 1)

		So(body.Get("candidates.0.filename").String(), ShouldEqual, "jane.txt")
		So(body.Get("candidates.0.status").String(), ShouldEqual, "done")

		big := body.Get("candidates.1")
		So(big.Get("status").String(), ShouldEqual, "failed")
		So(big.Get("error.kind").String(), ShouldEqual, "extraction")
		So(big.Get("error.stage").String(), ShouldEqual, "extracting")
		So(big.Get("error.candidate").String(), ShouldEqual, "big.txt")
		So(big.Get("error.reason").String(), ShouldContainSubstring, "limit is 400")
	})

	Convey("A request body over the server limit is rejected with 413", t, func() {
		app := NewApp(
			NewAnalyzeHandler(heuristicPipeline(), services.NewDocumentLoader(0), nil),
			NewHealthHandler("stub", "stub-deterministic"),
			AppOptions{BodyLimit: 256},
		)

		resp, err := app.Test(multipartRequest(t,
			map[string]string{"job_description": testJob},
			upload{"resumes", "jane.txt", testResume},
			upload{"resumes", "big.txt", strings.Repeat("x", 1024)},
		), -1)
		So(err, ShouldBeNil)
		defer resp.Body.Close()
		So(resp.StatusCode, ShouldEqual, fiber.StatusRequestEntityTooLarge)
	})

	Convey("Unexpected pipeline errors are 500s carrying the request id", t, func() {
		app := newTestApp(fakeRunner{
			resp: &models.AnalyzeResponse{RequestID: "req-9", State: models.RequestFailed},
			err:  errors.New("boom"),
		}, 1<<20)

		status, body := doRequest(app, multipartRequest(t,
			map[string]string{"job_description": testJob},
			upload{"resumes", "jane.txt", testResume},
		))

		So(status, ShouldEqual, fiber.StatusInternalServerError)
		So(body.Get("request_id").String(), ShouldEqual, "req-9")
		So(body.Get("error").String(), ShouldEqual, "boom")
	})
}

func TestServiceRoutes(t *testing.T) {
	Convey("Given the API", t, func() {
		app := newTestApp(fakeRunner{}, 1<<20)

		Convey("Health reports the backend", func() {
			status, body := doRequest(app, httptest.NewRequest(fiber.MethodGet, "/api/v1/health", nil))
			So(status, ShouldEqual, fiber.StatusOK)
			So(body.Get("status").String(), ShouldEqual, "healthy")
			So(body.Get("provider").String(), ShouldEqual, "stub")
		})

		Convey("The index lists the endpoints", func() {
			status, body := doRequest(app, httptest.NewRequest(fiber.MethodGet, "/", nil))
			So(status, ShouldEqual, fiber.StatusOK)
			So(body.Get("endpoints.#").Int(), ShouldEqual, 3)
		})

		Convey("Metrics are exposed in the Prometheus format", func() {
			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/metrics", nil), -1)
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			body, _ := io.ReadAll(resp.Body)
			So(resp.StatusCode, ShouldEqual, fiber.StatusOK)
			So(string(body), ShouldContainSubstring, "go_goroutines")
		})

		Convey("Unknown routes use the error envelope", func() {
			status, body := doRequest(app, httptest.NewRequest(fiber.MethodGet, "/nope", nil))
			So(status, ShouldEqual, fiber.StatusNotFound)
			So(body.Get("code").Int(), ShouldEqual, fiber.StatusNotFound)
		})
	})
}
