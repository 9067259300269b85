package services

import (
	"context"
	"time"

	"alfredoptarigan/hiring-evaluator/internal/models"
)

const (
	backendJob = "Senior backend engineer, 5+ years, Python, distributed systems"

	strongResume = `Jane Doe
jane.doe@example.com
Summary
Backend engineer with 6 years experience.
Experience
Senior Backend Engineer, Payments Co, 2019 - Present
- Led a team of 5 and built a payments service handling 10k req/s using Python and Kafka
Education
BSc in Computer Science, State University`

	keywordResume = `John Smith
Skills: Python, Kafka, distributed systems`

	dataJob = `Job Title: Data Engineer
Requirements:
- 3+ years of experience building data pipelines
- Strong SQL and Python
- Bachelor's degree in Computer Science or related field
Nice to have:
- Airflow experience`
)

var fixedNow = time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func analyzeForTest(text string) *models.RequirementProfile {
	job, err := NewJobAnalyzer(nil, nil, nil).Analyze(context.Background(), text)
	if err != nil {
		panic(err)
	}
	return job
}

func parseForTest(text string, job *models.RequirementProfile) *models.CandidateProfile {
	profile, err := NewResumeParser(nil, nil, nil, fixedClock).Parse(context.Background(), text, job)
	if err != nil {
		panic(err)
	}
	return profile
}

// testRetrying wraps a backend with retries that never sleep.
func testRetrying(inner Backend, maxRetries int) Backend {
	b := NewRetryingBackend(inner, RetryPolicy{MaxRetries: maxRetries}, nil, nil).(*retryingBackend)
	b.wait = func(context.Context, time.Duration) error { return nil }
	return b
}
