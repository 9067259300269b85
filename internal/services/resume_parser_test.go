package services

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"alfredoptarigan/hiring-evaluator/internal/models"
)

const datedResume = `Alex Kim
Experience
Software Engineer | Acme Corp | Jan 2018 - Dec 2020
- Built internal tools for the support team
Senior Software Engineer | Beta Inc | Jan 2021 - Present
- Designed payment APIs`

const unsectionedResume = `Maria Garcia
+1 (555) 123-4567
Python, Go, Docker, Kubernetes
Developed REST APIs in Go for 200k users`

func TestResumeParserSections(t *testing.T) {
	Convey("Given a resume with headed sections", t, func() {
		job := analyzeForTest(backendJob)
		profile := parseForTest(strongResume, job)

		Convey("Contact details are read from the header", func() {
			So(profile.Name, ShouldEqual, "Jane Doe")
			So(profile.Email, ShouldEqual, "jane.doe@example.com")
		})

		Convey("The explicit years statement wins", func() {
			So(profile.YearsExperience, ShouldNotBeNil)
			So(*profile.YearsExperience, ShouldEqual, 6.0)
		})

		Convey("Experience entries carry role, organization and description", func() {
			So(profile.Experience, ShouldHaveLength, 1)
			entry := profile.Experience[0]
			So(entry.Role, ShouldEqual, "Senior Backend Engineer")
			So(entry.Organization, ShouldEqual, "Payments Co")
			So(entry.Duration, ShouldEqual, "2019 - Present")
			So(entry.Description, ShouldContainSubstring, "10k req/s")
		})

		Convey("Required skills named in experience are added to the skills", func() {
			So(profile.Skills, ShouldContain, "python")
		})

		Convey("Education is split into degree, field and institution", func() {
			So(profile.Education, ShouldResemble, []models.Education{{
				Degree:      "BSc",
				Field:       "Computer Science",
				Institution: "State University",
			}})
		})
	})
}

func TestResumeParserDatedSpan(t *testing.T) {
	Convey("Years are the span of dated entries, with present read from the clock", t, func() {
		profile := parseForTest(datedResume, nil)

		So(profile.Experience, ShouldHaveLength, 2)
		So(profile.Experience[0].Organization, ShouldEqual, "Acme Corp")
		So(profile.Experience[1].Role, ShouldEqual, "Senior Software Engineer")
		So(profile.YearsExperience, ShouldNotBeNil)
		So(*profile.YearsExperience, ShouldEqual, 6.0)

		Convey("A later clock lengthens the span", func() {
			later := func() time.Time { return time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC) }
			profile, err := NewResumeParser(nil, nil, nil, later).Parse(context.Background(), datedResume, nil)
			So(err, ShouldBeNil)
			So(*profile.YearsExperience, ShouldEqual, 8.0)
		})

		Convey("Dates after the clock are clamped to it", func() {
			profile := parseForTest(`Alex Kim
Experience
Software Engineer | Acme Corp | Jan 2020 - Present
- Built internal tools for the support team
Staff Engineer | Future Labs | 2030 - 2031
- Designed payment APIs`, nil)

			So(profile.Experience, ShouldHaveLength, 2)
			So(profile.Experience[1].Start, ShouldEqual, 2024.0)
			So(profile.Experience[1].End, ShouldEqual, 2024.0)
			So(*profile.YearsExperience, ShouldEqual, 4.0)
		})
	})
}

func TestResumeParserUnsectioned(t *testing.T) {
	Convey("Given a resume without headings", t, func() {
		profile := parseForTest(unsectionedResume, nil)

		So(profile.Name, ShouldEqual, "Maria Garcia")
		So(profile.Phone, ShouldEqual, "+1 (555) 123-4567")
		So(profile.Skills, ShouldResemble, []string{"docker", "go", "kubernetes", "python"})
		So(profile.Experience, ShouldHaveLength, 1)
		So(profile.Experience[0].Description, ShouldEqual, "Developed REST APIs in Go for 200k users")
		So(profile.YearsExperience, ShouldBeNil)
	})
}

func TestResumeParserSingleWordName(t *testing.T) {
	Convey("A single capitalized word on the first line is the name", t, func() {
		profile := parseForTest("Alex\nalex@example.com\nSkills: Python, Go", nil)

		So(profile.Name, ShouldEqual, "Alex")
		So(profile.Summary, ShouldBeBlank)
		So(profile.Email, ShouldEqual, "alex@example.com")
	})

	Convey("Document titles and lone words further down are not names", t, func() {
		So(parseForTest("Resume\nalex@example.com\nSkills: Python", nil).Name, ShouldBeBlank)
		So(parseForTest("alex@example.com\nAlex\nSkills: Python", nil).Name, ShouldBeBlank)
	})
}

func TestResumeParserErrors(t *testing.T) {
	Convey("Resumes without readable text are parse errors", t, func() {
		parser := NewResumeParser(nil, nil, nil, fixedClock)

		for _, text := range []string{"", "  \n ", "12345 ---"} {
			_, err := parser.Parse(context.Background(), text, nil)

			var parseErr *ParseError
			So(errors.As(err, &parseErr), ShouldBeTrue)
			So(classifyError(err), ShouldEqual, models.KindParse)
		}
	})
}

func TestResumeParserWithBackend(t *testing.T) {
	const resume = `Resume of Sam Lee, backend developer
contact me at sam@example.org
Skills: Python`

	Convey("Given a backend answering the resume schema", t, func() {
		stub := NewStubBackend()
		parser := NewResumeParser(stub, nil, nil, fixedClock)

		Convey("Only values traceable to the resume are accepted", func() {
			stub.Enqueue(resumeParseSchema.Name, `{
				"name": "Sam Lee",
				"skills": ["Python", "Rust"],
				"experience": [{"role": "Staff Engineer", "description": "Scaled Kubernetes clusters to 900 nodes at Google"}]
			}`)

			profile, err := parser.Parse(context.Background(), resume, nil)
			So(err, ShouldBeNil)
			So(profile.Name, ShouldEqual, "Sam Lee")
			So(profile.Email, ShouldEqual, "sam@example.org")
			So(profile.Skills, ShouldResemble, []string{"python"})
			So(profile.Experience, ShouldBeEmpty)
		})

		Convey("Malformed output keeps the heuristic profile", func() {
			stub.Enqueue(resumeParseSchema.Name, `{"skills": "python"}`)

			profile, err := parser.Parse(context.Background(), resume, nil)
			So(err, ShouldBeNil)
			So(profile.Skills, ShouldResemble, []string{"python"})
		})

		Convey("A transport failure is returned to the caller", func() {
			stub.FailWith(resumeParseSchema.Name, errors.New("503 service unavailable"))

			_, err := parser.Parse(context.Background(), resume, nil)
			So(err, ShouldNotBeNil)
			So(classifyError(err), ShouldEqual, models.KindGeneration)
		})
	})
}
