package services

import (
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"alfredoptarigan/hiring-evaluator/internal/models"
)

func TestAssessBackendScenario(t *testing.T) {
	Convey("Given the senior backend job description", t, func() {
		job := analyzeForTest(backendJob)

		Convey("A resume with concrete, scaled Python and Kafka work scores high", func() {
			a := assess(job, parseForTest(strongResume, job))

			So(a.Breakdown.Experience, ShouldBeGreaterThanOrEqualTo, 20)
			So(a.Breakdown.Skills, ShouldBeGreaterThanOrEqualTo, 20)
			So(a.Breakdown.Validate(), ShouldBeNil)
			So(a.UnsubstantiatedSkills(), ShouldBeEmpty)
			So(a.RedFlags, ShouldBeEmpty)
		})

		Convey("A one-line summary with scale and tooling scores high", func() {
			const oneLine = "led a team, built a payments service handling 10k req/s using Python and Kafka, 6 years experience"
			a := assess(job, parseForTest(oneLine, job))

			So(a.Breakdown.Experience, ShouldBeGreaterThanOrEqualTo, 20)
			So(a.Breakdown.Skills, ShouldBeGreaterThanOrEqualTo, 20)
			So(a.Breakdown.Validate(), ShouldBeNil)
		})

		Convey("A bare keyword list stays at the exposure floor and is flagged", func() {
			a := assess(job, parseForTest(keywordResume, job))

			So(a.Breakdown.Skills, ShouldBeLessThanOrEqualTo, 10)
			So(a.UnsubstantiatedSkills(), ShouldResemble, []string{"distributed systems", "python"})
			So(len(a.RedFlags), ShouldBeGreaterThanOrEqualTo, 2)

			flagged := false
			for _, g := range a.GapTexts() {
				if strings.HasPrefix(g, "Vague/unsubstantiated claims") {
					flagged = true
				}
			}
			So(flagged, ShouldBeTrue)
		})
	})
}

func TestAssessAntiGaming(t *testing.T) {
	Convey("Given a job requiring Kubernetes", t, func() {
		job := &models.RequirementProfile{
			Title:           "Platform Engineer",
			RequiredSkills:  []string{"kubernetes"},
			KeyRequirements: []string{"Kubernetes"},
		}

		listed := &models.CandidateProfile{Skills: []string{"kubernetes"}}
		described := &models.CandidateProfile{
			Skills: []string{"kubernetes"},
			Experience: []models.ExperienceEntry{{
				Role:        "Platform Engineer",
				Description: "Migrated 40 services to Kubernetes with Helm, cutting deploy time by 70%",
			}},
		}
		mentioned := &models.CandidateProfile{
			Skills: []string{"kubernetes"},
			Experience: []models.ExperienceEntry{{
				Role:        "Engineer",
				Description: "Maintained kubernetes",
			}},
		}

		Convey("A listed-only claim never exceeds the floor", func() {
			a := assess(job, listed)
			So(a.Breakdown.Skills, ShouldEqual, 6)
			So(a.Skills[0].Basis, ShouldEqual, BasisListed)
		})

		Convey("A described claim with specifics scores materially higher", func() {
			So(assess(job, described).Breakdown.Skills, ShouldEqual, 30)
			So(assess(job, mentioned).Breakdown.Skills, ShouldEqual, 18)
		})

		Convey("Repeating the listed claim does not help", func() {
			stuffed := &models.CandidateProfile{Skills: []string{"kubernetes", "k8s", "Kubernetes"}}
			So(assess(job, stuffed).Breakdown.Skills, ShouldEqual, assess(job, listed).Breakdown.Skills)
		})
	})
}

func TestAssessKeywordStuffing(t *testing.T) {
	Convey("A long skills list with no described work is flagged", t, func() {
		skills := []string{
			"python", "go", "java", "rust", "scala", "kotlin", "sql", "redis", "kafka",
			"docker", "kubernetes", "terraform", "aws", "gcp", "azure", "linux",
		}
		job := &models.RequirementProfile{Title: "Engineer"}
		a := assess(job, &models.CandidateProfile{Skills: skills})

		So(a.Breakdown.Skills, ShouldEqual, 0)

		stuffing := false
		for _, f := range a.RedFlags {
			if strings.Contains(f, "keyword stuffing") {
				stuffing = true
			}
		}
		So(stuffing, ShouldBeTrue)
	})
}

func TestAssessBoundsAndDeterminism(t *testing.T) {
	Convey("Every breakdown stays inside its bounds and is reproducible", t, func() {
		jobs := []*models.RequirementProfile{
			analyzeForTest(backendJob),
			analyzeForTest(dataJob),
			{Title: "Generalist"},
		}
		resumes := []string{strongResume, keywordResume, "Someone\nworked on various things etc"}

		for _, job := range jobs {
			for _, text := range resumes {
				candidate := parseForTest(text, job)
				first := assess(job, candidate)
				second := assess(job, candidate)

				So(first.Breakdown.Validate(), ShouldBeNil)
				So(first.Breakdown.Total(), ShouldBeBetweenOrEqual, 0, 100)
				So(second.Breakdown, ShouldResemble, first.Breakdown)
				So(second.GapTexts(), ShouldResemble, first.GapTexts())
				So(second.Reasoning, ShouldEqual, first.Reasoning)
			}
		}
	})
}

func TestAssessMissingSignals(t *testing.T) {
	Convey("Given an empty candidate profile", t, func() {
		job := analyzeForTest(backendJob)
		a := assess(job, &models.CandidateProfile{})

		Convey("Every component scores zero", func() {
			So(a.Breakdown, ShouldResemble, models.ScoreBreakdown{})
		})

		Convey("Each missing signal is explained by a gap", func() {
			kinds := map[GapKind]bool{}
			for _, g := range a.Gaps {
				kinds[g.Kind] = true
			}
			So(kinds[GapYearsUnknown], ShouldBeTrue)
			So(kinds[GapMissingSkill], ShouldBeTrue)
			So(kinds[GapEducation], ShouldBeTrue)
			So(kinds[GapTrajectory], ShouldBeTrue)
			So(kinds[GapCommunication], ShouldBeTrue)
		})
	})
}

func TestScoreEducation(t *testing.T) {
	Convey("Given a technical job", t, func() {
		job := &models.RequirementProfile{
			Title:                 "Backend Engineer",
			RequiredSkills:        []string{"go"},
			EducationRequirements: []string{"Master's degree in Computer Science"},
		}

		Convey("A computer science bachelor earns a relevant-field score but misses the requirement", func() {
			a := &Assessment{}
			score, _ := scoreEducation(a, job, &models.CandidateProfile{
				Education: []models.Education{{Degree: "BSc", Field: "Computer Science"}},
			})
			So(score, ShouldEqual, 18)
			So(a.GapTexts(), ShouldContain, "Education does not meet the stated requirement: Master's degree in Computer Science")
		})

		Convey("An unrelated field still earns degree points", func() {
			a := &Assessment{}
			score, _ := scoreEducation(a, job, &models.CandidateProfile{
				Education: []models.Education{{Degree: "Master of Arts", Field: "History"}},
			})
			So(score, ShouldEqual, 9)
		})
	})
}
