package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"alfredoptarigan/hiring-evaluator/internal/models"
)

func TestIngester(t *testing.T) {
	text := strings.Join([]string{
		strings.Repeat("a", 29) + ".",
		strings.Repeat("b", 29) + ".",
		strings.Repeat("c", 29) + ".",
	}, "\n")
	doc := models.Document{Filename: "backend_rubric.txt", ContentType: "text/plain", Content: []byte(text)}

	Convey("Given a reference document that splits into three chunks", t, func() {
		store := &fakeVectorStore{}
		embedder := &fakeEmbedder{}
		ingester := NewIngester(nil, NewTextChunker(50, 0), embedder, store, nil)

		Convey("Every chunk is embedded and stored under a stable id", func() {
			n, err := ingester.Ingest(context.Background(), doc, DocTypeScoringRubric)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 3)
			So(embedder.calls, ShouldEqual, 3)
			So(store.deleted, ShouldResemble, []string{"backend_rubric.txt"})
			So(store.upserted, ShouldResemble, []string{
				"backend_rubric_chunk_0",
				"backend_rubric_chunk_1",
				"backend_rubric_chunk_2",
			})
		})

		Convey("A failed chunk is skipped", func() {
			store.failIDs = map[string]bool{"backend_rubric_chunk_1": true}

			n, err := ingester.Ingest(context.Background(), doc, DocTypeScoringRubric)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 2)
		})

		Convey("Nothing stored is an error", func() {
			embedder.err = errors.New("quota exceeded")

			n, err := ingester.Ingest(context.Background(), doc, DocTypeScoringRubric)
			So(err, ShouldNotBeNil)
			So(n, ShouldEqual, 0)
		})

		Convey("Unreadable documents fail before embedding", func() {
			_, err := ingester.Ingest(context.Background(), models.Document{Filename: "empty.txt"}, DocTypeRoleProfile)

			var extractErr *ExtractionError
			So(errors.As(err, &extractErr), ShouldBeTrue)
			So(embedder.calls, ShouldEqual, 0)
		})
	})
}

func TestDocTypeFor(t *testing.T) {
	Convey("Reference files are typed by name", t, func() {
		So(DocTypeFor("docs/Backend_Scoring.pdf"), ShouldEqual, DocTypeScoringRubric)
		So(DocTypeFor("cv_rubric.md"), ShouldEqual, DocTypeScoringRubric)
		So(DocTypeFor("interview_guide.docx"), ShouldEqual, DocTypeInterviewGuide)
		So(DocTypeFor("question_bank.txt"), ShouldEqual, DocTypeInterviewGuide)
		So(DocTypeFor("backend_engineer.md"), ShouldEqual, DocTypeRoleProfile)
	})
}
