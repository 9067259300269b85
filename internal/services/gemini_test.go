package services

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	. "github.com/smartystreets/goconvey/convey"
)

func TestGeminiBackendConfig(t *testing.T) {
	Convey("An API key is required", t, func() {
		_, err := NewGeminiBackend(context.Background(), "", "", "", 0)
		So(err, ShouldNotBeNil)
	})

	Convey("Blank model names fall back to the defaults", t, func() {
		backend, err := NewGeminiBackend(context.Background(), "test-key", " ", "", 0.2)
		So(err, ShouldBeNil)
		So(backend.Provider(), ShouldEqual, "gemini")
		So(backend.Model(), ShouldEqual, defaultGeminiModel)
		So(backend.embedModel, ShouldEqual, defaultGeminiEmbedModel)
	})
}

func TestEmbeddingInput(t *testing.T) {
	Convey("Embedding input is cut on rune boundaries", t, func() {
		text := strings.Repeat("é", maxEmbeddingRunes+5)

		input := embeddingInput(text)
		So(utf8.ValidString(input), ShouldBeTrue)
		So(utf8.RuneCountInString(input), ShouldEqual, maxEmbeddingRunes)
	})

	Convey("Short input is unchanged", t, func() {
		So(embeddingInput("Score depth over keywords."), ShouldEqual, "Score depth over keywords.")
	})
}
