package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/quarry/internal/core/domain"
)

func TestQueryWords(t *testing.T) {
	assert.Equal(t, map[string]bool{"rover": true, "mars": true}, queryWords("Where is the rover on Mars?"))
	assert.Equal(t, map[string]bool{"is": true, "it": true}, queryWords("is it"), "falls back to all tokens")
	assert.Empty(t, queryWords("?!"))
}

func TestSentences(t *testing.T) {
	got := sentences("One. Two!  Three?\nFour v1.2 still four\n\nFive")
	assert.Equal(t, []string{"One.", "Two!", "Three?", "Four v1.2 still four", "Five"}, got)
}

func TestExtractiveAnswer(t *testing.T) {
	assert.Equal(t, NoInformationAnswer, extractiveAnswer("anything", nil))

	refs := []domain.SourceRef{{Text: "Alpha beta. Gamma delta."}}
	assert.Equal(t, ExtractivePrefix+"Alpha beta.", extractiveAnswer("zebra", refs), "no match quotes the first sentence")
	assert.Equal(t, ExtractivePrefix+"Gamma delta.", extractiveAnswer("delta", refs))
}

func TestConfidence(t *testing.T) {
	assert.Zero(t, confidence(nil))
	refs := []domain.SourceRef{{Similarity: 0.5}, {Similarity: 0.75}, {Similarity: 0.75}}
	assert.InDelta(t, 0.67, confidence(refs), 1e-9)
}
