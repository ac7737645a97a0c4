package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectLanguage(t *testing.T) {
	req := require.New(t)

	// Given a long English sentence
	req.Equal("en", DetectLanguage("The weather is lovely today and everyone in the room is talking about the football match from last night"))

	// Given nothing to classify
	req.Equal(UnknownLanguage, DetectLanguage(""))
	req.Equal(UnknownLanguage, DetectLanguage("123 456"))
}
