package moderation

import "github.com/abadojack/whatlanggo"

// UnknownLanguage labels text too short or too mixed to classify.
const UnknownLanguage = "unknown"

// DetectLanguage returns the ISO 639-1 code of text, or UnknownLanguage when
// the detection is not reliable.
func DetectLanguage(text string) string {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return UnknownLanguage
	}
	if code := info.Lang.Iso6391(); code != "" {
		return code
	}
	return UnknownLanguage
}
