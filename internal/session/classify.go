package session

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"glowstudio/internal/domain"
	"glowstudio/internal/i18n"
	"glowstudio/internal/providers/image"
)

// refusalMarkers are case-sensitive substrings that, found in a raw failure
// text, mark it as a safety refusal.
var refusalMarkers = []string{"SAFETY", "blocked", "finishReason"}

// badRequestToken matches 400 as a standalone number, not as any substring,
// so sizes such as "14000 bytes" do not read as a rejected request. Tagged
// errors carry the status code and never reach this check.
var badRequestToken = regexp.MustCompile(`(^|[^0-9])400([^0-9]|$)`)

// Classify decides which user-facing message a generation failure gets.
// Tagged provider errors are trusted first; the substring markers catch
// failures that arrive untagged. Misclassification only changes the message.
func Classify(err error) domain.FailureKind {
	if err == nil {
		return domain.FailureNone
	}
	var genErr *image.GenerationError
	if errors.As(err, &genErr) {
		if genErr.Kind == image.KindRefused || genErr.StatusCode == http.StatusBadRequest {
			return domain.FailureSafety
		}
	}
	msg := err.Error()
	for _, marker := range refusalMarkers {
		if strings.Contains(msg, marker) {
			return domain.FailureSafety
		}
	}
	if badRequestToken.MatchString(msg) {
		return domain.FailureSafety
	}
	return domain.FailureGeneric
}

// FailureMessage renders a failure kind in the given locale.
func FailureMessage(locale string, kind domain.FailureKind) string {
	switch kind {
	case domain.FailureNone:
		return ""
	case domain.FailureSafety:
		return i18n.Message(locale, i18n.ErrorSafety)
	default:
		return i18n.Message(locale, i18n.ErrorGeneric)
	}
}
