// Package i18n holds the user-facing message catalog.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
)

// Key identifies a catalog entry.
type Key string

const (
	ErrorGeneric  Key = "errorGeneric"
	ErrorSafety   Key = "errorSafety"
	InvalidImage  Key = "invalidImage"
	EmptyPrompt   Key = "emptyPrompt"
	NoImage       Key = "noImage"
	Busy          Key = "busy"
	UnknownFilter Key = "unknownFilter"
)

const (
	English = "en"
	Hindi   = "hi"
)

var supported = []language.Tag{language.English, language.Hindi}

var matcher = language.NewMatcher(supported)

var catalog = map[string]map[Key]string{
	English: {
		ErrorGeneric:  "Something went wrong while processing the image.",
		ErrorSafety:   "Request cannot be processed due to safety guidelines.",
		InvalidImage:  "Please upload a valid image file (PNG, JPG, WebP).",
		EmptyPrompt:   "Please describe the edit you want.",
		NoImage:       "Upload an image first.",
		Busy:          "An edit is already in progress.",
		UnknownFilter: "That filter is not available.",
	},
	Hindi: {
		ErrorGeneric:  "छवि संसाधित करते समय कुछ गलत हो गया।",
		ErrorSafety:   "सुरक्षा दिशानिर्देशों के कारण अनुरोध संसाधित नहीं किया जा सकता है।",
		InvalidImage:  "कृपया एक मान्य छवि फ़ाइल अपलोड करें (PNG, JPG, WebP)।",
		EmptyPrompt:   "कृपया वह बदलाव लिखें जो आप चाहते हैं।",
		NoImage:       "पहले एक छवि अपलोड करें।",
		Busy:          "एक संपादन पहले से चल रहा है।",
		UnknownFilter: "यह फ़िल्टर उपलब्ध नहीं है।",
	},
}

// Normalize maps any BCP 47 tag or Accept-Language value to a supported
// locale. Unknown or unparsable input yields English.
func Normalize(locale string) string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return English
	}
	tags, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(tags) == 0 {
		return English
	}
	return Match(tags...)
}

// Match picks the best supported locale for the given preference list.
func Match(tags ...language.Tag) string {
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return English
	}
	base, _ := supported[idx].Base()
	return base.String()
}

// Supported reports whether locale is one of the catalog locales.
func Supported(locale string) bool {
	_, ok := catalog[locale]
	return ok
}

// Message returns the text for key in locale, falling back to English.
func Message(locale string, key Key) string {
	if msgs, ok := catalog[Normalize(locale)]; ok {
		if msg, ok := msgs[key]; ok {
			return msg
		}
	}
	return catalog[English][key]
}
