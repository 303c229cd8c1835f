package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"glowstudio/internal/middleware"
	"glowstudio/internal/providers/prompt"
)

type promptEnhanceRequest struct {
	Prompt string `json:"prompt"`
	Locale string `json:"locale"`
}

// PromptEnhance rewrites an instruction. It answers 200 with the original
// text whenever the enhancer cannot help.
func (a *App) PromptEnhance(w http.ResponseWriter, r *http.Request) {
	var req promptEnhanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	locale := strings.TrimSpace(req.Locale)
	if locale == "" {
		locale = middleware.LocaleFromContext(r.Context())
	}
	res := prompt.Improve(r.Context(), a.Enhancer, prompt.EnhanceRequest{Prompt: req.Prompt, Locale: locale})
	a.json(w, http.StatusOK, res)
}
