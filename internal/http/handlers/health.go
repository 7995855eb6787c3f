package handlers

import (
	"net/http"

	"dreamlab/internal/domain"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	analyzer := ""
	if a.Analyzer != nil {
		analyzer = a.Analyzer.Name()
	}
	a.json(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"analyzer": analyzer,
		"gallery":  a.Gallery != nil,
	})
}

type modelResponse struct {
	ID       domain.Model    `json:"id"`
	Provider domain.Provider `json:"provider"`
	Family   string          `json:"family"`
}

// Models lists the generation models the service accepts.
func (a *App) Models(w http.ResponseWriter, r *http.Request) {
	specs := domain.Models()
	out := make([]modelResponse, 0, len(specs))
	for _, spec := range specs {
		out = append(out, modelResponse{ID: spec.ID, Provider: spec.Provider, Family: spec.Family.String()})
	}
	a.json(w, http.StatusOK, map[string]any{
		"models":         out,
		"aspect_ratios":  domain.SupportedAspectRatios,
		"default_aspect": domain.DefaultAspectRatio,
	})
}
