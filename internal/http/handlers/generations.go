package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"dreamlab/internal/domain"
)

const maxGenerationBody = 64 << 10

// CreateGeneration blocks until the generation is terminal. With ?mode=async
// it only dispatches and answers 202 so the caller can poll the status route.
func (a *App) CreateGeneration(w http.ResponseWriter, r *http.Request) {
	var req domain.GenerationRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxGenerationBody))
	if err := dec.Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	if strings.EqualFold(r.URL.Query().Get("mode"), "async") {
		res, err := a.Generator.Dispatch(r.Context(), req)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		status := http.StatusAccepted
		if res.State.Terminal() {
			status = http.StatusOK
		}
		a.json(w, status, res)
		return
	}

	res, err := a.Generator.Generate(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, res)
}

func (a *App) GenerationStatus(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	res, err := a.Generator.GetStatus(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, res)
}
