package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/slumber/internal/adapters/repository"
	"github.com/okian/slumber/internal/domain/model"
	"github.com/okian/slumber/pkg/logger"
)

const defaultHistoryLimit = 20

// PredictionsDependencies defines the history read operations.
type PredictionsDependencies interface {
	Get(ctx context.Context, id string) (model.Prediction, error)
	Recent(ctx context.Context, limit int) ([]model.Prediction, error)
}

type predictionsResponse struct {
	Predictions []model.Prediction `json:"predictions"`
	Count       int                `json:"count"`
}

// PredictionsHandler serves prediction history.
type PredictionsHandler struct {
	deps   PredictionsDependencies
	logger logger.Logger
}

// NewPredictionsHandler creates a new history handler.
func NewPredictionsHandler(deps PredictionsDependencies, l logger.Logger) *PredictionsHandler {
	return &PredictionsHandler{deps: deps, logger: l}
}

// HandleList handles GET /predictions?limit=N requests.
func (h *PredictionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, codeBadRequest, msgInvalidLimit)
			return
		}
		limit = n
	}

	list, err := h.deps.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error(r.Context(), "listing predictions failed",
			logger.String("request_id", RequestID(r.Context())), logger.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "")
		return
	}
	if list == nil {
		list = []model.Prediction{}
	}
	writeJSON(w, http.StatusOK, predictionsResponse{Predictions: list, Count: len(list)})
}

// HandleGet handles GET /predictions/{id} requests.
func (h *PredictionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	id := r.PathValue("id")
	p, err := h.deps.Get(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, codeNotFound, msgNotFound)
			return
		}
		h.logger.Error(r.Context(), "fetching prediction failed",
			logger.String("id", id), logger.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// isNotFound allows the API to translate upstream not-found errors to 404.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
