package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/okian/slumber/internal/domain/habit"
	"github.com/okian/slumber/internal/domain/model"
	"github.com/okian/slumber/internal/domain/quality"
	"github.com/okian/slumber/pkg/logger"
)

const maxBodyBytes = 64 << 10

// PredictDependencies defines what POST /predict needs.
type PredictDependencies interface {
	Predict(ctx context.Context, rec habit.Record) (model.Prediction, error)
}

// predictResponse is the 2xx body of POST /predict.
type predictResponse struct {
	Quality quality.Quality `json:"quality"`
	Tips    []string        `json:"tips"`
	ID      string          `json:"id"`
	Score   int             `json:"score"`
	Factors []string        `json:"factors,omitempty"`
}

// PredictHandler handles prediction requests.
type PredictHandler struct {
	deps   PredictDependencies
	logger logger.Logger
}

// NewPredictHandler creates a new predict handler.
func NewPredictHandler(deps PredictDependencies, l logger.Logger) *PredictHandler {
	return &PredictHandler{deps: deps, logger: l}
}

// HandlePredict handles POST /predict requests.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	ctx := r.Context()

	rec, err := decodeRecord(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.logger.Debug(ctx, "rejecting request body", logger.String("request_id", RequestID(ctx)), logger.Error(err))
		writeError(w, http.StatusBadRequest, codeBadRequest, msgMalformedBody)
		return
	}

	p, err := h.deps.Predict(ctx, rec)
	if err != nil {
		var fe *habit.FieldError
		if errors.As(err, &fe) {
			code := codeInvalidField
			if errors.Is(err, habit.ErrMissingField) {
				code = codeMissingField
			}
			writeError(w, http.StatusBadRequest, code, fe.Public())
			return
		}
		h.logger.Error(ctx, "prediction failed", logger.String("request_id", RequestID(ctx)), logger.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, msgPredictionFailed)
		return
	}

	writeJSON(w, http.StatusOK, predictResponse{
		Quality: p.Quality,
		Tips:    p.Tips,
		ID:      p.ID,
		Score:   p.Score,
		Factors: p.Factors,
	})
}

// decodeRecord reads exactly one JSON object.
func decodeRecord(body io.Reader) (habit.Record, error) {
	var rec habit.Record
	dec := json.NewDecoder(body)
	if err := dec.Decode(&rec); err != nil {
		return habit.Record{}, fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	if dec.More() {
		return habit.Record{}, fmt.Errorf("%w: trailing data", ErrMalformedBody)
	}
	return rec, nil
}
