package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"coursegraph-backend/internal/errors"
	"coursegraph-backend/internal/service/pathfinding"
	"coursegraph-backend/internal/service/prereq"
	"coursegraph-backend/pkg/common"
)

// LearningHandler serves path-finding and prerequisite endpoints.
type LearningHandler struct {
	paths   *pathfinding.Service
	prereqs *prereq.Service
	logger  *zap.Logger
}

// NewLearningHandler creates a learning handler.
func NewLearningHandler(paths *pathfinding.Service, prereqs *prereq.Service, logger *zap.Logger) *LearningHandler {
	return &LearningHandler{paths: paths, prereqs: prereqs, logger: logger}
}

// FindLearningPath handles GET /paths?start=...&end=...&optimization=...
func (h *LearningHandler) FindLearningPath(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")
	if start == "" || end == "" {
		common.RespondError(w, http.StatusBadRequest, errors.CodeValidationFailed, "start and end query parameters are required")
		return
	}

	result, err := h.paths.FindLearningPath(r.Context(), start, end,
		pathfinding.Optimization(r.URL.Query().Get("optimization")))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if result == nil {
		common.RespondError(w, http.StatusNotFound, errors.CodePathNotFound, "no learning path between the given courses")
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// GetRecommendations handles GET /courses/{entityID}/recommendations.
func (h *LearningHandler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	recommendations, err := h.paths.GetRecommendedNextCourses(r.Context(), chi.URLParam(r, "entityID"), limit)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]any{
		"recommendations": recommendations,
		"count":           len(recommendations),
	})
}

// CheckPrerequisitesRequest is the body for POST /courses/{entityID}/prerequisites/check.
type CheckPrerequisitesRequest struct {
	StudentID          string   `json:"student_id"`
	CompletedEntityIDs []string `json:"completed_entity_ids"`
}

// CheckPrerequisites handles POST /courses/{entityID}/prerequisites/check.
func (h *LearningHandler) CheckPrerequisites(w http.ResponseWriter, r *http.Request) {
	var req CheckPrerequisitesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, errors.CodeValidationFailed, "invalid request body: "+err.Error())
		return
	}

	result, err := h.prereqs.CheckPrerequisites(r.Context(), chi.URLParam(r, "entityID"), req.StudentID, req.CompletedEntityIDs)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// ValidateSequenceRequest is the body for POST /courses/sequence/validate.
type ValidateSequenceRequest struct {
	Sequence []string `json:"sequence" validate:"required,min=1"`
}

// ValidateSequence handles POST /courses/sequence/validate.
func (h *LearningHandler) ValidateSequence(w http.ResponseWriter, r *http.Request) {
	var req ValidateSequenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, errors.CodeValidationFailed, "invalid request body: "+err.Error())
		return
	}
	if err := validateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, errors.CodeValidationFailed, err.Error())
		return
	}

	result, err := h.prereqs.ValidateCourseSequence(r.Context(), req.Sequence)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}
