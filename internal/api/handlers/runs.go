package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"eemeter/internal/api/models"
	"eemeter/internal/store"

	"github.com/gin-gonic/gin"
)

// RunHandler serves stored evaluation runs
type RunHandler struct {
	store store.Store
}

// NewRunHandler creates a new run handler
func NewRunHandler(st store.Store) *RunHandler {
	return &RunHandler{store: st}
}

// ListRuns handles GET /api/v1/runs
func (h *RunHandler) ListRuns(c *gin.Context) {
	if !h.available(c) {
		return
	}
	limit := 100
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}
	runs, err := h.store.ListRuns(c.Request.Context(), limit)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "STORE_ERROR", err)
		return
	}
	resp := models.RunsResponse{Runs: make([]models.RunInfo, 0, len(runs))}
	for _, r := range runs {
		resp.Runs = append(resp.Runs, models.RunInfo{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt, Evaluated: r.Evaluated})
	}
	c.JSON(http.StatusOK, resp)
}

// GetRun handles GET /api/v1/runs/:id
func (h *RunHandler) GetRun(c *gin.Context) {
	if !h.available(c) {
		return
	}
	run, err := h.store.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// DeleteRun handles DELETE /api/v1/runs/:id
func (h *RunHandler) DeleteRun(c *gin.Context) {
	if !h.available(c) {
		return
	}
	if err := h.store.DeleteRun(c.Request.Context(), c.Param("id")); err != nil {
		h.storeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RunHandler) available(c *gin.Context) bool {
	if h.store == nil {
		writeError(c, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", errors.New("run storage is not configured"))
		return false
	}
	return true
}

func (h *RunHandler) storeError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(c, http.StatusNotFound, "RUN_NOT_FOUND", err)
		return
	}
	writeError(c, http.StatusInternalServerError, "STORE_ERROR", err)
}
