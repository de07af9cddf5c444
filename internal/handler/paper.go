package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yourorg/arxivmcp/internal/repository"
	"github.com/yourorg/arxivmcp/pkg/model"
)

// SearchPapers handles POST /api/search: run an arXiv search and store the
// results
func (h *Handler) SearchPapers(w http.ResponseWriter, r *http.Request) {
	var req model.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("search request decode error", "error", err)
		h.error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp, err := h.research.Search(r.Context(), &req)
	if err != nil {
		if isValidationError(err) {
			h.error(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("search failed",
			"query", req.Query,
			"error", err,
		)
		h.error(w, http.StatusBadGateway, "search failed")
		return
	}

	h.logger.Info("search request",
		"remote_addr", r.RemoteAddr,
		"query", req.Query,
		"found", resp.TotalFound,
	)

	h.json(w, http.StatusOK, resp)
}

// GetPaper handles GET /api/papers/{id}: look up a stored paper by its
// short arXiv ID
func (h *Handler) GetPaper(w http.ResponseWriter, r *http.Request) {
	paperID := r.PathValue("id")
	if err := model.ValidatePaperID(paperID); err != nil {
		h.error(w, http.StatusBadRequest, err.Error())
		return
	}

	info, err := h.research.ExtractInfo(r.Context(), paperID)
	if err != nil {
		if errors.Is(err, repository.ErrPaperNotFound) {
			h.error(w, http.StatusNotFound, "paper not found: "+paperID)
			return
		}
		h.logger.Error("paper lookup failed",
			"paper_id", paperID,
			"error", err,
		)
		h.error(w, http.StatusInternalServerError, "failed to look up paper")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(info)); err != nil {
		h.logger.Error("paper response write error", "error", err)
	}
}

// ListTopics handles GET /api/topics: list stored topics with paper counts
func (h *Handler) ListTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.research.ListTopics(r.Context())
	if err != nil {
		h.logger.Error("topic listing failed", "error", err)
		h.error(w, http.StatusInternalServerError, "failed to list topics")
		return
	}

	h.json(w, http.StatusOK, model.TopicListResponse{Topics: topics})
}

// GetTopicPapers handles GET /api/topics/{topic}/papers: list the papers
// stored under one topic
func (h *Handler) GetTopicPapers(w http.ResponseWriter, r *http.Request) {
	topic := r.PathValue("topic")

	papers, err := h.research.TopicPapers(r.Context(), topic)
	if err != nil {
		if errors.Is(err, repository.ErrTopicNotFound) {
			h.error(w, http.StatusNotFound, "topic not found: "+topic)
			return
		}
		h.logger.Error("topic papers lookup failed",
			"topic", topic,
			"error", err,
		)
		h.error(w, http.StatusInternalServerError, "failed to list topic papers")
		return
	}

	h.json(w, http.StatusOK, model.TopicPapersResponse{
		Topic:  topic,
		Count:  len(papers),
		Papers: papers,
	})
}

// isValidationError reports whether a search failure was caused by bad
// request parameters rather than an upstream or storage problem
func isValidationError(err error) bool {
	for _, v := range []error{
		model.ErrEmptyQuery,
		model.ErrQueryTooLong,
		model.ErrInvalidMaxResults,
		model.ErrInvalidDate,
		model.ErrInvalidDateRange,
	} {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}
