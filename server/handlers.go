// Copyright 2025 Alan Matykiewicz
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to use,
// copy, modify, merge, publish, distribute, sublicense, and/or sell copies of the
// Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES
// OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT
// HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.

package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alan-mat/cognote/internal/api"
	"github.com/alan-mat/cognote/internal/function"
	"github.com/alan-mat/cognote/internal/tasks"
	"github.com/alan-mat/cognote/internal/transport"
	"github.com/alan-mat/cognote/internal/vector"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error string `json:"error"`
}

func abortWithError(c *gin.Context, status int, err error) {
	c.Error(err)
	c.AbortWithStatusJSON(status, errorResponse{Error: err.Error()})
}

func unavailable(c *gin.Context, what string) {
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorResponse{Error: what + " is not configured"})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleFunction(c *gin.Context) {
	if s.deps.Functions == nil {
		unavailable(c, "function boundary")
		return
	}

	var req function.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	resp, err := s.deps.Functions.Handle(c.Request.Context(), req)
	if err != nil {
		status := function.StatusCode(err)
		if status >= http.StatusInternalServerError {
			slog.Error("function request failed", "task", req.Task, "provider", req.Provider, "err", err)
		}
		c.Error(err)
		c.AbortWithStatusJSON(status, function.ErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, resp)
}

type similarityRequest struct {
	Query        string   `json:"query"`
	SourceID     string   `json:"sourceId"`
	ProjectScope string   `json:"projectScope"`
	Limit        uint     `json:"limit"`
	Threshold    *float64 `json:"threshold"`
}

func (r similarityRequest) threshold() float64 {
	if r.Threshold == nil {
		return vector.DefaultThreshold
	}
	return *r.Threshold
}

func (s *Server) handleSearch(c *gin.Context) {
	s.similarity(c, func(req similarityRequest) *vector.ResultSet {
		return s.deps.Similarity.SearchSet(req.Query, req.ProjectScope, req.Limit, req.threshold())
	})
}

func (s *Server) handleSimilar(c *gin.Context) {
	s.similarity(c, func(req similarityRequest) *vector.ResultSet {
		return s.deps.Similarity.SimilarSet(req.SourceID, req.ProjectScope, req.Limit, req.threshold())
	})
}

func (s *Server) similarity(c *gin.Context, set func(similarityRequest) *vector.ResultSet) {
	if s.deps.Similarity == nil {
		unavailable(c, "similarity search")
		return
	}

	var req similarityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	rs := set(req)
	if err := rs.Refresh(c.Request.Context()); err != nil {
		abortWithError(c, function.StatusCode(err), err)
		return
	}

	c.JSON(http.StatusOK, rs.Accepted())
}

type batchRequest struct {
	ProjectID string            `json:"projectId"`
	Items     []tasks.EmbedItem `json:"items"`
}

func (s *Server) handleEnqueueBatch(c *gin.Context) {
	if s.deps.Dispatcher == nil {
		unavailable(c, "batch embedding")
		return
	}

	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	if len(req.Items) == 0 {
		abortWithError(c, http.StatusBadRequest, api.ErrEmptyInput)
		return
	}

	jobID, err := s.deps.Dispatcher.EnqueueEmbedBatch(c.Request.Context(), &tasks.EmbedBatchPayload{
		Scope: req.ProjectID,
		User:  c.GetHeader(SubjectHeader),
		Items: req.Items,
	})
	if err != nil {
		slog.Error("failed to enqueue embedding batch", "err", err)
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"jobId": jobID})
}

func (s *Server) handleBatchTrace(c *gin.Context) {
	if s.deps.Transport == nil {
		unavailable(c, "batch embedding")
		return
	}

	trace, err := s.deps.Transport.GetTrace(c.Request.Context(), c.Param("id"))
	if errors.Is(err, transport.ErrTraceNotFound) {
		abortWithError(c, http.StatusNotFound, err)
		return
	}
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, trace)
}

func (s *Server) handleUsage(c *gin.Context) {
	if s.deps.Stats == nil {
		unavailable(c, "usage statistics")
		return
	}

	subject := c.Param("subject")
	refresh, _ := strconv.ParseBool(c.Query("refresh"))

	get := s.deps.Stats.Get
	if refresh {
		get = s.deps.Stats.Refresh
	}

	stats, err := get(c.Request.Context(), subject)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
