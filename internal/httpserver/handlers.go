package httpserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/uelogd/uelogd/internal/model"
)

// parseFilter builds a LogFilter from query parameters. Numeric parameters
// that fail to parse are reported, not silently dropped.
func parseFilter(c *gin.Context) (model.LogFilter, error) {
	f := model.LogFilter{
		Source:     c.Query("source"),
		Category:   c.Query("category"),
		SessionID:  c.Query("session_id"),
		InstanceID: c.Query("instance_id"),
	}

	if v := c.Query("min_verbosity"); v != "" {
		f.MinVerbosity = model.ParseVerbosity(v)
	}
	if v := c.Query("since"); v != "" {
		ts, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return f, fmt.Errorf("invalid since: %q", v)
		}
		f.Since = &ts
	}
	if v := c.Query("until"); v != "" {
		ts, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return f, fmt.Errorf("invalid until: %q", v)
		}
		f.Until = &ts
	}
	if v := c.Query("all_sessions"); v != "" {
		all, err := strconv.ParseBool(v)
		if err != nil {
			return f, fmt.Errorf("invalid all_sessions: %q", v)
		}
		f.AllSessions = all
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, fmt.Errorf("invalid limit: %q", v)
		}
		f.Limit = n
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, fmt.Errorf("invalid offset: %q", v)
		}
		f.Offset = n
	}
	return f, nil
}

// parseSince reads the optional since parameter shared by stats.
func parseSince(c *gin.Context) (*float64, error) {
	v := c.Query("since")
	if v == "" {
		return nil, nil
	}
	ts, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid since: %q", v)
	}
	return &ts, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	count, err := s.store.Count()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read health metrics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"uptime":    time.Since(s.startTime).String(),
		"log_count": count,
	})
}

func (s *Server) handleLogs(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entries, err := s.store.Query(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if entries == nil {
		entries = []model.LogEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"logs": entries, "count": len(entries)})
}

func (s *Server) handleSearch(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing q parameter"})
		return
	}
	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entries, err := s.store.Search(q, filter)
	if err != nil {
		// Parse failures are caller mistakes, not server faults.
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if entries == nil {
		entries = []model.LogEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"logs": entries, "count": len(entries), "query": q})
}

func (s *Server) handleStats(c *gin.Context) {
	since, err := parseSince(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stats, err := s.store.Stats(c.Query("source"), since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleCategories(c *gin.Context) {
	categories, err := s.store.Categories(c.Query("source"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if categories == nil {
		categories = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (s *Server) handleSessions(c *gin.Context) {
	sessions, err := s.store.Sessions(c.Query("source"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if sessions == nil {
		sessions = []model.SessionInfo{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (s *Server) handleClear(c *gin.Context) {
	var req struct {
		Source string   `json:"source"`
		Before *float64 `json:"before"`
	}
	// An empty body means clear everything.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	deleted, err := s.store.Clear(req.Source, req.Before)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (s *Server) handleListSources(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sources": s.registry.ListSources()})
}

func (s *Server) handleAddSource(c *gin.Context) {
	var req struct {
		Path string `json:"path" binding:"required"`
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing path field"})
		return
	}

	id := s.registry.AddFileTailer(req.Path, req.Name)
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to start tailer for " + req.Path})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (s *Server) handleRemoveSource(c *gin.Context) {
	id := c.Param("id")
	if !s.registry.RemoveSource(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown source " + id})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": id})
}
