package web

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/camuig/whale-dashboard/internal/render"
	"github.com/camuig/whale-dashboard/internal/sorting"
	"github.com/camuig/whale-dashboard/internal/view"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
	historyWindow       = 24 * time.Hour
)

type DashboardData struct {
	Views  []view.ViewModel
	Active view.ViewModel
	// PollSeconds is non-zero while the active view is loading.
	PollSeconds int
}

type refreshRequest struct {
	Input  string `form:"input" json:"input"`
	Token  string `form:"token" json:"token"`
	Wallet string `form:"wallet" json:"wallet"`
}

func (r refreshRequest) value() string {
	for _, v := range []string{r.Input, r.Token, r.Wallet} {
		if v != "" {
			return v
		}
	}
	return ""
}

type sortResponse struct {
	View      view.Name        `json:"view"`
	Table     *render.Table    `json:"table"`
	Column    string           `json:"column"`
	Direction render.Direction `json:"direction"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleDashboard(c *gin.Context) {
	d := dashboardFrom(c)

	name := view.Positions
	if tab := c.Query("tab"); tab != "" {
		name = view.Name(tab)
	}

	active, err := d.Show(s.baseCtx, name)
	if err != nil {
		s.fail(c, err)
		return
	}

	data := DashboardData{Views: d.Snapshots(), Active: active}
	if active.ShowLoading() {
		data.PollSeconds = s.config.Web.PollSeconds
	}

	c.HTML(http.StatusOK, "dashboard.html", data)
}

func (s *Server) handleRefresh(c *gin.Context) {
	d := dashboardFrom(c)
	name := view.Name(c.Param("view"))

	req, ok := s.bindRefresh(c)
	if !ok {
		return
	}
	if _, err := d.Start(s.baseCtx, name, req.value()); err != nil {
		s.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, tabURL(name))
}

func (s *Server) handleSort(c *gin.Context) {
	d := dashboardFrom(c)
	name := view.Name(c.Param("view"))

	if _, _, err := d.Sort(name, c.Param("table"), c.PostForm("column")); err != nil {
		s.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, tabURL(name))
}

func (s *Server) apiSnapshot(c *gin.Context) {
	vm, err := dashboardFrom(c).Snapshot(view.Name(c.Param("view")))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, vm)
}

func (s *Server) apiRefresh(c *gin.Context) {
	req, ok := s.bindRefresh(c)
	if !ok {
		return
	}
	vm, err := dashboardFrom(c).Refresh(c.Request.Context(), view.Name(c.Param("view")), req.value())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, vm)
}

func (s *Server) apiSort(c *gin.Context) {
	name := view.Name(c.Param("view"))
	column := c.Query("column")
	if column == "" {
		column = c.PostForm("column")
	}

	tbl, dir, err := dashboardFrom(c).Sort(name, c.Param("table"), column)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sortResponse{View: name, Table: tbl, Column: column, Direction: dir})
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "query history is disabled"})
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	name := c.Query("view")
	entries, err := s.history.RecentQueryLogs(name, limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read query history"})
		return
	}
	resp := gin.H{"entries": entries}

	// count_24h only makes sense for a single view
	if name != "" {
		n, err := s.history.CountSince(name, time.Now().Add(-historyWindow))
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count query history"})
			return
		}
		resp["count_24h"] = n
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) bindRefresh(c *gin.Context) (refreshRequest, bool) {
	var req refreshRequest
	if err := c.ShouldBind(&req); err != nil && !errors.Is(err, io.EOF) {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return req, false
	}
	return req, true
}

// fail maps lookup errors to 404, sort argument errors to 400 and sorting a
// view that has no results to 409.
func (s *Server) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, view.ErrUnknownView), errors.Is(err, view.ErrUnknownTable):
		status = http.StatusNotFound
	case errors.Is(err, sorting.ErrUnknownColumn):
		status = http.StatusBadRequest
	case errors.Is(err, view.ErrNoResults):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func tabURL(name view.Name) string {
	return "/?tab=" + url.QueryEscape(string(name))
}
