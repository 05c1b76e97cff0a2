package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"actioncore/api/middleware"
	"actioncore/internal/action"
	"actioncore/internal/condition"
	"actioncore/internal/config"
	"actioncore/internal/database"
	"actioncore/internal/elasticsearch"
	"actioncore/internal/expression"
	"actioncore/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	router   *gin.Engine
	actions  *action.Service
	es       *elasticsearch.Client
	auditDir string
	config   *config.Config
	limiter  *middleware.IPRateLimiter
	http     *http.Server
}

// NewServer builds the HTTP surface. esClient may be nil; evaluation search then reads the
// JSONL audit files under cfg.Logger.AuditDir.
func NewServer(actions *action.Service, esClient *elasticsearch.Client, cfg *config.Config) *Server {
	router := gin.Default()

	// Add timeout middleware
	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	server := &Server{
		router:   router,
		actions:  actions,
		es:       esClient,
		auditDir: cfg.Logger.AuditDir,
		config:   cfg,
		http:     &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second},
	}
	if cfg.RateLimit.Enabled {
		server.limiter = middleware.NewIPRateLimiter(middleware.FromConfig(cfg.RateLimit))
	}

	server.setupRoutes()

	return server
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api/v1")
	if s.limiter != nil {
		api.Use(s.limiter.Middleware())
	}

	{
		// Condition metadata
		api.POST("/condition/operators", s.conditionOperators)
		api.POST("/condition/types", s.conditionTypes)
		api.POST("/condition/describe", s.describeConditions)

		// Actions
		api.POST("/action/list", s.listActions)
		api.POST("/action/evaluate", s.evaluateEvent)
		api.POST("/action/escalation", s.actionEscalation)

		// Trigger expressions
		api.POST("/expression/tree", s.expressionTree)
		api.POST("/expression/edit", s.expressionEdit)

		// Evaluation audit trail
		api.POST("/audit/search", s.searchAudit)

		// System Configuration
		api.GET("/config", s.getConfig)
	}

	s.router.GET("/health", s.healthCheck)
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"elasticsearch": s.es != nil,
	})
}

type Option struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

type OperatorsRequest struct {
	Type *condition.ConditionType `json:"conditiontype" binding:"required"`
}

func (s *Server) conditionOperators(c *gin.Context) {
	var req OperatorsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	loc := s.actions.Localizer()
	operators := make([]Option, 0)
	for _, op := range condition.OperatorsFor(*req.Type) {
		operators = append(operators, Option{Value: int(op), Label: condition.OperatorLabel(loc, op)})
	}

	c.JSON(http.StatusOK, gin.H{
		"conditiontype": *req.Type,
		"operators":     operators,
	})
}

type TypesRequest struct {
	EventSource condition.EventSource `json:"eventsource"`
}

func (s *Server) conditionTypes(c *gin.Context) {
	var req TypesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	loc := s.actions.Localizer()
	types := make([]Option, 0)
	for _, t := range condition.ConditionTypesFor(req.EventSource) {
		types = append(types, Option{Value: int(t), Label: condition.TypeLabel(loc, t)})
	}

	c.JSON(http.StatusOK, gin.H{
		"eventsource": req.EventSource,
		"types":       types,
	})
}

type DescribeRequest struct {
	Conditions []condition.Condition `json:"conditions" binding:"required"`
}

func (s *Server) describeConditions(c *gin.Context) {
	var req DescribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	views, err := s.actions.DescribeConditions(c.Request.Context(), req.Conditions)
	if err != nil {
		logger.Error("Failed to describe conditions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"conditions": views})
}

type ListActionsRequest struct {
	EventSource condition.EventSource `json:"eventsource"`
}

func (s *Server) listActions(c *gin.Context) {
	var req ListActionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	views, err := s.actions.ListActions(c.Request.Context(), req.EventSource)
	if err != nil {
		logger.Error("Failed to list actions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":   len(views),
		"actions": views,
	})
}

func (s *Server) evaluateEvent(c *gin.Context) {
	var ev condition.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.actions.Evaluate(c.Request.Context(), ev)
	if err != nil {
		logger.Error("Failed to evaluate event", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

type EscalationRequest struct {
	ActionID uint64 `json:"actionid" binding:"required"`
}

func (s *Server) actionEscalation(c *gin.Context) {
	var req EscalationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	delays, err := s.actions.Escalations(c.Request.Context(), req.ActionID)
	if errors.Is(err, database.ErrActionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"actionid": req.ActionID,
		"delays":   delays,
	})
}

type ExpressionTreeRequest struct {
	Expression string `json:"expression"`
}

// parseErrorResponse reports a malformed expression with its position.
func parseErrorResponse(c *gin.Context, err error) {
	var perr *expression.ParseError
	if errors.As(err, &perr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": perr.Error(), "position": perr.Pos})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (s *Server) expressionTree(c *gin.Context) {
	var req ExpressionTreeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	parsed, err := expression.Parse(req.Expression)
	if err != nil {
		parseErrorResponse(c, err)
		return
	}

	tree := expression.BuildTree(parsed)
	c.JSON(http.StatusOK, gin.H{
		"expression": parsed.Expression,
		"tree":       tree.Root,
		"outline":    tree.Outline(),
	})
}

type ExpressionEditRequest struct {
	Expression string                `json:"expression" binding:"required"`
	ID         string                `json:"id" binding:"required"`
	Action     expression.EditAction `json:"action" binding:"required"`
	Text       string                `json:"text"`
}

func (s *Server) expressionEdit(c *gin.Context) {
	var req ExpressionEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, found, err := expression.Edit(req.Expression, req.ID, req.Action, req.Text)
	if err != nil {
		parseErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"expression": result,
		"found":      found,
	})
}

type AuditSearchRequest struct {
	ActionID    *uint64 `json:"actionid,omitempty"`
	EventSource *int    `json:"eventsource,omitempty"`
	Matched     *bool   `json:"matched,omitempty"`
	StartTime   *int64  `json:"start_time,omitempty"` // Unix timestamp
	EndTime     *int64  `json:"end_time,omitempty"`   // Unix timestamp
	Size        int     `json:"size,omitempty"`
	From        int     `json:"from,omitempty"`
	QueryText   string  `json:"query_text,omitempty"`
}

func unixPtr(sec *int64) *time.Time {
	if sec == nil {
		return nil
	}
	t := time.Unix(*sec, 0)
	return &t
}

func (s *Server) searchAudit(c *gin.Context) {
	var req AuditSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// If ES is enabled, use ES; otherwise use file-based logs
	if s.es != nil {
		result, err := s.es.SearchEvaluations(c.Request.Context(), &elasticsearch.SearchQuery{
			ActionID:    req.ActionID,
			EventSource: req.EventSource,
			Matched:     req.Matched,
			StartTime:   unixPtr(req.StartTime),
			EndTime:     unixPtr(req.EndTime),
			QueryText:   req.QueryText,
			Size:        req.Size,
			From:        req.From,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"total": result.Total,
			"hits":  result.Hits,
		})
		return
	}

	if s.auditDir == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "evaluation audit is not enabled"})
		return
	}

	result, err := logger.QueryEvaluationLogs(s.auditDir, &logger.LogQueryRequest{
		ActionID:  req.ActionID,
		Matched:   req.Matched,
		StartTime: unixPtr(req.StartTime),
		EndTime:   unixPtr(req.EndTime),
		Limit:     req.Size,
		Offset:    req.From,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total": result.Total,
		"hits":  result.Logs,
	})
}

// Router exposes the handler for tests and custom listeners.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run serves until Shutdown is called.
func (s *Server) Run(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the listener and the rate limiter cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return s.http.Shutdown(ctx)
}
