// Package mcp exposes the medication safety engine as MCP tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/medsafe-mcp-server/internal/audit"
	"github.com/medsafe-mcp-server/internal/domain"
	"github.com/medsafe-mcp-server/internal/knowledge"
)

// TablesSource exposes the rule tables that new requests will be served from.
type TablesSource interface {
	Tables() *knowledge.Tables
}

// Server is the MCP tool server.
type Server struct {
	config    domain.MCPConfig
	mcpServer *mcp.Server
	assessor  domain.Assessor
	tables    TablesSource
	audit     audit.Store
	limiter   *rate.Limiter
	logger    *logrus.Logger
	toolNames []string
}

// ServerOption is a functional option for Server.
type ServerOption func(*Server) error

// WithAuditStore records every completed assessment and enables the
// recent_assessments tool.
func WithAuditStore(store audit.Store) ServerOption {
	return func(s *Server) error {
		if store == nil {
			return errors.New("audit store must not be nil")
		}
		s.audit = store
		return nil
	}
}

// WithLimiter replaces the limiter built from the configuration.
func WithLimiter(l *rate.Limiter) ServerOption {
	return func(s *Server) error {
		s.limiter = l
		return nil
	}
}

// NewServer creates a new MCP server instance and registers its tools.
func NewServer(cfg domain.MCPConfig, assessor domain.Assessor, tables TablesSource, logger *logrus.Logger, opts ...ServerOption) (*Server, error) {
	if assessor == nil {
		return nil, errors.New("assessor is required")
	}
	if tables == nil {
		return nil, errors.New("rule tables source is required")
	}
	if cfg.RequestsPerSecond <= 0 || cfg.Burst <= 0 {
		return nil, fmt.Errorf("invalid rate limit: %v rps, burst %d", cfg.RequestsPerSecond, cfg.Burst)
	}

	s := &Server{
		config:   cfg,
		assessor: assessor,
		tables:   tables,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger:   logger,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	s.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}, nil)
	s.registerTools()

	s.logger.WithFields(logrus.Fields{
		"tool_count": len(s.toolNames),
		"audit":      s.audit != nil,
	}).Info("MCP server initialized")
	return s, nil
}

// ToolNames lists the registered tools in registration order.
func (s *Server) ToolNames() []string {
	return append([]string(nil), s.toolNames...)
}

// Run serves over stdio until the client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.WithFields(logrus.Fields{
		"server":    s.config.ServerName,
		"version":   s.config.ServerVersion,
		"transport": s.config.Transport,
	}).Info("Starting medication safety MCP server")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP server stopped: %w", err)
	}
	s.logger.Info("MCP server stopped")
	return nil
}

// toolFunc is the body of a tool. The returned value is rendered as JSON.
type toolFunc[In any] func(ctx context.Context, requestID string, in In) (any, error)

// addTool registers fn under name, wrapped with request IDs, rate limiting,
// logging and error conversion.
func addTool[In any](s *Server, name, description string, fn toolFunc[In]) {
	mcp.AddTool(s.mcpServer, &mcp.Tool{Name: name, Description: description}, wrap(s, name, fn))
	s.toolNames = append(s.toolNames, name)
	s.logger.WithField("tool_name", name).Debug("Registered MCP tool")
}

func wrap[In any](s *Server, name string, fn toolFunc[In]) func(context.Context, *mcp.CallToolRequest, In) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in In) (*mcp.CallToolResult, any, error) {
		requestID := uuid.NewString()
		entry := s.logger.WithFields(logrus.Fields{
			"tool":       name,
			"request_id": requestID,
		})

		if !s.limiter.Allow() {
			entry.Warn("Tool call rejected by rate limiter")
			return errorResult(domain.NewToolError(domain.CodeRateLimit,
				"rate limit exceeded, retry later", "", requestID)), nil, nil
		}

		start := time.Now()
		out, err := fn(ctx, requestID, in)
		entry = entry.WithField("duration_ms", time.Since(start).Milliseconds())
		if err != nil {
			toolErr := toToolError(err, requestID)
			entry.WithError(err).WithField("code", toolErr.Code).Warn("Tool call failed")
			return errorResult(toolErr), nil, nil
		}

		result, err := jsonResult(out)
		if err != nil {
			entry.WithError(err).Error("Failed to encode tool result")
			return errorResult(domain.NewToolError(domain.CodeInternalError,
				"failed to encode result", err.Error(), requestID)), nil, nil
		}
		entry.Info("Tool call completed")
		return result, nil, nil
	}
}

func toToolError(err error, requestID string) *domain.ToolError {
	var te *domain.ToolError
	if errors.As(err, &te) {
		if te.RequestID == "" {
			te.RequestID = requestID
		}
		return te
	}
	code := domain.ToolErrorCode(err)
	message := err.Error()
	if code == domain.CodeInternalError {
		message = "internal error"
	}
	return domain.NewToolError(code, message, "", requestID)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil
}

func errorResult(te *domain.ToolError) *mcp.CallToolResult {
	data, err := json.Marshal(te)
	if err != nil {
		data = []byte(te.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		IsError: true,
	}
}
