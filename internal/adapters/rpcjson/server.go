package rpcjson

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/LeviathanIsI/barkbase-sub006/internal/application"
	"github.com/LeviathanIsI/barkbase-sub006/internal/domain"
)

type Server struct {
	engine   *application.Engine
	listener net.Listener
	path     string
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      any             `json:"id"`
}

type response struct {
	JSONRPC string    `json:"jsonrpc"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
	ID      any       `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func Start(path string, engine *application.Engine) (*Server, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("rpc socket path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		_ = os.Remove(path)
		return nil, err
	}

	s := &Server{engine: engine, listener: ln, path: path}
	go s.serve()
	return s, nil
}

func (s *Server) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *Server) Close() error {
	err := s.listener.Close()
	_ = os.Remove(s.path)
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	for {
		var req request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			_ = enc.Encode(response{JSONRPC: "2.0", Error: &rpcError{Code: -32700, Message: "parse error"}, ID: nil})
			return
		}

		resp := s.dispatch(context.Background(), req)
		if err := enc.Encode(resp); err != nil {
			return
		}
	}
}

// callerParams rides along on every method: the ops CLI acts on behalf of
// an already-authenticated tenant and actor.
type callerParams struct {
	Tenant uuid.UUID `json:"tenant"`
	Actor  uuid.UUID `json:"actor"`
}

func (s *Server) dispatch(ctx context.Context, req request) response {
	if req.JSONRPC != "2.0" || strings.TrimSpace(req.Method) == "" {
		return response{JSONRPC: "2.0", Error: &rpcError{Code: -32600, Message: "invalid request"}, ID: req.ID}
	}

	switch req.Method {
	case "deps.discover":
		var p struct {
			callerParams
			PropertyID *uuid.UUID `json:"property_id"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		count, err := s.engine.DiscoverDependencies(ctx, p.Tenant, p.PropertyID)
		if err != nil {
			return appError(req.ID, err)
		}
		return response{JSONRPC: "2.0", Result: map[string]any{"edges_written": count}, ID: req.ID}

	case "graph.build":
		var p struct {
			callerParams
			PropertyID uuid.UUID `json:"property_id"`
			Direction  string    `json:"direction"`
			Depth      int       `json:"depth"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		direction := domain.Direction(p.Direction)
		if direction == "" {
			direction = domain.DirectionDownstream
		}
		graph, err := s.engine.BuildGraph(ctx, p.Tenant, p.PropertyID, direction, p.Depth)
		if err != nil {
			return appError(req.ID, err)
		}
		return response{JSONRPC: "2.0", Result: graph, ID: req.ID}

	case "graph.cycles":
		var p callerParams
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		cycles, err := s.engine.DetectCycles(ctx, p.Tenant)
		if err != nil {
			return appError(req.ID, err)
		}
		return response{JSONRPC: "2.0", Result: map[string]any{"cycles": cycles}, ID: req.ID}

	case "impact.analyze":
		var p struct {
			callerParams
			PropertyID       uuid.UUID `json:"property_id"`
			ModificationType string    `json:"modification_type"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		imp, err := s.engine.AnalyzeImpact(ctx, p.Tenant, p.PropertyID, domain.ModificationType(p.ModificationType))
		if err != nil {
			return appError(req.ID, err)
		}
		return response{JSONRPC: "2.0", Result: imp, ID: req.ID}

	case "audit.list":
		var p struct {
			callerParams
			PropertyID uuid.UUID `json:"property_id"`
			Limit      int       `json:"limit"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		audits, err := s.engine.ChangeHistory(ctx, p.Tenant, p.PropertyID, p.Limit)
		if err != nil {
			return appError(req.ID, err)
		}
		return response{JSONRPC: "2.0", Result: map[string]any{"audits": audits}, ID: req.ID}

	case "cascade.execute":
		var p struct {
			callerParams
			PropertyID uuid.UUID             `json:"property_id"`
			Operation  string                `json:"operation"`
			Strategy   string                `json:"strategy"`
			Options    domain.CascadeOptions `json:"options"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		result, err := s.engine.ExecuteCascade(ctx, p.Tenant, p.Actor, p.PropertyID,
			domain.CascadeStrategy(p.Strategy), domain.CascadeOperation(p.Operation), p.Options)
		if err != nil {
			return appError(req.ID, err)
		}
		return response{JSONRPC: "2.0", Result: result, ID: req.ID}

	case "lifecycle.softDelete":
		var p struct {
			callerParams
			PropertyID uuid.UUID `json:"property_id"`
			Reason     string    `json:"reason"`
			Confirmed  bool      `json:"confirmed"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		result, err := s.engine.SoftDelete(ctx, p.Tenant, p.Actor, p.PropertyID, p.Reason, p.Confirmed)
		if err != nil {
			return appError(req.ID, err)
		}
		return response{JSONRPC: "2.0", Result: result, ID: req.ID}

	case "lifecycle.restore":
		var p struct {
			callerParams
			PropertyID uuid.UUID `json:"property_id"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		result, err := s.engine.RestoreSoftDeleted(ctx, p.Tenant, p.Actor, p.PropertyID)
		if err != nil {
			return appError(req.ID, err)
		}
		return response{JSONRPC: "2.0", Result: result, ID: req.ID}

	case "lifecycle.requestRestore":
		var p struct {
			callerParams
			PropertyID uuid.UUID `json:"property_id"`
			Reason     string    `json:"reason"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.engine.RequestArchiveRestoration(ctx, p.Tenant, p.Actor, p.PropertyID, p.Reason)
		if err != nil {
			return appError(req.ID, err)
		}
		return response{JSONRPC: "2.0", Result: out, ID: req.ID}

	case "lifecycle.approveRestore":
		var p struct {
			callerParams
			RequestID uint `json:"request_id"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		result, err := s.engine.ApproveArchiveRestoration(ctx, p.Tenant, p.Actor, p.RequestID)
		if err != nil {
			return appError(req.ID, err)
		}
		return response{JSONRPC: "2.0", Result: result, ID: req.ID}

	case "lifecycle.rejectRestore":
		var p struct {
			callerParams
			RequestID uint   `json:"request_id"`
			Reason    string `json:"reason"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.engine.RejectArchiveRestoration(ctx, p.Tenant, p.Actor, p.RequestID, p.Reason)
		if err != nil {
			return appError(req.ID, err)
		}
		return response{JSONRPC: "2.0", Result: out, ID: req.ID}

	case "lifecycle.sweep":
		report, err := s.engine.ArchiveSweep(ctx)
		if err != nil {
			return appError(req.ID, err)
		}
		return response{JSONRPC: "2.0", Result: report, ID: req.ID}

	default:
		return response{JSONRPC: "2.0", Error: &rpcError{Code: -32601, Message: "method not found"}, ID: req.ID}
	}
}

func decodeParams(raw json.RawMessage, dst any) bool {
	if len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func invalidParams(id any) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: -32602, Message: "invalid params"}, ID: id}
}

func appError(id any, err error) response {
	var (
		blocked      *domain.BlockedError
		confirmation *domain.ConfirmationRequiredError
		validation   *domain.ValidationError
	)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return response{JSONRPC: "2.0", Error: &rpcError{Code: 404, Message: "not found"}, ID: id}
	case errors.Is(err, domain.ErrForbidden):
		return response{JSONRPC: "2.0", Error: &rpcError{Code: 403, Message: "operation is not allowed for this property"}, ID: id}
	case errors.As(err, &blocked):
		return response{JSONRPC: "2.0", Error: &rpcError{Code: 400, Message: "blocked", Data: blocked.Blockers}, ID: id}
	case errors.As(err, &confirmation):
		return response{JSONRPC: "2.0", Error: &rpcError{Code: 409, Message: "confirmation required", Data: confirmation.Warnings}, ID: id}
	case errors.As(err, &validation):
		return response{JSONRPC: "2.0", Error: &rpcError{Code: 400, Message: validation.Message}, ID: id}
	default:
		return response{JSONRPC: "2.0", Error: &rpcError{Code: -32603, Message: err.Error()}, ID: id}
	}
}
