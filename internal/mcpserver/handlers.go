package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/agrifair/agriwizard/internal/i18n"
	"github.com/agrifair/agriwizard/internal/wizard"
	"github.com/mark3labs/mcp-go/mcp"
)

// session resolves the session_id argument. A non-nil result is the error
// message to return to the caller.
func (s *Server) session(request mcp.CallToolRequest) (*wizard.Session, *mcp.CallToolResult) {
	id, ok := request.GetArguments()["session_id"].(string)
	if !ok || strings.TrimSpace(id) == "" {
		return nil, mcp.NewToolResultText("error: missing or empty 'session_id' parameter")
	}
	sess, err := s.registry.Get(id)
	if err != nil {
		return nil, mcp.NewToolResultText(fmt.Sprintf("error: session %s not found", id))
	}
	return sess, nil
}

// viewResult renders a snapshot as indented JSON.
func viewResult(snap wizard.Snapshot) *mcp.CallToolResult {
	out, err := json.MarshalIndent(snap.View(), "", "  ")
	if err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("error: failed to marshal state: %v", err))
	}
	return mcp.NewToolResultText(string(out))
}

// errorResult explains a rejected transition in terms a caller can act on.
func errorResult(err error) *mcp.CallToolResult {
	var inc *wizard.IncompleteError
	switch {
	case errors.As(err, &inc):
		names := make([]string, len(inc.Fields))
		for i, f := range inc.Fields {
			names[i] = string(f)
		}
		return mcp.NewToolResultText("error: required fields are empty: " + strings.Join(names, ", "))
	case errors.Is(err, wizard.ErrBusy):
		return mcp.NewToolResultText("error: an analysis is already running for this session")
	case errors.Is(err, wizard.ErrClosed):
		return mcp.NewToolResultText("error: session has ended")
	}
	return mcp.NewToolResultText(fmt.Sprintf("error: %v", err))
}

// handleStart creates a session.
func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var opts []wizard.Option
	if raw, ok := request.GetArguments()["language"].(string); ok && raw != "" {
		lang, err := i18n.ParseLanguage(raw)
		if err != nil {
			return mcp.NewToolResultText(fmt.Sprintf("error: %v", err)), nil
		}
		opts = append(opts, wizard.WithLanguage(lang))
	}

	sess := s.registry.Create(opts...)
	return viewResult(sess.Snapshot()), nil
}

// handleState returns the current snapshot.
func (s *Server) handleState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errRes := s.session(request)
	if errRes != nil {
		return errRes, nil
	}
	return viewResult(sess.Snapshot()), nil
}

// handleSetField edits one field of the visible step.
func (s *Server) handleSetField(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errRes := s.session(request)
	if errRes != nil {
		return errRes, nil
	}

	args := request.GetArguments()
	rawField, ok := args["field"].(string)
	if !ok || rawField == "" {
		return mcp.NewToolResultText("error: missing or empty 'field' parameter"), nil
	}
	field, err := wizard.ParseField(rawField)
	if err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("error: %v", err)), nil
	}

	var value any
	switch v := args["value"].(type) {
	case string:
		value = v
	case float64:
		// some clients send numbers despite the string schema
		value = v
	default:
		return mcp.NewToolResultText("error: missing or invalid 'value' parameter"), nil
	}

	snap, err := sess.SetField(field, value)
	if err != nil {
		return errorResult(err), nil
	}
	return viewResult(snap), nil
}

// handleAdvance moves forward; on step 3 it waits for the submission.
func (s *Server) handleAdvance(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errRes := s.session(request)
	if errRes != nil {
		return errRes, nil
	}

	var (
		snap wizard.Snapshot
		err  error
	)
	if sess.Snapshot().Step == wizard.StepNutrients {
		snap, err = sess.Submit(ctx)
	} else {
		snap, err = sess.Advance(ctx)
	}
	if err != nil {
		return errorResult(err), nil
	}
	return viewResult(snap), nil
}

// handleRetreat moves back one step.
func (s *Server) handleRetreat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errRes := s.session(request)
	if errRes != nil {
		return errRes, nil
	}
	snap, err := sess.Retreat()
	if err != nil {
		return errorResult(err), nil
	}
	return viewResult(snap), nil
}

// handleRestart returns to step 1 after a result or failure.
func (s *Server) handleRestart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errRes := s.session(request)
	if errRes != nil {
		return errRes, nil
	}
	snap, err := sess.Restart()
	if err != nil {
		return errorResult(err), nil
	}
	return viewResult(snap), nil
}

// handleToggleLanguage flips between English and Hindi.
func (s *Server) handleToggleLanguage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errRes := s.session(request)
	if errRes != nil {
		return errRes, nil
	}
	snap, err := sess.ToggleLanguage()
	if err != nil {
		return errorResult(err), nil
	}
	return viewResult(snap), nil
}
