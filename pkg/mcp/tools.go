package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/goccy/go-graphviz"
	"github.com/rendis/authflow/internal/diagram"
	"github.com/rendis/authflow/internal/engine"
	"github.com/rendis/authflow/internal/flow"
	"github.com/rendis/authflow/internal/validation"
	"github.com/rendis/authflow/pkg/schema"
)

// FlowSummary is one entry of authflow.list.
type FlowSummary struct {
	ID     string `json:"id"`
	Start  string `json:"start,omitempty"`
	States int    `json:"states"`
}

// StateInfo describes one state in authflow.describe.
type StateInfo struct {
	ID          string           `json:"id"`
	Kind        schema.StateKind `json:"kind"`
	View        string           `json:"view,omitempty"`
	Subflow     string           `json:"subflow,omitempty"`
	Transitions []TransitionInfo `json:"transitions,omitempty"`
}

// TransitionInfo describes one outgoing transition.
type TransitionInfo struct {
	On       string `json:"on"`
	Criteria string `json:"criteria"`
	To       string `json:"to"`
}

// Describe summarizes f for agents and the CLI.
func Describe(f *flow.Flow) map[string]any {
	states := make([]StateInfo, 0, f.StateCount())
	for _, s := range f.States() {
		info := StateInfo{ID: s.ID, Kind: s.Kind}
		if s.View != nil && s.View.ViewID() != nil {
			info.View = s.View.ViewID().String()
		}
		if s.Subflow != nil && s.Subflow.FlowID != nil {
			info.Subflow = s.Subflow.FlowID.String()
		}
		if s.Transitions != nil {
			for _, t := range s.Transitions.All() {
				info.Transitions = append(info.Transitions, TransitionInfo{
					On:       t.Criteria.String(),
					Criteria: t.Criteria.Kind.String(),
					To:       t.Target,
				})
			}
		}
		states = append(states, info)
	}
	return map[string]any{
		"id":     f.ID,
		"start":  f.StartStateID(),
		"states": states,
	}
}

func (s *Server) handleList(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reg := s.builder.Registry()
	flows := make([]FlowSummary, 0, reg.Len())
	for _, id := range reg.IDs() {
		f, err := reg.Get(id)
		if err != nil {
			continue
		}
		flows = append(flows, FlowSummary{ID: f.ID, Start: f.StartStateID(), States: f.StateCount()})
	}
	return marshalResult(map[string]any{"flows": flows})
}

func (s *Server) handleDescribe(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	flowID, err := req.RequireString("flow_id")
	if err != nil {
		return mcp.NewToolResultError("flow_id is required"), nil
	}
	f, err := s.builder.Registry().Get(flowID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return marshalResult(Describe(f))
}

// handleDiagram draws a flow in the requested format, optionally with the
// path of a known execution highlighted.
func (s *Server) handleDiagram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	flowID, err := req.RequireString("flow_id")
	if err != nil {
		return mcp.NewToolResultError("flow_id is required"), nil
	}
	format, err := req.RequireString("format")
	if err != nil {
		return mcp.NewToolResultError("format is required"), nil
	}
	if format != "ascii" && format != "mermaid" && format != "image" {
		return mcp.NewToolResultError("format must be ascii, mermaid, or image"), nil
	}
	f, err := s.builder.Registry().Get(flowID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	opts := diagram.Options{Registry: s.builder.Registry(), ExpandSubflows: req.GetBool("expand", false)}
	if id := req.GetString("execution_id", ""); id != "" {
		if s.executor == nil || s.history == nil {
			return mcp.NewToolResultError("execution overlays are not available on this server"), nil
		}
		x, err := s.executor.Get(id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		opts.Overlay = diagram.HistoryOverlay(flowID, s.history.Records(id), x)
	}

	model, err := diagram.Build(f, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("diagram build failed: %v", err)), nil
	}

	switch format {
	case "ascii":
		return mcp.NewToolResultText(diagram.RenderASCII(model)), nil
	case "mermaid":
		return mcp.NewToolResultText(diagram.RenderMermaid(model)), nil
	default:
		png, err := diagram.RenderImage(ctx, model, graphviz.PNG)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("image render failed: %v", err)), nil
		}
		return mcp.NewToolResultText(base64.StdEncoding.EncodeToString(png)), nil
	}
}

func (s *Server) handleResolve(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	flowID, err := req.RequireString("flow_id")
	if err != nil {
		return mcp.NewToolResultError("flow_id is required"), nil
	}
	stateID, err := req.RequireString("state_id")
	if err != nil {
		return mcp.NewToolResultError("state_id is required"), nil
	}
	event := req.GetString("event", "")
	data := mcp.ParseStringMap(req, "data", nil)

	f, err := s.builder.Registry().Get(flowID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := engine.Resolve(ctx, f, stateID, event, data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("resolve failed: %v", err)), nil
	}
	return marshalResult(map[string]any{
		"flow_id": flowID,
		"from":    stateID,
		"event":   event,
		"to":      target,
	})
}

func (s *Server) handleValidate(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reg := s.builder.Registry()
	flowID := req.GetString("flow_id", "")
	if flowID == "" {
		result := validation.ValidateRegistry(reg)
		return marshalResult(map[string]any{"valid": result.Valid(), "result": result})
	}
	f, err := reg.Get(flowID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result := validation.ValidateGraph(f, reg)
	if stateID := req.GetString("state_id", ""); stateID != "" {
		return marshalResult(map[string]any{
			"flow_id":  flowID,
			"state_id": stateID,
			"valid":    result.Valid(),
			"issues":   result.Under(flowID + "." + stateID),
		})
	}
	return marshalResult(map[string]any{"flow_id": flowID, "valid": result.Valid(), "result": result})
}

func (s *Server) handleStart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	flowID, err := req.RequireString("flow_id")
	if err != nil {
		return mcp.NewToolResultError("flow_id is required"), nil
	}
	input := mcp.ParseStringMap(req, "input", nil)

	x, err := s.executor.Start(ctx, flowID, input)
	if x == nil {
		return mcp.NewToolResultError(fmt.Sprintf("start failed: %v", err)), nil
	}
	return executionResult(x)
}

func (s *Server) handleSignal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	executionID, err := req.RequireString("execution_id")
	if err != nil {
		return mcp.NewToolResultError("execution_id is required"), nil
	}
	event, err := req.RequireString("event")
	if err != nil {
		return mcp.NewToolResultError("event is required"), nil
	}
	payload := mcp.ParseStringMap(req, "payload", nil)

	x, err := s.executor.Signal(ctx, executionID, schema.Signal{Event: event, Payload: payload})
	if x == nil || (err != nil && x.Status != schema.ExecutionStatusFailed) {
		return mcp.NewToolResultError(fmt.Sprintf("signal failed: %v", err)), nil
	}
	return executionResult(x)
}

// executionResult reports x including the state it stopped in. Failed
// executions are results, not tool errors; the error is in the payload.
func executionResult(x *engine.Execution) (*mcp.CallToolResult, error) {
	_, state := x.CurrentState()
	return marshalResult(map[string]any{
		"execution": x,
		"state":     state,
	})
}

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
