package tools

import (
	"context"
	"errors"
	"testing"

	"makwenta.app/finance-assistant/internal/core"
	"makwenta.app/finance-assistant/internal/store"
)

// echoTool captures the args it was invoked with.
func echoRegistry(spec core.ToolSpec, captured *map[string]any) *Registry {
	r := NewRegistry()
	r.Register(&Tool{
		Spec: spec,
		Handler: func(_ context.Context, args map[string]any) (map[string]any, error) {
			*captured = args
			return map[string]any{"ok": true}, nil
		},
	})
	return r
}

func TestDispatchUnknownTool(t *testing.T) {
	d := NewDispatcher(NewRegistry())
	obs := d.Dispatch(context.Background(), core.ToolCall{ID: "c1", Name: "no_such_tool"}, TurnContext{UserID: "alice"})
	if obs.OK {
		t.Fatal("dispatch of unknown tool reported OK")
	}
	if obs.ErrorKind != core.ErrKindUnknownTool {
		t.Errorf("error kind = %s, want %s", obs.ErrorKind, core.ErrKindUnknownTool)
	}
	if obs.CallID != "c1" || obs.ToolName != "no_such_tool" {
		t.Errorf("observation not attributed to the call: %+v", obs)
	}
}

func TestDispatchInjectsContextAndDiscardsSpoof(t *testing.T) {
	var captured map[string]any
	spec := core.ToolSpec{
		Name: "t",
		Params: []core.Param{
			{Name: ParamUserID, Type: core.TypeString, FromContext: true},
			{Name: "amount", Type: core.TypeNumber, Required: true},
		},
	}
	d := NewDispatcher(echoRegistry(spec, &captured))

	// The planner tries to smuggle a different user_id; it must be
	// replaced by the authenticated one.
	obs := d.Dispatch(context.Background(), core.ToolCall{
		Name: "t",
		Args: map[string]any{"amount": 12.5, "user_id": "mallory"},
	}, TurnContext{UserID: "alice"})
	if !obs.OK {
		t.Fatalf("dispatch failed: %s", obs.Message)
	}
	if captured[ParamUserID] != "alice" {
		t.Errorf("user_id = %v, want alice", captured[ParamUserID])
	}
	if captured["amount"] != 12.5 {
		t.Errorf("amount = %v, want 12.5", captured["amount"])
	}
}

func TestDispatchDoesNotInjectUndeclaredContext(t *testing.T) {
	var captured map[string]any
	spec := core.ToolSpec{
		Name:   "t",
		Params: []core.Param{{Name: "x", Type: core.TypeString}},
	}
	d := NewDispatcher(echoRegistry(spec, &captured))

	budget := &store.BudgetConfig{UserID: "alice", DailyLimit: 100}
	obs := d.Dispatch(context.Background(), core.ToolCall{Name: "t", Args: map[string]any{"x": "y"}},
		TurnContext{UserID: "alice", BudgetSnapshot: budget})
	if !obs.OK {
		t.Fatalf("dispatch failed: %s", obs.Message)
	}
	if _, present := captured[ParamUserID]; present {
		t.Error("user_id injected without being declared")
	}
	if _, present := captured[ParamBudgetSnapshot]; present {
		t.Error("budget_snapshot injected without being declared")
	}
}

func TestDispatchBudgetSnapshotOmittedWhenAbsent(t *testing.T) {
	var captured map[string]any
	spec := core.ToolSpec{
		Name: "t",
		Params: []core.Param{
			{Name: ParamBudgetSnapshot, Type: core.TypeObject, FromContext: true},
		},
	}
	d := NewDispatcher(echoRegistry(spec, &captured))

	obs := d.Dispatch(context.Background(), core.ToolCall{Name: "t"}, TurnContext{UserID: "alice"})
	if !obs.OK {
		t.Fatalf("dispatch failed: %s", obs.Message)
	}
	if _, present := captured[ParamBudgetSnapshot]; present {
		t.Error("nil budget snapshot was injected")
	}
}

func TestDispatchValidation(t *testing.T) {
	var captured map[string]any
	spec := core.ToolSpec{
		Name: "t",
		Params: []core.Param{
			{Name: "amount", Type: core.TypeNumber, Required: true},
			{Name: "count", Type: core.TypeInteger},
			{Name: "when", Type: core.TypeDate},
		},
	}
	d := NewDispatcher(echoRegistry(spec, &captured))

	cases := []struct {
		name string
		args map[string]any
	}{
		{"missing required", map[string]any{}},
		{"undeclared param", map[string]any{"amount": 1.0, "bogus": true}},
		{"wrong type", map[string]any{"amount": "ten"}},
		{"fractional integer", map[string]any{"amount": 1.0, "count": 2.5}},
		{"bad date", map[string]any{"amount": 1.0, "when": "tomorrow"}},
	}
	for _, tc := range cases {
		obs := d.Dispatch(context.Background(), core.ToolCall{Name: "t", Args: tc.args}, TurnContext{UserID: "alice"})
		if obs.OK || obs.ErrorKind != core.ErrKindValidation {
			t.Errorf("%s: observation = %+v, want validation failure", tc.name, obs)
		}
	}
}

func TestDispatchCoercesIntegers(t *testing.T) {
	var captured map[string]any
	spec := core.ToolSpec{
		Name:   "t",
		Params: []core.Param{{Name: "count", Type: core.TypeInteger, Required: true}},
	}
	d := NewDispatcher(echoRegistry(spec, &captured))

	// JSON numbers arrive as float64 and must come out as int64.
	obs := d.Dispatch(context.Background(), core.ToolCall{Name: "t", Args: map[string]any{"count": 3.0}}, TurnContext{UserID: "alice"})
	if !obs.OK {
		t.Fatalf("dispatch failed: %s", obs.Message)
	}
	if v, ok := captured["count"].(int64); !ok || v != 3 {
		t.Errorf("count = %v (%T), want int64(3)", captured["count"], captured["count"])
	}
}

func TestDispatchErrorKinds(t *testing.T) {
	r := NewRegistry()
	r.Register(&Tool{
		Spec: core.ToolSpec{Name: "invalid"},
		Handler: func(context.Context, map[string]any) (map[string]any, error) {
			return nil, Validationf("amount must be positive")
		},
	})
	r.Register(&Tool{
		Spec: core.ToolSpec{Name: "broken"},
		Handler: func(context.Context, map[string]any) (map[string]any, error) {
			return nil, errors.New("disk on fire")
		},
	})
	d := NewDispatcher(r)

	obs := d.Dispatch(context.Background(), core.ToolCall{Name: "invalid"}, TurnContext{UserID: "alice"})
	if obs.OK || obs.ErrorKind != core.ErrKindValidation {
		t.Errorf("validation failure mapped to %+v", obs)
	}

	obs = d.Dispatch(context.Background(), core.ToolCall{Name: "broken"}, TurnContext{UserID: "alice"})
	if obs.OK || obs.ErrorKind != core.ErrKindStore {
		t.Errorf("store failure mapped to %+v", obs)
	}
	if obs.Message == "disk on fire" {
		t.Error("internal error detail leaked into the observation")
	}
}

func TestRegistryDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("duplicate registration did not panic")
		}
	}()
	r := NewRegistry()
	tool := &Tool{Spec: core.ToolSpec{Name: "dup"}, Handler: func(context.Context, map[string]any) (map[string]any, error) { return nil, nil }}
	r.Register(tool)
	r.Register(tool)
}
