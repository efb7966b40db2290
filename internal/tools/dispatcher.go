package tools

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"makwenta.app/finance-assistant/internal/core"
	"makwenta.app/finance-assistant/internal/store"
)

// TurnContext carries the trusted per-turn values the dispatcher may inject
// into tool arguments. These come from the authenticated session, never
// from the planner.
type TurnContext struct {
	UserID         string
	BudgetSnapshot *store.BudgetConfig
}

// Names of context-injected parameters.
const (
	ParamUserID         = "user_id"
	ParamBudgetSnapshot = "budget_snapshot"
)

// ValidationError marks argument or domain-rule violations. The dispatcher
// surfaces these as validation observations instead of store failures.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

// Validationf builds a ValidationError.
func Validationf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// Dispatcher resolves, validates and executes planner-requested tool calls,
// packaging every outcome (including failures) as an observation.
type Dispatcher struct {
	registry *Registry
}

func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Registry exposes the catalog for the planner.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch runs one tool call. It never returns an error: unknown tools,
// bad arguments and store failures all become failed observations so the
// loop can hand them back to the planner.
func (d *Dispatcher) Dispatch(ctx context.Context, call core.ToolCall, tc TurnContext) core.Observation {
	tool, ok := d.registry.Get(call.Name)
	if !ok {
		return failed(call, core.ErrKindUnknownTool, fmt.Sprintf("unknown tool %q", call.Name))
	}

	args, err := effectiveArgs(tool.Spec, call.Args, tc)
	if err != nil {
		return failed(call, core.ErrKindValidation, err.Error())
	}

	payload, err := tool.Handler(ctx, args)
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			return failed(call, core.ErrKindValidation, vErr.Error())
		}
		log.Printf("Tool %s failed for user %s: %v", call.Name, tc.UserID, err)
		return failed(call, core.ErrKindStore, "the operation failed, please try again")
	}

	obs := core.Observation{
		CallID:   call.ID,
		ToolName: call.Name,
		OK:       true,
		Payload:  payload,
	}
	if msg, ok := payload["message"].(string); ok {
		obs.Message = msg
	}
	return obs
}

func failed(call core.ToolCall, kind, message string) core.Observation {
	return core.Observation{
		CallID:    call.ID,
		ToolName:  call.Name,
		OK:        false,
		ErrorKind: kind,
		Message:   message,
	}
}

// effectiveArgs computes the argument set a tool actually receives: the
// schema intersection of planner-supplied arguments and context fields.
// Context fields are injected only when the schema declares them, and they
// always override whatever the planner sent under the same name, so a tool
// that declares user_id can never see a spoofed identity and a tool that
// does not declare it never receives one.
func effectiveArgs(spec core.ToolSpec, supplied map[string]any, tc TurnContext) (map[string]any, error) {
	declared := make(map[string]core.Param, len(spec.Params))
	for _, p := range spec.Params {
		declared[p.Name] = p
	}

	args := make(map[string]any)
	for name, value := range supplied {
		param, ok := declared[name]
		if !ok {
			return nil, Validationf("unexpected parameter %q for tool %s", name, spec.Name)
		}
		if param.FromContext {
			continue // planner-supplied values for injected params are discarded
		}
		coerced, err := coerce(param, value)
		if err != nil {
			return nil, err
		}
		args[name] = coerced
	}

	for _, p := range spec.Params {
		if p.FromContext {
			switch p.Name {
			case ParamUserID:
				args[p.Name] = tc.UserID
			case ParamBudgetSnapshot:
				if tc.BudgetSnapshot != nil {
					args[p.Name] = tc.BudgetSnapshot
				}
			default:
				return nil, Validationf("tool %s declares unsupported context parameter %q", spec.Name, p.Name)
			}
		}
		if p.Required && !p.FromContext {
			if _, present := args[p.Name]; !present {
				return nil, Validationf("missing required parameter %q for tool %s", p.Name, spec.Name)
			}
		}
	}

	return args, nil
}

// coerce checks a planner-supplied value against the declared type and
// normalizes it (JSON numbers arrive as float64; integers are narrowed).
func coerce(p core.Param, value any) (any, error) {
	switch p.Type {
	case core.TypeString:
		s, ok := value.(string)
		if !ok {
			return nil, Validationf("parameter %q must be a string", p.Name)
		}
		return s, nil
	case core.TypeDate:
		s, ok := value.(string)
		if !ok {
			return nil, Validationf("parameter %q must be a YYYY-MM-DD date string", p.Name)
		}
		if _, err := store.ParseDate(s); err != nil {
			return nil, Validationf("parameter %q: %v", p.Name, err)
		}
		return s, nil
	case core.TypeNumber:
		f, ok := toFloat(value)
		if !ok {
			return nil, Validationf("parameter %q must be a number", p.Name)
		}
		return f, nil
	case core.TypeInteger:
		f, ok := toFloat(value)
		if !ok || f != math.Trunc(f) {
			return nil, Validationf("parameter %q must be an integer", p.Name)
		}
		return int64(f), nil
	case core.TypeBoolean:
		b, ok := value.(bool)
		if !ok {
			return nil, Validationf("parameter %q must be a boolean", p.Name)
		}
		return b, nil
	default:
		return value, nil
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
