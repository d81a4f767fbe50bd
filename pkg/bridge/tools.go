package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/grottohq/voicebridge/internal/log"
	"github.com/grottohq/voicebridge/pkg/gemini"
	"github.com/grottohq/voicebridge/pkg/inventory"
	"github.com/grottohq/voicebridge/pkg/session"
)

// Human agents stop taking transfers at 5pm local time.
const transferCutoffHour = 17

const defaultSettle = 2 * time.Second

// ToolHandler runs one non-terminal tool and returns its result payload.
type ToolHandler func(ctx context.Context, args map[string]any) (map[string]any, error)

// Terminator is the dispatcher's handle on the call lifecycle, used by
// end_call and transfer_to_human.
type Terminator interface {
	// WaitIdle blocks until queued playback has been sent out.
	WaitIdle(ctx context.Context)
	// End tears the call down: close event, transport close, loop stop.
	End(reason string)
}

// Dispatcher routes the model's function calls to their handlers. The
// tool set is closed: every callable tool is registered at construction
// and anything else returns an error payload to the model.
type Dispatcher struct {
	sess        *session.CallSession
	cars        []inventory.Car
	control     CallControl
	humanNumber string
	settle      time.Duration
	now         func() time.Time
	handlers    map[string]ToolHandler
}

// NewDispatcher builds the dispatcher with the built-in tool registry.
func NewDispatcher(sess *session.CallSession, cars []inventory.Car, control CallControl, humanNumber string) *Dispatcher {
	d := &Dispatcher{
		sess:        sess,
		cars:        cars,
		control:     control,
		humanNumber: humanNumber,
		settle:      defaultSettle,
		now:         time.Now,
	}
	d.handlers = map[string]ToolHandler{
		"can_end_call":          d.canEndCall,
		"can_transfer_to_human": d.canTransferToHuman,
		"show_top_cars":         d.showTopCars,
	}
	return d
}

// WithClock overrides the clock. Used in tests.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// WithSettle overrides the post-redirect settle delay. Used in tests.
func (d *Dispatcher) WithSettle(settle time.Duration) *Dispatcher {
	d.settle = settle
	return d
}

// Dispatch runs a batch of function calls and returns their responses
// in call order. A terminal tool ends the call and returns an empty
// batch; nothing after it in the batch runs.
func (d *Dispatcher) Dispatch(ctx context.Context, calls []gemini.ToolCall, term Terminator) []gemini.ToolResponse {
	var responses []gemini.ToolResponse
	for _, fc := range calls {
		log.Info("tool call", "tool", fc.Name, "call_sid", d.sess.CallSID)
		d.sess.AddIntent(fc.Name)

		switch fc.Name {
		case "end_call", "transfer_to_human":
			d.terminate(ctx, fc.Name == "transfer_to_human", term)
			return nil
		case "get_caller_profile":
			responses = append(responses, gemini.ToolResponse{
				ID:       fc.ID,
				Name:     fc.Name,
				Response: toResultMap(d.sess.Data()),
			})
			continue
		}

		handler, ok := d.handlers[fc.Name]
		if !ok {
			responses = append(responses, gemini.ToolResponse{
				ID:       fc.ID,
				Name:     fc.Name,
				Response: map[string]any{"error": fmt.Sprintf("unknown tool: %s", fc.Name)},
			})
			continue
		}

		result, err := handler(ctx, fc.Args)
		if err != nil {
			result = map[string]any{"error": fmt.Sprintf("tool call failed: %v", err)}
		}
		responses = append(responses, gemini.ToolResponse{
			ID:       fc.ID,
			Name:     fc.Name,
			Response: result,
		})
	}
	return responses
}

// terminate runs the shared teardown for end_call and transfer_to_human:
// let queued speech finish, optionally hand the leg to a human, give
// Twilio a moment to process, then close the stream.
func (d *Dispatcher) terminate(ctx context.Context, transfer bool, term Terminator) {
	term.WaitIdle(ctx)

	reason := "call ended by agent"
	if transfer {
		reason = "transferred to human agent"
		if err := d.control.Announce(ctx, d.sess.CallSID, "Please hold, transferring your call"); err != nil {
			log.Error("transfer announce failed", "call_sid", d.sess.CallSID, "error", err)
		}
		if err := d.control.Redirect(ctx, d.sess.CallSID, d.humanNumber); err != nil {
			log.Error("transfer redirect failed", "call_sid", d.sess.CallSID, "error", err)
		}
	}

	select {
	case <-time.After(d.settle):
	case <-ctx.Done():
	}
	term.End(reason)
}

func (d *Dispatcher) canEndCall(context.Context, map[string]any) (map[string]any, error) {
	return map[string]any{
		"can_end": true,
		"message": "You can end the call now.",
	}, nil
}

func (d *Dispatcher) canTransferToHuman(context.Context, map[string]any) (map[string]any, error) {
	if d.now().Hour() >= transferCutoffHour {
		return map[string]any{
			"can_transfer": false,
			"message": fmt.Sprintf(
				"It's after %d local time. Call cannot be transferred to a human. Inform the caller "+
					"that they can call back tomorrow during business hours, and that any preferences they "+
					"share now will be noted.", transferCutoffHour-12),
		}, nil
	}
	return map[string]any{
		"can_transfer": true,
		"message":      "You can transfer the call to a human agent.",
	}, nil
}

func (d *Dispatcher) showTopCars(_ context.Context, args map[string]any) (map[string]any, error) {
	query, err := parseCarQuery(args)
	if err != nil {
		return nil, err
	}
	cars, err := inventory.TopCars(d.cars, query)
	if err != nil {
		return nil, err
	}
	return map[string]any{"top_cars": cars}, nil
}

// parseCarQuery maps JSON-decoded tool arguments onto an inventory
// query. Numbers arrive as float64, arrays as []any.
func parseCarQuery(args map[string]any) (inventory.Query, error) {
	var q inventory.Query
	for key, raw := range args {
		switch key {
		case "makes":
			q.Makes = toStrings(raw)
		case "models":
			q.Models = toStrings(raw)
		case "year_gte":
			q.YearGTE = toInt(raw)
		case "year_lte":
			q.YearLTE = toInt(raw)
		case "budget_low":
			q.BudgetLow = toFloat(raw)
		case "budget_high":
			q.BudgetHigh = toFloat(raw)
		case "car_type":
			q.CarType, _ = raw.(string)
		case "sale_type":
			q.SaleType, _ = raw.(string)
		case "fuel_efficiency_gte":
			q.FuelEfficiencyGTE = toInt(raw)
		case "features":
			q.Features = toStrings(raw)
		case "horsepower_gte":
			q.HorsepowerGTE = toInt(raw)
		case "seats_gte":
			q.SeatsGTE = toInt(raw)
		case "order_by":
			q.OrderBy, _ = raw.(string)
		case "top_n":
			q.TopN = toInt(raw)
		default:
			return inventory.Query{}, fmt.Errorf("unexpected argument %q", key)
		}
	}
	return q, nil
}

func toStrings(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func toFloat(v any) float64 {
	f, _ := v.(float64)
	return f
}

func toInt(v any) int {
	return int(toFloat(v))
}

// toResultMap renders a struct as the map payload tool responses expect.
func toResultMap(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return map[string]any{"error": fmt.Sprintf("encode result: %v", err)}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{"error": fmt.Sprintf("encode result: %v", err)}
	}
	return m
}
