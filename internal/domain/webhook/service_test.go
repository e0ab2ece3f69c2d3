package webhook

import (
	"context"
	"sync"
	"testing"

	"nutrition-call-assistant/internal/adapters/dedupe/memory"
	"nutrition-call-assistant/internal/platform/eventbus"
)

type published struct {
	typ  string
	data map[string]any
}

type recordingBus struct {
	mu     sync.Mutex
	events []published
}

func (b *recordingBus) Publish(eventType string, data map[string]any) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, published{typ: eventType, data: data})
	return 1
}

func (b *recordingBus) ofType(t string) []published {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []published
	for _, e := range b.events {
		if e.typ == t {
			out = append(out, e)
		}
	}
	return out
}

type panickingBus struct{}

func (panickingBus) Publish(string, map[string]any) int { panic("bus exploded") }

var testDefaults = Defaults{Age: "30", Weight: "170", Height: "5'10", Name: "Guest", Gender: "unspecified"}

func analyzedCall(callID string, custom map[string]any) Call {
	return Call{CallID: callID, CallAnalysis: &CallAnalysis{CustomAnalysisData: custom}}
}

func TestHandle_CallAnalyzedPublishesWithDefaults(t *testing.T) {
	bus := &recordingBus{}
	svc := NewService(bus, memory.New(0), testDefaults, nil, nil)

	out, err := svc.Handle(context.Background(), EventCallAnalyzed, analyzedCall("c1", map[string]any{
		"health_goal":        "lose weight",
		"dietary_preference": "vegan",
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if out != OutcomePublished {
		t.Fatalf("expected published, got %s", out)
	}

	evts := bus.ofType(eventbus.TypeImageData)
	if len(evts) != 1 {
		t.Fatalf("expected 1 image_data event, got %d", len(evts))
	}
	d := evts[0].data
	want := map[string]any{
		"health_goal":        "lose weight",
		"dietary_preference": "vegan",
		"user_age":           "30",
		"user_weight":        "170",
		"user_height":        "5'10",
		"user_name":          "Guest",
		"user_gender":        "unspecified",
		"call_id":            "c1",
	}
	for k, v := range want {
		if d[k] != v {
			t.Fatalf("%s: expected %v, got %v", k, v, d[k])
		}
	}
	if len(bus.ofType(eventbus.TypeUserData)) != 1 {
		t.Fatalf("expected the profile on user_data too")
	}
}

func TestHandle_KeepsProvidedValues(t *testing.T) {
	bus := &recordingBus{}
	svc := NewService(bus, memory.New(0), testDefaults, nil, nil)

	_, err := svc.Handle(context.Background(), EventCallAnalyzed, analyzedCall("c2", map[string]any{
		"health_goal": "gain muscle",
		"user_age":    float64(41),
		"user_name":   "  Sam ",
		"user_height": "",
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	d := bus.ofType(eventbus.TypeImageData)[0].data
	if d["user_age"] != float64(41) {
		t.Fatalf("numeric age must be kept, got %v", d["user_age"])
	}
	if d["user_name"] != "Sam" {
		t.Fatalf("name must be trimmed, got %q", d["user_name"])
	}
	if d["user_height"] != "5'10" {
		t.Fatalf("blank height must use default, got %v", d["user_height"])
	}
}

func TestHandle_DuplicateWithinWindow(t *testing.T) {
	bus := &recordingBus{}
	svc := NewService(bus, memory.New(0), testDefaults, nil, nil)
	call := analyzedCall("c1", map[string]any{"health_goal": "lose weight"})

	if out, _ := svc.Handle(context.Background(), EventCallAnalyzed, call); out != OutcomePublished {
		t.Fatalf("first delivery should publish, got %s", out)
	}
	if out, _ := svc.Handle(context.Background(), EventCallAnalyzed, call); out != OutcomeDuplicate {
		t.Fatalf("second delivery should be a duplicate, got %s", out)
	}
	if n := len(bus.ofType(eventbus.TypeImageData)); n != 1 {
		t.Fatalf("expected 1 publish, got %d", n)
	}
}

func TestHandle_ImageIDTakesPrecedenceOverCallID(t *testing.T) {
	bus := &recordingBus{}
	svc := NewService(bus, memory.New(0), testDefaults, nil, nil)

	a := analyzedCall("same-call", map[string]any{"health_goal": "x", "image_id": "img-1"})
	b := analyzedCall("same-call", map[string]any{"health_goal": "x", "image_id": "img-2"})

	if out, _ := svc.Handle(context.Background(), EventCallAnalyzed, a); out != OutcomePublished {
		t.Fatalf("img-1: %s", out)
	}
	if out, _ := svc.Handle(context.Background(), EventCallAnalyzed, b); out != OutcomePublished {
		t.Fatalf("img-2 is a different key, got %s", out)
	}
	if got := bus.ofType(eventbus.TypeImageData)[1].data["image_id"]; got != "img-2" {
		t.Fatalf("image_id must be forwarded, got %v", got)
	}
}

func TestHandle_NoKeyIsNeverSuppressed(t *testing.T) {
	bus := &recordingBus{}
	svc := NewService(bus, memory.New(0), testDefaults, nil, nil)
	call := analyzedCall("", map[string]any{"dietary_preference": "keto"})

	for i := 0; i < 3; i++ {
		if out, _ := svc.Handle(context.Background(), EventCallAnalyzed, call); out != OutcomePublished {
			t.Fatalf("delivery %d: %s", i, out)
		}
	}
}

func TestHandle_LenientGate(t *testing.T) {
	bus := &recordingBus{}
	svc := NewService(bus, memory.New(0), testDefaults, nil, nil)

	out, err := svc.Handle(context.Background(), EventCallAnalyzed, analyzedCall("c3", map[string]any{"user_name": "Ana"}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if out != OutcomeIncomplete {
		t.Fatalf("expected incomplete, got %s", out)
	}
	if len(bus.ofType(eventbus.TypeImageData)) != 0 {
		t.Fatalf("nothing should be published without goal or preference")
	}

	// Sin call_analysis tampoco hay nada que publicar.
	if out, _ := svc.Handle(context.Background(), EventCallAnalyzed, Call{CallID: "c4"}); out != OutcomeIncomplete {
		t.Fatalf("expected incomplete, got %s", out)
	}
}

func TestHandle_IncompleteDoesNotConsumeKey(t *testing.T) {
	bus := &recordingBus{}
	svc := NewService(bus, memory.New(0), testDefaults, nil, nil)
	ctx := context.Background()

	if out, _ := svc.Handle(ctx, EventCallAnalyzed, analyzedCall("c5", map[string]any{"user_name": "Ana"})); out != OutcomeIncomplete {
		t.Fatalf("expected incomplete, got %s", out)
	}

	// La reentrega corregida dentro de la ventana se publica.
	out, _ := svc.Handle(ctx, EventCallAnalyzed, analyzedCall("c5", map[string]any{"health_goal": "lose weight"}))
	if out != OutcomePublished {
		t.Fatalf("expected published after corrected redelivery, got %s", out)
	}
	if len(bus.ofType(eventbus.TypeImageData)) != 1 {
		t.Fatalf("expected one image_data event")
	}

	if out, _ := svc.Handle(ctx, EventCallAnalyzed, analyzedCall("c5", map[string]any{"health_goal": "lose weight"})); out != OutcomeDuplicate {
		t.Fatalf("expected duplicate, got %s", out)
	}
}

func TestHandle_LifecycleAndUnknownEvents(t *testing.T) {
	bus := &recordingBus{}
	svc := NewService(bus, memory.New(0), testDefaults, nil, nil)
	ctx := context.Background()

	if out, _ := svc.Handle(ctx, EventCallStarted, Call{CallID: "c9", AgentID: "a1"}); out != OutcomePublished {
		t.Fatalf("call_started: %s", out)
	}
	if out, _ := svc.Handle(ctx, EventCallEnded, Call{CallID: "c9", EndTimestamp: 1700}); out != OutcomePublished {
		t.Fatalf("call_ended: %s", out)
	}
	started := bus.ofType(eventbus.TypeCallStarted)
	if len(started) != 1 || started[0].data["agent_id"] != "a1" {
		t.Fatalf("unexpected call_started events: %+v", started)
	}
	if len(bus.ofType(eventbus.TypeCallEnded)) != 1 {
		t.Fatalf("expected call_ended event")
	}

	out, err := svc.Handle(ctx, "call_transferred", Call{CallID: "c9"})
	if err != nil || out != OutcomeIgnored {
		t.Fatalf("unknown events are acked: out=%s err=%v", out, err)
	}

	out, err = svc.Handle(ctx, "  ", Call{CallID: "c9"})
	if err != nil || out != OutcomeIgnored {
		t.Fatalf("missing event is acked: out=%s err=%v", out, err)
	}
	if len(bus.events) != 2 {
		t.Fatalf("ignored events must not publish, got %d events", len(bus.events))
	}
}

func TestHandle_PanicBecomesError(t *testing.T) {
	svc := NewService(panickingBus{}, memory.New(0), testDefaults, nil, nil)

	_, err := svc.Handle(context.Background(), EventCallStarted, Call{CallID: "c1"})
	if err == nil {
		t.Fatalf("expected error from panicking publisher")
	}
}
