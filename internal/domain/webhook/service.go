package webhook

import (
	"context"
	"fmt"
	"strings"

	"nutrition-call-assistant/internal/platform/eventbus"
	"nutrition-call-assistant/internal/platform/logger"
	"nutrition-call-assistant/internal/platform/metrics"
	"nutrition-call-assistant/internal/ports/dedupe"
)

// Publisher es la parte del bus que usa el ingestor.
type Publisher interface {
	Publish(eventType string, data map[string]any) int
}

type Service struct {
	bus      Publisher
	dedupe   dedupe.Suppressor
	defaults Defaults
	log      logger.Logger
	metrics  *metrics.Registry
}

func NewService(bus Publisher, sup dedupe.Suppressor, defaults Defaults, log logger.Logger, m *metrics.Registry) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		bus:      bus,
		dedupe:   sup,
		defaults: defaults,
		log:      log.With(map[string]any{"component": "webhook"}),
		metrics:  m,
	}
}

// Handle procesa un callback. Nunca reintenta: si falla, devuelve el error
// y la plataforma decide.
func (s *Service) Handle(ctx context.Context, event string, call Call) (out Outcome, err error) {
	event = strings.TrimSpace(event)
	label := event
	if label == "" {
		label = "none"
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handle %s: %v", label, r)
		}
		if err != nil {
			s.metrics.RecordWebhook(label, "error")
			return
		}
		s.metrics.RecordWebhook(label, string(out))
	}()

	switch event {
	case EventCallStarted:
		s.bus.Publish(eventbus.TypeCallStarted, lifecycleData(call))
		s.log.Info("call started", map[string]any{"call_id": call.CallID})
		return OutcomePublished, nil

	case EventCallEnded:
		s.bus.Publish(eventbus.TypeCallEnded, lifecycleData(call))
		s.log.Info("call ended", map[string]any{"call_id": call.CallID})
		return OutcomePublished, nil

	case EventCallAnalyzed:
		return s.handleAnalyzed(ctx, call), nil

	default:
		// Sin event o con uno desconocido: se acepta sin efecto.
		s.log.Info("unknown webhook event ignored", map[string]any{"event": event, "call_id": call.CallID})
		return OutcomeIgnored, nil
	}
}

func (s *Service) handleAnalyzed(ctx context.Context, call Call) Outcome {
	custom := call.customData()

	// Preferimos el id de imagen; si no viene, el de la llamada.
	key := stringField(custom, FieldImageID)
	if key == "" {
		key = strings.TrimSpace(call.CallID)
	}

	// Un callback incompleto no consume la clave: la reentrega corregida se publica.
	goal := stringField(custom, FieldHealthGoal)
	pref := stringField(custom, FieldDietaryPreference)
	if goal == "" && pref == "" {
		s.log.Warn("call analyzed without health goal or dietary preference", map[string]any{"call_id": call.CallID})
		return OutcomeIncomplete
	}

	if !s.dedupe.ShouldProcess(ctx, key) {
		s.log.Info("duplicate webhook skipped", map[string]any{"dedupe_key": key, "call_id": call.CallID})
		return OutcomeDuplicate
	}

	data := s.profile(custom)
	data["call_id"] = call.CallID
	if id := stringField(custom, FieldImageID); id != "" {
		data[FieldImageID] = id
	}

	s.bus.Publish(eventbus.TypeImageData, data)
	s.bus.Publish(eventbus.TypeUserData, s.profile(custom))

	s.log.Info("call analysis published", map[string]any{
		"call_id":     call.CallID,
		"health_goal": goal,
	})
	return OutcomePublished
}

// profile extrae los campos conocidos y rellena los ausentes.
func (s *Service) profile(custom map[string]any) map[string]any {
	return map[string]any{
		FieldHealthGoal:        stringField(custom, FieldHealthGoal),
		FieldDietaryPreference: stringField(custom, FieldDietaryPreference),
		FieldUserAge:           valueOr(custom, FieldUserAge, s.defaults.Age),
		FieldUserWeight:        valueOr(custom, FieldUserWeight, s.defaults.Weight),
		FieldUserHeight:        valueOr(custom, FieldUserHeight, s.defaults.Height),
		FieldUserName:          valueOr(custom, FieldUserName, s.defaults.Name),
		FieldUserGender:        valueOr(custom, FieldUserGender, s.defaults.Gender),
		FieldAdditionalNotes:   stringField(custom, FieldAdditionalNotes),
	}
}

func lifecycleData(call Call) map[string]any {
	data := map[string]any{"call_id": call.CallID}
	if call.AgentID != "" {
		data["agent_id"] = call.AgentID
	}
	if call.CallStatus != "" {
		data["call_status"] = call.CallStatus
	}
	if call.StartTimestamp > 0 {
		data["start_timestamp"] = call.StartTimestamp
	}
	if call.EndTimestamp > 0 {
		data["end_timestamp"] = call.EndTimestamp
	}
	if call.DisconnectCode != "" {
		data["disconnection_reason"] = call.DisconnectCode
	}
	return data
}

// stringField devuelve m[key] como string recortado; números se formatean.
func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strings.TrimSpace(fmt.Sprintf("%g", v))
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// valueOr conserva el valor original (número o texto) si viene informado.
func valueOr(m map[string]any, key, def string) any {
	switch v := m[key].(type) {
	case nil:
		return def
	case string:
		if strings.TrimSpace(v) == "" {
			return def
		}
		return strings.TrimSpace(v)
	default:
		return v
	}
}
