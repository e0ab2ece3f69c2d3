package webhook

// Eventos que manda la plataforma de llamadas.
const (
	EventCallStarted  = "call_started"
	EventCallEnded    = "call_ended"
	EventCallAnalyzed = "call_analyzed"
)

// Campos de perfil que puede traer custom_analysis_data.
const (
	FieldHealthGoal        = "health_goal"
	FieldDietaryPreference = "dietary_preference"
	FieldUserAge           = "user_age"
	FieldUserWeight        = "user_weight"
	FieldUserHeight        = "user_height"
	FieldUserName          = "user_name"
	FieldUserGender        = "user_gender"
	FieldAdditionalNotes   = "additional_notes"
	FieldImageID           = "image_id"
)

// Payload es el body de POST /webhook.
type Payload struct {
	Event string `json:"event"`
	Call  Call   `json:"call"`
}

// Call es la vista parcial de la llamada que nos interesa.
// El resto del objeto se ignora.
type Call struct {
	CallID         string        `json:"call_id"`
	AgentID        string        `json:"agent_id,omitempty"`
	CallStatus     string        `json:"call_status,omitempty"`
	FromNumber     string        `json:"from_number,omitempty"`
	StartTimestamp int64         `json:"start_timestamp,omitempty"`
	EndTimestamp   int64         `json:"end_timestamp,omitempty"`
	DisconnectCode string        `json:"disconnection_reason,omitempty"`
	CallAnalysis   *CallAnalysis `json:"call_analysis,omitempty"`
}

type CallAnalysis struct {
	CallSummary        string         `json:"call_summary,omitempty"`
	CustomAnalysisData map[string]any `json:"custom_analysis_data,omitempty"`
}

// customData devuelve custom_analysis_data o un mapa vacío.
func (c Call) customData() map[string]any {
	if c.CallAnalysis == nil || c.CallAnalysis.CustomAnalysisData == nil {
		return map[string]any{}
	}
	return c.CallAnalysis.CustomAnalysisData
}

// Defaults rellena los campos de perfil que la llamada no aportó.
type Defaults struct {
	Age    string
	Weight string
	Height string
	Name   string
	Gender string
}

// Outcome resume qué hizo el ingestor con un callback.
type Outcome string

const (
	OutcomePublished  Outcome = "published"
	OutcomeDuplicate  Outcome = "duplicate"
	OutcomeIncomplete Outcome = "incomplete"
	OutcomeIgnored    Outcome = "ignored"
)
