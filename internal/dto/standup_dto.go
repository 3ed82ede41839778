package dto

type StartSessionRequest struct {
	TimeoutSeconds  *int   `json:"timeout_seconds"`
	EvaluatorChoice string `json:"evaluator_choice" validate:"omitempty,max=32"`
	// Older browser clients send the choice as api_choice.
	APIChoice string `json:"api_choice" validate:"omitempty,max=32"`
}

type ScenarioInfo struct {
	Title      string `json:"title"`
	Background string `json:"background"`
	NpcState   string `json:"npc_state"`
	Items      string `json:"items"`
}

type StageInfo struct {
	Key    string `json:"key"`
	Title  string `json:"title"`
	Prompt string `json:"prompt"`
	Index  int    `json:"index"`
	Total  int    `json:"total"`
}

type StartSessionResponse struct {
	SessionID            string       `json:"session_id"`
	Scenario             ScenarioInfo `json:"scenario"`
	Stage                StageInfo    `json:"stage"`
	RecordSecondsDefault int          `json:"record_seconds_default"`
	TimeoutSeconds       int          `json:"timeout_seconds"`
	EvaluatorChoice      string       `json:"evaluator_choice"`
}

type SendMessageRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

type SendMessageResponse struct {
	SarahReply     string     `json:"sarah_reply"`
	CoachPrompt    string     `json:"coach_prompt,omitempty"`
	SuccessMessage string     `json:"success_message,omitempty"`
	System         string     `json:"system,omitempty"`
	Completed      bool       `json:"completed"`
	FinalRank      string     `json:"final_rank"`
	Score          string     `json:"score"`
	Evaluation     string     `json:"evaluation,omitempty"`
	Stage          *StageInfo `json:"stage,omitempty"`
}

type VoiceRequest struct {
	AudioBase64  string `json:"audio_base64"`
	SampleRate   int    `json:"sample_rate" validate:"omitempty,min=8000,max=48000"`
	LanguageCode string `json:"language_code" validate:"omitempty,max=16"`
}

type VoiceResponse struct {
	Transcript string `json:"transcript"`
}

type ConfigResponse struct {
	RecordSecondsDefault  int      `json:"record_seconds_default"`
	DefaultTimeoutSeconds int      `json:"default_timeout_seconds"`
	MinTimeoutSeconds     int      `json:"min_timeout_seconds"`
	MaxTimeoutSeconds     int      `json:"max_timeout_seconds"`
	Evaluators            []string `json:"evaluators"`
	DefaultEvaluator      string   `json:"default_evaluator"`
}

type HealthResponse struct {
	Status         string `json:"status"`
	ActiveSessions int    `json:"active_sessions"`
}
