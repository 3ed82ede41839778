package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"startup-standup-be/internal/dto"
	"startup-standup-be/internal/pkg/logger"
	"startup-standup-be/internal/repository/memory"
	"startup-standup-be/pkg/dialogue"
	"startup-standup-be/pkg/events"
	"startup-standup-be/pkg/stt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrSessionNotFound = errors.New("invalid session")
	ErrRegistryFull    = errors.New("session registry full")
	ErrEmptyInput      = dialogue.ErrEmptyInput
	ErrMissingAudio    = errors.New("missing audio")
	ErrInvalidAudio    = errors.New("invalid audio encoding")
)

// STTError wraps a transcriber failure; Err carries the upstream cause.
type STTError struct {
	Err error
}

func (e *STTError) Error() string { return "stt failed: " + e.Err.Error() }

func (e *STTError) Unwrap() error { return e.Err }

const (
	defaultSampleRate   = 16000
	defaultLanguageCode = "en-US"
)

// EvaluatorDirectory is the read side of the evaluator registry.
type EvaluatorDirectory interface {
	Names() []string
	DefaultName() string
	ResolveName(choice string) string
}

type StandupSettings struct {
	ScenarioKey          string
	DefaultTimeLimit     int
	RecordSecondsDefault int
	EventTopic           string
}

type IStandupService interface {
	Start(ctx context.Context, req *dto.StartSessionRequest) (*dto.StartSessionResponse, error)
	SendMessage(ctx context.Context, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error)
	Transcribe(ctx context.Context, req *dto.VoiceRequest) (*dto.VoiceResponse, error)
	Config(ctx context.Context) *dto.ConfigResponse
	Health(ctx context.Context) *dto.HealthResponse
	SessionExists(sessionID string) bool
}

type standupService struct {
	engine      *dialogue.Engine
	sessions    *memory.SessionRepository
	evaluators  EvaluatorDirectory
	transcriber stt.Transcriber
	publisher   message.Publisher
	settings    StandupSettings
	logger      logger.ILogger
	now         func() time.Time
}

func NewStandupService(
	engine *dialogue.Engine,
	sessions *memory.SessionRepository,
	evaluators EvaluatorDirectory,
	transcriber stt.Transcriber,
	publisher message.Publisher,
	settings StandupSettings,
	log logger.ILogger,
) IStandupService {
	if settings.DefaultTimeLimit <= 0 {
		settings.DefaultTimeLimit = dialogue.DefaultTimeLimitSeconds
	}
	s := &standupService{
		engine:      engine,
		sessions:    sessions,
		evaluators:  evaluators,
		transcriber: transcriber,
		publisher:   publisher,
		settings:    settings,
		logger:      log,
		now:         time.Now,
	}

	sessions.OnEvicted(func(id string, session *dialogue.Session) {
		session.Lock()
		data := map[string]interface{}{
			"completed":   session.Completed,
			"stage_index": session.StageIndex,
		}
		session.Unlock()
		s.publish(context.Background(), events.NewSessionEvent(events.TypeSessionExpired, id, data, s.now()))
	})

	return s
}

func (s *standupService) Start(ctx context.Context, req *dto.StartSessionRequest) (*dto.StartSessionResponse, error) {
	limit := s.settings.DefaultTimeLimit
	if req.TimeoutSeconds != nil {
		limit = *req.TimeoutSeconds
	}
	limit = dialogue.ClampTimeLimit(limit)

	choice := req.EvaluatorChoice
	if choice == "" {
		choice = req.APIChoice
	}
	choice = s.evaluators.ResolveName(choice)

	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	session := dialogue.NewSession(id, s.settings.ScenarioKey, s.now(), limit, choice)

	sc, stage, err := s.engine.StartPayload(session)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	if err := s.sessions.Save(session); err != nil {
		if errors.Is(err, memory.ErrFull) {
			s.logger.Warn("STANDUP", "Session registry full", map[string]interface{}{"active": s.sessions.Count()})
			return nil, ErrRegistryFull
		}
		return nil, err
	}

	s.logger.Info("STANDUP", "Session started", map[string]interface{}{
		"session_id": id,
		"scenario":   sc.Key,
		"time_limit": limit,
		"evaluator":  choice,
	})
	s.publish(ctx, events.NewSessionEvent(events.TypeSessionStarted, id, map[string]interface{}{
		"scenario":        sc.Key,
		"timeout_seconds": limit,
		"evaluator":       choice,
	}, s.now()))

	return &dto.StartSessionResponse{
		SessionID: id,
		Scenario: dto.ScenarioInfo{
			Title:      sc.Title,
			Background: sc.Background,
			NpcState:   sc.NpcState,
			Items:      sc.Items,
		},
		Stage:                toStageInfo(stage),
		RecordSecondsDefault: s.settings.RecordSecondsDefault,
		TimeoutSeconds:       limit,
		EvaluatorChoice:      choice,
	}, nil
}

func (s *standupService) SendMessage(ctx context.Context, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error) {
	session, ok := s.lookup(req.SessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}

	ctx, span := otel.Tracer("standup").Start(ctx, "standup.turn")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", session.ID))

	session.Lock()
	res, err := s.engine.ProcessTurn(ctx, session, req.Text, s.now())
	session.Unlock()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("turn.branch", res.BranchKey),
		attribute.Bool("turn.completed", res.Completed),
	)

	s.sessions.Touch(session)

	if !res.AlreadyEnded {
		s.publish(ctx, events.NewSessionEvent(events.TypeTurnProcessed, session.ID, map[string]interface{}{
			"stage_key":  res.StageKey,
			"branch_key": res.BranchKey,
			"reply":      res.Reply,
			"coach":      res.CoachPrompt,
			"affinity":   res.Affinity,
			"trust":      res.Trust,
			"timed_out":  res.TimedOut,
			"completed":  res.Completed,
		}, s.now()))
	}
	if res.CompletedThisTurn {
		s.publish(ctx, events.NewSessionEvent(events.TypeSessionCompleted, session.ID, map[string]interface{}{
			"outcome":    string(res.Outcome),
			"final_rank": res.FinalRank,
			"score":      res.Score,
			"affinity":   res.Affinity,
			"trust":      res.Trust,
			"evaluation": res.Evaluation,
		}, s.now()))
	}

	return toMessageResponse(res), nil
}

func (s *standupService) Transcribe(ctx context.Context, req *dto.VoiceRequest) (*dto.VoiceResponse, error) {
	if strings.TrimSpace(req.AudioBase64) == "" {
		return nil, ErrMissingAudio
	}
	audio, err := decodeAudio(req.AudioBase64)
	if err != nil {
		return nil, ErrInvalidAudio
	}

	sampleRate := req.SampleRate
	if sampleRate == 0 {
		sampleRate = defaultSampleRate
	}
	lang := req.LanguageCode
	if lang == "" {
		lang = defaultLanguageCode
	}

	if s.transcriber == nil {
		return nil, &STTError{Err: errors.New("no transcriber configured")}
	}
	text, err := s.transcriber.Transcribe(ctx, audio, sampleRate, lang)
	if err != nil {
		s.logger.Error("STT", "Transcription failed", map[string]interface{}{
			"bytes": len(audio),
			"error": err.Error(),
		})
		return nil, &STTError{Err: err}
	}
	return &dto.VoiceResponse{Transcript: text}, nil
}

func (s *standupService) Config(ctx context.Context) *dto.ConfigResponse {
	return &dto.ConfigResponse{
		RecordSecondsDefault:  s.settings.RecordSecondsDefault,
		DefaultTimeoutSeconds: dialogue.ClampTimeLimit(s.settings.DefaultTimeLimit),
		MinTimeoutSeconds:     dialogue.MinTimeLimitSeconds,
		MaxTimeoutSeconds:     dialogue.MaxTimeLimitSeconds,
		Evaluators:            s.evaluators.Names(),
		DefaultEvaluator:      s.evaluators.DefaultName(),
	}
}

func (s *standupService) Health(ctx context.Context) *dto.HealthResponse {
	return &dto.HealthResponse{Status: "ok", ActiveSessions: s.sessions.Count()}
}

func (s *standupService) SessionExists(sessionID string) bool {
	_, ok := s.lookup(sessionID)
	return ok
}

func (s *standupService) lookup(sessionID string) (*dialogue.Session, bool) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, false
	}
	return s.sessions.Get(sessionID)
}

// publish hands the event to the in-process bus. Failures are logged only;
// the turn has already been committed.
func (s *standupService) publish(ctx context.Context, event events.BaseEvent) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	if err := s.publisher.Publish(s.settings.EventTopic, msg); err != nil {
		s.logger.Warn("STANDUP", "Event publish failed", map[string]interface{}{
			"type":  event.Type,
			"error": err.Error(),
		})
	}
}

func decodeAudio(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if i := strings.Index(encoded, "base64,"); i >= 0 {
		encoded = encoded[i+len("base64,"):]
	}
	audio, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		audio, err = base64.RawStdEncoding.DecodeString(encoded)
	}
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, ErrInvalidAudio
	}
	return audio, nil
}

func toStageInfo(p *dialogue.StagePayload) dto.StageInfo {
	return dto.StageInfo{
		Key:    p.Key,
		Title:  p.Title,
		Prompt: p.Prompt,
		Index:  p.Index,
		Total:  p.Total,
	}
}

func toMessageResponse(res *dialogue.TurnResult) *dto.SendMessageResponse {
	out := &dto.SendMessageResponse{
		SarahReply:     res.Reply,
		CoachPrompt:    res.CoachPrompt,
		SuccessMessage: res.SuccessMessage,
		System:         res.System,
		Completed:      res.Completed,
		FinalRank:      res.FinalRank,
		Score:          res.Score,
		Evaluation:     res.Evaluation,
	}
	if res.NextStage != nil {
		stage := toStageInfo(res.NextStage)
		out.Stage = &stage
	}
	return out
}
