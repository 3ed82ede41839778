package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"startup-standup-be/internal/pkg/logger"
	"startup-standup-be/pkg/rank"
	"startup-standup-be/pkg/scenario"
)

var ErrEmptyInput = errors.New("empty input")

const (
	CoachPrompt          = "Sarah looks cold. How do you respond?"
	RecoveryAccepted     = "Understood."
	SystemEnded          = "The conversation has ended."
	SystemAlreadyEnded   = "The session has already ended."
	SystemTimeout        = "Sarah leaves her seat to head to the next meeting."
	defaultEvaluatorWait = 30 * time.Second
)

// Evaluator judges a finished transcript and returns free text that may carry
// a "Score: X/Y" line. choice selects the backend.
type Evaluator interface {
	Evaluate(ctx context.Context, choice string, transcript []string) (string, error)
}

// StagePayload is the display form of a stage. Index is 1-based.
type StagePayload struct {
	Key    string `json:"key"`
	Title  string `json:"title"`
	Prompt string `json:"prompt"`
	Index  int    `json:"index"`
	Total  int    `json:"total"`
}

func BuildStagePayload(stage *scenario.Stage, index, total int) *StagePayload {
	return &StagePayload{
		Key:    stage.Key,
		Title:  stage.Title,
		Prompt: stage.Prompt,
		Index:  index + 1,
		Total:  total,
	}
}

// TurnResult describes what a turn did, for the transport to render.
type TurnResult struct {
	Reply          string
	CoachPrompt    string
	SuccessMessage string
	System         string
	Completed      bool
	FinalRank      string
	Score          string
	Evaluation     string
	NextStage      *StagePayload

	BranchKey         string
	StageKey          string
	Affinity          int
	Trust             int
	AlreadyEnded      bool
	TimedOut          bool
	CompletedThisTurn bool
	Outcome           Outcome
}

type Option func(*Engine)

// WithEvaluatorTimeout bounds a single evaluator call.
func WithEvaluatorTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.evaluatorTimeout = d
		}
	}
}

// Engine advances sessions one user turn at a time.
type Engine struct {
	catalog          *scenario.Catalog
	evaluator        Evaluator
	evaluatorTimeout time.Duration
	logger           logger.ILogger
}

func NewEngine(catalog *scenario.Catalog, evaluator Evaluator, log logger.ILogger, opts ...Option) *Engine {
	e := &Engine{
		catalog:          catalog,
		evaluator:        evaluator,
		evaluatorTimeout: defaultEvaluatorWait,
		logger:           log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StartPayload returns the first stage of the session's scenario.
func (e *Engine) StartPayload(s *Session) (*scenario.Scenario, *StagePayload, error) {
	sc, err := e.catalog.Get(s.ScenarioKey)
	if err != nil {
		return nil, nil, err
	}
	return sc, BuildStagePayload(&sc.Stages[0], 0, len(sc.Stages)), nil
}

// ProcessTurn applies one user message to s. The caller must hold s's lock.
//
// Rule-based state (completion, rule rank) is committed before the evaluator
// is consulted, so an evaluator failure never leaves the session half-done.
func (e *Engine) ProcessTurn(ctx context.Context, s *Session, rawText string, now time.Time) (*TurnResult, error) {
	sc, err := e.catalog.Get(s.ScenarioKey)
	if err != nil {
		return nil, fmt.Errorf("load scenario: %w", err)
	}

	if s.Completed {
		return &TurnResult{
			System:       SystemAlreadyEnded,
			Completed:    true,
			FinalRank:    s.FinalRank,
			Score:        rank.ScoreLabel(s.FinalRank),
			AlreadyEnded: true,
			Affinity:     s.Affinity,
			Trust:        s.Trust,
			Outcome:      s.Outcome,
		}, nil
	}

	if s.TimedOut(now) {
		s.complete(OutcomeTimeout)
		if s.FinalRank == "" {
			s.FinalRank = scenario.RankF
		}
		res := &TurnResult{
			Reply:    sc.FailMessage,
			System:   SystemTimeout,
			TimedOut: true,
		}
		e.logger.Info("DIALOGUE", "Session timed out", map[string]interface{}{
			"session_id": s.ID,
			"stage":      s.StageIndex,
		})
		return e.finish(ctx, sc, s, res), nil
	}

	text := strings.TrimSpace(rawText)
	if text == "" {
		return nil, ErrEmptyInput
	}

	s.Transcript = append(s.Transcript, "You: "+text)
	res := &TurnResult{}
	speaker := npcName(sc)

	if s.RecoveryPending && s.StageIndex < len(sc.Stages) {
		stage := &sc.Stages[s.StageIndex]
		res.StageKey = stage.Key
		e.applyRecovery(s, stage, text, speaker, res)
	} else if s.StageIndex >= len(sc.Stages) {
		s.complete(OutcomeNatural)
	} else {
		stage := &sc.Stages[s.StageIndex]
		res.StageKey = stage.Key
		e.applyBranch(sc, s, stage, text, speaker, res)
	}

	return e.finish(ctx, sc, s, res), nil
}

func (e *Engine) applyRecovery(s *Session, stage *scenario.Stage, text, speaker string, res *TurnResult) {
	// One attempt only: whatever happens, the stage leaves recovery.
	if recovery, ok := stage.Recovery.Match(text); ok {
		s.Affinity += recovery.AffinityDelta
		s.Trust += recovery.TrustDelta
		s.Transcript = append(s.Transcript, speaker+": "+recovery.Response)
		s.RecoveryPending = false
		s.StageIndex++
		res.Reply = recovery.Response
		return
	}

	if s.LastBranch != nil && s.LastBranch.EndsConversation {
		s.complete(OutcomeRecoveryFailed)
		s.FinalRank = scenario.RankF
		res.System = SystemEnded
		return
	}

	s.RecoveryPending = false
	s.StageIndex++
	res.Reply = RecoveryAccepted
}

func (e *Engine) applyBranch(sc *scenario.Scenario, s *Session, stage *scenario.Stage, text, speaker string, res *TurnResult) {
	processed := s.StageIndex
	branch := stage.Match(text)

	s.LastBranch = branch
	s.Affinity += branch.AffinityDelta
	s.Trust += branch.TrustDelta
	s.Transcript = append(s.Transcript, speaker+": "+branch.Response)
	res.Reply = branch.Response
	res.BranchKey = branch.Key

	switch {
	case stage.Recovery.ShouldOffer(branch):
		s.RecoveryPending = true
		res.CoachPrompt = CoachPrompt
	case branch.EndsConversation:
		s.complete(OutcomeEnded)
		s.FinalRank = scenario.RankF
	default:
		s.StageIndex++
	}

	if sc.IsLastStage(processed) && !s.RecoveryPending {
		switch {
		case branch.FinalRank != "":
			s.FinalRank = branch.FinalRank
		case !branch.EndsConversation:
			s.FinalRank = scenario.RankB
		}
		s.complete(OutcomeNatural)
	}
}

// finish commits rule defaults, runs the evaluator once if the session just
// completed, and fills the display fields.
func (e *Engine) finish(ctx context.Context, sc *scenario.Scenario, s *Session, res *TurnResult) *TurnResult {
	if s.Completed {
		res.CompletedThisTurn = true
		natural := s.Outcome == OutcomeNatural
		s.FinalRank = rank.Resolve(s.FinalRank, "", natural)

		if !s.Evaluated {
			s.Evaluated = true
			if text, ok := e.evaluate(ctx, s); ok {
				s.Evaluation = text
				s.FinalRank = rank.Resolve(s.FinalRank, text, natural)
			}
		}

		if natural && sc.SuccessMessage != "" && sc.SuccessMessage != res.Reply {
			res.SuccessMessage = sc.SuccessMessage
			// Appended to the reply, never replacing it.
			if res.Reply == "" {
				res.Reply = sc.SuccessMessage
			} else {
				res.Reply += "\n\n" + sc.SuccessMessage
			}
		}

		e.logger.Info("DIALOGUE", "Session completed", map[string]interface{}{
			"session_id": s.ID,
			"outcome":    string(s.Outcome),
			"final_rank": s.FinalRank,
			"affinity":   s.Affinity,
			"trust":      s.Trust,
		})
	} else if s.StageIndex < len(sc.Stages) {
		res.NextStage = BuildStagePayload(&sc.Stages[s.StageIndex], s.StageIndex, len(sc.Stages))
	}

	res.Completed = s.Completed
	res.FinalRank = s.FinalRank
	res.Score = rank.ScoreLabel(s.FinalRank)
	res.Evaluation = s.Evaluation
	res.Affinity = s.Affinity
	res.Trust = s.Trust
	res.Outcome = s.Outcome
	return res
}

func (e *Engine) evaluate(ctx context.Context, s *Session) (string, bool) {
	if e.evaluator == nil {
		return "", false
	}

	evalCtx, cancel := context.WithTimeout(ctx, e.evaluatorTimeout)
	defer cancel()

	start := time.Now()
	text, err := e.evaluator.Evaluate(evalCtx, s.EvaluatorChoice, s.TranscriptSnapshot())
	if err != nil {
		e.logger.Warn("EVALUATOR", "Evaluation failed, keeping rule rank", map[string]interface{}{
			"session_id": s.ID,
			"choice":     s.EvaluatorChoice,
			"error":      err.Error(),
		})
		return "", false
	}

	e.logger.Info("EVALUATOR", "Evaluation received", map[string]interface{}{
		"session_id":  s.ID,
		"choice":      s.EvaluatorChoice,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return text, strings.TrimSpace(text) != ""
}

func npcName(sc *scenario.Scenario) string {
	if sc.NpcName != "" {
		return sc.NpcName
	}
	return "Sarah"
}
