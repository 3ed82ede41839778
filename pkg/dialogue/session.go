package dialogue

import (
	"sync"
	"time"

	"startup-standup-be/pkg/scenario"
)

// State is the position of a session in the turn state machine.
type State string

const (
	StateAwaitingInput         State = "AWAITING_INPUT"
	StateAwaitingRecoveryInput State = "AWAITING_RECOVERY_INPUT"
	StateCompleted             State = "COMPLETED"
)

// Outcome records how a completed session ended.
type Outcome string

const (
	OutcomeNone           Outcome = ""
	OutcomeNatural        Outcome = "natural"
	OutcomeEnded          Outcome = "ended"
	OutcomeRecoveryFailed Outcome = "recovery_failed"
	OutcomeTimeout        Outcome = "timeout"
)

const (
	DefaultTimeLimitSeconds = 240
	MinTimeLimitSeconds     = 30
	MaxTimeLimitSeconds     = 600
)

// ClampTimeLimit bounds a requested limit to [30, 600] seconds.
func ClampTimeLimit(seconds int) int {
	if seconds < MinTimeLimitSeconds {
		return MinTimeLimitSeconds
	}
	if seconds > MaxTimeLimitSeconds {
		return MaxTimeLimitSeconds
	}
	return seconds
}

// Session is the mutable record of one conversation. Only Engine mutates it,
// and callers must hold the session lock for the duration of a turn.
type Session struct {
	mu sync.Mutex

	ID              string
	ScenarioKey     string
	StageIndex      int
	Affinity        int
	Trust           int
	FinalRank       string // empty until resolved
	Completed       bool
	RecoveryPending bool
	LastBranch      *scenario.Branch
	Transcript      []string
	StartTime       time.Time
	TimeLimit       int // seconds
	EvaluatorChoice string

	Outcome    Outcome
	Evaluated  bool
	Evaluation string
}

func NewSession(id, scenarioKey string, start time.Time, timeLimitSeconds int, evaluatorChoice string) *Session {
	return &Session{
		ID:              id,
		ScenarioKey:     scenarioKey,
		StartTime:       start,
		TimeLimit:       timeLimitSeconds,
		EvaluatorChoice: evaluatorChoice,
		Transcript:      make([]string, 0, 16),
	}
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

func (s *Session) State() State {
	switch {
	case s.Completed:
		return StateCompleted
	case s.RecoveryPending:
		return StateAwaitingRecoveryInput
	default:
		return StateAwaitingInput
	}
}

func (s *Session) Deadline() time.Time {
	return s.StartTime.Add(time.Duration(s.TimeLimit) * time.Second)
}

// TimedOut reports whether the time limit has elapsed at now.
func (s *Session) TimedOut(now time.Time) bool {
	return now.Sub(s.StartTime) >= time.Duration(s.TimeLimit)*time.Second
}

// TranscriptSnapshot returns a copy safe to hand to other goroutines.
func (s *Session) TranscriptSnapshot() []string {
	out := make([]string, len(s.Transcript))
	copy(out, s.Transcript)
	return out
}

func (s *Session) complete(outcome Outcome) {
	s.Completed = true
	if s.Outcome == OutcomeNone {
		s.Outcome = outcome
	}
}
