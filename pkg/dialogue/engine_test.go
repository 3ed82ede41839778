package dialogue

import (
	"context"
	"errors"
	"testing"
	"time"

	"startup-standup-be/internal/pkg/logger"
	"startup-standup-be/pkg/scenario"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEvaluator struct {
	reply          string
	err            error
	calls          int
	lastChoice     string
	lastTranscript []string
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, choice string, transcript []string) (string, error) {
	f.calls++
	f.lastChoice = choice
	f.lastTranscript = transcript
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

var testStart = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, eval Evaluator) *Engine {
	t.Helper()
	catalog, err := scenario.LoadEmbedded("standup")
	require.NoError(t, err)
	return NewEngine(catalog, eval, logger.NewNopLogger(), WithEvaluatorTimeout(time.Second))
}

func newTestSession() *Session {
	return NewSession("sess-1", "standup", testStart, DefaultTimeLimitSeconds, "gemini")
}

func turn(t *testing.T, e *Engine, s *Session, text string) *TurnResult {
	t.Helper()
	res, err := e.ProcessTurn(context.Background(), s, text, testStart.Add(10*time.Second))
	require.NoError(t, err)
	return res
}

func TestProcessTurnFullConversation(t *testing.T) {
	eval := &fakeEvaluator{reply: "Confident and warm. Score: 5/5"}
	e := newTestEngine(t, eval)
	s := newTestSession()

	res := turn(t, e, s, "this place is a war zone")
	assert.Equal(t, "1-A", res.BranchKey)
	assert.Equal(t, 10, s.Affinity)
	assert.Empty(t, res.CoachPrompt)
	assert.False(t, s.RecoveryPending)
	require.NotNil(t, res.NextStage)
	assert.Equal(t, "STAGE_2", res.NextStage.Key)
	assert.Equal(t, 2, res.NextStage.Index)
	assert.Equal(t, 4, res.NextStage.Total)

	res = turn(t, e, s, "I brought you some candy")
	assert.Equal(t, "2-1", res.BranchKey)
	assert.Equal(t, 40, s.Affinity)

	res = turn(t, e, s, "Think of it as a flight simulator")
	assert.Equal(t, "3-2", res.BranchKey)
	assert.Equal(t, 20, s.Trust)
	assert.Equal(t, 0, eval.calls)

	res = turn(t, e, s, "I'll send you a QR code now")
	assert.Equal(t, "4-A", res.BranchKey)
	assert.True(t, res.Completed)
	assert.True(t, res.CompletedThisTurn)
	assert.Equal(t, "S", res.FinalRank)
	assert.Equal(t, "5 / 5", res.Score)
	assert.Equal(t, OutcomeNatural, res.Outcome)
	assert.Equal(t, "Nice. I am interested. Let's follow up in a proper meeting.", res.SuccessMessage)
	assert.Equal(t, "I can email a quick demo link right now. If it looks useful, we can schedule a follow-up.\n\n"+
		"Nice. I am interested. Let's follow up in a proper meeting.", res.Reply)
	assert.Equal(t, "Confident and warm. Score: 5/5", res.Evaluation)
	assert.Nil(t, res.NextStage)

	assert.Equal(t, 1, eval.calls)
	assert.Equal(t, "gemini", eval.lastChoice)
	require.Len(t, eval.lastTranscript, 8)
	assert.Equal(t, "You: this place is a war zone", eval.lastTranscript[0])
	assert.Equal(t, "Sarah: (smiles) Yeah, it is a war zone. Sure, take a seat. We are all in the trenches today.", eval.lastTranscript[1])
	assert.Equal(t, StateCompleted, s.State())
}

func TestProcessTurnRecoveryAccepted(t *testing.T) {
	e := newTestEngine(t, &fakeEvaluator{})
	s := newTestSession()

	res := turn(t, e, s, "move, this is my seat")
	assert.Equal(t, "1-C", res.BranchKey)
	assert.Equal(t, CoachPrompt, res.CoachPrompt)
	assert.False(t, res.Completed)
	assert.True(t, s.RecoveryPending)
	assert.Equal(t, 0, s.StageIndex)
	assert.Equal(t, StateAwaitingRecoveryInput, s.State())
	require.NotNil(t, res.NextStage)
	assert.Equal(t, "STAGE_1", res.NextStage.Key)

	res = turn(t, e, s, "sorry, my bad")
	assert.Equal(t, 5, s.Affinity)
	assert.Equal(t, 1, s.StageIndex)
	assert.False(t, s.RecoveryPending)
	assert.Equal(t, "Okay. (sigh) If you give me 10 minutes, I can talk later. Sorry, long day.", res.Reply)
	require.NotNil(t, res.NextStage)
	assert.Equal(t, "STAGE_2", res.NextStage.Key)
	assert.Len(t, s.Transcript, 4)
}

func TestProcessTurnRecoveryFailsAfterEndingBranch(t *testing.T) {
	eval := &fakeEvaluator{reply: "Rude opener."}
	e := newTestEngine(t, eval)
	s := newTestSession()

	turn(t, e, s, "move, this is my seat")
	res := turn(t, e, s, "whatever")

	assert.True(t, res.Completed)
	assert.Equal(t, "F", res.FinalRank)
	assert.Equal(t, SystemEnded, res.System)
	assert.Empty(t, res.SuccessMessage)
	assert.Equal(t, OutcomeRecoveryFailed, s.Outcome)
	assert.Equal(t, 1, eval.calls)
	assert.Equal(t, "Rude opener.", res.Evaluation)
}

func TestProcessTurnRecoveryMismatchAdvances(t *testing.T) {
	e := newTestEngine(t, nil)
	s := newTestSession()

	res := turn(t, e, s, "Is this seat taken?")
	assert.Equal(t, "1-B", res.BranchKey)
	assert.True(t, s.RecoveryPending)

	res = turn(t, e, s, "hmm okay")
	assert.Equal(t, RecoveryAccepted, res.Reply)
	assert.False(t, s.RecoveryPending)
	assert.Equal(t, 1, s.StageIndex)
	assert.False(t, res.Completed)
	assert.Equal(t, 0, s.Affinity)
	assert.Equal(t, []string{
		"You: Is this seat taken?",
		"Sarah: (sigh) It is free. Go ahead. Just keeping up is a lot.",
		"You: hmm okay",
	}, s.Transcript)

	// Recovery is never offered again for a stage that already had it.
	res = turn(t, e, s, "so much noise in here")
	assert.Equal(t, "2-3", res.BranchKey)
	assert.False(t, s.RecoveryPending)
	assert.Equal(t, 2, s.StageIndex)
}

func TestProcessTurnCompletedIsIdempotent(t *testing.T) {
	eval := &fakeEvaluator{reply: "Score: 2/5"}
	e := newTestEngine(t, eval)
	s := newTestSession()

	turn(t, e, s, "I need to pitch my startup idea") // wrong stage keywords, default 1-B
	turn(t, e, s, "sorry")
	res := turn(t, e, s, "let me pitch my idea")
	require.True(t, res.Completed)
	assert.Equal(t, "C", res.FinalRank)

	transcript := s.TranscriptSnapshot()
	affinity, trust, finalRank := s.Affinity, s.Trust, s.FinalRank

	for i := 0; i < 2; i++ {
		again := turn(t, e, s, "hello again")
		assert.True(t, again.AlreadyEnded)
		assert.True(t, again.Completed)
		assert.Equal(t, finalRank, again.FinalRank)
		assert.Equal(t, SystemAlreadyEnded, again.System)
		assert.False(t, again.CompletedThisTurn)
	}

	assert.Equal(t, transcript, s.Transcript)
	assert.Equal(t, affinity, s.Affinity)
	assert.Equal(t, trust, s.Trust)
	assert.Equal(t, finalRank, s.FinalRank)
	assert.Equal(t, 1, eval.calls)
}

func TestProcessTurnTimeout(t *testing.T) {
	eval := &fakeEvaluator{err: errors.New("evaluator down")}
	e := newTestEngine(t, eval)
	s := newTestSession()

	turn(t, e, s, "this place is a war zone")
	before := s.TranscriptSnapshot()

	late := testStart.Add(time.Duration(s.TimeLimit) * time.Second)
	res, err := e.ProcessTurn(context.Background(), s, "I brought candy", late)
	require.NoError(t, err)

	assert.True(t, res.TimedOut)
	assert.True(t, res.Completed)
	assert.Equal(t, "F", res.FinalRank)
	assert.Equal(t, "1 / 5", res.Score)
	assert.Equal(t, "Sorry, I have to run. If there is another chance, we can talk again.", res.Reply)
	assert.Equal(t, SystemTimeout, res.System)
	assert.Empty(t, res.SuccessMessage)
	assert.Equal(t, before, s.Transcript)
	assert.Equal(t, 10, s.Affinity)
	assert.Equal(t, 1, eval.calls)
	assert.Equal(t, OutcomeTimeout, s.Outcome)
}

func TestProcessTurnTimeoutBeatsEmptyInput(t *testing.T) {
	e := newTestEngine(t, nil)
	s := newTestSession()

	res, err := e.ProcessTurn(context.Background(), s, "   ", testStart.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.Empty(t, s.Transcript)
}

func TestProcessTurnEmptyInput(t *testing.T) {
	e := newTestEngine(t, nil)
	s := newTestSession()

	_, err := e.ProcessTurn(context.Background(), s, " \t\n", testStart)
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Empty(t, s.Transcript)
	assert.Equal(t, 0, s.StageIndex)
	assert.False(t, s.Completed)
}

func TestProcessTurnEvaluatorScoreOverridesRuleRank(t *testing.T) {
	eval := &fakeEvaluator{reply: "Too transactional. Score: 1/5"}
	e := newTestEngine(t, eval)
	s := newTestSession()
	s.StageIndex = 3

	res := turn(t, e, s, "scan my card")
	assert.Equal(t, "4-A", res.BranchKey)
	assert.Equal(t, "F", res.FinalRank)
	assert.Equal(t, "1 / 5", res.Score)
}

func TestProcessTurnEvaluatorFailureKeepsRuleRank(t *testing.T) {
	eval := &fakeEvaluator{err: errors.New("503 from upstream")}
	e := newTestEngine(t, eval)
	s := newTestSession()
	s.StageIndex = 3

	res := turn(t, e, s, "I'll send you a QR code now")
	assert.True(t, res.Completed)
	assert.Equal(t, "S", res.FinalRank)
	assert.Empty(t, res.Evaluation)
	assert.Equal(t, 1, eval.calls)
}

func TestProcessTurnLastStageDefaultRank(t *testing.T) {
	e := newTestEngine(t, nil)
	s := newTestSession()
	s.StageIndex = 3

	res := turn(t, e, s, "ok")
	assert.Equal(t, "4-B", res.BranchKey)
	assert.Equal(t, "B", res.FinalRank)
	assert.True(t, res.Completed)
	assert.NotEmpty(t, res.SuccessMessage)
	assert.Contains(t, res.Reply, "\n\n"+res.SuccessMessage)
}

func TestProcessTurnLastStageGoodbyeEndsConversation(t *testing.T) {
	e := newTestEngine(t, nil)
	s := newTestSession()
	s.StageIndex = 3

	res := turn(t, e, s, "thanks, bye")
	assert.Equal(t, "4-C", res.BranchKey)
	assert.Equal(t, "F", res.FinalRank)
	assert.True(t, res.Completed)
	assert.Empty(t, res.SuccessMessage)
	assert.Equal(t, OutcomeEnded, s.Outcome)
}

func TestProcessTurnMidConversationEnd(t *testing.T) {
	e := newTestEngine(t, nil)
	s := newTestSession()
	s.StageIndex = 1

	res := turn(t, e, s, "listen to my pitch")
	assert.Equal(t, "2-8", res.BranchKey)
	assert.True(t, res.Completed)
	assert.Equal(t, "F", res.FinalRank)
	assert.Equal(t, -30, s.Affinity)
	assert.Empty(t, res.SuccessMessage)
	assert.Nil(t, res.NextStage)
}

func TestProcessTurnPastLastStageCompletesNaturally(t *testing.T) {
	e := newTestEngine(t, nil)
	s := newTestSession()
	s.StageIndex = 4

	res := turn(t, e, s, "anything else?")
	assert.True(t, res.Completed)
	assert.Equal(t, "B", res.FinalRank)
	assert.Equal(t, OutcomeNatural, s.Outcome)
	assert.Equal(t, "Nice. I am interested. Let's follow up in a proper meeting.", res.Reply)
	assert.Equal(t, res.SuccessMessage, res.Reply)
	assert.Equal(t, []string{"You: anything else?"}, s.Transcript)
}

func TestProcessTurnUnknownScenario(t *testing.T) {
	e := newTestEngine(t, nil)
	s := NewSession("x", "nope", testStart, 240, "")

	_, err := e.ProcessTurn(context.Background(), s, "hi", testStart)
	assert.ErrorIs(t, err, scenario.ErrScenarioNotFound)
}

func TestClampTimeLimit(t *testing.T) {
	assert.Equal(t, 30, ClampTimeLimit(5))
	assert.Equal(t, 600, ClampTimeLimit(10_000))
	assert.Equal(t, 240, ClampTimeLimit(240))
}
