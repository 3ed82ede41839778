package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func overlappingStage() *Stage {
	return &Stage{
		Key: "S",
		Branches: []Branch{
			{Key: "first", Keywords: []string{"coffee", "cup"}},
			{Key: "second", Keywords: []string{"Coffee", "tea"}},
			{Key: "fallback", Keywords: []string{"weather"}},
		},
		DefaultBranch: "fallback",
	}
}

func TestMatchBranch(t *testing.T) {
	stage := overlappingStage()

	tests := []struct {
		name    string
		input   string
		wantKey string
	}{
		{name: "first declared wins on overlap", input: "coffee please", wantKey: "first"},
		{name: "case does not change the winner", input: "  COFFEE PLEASE ", wantKey: "first"},
		{name: "later branch when only it matches", input: "some tea", wantKey: "second"},
		{name: "substring containment", input: "teapot", wantKey: "second"},
		{name: "no match uses default", input: "hello there", wantKey: "fallback"},
		{name: "empty input uses default", input: "", wantKey: "fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchBranch(stage, tt.input)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantKey, got.Key)
		})
	}
}

func TestMatchBranchMissingDefaultFallsBackToFirst(t *testing.T) {
	stage := &Stage{
		Branches: []Branch{
			{Key: "a", Keywords: []string{"alpha"}},
			{Key: "b", Keywords: []string{"beta"}},
		},
		DefaultBranch: "does-not-exist",
	}

	got := stage.Match("nothing relevant")
	require.NotNil(t, got)
	assert.Equal(t, "a", got.Key)
}

func TestMatchBranchEmptyStage(t *testing.T) {
	assert.Nil(t, MatchBranch(&Stage{}, "anything"))
	assert.Nil(t, MatchBranch(nil, "anything"))
}

func TestMatchRecovery(t *testing.T) {
	rule := &RecoveryRule{
		TriggerKeys: []string{"bad"},
		Recovery: Recovery{
			Keywords:      []string{"sorry", "My Bad"},
			Response:      "fine",
			AffinityDelta: 5,
		},
	}

	rec, ok := rule.Match("Sorry, my bad")
	require.True(t, ok)
	assert.Equal(t, 5, rec.AffinityDelta)

	rec, ok = MatchRecovery(rule, "that was MY BAD")
	assert.True(t, ok)
	assert.NotNil(t, rec)

	rec, ok = MatchRecovery(rule, "whatever")
	assert.False(t, ok)
	assert.Nil(t, rec)

	_, ok = MatchRecovery(nil, "sorry")
	assert.False(t, ok)
}

func TestShouldOffer(t *testing.T) {
	rule := &RecoveryRule{TriggerKeys: []string{"1-B", "1-C"}}

	assert.True(t, rule.ShouldOffer(&Branch{Key: "1-C"}))
	assert.False(t, rule.ShouldOffer(&Branch{Key: "1-A"}))

	var nilRule *RecoveryRule
	assert.False(t, nilRule.ShouldOffer(&Branch{Key: "1-C"}))
}

func TestStandupStageMatching(t *testing.T) {
	catalog, err := LoadEmbedded("standup")
	require.NoError(t, err)
	s, err := catalog.Default()
	require.NoError(t, err)

	tests := []struct {
		stage   int
		input   string
		wantKey string
	}{
		{stage: 0, input: "this place is a war zone", wantKey: "1-A"},
		{stage: 0, input: "move, this is my seat", wantKey: "1-C"},
		{stage: 0, input: "Is this seat taken?", wantKey: "1-B"},
		{stage: 0, input: "hi", wantKey: "1-B"},
		{stage: 1, input: "I brought you some candy", wantKey: "2-1"},
		{stage: 1, input: "you look older today", wantKey: "2-5"},
		{stage: 1, input: "you seem older", wantKey: "2-7"},
		{stage: 2, input: "it's a flight simulator for founders", wantKey: "3-2"},
		{stage: 2, input: "mmm", wantKey: "3-7"},
		{stage: 3, input: "I'll send you a QR code now", wantKey: "4-A"},
		{stage: 3, input: "ok", wantKey: "4-B"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := s.Stages[tt.stage].Match(tt.input)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantKey, got.Key)
		})
	}
}
