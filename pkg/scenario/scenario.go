package scenario

import (
	"errors"
	"fmt"
)

// Rank labels a conversation outcome.
const (
	RankS = "S"
	RankA = "A"
	RankB = "B"
	RankC = "C"
	RankF = "F"
)

var ErrScenarioNotFound = errors.New("scenario not found")

// Branch is one scripted outcome of a stage, selected by keyword match.
type Branch struct {
	Key              string   `yaml:"key" json:"key"`
	Intent           string   `yaml:"intent" json:"intent"`
	Keywords         []string `yaml:"keywords" json:"keywords"`
	Response         string   `yaml:"response" json:"response"`
	Effect           string   `yaml:"effect" json:"effect"` // display only
	AffinityDelta    int      `yaml:"affinity_delta" json:"affinity_delta"`
	TrustDelta       int      `yaml:"trust_delta" json:"trust_delta"`
	EndsConversation bool     `yaml:"ends_conversation" json:"ends_conversation"`
	FinalRank        string   `yaml:"final_rank,omitempty" json:"final_rank,omitempty"` // only meaningful on the last stage
}

// Recovery is the single corrective exchange a stage can offer.
type Recovery struct {
	Keywords      []string `yaml:"keywords" json:"keywords"`
	Response      string   `yaml:"response" json:"response"`
	AffinityDelta int      `yaml:"affinity_delta" json:"affinity_delta"`
	TrustDelta    int      `yaml:"trust_delta" json:"trust_delta"`
}

// RecoveryRule offers Recovery after any branch listed in TriggerKeys.
type RecoveryRule struct {
	TriggerKeys []string `yaml:"trigger_keys" json:"trigger_keys"`
	Recovery    Recovery `yaml:"recovery" json:"recovery"`
}

// ShouldOffer reports whether matching branch puts the stage into recovery.
func (r *RecoveryRule) ShouldOffer(branch *Branch) bool {
	if r == nil || branch == nil {
		return false
	}
	for _, key := range r.TriggerKeys {
		if key == branch.Key {
			return true
		}
	}
	return false
}

// Match is MatchRecovery bound to the rule.
func (r *RecoveryRule) Match(text string) (*Recovery, bool) {
	return MatchRecovery(r, text)
}

// Stage is one sequential beat of the conversation.
type Stage struct {
	Key           string        `yaml:"key" json:"key"`
	Title         string        `yaml:"title" json:"title"`
	Prompt        string        `yaml:"prompt" json:"prompt"`
	Branches      []Branch      `yaml:"branches" json:"branches"`
	DefaultBranch string        `yaml:"default_branch" json:"default_branch"`
	Recovery      *RecoveryRule `yaml:"recovery,omitempty" json:"recovery,omitempty"`
}

// Match is MatchBranch bound to the stage.
func (s *Stage) Match(text string) *Branch {
	return MatchBranch(s, text)
}

// Scenario is the immutable definition of a conversation. It is shared by
// every session and must not be modified after loading.
type Scenario struct {
	Key            string  `yaml:"key" json:"key"`
	Title          string  `yaml:"title" json:"title"`
	Description    string  `yaml:"description" json:"description"`
	Background     string  `yaml:"background" json:"background"`
	NpcName        string  `yaml:"npc_name" json:"npc_name"`
	NpcState       string  `yaml:"npc_state" json:"npc_state"`
	Items          string  `yaml:"items" json:"items"`
	SuccessMessage string  `yaml:"success_message" json:"success_message"`
	FailMessage    string  `yaml:"fail_message" json:"fail_message"`
	Rubric         string  `yaml:"rubric" json:"rubric"`
	Stages         []Stage `yaml:"stages" json:"stages"`
}

// StageAt returns the stage at index, or nil when index is out of range.
func (s *Scenario) StageAt(index int) *Stage {
	if index < 0 || index >= len(s.Stages) {
		return nil
	}
	return &s.Stages[index]
}

func (s *Scenario) IsLastStage(index int) bool {
	return index == len(s.Stages)-1
}

// Catalog is a read-only lookup of loaded scenarios.
type Catalog struct {
	scenarios  map[string]*Scenario
	defaultKey string
}

func NewCatalog(defaultKey string, scenarios ...*Scenario) *Catalog {
	c := &Catalog{
		scenarios:  make(map[string]*Scenario, len(scenarios)),
		defaultKey: defaultKey,
	}
	for _, s := range scenarios {
		c.scenarios[s.Key] = s
	}
	return c
}

// Get returns the scenario registered under key. An empty key selects the
// catalog default.
func (c *Catalog) Get(key string) (*Scenario, error) {
	if key == "" {
		key = c.defaultKey
	}
	s, ok := c.scenarios[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrScenarioNotFound, key)
	}
	return s, nil
}

func (c *Catalog) Default() (*Scenario, error) {
	return c.Get(c.defaultKey)
}
