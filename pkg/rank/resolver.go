// Package rank merges the rule-based outcome of a conversation with the score
// an evaluator reports in free text.
package rank

import (
	"regexp"
	"strconv"

	"startup-standup-be/pkg/scenario"
)

var scorePattern = regexp.MustCompile(`Score:\s*([0-9]+)\s*/\s*([0-9]+)`)

// ExtractScore returns the first "Score: value/max" pair found in text.
func ExtractScore(text string) (value, max int, ok bool) {
	m := scorePattern.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, false
	}
	value, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	max, err = strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, false
	}
	return value, max, true
}

// Normalize scales a score onto 25 points. Only /25 and /5 are understood.
func Normalize(value, max int) (int, bool) {
	switch max {
	case 25:
		return value, true
	case 5:
		return value * 5, true
	default:
		return 0, false
	}
}

// FromScore maps a 25-point score to a rank. Zero yields no rank.
func FromScore(score25 int) (string, bool) {
	switch {
	case score25 >= 20:
		return scenario.RankS, true
	case score25 >= 16:
		return scenario.RankA, true
	case score25 >= 12:
		return scenario.RankB, true
	case score25 >= 8:
		return scenario.RankC, true
	case score25 >= 1:
		return scenario.RankF, true
	default:
		return "", false
	}
}

// FromEvaluation derives a rank from evaluator text, if it carries a usable
// score.
func FromEvaluation(text string) (string, bool) {
	value, max, ok := ExtractScore(text)
	if !ok {
		return "", false
	}
	score25, ok := Normalize(value, max)
	if !ok {
		return "", false
	}
	return FromScore(score25)
}

// Resolve returns the authoritative rank. A rank derived from the evaluator
// score always overrides ruleRank. Without either, a naturally completed
// conversation is a B and anything else an F.
func Resolve(ruleRank, evaluatorText string, natural bool) string {
	if r, ok := FromEvaluation(evaluatorText); ok {
		return r
	}
	if ruleRank != "" {
		return ruleRank
	}
	if natural {
		return scenario.RankB
	}
	return scenario.RankF
}

// ScoreLabel is the display score for a rank.
func ScoreLabel(r string) string {
	switch r {
	case scenario.RankS:
		return "5 / 5"
	case scenario.RankA:
		return "4 / 5"
	case scenario.RankB:
		return "3 / 5"
	case scenario.RankC:
		return "2 / 5"
	case scenario.RankF:
		return "1 / 5"
	default:
		return "--"
	}
}
