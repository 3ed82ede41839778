package scenario

import "strings"

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

func containsAny(normalized string, keywords []string) bool {
	for _, keyword := range keywords {
		if keyword == "" {
			continue
		}
		if strings.Contains(normalized, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

// MatchBranch resolves free text to a branch of stage.
//
// Keywords are case-insensitive substrings ("old" matches "older"). Branches
// are scanned in declaration order and the first hit wins, so overlapping
// keyword sets are settled by position. Without a hit the default branch is
// returned, and if the default key is unknown the first branch.
func MatchBranch(stage *Stage, text string) *Branch {
	if stage == nil || len(stage.Branches) == 0 {
		return nil
	}

	normalized := normalize(text)
	for i := range stage.Branches {
		if containsAny(normalized, stage.Branches[i].Keywords) {
			return &stage.Branches[i]
		}
	}

	for i := range stage.Branches {
		if stage.Branches[i].Key == stage.DefaultBranch {
			return &stage.Branches[i]
		}
	}
	return &stage.Branches[0]
}

// MatchRecovery returns the rule's recovery when any of its keywords occurs in
// text.
func MatchRecovery(rule *RecoveryRule, text string) (*Recovery, bool) {
	if rule == nil {
		return nil, false
	}
	if containsAny(normalize(text), rule.Recovery.Keywords) {
		return &rule.Recovery, true
	}
	return nil, false
}
