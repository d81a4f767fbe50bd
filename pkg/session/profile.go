// Package session holds the in-memory state of one phone call: the
// transcript, the extracted caller profile, and the stores that let a
// repeat caller's data survive across calls.
package session

import "sort"

// CallerProfile is the structured record the extraction loop distills
// from the transcript. Fields left empty by an extraction never clear
// previously learned values.
type CallerProfile struct {
	Name            string   `json:"name,omitempty"`
	BudgetLow       float64  `json:"budget_low,omitempty"`
	BudgetHigh      float64  `json:"budget_high,omitempty"`
	CarPreferences  []string `json:"car_preferences"`
	AdditionalNotes []string `json:"additional_notes"`
}

// CallerData pairs the profile with the open questions the caller has
// raised. It is keyed by caller number so the next call from the same
// number starts with everything already learned.
type CallerData struct {
	Profile   CallerProfile `json:"profile"`
	Questions []string      `json:"questions"`
}

// NewCallerData returns an empty CallerData with non-nil slices so it
// serializes as [] rather than null.
func NewCallerData() CallerData {
	return CallerData{
		Profile:   CallerProfile{CarPreferences: []string{}, AdditionalNotes: []string{}},
		Questions: []string{},
	}
}

// MergeProfile folds a fresh extraction into an existing profile.
// Non-empty new values win; empty values leave the old ones in place,
// so the merge is idempotent and never destructive.
func MergeProfile(old, extracted CallerProfile) CallerProfile {
	merged := old
	if extracted.Name != "" {
		merged.Name = extracted.Name
	}
	if extracted.BudgetLow != 0 {
		merged.BudgetLow = extracted.BudgetLow
	}
	if extracted.BudgetHigh != 0 {
		merged.BudgetHigh = extracted.BudgetHigh
	}
	if len(extracted.CarPreferences) > 0 {
		merged.CarPreferences = extracted.CarPreferences
	}
	if len(extracted.AdditionalNotes) > 0 {
		merged.AdditionalNotes = extracted.AdditionalNotes
	}
	return merged
}

// MergeQuestions unions two question lists, de-duplicated and sorted so
// repeated merges of the same extraction are stable.
func MergeQuestions(old, extracted []string) []string {
	seen := make(map[string]struct{}, len(old)+len(extracted))
	for _, q := range old {
		if q != "" {
			seen[q] = struct{}{}
		}
	}
	for _, q := range extracted {
		if q != "" {
			seen[q] = struct{}{}
		}
	}

	merged := make([]string, 0, len(seen))
	for q := range seen {
		merged = append(merged, q)
	}
	sort.Strings(merged)
	return merged
}
