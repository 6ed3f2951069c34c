package services

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/justsurfingit/jobsearch-hub/internal/models"
)

const (
	tagWeight     = 10.0
	successWeight = 5.0

	DefaultPortfolioSize = 3
	MaxPortfolioSize     = 20
)

// ScoredReference is one entry of a reference portfolio.
type ScoredReference struct {
	Reference    models.Reference `json:"reference"`
	Score        float64          `json:"score"`
	MatchedTags  []string         `json:"matched_tags"`
	SuccessRatio float64          `json:"success_ratio"`
	Summary      string           `json:"summary"`
}

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "as": true, "at": true, "for": true, "in": true,
	"into": true, "of": true, "on": true, "or": true, "the": true, "to": true, "with": true,
	"my": true, "me": true, "i": true, "role": true, "job": true, "position": true,
}

// ScoreReferences ranks references against a free-text goal. The score is a
// weighted sum of tag overlap and the historical success ratio. Unavailable
// references are skipped; ties keep the input order.
func ScoreReferences(goal string, refs []models.Reference, limit int) []ScoredReference {
	if limit <= 0 {
		limit = DefaultPortfolioSize
	}
	tokens := tokenSet(goal)

	scored := make([]ScoredReference, 0, len(refs))
	for _, ref := range refs {
		if ref.AvailabilityStatus == models.Unavailable {
			continue
		}
		matched := matchTags(ref.Tags, tokens)
		ratio := successRatio(ref)
		score := tagWeight*float64(len(matched)) + successWeight*ratio

		entry := ScoredReference{
			Reference:    ref,
			Score:        math.Round(score*100) / 100,
			MatchedTags:  matched,
			SuccessRatio: math.Round(ratio*100) / 100,
		}
		entry.Summary = templateSummary(entry)
		scored = append(scored, entry)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

func successRatio(ref models.Reference) float64 {
	if ref.UsageCount <= 0 {
		return 0
	}
	ratio := float64(ref.SuccessCount) / float64(ref.UsageCount)
	if ratio > 1 {
		ratio = 1
	}
	return ratio
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#' && r != '.'
	})
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, ".")
		if len(f) < 2 || stopwords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}

func tokenSet(text string) map[string]bool {
	set := map[string]bool{}
	for _, tok := range tokenize(text) {
		set[tok] = true
	}
	return set
}

// matchTags returns the reference tags that appear in the goal, either as a
// single token or with every word of a multi-word tag present.
func matchTags(tags []string, tokens map[string]bool) []string {
	matched := []string{}
	seen := map[string]bool{}
	for _, tag := range tags {
		norm := strings.ToLower(strings.TrimSpace(tag))
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true

		if tokens[norm] {
			matched = append(matched, tag)
			continue
		}
		words := tokenize(norm)
		if len(words) == 0 {
			continue
		}
		all := true
		for _, w := range words {
			if !tokens[w] {
				all = false
				break
			}
		}
		if all {
			matched = append(matched, tag)
		}
	}
	return matched
}

func templateSummary(s ScoredReference) string {
	ref := s.Reference
	var b strings.Builder
	b.WriteString(ref.Name)
	if len(s.MatchedTags) == 0 {
		b.WriteString(" has no tags in common with this goal")
	} else {
		fmt.Fprintf(&b, " matches %d of your target areas (%s)", len(s.MatchedTags), strings.Join(s.MatchedTags, ", "))
	}
	if ref.UsageCount == 0 {
		b.WriteString(" and has not been asked for a reference yet.")
	} else {
		fmt.Fprintf(&b, " and came through on %d of %d past requests.", ref.SuccessCount, ref.UsageCount)
	}
	if ref.AvailabilityStatus == models.Limited {
		b.WriteString(" Availability is limited.")
	}
	return b.String()
}
