// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"sort"
	"strings"
	"sync"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// FuzzyResult is the outcome of matching one text against a pattern.
// Score is zero when the pattern does not match. Positions holds the
// rune offsets of matched characters in ascending order.
type FuzzyResult struct {
	Score     int
	Positions []int
}

// initScheme fills fzf's character classes and bonus tables, which
// stay zeroed until Init runs.
var initScheme = sync.OnceFunc(func() { algo.Init("default") })

// FuzzyMatch scores text against pattern with fzf's V2 algorithm.
// Matching is case-insensitive. slab may be nil; pass one from
// util.MakeSlab when matching many candidates in a loop.
func FuzzyMatch(text string, pattern []rune, slab *util.Slab) FuzzyResult {
	if len(pattern) == 0 {
		return FuzzyResult{}
	}
	initScheme()
	lowered := []rune(strings.ToLower(string(pattern)))
	chars := util.ToChars([]byte(text))
	result, positions := algo.FuzzyMatchV2(false, true, true, &chars, lowered, true, slab)
	if result.Start < 0 || result.Score <= 0 {
		return FuzzyResult{}
	}
	var matched []int
	if positions != nil {
		matched = append(matched, (*positions)...)
		sort.Ints(matched)
	}
	return FuzzyResult{Score: result.Score, Positions: matched}
}

// Ranked is a candidate that matched a pattern.
type Ranked struct {
	Text string
	FuzzyResult
}

// Rank returns the candidates matching pattern, best score first. Ties
// keep their input order. An empty pattern returns every candidate with
// a zero score.
func Rank(candidates []string, pattern string) []Ranked {
	pattern = strings.TrimSpace(pattern)
	ranked := make([]Ranked, 0, len(candidates))
	if pattern == "" {
		for _, candidate := range candidates {
			ranked = append(ranked, Ranked{Text: candidate})
		}
		return ranked
	}

	runes := []rune(pattern)
	slab := util.MakeSlab(100*1024, 2048)
	for _, candidate := range candidates {
		result := FuzzyMatch(candidate, runes, slab)
		if result.Score > 0 {
			ranked = append(ranked, Ranked{Text: candidate, FuzzyResult: result})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	return ranked
}
