// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psoarchive

package psoarchive

import (
	"fmt"
	"strings"

	"github.com/woozymasta/pathrules"
	"github.com/woozymasta/psoarchive/prs"
)

// nameMatcher holds compiled name rules used for compression candidates and extract filters.
type nameMatcher struct {
	matcher *pathrules.Matcher
}

// newNameMatcher compiles name rules. It returns nil matcher for empty rule set.
func newNameMatcher(rules []pathrules.Rule, opts pathrules.MatcherOptions) (*nameMatcher, error) {
	rules = normalizeNameRules(rules)
	if len(rules) == 0 {
		return nil, nil
	}

	matcher, err := pathrules.NewMatcher(rules, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: compile rules: %w", ErrInvalidCompressPattern, err)
	}

	return &nameMatcher{matcher: matcher}, nil
}

// normalizeNameRules trims patterns and drops empty ones.
func normalizeNameRules(rules []pathrules.Rule) []pathrules.Rule {
	normalized := make([]pathrules.Rule, 0, len(rules))
	for _, rule := range rules {
		pattern := strings.TrimSpace(strings.ReplaceAll(rule.Pattern, `\`, `/`))
		if pattern == "" {
			continue
		}

		normalized = append(normalized, pathrules.Rule{
			Action:  rule.Action,
			Pattern: pattern,
		})
	}

	return normalized
}

// Match reports whether name is included by the rules.
func (m *nameMatcher) Match(name string) bool {
	if m == nil || m.matcher == nil {
		return false
	}

	name = EntryName(name)
	if name == "" {
		return false
	}

	return m.matcher.Included(name, false)
}

// shouldCompressInput reports whether input payload is stored PRS-compressed.
func shouldCompressInput(format Format, matcher *nameMatcher, name string) bool {
	if format == FormatBML {
		return true
	}

	return matcher.Match(name)
}

// compressPRS compresses raw payload bounded by the in-memory limit.
func compressPRS(name string, raw []byte, limit uint32) ([]byte, error) {
	if uint64(len(raw)) > uint64(limit) {
		return nil, fmt.Errorf("%w: %s is %d bytes, compression limit %d", ErrSizeOverflow, name, len(raw), limit)
	}

	return prs.Compress(raw), nil
}
