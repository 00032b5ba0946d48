// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psoarchive

package psoarchive

import (
	"fmt"

	"github.com/woozymasta/pathrules"
)

// selectEntries applies Entries, Targets and Filter of extract options.
// Every target must match at least one entry.
func (r *Reader) selectEntries(opts ExtractOptions) ([]EntryInfo, error) {
	entries := r.entries
	if opts.Entries != nil {
		entries = opts.Entries
	}

	entries, err := filterEntriesByTargets(r.format, entries, opts.Targets)
	if err != nil {
		return nil, err
	}

	return filterEntriesByRules(entries, opts.Filter)
}

// filterEntriesByTargets keeps entries addressed by any of targets; empty targets keep all.
func filterEntriesByTargets(format Format, entries []EntryInfo, targets []string) ([]EntryInfo, error) {
	if len(targets) == 0 {
		return entries, nil
	}

	hit := make([]bool, len(targets))
	out := make([]EntryInfo, 0, len(targets))
	for i := range entries {
		matched := false
		for t, target := range targets {
			if matchTarget(format, &entries[i], target) {
				hit[t] = true
				matched = true
			}
		}

		if matched {
			out = append(out, entries[i])
		}
	}

	for t, ok := range hit {
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, targets[t])
		}
	}

	return out, nil
}

// filterEntriesByRules keeps entries whose names pass pathrules filter.
// Rule sets with any include rule default to exclude, pure exclude sets default to include.
func filterEntriesByRules(entries []EntryInfo, rules []pathrules.Rule) ([]EntryInfo, error) {
	if len(rules) == 0 {
		return entries, nil
	}

	defaultAction := pathrules.ActionInclude
	for _, rule := range rules {
		if rule.Action == pathrules.ActionInclude {
			defaultAction = pathrules.ActionExclude
			break
		}
	}

	matcher, err := newNameMatcher(rules, pathrules.MatcherOptions{
		CaseInsensitive: true,
		DefaultAction:   defaultAction,
	})
	if err != nil {
		return nil, err
	}
	if matcher == nil {
		return entries, nil
	}

	out := make([]EntryInfo, 0, len(entries))
	for i := range entries {
		name := entries[i].Name
		if name == "" {
			name = fmt.Sprintf("%d", entries[i].Index)
		}

		if matcher.Match(name) {
			out = append(out, entries[i])
		}
	}

	return out, nil
}
