// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psoarchive

package source

import (
	"errors"
	"fmt"
)

// ErrEmptySpec means an empty source path was given.
var ErrEmptySpec = errors.New("empty source path")

// MemberNotFoundError reports a member missing from a container archive.
type MemberNotFoundError struct {
	Archive string
	Member  string
}

func (e MemberNotFoundError) Error() string {
	return fmt.Sprintf("member %q not found in %s", e.Member, e.Archive)
}
