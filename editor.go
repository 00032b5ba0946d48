// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psoarchive

package psoarchive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Editor accumulates archive edit operations and applies them on Commit.
type Editor struct {
	path string
	ops  []editOperation
	opts EditOptions
}

// editOperation stores one staged editor operation.
type editOperation struct {
	input   *Input
	inputs  []Input
	targets []string
	kind    editOperationKind
}

// editOperationKind identifies staged edit action type.
type editOperationKind uint8

const (
	// editOperationAdd appends new entries after existing ones.
	editOperationAdd editOperationKind = iota + 1
	// editOperationReplace rewrites primary payload of one entry.
	editOperationReplace
	// editOperationReplaceAux rewrites auxiliary payload of one entry.
	editOperationReplaceAux
	// editOperationDelete removes entries.
	editOperationDelete
)

// editState is one table slot while staged operations are applied.
type editState struct {
	// origin is source entry the slot came from; nil for added entries.
	origin *EntryInfo
	item   rewriteEntry
}

// OpenEditor creates staged editor for file-based archive rewrite workflow.
func OpenEditor(path string, opts EditOptions) (*Editor, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return nil, fmt.Errorf("%w: empty archive path", ErrInvalidArgument)
	}

	opts.applyDefaults()

	return &Editor{
		path: trimmedPath,
		opts: opts,
		ops:  make([]editOperation, 0, 4),
	}, nil
}

// Add schedules appending new entries after existing ones.
func (e *Editor) Add(inputs ...Input) error {
	if e == nil {
		return ErrNilReader
	}

	if len(inputs) == 0 {
		return nil
	}

	staged := make([]Input, len(inputs))
	copy(staged, inputs)
	e.ops = append(e.ops, editOperation{kind: editOperationAdd, inputs: staged})

	return nil
}

// Replace schedules replacing primary payload of the entry addressed by target.
// The entry keeps its name unless in.Name is set.
func (e *Editor) Replace(target string, in Input) error {
	return e.stageReplace(editOperationReplace, target, in)
}

// ReplaceAux schedules replacing auxiliary payload of a BML entry addressed by target.
func (e *Editor) ReplaceAux(target string, in Input) error {
	return e.stageReplace(editOperationReplaceAux, target, in)
}

// stageReplace records one replace-like operation.
func (e *Editor) stageReplace(kind editOperationKind, target string, in Input) error {
	if e == nil {
		return ErrNilReader
	}
	if strings.TrimSpace(target) == "" {
		return fmt.Errorf("%w: empty target", ErrInvalidArgument)
	}

	staged := in
	e.ops = append(e.ops, editOperation{kind: kind, targets: []string{target}, input: &staged})

	return nil
}

// Delete schedules removal of entries addressed by targets.
func (e *Editor) Delete(targets ...string) error {
	if e == nil {
		return ErrNilReader
	}

	if len(targets) == 0 {
		return nil
	}

	staged := make([]string, len(targets))
	copy(staged, targets)
	e.ops = append(e.ops, editOperation{kind: editOperationDelete, targets: staged})

	return nil
}

// Commit applies all staged operations in one rewrite transaction.
// The archive is rebuilt in a temporary file next to it and renamed over the original;
// on any failure the temporary file is removed and the original stays untouched.
func (e *Editor) Commit(ctx context.Context) (*PackResult, error) {
	if e == nil {
		return nil, ErrNilReader
	}

	if ctx == nil {
		ctx = context.Background()
	}

	src, err := OpenWithOptions(e.path, ReaderOptions{Format: e.opts.Format, Endian: e.opts.Endian})
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()

	plan, err := buildEditPlan(src, e.ops)
	if err != nil {
		return nil, err
	}

	if err := validateRewritePlan(src.format, plan); err != nil {
		return nil, err
	}

	mode := os.FileMode(0o644)
	if fi, statErr := src.file.Stat(); statErr == nil {
		mode = fi.Mode().Perm()
	}

	layout := tableLayout{format: src.format, endian: src.endian}
	var res *PackResult
	err = publishArchive(e.path, mode, e.opts.BackupKeep, func(f *os.File) error {
		var buildErr error
		res, buildErr = rewriteArchive(ctx, f, src.ra, layout, plan, e.opts.PackOptions)
		if buildErr != nil {
			return buildErr
		}

		return src.Close()
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

// buildEditPlan applies staged operations to source entries and builds final write plan.
// Table order is kept; added entries go last.
func buildEditPlan(src *Reader, ops []editOperation) ([]rewriteEntry, error) {
	state := make([]editState, len(src.entries))
	for i := range src.entries {
		entry := &src.entries[i]
		state[i] = editState{
			origin: entry,
			item: rewriteEntry{
				source:    entry,
				auxSource: auxSourceOf(entry),
				name:      entry.Name,
				flags:     entry.Flags,
				modTime:   entry.ModTime,
			},
		}
	}

	var err error
	for _, op := range ops {
		switch op.kind {
		case editOperationAdd:
			state = applyEditAdd(state, op.inputs)
		case editOperationReplace:
			err = applyEditReplace(src.format, state, op.targets[0], op.input)
		case editOperationReplaceAux:
			err = applyEditReplaceAux(src.format, state, op.targets[0], op.input)
		case editOperationDelete:
			state, err = applyEditDelete(src.format, state, op.targets)
		default:
			err = fmt.Errorf("unknown edit operation kind: %d", op.kind)
		}
		if err != nil {
			return nil, err
		}
	}

	plan := make([]rewriteEntry, len(state))
	for i := range state {
		plan[i] = state[i].item
	}

	return plan, nil
}

// auxSourceOf returns entry when it carries aux payload to copy.
func auxSourceOf(entry *EntryInfo) *EntryInfo {
	if entry.HasAux() {
		return entry
	}

	return nil
}

// findEditState returns position of the slot addressed by target, or -1.
// Slots are matched by their source entry so index targets keep pointing at original positions.
func findEditState(format Format, state []editState, target string) int {
	for i := range state {
		if format.Named() {
			if state[i].item.name == target {
				return i
			}

			continue
		}

		if state[i].origin != nil && matchTarget(format, state[i].origin, target) {
			return i
		}
	}

	return -1
}

// applyEditAdd appends new entries.
func applyEditAdd(state []editState, inputs []Input) []editState {
	for i := range inputs {
		in := &inputs[i]
		state = append(state, editState{
			item: rewriteEntry{
				input:    in,
				auxInput: in.Aux,
				name:     in.Name,
				flags:    in.Flags,
				modTime:  in.ModTime,
			},
		})
	}

	return state
}

// applyEditReplace swaps primary payload of target slot and fails on missing target.
func applyEditReplace(format Format, state []editState, target string, in *Input) error {
	idx := findEditState(format, state, target)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, target)
	}

	item := &state[idx].item
	item.input = in
	item.source = nil
	if in.Name != "" {
		item.name = in.Name
	}
	if !in.ModTime.IsZero() {
		item.modTime = in.ModTime
	}
	if in.Aux != nil {
		item.auxInput = in.Aux
		item.auxSource = nil
	}

	return nil
}

// applyEditReplaceAux swaps auxiliary payload of target slot.
func applyEditReplaceAux(format Format, state []editState, target string, in *Input) error {
	if format != FormatBML {
		return fmt.Errorf("%w: %s entries carry no auxiliary payload", ErrInvalidArgument, format)
	}

	idx := findEditState(format, state, target)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, target)
	}

	item := &state[idx].item
	item.auxInput = in
	item.auxSource = nil

	return nil
}

// applyEditDelete drops slots addressed by targets; every target must match.
func applyEditDelete(format Format, state []editState, targets []string) ([]editState, error) {
	drop := make([]bool, len(state))
	for _, target := range targets {
		matched := false
		for i := range state {
			if format.Named() && state[i].item.name == target ||
				!format.Named() && state[i].origin != nil && matchTarget(format, state[i].origin, target) {
				drop[i] = true
				matched = true
			}
		}

		if !matched {
			return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, target)
		}
	}

	kept := state[:0]
	for i := range state {
		if !drop[i] {
			kept = append(kept, state[i])
		}
	}

	return kept, nil
}

// Create writes a new archive of format at path from inputs in the given order.
// Capacity and names are validated before anything touches the file system.
func Create(ctx context.Context, path string, format Format, inputs []Input, opts PackOptions) (*PackResult, error) {
	if len(inputs) == 0 {
		return nil, ErrEmptyInputs
	}
	if format == FormatAuto {
		return nil, fmt.Errorf("%w: format must be set for create", ErrUnknownFormat)
	}
	if tableHeaderSize(format, 0) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	if ctx == nil {
		ctx = context.Background()
	}

	plan, err := preparePackRewritePlan(format, inputs)
	if err != nil {
		return nil, err
	}

	mode := os.FileMode(0o644)
	if fi, statErr := os.Stat(path); statErr == nil {
		mode = fi.Mode().Perm()
	}

	layout := tableLayout{format: format, endian: opts.Endian.Resolve(EndianBig)}
	var res *PackResult
	err = publishArchive(path, mode, 0, func(f *os.File) error {
		var buildErr error
		res, buildErr = rewriteArchive(ctx, f, nil, layout, plan, opts)
		return buildErr
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

// Append adds inputs after the existing entries of the archive at path.
func Append(ctx context.Context, path string, inputs []Input, opts EditOptions) (*PackResult, error) {
	if len(inputs) == 0 {
		return nil, ErrEmptyInputs
	}

	editor, err := OpenEditor(path, opts)
	if err != nil {
		return nil, err
	}
	if err := editor.Add(inputs...); err != nil {
		return nil, err
	}

	return editor.Commit(ctx)
}

// Update replaces primary payload of the entry addressed by target.
func Update(ctx context.Context, path string, target string, in Input, opts EditOptions) (*PackResult, error) {
	editor, err := OpenEditor(path, opts)
	if err != nil {
		return nil, err
	}
	if err := editor.Replace(target, in); err != nil {
		return nil, err
	}

	return editor.Commit(ctx)
}

// UpdateAux replaces auxiliary payload of the BML entry addressed by target.
func UpdateAux(ctx context.Context, path string, target string, in Input, opts EditOptions) (*PackResult, error) {
	editor, err := OpenEditor(path, opts)
	if err != nil {
		return nil, err
	}
	if err := editor.ReplaceAux(target, in); err != nil {
		return nil, err
	}

	return editor.Commit(ctx)
}

// Delete removes entries addressed by targets from the archive at path.
func Delete(ctx context.Context, path string, targets []string, opts EditOptions) (*PackResult, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: no delete targets", ErrInvalidArgument)
	}

	editor, err := OpenEditor(path, opts)
	if err != nil {
		return nil, err
	}
	if err := editor.Delete(targets...); err != nil {
		return nil, err
	}

	return editor.Commit(ctx)
}

// publishArchive builds archive content into a temporary file in the target directory,
// syncs it and renames it over path. With keep > 0 the previous file is rotated into backups.
func publishArchive(path string, mode os.FileMode, keep int, build func(f *os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temporary archive: %w", err)
	}

	tmpPath := tmp.Name()
	published := false
	defer func() {
		if !published {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err := build(tmp); err != nil {
		return err
	}

	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temporary archive: %w", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		return fmt.Errorf("chmod temporary archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temporary archive: %w", err)
	}

	backupPath := ""
	if keep > 0 {
		backupPath = path + ".bak"
		if err := prepareBackupSlot(backupPath, keep); err != nil {
			return err
		}
		if err := os.Rename(path, backupPath); err != nil {
			return fmt.Errorf("move archive to backup: %w", err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		if backupPath != "" {
			if rollbackErr := os.Rename(backupPath, path); rollbackErr != nil {
				return fmt.Errorf("publish archive: %w (restore backup failed: %v)", err, rollbackErr)
			}
		}

		return fmt.Errorf("publish archive: %w", err)
	}

	published = true
	return nil
}

// prepareBackupSlot rotates/removes existing backup generations before new commit.
func prepareBackupSlot(backupPath string, keep int) error {
	if keep < 0 {
		keep = 0
	}

	switch keep {
	case 0, 1:
		return removeIfExists(backupPath)
	default:
		oldest := fmt.Sprintf("%s.%d", backupPath, keep-1)
		if err := removeIfExists(oldest); err != nil {
			return err
		}

		for i := keep - 2; i >= 1; i-- {
			from := fmt.Sprintf("%s.%d", backupPath, i)
			to := fmt.Sprintf("%s.%d", backupPath, i+1)
			if err := renameIfExists(from, to); err != nil {
				return err
			}
		}

		return renameIfExists(backupPath, backupPath+".1")
	}
}

// renameIfExists renames source to destination when source exists.
func renameIfExists(from string, to string) error {
	_, err := os.Stat(from)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", from, err)
	}

	if err := removeIfExists(to); err != nil {
		return err
	}

	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("rename %s to %s: %w", from, to, err)
	}

	return nil
}

// removeIfExists removes file when present.
func removeIfExists(path string) error {
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) || err == nil {
		return nil
	}

	return fmt.Errorf("remove %s: %w", path, err)
}
