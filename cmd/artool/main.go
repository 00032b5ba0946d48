// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psoarchive

// Command artool lists, extracts, creates and edits PSO archives (AFS, GSL, BML)
// and compresses single files with PRS or PRSD.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/woozymasta/pathrules"
	"github.com/woozymasta/psoarchive"
	"github.com/woozymasta/psoarchive/internal/source"
	"github.com/woozymasta/psoarchive/prs"
	"github.com/woozymasta/psoarchive/prsd"
)

const appVersion = "0.1.0"

var errUsage = errors.New("invalid usage")

// archiveKind maps a type flag onto archive format and byte order.
type archiveKind struct {
	format psoarchive.Format
	endian psoarchive.Endian
}

var archiveKinds = map[string]archiveKind{
	"afs":        {format: psoarchive.FormatAFS},
	"afs2":       {format: psoarchive.FormatAFSNamed},
	"gsl":        {format: psoarchive.FormatGSL},
	"gsl-big":    {format: psoarchive.FormatGSL, endian: psoarchive.EndianBig},
	"gsl-little": {format: psoarchive.FormatGSL, endian: psoarchive.EndianLittle},
	"bml":        {format: psoarchive.FormatBML},
}

var prsdKinds = map[string]prsd.Endian{
	"prsd":        prsd.EndianAuto,
	"prsd-big":    prsd.EndianBig,
	"prsd-little": prsd.EndianLittle,
	"prc":         prsd.EndianAuto,
	"prc-big":     prsd.EndianBig,
	"prc-little":  prsd.EndianLittle,
}

// command is one parsed invocation.
type command struct {
	logger   *slog.Logger
	stdout   io.Writer
	kind     string
	op       string
	dir      string
	key      string
	args     []string
	compress []string
	workers  int
	backup   int
	verbose  bool
	rawNames bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Run '%s --help' for usage.\n", filepath.Base(os.Args[0]))
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) error {
	if len(args) == 0 {
		usage(stderr)
		return fmt.Errorf("%w: missing type and operation", errUsage)
	}

	switch args[0] {
	case "--help", "-help", "-h":
		usage(stdout)
		return nil
	case "--version", "-version":
		fmt.Fprintf(stdout, "artool version %s\n", appVersion)
		return nil
	}

	if len(args) < 2 {
		return fmt.Errorf("%w: missing operation after %s", errUsage, args[0])
	}

	cmd := &command{
		kind:   strings.TrimLeft(args[0], "-"),
		op:     strings.TrimLeft(args[1], "-"),
		stdout: stdout,
	}

	fs := flag.NewFlagSet("artool", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cmd.dir, "C", ".", "output directory for extraction")
	fs.StringVar(&cmd.key, "key", "", "PRSD key (decimal or 0x hex), random when empty")
	fs.IntVar(&cmd.workers, "workers", 0, "extract workers (0 = one)")
	fs.IntVar(&cmd.backup, "backup", 0, "backup generations kept on edit")
	fs.BoolVar(&cmd.verbose, "v", false, "log per-entry progress")
	fs.BoolVar(&cmd.rawNames, "raw-names", false, "keep entry names unsanitized on extract")
	fs.Func("compress", "PRS compress entries matching pattern (AFS/GSL, repeatable)", func(value string) error {
		cmd.compress = append(cmd.compress, value)
		return nil
	})

	positional, err := parseInterspersed(fs, args[2:])
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	cmd.args = positional

	handler := slog.DiscardHandler
	if cmd.verbose {
		handler = slog.NewTextHandler(stderr, nil)
	}
	cmd.logger = slog.New(handler)

	if kind, ok := archiveKinds[cmd.kind]; ok {
		return cmd.runArchive(ctx, kind)
	}
	if cmd.kind == "prs" {
		return cmd.runPRS()
	}
	if endian, ok := prsdKinds[cmd.kind]; ok {
		return cmd.runPRSD(endian)
	}

	return fmt.Errorf("%w: unknown type %s", errUsage, args[0])
}

func (c *command) runArchive(ctx context.Context, kind archiveKind) error {
	switch c.op {
	case "t":
		if err := c.needArgs(1, 1); err != nil {
			return err
		}
		return c.list(kind)

	case "x", "xd":
		if err := c.needArgs(1, -1); err != nil {
			return err
		}
		return c.extract(ctx, kind, c.args[1:], c.op == "xd")

	case "xs", "xsd":
		if err := c.needArgs(2, 2); err != nil {
			return err
		}
		return c.extract(ctx, kind, c.args[1:], c.op == "xsd")

	case "c":
		if err := c.needArgs(2, -1); err != nil {
			return err
		}
		inputs, err := source.Inputs(c.args[1:])
		if err != nil {
			return err
		}
		opts := c.packOptions(kind)
		res, err := psoarchive.Create(ctx, c.args[0], kind.format, inputs, opts)
		return c.logResult("create", res, err)

	case "r":
		if err := c.needArgs(2, -1); err != nil {
			return err
		}
		inputs, err := source.Inputs(c.args[1:])
		if err != nil {
			return err
		}
		res, err := psoarchive.Append(ctx, c.args[0], inputs, c.editOptions(kind))
		return c.logResult("append", res, err)

	case "u", "up":
		if err := c.needArgs(3, 3); err != nil {
			return err
		}
		src, err := source.Open(c.args[2])
		if err != nil {
			return err
		}

		// empty name keeps the stored entry name
		in := src.Input("")
		in.Name = ""

		update := psoarchive.Update
		if c.op == "up" {
			update = psoarchive.UpdateAux
		}
		res, err := update(ctx, c.args[0], c.args[1], in, c.editOptions(kind))
		return c.logResult("update", res, err)

	case "delete":
		if err := c.needArgs(2, -1); err != nil {
			return err
		}
		res, err := psoarchive.Delete(ctx, c.args[0], c.args[1:], c.editOptions(kind))
		return c.logResult("delete", res, err)
	}

	return fmt.Errorf("%w: unknown operation -%s for --%s", errUsage, c.op, c.kind)
}

func (c *command) list(kind archiveKind) error {
	r, err := psoarchive.OpenWithOptions(c.args[0], psoarchive.ReaderOptions{
		Format: kind.format,
		Endian: kind.endian,
	})
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	return r.WriteListing(c.stdout)
}

func (c *command) extract(ctx context.Context, kind archiveKind, targets []string, decompress bool) error {
	r, err := psoarchive.OpenWithOptions(c.args[0], psoarchive.ReaderOptions{
		Format: kind.format,
		Endian: kind.endian,
	})
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	return r.Extract(ctx, c.dir, psoarchive.ExtractOptions{
		Targets:    targets,
		MaxWorkers: c.workers,
		Decompress: decompress,
		RawNames:   c.rawNames,
		OnEntryDone: func(entry psoarchive.EntryInfo, written int64, outputPath string) {
			c.logger.Info("extracted", "index", entry.Index, "name", entry.Name, "bytes", written, "path", outputPath)
		},
	})
}

func (c *command) packOptions(kind archiveKind) psoarchive.PackOptions {
	rules := make([]pathrules.Rule, 0, len(c.compress))
	for _, pattern := range c.compress {
		rules = append(rules, pathrules.Rule{Action: pathrules.ActionInclude, Pattern: pattern})
	}

	return psoarchive.PackOptions{
		Compress: rules,
		Endian:   kind.endian,
		OnEntryDone: func(p psoarchive.PackEntryProgress) {
			c.logger.Info("packed",
				"index", p.Index,
				"name", p.Name,
				"size", p.Size,
				"copied", p.Copied,
				"compressed", p.Compressed,
			)
		},
	}
}

func (c *command) editOptions(kind archiveKind) psoarchive.EditOptions {
	return psoarchive.EditOptions{
		PackOptions: c.packOptions(kind),
		Format:      kind.format,
		Endian:      kind.endian,
		BackupKeep:  c.backup,
	}
}

func (c *command) logResult(op string, res *psoarchive.PackResult, err error) error {
	if err != nil {
		return err
	}

	c.logger.Info(op,
		"entries", res.WrittenEntries,
		"copied", res.CopiedEntries,
		"compressed", res.CompressedEntries,
		"header_size", res.HeaderSize,
		"data_size", res.DataSize,
		"duration", res.Duration,
	)

	return nil
}

// runPRS handles "-x input [output]" and "-c output input".
func (c *command) runPRS() error {
	switch c.op {
	case "x":
		if err := c.needArgs(1, 2); err != nil {
			return err
		}
		out := c.defaultOutput()
		if err := ensureParentDir(out); err != nil {
			return err
		}
		n, err := prs.DecompressFile(c.args[0], out)
		if err != nil {
			return err
		}
		c.logger.Info("decompressed", "input", c.args[0], "output", out, "bytes", n)
		return nil

	case "c":
		if err := c.needArgs(2, 2); err != nil {
			return err
		}
		data, err := readSource(c.args[1])
		if err != nil {
			return err
		}
		packed := prs.Compress(data)
		if err := writeOutput(c.args[0], packed); err != nil {
			return err
		}
		c.logger.Info("compressed", "input", c.args[1], "output", c.args[0], "bytes", len(packed))
		return nil
	}

	return fmt.Errorf("%w: unknown operation -%s for --prs", errUsage, c.op)
}

// runPRSD handles "-x input [output]" and "-c output input".
func (c *command) runPRSD(endian prsd.Endian) error {
	switch c.op {
	case "x":
		if err := c.needArgs(1, 2); err != nil {
			return err
		}
		out := c.defaultOutput()
		if err := ensureParentDir(out); err != nil {
			return err
		}
		hdr, err := prsd.DecompressFile(c.args[0], out, endian)
		if err != nil {
			return err
		}
		c.logger.Info("decompressed",
			"input", c.args[0],
			"output", out,
			"bytes", hdr.Size,
			"key", fmt.Sprintf("0x%08x", hdr.Key),
			"endian", hdr.Endian,
		)
		return nil

	case "c":
		if err := c.needArgs(2, 2); err != nil {
			return err
		}
		key, err := c.prsdKey()
		if err != nil {
			return err
		}
		data, err := readSource(c.args[1])
		if err != nil {
			return err
		}
		packed, err := prsd.Compress(data, key, endian)
		if err != nil {
			return err
		}
		if err := writeOutput(c.args[0], packed); err != nil {
			return err
		}
		c.logger.Info("compressed", "input", c.args[1], "output", c.args[0], "bytes", len(packed), "key", fmt.Sprintf("0x%08x", key))
		return nil
	}

	return fmt.Errorf("%w: unknown operation -%s for --%s", errUsage, c.op, c.kind)
}

func (c *command) prsdKey() (uint32, error) {
	if c.key == "" {
		return prsd.NewKey()
	}

	key, err := strconv.ParseUint(c.key, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", psoarchive.ErrInvalidArgument, err)
	}

	return uint32(key), nil
}

// defaultOutput returns the explicit output or "<input base>.bin" under -C.
func (c *command) defaultOutput() string {
	if len(c.args) > 1 {
		return c.args[1]
	}

	return filepath.Join(c.dir, filepath.Base(c.args[0])+".bin")
}

// needArgs checks positional count; max < 0 means unbounded.
func (c *command) needArgs(minArgs int, maxArgs int) error {
	n := len(c.args)
	if n < minArgs || (maxArgs >= 0 && n > maxArgs) {
		return fmt.Errorf("%w: wrong number of arguments for --%s -%s", errUsage, c.kind, c.op)
	}

	return nil
}

func readSource(spec string) ([]byte, error) {
	src, err := source.Open(spec)
	if err != nil {
		return nil, err
	}

	return src.ReadAll()
}

func writeOutput(path string, data []byte) error {
	if err := ensureParentDir(path); err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	return nil
}

// parseInterspersed parses options placed anywhere after the operation.
// Everything after "--" is positional.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}

		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		if consumed := len(args) - len(rest); consumed > 0 && args[consumed-1] == "--" {
			return append(positional, rest...), nil
		}

		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: artool <type> <operation> [options] archive [args...]\n\n")
	fmt.Fprintf(w, "Types:\n")
	fmt.Fprintf(w, "  --afs, --afs2              AFS archive, --afs2 with name table\n")
	fmt.Fprintf(w, "  --gsl, --gsl-big, --gsl-little\n")
	fmt.Fprintf(w, "                             GSL archive (auto endian on read, big on create)\n")
	fmt.Fprintf(w, "  --bml                      BML archive\n")
	fmt.Fprintf(w, "  --prs                      PRS compressed file\n")
	fmt.Fprintf(w, "  --prsd, --prsd-big, --prsd-little\n")
	fmt.Fprintf(w, "                             PRSD encrypted file\n\n")
	fmt.Fprintf(w, "Archive operations:\n")
	fmt.Fprintf(w, "  -t archive                 list entries\n")
	fmt.Fprintf(w, "  -x archive [entries...]    extract entries as stored\n")
	fmt.Fprintf(w, "  -xd archive [entries...]   extract and decompress entries\n")
	fmt.Fprintf(w, "  -xs archive entry          extract one entry as stored\n")
	fmt.Fprintf(w, "  -xsd archive entry         extract and decompress one entry\n")
	fmt.Fprintf(w, "  -c archive files...        create archive\n")
	fmt.Fprintf(w, "  -r archive files...        append files\n")
	fmt.Fprintf(w, "  -u archive entry file      replace entry payload\n")
	fmt.Fprintf(w, "  -up archive entry file     replace BML texture payload\n")
	fmt.Fprintf(w, "  --delete archive entries...\n")
	fmt.Fprintf(w, "                             delete entries\n\n")
	fmt.Fprintf(w, "PRS/PRSD operations:\n")
	fmt.Fprintf(w, "  -x input [output]          decompress (default output <input>.bin)\n")
	fmt.Fprintf(w, "  -c output input            compress\n\n")
	fmt.Fprintf(w, "AFS entries are addressed by index. Files may be read from\n")
	fmt.Fprintf(w, "pack.zip/member, pack.7z/member, pack.rar/member or .gz/.zst/.xz/.lzma streams.\n\n")
	fmt.Fprintf(w, "Options may appear anywhere after the operation; \"--\" ends them.\n")
	fmt.Fprintf(w, "  -C dir          output directory for extraction\n")
	fmt.Fprintf(w, "  -compress pat   PRS compress matching entries (AFS/GSL, repeatable)\n")
	fmt.Fprintf(w, "  -key value      PRSD key\n")
	fmt.Fprintf(w, "  -workers n      extract workers\n")
	fmt.Fprintf(w, "  -backup n       backup generations kept on edit\n")
	fmt.Fprintf(w, "  -raw-names      keep entry names unsanitized\n")
	fmt.Fprintf(w, "  -v              log progress to stderr\n")
}
