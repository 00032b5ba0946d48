// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psoarchive

/*
Package psoarchive provides read, list, extract, create and edit operations for
the AFS, GSL and BML archive containers of Phantasy Star Online. Payload
compression uses the PRS codec from the prs subpackage; PRSD files are handled
by the prsd subpackage.

Supported layouts:
  - FormatAFS: "AFS\0" magic, index-only table, fixed 0x80000 table region, 2048-byte alignment;
  - FormatAFSNamed: AFS with a trailing name table and computed table region;
  - FormatGSL: 48-byte name records, offsets in 2048-byte sectors, big or little endian;
  - FormatBML: 64-byte records, PRS payloads padded to 32 bytes, optional texture (aux) payload.

Edit rules (summary):
  - archives are never modified in place: every change rebuilds the archive into
    a temporary file next to it, which is synced and renamed over the original;
  - capacity (MaxEntries) and names are validated before any byte is written;
  - untouched entries are copied byte for byte;
  - BML payloads are always PRS-compressed, AFS/GSL payloads only when
    PackOptions.Compress rules include the entry name.

# Reading

Open an archive and walk its entries:

	r, err := psoarchive.Open("data.gsl", psoarchive.FormatAuto)
	if err != nil {
	    return err
	}
	defer r.Close()
	_, err = r.ForEachEntry(func(e psoarchive.EntryInfo, payload *io.SectionReader) error {
	    // payload holds stored bytes of e
	    return nil
	})

Or with a range loop:

	for e, payload := range r.All() {
	    _, _ = e, payload
	}

BML payloads are PRS streams with declared size:

	data, err := r.ReadEntryDecoded(entry)
	if err != nil {
	    return err
	}
	_ = data

# Extracting

	err := r.Extract(ctx, "out", psoarchive.ExtractOptions{
	    Decompress: true,
	    Targets:    []string{"boss1_s_nb_dragon.xj"},
	})

# Creating and editing

	_, err := psoarchive.Create(ctx, "new.afs", psoarchive.FormatAFS, inputs, psoarchive.PackOptions{})

Staged edits are applied in one rewrite:

	ed, err := psoarchive.OpenEditor("data.bml", psoarchive.EditOptions{BackupKeep: 1})
	if err != nil {
	    return err
	}
	_ = ed.Replace("model.nj", psoarchive.Input{Open: openModel})
	_ = ed.Delete("unused.nj")
	res, err := ed.Commit(ctx)
	_ = res

PRS compression of AFS/GSL entries is opt-in through pathrules:

	opts := psoarchive.PackOptions{
	    Compress: []pathrules.Rule{
	        {Action: pathrules.ActionInclude, Pattern: "*.bin"},
	    },
	}
*/
package psoarchive
