// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package epgimport maintains the EPG-Import source registry and the
// per playlist channel mapping documents.
package epgimport

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ManuGH/bouquetmaker/internal/fsutil"
	"github.com/ManuGH/bouquetmaker/internal/naming"
)

// ErrSourcesDocument marks a sources registry that could not be read,
// parsed or written.
var ErrSourcesDocument = errors.New("epg sources document")

const xmlHeader = `<?xml version="1.0" encoding="utf-8"?>` + "\n"

// maxSourcesSize bounds the registry read.
const maxSourcesSize = 8 << 20

type sourcesDoc struct {
	XMLName    xml.Name    `xml:"sources"`
	Categories []sourceCat `xml:"sourcecat"`
}

type sourceCat struct {
	Name    string   `xml:"sourcecatname,attr"`
	Sources []source `xml:"source"`
}

type source struct {
	Type        string `xml:"type,attr"`
	NoCheck     string `xml:"nocheck,attr"`
	Channels    string `xml:"channels,attr"`
	Description string `xml:"description"`
	URL         string `xml:"url"`
}

// Manager edits the documents in the EPG-Import directory.
type Manager struct {
	dir string
}

// NewManager returns a manager for dir (usually /etc/epgimport).
func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

// Available reports whether the EPG-Import directory exists.
func (m *Manager) Available() bool {
	if m == nil || m.dir == "" {
		return false
	}
	fi, err := os.Stat(m.dir)
	return err == nil && fi.IsDir()
}

// SourcesPath is the shared registry document.
func (m *Manager) SourcesPath() string {
	return filepath.Join(m.dir, naming.SourcesFile)
}

// ChannelsPath is the mapping document of one playlist.
func (m *Manager) ChannelsPath(safe string) string {
	return filepath.Join(m.dir, naming.ChannelsFile(safe))
}

// Upsert replaces the registry entry described by safe with one pointing at
// channelsPath and url. A missing or empty registry is created.
func (m *Manager) Upsert(ctx context.Context, safe, channelsPath, url string) error {
	doc, err := m.load()
	if err != nil {
		return err
	}
	doc.drop(safe)

	idx := -1
	for i, c := range doc.Categories {
		if c.Name == naming.SourceCategory {
			idx = i
			break
		}
	}
	if idx < 0 {
		doc.Categories = append(doc.Categories, sourceCat{Name: naming.SourceCategory})
		idx = len(doc.Categories) - 1
	}
	doc.Categories[idx].Sources = append(doc.Categories[idx].Sources, source{
		Type:        "gen_xmltv",
		NoCheck:     "1",
		Channels:    channelsPath,
		Description: safe,
		URL:         url,
	})
	return m.save(ctx, doc)
}

// Remove drops the registry entry of safe. A missing registry is not an error.
func (m *Manager) Remove(ctx context.Context, safe string) error {
	if _, err := os.Stat(m.SourcesPath()); os.IsNotExist(err) {
		return nil
	}
	doc, err := m.load()
	if err != nil {
		return err
	}
	if !doc.drop(safe) {
		return nil
	}
	return m.save(ctx, doc)
}

// Purge deletes every EPG file that belongs to safe.
func (m *Manager) Purge(safe string) ([]string, error) {
	return fsutil.Purge(m.dir, naming.EPGPrefix(safe))
}

// WriteChannels rewrites the mapping document at path with the given
// channel fragments.
func (m *Manager) WriteChannels(ctx context.Context, path string, fragments []string) error {
	return fsutil.WriteAtomic(ctx, path, func(w io.Writer) error {
		var b strings.Builder
		b.WriteString(xmlHeader)
		b.WriteString("<channels>\n")
		for _, f := range fragments {
			b.WriteString(f)
		}
		b.WriteString("</channels>\n")
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func (m *Manager) load() (*sourcesDoc, error) {
	doc := &sourcesDoc{}
	f, err := os.Open(m.SourcesPath())
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return nil, fmt.Errorf("%w: open: %v", ErrSourcesDocument, err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, maxSourcesSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", ErrSourcesDocument, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true
	dec.Entity = make(map[string]string)
	if err := dec.Decode(doc); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrSourcesDocument, err)
	}
	return doc, nil
}

// save writes the registry compactly and then runs a separate pretty-print
// pass over the file, so a document left by an interrupted save is still
// valid XML.
func (m *Manager) save(ctx context.Context, doc *sourcesDoc) error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrSourcesDocument, err)
	}
	out, err := xml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrSourcesDocument, err)
	}
	if err := fsutil.WriteFileAtomic(ctx, m.SourcesPath(), append([]byte(xmlHeader), out...)); err != nil {
		return fmt.Errorf("%w: %v", ErrSourcesDocument, err)
	}
	if err := prettyPrint(ctx, m.SourcesPath()); err != nil {
		return fmt.Errorf("%w: pretty print: %v", ErrSourcesDocument, err)
	}
	return nil
}

func prettyPrint(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	indented, err := indentXML(data)
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(ctx, path, indented)
}

// indentXML re-encodes data with one tab per level. Whitespace-only text
// between elements is dropped so repeated passes are stable.
func indentXML(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)

	dec := xml.NewDecoder(bytes.NewReader(data))
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "\t")
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.ProcInst:
			continue
		case xml.CharData:
			if len(bytes.TrimSpace(t)) == 0 {
				continue
			}
		}
		if err := enc.EncodeToken(tok); err != nil {
			return nil, err
		}
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// drop removes every source described by safe and reports whether any was found.
func (d *sourcesDoc) drop(safe string) bool {
	found := false
	for i := range d.Categories {
		kept := d.Categories[i].Sources[:0]
		for _, s := range d.Categories[i].Sources {
			if s.Description == safe {
				found = true
				continue
			}
			kept = append(kept, s)
		}
		d.Categories[i].Sources = kept
	}
	return found
}
