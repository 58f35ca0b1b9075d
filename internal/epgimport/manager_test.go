// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package epgimport

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func read(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestUpsertCreatesAndReplaces(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)
	ctx := context.Background()
	require.True(t, m.Available())

	require.NoError(t, m.Upsert(ctx, "ex", m.ChannelsPath("ex"), "http://ex.com:80/xmltv.php?username=u&password=p"))
	require.NoError(t, m.Upsert(ctx, "other", m.ChannelsPath("other"), "http://o/xmltv.php"))
	require.NoError(t, m.Upsert(ctx, "ex", m.ChannelsPath("ex"), "http://ex.com:80/xmltv.php?username=u&password=p&next_days=2"))

	doc := read(t, m.SourcesPath())
	assert.True(t, strings.HasPrefix(doc, `<?xml version="1.0" encoding="utf-8"?>`))
	assert.Equal(t, 1, strings.Count(doc, "<description>ex</description>"))
	assert.Equal(t, 1, strings.Count(doc, `sourcecatname="BouquetMakerXtream EPG"`))
	assert.Contains(t, doc, "&amp;next_days=2</url>")
	assert.Contains(t, doc, "\n\t<sourcecat ")
	assert.NotContains(t, doc, "\n\n")
	assert.Less(t, strings.Index(doc, "<description>other"), strings.Index(doc, "<description>ex"), "replaced entry is appended")
}

func TestUpsertKeepsForeignCategories(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)
	require.NoError(t, os.WriteFile(m.SourcesPath(), []byte(`<sources><sourcecat sourcecatname="Other"><source type="gen_xmltv" nocheck="1" channels="x.xml"><description>x</description><url>http://x</url></source></sourcecat></sources>`), 0o644))

	require.NoError(t, m.Upsert(context.Background(), "ex", m.ChannelsPath("ex"), "http://ex"))
	doc := read(t, m.SourcesPath())
	assert.Contains(t, doc, `sourcecatname="Other"`)
	assert.Contains(t, doc, "<description>x</description>")
	assert.Contains(t, doc, "<description>ex</description>")
}

func TestUpsertEmptyDocument(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)
	require.NoError(t, os.WriteFile(m.SourcesPath(), []byte("  \n"), 0o644))
	require.NoError(t, m.Upsert(context.Background(), "ex", "c.xml", "http://ex"))
	assert.Contains(t, read(t, m.SourcesPath()), "<description>ex</description>")
}

func TestMalformedDocument(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)
	require.NoError(t, os.WriteFile(m.SourcesPath(), []byte("<sources><sourcecat>"), 0o644))
	err := m.Upsert(context.Background(), "ex", "c.xml", "http://ex")
	assert.ErrorIs(t, err, ErrSourcesDocument)
}

func TestRemoveAndPurge(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)
	ctx := context.Background()

	require.NoError(t, m.Remove(ctx, "ex"), "missing registry")
	require.NoError(t, m.Upsert(ctx, "ex", m.ChannelsPath("ex"), "http://ex"))
	require.NoError(t, m.WriteChannels(ctx, m.ChannelsPath("ex"), []string{"\t<channel id=\"a\">1:0:1</channel><!-- A -->\n"}))

	require.NoError(t, m.Remove(ctx, "ex"))
	assert.NotContains(t, read(t, m.SourcesPath()), "<description>ex</description>")

	removed, err := m.Purge("ex")
	require.NoError(t, err)
	assert.Equal(t, []string{"bouquetmakerxtream.ex.channels.xml"}, removed)
	assert.FileExists(t, m.SourcesPath())
}

func TestWriteChannels(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)
	path := filepath.Join(dir, "bouquetmakerxtream.ex.channels.xml")
	frag := "\t<channel id=\"a&amp;b\">1:0:1:1:1171:1f4:0:0:0:0:http%3a//example.m3u8</channel><!-- A -->\n"

	require.NoError(t, m.WriteChannels(context.Background(), path, []string{frag}))
	assert.Equal(t, `<?xml version="1.0" encoding="utf-8"?>`+"\n<channels>\n"+frag+"</channels>\n", read(t, path))
}

func TestAvailable(t *testing.T) {
	assert.False(t, NewManager(filepath.Join(t.TempDir(), "missing")).Available())
	assert.False(t, NewManager("").Available())
}

func TestIndentXMLIsStable(t *testing.T) {
	in := []byte(`<?xml version="1.0" encoding="utf-8"?>` + "\n" +
		`<sources><sourcecat sourcecatname="X"><source type="gen_xmltv" nocheck="1" channels="c.xml"><description>ex</description><url>http://e/?a=1&amp;b=2</url></source></sourcecat></sources>`)
	want := `<?xml version="1.0" encoding="utf-8"?>
<sources>
	<sourcecat sourcecatname="X">
		<source type="gen_xmltv" nocheck="1" channels="c.xml">
			<description>ex</description>
			<url>http://e/?a=1&amp;b=2</url>
		</source>
	</sourcecat>
</sources>
`
	out, err := indentXML(in)
	require.NoError(t, err)
	assert.Equal(t, want, string(out))

	again, err := indentXML(out)
	require.NoError(t, err)
	assert.Equal(t, want, string(again))
}
