package adl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocumentScalars(t *testing.T) {
	root, err := ParseDocumentBytes([]byte(`
<core name="x">
  <width><int>0x20</int></width>
  <doc>plain text</doc>
  <flag><str>true</str></flag>
  <list><str>a</str><str>b</str></list>
  <attributes><attribute name="load"/><attribute name="rv32i"/></attributes>
</core>`))
	require.NoError(t, err)

	assert.Equal(t, "core", root.Tag)
	assert.Equal(t, "x", root.Name())

	w, ok, err := root.ChildInt("width")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 32, w)

	doc, ok := root.ChildValue("doc")
	assert.True(t, ok)
	assert.Equal(t, "plain text", doc)

	assert.True(t, root.ChildBool("flag"))
	assert.False(t, root.ChildBool("missing"))
	assert.Equal(t, []string{"a", "b"}, root.Child("list").Values())
	assert.Equal(t, []string{"load", "rv32i"}, parseAttributes(root).Sorted())

	_, ok, err = root.ChildInt("missing")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestParseDocumentBadInt(t *testing.T) {
	root, err := ParseDocumentBytes([]byte(`<core name="x"><width><int>wide</int></width></core>`))
	require.NoError(t, err)
	_, ok, err := root.ChildInt("width")
	assert.True(t, ok)
	assert.Error(t, err)
}

func TestParseDocumentMalformed(t *testing.T) {
	_, err := ParseDocumentBytes([]byte(`<core><regfiles></core>`))
	require.Error(t, err)
	var perr *ParseError
	assert.True(t, errors.As(err, &perr))

	_, err = ParseDocumentBytes([]byte(``))
	assert.True(t, errors.As(err, &perr))
}

func TestNilNodeAccessors(t *testing.T) {
	var n *Node
	assert.Nil(t, n.Child("x"))
	assert.Nil(t, n.Find("a", "b"))
	assert.Nil(t, n.ChildrenNamed("x"))
	assert.Equal(t, "", n.Value())
	assert.Nil(t, n.Values())
	assert.Equal(t, "", n.Name())
}

func TestCores(t *testing.T) {
	for name, src := range map[string]string{
		"data":  `<data><cores><core name="a"/><core name="b"/></cores></data>`,
		"cores": `<cores><core name="a"/><core name="b"/></cores>`,
	} {
		t.Run(name, func(t *testing.T) {
			root, err := ParseDocumentBytes([]byte(src))
			require.NoError(t, err)
			cores := Cores(root)
			require.Len(t, cores, 2)
			assert.Equal(t, "a", cores[0].Name())
			assert.Equal(t, "b", cores[1].Name())
		})
	}

	root, err := ParseDocumentBytes([]byte(`<core name="solo"/>`))
	require.NoError(t, err)
	assert.Len(t, Cores(root), 1)
}

func TestLoadDocumentFixture(t *testing.T) {
	root, err := LoadDocument("testdata/rv32.xml")
	require.NoError(t, err)
	cores := Cores(root)
	require.Len(t, cores, 1)
	assert.Equal(t, "rv32", cores[0].Name())
	assert.Len(t, cores[0].Find("instrs").ChildrenNamed("instruction"), 13)

	_, err = LoadDocument("testdata/does-not-exist.xml")
	var perr *ParseError
	assert.True(t, errors.As(err, &perr))
}

// loadFixtureCore returns the single core of a testdata document.
func loadFixtureCore(t *testing.T, filename string) *Node {
	t.Helper()
	root, err := LoadDocument(filename)
	require.NoError(t, err)
	cores := Cores(root)
	require.Len(t, cores, 1)
	return cores[0]
}

// parseCore wraps an inline fragment into a core node.
func parseCore(t *testing.T, body string) *Node {
	t.Helper()
	root, err := ParseDocumentBytes([]byte(`<core name="test">` + body + `</core>`))
	require.NoError(t, err)
	return root
}
