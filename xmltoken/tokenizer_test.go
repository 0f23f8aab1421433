package xmltoken

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, doc string) []Token {
	t.Helper()
	tok := New([]byte(doc))
	var toks []Token
	for {
		tk, err := tok.Next()
		require.NoError(t, err)
		if tk.Kind == EOF {
			return toks
		}
		toks = append(toks, tk)
	}
}

func TestOpenCloseText(t *testing.T) {
	toks := collect(t, "<r><x>A</x></r>")
	require.Len(t, toks, 5)
	assert.Equal(t, Token{Kind: Open, Name: "r"}, toks[0])
	assert.Equal(t, Token{Kind: Open, Name: "x"}, toks[1])
	assert.Equal(t, Token{Kind: Text, Text: "A"}, toks[2])
	assert.Equal(t, Token{Kind: Close, Name: "x"}, toks[3])
	assert.Equal(t, Token{Kind: Close, Name: "r"}, toks[4])
}

func TestAttributesIgnored(t *testing.T) {
	toks := collect(t, `<r id="1" class='a b'>hi</r>`)
	require.Len(t, toks, 3)
	assert.Equal(t, "r", toks[0].Name)
	assert.Equal(t, "hi", toks[1].Text)
}

func TestAttributeValueMayContainAngleBracketsAndSlash(t *testing.T) {
	toks := collect(t, `<r a="1/>2" b="<x>">hi</r>`)
	require.Len(t, toks, 3)
	assert.Equal(t, Token{Kind: Open, Name: "r"}, toks[0])
}

func TestEmptyElementIgnored(t *testing.T) {
	toks := collect(t, "<r><x/>text</r>")
	require.Len(t, toks, 3)
	assert.Equal(t, Token{Kind: Open, Name: "r"}, toks[0])
	assert.Equal(t, Token{Kind: Text, Text: "text"}, toks[1])
	assert.Equal(t, Token{Kind: Close, Name: "r"}, toks[2])
}

func TestDeclarationCommentAndCDATAIgnored(t *testing.T) {
	doc := "<?xml version=\"1.0\"?><!-- a\nmultiline\ncomment --><r><![CDATA[<not a tag>]]>x</r>"
	toks := collect(t, doc)
	require.Len(t, toks, 3)
	assert.Equal(t, Token{Kind: Open, Name: "r"}, toks[0])
	assert.Equal(t, Token{Kind: Text, Text: "x"}, toks[1])
	assert.Equal(t, Token{Kind: Close, Name: "r"}, toks[2])
}

func TestLeadingWhitespaceInTextPreserved(t *testing.T) {
	toks := collect(t, "<r>  A  </r>")
	require.Len(t, toks, 3)
	assert.Equal(t, Token{Kind: Text, Text: "  A  "}, toks[1])
}

func TestUnterminatedTagIsAnError(t *testing.T) {
	tok := New([]byte("<r><x"))
	_, err := tok.Next()
	require.NoError(t, err)
	_, err = tok.Next()
	assert.Error(t, err)
}

func TestDoctypeIsUnsupported(t *testing.T) {
	tok := New([]byte("<!DOCTYPE r><r/>"))
	_, err := tok.Next()
	assert.Error(t, err)
}
