package trie

import (
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const keysFile = `user:1:name
user:1:email
user:2:name
user:3:name
session:abc
plain
`

func loaded(t *testing.T) *Trie {
	t.Helper()
	tr := New(":")
	n, err := tr.Load(strings.NewReader(keysFile))
	require.NoError(t, err)
	require.Equal(t, 6, n)
	return tr
}

func TestTrie_Tokenize(t *testing.T) {
	tests := []struct {
		in     string
		expect []string
	}{
		{"a:b:c", []string{"a", "b", "c"}},
		{"a::b", []string{"a", ":b"}},
		{":a", []string{":a"}},
		{"a:", []string{"a"}},
		{"plain", []string{"plain"}},
		{"", []string{}},
	}

	tr := New(":")
	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			assert.Equal(t, test.expect, tr.tokenize(test.in))
		})
	}
}

func TestTrie_CountForPrefix(t *testing.T) {
	tr := loaded(t)

	tests := []struct {
		prefix string
		expect int
	}{
		{"", 6},
		{"user", 4},
		{"user:", 4},
		{"user:1", 2},
		{"user:2", 1},
		{"session", 1},
		// Last segments are not indexed.
		{"user:1:name", 0},
		{"plain", 0},
		{"missing", 0},
	}

	for _, test := range tests {
		t.Run(test.prefix, func(t *testing.T) {
			assert.Equal(t, test.expect, tr.CountForPrefix(test.prefix))
		})
	}
	assert.Equal(t, 6, tr.Size())
}

func TestTrie_TopChildren(t *testing.T) {
	tr := loaded(t)

	res, err := tr.TopChildren("", 10)
	require.NoError(t, err)
	assert.Equal(t, &TopResult{
		Prefix:        "",
		TotalKeys:     6,
		TotalChildren: 2,
		Top:           []PrefixCount{{"user", 4}, {"session", 1}},
	}, res)

	res, err = tr.TopChildren("user:", 2)
	require.NoError(t, err)
	assert.Equal(t, "user", res.Prefix)
	assert.Equal(t, 4, res.TotalKeys)
	assert.Equal(t, 3, res.TotalChildren)
	assert.Equal(t, []PrefixCount{{"user:1", 2}, {"user:2", 1}}, res.Top)

	res, err = tr.TopChildren("user", 0)
	require.NoError(t, err)
	assert.Empty(t, res.Top)
	assert.Equal(t, 3, res.TotalChildren)

	_, err = tr.TopChildren("nope", 3)
	assert.True(t, errors.Is(err, ErrPrefixNotFound))
}

func TestTrie_Children(t *testing.T) {
	tr := loaded(t)
	assert.Equal(t, []string{"user:1", "user:2", "user:3"}, tr.Children("user"))
	assert.Equal(t, []string{"session", "user"}, tr.Children(""))
	assert.Nil(t, tr.Children("nope"))
}

func TestTrie_CustomDelimiter(t *testing.T) {
	tr := New("/")
	tr.Insert("cache/eu/1")
	tr.Insert("cache/us/1")
	tr.Insert("cache/us/2")
	tr.Insert("user:1")

	assert.Equal(t, 3, tr.CountForPrefix("cache/"))
	assert.Equal(t, 2, tr.CountForPrefix("cache/us"))

	res, err := tr.TopChildren("cache", 1)
	require.NoError(t, err)
	assert.Equal(t, []PrefixCount{{"cache/us", 2}}, res.Top)
}

func TestTrie_DefaultDelimiter(t *testing.T) {
	assert.Equal(t, DefaultDelimiter, New("").Delimiter())
}

func TestTrie_LoadWithoutTrailingNewline(t *testing.T) {
	tr := New(":")
	n, err := tr.Load(strings.NewReader("a:1\na:2"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, tr.CountForPrefix("a"))
}

func TestTrie_LoadError(t *testing.T) {
	boom := errors.New("boom")
	_, err := New(":").Load(iotest.ErrReader(boom))
	assert.ErrorIs(t, err, boom)
}
