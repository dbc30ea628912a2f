// Package trie indexes key names by their delimiter separated segments to
// answer "how many keys live under this prefix" questions over a keys file.
package trie

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

const DefaultDelimiter = ":"

var ErrPrefixNotFound = errors.New("prefix not found")

type node struct {
	// Number of keys going through the node. The last segment of a key does
	// not get a node of its own.
	count    int
	children map[string]*node
}

func newNode() *node {
	return &node{children: map[string]*node{}}
}

// Trie is not safe for concurrent use while keys are being inserted.
type Trie struct {
	delimiter string
	root      *node
	nodes     int
}

func New(delimiter string) *Trie {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	return &Trie{delimiter: delimiter, root: newNode()}
}

func (t *Trie) Delimiter() string {
	return t.delimiter
}

// Size is the number of keys inserted so far.
func (t *Trie) Size() int {
	return t.root.count
}

// tokenize splits on the delimiter. Empty segments are folded into the next
// one, so with ":" the key "a::b" yields "a" and ":b".
func (t *Trie) tokenize(path string) []string {
	parts := strings.Split(path, t.delimiter)
	tokens := parts[:0]
	previousEmpty := false
	for _, part := range parts {
		if part == "" {
			previousEmpty = true
			continue
		}
		if previousEmpty {
			part = t.delimiter + part
		}
		tokens = append(tokens, part)
		previousEmpty = false
	}
	return tokens
}

func (t *Trie) Insert(key string) {
	tokens := t.tokenize(key)
	current := t.root
	for i, token := range tokens {
		current.count++
		if i == len(tokens)-1 {
			break
		}
		child, found := current.children[token]
		if !found {
			child = newNode()
			current.children[token] = child
			t.nodes++
		}
		current = child
	}
}

// Load inserts every line of r as a key and returns how many were read.
func (t *Trie) Load(r io.Reader) (int, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	n := 0
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			t.Insert(strings.TrimSuffix(line, "\n"))
			n++
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return n, fmt.Errorf("read keys at line %d: %w", n+1, err)
		}
	}
	zlog.Debug("keys loaded", zap.String("keys", humanize.Comma(int64(n))), zap.Int("nodes", t.nodes))
	return n, nil
}

func (t *Trie) normalize(prefix string) string {
	return strings.TrimSuffix(prefix, t.delimiter)
}

func (t *Trie) find(prefix string) *node {
	current := t.root
	for _, token := range t.tokenize(prefix) {
		child, found := current.children[token]
		if !found {
			return nil
		}
		current = child
	}
	return current
}

// CountForPrefix returns the number of keys under prefix, 0 when no key has
// it. A trailing delimiter is ignored and the empty prefix counts every key.
func (t *Trie) CountForPrefix(prefix string) int {
	n := t.find(t.normalize(prefix))
	if n == nil {
		return 0
	}
	return n.count
}

// Children lists the direct child prefixes of prefix, sorted.
func (t *Trie) Children(prefix string) []string {
	prefix = t.normalize(prefix)
	n := t.find(prefix)
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.children))
	for name := range n.children {
		out = append(out, t.join(prefix, name))
	}
	sort.Strings(out)
	return out
}

func (t *Trie) join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + t.delimiter + name
}

type PrefixCount struct {
	Prefix string
	Count  int
}

type TopResult struct {
	Prefix        string
	TotalKeys     int
	TotalChildren int
	Top           []PrefixCount
}

// TopChildren returns the n children of prefix holding the most keys, by
// descending count then name.
func (t *Trie) TopChildren(prefix string, n int) (*TopResult, error) {
	prefix = t.normalize(prefix)
	parent := t.find(prefix)
	if parent == nil {
		return nil, fmt.Errorf("%q: %w", prefix, ErrPrefixNotFound)
	}

	children := make([]PrefixCount, 0, len(parent.children))
	for name, child := range parent.children {
		children = append(children, PrefixCount{Prefix: t.join(prefix, name), Count: child.count})
	}
	sort.Slice(children, func(i, j int) bool {
		if children[i].Count != children[j].Count {
			return children[i].Count > children[j].Count
		}
		return children[i].Prefix < children[j].Prefix
	})
	if n >= 0 && n < len(children) {
		children = children[:n]
	}

	return &TopResult{
		Prefix:        prefix,
		TotalKeys:     parent.count,
		TotalChildren: len(parent.children),
		Top:           children,
	}, nil
}
