// Package dedup computes the deduplication identity of candidate content.
//
// The identity is a sha256 digest over normalized text. Normalization is
// deterministic: NFKD decomposition, case folding, stripping of combining
// and format runes, width folding, recomposition, then non-word runes
// collapse to single spaces. Texts differing only in case, diacritics,
// punctuation, or whitespace hash equally.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKD,
			cases.Fold(),
			runes.Remove(runes.In(unicode.Mn)), // combining marks, after decomposition
			runes.Remove(runes.In(unicode.Cf)), // zero-width and other format runes
			width.Fold,
			norm.NFC,
		)
	},
}

// Hasher produces ContentHash values. It holds no state and is safe for
// concurrent use.
type Hasher struct{}

func NewHasher() *Hasher { return &Hasher{} }

// Normalize returns the canonical form of s used for hashing.
func (h *Hasher) Normalize(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ToValidUTF8(s, "")

	tr := chainPool.Get().(transform.Transformer)
	ns, _, _ := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)

	var b strings.Builder
	b.Grow(len(ns))
	lastSpace := true
	for _, r := range ns {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// Hash returns the hex sha256 of the normalized text. Pure function: equal
// normalized inputs always produce equal hashes.
func (h *Hasher) Hash(text string) string {
	sum := sha256.Sum256([]byte(h.Normalize(text)))
	return hex.EncodeToString(sum[:])
}

// SeenSet remembers hashes and canonical URLs encountered within a single
// scan. It is owned by the orchestrator's single-threaded merge pass and
// discarded when the scan ends, so it needs no locking.
type SeenSet struct {
	hashes map[string]struct{}
	urls   map[string]struct{}
}

func NewSeenSet() *SeenSet {
	return &SeenSet{
		hashes: make(map[string]struct{}),
		urls:   make(map[string]struct{}),
	}
}

// Add registers the hash and URL, returning false if either was already
// present (the item is a within-scan duplicate).
func (s *SeenSet) Add(hash, canonicalURL string) bool {
	_, dupHash := s.hashes[hash]
	dupURL := false
	if canonicalURL != "" {
		_, dupURL = s.urls[canonicalURL]
	}

	s.hashes[hash] = struct{}{}
	if canonicalURL != "" {
		s.urls[canonicalURL] = struct{}{}
	}

	return !dupHash && !dupURL
}

// Len reports how many distinct hashes have been registered.
func (s *SeenSet) Len() int { return len(s.hashes) }
