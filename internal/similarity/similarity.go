// Package similarity scores how alike two captured artifacts are using
// deterministic file signals: byte size, SHA-256 content hash and, for vector
// frames, the per-tag element structure of the document tree.
package similarity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/leoric-crown/textual-snapshots/internal/svgdoc"
)

// Signal weights for FileSimilarity.
const (
	WeightSize      = 0.3
	WeightHash      = 0.4
	WeightStructure = 0.3

	// neutralStructure stands in for structure when the pair is not two vector frames.
	neutralStructure = 0.5

	// DefaultCacheSize bounds the number of memoised element-count tables.
	DefaultCacheSize = 256
)

// Engine computes similarity scores. It memoises parsed element counts by
// content hash so a baseline compared against many artifacts is parsed once.
// An Engine is safe for concurrent use.
type Engine struct {
	counts *lru.Cache[string, map[string]int]
}

// NewEngine creates an Engine whose count cache holds up to size documents.
// A non-positive size uses DefaultCacheSize.
func NewEngine(size int) *Engine {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, map[string]int](size)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(fmt.Sprintf("similarity: create cache: %v", err))
	}
	return &Engine{counts: cache}
}

var defaultEngine = NewEngine(DefaultCacheSize)

// Default returns the process-wide engine used by the package-level functions.
func Default() *Engine {
	return defaultEngine
}

// FileSimilarity scores two files with the default engine.
func FileSimilarity(a, b string) float64 {
	return defaultEngine.FileSimilarity(a, b)
}

// StructuralSimilarity scores two vector frames with the default engine.
func StructuralSimilarity(a, b string) float64 {
	return defaultEngine.StructuralSimilarity(a, b)
}

// FileSimilarity returns a score in [0,1]. Missing or unreadable files score
// 0, byte-identical files score 1. Otherwise size similarity, hash equality
// and structural similarity are blended with fixed weights; structure is only
// measured when both files are vector frames (.svg) and is neutral otherwise.
func (e *Engine) FileSimilarity(a, b string) float64 {
	infoA, errA := os.Stat(a)
	infoB, errB := os.Stat(b)
	if errA != nil || errB != nil || infoA.IsDir() || infoB.IsDir() {
		return 0.0
	}

	hashA, err := FileHash(a)
	if err != nil {
		return 0.0
	}
	hashB, err := FileHash(b)
	if err != nil {
		return 0.0
	}

	if hashA == hashB {
		return 1.0
	}

	sizeScore := SizeSimilarity(infoA.Size(), infoB.Size())

	structure := neutralStructure
	if IsVector(a) && IsVector(b) {
		structure = e.structural(a, hashA, infoA.Size(), b, hashB, infoB.Size())
	}

	// Hash equality contributes 0 here; identical hashes returned above.
	score := WeightSize*sizeScore + WeightHash*0.0 + WeightStructure*structure
	return clamp(score)
}

// StructuralSimilarity compares element counts per tag name. For the union of
// tags it averages 1 - |countA-countB| / max(countA, countB, 1). If either
// document fails to parse the score falls back to SizeSimilarity.
func (e *Engine) StructuralSimilarity(a, b string) float64 {
	infoA, errA := os.Stat(a)
	infoB, errB := os.Stat(b)
	if errA != nil || errB != nil {
		return 0.0
	}

	hashA, _ := FileHash(a)
	hashB, _ := FileHash(b)
	return e.structural(a, hashA, infoA.Size(), b, hashB, infoB.Size())
}

func (e *Engine) structural(a, hashA string, sizeA int64, b, hashB string, sizeB int64) float64 {
	countsA, errA := e.tagCounts(a, hashA)
	countsB, errB := e.tagCounts(b, hashB)
	if errA != nil || errB != nil {
		return SizeSimilarity(sizeA, sizeB)
	}
	return CompareTagCounts(countsA, countsB)
}

// tagCounts returns element counts for path, consulting the cache when the
// content hash is known.
func (e *Engine) tagCounts(path, hash string) (map[string]int, error) {
	if hash != "" {
		if counts, ok := e.counts.Get(hash); ok {
			return counts, nil
		}
	}

	doc, err := svgdoc.ParseFile(path)
	if err != nil {
		return nil, err
	}
	counts := doc.TagCounts()

	if hash != "" {
		e.counts.Add(hash, counts)
	}
	return counts, nil
}

// CompareTagCounts averages per-tag count similarity over the union of tags.
// Tags are visited in sorted order so the result is bit-for-bit symmetric.
func CompareTagCounts(a, b map[string]int) float64 {
	union := make(map[string]struct{}, len(a)+len(b))
	for tag := range a {
		union[tag] = struct{}{}
	}
	for tag := range b {
		union[tag] = struct{}{}
	}
	if len(union) == 0 {
		return 1.0
	}

	tags := make([]string, 0, len(union))
	for tag := range union {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	total := 0.0
	for _, tag := range tags {
		ca, cb := a[tag], b[tag]
		maxCount := max(ca, cb, 1)
		total += 1.0 - math.Abs(float64(ca-cb))/float64(maxCount)
	}
	return total / float64(len(tags))
}

// SizeSimilarity returns 1 - |a-b| / max(a, b, 1).
func SizeSimilarity(a, b int64) float64 {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return 1.0 - float64(diff)/float64(max(a, b, 1))
}

// FileHash returns the hex SHA-256 digest of the file content.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// IsVector reports whether path names a vector frame by extension.
func IsVector(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".svg")
}

func clamp(v float64) float64 {
	return math.Min(1.0, math.Max(0.0, v))
}
