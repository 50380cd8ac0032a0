package chunker

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	// DefaultChunkSizeTokens is the target chunk size used by the ingestion pipeline.
	DefaultChunkSizeTokens = 600
	// DefaultOverlapTokens preserves context across chunk boundaries.
	DefaultOverlapTokens = 75
	// MaxChunkSizeTokens is the hard upper bound for a configured chunk size.
	MaxChunkSizeTokens = 2000

	// charsPerToken is the fixed ratio used to convert token targets into
	// character windows. English prose averages ~4 characters per token.
	charsPerToken = 4

	// boundaryFloorRatio: a snapped boundary must land at or after 70% of the
	// nominal window, otherwise we keep scanning (prevents tiny chunks).
	boundaryFloorRatio = 0.70
	// primaryLookbackRatio / tightLookbackRatio bound the backward boundary
	// search to the tail of the window.
	primaryLookbackRatio = 0.20
	tightLookbackRatio   = 0.30
	// oversizeRatio: if a chunk estimate still exceeds 120% of the target we
	// retry the snap before accepting a hard cut.
	oversizeRatio = 1.2
)

// Options controls the sliding window of the splitter.
type Options struct {
	ChunkSizeTokens int
	OverlapTokens   int
}

// DefaultOptions returns the pipeline defaults (600 token chunks, 75 overlap).
func DefaultOptions() Options {
	return Options{
		ChunkSizeTokens: DefaultChunkSizeTokens,
		OverlapTokens:   DefaultOverlapTokens,
	}
}

// Chunk is one bounded segment of the normalized input text. Offsets are rune
// offsets into the normalized text, monotonic across ascending Index.
type Chunk struct {
	Index       int
	StartOffset int
	EndOffset   int
	Text        string
}

// ValidationError is returned for bad inputs before any splitting work is done.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("chunker: invalid %s: %s", e.Field, e.Reason)
}

// EstimateTokens converts text length to an approximate token count using the
// same fixed ratio the splitter uses for its windows. Rounds up.
func EstimateTokens(text string) int {
	n := len([]rune(text))
	if n == 0 {
		return 0
	}
	return (n + charsPerToken - 1) / charsPerToken
}

// NormalizeText collapses horizontal whitespace runs and excess blank lines
// while preserving paragraph breaks (a single blank line). CRLF becomes LF.
// The result is what chunk offsets refer to.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var b strings.Builder
	b.Grow(len(text))

	blankRun := 0 // consecutive newlines emitted
	spaceRun := false

	flushSpace := func() {
		if spaceRun {
			b.WriteByte(' ')
			spaceRun = false
		}
	}

	for _, r := range text {
		switch {
		case r == '\n':
			spaceRun = false // trailing spaces before a newline are dropped
			if blankRun < 2 {
				b.WriteByte('\n')
				blankRun++
			}
		case unicode.IsSpace(r):
			if b.Len() > 0 && blankRun == 0 {
				spaceRun = true
			}
		default:
			flushSpace()
			b.WriteRune(r)
			blankRun = 0
		}
	}

	return strings.TrimFunc(b.String(), unicode.IsSpace)
}

// Split divides text into token-bounded, boundary-snapped chunks.
// It is a pure function: identical input and options always produce identical
// boundaries. Persistence of the result is the caller's responsibility.
func Split(text string, opts Options) ([]Chunk, error) {
	if opts.ChunkSizeTokens < 1 || opts.ChunkSizeTokens > MaxChunkSizeTokens {
		return nil, &ValidationError{
			Field:  "chunk_size_tokens",
			Reason: fmt.Sprintf("must be between 1 and %d, got %d", MaxChunkSizeTokens, opts.ChunkSizeTokens),
		}
	}
	if opts.OverlapTokens < 0 || opts.OverlapTokens >= opts.ChunkSizeTokens {
		return nil, &ValidationError{
			Field:  "overlap_tokens",
			Reason: fmt.Sprintf("must satisfy 0 <= overlap < chunk size, got %d", opts.OverlapTokens),
		}
	}

	norm := NormalizeText(text)
	if norm == "" {
		return nil, &ValidationError{Field: "text", Reason: "empty or whitespace only"}
	}

	runes := []rune(norm)
	sizeChars := opts.ChunkSizeTokens * charsPerToken
	overlapChars := opts.OverlapTokens * charsPerToken
	step := sizeChars - overlapChars

	var chunks []Chunk
	start := 0
	for start < len(runes) {
		end := start + sizeChars
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = snapToBoundary(runes, start, end, primaryLookbackRatio)
			// With the fixed chars-per-token ratio, snapping only shortens the
			// window, so the estimate cannot exceed the target today. The retry
			// guards a future length-aware estimator.
			if float64(EstimateTokens(string(runes[start:end]))) > oversizeRatio*float64(opts.ChunkSizeTokens) {
				end = snapToBoundary(runes, start, start+sizeChars, tightLookbackRatio)
			}
		}

		chunks = append(chunks, Chunk{
			Index:       len(chunks),
			StartOffset: start,
			EndOffset:   end,
			Text:        string(runes[start:end]),
		})

		if end >= len(runes) {
			break
		}

		next := end - overlapChars
		if next <= start {
			next = start + step
		}
		if next <= start {
			next = start + 1 // always make progress
		}
		start = next
	}

	if len(chunks) == 0 {
		return nil, &ValidationError{Field: "text", Reason: "no chunks could be produced"}
	}
	return chunks, nil
}

// snapToBoundary searches backward from nominalEnd for a natural break:
// paragraph break first, then single newline, then sentence end followed by a
// space. The boundary is accepted only if it lands at or after 70% of the
// nominal window; otherwise the hard cut at nominalEnd stands.
func snapToBoundary(runes []rune, start, nominalEnd int, lookbackRatio float64) int {
	window := nominalEnd - start
	lookback := int(float64(window) * lookbackRatio)
	floor := start + int(float64(window)*boundaryFloorRatio)

	searchStart := nominalEnd - lookback
	if searchStart < floor {
		searchStart = floor
	}
	if searchStart < start+1 {
		searchStart = start + 1
	}

	// Pass 1: paragraph break (blank line). Chunk ends after the break.
	for i := nominalEnd - 1; i >= searchStart; i-- {
		if runes[i] == '\n' && runes[i-1] == '\n' {
			return i + 1
		}
	}
	// Pass 2: single newline.
	for i := nominalEnd - 1; i >= searchStart; i-- {
		if runes[i] == '\n' {
			return i + 1
		}
	}
	// Pass 3: sentence-ending punctuation followed by a space.
	for i := nominalEnd - 1; i >= searchStart; i-- {
		if isSentenceEnd(runes[i-1]) && unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return nominalEnd
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
