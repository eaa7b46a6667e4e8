package citation

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/ternarybob/lexis/internal/models"
)

// Marker modes for the reconstructed answer.
const (
	MarkerModeExcise = "excise" // markers removed from the visible text
	MarkerModeRetain = "retain" // markers kept verbatim
)

// markerWord is the literal that opens a citation marker after '['.
const markerWord = "Source"

// Buffer bounds. A run of spaces or digits past these cannot be a real
// marker, so the pending text is flushed as literal output instead of
// growing without limit on adversarial streams.
const (
	maxPendingLen = 24
	maxDigits     = 9
)

// Parser states.
const (
	stateScanning = iota
	stateWord     // matching "Source" after '['
	stateSpaces   // whitespace between the word and the number
	stateNumber   // digits, terminated by ']'
)

// Parser recognizes [Source N] citation markers in a token stream. Tokens
// can split a marker at any point; the parser buffers a potential marker
// until it either completes or proves to be literal text. Feed returns the
// text that became visible from this token, so callers can forward it to
// the user without waiting for the stream to end.
type Parser struct {
	mode    string
	state   int
	wordPos int
	pending []rune
	digits  []rune
	out     strings.Builder
	outLen  int // rune count of out
	events  []models.CitationEvent
}

// NewParser creates a parser in the given marker mode (MarkerModeExcise or
// MarkerModeRetain).
func NewParser(mode string) *Parser {
	return &Parser{mode: mode}
}

// Feed consumes one stream token and returns the newly visible text. A
// token that ends inside a potential marker returns only the text before
// the marker start; the rest stays buffered.
func (p *Parser) Feed(token string) string {
	mark := p.out.Len()
	for _, r := range token {
		p.feedRune(r)
	}
	return p.out.String()[mark:]
}

// Finish flushes any unterminated marker prefix as literal text and returns
// the final visible delta. The parser must not be fed after Finish.
func (p *Parser) Finish() string {
	mark := p.out.Len()
	p.flushPending()
	return p.out.String()[mark:]
}

// Abort stops parsing mid-stream (generation failure or cancellation): any
// buffered marker prefix is flushed as literal text and the partial answer
// reconstructed so far is returned. Events recorded before the abort remain
// valid.
func (p *Parser) Abort() string {
	p.flushPending()
	return p.out.String()
}

// Answer returns the reconstructed answer text accumulated so far.
func (p *Parser) Answer() string {
	return p.out.String()
}

// Events returns the citation events recognized so far, in stream order.
func (p *Parser) Events() []models.CitationEvent {
	return p.events
}

func (p *Parser) feedRune(r rune) {
	if p.state != stateScanning && len(p.pending) >= maxPendingLen {
		p.bail(r)
		return
	}

	switch p.state {
	case stateScanning:
		if r == '[' {
			p.pending = append(p.pending, r)
			p.state = stateWord
			p.wordPos = 0
			return
		}
		p.write(r)

	case stateWord:
		if p.wordPos < len(markerWord) && foldEqual(r, rune(markerWord[p.wordPos])) {
			p.pending = append(p.pending, r)
			p.wordPos++
			if p.wordPos == len(markerWord) {
				p.state = stateSpaces
			}
			return
		}
		p.bail(r)

	case stateSpaces:
		if r == ' ' || r == '\t' {
			p.pending = append(p.pending, r)
			return
		}
		if r >= '0' && r <= '9' {
			if len(p.pending) == len("[")+len(markerWord) {
				// No whitespace between the word and the number.
				p.bail(r)
				return
			}
			p.pending = append(p.pending, r)
			p.digits = append(p.digits, r)
			p.state = stateNumber
			return
		}
		p.bail(r)

	case stateNumber:
		if r >= '0' && r <= '9' {
			if len(p.digits) >= maxDigits {
				p.bail(r)
				return
			}
			p.pending = append(p.pending, r)
			p.digits = append(p.digits, r)
			return
		}
		if r == ']' {
			p.emit()
			return
		}
		p.bail(r)
	}
}

// bail abandons the pending marker candidate: everything buffered is
// literal text. The current rune is reprocessed from the scanning state so
// a fresh '[' can open a new candidate.
func (p *Parser) bail(r rune) {
	p.flushPending()
	p.feedRune(r)
}

func (p *Parser) flushPending() {
	for _, r := range p.pending {
		p.write(r)
	}
	p.reset()
}

// emit records a completed marker. The position is the rune offset in the
// visible answer where the marker began; with excision that is the offset
// of whatever text follows.
func (p *Parser) emit() {
	n, _ := strconv.Atoi(string(p.digits))
	p.events = append(p.events, models.CitationEvent{
		SourceNumber: n,
		CharPosition: p.outLen,
	})
	if p.mode == MarkerModeRetain {
		for _, r := range p.pending {
			p.write(r)
		}
		p.write(']')
	}
	p.reset()
}

func (p *Parser) reset() {
	p.pending = p.pending[:0]
	p.digits = p.digits[:0]
	p.state = stateScanning
	p.wordPos = 0
}

func (p *Parser) write(r rune) {
	p.out.WriteRune(r)
	p.outLen++
}

// foldEqual compares the stream rune against an ASCII letter of the marker
// word, ignoring case.
func foldEqual(r, want rune) bool {
	return unicode.ToLower(r) == unicode.ToLower(want)
}
