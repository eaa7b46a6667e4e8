package segmenter

import (
	"strings"
	"testing"

	"github.com/ternarybob/lexis/internal/common"
	"github.com/ternarybob/lexis/internal/models"
)

func newTestSegmenter(size, overlap, lookahead int) *Segmenter {
	return New(common.ChunkingConfig{Size: size, Overlap: overlap, Lookahead: lookahead}, nil)
}

func repeatedText(n int) string {
	var b strings.Builder
	for b.Len() < n {
		b.WriteString("le responsable du traitement met en oeuvre des mesures appropriees ")
	}
	return b.String()[:n]
}

func TestSegmenter_Segment(t *testing.T) {
	t.Run("Empty document yields no chunks", func(t *testing.T) {
		s := newTestSegmenter(1500, 400, 120)

		chunks := s.Segment([]models.PageText{
			{PageNumber: 1, Text: ""},
			{PageNumber: 2, Text: "   \n  "},
		})
		if chunks != nil {
			t.Errorf("Expected nil chunks for empty document, got %d", len(chunks))
		}
	})

	t.Run("Consecutive chunks overlap by exactly the configured overlap", func(t *testing.T) {
		s := newTestSegmenter(1500, 400, 120)

		chunks := s.Segment([]models.PageText{{PageNumber: 1, Text: repeatedText(6000)}})
		if len(chunks) < 3 {
			t.Fatalf("Expected at least 3 chunks, got %d", len(chunks))
		}

		for i := 1; i < len(chunks); i++ {
			overlap := chunks[i-1].CharSpan.End - chunks[i].CharSpan.Start
			if overlap != 400 {
				t.Errorf("Chunk %d overlap = %d, want 400", i, overlap)
			}
		}
	})

	t.Run("Round trip reconstructs the document modulo overlap", func(t *testing.T) {
		s := newTestSegmenter(500, 100, 60)

		text := repeatedText(2300)
		chunks := s.Segment([]models.PageText{{PageNumber: 1, Text: text}})

		var b strings.Builder
		for i, c := range chunks {
			runes := []rune(c.Text)
			if i == 0 {
				b.WriteString(c.Text)
				continue
			}
			skip := chunks[i-1].CharSpan.End - c.CharSpan.Start
			b.WriteString(string(runes[skip:]))
		}
		if b.String() != text {
			t.Error("Concatenating chunks minus overlap did not reconstruct the document")
		}
	})

	t.Run("Boundary prefers paragraph break within lookahead", func(t *testing.T) {
		s := newTestSegmenter(200, 50, 60)

		para1 := repeatedText(180)
		para2 := repeatedText(400)
		text := para1 + "\n\n" + para2
		chunks := s.Segment([]models.PageText{{PageNumber: 1, Text: text}})
		if len(chunks) < 2 {
			t.Fatalf("Expected at least 2 chunks, got %d", len(chunks))
		}

		// The raw cut at 200 is within lookahead of the break after para1.
		wantEnd := len([]rune(para1)) + 2
		if chunks[0].CharSpan.End != wantEnd {
			t.Errorf("First chunk end = %d, want paragraph boundary %d", chunks[0].CharSpan.End, wantEnd)
		}
	})

	t.Run("Raw cut kept when no boundary within budget", func(t *testing.T) {
		s := newTestSegmenter(300, 50, 20)

		chunks := s.Segment([]models.PageText{{PageNumber: 1, Text: repeatedText(900)}})
		if chunks[0].CharSpan.End != 300 {
			t.Errorf("Expected raw cut at 300, got %d", chunks[0].CharSpan.End)
		}
	})

	t.Run("Page range follows chunk offsets", func(t *testing.T) {
		s := newTestSegmenter(500, 100, 0)

		pages := []models.PageText{
			{PageNumber: 1, Text: repeatedText(400)},
			{PageNumber: 2, Text: repeatedText(400)},
			{PageNumber: 3, Text: repeatedText(400)},
		}
		chunks := s.Segment(pages)
		if len(chunks) == 0 {
			t.Fatal("Expected chunks")
		}

		first := chunks[0]
		if first.PageRange.Start != 1 || first.PageRange.End != 2 {
			t.Errorf("First chunk page range = %+v, want 1-2", first.PageRange)
		}
		last := chunks[len(chunks)-1]
		if last.PageRange.End != 3 {
			t.Errorf("Last chunk should end on page 3, got %+v", last.PageRange)
		}
	})

	t.Run("Boundary context runes exposed", func(t *testing.T) {
		s := newTestSegmenter(200, 50, 0)

		chunks := s.Segment([]models.PageText{{PageNumber: 1, Text: repeatedText(500)}})
		if len(chunks) < 2 {
			t.Fatal("Expected at least 2 chunks")
		}
		if chunks[0].PrevRune != 0 {
			t.Error("First chunk should have no preceding rune")
		}
		if chunks[0].NextRune == 0 {
			t.Error("Non-final chunk should expose the rune after its span")
		}
		if chunks[1].PrevRune == 0 {
			t.Error("Later chunk should expose the rune before its span")
		}
	})
}
