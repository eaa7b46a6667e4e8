package citation

import (
	"strings"
	"testing"

	"github.com/ternarybob/lexis/internal/common"
	"github.com/ternarybob/lexis/internal/models"
)

func feedAll(p *Parser, tokens []string) string {
	var b strings.Builder
	for _, tok := range tokens {
		b.WriteString(p.Feed(tok))
	}
	b.WriteString(p.Finish())
	return b.String()
}

func TestParserExciseMode(t *testing.T) {
	t.Run("SingleMarker", func(t *testing.T) {
		p := NewParser(MarkerModeExcise)
		got := feedAll(p, []string{"Le RGPD prévoit [Source 2] des garanties."})
		want := "Le RGPD prévoit  des garanties."
		if got != want {
			t.Errorf("visible = %q, want %q", got, want)
		}
		events := p.Events()
		if len(events) != 1 {
			t.Fatalf("events = %d, want 1", len(events))
		}
		if events[0].SourceNumber != 2 {
			t.Errorf("source = %d, want 2", events[0].SourceNumber)
		}
		if want := len([]rune("Le RGPD prévoit ")); events[0].CharPosition != want {
			t.Errorf("position = %d, want %d", events[0].CharPosition, want)
		}
	})

	t.Run("MarkerSplitAcrossTokens", func(t *testing.T) {
		p := NewParser(MarkerModeExcise)
		got := feedAll(p, []string{"Le RGPD ", "prévoit [Sou", "rce 2] des ", "garanties."})
		want := "Le RGPD prévoit  des garanties."
		if got != want {
			t.Errorf("visible = %q, want %q", got, want)
		}
		if len(p.Events()) != 1 || p.Events()[0].SourceNumber != 2 {
			t.Errorf("events = %+v, want one event for source 2", p.Events())
		}
	})

	t.Run("EveryRuneItsOwnToken", func(t *testing.T) {
		text := "Voir [Source 12] et [Source 3]."
		p := NewParser(MarkerModeExcise)
		var tokens []string
		for _, r := range text {
			tokens = append(tokens, string(r))
		}
		got := feedAll(p, tokens)
		if got != "Voir  et ." {
			t.Errorf("visible = %q", got)
		}
		events := p.Events()
		if len(events) != 2 || events[0].SourceNumber != 12 || events[1].SourceNumber != 3 {
			t.Errorf("events = %+v", events)
		}
	})

	t.Run("OutOfRangeNumberStillParses", func(t *testing.T) {
		p := NewParser(MarkerModeExcise)
		feedAll(p, []string{"Comme indiqué [Source 99]."})
		events := p.Events()
		if len(events) != 1 || events[0].SourceNumber != 99 {
			t.Errorf("events = %+v, want source 99 parsed", events)
		}
	})

	t.Run("UnterminatedMarkerFlushesAsLiteral", func(t *testing.T) {
		p := NewParser(MarkerModeExcise)
		got := feedAll(p, []string{"Voir [Source 3"})
		if got != "Voir [Source 3" {
			t.Errorf("visible = %q, want the prefix kept as literal text", got)
		}
		if len(p.Events()) != 0 {
			t.Errorf("unexpected events %+v", p.Events())
		}
	})

	t.Run("LiteralBracketsPassThrough", func(t *testing.T) {
		for _, text := range []string{
			"Tableau [1] de l'annexe.",
			"Le texte [Source] sans numéro.",
			"Il manque l'espace [Source2] ici.",
			"Crochet isolé [ dans le texte.",
			"[Sour[Source 1] imbriqué.",
		} {
			p := NewParser(MarkerModeExcise)
			got := feedAll(p, []string{text})
			switch text {
			case "[Sour[Source 1] imbriqué.":
				// The inner '[' restarts the candidate, so the real marker
				// is still recognized.
				if got != "[Sour imbriqué." || len(p.Events()) != 1 {
					t.Errorf("got %q, events %+v", got, p.Events())
				}
			default:
				if got != text {
					t.Errorf("visible = %q, want %q unchanged", got, text)
				}
				if len(p.Events()) != 0 {
					t.Errorf("unexpected events %+v for %q", p.Events(), text)
				}
			}
		}
	})

	t.Run("RepeatedCitationEmitsOneEventEach", func(t *testing.T) {
		p := NewParser(MarkerModeExcise)
		feedAll(p, []string{"[Source 1] puis [Source 1] encore."})
		if len(p.Events()) != 2 {
			t.Errorf("events = %d, want 2", len(p.Events()))
		}
	})

	t.Run("MarkerWordIsCaseInsensitive", func(t *testing.T) {
		p := NewParser(MarkerModeExcise)
		got := feedAll(p, []string{"Voir [source 3] et [SOURCE 4]."})
		if got != "Voir  et ." {
			t.Errorf("visible = %q", got)
		}
		events := p.Events()
		if len(events) != 2 || events[0].SourceNumber != 3 || events[1].SourceNumber != 4 {
			t.Errorf("events = %+v", events)
		}
	})

	t.Run("AbortKeepsEventsAndFlushesPending", func(t *testing.T) {
		p := NewParser(MarkerModeExcise)
		p.Feed("Avant [Source 1] puis [Sou")
		got := p.Abort()
		if got != "Avant  puis [Sou" {
			t.Errorf("partial = %q", got)
		}
		if len(p.Events()) != 1 || p.Events()[0].SourceNumber != 1 {
			t.Errorf("events = %+v", p.Events())
		}
	})

	t.Run("OverlongDigitRunIsLiteral", func(t *testing.T) {
		p := NewParser(MarkerModeExcise)
		text := "[Source 12345678901234]"
		got := feedAll(p, []string{text})
		if got != text {
			t.Errorf("visible = %q, want literal", got)
		}
		if len(p.Events()) != 0 {
			t.Errorf("unexpected events %+v", p.Events())
		}
	})
}

func TestParserRetainMode(t *testing.T) {
	p := NewParser(MarkerModeRetain)
	got := feedAll(p, []string{"Le RGPD ", "prévoit [Sou", "rce 2] des ", "garanties."})
	want := "Le RGPD prévoit [Source 2] des garanties."
	if got != want {
		t.Errorf("visible = %q, want %q", got, want)
	}
	events := p.Events()
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if wantPos := len([]rune("Le RGPD prévoit ")); events[0].CharPosition != wantPos {
		t.Errorf("position = %d, want marker start offset %d", events[0].CharPosition, wantPos)
	}
}

func TestParserVisibleDeltas(t *testing.T) {
	// Text before a potential marker must become visible immediately; only
	// the candidate itself is held back.
	p := NewParser(MarkerModeExcise)

	if got := p.Feed("Réponse [Sou"); got != "Réponse " {
		t.Errorf("first delta = %q, want %q", got, "Réponse ")
	}
	if got := p.Feed("rce 4]"); got != "" {
		t.Errorf("second delta = %q, want empty after excision", got)
	}
	if got := p.Feed(" fin."); got != " fin." {
		t.Errorf("third delta = %q", got)
	}
	if got := p.Finish(); got != "" {
		t.Errorf("finish delta = %q", got)
	}
	if p.Answer() != "Réponse  fin." {
		t.Errorf("answer = %q", p.Answer())
	}
}

func TestReconciler(t *testing.T) {
	r := NewReconciler(common.GetLogger())

	t.Run("PartitionsCitedAndUncited", func(t *testing.T) {
		events := []models.CitationEvent{
			{SourceNumber: 2, CharPosition: 10},
			{SourceNumber: 4, CharPosition: 52},
			{SourceNumber: 2, CharPosition: 80},
		}
		result := r.Reconcile(events, 5)
		if got, want := result.Cited, []int{2, 4}; !equalInts(got, want) {
			t.Errorf("cited = %v, want %v", got, want)
		}
		if got, want := result.Uncited, []int{1, 3, 5}; !equalInts(got, want) {
			t.Errorf("uncited = %v, want %v", got, want)
		}
		if result.CitedCount != 2 || result.TotalCount != 5 {
			t.Errorf("counts = %d/%d", result.CitedCount, result.TotalCount)
		}
		if !result.IsCited(4) || result.IsCited(3) {
			t.Error("IsCited lookup wrong")
		}
	})

	t.Run("OutOfRangeIsInvalidNotCited", func(t *testing.T) {
		events := []models.CitationEvent{
			{SourceNumber: 1},
			{SourceNumber: 99},
			{SourceNumber: 0},
		}
		result := r.Reconcile(events, 3)
		if got, want := result.Cited, []int{1}; !equalInts(got, want) {
			t.Errorf("cited = %v", got)
		}
		if got, want := result.Invalid, []int{0, 99}; !equalInts(got, want) {
			t.Errorf("invalid = %v, want %v", got, want)
		}
	})

	t.Run("NoCitations", func(t *testing.T) {
		result := r.Reconcile(nil, 5)
		if result.CitedCount != 0 || len(result.Uncited) != 5 {
			t.Errorf("result = %+v", result)
		}
		if got := Summary(result); got != "0/5 sources citées" {
			t.Errorf("summary = %q", got)
		}
	})

	t.Run("EmptyContext", func(t *testing.T) {
		result := r.Reconcile(nil, 0)
		if result.CitedCount != 0 || result.TotalCount != 0 || len(result.Uncited) != 0 {
			t.Errorf("result = %+v", result)
		}
	})
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
