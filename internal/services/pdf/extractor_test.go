package pdf

import "testing"

func TestDecodeContentText(t *testing.T) {
	t.Run("SimpleTjOperators", func(t *testing.T) {
		content := `BT /F1 12 Tf (Article 5) Tj ET BT (Principes relatifs au traitement) Tj ET`
		got := decodeContentText(content)
		want := "Article 5 Principes relatifs au traitement"
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("TJArrayDropsKerning", func(t *testing.T) {
		content := `BT [(Le ) -250 (RGPD) 120 ( garantit)] TJ ET`
		got := decodeContentText(content)
		if got != "Le RGPD garantit" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("LineAdvanceBecomesNewline", func(t *testing.T) {
		content := `BT (Article 5) Tj 0 -14 Td (Le traitement est licite.) Tj ET`
		got := decodeContentText(content)
		want := "Article 5\nLe traitement est licite."
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("EscapedParentheses", func(t *testing.T) {
		content := `(voir \(art. 6\)) Tj`
		got := decodeContentText(content)
		if got != "voir (art. 6)" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("NoTextOperators", func(t *testing.T) {
		if got := decodeContentText(`0 0 612 792 re f`); got != "" {
			t.Errorf("got %q, want empty", got)
		}
	})
}

func TestUnescapePDFString(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`donn\351es`, "données"},
		{`lic\351it\351`, "licéité"},
		{`ligne\nsuivante`, "ligne\nsuivante"},
		{`backslash \\ fin`, `backslash \ fin`},
		{`sans escape`, "sans escape"},
	}
	for _, tc := range cases {
		if got := unescapePDFString(tc.in); got != tc.want {
			t.Errorf("unescapePDFString(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
