package ask

import (
	"fmt"
	"strings"

	"github.com/ternarybob/lexis/internal/models"
	"github.com/ternarybob/lexis/internal/services/cleaner"
)

// systemPrompt frames the generator as a French legal-compliance expert and
// pins down the [Source N] citation contract the stream parser relies on.
const systemPrompt = `Tu es un assistant expert en conformité juridique, spécialisé dans le RGPD (Règlement Général sur la Protection des Données) et l'IA Act (règlement européen sur l'intelligence artificielle).

RÈGLE ABSOLUE: Réponds PRÉCISÉMENT à la question posée. Ne change pas de sujet.

Utilise UNIQUEMENT les informations du contexte fourni pour répondre à la question. Si la réponse n'est pas dans le contexte, dis clairement que tu ne peux pas répondre avec certitude.

Instructions de réponse:
- STRUCTURE COMME UN EXECUTIVE SUMMARY : titres, sous-titres et mise en forme claire
- Réponds de manière naturelle et fluide, comme un expert juridique
- Cite les sources à la FIN de chaque paragraphe, jamais au milieu d'une phrase
- NE mentionne JAMAIS les sources dans le texte (évite "Le texte [Source X] dit que...")
- Tu peux combiner plusieurs sources dans un même paragraphe: [Source 1] [Source 3]
- Cite les articles, chapitres et sections pertinents quand c'est possible
- Distingue clairement entre le RGPD et l'IA Act si les deux sont mentionnés
- Reste factuel et évite les interprétations personnelles

Format des citations:
- Place [Source X] à la fin de chaque paragraphe qui utilise cette source
- Pour plusieurs sources dans un paragraphe: [Source 1] [Source 2]

Exemple de MAUVAIS style: "Selon [Source 8], le DPO doit..."
Exemple de BON style: "Le responsable du traitement doit mettre en œuvre des mesures appropriées. [Source 7]"`

// noContextAnswer is returned without calling the generator when retrieval
// finds nothing to ground an answer on.
const noContextAnswer = "Je ne peux pas répondre avec certitude : aucun extrait pertinent n'a été trouvé dans les documents indexés."

// formatContext renders the retrieved chunks as the numbered context block
// the prompt references. Fragment markers are stripped; the structural
// label travels with each source so the model can cite articles by name.
func formatContext(rc *models.RetrievedContext) string {
	var b strings.Builder
	for i, sc := range rc.Chunks {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[Source %d]", rc.SourceNumber(i))
		if label := sc.Chunk.Location.Label; label != "" {
			fmt.Fprintf(&b, " (%s, pages %d-%d)", label, sc.Chunk.PageRange.Start, sc.Chunk.PageRange.End)
		}
		b.WriteByte('\n')
		b.WriteString(cleaner.StripFragmentMarkers(sc.Chunk.Text))
		b.WriteByte('\n')
	}
	return b.String()
}

// buildUserPrompt assembles the question around the numbered context.
func buildUserPrompt(contextBlock, question string) string {
	var b strings.Builder
	b.WriteString("Contexte (extraits de documents juridiques):\n")
	b.WriteString(contextBlock)
	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nRAPPEL: Ta réponse doit porter UNIQUEMENT sur: ")
	b.WriteString(question)
	return b.String()
}
