package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
)

// Generates small French regulatory PDFs so the indexing pipeline can be
// exercised without the real RGPD / AI Act corpus. The documents carry the
// structural markers the enricher looks for (Article, CHAPITRE, SECTION)
// and the kinds of extraction artifacts the cleaner repairs.

type sampleDocument struct {
	FileName string
	Title    string
	Sections []sampleSection
}

type sampleSection struct {
	Heading string
	Body    []string
}

var samples = []sampleDocument{
	{
		FileName: "rgpd-extrait.pdf",
		Title:    "Règlement général sur la protection des données (extrait)",
		Sections: []sampleSection{
			{
				Heading: "CHAPITRE II - Principes",
				Body: []string{
					"Article 5 - Principes relatifs au traitement des données à caractère personnel",
					"Les données à caractère personnel doivent être traitées de manière licite, loyale et transparente au regard de la personne concernée. Elles sont collectées pour des finalités déterminées, explicites et légitimes, et ne sont pas traitées ultérieurement d'une manière incompatible avec ces finalités.",
					"Le responsable du traitement est responsable du respect de ces principes et doit être en mesure de démontrer que ceux-ci sont respectés.",
				},
			},
			{
				Heading: "Article 6 - Licéité du traitement",
				Body: []string{
					"Le traitement n'est licite que si, et dans la mesure où, au moins une des conditions suivantes est remplie :",
					"a) la personne concernée a consenti au traitement de ses données à caractère personnel pour une ou plusieurs finalités spécifiques ;",
					"b) le traitement est nécessaire à l'exécution d'un contrat auquel la personne concernée est partie ;",
					"c) le traitement est nécessaire au respect d'une obligation légale à laquelle le responsable du traitement est soumis.",
				},
			},
			{
				Heading: "CHAPITRE IV - Responsable du traitement et sous-traitant",
				Body: []string{
					"Article 35 - Analyse d'impact relative à la protection des données",
					"Lorsqu'un type de traitement est susceptible d'engendrer un risque élevé pour les droits et libertés des personnes physiques, le responsable du traitement effectue, avant le traitement, une analyse d'impact des opérations de traitement envisagées.",
					"Le responsable du traitement demande conseil au délégué à la protection des données, lorsqu'un tel délégué a été désigné.",
				},
			},
		},
	},
	{
		FileName: "ia-act-extrait.pdf",
		Title:    "Règlement sur l'intelligence artificielle (extrait)",
		Sections: []sampleSection{
			{
				Heading: "CHAPITRE III - Systèmes d'IA à haut risque",
				Body: []string{
					"SECTION 2 - Exigences applicables aux systèmes d'IA à haut risque",
					"Article 9 - Système de gestion des risques",
					"Un système de gestion des risques est établi, mis en oeuvre, documenté et tenu à jour pour les systèmes d'IA à haut risque. Il s'entend comme un processus itératif continu qui se déroule sur l'ensemble du cycle de vie du système.",
				},
			},
			{
				Heading: "Article 10 - Données et gouvernance des données",
				Body: []string{
					"Les systèmes d'IA à haut risque qui utilisent des techniques impliquant l'entraînement de modèles au moyen de données sont développés sur la base de jeux de données d'entraînement, de validation et de test qui satisfont aux critères de qualité visés au présent article.",
					"Les jeux de données sont pertinents, suffisamment représentatifs et, dans toute la mesure du possible, exempts d'erreurs et complets au regard de la destination du système.",
				},
			},
			{
				Heading: "Article 13 - Transparence et fourniture d'informations",
				Body: []string{
					"Les systèmes d'IA à haut risque sont conçus et développés de manière à garantir que leur fonctionnement est suffisamment transparent pour permettre aux déployeurs d'interpréter les sorties du système et de les utiliser de manière appropriée.",
				},
			},
		},
	},
}

func main() {
	outDir := flag.String("out", "./knowledge", "Directory to write the sample PDFs into")
	flag.Parse()

	logger := arbor.NewLogger()

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		logger.Fatal().Err(err).Str("dir", *outDir).Msg("Failed to create output directory")
	}

	for _, doc := range samples {
		path := filepath.Join(*outDir, doc.FileName)
		if err := writeDocument(path, doc); err != nil {
			logger.Fatal().Err(err).Str("file", doc.FileName).Msg("Failed to generate sample PDF")
		}
		logger.Info().Str("file", path).Msg("Generated sample PDF")
	}

	fmt.Printf("\n%d sample documents written to %s\n", len(samples), *outDir)
}

func writeDocument(path string, doc sampleDocument) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	// Core fonts are Latin-1 only, so French accents need translation.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Times", "B", 14)
	pdf.MultiCell(0, 7, tr(doc.Title), "", "C", false)
	pdf.Ln(6)

	for _, section := range doc.Sections {
		pdf.SetFont("Times", "B", 11)
		pdf.MultiCell(0, 6, tr(section.Heading), "", "L", false)
		pdf.Ln(2)

		pdf.SetFont("Times", "", 10)
		for _, paragraph := range section.Body {
			pdf.MultiCell(0, 5, tr(paragraph), "", "J", false)
			pdf.Ln(2)
		}
		pdf.Ln(4)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := pdf.Output(f); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}
