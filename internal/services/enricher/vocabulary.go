package enricher

// legalTerms is the curated GDPR / AI-Act vocabulary matched against chunk
// text during enrichment. Matching is case-insensitive on the cleaned text;
// the canonical casing below is what gets stored.
var legalTerms = []string{
	"RGPD", "IA Act", "données personnelles", "consentement", "DPO",
	"responsable du traitement", "responsable de traitement", "sous-traitant",
	"droits des personnes", "personne concernée", "destinataire",
	"système d'IA", "système d'intelligence artificielle", "risque élevé",
	"haut risque", "conformité", "sanctions", "transparence",
	"privacy by design", "accountability", "protection des données",
	"traitement de données", "finalité", "licéité", "minimisation",
	"exactitude", "limitation de conservation", "intégrité",
	"confidentialité", "évaluation d'impact", "violation de données",
	"autorité de contrôle", "délégué à la protection", "portabilité",
	"droit d'accès", "droit de rectification", "droit à l'effacement",
	"sécurité", "mesures techniques", "mesures organisationnelles",
}
