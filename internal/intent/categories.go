package intent

// Kind names an intent category.
type Kind string

const (
	KindEmergency    Kind = "emergency"
	KindQuoteRequest Kind = "quote_request"
	KindSecurity     Kind = "security_focus"
	KindSupport      Kind = "support_request"
	KindBackup       Kind = "backup_focus"
	KindHumanRequest Kind = "human_request"
	KindGeneral      Kind = "general"
)

// Category defines one recognizable intent: its trigger keywords, the weight
// applied to keyword coverage and the minimum confidence required before the
// category is reported at all.
type Category struct {
	Kind      Kind
	Keywords  []string
	Weight    float64
	Threshold float64
}

// DefaultCategories returns the built-in category table. Declaration order is
// meaningful: it breaks confidence ties, so higher-stakes categories come
// first.
func DefaultCategories() []Category {
	return []Category{
		{
			Kind: KindEmergency,
			// incident phrases only: bare urgency words like "urgente"
			// describe a timeline, not an outage
			Keywords: []string{
				"emergenza", "server down", "rete down", "sistema down",
				"tutto fermo", "siamo fermi", "tutto bloccato",
				"siamo bloccati", "produzione ferma",
				"non funziona niente", "non funziona più nulla",
				"virus", "ransomware", "hackerato", "sotto attacco",
				"attacco informatico", "crash",
			},
			Weight:    3.0,
			Threshold: 0.7,
		},
		{
			Kind: KindQuoteRequest,
			Keywords: []string{
				"preventivo", "quotazione", "offerta", "prezzo", "prezzi",
				"costo", "costi", "quanto costa", "quanto viene", "listino",
				"canone", "budget",
			},
			Weight:    2.0,
			Threshold: 0.3,
		},
		{
			Kind: KindSecurity,
			Keywords: []string{
				"sicurezza", "firewall", "antivirus", "protezione", "gdpr",
				"phishing", "cybersecurity", "cyber", "penetration",
				"vulnerabilità", "dati sensibili",
			},
			Weight:    2.0,
			Threshold: 0.3,
		},
		{
			Kind: KindSupport,
			Keywords: []string{
				"assistenza", "supporto", "aiuto", "problema", "tecnico",
				"malfunzionamento", "errore", "lento", "configurare",
			},
			Weight:    1.5,
			Threshold: 0.3,
		},
		{
			Kind: KindBackup,
			Keywords: []string{
				"backup", "ripristino", "disaster recovery", "dati persi",
				"recupero dati", "salvataggio", "copia di sicurezza", "nas",
			},
			Weight:    2.0,
			Threshold: 0.3,
		},
		{
			Kind: KindHumanRequest,
			Keywords: []string{
				"operatore", "parlare con qualcuno", "parlare con una persona",
				"persona reale", "umano", "chiamatemi", "telefonatemi",
				"voglio parlare",
			},
			Weight:    2.5,
			Threshold: 0.4,
		},
	}
}
