package geo

// ZoneID identifies a geographic coverage zone.
type ZoneID string

const (
	ZonePremium   ZoneID = "vimercate_area"
	ZoneSecondary ZoneID = "monza_brianza"
	ZoneExtended  ZoneID = "milano_est"
	ZoneOther     ZoneID = "other"
)

// Zone is one geographic bucket of the coverage map. Zones are matched in
// declaration order, so the most valuable areas must come first.
type Zone struct {
	ID             ZoneID   `json:"id"`
	Keywords       []string `json:"keywords"`
	PriorityWeight int      `json:"priority_weight"`
	ResponseSLA    string   `json:"response_sla"`
	Guarantees     []string `json:"guarantees"`
}

// DefaultZones returns the static coverage map for the Vimercate service area.
// The list is ordered by commercial priority; first match wins.
func DefaultZones() []Zone {
	return []Zone{
		{
			ID: ZonePremium,
			Keywords: []string{
				"vimercate", "arcore", "agrate", "agrate brianza", "concorezzo",
				"burago", "usmate", "velate", "carnate", "bernareggio", "oreno",
				"ruginello", "sulbiate", "aicurzio", "bellusco", "ornago",
			},
			PriorityWeight: 35,
			ResponseSLA:    "Intervento on-site entro 2 ore",
			Guarantees: []string{
				"Tecnico dedicato di zona",
				"Sopralluogo gratuito",
				"Intervento on-site garantito in giornata",
			},
		},
		{
			ID: ZoneSecondary,
			Keywords: []string{
				"monza", "brianza", "lissone", "vedano", "biassono", "villasanta",
				"muggio", "brugherio", "seregno", "desio", "carate", "besana",
				"lesmo", "correzzana", "triuggio", "macherio", "sovico",
			},
			PriorityWeight: 25,
			ResponseSLA:    "Intervento on-site entro 4 ore",
			Guarantees: []string{
				"Sopralluogo gratuito",
				"Intervento on-site entro il giorno lavorativo successivo",
			},
		},
		{
			ID: ZoneExtended,
			Keywords: []string{
				"milano", "sesto san giovanni", "cologno", "cologno monzese",
				"cernusco", "cernusco sul naviglio", "vimodrone", "gorgonzola",
				"melzo", "segrate", "pioltello", "carugate", "bussero", "cambiago",
				"gessate", "pessano",
			},
			PriorityWeight: 15,
			ResponseSLA:    "Intervento on-site entro 8 ore lavorative",
			Guarantees: []string{
				"Assistenza remota immediata",
				"Sopralluogo su appuntamento",
			},
		},
	}
}

// OtherZone is returned when no configured zone matches.
func OtherZone() Zone {
	return Zone{
		ID:             ZoneOther,
		PriorityWeight: 0,
		ResponseSLA:    "Assistenza remota entro 24 ore",
		Guarantees:     []string{"Assistenza remota su tutto il territorio nazionale"},
	}
}
