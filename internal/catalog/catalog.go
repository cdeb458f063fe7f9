// Package catalog holds the read-only service catalog the conversation quotes
// from. It is plain data injected into the components that need it; nothing
// in the core ever mutates it.
package catalog

// Service describes one sellable offering.
type Service struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	PriceRange  string `json:"price_range"`
}

// Catalog is a fixed list of services with lookup helpers.
type Catalog struct {
	services []Service
}

func New(services []Service) *Catalog {
	return &Catalog{services: services}
}

// Default returns the built-in MSP offering.
func Default() *Catalog {
	return New([]Service{
		{
			ID:          "assistenza_it",
			Name:        "Assistenza IT gestita",
			Description: "Gestione completa dell'infrastruttura IT con monitoraggio proattivo",
			Category:    "managed",
			PriceRange:  "da 35€/postazione/mese",
		},
		{
			ID:          "sicurezza",
			Name:        "Sicurezza informatica",
			Description: "Firewall gestito, endpoint protection, audit GDPR",
			Category:    "security",
			PriceRange:  "da 250€/mese",
		},
		{
			ID:          "backup",
			Name:        "Backup e disaster recovery",
			Description: "Backup automatico cifrato con ripristino garantito",
			Category:    "continuity",
			PriceRange:  "da 120€/mese",
		},
		{
			ID:          "cloud",
			Name:        "Migrazione cloud",
			Description: "Migrazione a Microsoft 365 e infrastrutture cloud",
			Category:    "cloud",
			PriceRange:  "progetto da 1.500€",
		},
		{
			ID:          "voip",
			Name:        "Centralino VoIP",
			Description: "Telefonia aziendale in cloud",
			Category:    "network",
			PriceRange:  "da 15€/interno/mese",
		},
	})
}

// All returns the catalog entries in declaration order.
func (c *Catalog) All() []Service {
	out := make([]Service, len(c.services))
	copy(out, c.services)
	return out
}

// ByID returns the service with the given id.
func (c *Catalog) ByID(id string) (Service, bool) {
	for _, s := range c.services {
		if s.ID == id {
			return s, true
		}
	}
	return Service{}, false
}

// Names returns the display names, used to build quick-reply options.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.services))
	for _, s := range c.services {
		out = append(out, s.Name)
	}
	return out
}
