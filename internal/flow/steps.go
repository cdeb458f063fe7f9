package flow

import "github.com/leadflow/internal/session"

// Step ids.
const (
	StepGreeting              = "greeting"
	StepBusinessQualification = "business_qualification"
	StepServiceIdentification = "service_identification"
	StepDetailedInquiry       = "detailed_inquiry"
	StepCompanyData           = "company_data_collection"
	StepContactCollection     = "contact_collection"
	StepQuoteRequest          = "quote_request"
	StepEmergencyFlow         = "emergency_flow"
	StepEscalation            = "escalation"
	StepCompletion            = "completion"
)

// FieldType tags how a collected field is validated.
type FieldType string

const (
	FieldText   FieldType = "text"
	FieldPhone  FieldType = "phone"
	FieldEmail  FieldType = "email"
	FieldChoice FieldType = "choice"
)

// FieldDef declares one field a step collects.
type FieldDef struct {
	Name     string
	Type     FieldType
	Required bool
	Choices  []string
	// Ask is the prompt used when this specific field is still missing.
	Ask string
}

// Step is one node of the conversation graph. Steps are plain data: the
// transition function in machine.go is the only control flow.
type Step struct {
	ID       string
	Prompt   string
	Fields   []FieldDef
	Options  []string
	Next     string
	Terminal bool
}

// DefaultSteps returns the scripted qualification flow. The map is keyed by
// step id; Machine keeps it immutable after construction.
func DefaultSteps(serviceNames []string) map[string]Step {
	sizeChoices := []string{"1-4", "5-19", "20-49", "50+"}
	timelineOptions := []string{"Il prima possibile", "Entro un mese", "Solo informazioni"}

	return map[string]Step{
		StepGreeting: {
			ID: StepGreeting,
			Prompt: "Buongiorno! Sono l'assistente digitale di LeadFlow Informatica. " +
				"Posso aiutarla con assistenza IT, sicurezza, backup e molto altro. Come posso esserle utile?",
			Options: []string{"Richiedi un preventivo", "Assistenza tecnica", "Parla con un operatore"},
			Next:    StepBusinessQualification,
		},
		StepBusinessQualification: {
			ID:     StepBusinessQualification,
			Prompt: "Per proporle la soluzione giusta: quante persone lavorano nella sua azienda?",
			Fields: []FieldDef{
				{
					Name:     session.FieldCompanySize,
					Type:     FieldChoice,
					Required: true,
					Choices:  sizeChoices,
					Ask:      "Quante postazioni di lavoro avete? Può scegliere tra: 1-4, 5-19, 20-49, 50+",
				},
			},
			Options: sizeChoices,
			Next:    StepServiceIdentification,
		},
		StepServiceIdentification: {
			ID:     StepServiceIdentification,
			Prompt: "Quale servizio le interessa di più?",
			Fields: []FieldDef{
				{
					Name:     session.FieldServiceInterest,
					Type:     FieldText,
					Required: true,
					Ask:      "Mi può indicare l'area di suo interesse? Ad esempio: assistenza, sicurezza, backup, cloud.",
				},
			},
			Options: serviceNames,
			Next:    StepDetailedInquiry,
		},
		StepDetailedInquiry: {
			ID:     StepDetailedInquiry,
			Prompt: "Capito. Entro quando vorreste partire con il progetto?",
			Fields: []FieldDef{
				{
					Name:     session.FieldTimeline,
					Type:     FieldText,
					Required: true,
					Ask:      "Avete una tempistica in mente? Anche indicativa.",
				},
			},
			Options: timelineOptions,
			Next:    StepCompanyData,
		},
		StepCompanyData: {
			ID:     StepCompanyData,
			Prompt: "Perfetto. Mi può dire il nome della sua azienda e in che comune siete?",
			Fields: []FieldDef{
				{
					Name:     session.FieldCompanyName,
					Type:     FieldText,
					Required: true,
					Ask:      "Come si chiama la sua azienda?",
				},
				{
					Name:     session.FieldLocation,
					Type:     FieldText,
					Required: true,
					Ask:      "In quale comune ha sede l'azienda?",
				},
			},
			Next: StepContactCollection,
		},
		StepContactCollection: {
			ID:     StepContactCollection,
			Prompt: "Ottimo. Per farla ricontattare da un nostro consulente mi lascia un recapito?",
			Fields: []FieldDef{
				{
					Name:     session.FieldContactName,
					Type:     FieldText,
					Required: true,
					Ask:      "A chi chiediamo? Mi lascia il suo nome?",
				},
				{
					Name:     session.FieldPhone,
					Type:     FieldPhone,
					Required: true,
					Ask:      "A quale numero di telefono possiamo chiamarla?",
				},
				{
					Name:     session.FieldEmail,
					Type:     FieldEmail,
					Required: false,
					Ask:      "Se vuole, mi lasci anche un indirizzo email per inviarle il preventivo.",
				},
			},
			Next: StepQuoteRequest,
		},
		StepQuoteRequest: {
			ID: StepQuoteRequest,
			Prompt: "Grazie {contact_name}! Un nostro consulente la contatterà a breve con una proposta per {service_interest}. " +
				"{zone_sla}.",
			Next: StepCompletion,
		},
		StepEmergencyFlow: {
			ID: StepEmergencyFlow,
			Prompt: "Ho capito, si tratta di un'emergenza. Ho già allertato il nostro team tecnico. " +
				"Mi lasci un numero di telefono: la richiamiamo immediatamente.",
			Fields: []FieldDef{
				{
					Name:     session.FieldPhone,
					Type:     FieldPhone,
					Required: true,
					Ask:      "A quale numero possiamo richiamarla subito?",
				},
			},
			Next: StepEscalation,
		},
		StepEscalation: {
			ID: StepEscalation,
			Prompt: "Un nostro tecnico la sta per contattare. " +
				"Restiamo a disposizione qui in chat per qualsiasi aggiornamento.",
			Terminal: true,
		},
		StepCompletion: {
			ID: StepCompletion,
			Prompt: "Grazie per averci contattato! Riceverà a breve la nostra proposta. " +
				"Per qualsiasi urgenza può scriverci qui in qualsiasi momento.",
			Terminal: true,
		},
	}
}
