package flow

import (
	"testing"
	"time"

	"github.com/leadflow/internal/geo"
	"github.com/leadflow/internal/session"
)

func TestExtractLeadHarvestsContactData(t *testing.T) {
	classifier := geo.NewClassifier(geo.DefaultZones())
	c := session.New(StepGreeting, time.Now())

	ExtractLead(c, "siamo 60 dipendenti a Vimercate, scrivete a mario@rossisrl.it o chiamate il 039 608 5000, è urgente", classifier)

	if c.LeadData[session.FieldEmail] != "mario@rossisrl.it" {
		t.Fatalf("email not extracted: %q", c.LeadData[session.FieldEmail])
	}
	if c.LeadData[session.FieldPhone] == "" {
		t.Fatal("phone not extracted")
	}
	if c.LeadData[session.FieldCompanySize] != "60" {
		t.Fatalf("company size not extracted: %q", c.LeadData[session.FieldCompanySize])
	}
	if c.LeadData[session.FieldLocation] != "vimercate" {
		t.Fatalf("location not extracted: %q", c.LeadData[session.FieldLocation])
	}
	if c.LeadData[session.FieldTimeline] != "subito" {
		t.Fatalf("timeline not extracted: %q", c.LeadData[session.FieldTimeline])
	}
}

func TestExtractLeadDoesNotOverwrite(t *testing.T) {
	classifier := geo.NewClassifier(geo.DefaultZones())
	c := session.New(StepGreeting, time.Now())
	c.SetField(session.FieldPhone, "02 111111", false)

	ExtractLead(c, "il mio numero è 039 222222", classifier)
	if c.LeadData[session.FieldPhone] != "02 111111" {
		t.Fatal("extraction must not overwrite collected fields")
	}
}

func TestExtractLeadIgnoresUnknownLocation(t *testing.T) {
	classifier := geo.NewClassifier(geo.DefaultZones())
	c := session.New(StepGreeting, time.Now())

	ExtractLead(c, "siamo di Roma", classifier)
	if _, ok := c.LeadData[session.FieldLocation]; ok {
		t.Fatal("out-of-coverage towns must not set the location field")
	}
}
