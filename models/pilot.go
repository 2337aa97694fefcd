package models

import (
	"strings"
	"time"
)

// PilotStatus is the employment status of a pilot
type PilotStatus string

const (
	PilotStatusActive    PilotStatus = "Active"
	PilotStatusInactive  PilotStatus = "Inactive"
	PilotStatusSuspended PilotStatus = "Suspended"
)

// CertificationStatus is the stored validity label of a certification
type CertificationStatus string

const (
	CertificationValid        CertificationStatus = "Valid"
	CertificationExpiringSoon CertificationStatus = "Expiring Soon"
	CertificationExpired      CertificationStatus = "Expired"
)

// Certification is a pilot licence or rating embedded in the pilot document
type Certification struct {
	Type    string              `json:"type" validate:"required"`
	Issued  string              `json:"issued" validate:"required,isodate"`
	Expires string              `json:"expires" validate:"required,isodate"`
	Status  CertificationStatus `json:"status,omitempty" validate:"omitempty,oneof=Valid 'Expiring Soon' Expired"`
}

// DaysUntilExpiry returns the whole days between now and the expiry date.
// ok is false when the expiry date cannot be parsed.
func (c Certification) DaysUntilExpiry(now time.Time) (days int, ok bool) {
	expires, err := ParseDate(c.Expires)
	if err != nil {
		return 0, false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	exp := time.Date(expires.Year(), expires.Month(), expires.Day(), 0, 0, 0, 0, time.UTC)
	return int(exp.Sub(today).Hours() / 24), true
}

// Pilot is a pilot profile document
type Pilot struct {
	ID             string          `json:"id"`
	UserID         *string         `json:"userId"`
	Name           string          `json:"name" validate:"required"`
	Email          string          `json:"email" validate:"required,email"`
	Contact        string          `json:"contact" validate:"required"`
	Status         PilotStatus     `json:"status" validate:"omitempty,oneof=Active Inactive Suspended"`
	Certifications []Certification `json:"certifications" validate:"dive"`
}

// ApplyDefaults trims input and fills defaulted fields
func (p *Pilot) ApplyDefaults() {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.Contact = strings.TrimSpace(p.Contact)
	if p.Status == "" {
		p.Status = PilotStatusActive
	}
	if p.Certifications == nil {
		p.Certifications = []Certification{}
	}
	for i := range p.Certifications {
		p.Certifications[i].Type = strings.TrimSpace(p.Certifications[i].Type)
		if p.Certifications[i].Status == "" {
			p.Certifications[i].Status = CertificationValid
		}
	}
	if p.UserID != nil && strings.TrimSpace(*p.UserID) == "" {
		p.UserID = nil
	}
}

// LinkedUserID returns the linked account uid or ""
func (p *Pilot) LinkedUserID() string {
	if p.UserID == nil {
		return ""
	}
	return *p.UserID
}

// OwningPilotID implements the pilot ownership contract
func (p *Pilot) OwningPilotID() string {
	return p.ID
}
