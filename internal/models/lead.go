package models

import "time"

// LeadKind is the form a lead came from
type LeadKind string

const (
	LeadContact  LeadKind = "contacto"
	LeadReferral LeadKind = "referido"
)

// Lead is a contact or referral form submission.
type Lead struct {
	ID       string   `gorm:"type:varchar(36);primaryKey" json:"id"`
	Kind     LeadKind `gorm:"type:varchar(20);not null;index" json:"kind"`
	Nombre   string   `gorm:"type:varchar(100);not null" json:"nombre"`
	Email    string   `gorm:"type:varchar(200)" json:"email,omitempty"`
	Telefono string   `gorm:"type:varchar(30)" json:"telefono,omitempty"`
	Mensaje  string   `gorm:"type:text" json:"mensaje,omitempty"`

	// Listing the visitor asked about, if any
	ListingID string `gorm:"type:varchar(64);index" json:"listing_id,omitempty"`

	// Referral: the person being referred
	ReferidoNombre   string `gorm:"type:varchar(100)" json:"referido_nombre,omitempty"`
	ReferidoEmail    string `gorm:"type:varchar(200)" json:"referido_email,omitempty"`
	ReferidoTelefono string `gorm:"type:varchar(30)" json:"referido_telefono,omitempty"`

	// Search preferences
	Operacion   string `gorm:"type:varchar(20)" json:"operacion,omitempty"`
	Tipo        string `gorm:"type:varchar(80)" json:"tipo,omitempty"`
	Comuna      string `gorm:"type:varchar(100)" json:"comuna,omitempty"`
	Presupuesto string `gorm:"type:varchar(60)" json:"presupuesto,omitempty"`

	Origen    string    `gorm:"type:varchar(200)" json:"origen,omitempty"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
}

// TableName pins the table name
func (Lead) TableName() string {
	return "leads"
}
