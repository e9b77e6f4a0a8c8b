package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	DocumentTypeCPF   = "cpf"
	DocumentTypeCNPJ  = "cnpj"
	DocumentTypeOther = "other"
)

// Profile is the company header a user prints on budgets. One per user.
type Profile struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID         snowflake.ID `gorm:"column:user_id;not null;uniqueIndex" json:"-"`
	DocumentType   string       `gorm:"column:document_type;type:text;not null" json:"document_type"`
	DocumentNumber string       `gorm:"column:document_number;type:text" json:"document_number,omitempty"`
	CompanyName    string       `gorm:"column:company_name;type:text;not null" json:"company_name"`
	Whatsapp       string       `gorm:"column:whatsapp;type:text" json:"whatsapp,omitempty"`
	Phone          string       `gorm:"column:phone;type:text" json:"phone,omitempty"`
	Website        string       `gorm:"column:website;type:text" json:"website,omitempty"`
	LogoURL        string       `gorm:"column:logo_url;type:text" json:"logo_url,omitempty"`
	AddressLine1   string       `gorm:"column:address_line1;type:text" json:"address_line1,omitempty"`
	AddressLine2   string       `gorm:"column:address_line2;type:text" json:"address_line2,omitempty"`
	City           string       `gorm:"column:city;type:text" json:"city,omitempty"`
	State          string       `gorm:"column:state;type:text" json:"state,omitempty"`
	Country        string       `gorm:"column:country;type:text" json:"country,omitempty"`
	PostalCode     string       `gorm:"column:postal_code;type:text" json:"postal_code,omitempty"`
	CreatedAt      time.Time    `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }
