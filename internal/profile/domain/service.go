package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// UpsertProfileRequest replaces the whole profile. Omitted optional fields are cleared.
type UpsertProfileRequest struct {
	DocumentType   string `json:"document_type"`
	DocumentNumber string `json:"document_number"`
	CompanyName    string `json:"company_name"`
	Whatsapp       string `json:"whatsapp"`
	Phone          string `json:"phone"`
	Website        string `json:"website"`
	LogoURL        string `json:"logo_url"`
	AddressLine1   string `json:"address_line1"`
	AddressLine2   string `json:"address_line2"`
	City           string `json:"city"`
	State          string `json:"state"`
	Country        string `json:"country"`
	PostalCode     string `json:"postal_code"`
}

type Service interface {
	Get(ctx context.Context) (Profile, error)
	// GetForUser is used by renderers that already resolved the owner.
	GetForUser(ctx context.Context, userID snowflake.ID) (*Profile, error)
	Upsert(ctx context.Context, req UpsertProfileRequest) (Profile, bool, error)
	Delete(ctx context.Context) error
}

var (
	ErrInvalidUser           = errors.New("invalid_user")
	ErrInvalidDocumentType   = errors.New("invalid_document_type")
	ErrInvalidDocumentNumber = errors.New("invalid_document_number")
	ErrInvalidCompanyName    = errors.New("invalid_company_name")
	ErrInvalidWhatsapp       = errors.New("invalid_whatsapp")
	ErrInvalidURL            = errors.New("invalid_url")
	ErrNotFound              = errors.New("not_found")
)
