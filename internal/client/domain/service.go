package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/quoteflow/pkg/db/pagination"
)

type CreateClientRequest struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Whatsapp *string `json:"whatsapp"`
	Notes    *string `json:"notes"`
}

// UpdateClientRequest carries a partial update. Nil fields are left unchanged.
type UpdateClientRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Whatsapp *string `json:"whatsapp"`
	Notes    *string `json:"notes"`
}

type ListClientRequest struct {
	pagination.Pagination
	Name  string `form:"name"`
	Email string `form:"email"`
}

type ListClientResponse struct {
	pagination.PageInfo
	Clients []Client `json:"clients"`
}

type Service interface {
	Create(ctx context.Context, req CreateClientRequest) (Client, error)
	List(ctx context.Context, req ListClientRequest) (ListClientResponse, error)
	Get(ctx context.Context, id string) (Client, error)
	Update(ctx context.Context, id string, req UpdateClientRequest) (Client, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidUser      = errors.New("invalid_user")
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidEmail     = errors.New("invalid_email")
	ErrInvalidWhatsapp  = errors.New("invalid_whatsapp")
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrEmailTaken       = errors.New("email_taken")
	ErrClientInUse      = errors.New("client_in_use")
	ErrNotFound         = errors.New("not_found")
)
