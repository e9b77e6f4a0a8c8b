package service

import (
	"context"
	"net/url"
	"strings"
	"unicode"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/quoteflow/internal/audit/domain"
	clientdomain "github.com/smallbiznis/quoteflow/internal/client/domain"
	"github.com/smallbiznis/quoteflow/internal/clock"
	"github.com/smallbiznis/quoteflow/internal/profile/domain"
	"github.com/smallbiznis/quoteflow/internal/userctx"
	"github.com/smallbiznis/quoteflow/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     repository.Repository[domain.Profile]
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     repository.Repository[domain.Profile]
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("profile.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Get(ctx context.Context) (domain.Profile, error) {
	userID, ok := userctx.UserIDFromContext(ctx)
	if !ok {
		return domain.Profile{}, domain.ErrInvalidUser
	}
	profile, err := s.GetForUser(ctx, userID)
	if err != nil {
		return domain.Profile{}, err
	}
	if profile == nil {
		return domain.Profile{}, domain.ErrNotFound
	}
	return *profile, nil
}

func (s *Service) GetForUser(ctx context.Context, userID snowflake.ID) (*domain.Profile, error) {
	return s.repo.FindOne(ctx, &domain.Profile{UserID: userID})
}

// Upsert reports created=true when no profile existed before.
func (s *Service) Upsert(ctx context.Context, req domain.UpsertProfileRequest) (domain.Profile, bool, error) {
	userID, ok := userctx.UserIDFromContext(ctx)
	if !ok {
		return domain.Profile{}, false, domain.ErrInvalidUser
	}
	fields, err := normalize(req)
	if err != nil {
		return domain.Profile{}, false, err
	}

	var (
		result  *domain.Profile
		created bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTrx(tx)
		existing, err := repo.FindOne(ctx, &domain.Profile{UserID: userID})
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if existing == nil {
			profile := fields
			profile.ID = s.genID.Generate()
			profile.UserID = userID
			profile.CreatedAt = now
			profile.UpdatedAt = now
			if err := repo.Create(ctx, &profile); err != nil {
				return err
			}
			result = &profile
			created = true
			return nil
		}

		if err := repo.Update(ctx, int64(existing.ID), map[string]any{
			"document_type":   fields.DocumentType,
			"document_number": fields.DocumentNumber,
			"company_name":    fields.CompanyName,
			"whatsapp":        fields.Whatsapp,
			"phone":           fields.Phone,
			"website":         fields.Website,
			"logo_url":        fields.LogoURL,
			"address_line1":   fields.AddressLine1,
			"address_line2":   fields.AddressLine2,
			"city":            fields.City,
			"state":           fields.State,
			"country":         fields.Country,
			"postal_code":     fields.PostalCode,
			"updated_at":      now,
		}); err != nil {
			return err
		}
		result, err = repo.FindOne(ctx, &domain.Profile{UserID: userID})
		return err
	})
	if err != nil {
		return domain.Profile{}, false, err
	}
	if result == nil {
		return domain.Profile{}, false, domain.ErrNotFound
	}

	action := "profile.update"
	if created {
		action = "profile.create"
	}
	s.audit(ctx, userID, action, result.ID, map[string]any{
		"document_type":   result.DocumentType,
		"document_number": result.DocumentNumber,
	})
	return *result, created, nil
}

func (s *Service) Delete(ctx context.Context) error {
	userID, ok := userctx.UserIDFromContext(ctx)
	if !ok {
		return domain.ErrInvalidUser
	}

	var profileID snowflake.ID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTrx(tx)
		existing, err := repo.FindOne(ctx, &domain.Profile{UserID: userID})
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}
		profileID = existing.ID
		_, err = repo.Delete(ctx, int64(existing.ID))
		return err
	})
	if err != nil {
		return err
	}

	s.audit(ctx, userID, "profile.delete", profileID, nil)
	return nil
}

func (s *Service) audit(ctx context.Context, userID snowflake.ID, action string, profileID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	actorID := userID.String()
	targetID := profileID.String()
	if err := s.auditSvc.AuditLog(ctx, userID, auditdomain.ActorTypeUser, &actorID, action, "profile", &targetID, metadata); err != nil {
		s.log.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}

func normalize(req domain.UpsertProfileRequest) (domain.Profile, error) {
	out := domain.Profile{
		DocumentType:   strings.ToLower(strings.TrimSpace(req.DocumentType)),
		DocumentNumber: strings.TrimSpace(req.DocumentNumber),
		CompanyName:    strings.TrimSpace(req.CompanyName),
		Phone:          strings.TrimSpace(req.Phone),
		Website:        strings.TrimSpace(req.Website),
		LogoURL:        strings.TrimSpace(req.LogoURL),
		AddressLine1:   strings.TrimSpace(req.AddressLine1),
		AddressLine2:   strings.TrimSpace(req.AddressLine2),
		City:           strings.TrimSpace(req.City),
		State:          strings.ToUpper(strings.TrimSpace(req.State)),
		Country:        strings.ToUpper(strings.TrimSpace(req.Country)),
		PostalCode:     strings.TrimSpace(req.PostalCode),
	}

	if out.CompanyName == "" {
		return domain.Profile{}, domain.ErrInvalidCompanyName
	}

	switch out.DocumentType {
	case domain.DocumentTypeCPF:
		out.DocumentNumber = digitsOnly(out.DocumentNumber)
		if len(out.DocumentNumber) != 11 {
			return domain.Profile{}, domain.ErrInvalidDocumentNumber
		}
	case domain.DocumentTypeCNPJ:
		out.DocumentNumber = digitsOnly(out.DocumentNumber)
		if len(out.DocumentNumber) != 14 {
			return domain.Profile{}, domain.ErrInvalidDocumentNumber
		}
	case domain.DocumentTypeOther:
	default:
		return domain.Profile{}, domain.ErrInvalidDocumentType
	}

	if raw := strings.TrimSpace(req.Whatsapp); raw != "" {
		digits, err := clientdomain.NormalizeWhatsapp(raw)
		if err != nil {
			return domain.Profile{}, domain.ErrInvalidWhatsapp
		}
		out.Whatsapp = digits
	}

	for _, raw := range []string{out.Website, out.LogoURL} {
		if raw == "" {
			continue
		}
		if !validURL(raw) {
			return domain.Profile{}, domain.ErrInvalidURL
		}
	}
	return out, nil
}

func validURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func digitsOnly(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
