package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/quoteflow/internal/clock"
	"github.com/smallbiznis/quoteflow/internal/profile/domain"
	"github.com/smallbiznis/quoteflow/internal/userctx"
	"github.com/smallbiznis/quoteflow/pkg/db/dbtest"
	"github.com/smallbiznis/quoteflow/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()
	conn := dbtest.New(t, &domain.Profile{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 4, 10, 8, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  repository.ProvideStore[domain.Profile](conn),
	})
	return svc, clk
}

func ctxFor(id int64) context.Context {
	return userctx.WithUserID(context.Background(), snowflake.ID(id))
}

func validRequest() domain.UpsertProfileRequest {
	return domain.UpsertProfileRequest{
		DocumentType:   "CNPJ",
		DocumentNumber: "12.345.678/0001-90",
		CompanyName:    " Studio Norte ",
		Whatsapp:       "(21) 99876-5432",
		Website:        "https://studionorte.com.br",
		City:           "Rio de Janeiro",
		State:          "rj",
		Country:        "br",
	}
}

func TestUpsertCreatesThenReplaces(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := ctxFor(1)

	created, isNew, err := svc.Upsert(ctx, validRequest())
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, "cnpj", created.DocumentType)
	assert.Equal(t, "12345678000190", created.DocumentNumber)
	assert.Equal(t, "Studio Norte", created.CompanyName)
	assert.Equal(t, "21998765432", created.Whatsapp)
	assert.Equal(t, "RJ", created.State)

	clk.Advance(time.Hour)
	replaced, isNew, err := svc.Upsert(ctx, domain.UpsertProfileRequest{
		DocumentType: "other",
		CompanyName:  "Studio Norte ME",
	})
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, created.ID, replaced.ID)
	assert.Equal(t, "Studio Norte ME", replaced.CompanyName)
	assert.Empty(t, replaced.Whatsapp)
	assert.Empty(t, replaced.Website)
	assert.True(t, replaced.UpdatedAt.After(created.UpdatedAt))
}

func TestUpsertValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := ctxFor(1)

	req := validRequest()
	req.CompanyName = " "
	_, _, err := svc.Upsert(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidCompanyName)

	req = validRequest()
	req.DocumentType = "passport"
	_, _, err = svc.Upsert(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidDocumentType)

	req = validRequest()
	req.DocumentType = "cpf"
	_, _, err = svc.Upsert(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidDocumentNumber)

	req = validRequest()
	req.Whatsapp = "1234"
	_, _, err = svc.Upsert(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidWhatsapp)

	req = validRequest()
	req.LogoURL = "ftp://files/logo.png"
	_, _, err = svc.Upsert(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidURL)
}

func TestProfilesAreScopedPerUser(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.Upsert(ctxFor(1), validRequest())
	require.NoError(t, err)

	_, err = svc.Get(ctxFor(2))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctxFor(2)), domain.ErrNotFound)

	got, err := svc.Get(ctxFor(1))
	require.NoError(t, err)
	assert.Equal(t, "Studio Norte", got.CompanyName)
}

func TestDeleteProfile(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := ctxFor(1)

	_, _, err := svc.Upsert(ctx, validRequest())
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx))

	_, err = svc.Get(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Get(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidUser)
}
