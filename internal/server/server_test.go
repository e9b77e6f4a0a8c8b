package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	auditrepository "github.com/smallbiznis/quoteflow/internal/audit/repository"
	auditservice "github.com/smallbiznis/quoteflow/internal/audit/service"
	authrepository "github.com/smallbiznis/quoteflow/internal/auth/repository"
	authservice "github.com/smallbiznis/quoteflow/internal/auth/service"
	"github.com/smallbiznis/quoteflow/internal/auth/session"
	"github.com/smallbiznis/quoteflow/internal/authorization"
	budgetrepository "github.com/smallbiznis/quoteflow/internal/budget/repository"
	"github.com/smallbiznis/quoteflow/internal/budget/render"
	budgetservice "github.com/smallbiznis/quoteflow/internal/budget/service"
	clientrepository "github.com/smallbiznis/quoteflow/internal/client/repository"
	clientservice "github.com/smallbiznis/quoteflow/internal/client/service"
	"github.com/smallbiznis/quoteflow/internal/clock"
	"github.com/smallbiznis/quoteflow/internal/config"
	"github.com/smallbiznis/quoteflow/internal/migration"
	"github.com/smallbiznis/quoteflow/internal/observability"
	obsmetrics "github.com/smallbiznis/quoteflow/internal/observability/metrics"
	profiledomain "github.com/smallbiznis/quoteflow/internal/profile/domain"
	profileservice "github.com/smallbiznis/quoteflow/internal/profile/service"
	"github.com/smallbiznis/quoteflow/internal/ratelimit"
	"github.com/smallbiznis/quoteflow/pkg/db/dbtest"
	"github.com/smallbiznis/quoteflow/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type harness struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
	clock  *clock.FakeClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn := dbtest.New(t, migration.Models()...)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC))
	log := zap.NewNop()
	cfg := config.Config{AuthSessionTTL: time.Hour}

	auditSvc := auditservice.NewService(auditservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: auditrepository.Provide(),
	})
	userRepo, sessionRepo := authrepository.New(conn)
	authSvc := authservice.New(authservice.Params{
		Log: log, Cfg: cfg, Clock: clk, GenID: node, Repo: userRepo, SessionRepo: sessionRepo,
	})
	enforcer, err := authorization.NewEnforcer(conn)
	require.NoError(t, err)
	authzSvc := authorization.NewService(authorization.Params{
		DB: conn, Log: log, Enforcer: enforcer, AuditSvc: auditSvc,
	})
	clientSvc := clientservice.New(clientservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: clientrepository.Provide(), AuditSvc: auditSvc,
	})
	profileSvc := profileservice.New(profileservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: repository.ProvideStore[profiledomain.Profile](conn), AuditSvc: auditSvc,
	})
	budgetSvc := budgetservice.New(budgetservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: budgetrepository.Provide(),
		Rules:    config.NewStaticBudgetRules(config.DefaultBudgetRules()),
		AuditSvc: auditSvc,
	})
	renderer := render.New(render.Params{Log: log, BudgetSvc: budgetSvc, ClientSvc: clientSvc, ProfileSvc: profileSvc})

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())
	NewServer(ServerParams{
		Gin:          engine,
		Cfg:          cfg,
		Log:          log,
		Authsvc:      authSvc,
		Sessions:     session.NewManager(cfg),
		AuthzSvc:     authzSvc,
		AuditSvc:     auditSvc,
		ClientSvc:    clientSvc,
		ProfileSvc:   profileSvc,
		BudgetSvc:    budgetSvc,
		Renderer:     renderer,
		LoginLimiter: ratelimit.NewLoginLimiterWithBucket(ratelimit.NewMemoryBucket(clk.Now), 1, 3, log),
	})

	return &harness{t: t, db: conn, router: engine, clock: clk}
}

func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var reader io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(v)
	default:
		raw, err := json.Marshal(v)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.RemoteAddr = "203.0.113.7:5000"
	resp := httptest.NewRecorder()
	h.router.ServeHTTP(resp, req)
	return resp
}

// signup registers a user and returns a session token.
func (h *harness) signup(email string) string {
	h.t.Helper()
	resp := h.do(http.MethodPost, "/auth/register", "", map[string]any{
		"name": "Maria Silva", "email": email, "password": "correct-password",
	})
	require.Equal(h.t, http.StatusCreated, resp.Code, resp.Body.String())

	resp = h.do(http.MethodPost, "/auth/login", "", map[string]any{
		"email": email, "password": "correct-password",
	})
	require.Equal(h.t, http.StatusOK, resp.Code, resp.Body.String())

	var body struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	decode(h.t, resp, &body)
	require.NotEmpty(h.t, body.Data.Token)
	return body.Data.Token
}

func (h *harness) createClient(token, email string) string {
	h.t.Helper()
	resp := h.do(http.MethodPost, "/api/clients", token, map[string]any{
		"name": "Acme", "email": email, "whatsapp": "(11) 98765-4321",
	})
	require.Equal(h.t, http.StatusCreated, resp.Code, resp.Body.String())
	var body struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	decode(h.t, resp, &body)
	return body.Data.ID
}

type budgetView struct {
	ID             string          `json:"id"`
	PublicID       string          `json:"public_id"`
	Title          string          `json:"title"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`
	Items          []struct {
		ID        string          `json:"id"`
		Name      string          `json:"name"`
		LineTotal decimal.Decimal `json:"line_total"`
	} `json:"items"`
}

type errorBody struct {
	Error struct {
		Type   string `json:"type"`
		Code   string `json:"code"`
		Errors []struct {
			Field string `json:"field"`
			Code  string `json:"code"`
		} `json:"errors"`
	} `json:"error"`
}

func decode(t *testing.T, resp *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), dst), resp.Body.String())
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	decode(t, resp, &body)
	return body
}

func scenarioBody(clientID string) map[string]any {
	return map[string]any{
		"budget": map[string]any{
			"client_id":       clientID,
			"title":           "Website",
			"discount_amount": "10",
		},
		"items": []map[string]any{
			{"name": "Design", "unit": "un", "quantity": "2", "unit_price": "50"},
			{"name": "Hosting", "unit": "vl", "quantity": 1, "unit_price": 30},
		},
	}
}

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(decimal.RequireFromString(want)), "want %s, got %s", want, got)
}

func TestAuthSessionLifecycle(t *testing.T) {
	h := newHarness(t)
	token := h.signup("alice@example.com")

	resp := h.do(http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var me struct {
		Data struct {
			Email    string `json:"email"`
			IsActive bool   `json:"is_active"`
		} `json:"data"`
	}
	decode(t, resp, &me)
	assert.Equal(t, "alice@example.com", me.Data.Email)
	assert.True(t, me.Data.IsActive)
	assert.NotContains(t, resp.Body.String(), "password")

	resp = h.do(http.MethodPost, "/auth/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = h.do(http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestLoginSetsSessionCookie(t *testing.T) {
	h := newHarness(t)
	h.signup("alice@example.com")

	resp := h.do(http.MethodPost, "/auth/login", "", map[string]any{"email": "alice@example.com", "password": "correct-password"})
	require.Equal(t, http.StatusOK, resp.Code)
	cookie := resp.Header().Get("Set-Cookie")
	assert.Contains(t, cookie, session.DefaultCookieName+"=")
	assert.Contains(t, cookie, "HttpOnly")
}

func TestRegisterConflictAndValidation(t *testing.T) {
	h := newHarness(t)
	h.signup("alice@example.com")

	resp := h.do(http.MethodPost, "/auth/register", "", map[string]any{
		"name": "Alice Again", "email": "ALICE@example.com", "password": "correct-password",
	})
	require.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "user_exists", decodeError(t, resp).Error.Code)

	resp = h.do(http.MethodPost, "/auth/register", "", map[string]any{
		"name": "Bob Souza", "email": "bob@example.com", "password": "short",
	})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "validation_error", decodeError(t, resp).Error.Type)
}

func TestLoginIsRateLimited(t *testing.T) {
	h := newHarness(t)
	bad := map[string]any{"email": "nobody@example.com", "password": "wrong-password"}

	for i := 0; i < 3; i++ {
		resp := h.do(http.MethodPost, "/auth/login", "", bad)
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	}
	resp := h.do(http.MethodPost, "/auth/login", "", bad)
	require.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, "1", resp.Header().Get("Retry-After"))

	h.clock.Advance(time.Second)
	resp = h.do(http.MethodPost, "/auth/login", "", bad)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAPIRequiresSession(t *testing.T) {
	h := newHarness(t)

	resp := h.do(http.MethodGet, "/api/budgets", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "unauthorized", decodeError(t, resp).Error.Type)

	resp = h.do(http.MethodGet, "/api/budgets", "forged-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestBudgetLifecycle(t *testing.T) {
	h := newHarness(t)
	token := h.signup("alice@example.com")
	clientID := h.createClient(token, "acme@example.com")

	resp := h.do(http.MethodPost, "/api/budgets", token, scenarioBody(clientID))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var created struct {
		Data budgetView `json:"data"`
	}
	decode(t, resp, &created)
	budget := created.Data
	assertAmount(t, "130", budget.Subtotal)
	assertAmount(t, "120", budget.Total)
	require.Len(t, budget.Items, 2)

	resp = h.do(http.MethodPost, "/api/budgets/"+budget.ID+"/items", token, map[string]any{
		"name": "Extra", "unit": "hr", "quantity": "1", "unit_price": "200",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var added struct {
		Data struct {
			Item struct {
				ID string `json:"id"`
			} `json:"item"`
			Budget budgetView `json:"budget"`
		} `json:"data"`
	}
	decode(t, resp, &added)
	assertAmount(t, "330", added.Data.Budget.Subtotal)
	assertAmount(t, "320", added.Data.Budget.Total)

	resp = h.do(http.MethodPatch, "/api/budgets/"+budget.ID, token, map[string]any{"discount_amount": "400"})
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	body := decodeError(t, resp)
	assert.Equal(t, "business_rule_violation", body.Error.Type)
	assert.Equal(t, "discount_exceeds_subtotal", body.Error.Code)

	resp = h.do(http.MethodGet, "/api/budgets/"+budget.ID, token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var fetched struct {
		Data budgetView `json:"data"`
	}
	decode(t, resp, &fetched)
	assertAmount(t, "320", fetched.Data.Total)

	var designID string
	for _, item := range budget.Items {
		if item.Name == "Design" {
			designID = item.ID
		}
	}
	require.NotEmpty(t, designID)
	resp = h.do(http.MethodPatch, "/api/items/"+designID, token, map[string]any{"quantity": "3"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var patched struct {
		Data struct {
			Budget budgetView `json:"budget"`
		} `json:"data"`
	}
	decode(t, resp, &patched)
	assertAmount(t, "380", patched.Data.Budget.Subtotal)
	assertAmount(t, "370", patched.Data.Budget.Total)

	resp = h.do(http.MethodDelete, "/api/items/"+added.Data.Item.ID, token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var afterDelete struct {
		Data budgetView `json:"data"`
	}
	decode(t, resp, &afterDelete)
	assertAmount(t, "180", afterDelete.Data.Subtotal)
	assertAmount(t, "170", afterDelete.Data.Total)

	resp = h.do(http.MethodGet, "/api/budgets/"+budget.ID+"/items", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var items struct {
		Data []json.RawMessage `json:"data"`
	}
	decode(t, resp, &items)
	assert.Len(t, items.Data, 2)

	resp = h.do(http.MethodGet, "/api/budgets?status=draft", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var list struct {
		Data     []budgetView `json:"data"`
		PageInfo struct {
			HasMore bool `json:"has_more"`
		} `json:"page_info"`
	}
	decode(t, resp, &list)
	require.Len(t, list.Data, 1)
	assert.False(t, list.PageInfo.HasMore)

	resp = h.do(http.MethodDelete, "/api/budgets/"+budget.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, resp.Code)
	resp = h.do(http.MethodGet, "/api/budgets/"+budget.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestCreateBudgetRejections(t *testing.T) {
	h := newHarness(t)
	token := h.signup("alice@example.com")
	clientID := h.createClient(token, "acme@example.com")

	unknown := scenarioBody(clientID)
	unknown["budget"].(map[string]any)["colour"] = "blue"
	resp := h.do(http.MethodPost, "/api/budgets", token, unknown)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	body := decodeError(t, resp)
	require.Len(t, body.Error.Errors, 1)
	assert.Equal(t, "colour", body.Error.Errors[0].Field)
	assert.Equal(t, "unknown_field", body.Error.Errors[0].Code)

	badItem := scenarioBody(clientID)
	badItem["items"].([]map[string]any)[1]["quantity"] = "0"
	resp = h.do(http.MethodPost, "/api/budgets", token, badItem)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	body = decodeError(t, resp)
	require.Len(t, body.Error.Errors, 1)
	assert.Equal(t, "items[1].quantity", body.Error.Errors[0].Field)
	assert.Equal(t, "must_be_positive", body.Error.Errors[0].Code)

	empty := scenarioBody(clientID)
	empty["items"] = []map[string]any{}
	resp = h.do(http.MethodPost, "/api/budgets", token, empty)
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, "empty_item_list", decodeError(t, resp).Error.Code)

	resp = h.do(http.MethodPost, "/api/budgets", token, `{"budget": `)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	var count int64
	require.NoError(t, h.db.Table("budgets").Count(&count).Error)
	assert.Zero(t, count)
}

func TestOtherUsersDataIsInvisible(t *testing.T) {
	h := newHarness(t)
	alice := h.signup("alice@example.com")
	bob := h.signup("bob@example.com")
	clientID := h.createClient(alice, "acme@example.com")

	resp := h.do(http.MethodPost, "/api/budgets", alice, scenarioBody(clientID))
	require.Equal(t, http.StatusCreated, resp.Code)
	var created struct {
		Data budgetView `json:"data"`
	}
	decode(t, resp, &created)
	budgetID := created.Data.ID
	itemID := created.Data.Items[0].ID

	for _, tc := range []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, "/api/budgets/" + budgetID, nil},
		{http.MethodPatch, "/api/budgets/" + budgetID, map[string]any{"title": "mine"}},
		{http.MethodDelete, "/api/budgets/" + budgetID, nil},
		{http.MethodGet, "/api/budgets/" + budgetID + "/items", nil},
		{http.MethodGet, "/api/budgets/" + budgetID + "/pdf", nil},
		{http.MethodGet, "/api/items/" + itemID, nil},
		{http.MethodDelete, "/api/items/" + itemID, nil},
		{http.MethodGet, "/api/clients/" + clientID, nil},
		{http.MethodGet, "/api/budgets/not-a-number", nil},
	} {
		resp := h.do(tc.method, tc.path, bob, tc.body)
		assert.Equal(t, http.StatusNotFound, resp.Code, "%s %s", tc.method, tc.path)
	}

	bobBody := scenarioBody(clientID)
	resp = h.do(http.MethodPost, "/api/budgets", bob, bobBody)
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, "client_not_owned", decodeError(t, resp).Error.Code)

	resp = h.do(http.MethodGet, "/api/budgets/"+budgetID, alice, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var still struct {
		Data budgetView `json:"data"`
	}
	decode(t, resp, &still)
	assert.Equal(t, "Website", still.Data.Title)
	assert.Len(t, still.Data.Items, 2)
}

func TestPublicViewAndPDFExport(t *testing.T) {
	h := newHarness(t)
	token := h.signup("alice@example.com")
	clientID := h.createClient(token, "acme@example.com")

	resp := h.do(http.MethodPut, "/api/profile", token, map[string]any{
		"document_type": "cnpj", "document_number": "12.345.678/0001-90", "company_name": "Silva Design",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	resp = h.do(http.MethodPost, "/api/budgets", token, scenarioBody(clientID))
	require.Equal(t, http.StatusCreated, resp.Code)
	var created struct {
		Data budgetView `json:"data"`
	}
	decode(t, resp, &created)

	resp = h.do(http.MethodGet, "/public/budgets/"+created.Data.PublicID, "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.NotContains(t, resp.Body.String(), created.Data.ID)
	assert.NotContains(t, resp.Body.String(), clientID)
	var public struct {
		Data budgetView `json:"data"`
	}
	decode(t, resp, &public)
	assertAmount(t, "120", public.Data.Total)

	resp = h.do(http.MethodGet, "/public/budgets/00000000-0000-4000-8000-000000000000", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = h.do(http.MethodGet, "/api/budgets/"+created.Data.ID+"/pdf", token, nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, render.ContentType, resp.Header().Get("Content-Type"))
	assert.Contains(t, resp.Header().Get("Content-Disposition"), "website-")
	assert.True(t, bytes.HasPrefix(resp.Body.Bytes(), []byte("%PDF")))
}

func TestClientEndpoints(t *testing.T) {
	h := newHarness(t)
	token := h.signup("alice@example.com")
	clientID := h.createClient(token, "acme@example.com")

	resp := h.do(http.MethodPost, "/api/clients", token, map[string]any{"name": "Dup", "email": "ACME@example.com"})
	require.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "email_taken", decodeError(t, resp).Error.Code)

	resp = h.do(http.MethodPost, "/api/clients", token, map[string]any{"name": "Bad", "email": "b@example.com", "whatsapp": "123"})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "whatsapp", decodeError(t, resp).Error.Errors[0].Field)

	resp = h.do(http.MethodPatch, "/api/clients/"+clientID, token, map[string]any{"notes": "VIP"})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = h.do(http.MethodGet, "/api/clients?name=acm", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var list struct {
		Data []struct {
			ID    string  `json:"id"`
			Notes *string `json:"notes"`
		} `json:"data"`
	}
	decode(t, resp, &list)
	require.Len(t, list.Data, 1)
	require.NotNil(t, list.Data[0].Notes)
	assert.Equal(t, "VIP", *list.Data[0].Notes)

	resp = h.do(http.MethodPost, "/api/budgets", token, scenarioBody(clientID))
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = h.do(http.MethodDelete, "/api/clients/"+clientID, token, nil)
	require.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "client_in_use", decodeError(t, resp).Error.Code)
}

func TestProfileEndpoints(t *testing.T) {
	h := newHarness(t)
	token := h.signup("alice@example.com")

	resp := h.do(http.MethodGet, "/api/profile", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	payload := map[string]any{"document_type": "cpf", "document_number": "123.456.789-09", "company_name": "Maria Silva"}
	resp = h.do(http.MethodPut, "/api/profile", token, payload)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	payload["website"] = "https://silva.example.com"
	resp = h.do(http.MethodPut, "/api/profile", token, payload)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	payload["website"] = "ftp://nope"
	resp = h.do(http.MethodPut, "/api/profile", token, payload)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = h.do(http.MethodDelete, "/api/profile", token, nil)
	assert.Equal(t, http.StatusNoContent, resp.Code)
	resp = h.do(http.MethodGet, "/api/profile", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestAuditLogsAreScopedToCaller(t *testing.T) {
	h := newHarness(t)
	alice := h.signup("alice@example.com")
	bob := h.signup("bob@example.com")
	h.createClient(alice, "acme@example.com")

	resp := h.do(http.MethodGet, "/api/audit-logs?action=client.create", alice, nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var logs struct {
		Data []struct {
			Action     string `json:"action"`
			TargetType string `json:"target_type"`
		} `json:"data"`
	}
	decode(t, resp, &logs)
	require.Len(t, logs.Data, 1)
	assert.Equal(t, "client", logs.Data[0].TargetType)

	resp = h.do(http.MethodGet, "/api/audit-logs?action=client.create", bob, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	decode(t, resp, &logs)
	assert.Empty(t, logs.Data)

	resp = h.do(http.MethodGet, "/api/audit-logs?start_at=yesterday", alice, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestEngineServesHealthAndUnknownRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := NewEngine(observability.Config{Environment: "test"}, obsmetrics.NewHTTPMetrics(obsmetrics.Config{}))

	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.NotEmpty(t, resp.Header().Get("X-Request-Id"))

	resp = httptest.NewRecorder()
	engine.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestCORSPreflight(t *testing.T) {
	handler := corsHandler(config.Config{CORSAllowedOrigins: []string{"https://app.example.com"}}, http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/budgets", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	assert.Equal(t, "https://app.example.com", resp.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header().Get("Access-Control-Allow-Credentials"))
}
