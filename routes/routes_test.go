package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"betline/config"
	"betline/controllers"
	"betline/database"
	"betline/models"
	"betline/providers/email"
	"betline/providers/gateway"
	"betline/providers/oddsfeed"
	"betline/services"
)

type testApp struct {
	app *fiber.App
	db  *gorm.DB
	cfg *config.Config
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfg := config.Load()
	accounts := services.NewAccountService(db, cfg)
	notifier := services.NewNotificationService(db, email.Disabled{})
	odds := services.NewOddsService(db, nil, 30*time.Second)
	catalog := services.NewCatalogService(db, cfg, odds)
	betting := services.NewBettingService(db, cfg, accounts, notifier)
	payments := services.NewPaymentService(db, cfg,
		gateway.NewSimulatedGateway(1, 1), &stubCheckout{}, accounts, betting, notifier)
	reporting := services.NewReportingService(db)

	set := controllers.NewSet(controllers.Deps{
		DB:            db,
		Feed:          oddsfeed.NewClient("", ""),
		Accounts:      accounts,
		Catalog:       catalog,
		Odds:          odds,
		Betting:       betting,
		Payments:      payments,
		Notifications: notifier,
		Reporting:     reporting,
	})

	app := fiber.New()
	Setup(app, set, db)
	return &testApp{app: app, db: db, cfg: cfg}
}

type stubCheckout struct{}

func (stubCheckout) CreateSession(accountCode, packageCode string, amount float64, successURL string) (*gateway.CheckoutSession, error) {
	return &gateway.CheckoutSession{ID: "cs_stub", PaymentStatus: "open", AmountTotal: amount,
		Metadata: map[string]string{"account_code": accountCode, "package": packageCode}}, nil
}

func (stubCheckout) GetSession(id string) (*gateway.CheckoutSession, error) {
	return nil, fmt.Errorf("no such session %s", id)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (ta *testApp) request(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("X-Session-Token", token)
	}

	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &env)
	}
	return resp.StatusCode, env
}

func (ta *testApp) login(t *testing.T, email, password string) string {
	t.Helper()
	status, env := ta.request(t, http.MethodPost, "/auth/login", "", fiber.Map{
		"email": email, "password": password,
	})
	require.Equal(t, http.StatusOK, status)
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

func TestRegisterLoginProfileFlow(t *testing.T) {
	ta := newTestApp(t)

	status, env := ta.request(t, http.MethodPost, "/auth/register", "", fiber.Map{
		"name": "Dana", "email": "dana@example.com", "password": "s3cret-pass",
	})
	require.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)

	token := ta.login(t, "dana@example.com", "s3cret-pass")

	status, env = ta.request(t, http.MethodGet, "/profile", token, nil)
	require.Equal(t, http.StatusOK, status)
	var profile struct {
		Email   string  `json:"email"`
		Balance float64 `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	assert.Equal(t, "dana@example.com", profile.Email)
	assert.Zero(t, profile.Balance)

	// Bad credentials and missing sessions both come back as 401.
	status, _ = ta.request(t, http.MethodPost, "/auth/login", "", fiber.Map{
		"email": "dana@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = ta.request(t, http.MethodGet, "/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = ta.request(t, http.MethodGet, "/profile", "bogus-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestLogoutInvalidatesSession(t *testing.T) {
	ta := newTestApp(t)

	_, _ = ta.request(t, http.MethodPost, "/auth/register", "", fiber.Map{
		"name": "Dana", "email": "dana@example.com", "password": "s3cret-pass",
	})
	token := ta.login(t, "dana@example.com", "s3cret-pass")

	status, _ := ta.request(t, http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = ta.request(t, http.MethodGet, "/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestBetPlacementOverHTTP(t *testing.T) {
	ta := newTestApp(t)

	_, _ = ta.request(t, http.MethodPost, "/auth/register", "", fiber.Map{
		"name": "Dana", "email": "dana@example.com", "password": "s3cret-pass",
	})
	require.NoError(t, ta.db.Model(&models.Account{}).
		Where("email = ?", "dana@example.com").
		Update("balance", 10_000).Error)
	token := ta.login(t, "dana@example.com", "s3cret-pass")

	sport := models.Sport{Code: "football", Name: "Football"}
	require.NoError(t, ta.db.Create(&sport).Error)
	home := models.Team{SportID: sport.ID, Code: "home", Name: "Home"}
	away := models.Team{SportID: sport.ID, Code: "away", Name: "Away"}
	require.NoError(t, ta.db.Create(&home).Error)
	require.NoError(t, ta.db.Create(&away).Error)
	event := models.Event{
		SportID: sport.ID, ExternalRef: "e1",
		HomeTeamID: home.ID, AwayTeamID: away.ID,
		StartsAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, ta.db.Create(&event).Error)

	status, env := ta.request(t, http.MethodPost, "/bets", token, fiber.Map{
		"event_id": event.ID, "team_id": home.ID, "odds": 2.5, "stake": 1000,
	})
	require.Equal(t, http.StatusOK, status)
	var placed struct {
		BetID  uint    `json:"bet_id"`
		Payout float64 `json:"payout"`
		Status string  `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &placed))
	assert.Equal(t, models.BetStatusPending, placed.Status)
	assert.InDelta(t, 2_500, placed.Payout, 0.001)

	status, _ = ta.request(t, http.MethodPost, "/bets", token, fiber.Map{
		"event_id": event.ID, "team_id": home.ID, "odds": 2.5, "stake": 50_000,
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = ta.request(t, http.MethodGet, "/bets", token, nil)
	require.Equal(t, http.StatusOK, status)
	var history []models.Bet
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, 1)
	assert.Equal(t, placed.BetID, history[0].ID)

	status, _ = ta.request(t, http.MethodPost,
		fmt.Sprintf("/bets/%d/cancel", placed.BetID), token, nil)
	require.Equal(t, http.StatusOK, status)

	var account models.Account
	require.NoError(t, ta.db.Where("email = ?", "dana@example.com").First(&account).Error)
	assert.InDelta(t, 10_000, account.Balance, 0.001)
}

func TestAdminRoutesAreGated(t *testing.T) {
	ta := newTestApp(t)

	_, _ = ta.request(t, http.MethodPost, "/auth/register", "", fiber.Map{
		"name": "Dana", "email": "dana@example.com", "password": "s3cret-pass",
	})
	token := ta.login(t, "dana@example.com", "s3cret-pass")

	status, _ := ta.request(t, http.MethodGet, "/admin/reports/summary", token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	require.NoError(t, ta.db.Model(&models.Account{}).
		Where("email = ?", "dana@example.com").
		Update("role", models.RoleAdmin).Error)
	adminToken := ta.login(t, "dana@example.com", "s3cret-pass")

	status, env := ta.request(t, http.MethodGet, "/admin/reports/summary", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
}

func TestHealthEndpoints(t *testing.T) {
	ta := newTestApp(t)

	status, _ := ta.request(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)

	req := httptest.NewRequest(http.MethodGet, "/health/status", nil)
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var full struct {
		Status   string `json:"status"`
		Database struct {
			Status string `json:"status"`
		} `json:"database"`
		API struct {
			Feed string `json:"feed"`
		} `json:"api"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&full))
	assert.Equal(t, "ok", full.Status)
	assert.Equal(t, "ok", full.Database.Status)
	assert.Equal(t, "disabled", full.API.Feed)
}

func TestCheckoutReturnRequiresSessionID(t *testing.T) {
	ta := newTestApp(t)

	status, _ := ta.request(t, http.MethodGet, "/checkout/return", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	// Unknown sessions bubble up as an upstream failure.
	status, _ = ta.request(t, http.MethodGet, "/checkout/return?session_id=cs_missing", "", nil)
	assert.Equal(t, http.StatusBadGateway, status)
}
