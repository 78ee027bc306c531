package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	accountdomain "github.com/dinehq/dinehq/internal/account/domain"
	authdomain "github.com/dinehq/dinehq/internal/auth/domain"
	"github.com/dinehq/dinehq/internal/auth/session"
	"github.com/dinehq/dinehq/internal/authorization"
	billingdomain "github.com/dinehq/dinehq/internal/billing/domain"
	"github.com/dinehq/dinehq/internal/clock"
	"github.com/dinehq/dinehq/internal/config"
	menudomain "github.com/dinehq/dinehq/internal/menu/domain"
	plandomain "github.com/dinehq/dinehq/internal/plan/domain"
	subscriptiondomain "github.com/dinehq/dinehq/internal/subscription/domain"
)

type fakeAuthService struct {
	identity          *authdomain.Identity
	authenticateCalls int
}

func (f *fakeAuthService) Register(ctx context.Context, req authdomain.RegisterRequest) (*accountdomain.Account, *authdomain.Session, error) {
	return nil, nil, authdomain.ErrInvalidCredentials
}

func (f *fakeAuthService) Login(ctx context.Context, req authdomain.LoginRequest) (*accountdomain.Account, *authdomain.Session, error) {
	return nil, nil, authdomain.ErrInvalidCredentials
}

func (f *fakeAuthService) Logout(ctx context.Context, token string) error { return nil }

func (f *fakeAuthService) Authenticate(ctx context.Context, token string) (*authdomain.Identity, error) {
	f.authenticateCalls++
	if f.identity == nil {
		return nil, authdomain.ErrInvalidSession
	}
	return f.identity, nil
}

type fakeSubscriptionService struct {
	status       subscriptiondomain.Status
	resolveCalls int
	resolvePanic bool
}

func (f *fakeSubscriptionService) Resolve(ctx context.Context, accountID snowflake.ID) subscriptiondomain.Status {
	f.resolveCalls++
	if f.resolvePanic {
		panic("resolve blew up")
	}
	return f.status
}

func (f *fakeSubscriptionService) CreateCheckout(ctx context.Context, accountID, planID snowflake.ID) (*subscriptiondomain.CheckoutResult, error) {
	return &subscriptiondomain.CheckoutResult{SessionID: "cs_test", URL: "https://checkout.example.com"}, nil
}

func (f *fakeSubscriptionService) UpdateSubscription(ctx context.Context, providerSubID string, req subscriptiondomain.UpdateRequest) (*subscriptiondomain.Subscription, error) {
	return nil, subscriptiondomain.ErrSubscriptionNotFound
}

func (f *fakeSubscriptionService) CancelSubscription(ctx context.Context, providerSubID string, immediate bool) (*subscriptiondomain.Subscription, error) {
	return nil, subscriptiondomain.ErrSubscriptionNotFound
}

func (f *fakeSubscriptionService) SyncWithStripe(ctx context.Context, providerSubID string) subscriptiondomain.SyncResult {
	return subscriptiondomain.SyncResult{Success: true}
}

func (f *fakeSubscriptionService) HandleProviderEvent(ctx context.Context, event *billingdomain.Event) error {
	return nil
}

type fakePlanService struct{}

func (f *fakePlanService) List(ctx context.Context, onlyActive bool) ([]plandomain.Plan, error) {
	return nil, nil
}
func (f *fakePlanService) Get(ctx context.Context, id snowflake.ID) (*plandomain.Plan, error) {
	return nil, plandomain.ErrNotFound
}
func (f *fakePlanService) GetFeatures(ctx context.Context, planID snowflake.ID) ([]plandomain.PlanFeature, error) {
	return nil, nil
}
func (f *fakePlanService) Create(ctx context.Context, req plandomain.CreatePlanRequest) (*plandomain.Plan, error) {
	return nil, plandomain.ErrInvalidName
}
func (f *fakePlanService) Update(ctx context.Context, id snowflake.ID, req plandomain.UpdatePlanRequest) (*plandomain.Plan, error) {
	return nil, plandomain.ErrNotFound
}
func (f *fakePlanService) Archive(ctx context.Context, id snowflake.ID) error {
	return plandomain.ErrNotFound
}

type fakeAuthzService struct{}

func (f *fakeAuthzService) Authorize(ctx context.Context, role, object, action string) error {
	if role == "admin" {
		return nil
	}
	return authorization.ErrForbidden
}

type fakeVerifier struct{}

func (f *fakeVerifier) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	return billingdomain.ErrInvalidSignature
}
func (f *fakeVerifier) Parse(ctx context.Context, payload []byte) (*billingdomain.Event, error) {
	return nil, billingdomain.ErrInvalidPayload
}

type fakeMenuRepo struct{}

func (f *fakeMenuRepo) Insert(ctx context.Context, db *gorm.DB, item *menudomain.MenuItem) error {
	return nil
}
func (f *fakeMenuRepo) Update(ctx context.Context, db *gorm.DB, item *menudomain.MenuItem) error {
	return nil
}
func (f *fakeMenuRepo) Delete(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID) error {
	return nil
}
func (f *fakeMenuRepo) FindByID(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID) (*menudomain.MenuItem, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeMenuRepo) ListByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]menudomain.MenuItem, error) {
	return nil, nil
}
func (f *fakeMenuRepo) CountByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (int64, error) {
	return 0, nil
}

type fakeAccountRepo struct{}

func (f *fakeAccountRepo) Insert(ctx context.Context, db *gorm.DB, account *accountdomain.Account) error {
	return nil
}
func (f *fakeAccountRepo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*accountdomain.Account, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeAccountRepo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*accountdomain.Account, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeAccountRepo) FindByStripeCustomerID(ctx context.Context, db *gorm.DB, customerID string) (*accountdomain.Account, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeAccountRepo) SetStripeCustomerID(ctx context.Context, db *gorm.DB, id snowflake.ID, customerID string) error {
	return nil
}

type serverEnv struct {
	srv  *Server
	auth *fakeAuthService
	subs *fakeSubscriptionService
	cfg  config.Config
	node *snowflake.Node
}

func newServerEnv(t *testing.T, cfg config.Config) *serverEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	auth := &fakeAuthService{}
	subs := &fakeSubscriptionService{status: subscriptiondomain.FreeStatus(time.Now().UTC())}

	srv := NewServer(ServerParams{
		Gin:             gin.New(),
		Cfg:             cfg,
		Log:             zap.NewNop(),
		DB:              db,
		GenID:           node,
		Clock:           clock.NewFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)),
		Sessions:        session.NewManager(cfg),
		Authsvc:         auth,
		AuthzSvc:        &fakeAuthzService{},
		AccountRepo:     &fakeAccountRepo{},
		PlanSvc:         &fakePlanService{},
		SubscriptionSvc: subs,
		WebhookVerifier: &fakeVerifier{},
		MenuRepo:        &fakeMenuRepo{},
	})

	srv.Engine().GET("/pricing", func(c *gin.Context) { c.String(http.StatusOK, "pricing") })
	srv.Engine().GET("/dashboard", func(c *gin.Context) { c.String(http.StatusOK, "dashboard") })
	srv.Engine().GET("/dashboard/reports", func(c *gin.Context) { c.String(http.StatusOK, "reports") })
	srv.Engine().GET("/admin/settings", func(c *gin.Context) { c.String(http.StatusOK, "admin") })

	return &serverEnv{srv: srv, auth: auth, subs: subs, cfg: cfg, node: node}
}

func (e *serverEnv) loginAs(role accountdomain.Role) {
	e.auth.identity = &authdomain.Identity{AccountID: e.node.Generate(), Role: role}
}

func (e *serverEnv) request(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if e.auth.identity != nil {
		req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: "session-token"})
	}
	rec := httptest.NewRecorder()
	e.srv.Engine().ServeHTTP(rec, req)
	return rec
}
