package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/mmynk/expensesplit/internal/auth"
	"github.com/mmynk/expensesplit/internal/expense"
	"github.com/mmynk/expensesplit/internal/metrics"
	"github.com/mmynk/expensesplit/internal/middleware"
	"github.com/mmynk/expensesplit/internal/models"
	"github.com/mmynk/expensesplit/internal/storage/sqlite"
	"github.com/mmynk/expensesplit/pkg/api"
	"github.com/mmynk/expensesplit/pkg/api/apiconnect"
)

var (
	alice   = models.Participant{ID: "alice", Name: "Alice", Email: "alice@example.com"}
	bob     = models.Participant{ID: "bob", Name: "Bob"}
	charlie = models.Participant{ID: "charlie", Name: "Charlie"}
	diana   = models.Participant{ID: "diana", Name: "Diana"}
)

var testDate = time.Date(2026, 5, 1, 18, 30, 0, 0, time.UTC)

// testServer runs both services behind the real auth interceptor.
type testServer struct {
	url      string
	jwt      *auth.JWTManager
	registry *prometheus.Registry
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	jwtManager := auth.NewJWTManager("0123456789abcdef0123456789abcdef", time.Hour)
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	interceptors := connect.WithInterceptors(
		middleware.RequireAuth(jwtManager),
		middleware.LoggingInterceptor(),
	)
	expensePath, expenseHandler := apiconnect.NewExpenseServiceHandler(
		NewExpenseService(store, expense.StaticCategories(models.DefaultCategories), m), interceptors)
	groupPath, groupHandler := apiconnect.NewGroupServiceHandler(NewGroupService(store, m), interceptors)

	mux := http.NewServeMux()
	mux.Handle(expensePath, expenseHandler)
	mux.Handle(groupPath, groupHandler)

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		store.Close()
	})

	return &testServer{url: server.URL, jwt: jwtManager, registry: registry}
}

// bearer attaches a session token to every outgoing call.
func bearer(token string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			req.Header().Set("Authorization", "Bearer "+token)
			return next(ctx, req)
		}
	}
}

func (s *testServer) options(t *testing.T, p models.Participant) []connect.ClientOption {
	t.Helper()
	token, err := s.jwt.Generate(p)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return []connect.ClientOption{connect.WithInterceptors(bearer(token))}
}

// expenses returns an ExpenseService client authenticated as p.
func (s *testServer) expenses(t *testing.T, p models.Participant) apiconnect.ExpenseServiceClient {
	return apiconnect.NewExpenseServiceClient(http.DefaultClient, s.url, s.options(t, p)...)
}

// groups returns a GroupService client authenticated as p.
func (s *testServer) groups(t *testing.T, p models.Participant) apiconnect.GroupServiceClient {
	return apiconnect.NewGroupServiceClient(http.DefaultClient, s.url, s.options(t, p)...)
}

// createGroup creates a group owned by owner with the other members.
func (s *testServer) createGroup(t *testing.T, owner models.Participant, name string, members ...models.Participant) *models.Group {
	t.Helper()
	resp, err := s.groups(t, owner).CreateGroup(context.Background(), connect.NewRequest(&api.CreateGroupRequest{
		Name:    name,
		Members: members,
	}))
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	return resp.Msg.Group
}

// counterValue sums every series of the named counter.
func (s *testServer) counterValue(t *testing.T, name string) float64 {
	t.Helper()
	families, err := s.registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	var total float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decs(values ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = dec(v)
	}
	return out
}

func assertCode(t *testing.T, err error, want connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	if got := connect.CodeOf(err); got != want {
		t.Errorf("expected code %v, got %v (%v)", want, got, err)
	}
}

func assertShares(t *testing.T, got []models.ShareLine, want map[string]string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d shares, got %d: %+v", len(want), len(got), got)
	}
	for _, s := range got {
		amount, ok := want[s.ParticipantID]
		if !ok {
			t.Errorf("unexpected share for %s", s.ParticipantID)
			continue
		}
		if !s.Amount.Equal(dec(amount)) {
			t.Errorf("%s share: expected %s, got %s", s.ParticipantID, amount, s.Amount)
		}
	}
}
