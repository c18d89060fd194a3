package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ledgerchat/internal/ai"
	"ledgerchat/internal/auth"
	"ledgerchat/internal/chat"
	"ledgerchat/internal/config"
	"ledgerchat/internal/log"
	"ledgerchat/internal/middleware/ratelimit"
	"ledgerchat/internal/nlu"
	"ledgerchat/internal/services"
	"ledgerchat/internal/storage"
)

// scriptedProvider returns queued completions in order and errors once
// the queue is drained.
type scriptedProvider struct {
	replies []string
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(ctx context.Context, prompt string) (string, error) {
	if len(p.replies) == 0 {
		return "", context.DeadlineExceeded
	}
	next := p.replies[0]
	p.replies = p.replies[1:]
	return next, nil
}

func (p *scriptedProvider) push(reply string) {
	p.replies = append(p.replies, reply)
}

type testServer struct {
	srv      *Server
	repo     *storage.Repository
	provider *scriptedProvider
	handler  http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})

	repo, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	provider := &scriptedProvider{}
	expenses := services.NewExpenseService(repo, provider, nil, logger)
	budgets := services.NewBudgetService(repo, logger)
	trends := services.NewTrendsService(repo)
	insights := services.NewInsightsService(repo, provider, logger)
	receipts, err := services.NewReceiptService(repo, t.TempDir(), nil, logger)
	if err != nil {
		t.Fatalf("receipt service: %v", err)
	}

	expenses.OnChange(trends.Invalidate)
	expenses.OnChange(budgets.Invalidate)

	parser := nlu.NewParser(provider, logger)
	chatRouter := chat.NewRouter(parser, expenses, budgets, insights, repo, logger)

	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 1000, CleanupInterval: time.Minute})
	t.Cleanup(limiter.Stop)

	cfg := &config.Config{Port: "8082", OTPTTL: 10 * time.Minute}
	srv := NewServer(Deps{
		Config:   cfg,
		Logger:   logger,
		Repo:     repo,
		Issuer:   auth.NewTokenIssuer("test-secret-0123456789", 30*time.Minute),
		Limiter:  limiter,
		Expenses: expenses,
		Budgets:  budgets,
		Trends:   trends,
		Receipts: receipts,
		Insights: insights,
		Chat:     chatRouter,
	})

	return &testServer{srv: srv, repo: repo, provider: provider, handler: srv.Handler()}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "203.0.113.9:4000"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// signUp registers, verifies and logs in a user, returning a token.
// The username is derived from the email so multiple users can coexist.
func (ts *testServer) signUp(t *testing.T, email string) string {
	t.Helper()

	rec := ts.do(t, http.MethodPost, "/api/auth/register", "", registerRequest{
		Username: strings.SplitN(email, "@", 2)[0],
		Email:    email,
		Password: "hunter22secret",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d: %s", rec.Code, rec.Body.String())
	}

	// The generated code is only logged, so plant a known one.
	if err := ts.repo.CreateOTP(context.Background(), "otp-test-"+email, email, "424242", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("create otp: %v", err)
	}
	rec = ts.do(t, http.MethodPost, "/api/auth/verify", "", verifyRequest{Email: email, Code: "424242"})
	if rec.Code != http.StatusOK {
		t.Fatalf("verify status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodPost, "/api/auth/login", "", loginRequest{Email: email, Password: "hunter22secret"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp loginResponse
	decodeBody(t, rec, &resp)
	if resp.Token == "" {
		t.Fatal("empty token")
	}
	return resp.Token
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t)

	// Unverified accounts cannot log in.
	rec := ts.do(t, http.MethodPost, "/api/auth/register", "", registerRequest{
		Username: "tester",
		Email:    "new@example.com",
		Password: "hunter22secret",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d: %s", rec.Code, rec.Body.String())
	}
	rec = ts.do(t, http.MethodPost, "/api/auth/login", "", loginRequest{Email: "new@example.com", Password: "hunter22secret"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("login before verify status = %d, want 403", rec.Code)
	}

	// Duplicate registration conflicts.
	rec = ts.do(t, http.MethodPost, "/api/auth/register", "", registerRequest{
		Username: "tester2",
		Email:    "new@example.com",
		Password: "hunter22secret",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register status = %d, want 409", rec.Code)
	}

	// Wrong password is rejected the same way as an unknown user.
	token := ts.signUp(t, "okay@example.com")
	rec = ts.do(t, http.MethodPost, "/api/auth/login", "", loginRequest{Email: "okay@example.com", Password: "wrong-password"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d, want 401", rec.Code)
	}

	// The token opens private routes.
	rec = ts.do(t, http.MethodGet, "/api/expenses", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated list status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestVerifyRejectsBadCode(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, http.MethodPost, "/api/auth/register", "", registerRequest{
		Username: "tester",
		Email:    "otp@example.com",
		Password: "hunter22secret",
	})

	rec := ts.do(t, http.MethodPost, "/api/auth/verify", "", verifyRequest{Email: "otp@example.com", Code: "000000"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("verify status = %d, want 401", rec.Code)
	}
}

func TestPrivateRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/api/expenses", "/api/budgets", "/api/chat/history", "/api/trends/monthly"} {
		rec := ts.do(t, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s without token = %d, want 401", path, rec.Code)
		}
	}

	rec := ts.do(t, http.MethodGet, "/api/expenses", "not-a-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("garbage token = %d, want 401", rec.Code)
	}
}

func TestExpenseCRUD(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signUp(t, "crud@example.com")

	rec := ts.do(t, http.MethodPost, "/api/expenses", token, expenseRequest{
		Amount:      12.5,
		Description: "weekly groceries",
		Category:    "Food",
		Date:        "2026-08-10",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var created expenseResponse
	decodeBody(t, rec, &created)
	if created.Amount != 12.5 || created.Category != "Food" || created.Date != "2026-08-10" {
		t.Errorf("created = %+v", created)
	}

	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/api/expenses/%d", created.ID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = ts.do(t, http.MethodPut, fmt.Sprintf("/api/expenses/%d", created.ID), token, expenseRequest{
		Amount:      15,
		Description: "weekly groceries and snacks",
		Category:    "Food",
		Date:        "2026-08-10",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodGet, "/api/expenses", token, nil)
	var list struct {
		Expenses []expenseResponse `json:"expenses"`
	}
	decodeBody(t, rec, &list)
	if len(list.Expenses) != 1 || list.Expenses[0].Amount != 15 {
		t.Errorf("list = %+v", list.Expenses)
	}

	rec = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/expenses/%d", created.ID), token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/api/expenses/%d", created.ID), token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestExpenseValidation(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signUp(t, "invalid@example.com")

	tests := []struct {
		name string
		req  expenseRequest
	}{
		{"negative amount", expenseRequest{Amount: -5, Description: "x", Category: "Food"}},
		{"zero amount", expenseRequest{Amount: 0, Description: "x", Category: "Food"}},
		{"blank description", expenseRequest{Amount: 5, Description: "  ", Category: "Food"}},
		{"bad date", expenseRequest{Amount: 5, Description: "x", Category: "Food", Date: "not-a-date"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/expenses", token, tt.req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestExpensesAreUserScoped(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signUp(t, "alice@example.com")
	bob := ts.signUp(t, "bob@example.com")

	rec := ts.do(t, http.MethodPost, "/api/expenses", alice, expenseRequest{
		Amount: 9.99, Description: "book", Category: "Books", Date: "2026-08-01",
	})
	var created expenseResponse
	decodeBody(t, rec, &created)

	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/api/expenses/%d", created.ID), bob, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("cross-user get status = %d, want 404", rec.Code)
	}
}

func TestExpenseSummary(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signUp(t, "summary@example.com")

	for _, req := range []expenseRequest{
		{Amount: 10, Description: "groceries", Category: "Food", Date: "2026-08-10"},
		{Amount: 20, Description: "more groceries", Category: "Food", Date: "2026-08-11"},
		{Amount: 5, Description: "bus", Category: "Transport", Date: "2026-08-12"},
	} {
		if rec := ts.do(t, http.MethodPost, "/api/expenses", token, req); rec.Code != http.StatusCreated {
			t.Fatalf("seed expense: %d %s", rec.Code, rec.Body.String())
		}
	}

	rec := ts.do(t, http.MethodGet, "/api/expenses/summary?start=2026-08-01&end=2026-08-31", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp summaryResponse
	decodeBody(t, rec, &resp)
	if resp.Total != 35 {
		t.Errorf("total = %v, want 35", resp.Total)
	}
	if len(resp.TopCategories) != 2 || resp.TopCategories[0].Category != "Food" {
		t.Errorf("top categories = %+v", resp.TopCategories)
	}
}

func TestBudgetStatusEndpoint(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signUp(t, "budget@example.com")

	rec := ts.do(t, http.MethodPost, "/api/budgets", token, budgetRequest{
		Category:  "Food",
		Amount:    100,
		StartDate: "2026-08-01",
		EndDate:   "2026-08-31",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create budget status = %d: %s", rec.Code, rec.Body.String())
	}
	var budget budgetResponse
	decodeBody(t, rec, &budget)

	ts.do(t, http.MethodPost, "/api/expenses", token, expenseRequest{
		Amount: 30, Description: "groceries", Category: "Food", Date: "2026-08-10",
	})

	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/api/budgets/%d/status", budget.ID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status endpoint = %d: %s", rec.Code, rec.Body.String())
	}
	var status budgetStatusResponse
	decodeBody(t, rec, &status)
	if status.Spent != 30 || status.Remaining != 70 || status.OverLimit {
		t.Errorf("status = %+v", status)
	}

	// Inverted date range is rejected.
	rec = ts.do(t, http.MethodPost, "/api/budgets", token, budgetRequest{
		Category: "Food", Amount: 100, StartDate: "2026-08-31", EndDate: "2026-08-01",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("inverted range status = %d, want 400", rec.Code)
	}
}

func TestChatEndpoint(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signUp(t, "chat@example.com")

	ts.provider.push(`{"intent": "greeting", "entities": {}}`)

	rec := ts.do(t, http.MethodPost, "/api/chat", token, chatRequest{Message: "hi there"})
	if rec.Code != http.StatusOK {
		t.Fatalf("chat status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp chatResponse
	decodeBody(t, rec, &resp)
	if resp.Intent != "greeting" || resp.Reply == "" {
		t.Errorf("chat response = %+v", resp)
	}

	rec = ts.do(t, http.MethodGet, "/api/chat/history", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history status = %d", rec.Code)
	}
	var history struct {
		Messages []chatMessageResponse `json:"messages"`
	}
	decodeBody(t, rec, &history)
	if len(history.Messages) != 2 {
		t.Fatalf("history length = %d, want 2", len(history.Messages))
	}
}

func TestMonthlyTrendsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signUp(t, "trends@example.com")

	ts.do(t, http.MethodPost, "/api/expenses", token, expenseRequest{
		Amount: 42, Description: "utilities", Category: "Bills", Date: time.Now().UTC().Format(storage.DateLayout),
	})

	rec := ts.do(t, http.MethodGet, "/api/trends/monthly?months=3", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("trends status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Months []monthTotalResponse `json:"months"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Months) != 3 {
		t.Fatalf("months = %d, want 3", len(resp.Months))
	}
	if resp.Months[2].Total != 42 {
		t.Errorf("current month total = %v, want 42", resp.Months[2].Total)
	}
}

func TestInsightsEndpointDegrades(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signUp(t, "insights@example.com")

	ts.do(t, http.MethodPost, "/api/expenses", token, expenseRequest{
		Amount: 80, Description: "steak", Category: "Food",
		Date: time.Now().UTC().Format(storage.DateLayout),
	})

	// Provider queue is empty so the completion fails; the endpoint
	// still answers with the safe default.
	rec := ts.do(t, http.MethodGet, "/api/ai/insights", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("insights status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp ai.Insights
	decodeBody(t, rec, &resp)
	if len(resp.Anomalies) != 1 || resp.Anomalies[0].Category != "system_error" {
		t.Errorf("insights = %+v", resp)
	}
}

func TestSuggestionsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signUp(t, "suggest@example.com")

	// With no spending the fixed reply comes back without a provider call.
	rec := ts.do(t, http.MethodGet, "/api/ai/suggestions", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("no-data suggestions status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Suggestions string `json:"suggestions"`
	}
	decodeBody(t, rec, &resp)
	if resp.Suggestions != services.NoSuggestionsReply {
		t.Errorf("suggestions = %q", resp.Suggestions)
	}

	// With spending but a dead provider the endpoint reports unavailable.
	ts.do(t, http.MethodPost, "/api/expenses", token, expenseRequest{
		Amount: 80, Description: "steak", Category: "Food",
		Date: time.Now().UTC().Format(storage.DateLayout),
	})
	rec = ts.do(t, http.MethodGet, "/api/ai/suggestions", token, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("suggestions status = %d, want 503", rec.Code)
	}
}

func TestReceiptUpload(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signUp(t, "receipt@example.com")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("text", "MERCHANT FOODMART\nmilk 2.50\nbread 1.80"); err != nil {
		t.Fatal(err)
	}
	part, err := mw.CreateFormFile("file", "receipt.jpg")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("fake image bytes"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/receipts", &buf)
	req.RemoteAddr = "203.0.113.9:4000"
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body.String())
	}
	var created receiptResponse
	decodeBody(t, rec, &created)
	if created.State != "pending" || created.Filename != "receipt.jpg" {
		t.Errorf("receipt = %+v", created)
	}

	getRec := ts.do(t, http.MethodGet, "/api/receipts/"+created.ID, token, nil)
	if getRec.Code != http.StatusOK {
		t.Fatalf("get receipt status = %d", getRec.Code)
	}

	// Text field is mandatory.
	var empty bytes.Buffer
	mw = multipart.NewWriter(&empty)
	mw.Close()
	req = httptest.NewRequest(http.MethodPost, "/api/receipts", &empty)
	req.RemoteAddr = "203.0.113.9:4000"
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("upload without text status = %d, want 400", rec.Code)
	}
}

func TestProfileEndpoint(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signUp(t, "profile@example.com")

	rec := ts.do(t, http.MethodGet, "/api/auth/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp profileResponse
	decodeBody(t, rec, &resp)
	if resp.Email != "profile@example.com" || resp.Username != "profile" || !resp.Verified {
		t.Errorf("profile = %+v", resp)
	}
}

func TestResendOTP(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, http.MethodPost, "/api/auth/register", "", registerRequest{
		Username: "resend",
		Email:    "resend@example.com",
		Password: "hunter22secret",
	})

	rec := ts.do(t, http.MethodPost, "/api/auth/resend", "", resendRequest{Email: "resend@example.com"})
	if rec.Code != http.StatusOK {
		t.Fatalf("resend status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodPost, "/api/auth/resend", "", resendRequest{Email: "nobody@example.com"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("resend unknown email status = %d, want 404", rec.Code)
	}

	// Verified accounts have nothing to resend.
	ts.signUp(t, "done@example.com")
	rec = ts.do(t, http.MethodPost, "/api/auth/resend", "", resendRequest{Email: "done@example.com"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("resend after verify status = %d, want 400", rec.Code)
	}
}

func TestCategorizeEndpoint(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signUp(t, "categorize@example.com")

	ts.provider.push("Food")
	rec := ts.do(t, http.MethodPost, "/api/ai/categorize", token, categorizeRequest{
		Description: "pizza night",
		Amount:      18.5,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("categorize status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Category string `json:"category"`
	}
	decodeBody(t, rec, &resp)
	if resp.Category != "Food" {
		t.Errorf("category = %q", resp.Category)
	}

	// Dead provider falls back instead of failing.
	rec = ts.do(t, http.MethodPost, "/api/ai/categorize", token, categorizeRequest{Description: "mystery item"})
	decodeBody(t, rec, &resp)
	if resp.Category != "Miscellaneous" {
		t.Errorf("fallback category = %q", resp.Category)
	}
}

func TestCategoryOverride(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signUp(t, "override@example.com")

	rec := ts.do(t, http.MethodPost, "/api/expenses", token, expenseRequest{
		Amount: 12, Description: "lunch", Category: "Food", Date: "2026-08-10",
	})
	var created expenseResponse
	decodeBody(t, rec, &created)

	rec = ts.do(t, http.MethodPut, fmt.Sprintf("/api/expenses/%d/category", created.ID), token,
		categoryOverrideRequest{Category: "Dining Out"})
	if rec.Code != http.StatusOK {
		t.Fatalf("override status = %d: %s", rec.Code, rec.Body.String())
	}
	var updated expenseResponse
	decodeBody(t, rec, &updated)
	if updated.Category != "Dining Out" {
		t.Errorf("category = %q", updated.Category)
	}

	rec = ts.do(t, http.MethodPut, fmt.Sprintf("/api/expenses/%d/category", created.ID), token,
		categoryOverrideRequest{Category: "  "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("blank override status = %d, want 400", rec.Code)
	}
}

func TestHealthAndUnknownRoute(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("healthz body = %s", rec.Body.String())
	}

	rec = ts.do(t, http.MethodGet, "/nope", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown route status = %d", rec.Code)
	}
}
