package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/heyimjames/penang-growth-lab-sub002/heuristics"
	"github.com/heyimjames/penang-growth-lab-sub002/internal/ratelimit"
	"github.com/heyimjames/penang-growth-lab-sub002/letters"
	"github.com/heyimjames/penang-growth-lab-sub002/userdata"
)

const testAdmin = "admin@noreply.app"

var testNow = time.Date(2024, 3, 21, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, limiter ratelimit.Limiter) (*Server, *userdata.MemoryStore) {
	t.Helper()

	hs := heuristics.NewInMemoryStore()
	if err := heuristics.Seed(hs); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	users := userdata.NewMemoryStore()
	ctx := context.Background()
	created := testNow.Add(-30 * 24 * time.Hour)
	if err := users.PutAccount(ctx, userdata.Account{ID: "u1", Email: "alice@example.com", Provider: "google", CreatedAt: created, LastSignInAt: testNow.Add(-time.Hour)}); err != nil {
		t.Fatalf("PutAccount failed: %v", err)
	}

	s, err := newServer(deps{
		users:      users,
		heuristics: hs,
		drafter:    letters.NewDrafter(nil, 0),
		limiter:    limiter,
		adminEmail: testAdmin,
		timeout:    5 * time.Second,
	})
	if err != nil {
		t.Fatalf("newServer failed: %v", err)
	}
	s.now = func() time.Time { return testNow }
	return s, users
}

func doRequest(t *testing.T, s *Server, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body map[string]any
	decode(t, rec, &body)
	if body["status"] != "healthy" {
		t.Errorf("Expected healthy, got %v", body["status"])
	}
	if n, _ := body["heuristics"].(float64); int(n) != len(heuristics.Defaults()) {
		t.Errorf("Expected %d heuristics, got %v", len(heuristics.Defaults()), body["heuristics"])
	}
}

func TestCaseStrength(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/tools/case-strength", map[string]string{
		"companyType": "airline",
		"issueType":   "flight-delay",
		"timeFrame":   "under-30-days",
		"amount":      "£1,200",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Strength string `json:"strength"`
		Score    int    `json:"score"`
	}
	decode(t, rec, &body)
	if body.Strength != "strong" || body.Score != 95 {
		t.Errorf("Expected strong/95, got %s/%d", body.Strength, body.Score)
	}
}

func TestPaymentProtection(t *testing.T) {
	s, _ := newTestServer(t, nil)

	testCases := []struct {
		name        string
		body        PaymentProtectionRequest
		wantStatus  int
		wantPrimary string
		wantTier    string
		wantDays    int
	}{
		{
			name:        "uk section 75",
			body:        PaymentProtectionRequest{Country: "uk", PaymentMethod: "credit-card", Amount: 450, PurchaseDate: "2024-03-01", IssueType: "faulty"},
			wantStatus:  http.StatusOK,
			wantPrimary: "Section 75",
			wantTier:    "strong",
			wantDays:    100,
		},
		{
			name:       "uk debit chargeback rfc3339",
			body:       PaymentProtectionRequest{Country: "UK", PaymentMethod: "debit-card", Amount: 50, PurchaseDate: "2024-03-11T09:00:00Z"},
			wantStatus: http.StatusOK,
			wantTier:   "chargeback",
			wantDays:   110,
		},
		{
			name:       "bad date",
			body:       PaymentProtectionRequest{Country: "uk", PaymentMethod: "credit-card", Amount: 450, PurchaseDate: "01/03/2024"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing date",
			body:       PaymentProtectionRequest{Country: "uk", PaymentMethod: "credit-card", Amount: 450},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "negative amount",
			body:       PaymentProtectionRequest{Country: "uk", PaymentMethod: "credit-card", Amount: -1, PurchaseDate: "2024-03-01"},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodPost, "/api/v1/tools/payment-protection", tc.body, nil)
			if rec.Code != tc.wantStatus {
				t.Fatalf("Expected %d, got %d: %s", tc.wantStatus, rec.Code, rec.Body.String())
			}
			if tc.wantStatus != http.StatusOK {
				var e ErrorResponse
				decode(t, rec, &e)
				if e.Error == "" {
					t.Error("Expected an error message")
				}
				return
			}

			var body struct {
				PrimaryProtection string `json:"primaryProtection"`
				Protection        string `json:"protection"`
				TimeLimitDays     *int   `json:"timeLimitDays"`
			}
			decode(t, rec, &body)
			if body.PrimaryProtection != tc.wantPrimary {
				t.Errorf("Expected primary %q, got %q", tc.wantPrimary, body.PrimaryProtection)
			}
			if body.Protection != tc.wantTier {
				t.Errorf("Expected tier %q, got %q", tc.wantTier, body.Protection)
			}
			if body.TimeLimitDays == nil || *body.TimeLimitDays != tc.wantDays {
				t.Errorf("Expected %d days left, got %v", tc.wantDays, body.TimeLimitDays)
			}
		})
	}
}

func TestSmallClaims(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/tools/small-claims", SmallClaimsRequest{
		Country:          "uk",
		ClaimAmount:      2000,
		IncidentDate:     testNow.AddDate(0, 0, -365).Format("2006-01-02"),
		SentDemandLetter: true,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		CourtFee            float64 `json:"courtFee"`
		InterestAmount      float64 `json:"interestAmount"`
		TotalPotentialClaim float64 `json:"totalPotentialClaim"`
		ReadyToClaim        bool    `json:"readyToClaim"`
	}
	decode(t, rec, &body)
	if body.InterestAmount != 160 {
		t.Errorf("Expected interest 160, got %v", body.InterestAmount)
	}
	if body.TotalPotentialClaim != 2000+body.InterestAmount+body.CourtFee {
		t.Errorf("Total %v is not amount + interest + fee", body.TotalPotentialClaim)
	}
	if !body.ReadyToClaim {
		t.Error("Expected ready to claim")
	}

	rec = doRequest(t, s, http.MethodPost, "/api/v1/tools/small-claims", SmallClaimsRequest{Country: "uk", ClaimAmount: 100, IncidentDate: "yesterday"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad date, got %d", rec.Code)
	}
}

func TestMER(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/tools/mer", map[string]float64{
		"revenue": 50000, "spend": 10000, "platformRevenue": 60000, "grossMarginPct": 40,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		MER     float64 `json:"mer"`
		Verdict string  `json:"verdict"`
	}
	decode(t, rec, &body)
	if body.MER != 5 || body.Verdict != "scale" {
		t.Errorf("Expected MER 5 / scale, got %v / %s", body.MER, body.Verdict)
	}

	rec = doRequest(t, s, http.MethodPost, "/api/v1/tools/mer", map[string]float64{"revenue": 100, "spend": 0, "grossMarginPct": 40}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for zero spend, got %d", rec.Code)
	}
}

func TestDraftLetter(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/letters/draft", letters.Request{
		CustomerName: "Alice Example",
		CompanyName:  "Acme Air",
		IssueType:    "flight-delay",
		Description:  "Five hour delay.",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var letter letters.Letter
	decode(t, rec, &letter)
	if letter.GeneratedBy != letters.GeneratedByTemplate || !strings.Contains(letter.HTML, "<h1>") {
		t.Errorf("Unexpected letter: %+v", letter)
	}

	rec = doRequest(t, s, http.MethodPost, "/api/v1/letters/draft", letters.Request{CompanyName: "Acme"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for incomplete request, got %d", rec.Code)
	}
}

func TestSpamAnalysis(t *testing.T) {
	s, users := newTestServer(t, nil)
	admin := map[string]string{adminHeader: "Admin@NoReply.app "}

	rec := doRequest(t, s, http.MethodPost, "/api/v1/admin/users/u1/spam-analysis", nil, map[string]string{adminHeader: "someone@example.com"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for non-admin, got %d", rec.Code)
	}

	rec = doRequest(t, s, http.MethodPost, "/api/v1/admin/users/missing/spam-analysis", nil, admin)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 for unknown user, got %d", rec.Code)
	}
	var notFound SpamAnalysisResponse
	decode(t, rec, &notFound)
	if notFound.Success || notFound.Error == "" {
		t.Errorf("Expected success=false with error, got %+v", notFound)
	}

	rec = doRequest(t, s, http.MethodPost, "/api/v1/admin/users/u1/spam-analysis", nil, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Success bool     `json:"success"`
		UserID  string   `json:"userId"`
		Score   int      `json:"score"`
		Flags   []string `json:"flags"`
	}
	decode(t, rec, &body)
	if !body.Success || body.UserID != "u1" {
		t.Errorf("Unexpected response %+v", body)
	}
	if body.Score < 0 || body.Score > 100 {
		t.Errorf("Score %d out of range", body.Score)
	}

	profile, err := users.GetProfile(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if profile.SpamScore != body.Score || profile.SpamAnalyzedAt == nil {
		t.Errorf("Score not written back: %+v", profile)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/v1/admin/users/flagged?min=0", nil, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var flagged FlaggedResponse
	decode(t, rec, &flagged)
	if len(flagged.Users) != 1 || flagged.Users[0].UserID != "u1" {
		t.Errorf("Expected u1 in flagged list, got %+v", flagged.Users)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/v1/admin/users/flagged?min=abc", nil, admin)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad min, got %d", rec.Code)
	}
}

func TestHeuristicCRUD(t *testing.T) {
	s, _ := newTestServer(t, nil)
	admin := map[string]string{adminHeader: testAdmin}

	rec := doRequest(t, s, http.MethodGet, "/api/v1/admin/heuristics", nil, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403 without admin header, got %d", rec.Code)
	}

	create := HeuristicRequest{
		ID:          "many-cases",
		Flag:        "many_cases",
		Description: "More than ten cases",
		Expression:  "signals.case_count > 10",
		Points:      15,
	}
	rec = doRequest(t, s, http.MethodPost, "/api/v1/admin/heuristics", create, admin)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, s, http.MethodPost, "/api/v1/admin/heuristics", create, admin)
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 for duplicate, got %d", rec.Code)
	}

	bad := create
	bad.ID = ""
	bad.Expression = "signals.case_count +"
	rec = doRequest(t, s, http.MethodPost, "/api/v1/admin/heuristics", bad, admin)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid expression, got %d", rec.Code)
	}

	misspelled := create
	misspelled.ID = "misspelled"
	misspelled.Expression = "signals.case_cout >= 1"
	rec = doRequest(t, s, http.MethodPost, "/api/v1/admin/heuristics", misspelled, admin)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown signal, got %d", rec.Code)
	}
	var e ErrorResponse
	decode(t, rec, &e)
	if !strings.Contains(e.Details, "unknown signal case_cout") {
		t.Errorf("Expected unknown signal in details, got %q", e.Details)
	}

	update := create
	update.Points = 25
	rec = doRequest(t, s, http.MethodPut, "/api/v1/admin/heuristics/many-cases", update, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, s, http.MethodPut, "/api/v1/admin/heuristics/nope", update, admin)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 updating unknown heuristic, got %d", rec.Code)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/v1/admin/heuristics", nil, admin)
	var list struct {
		Heuristics []heuristics.Heuristic `json:"heuristics"`
	}
	decode(t, rec, &list)
	if len(list.Heuristics) != len(heuristics.Defaults())+1 {
		t.Errorf("Expected %d heuristics, got %d", len(heuristics.Defaults())+1, len(list.Heuristics))
	}

	rec = doRequest(t, s, http.MethodDelete, "/api/v1/admin/heuristics/many-cases", nil, admin)
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rec.Code)
	}
	rec = doRequest(t, s, http.MethodDelete, "/api/v1/admin/heuristics/many-cases", nil, admin)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 on second delete, got %d", rec.Code)
	}
}

func TestToolsAreRateLimited(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(2, time.Hour)
	defer limiter.Stop()
	s, _ := newTestServer(t, limiter)

	body := map[string]string{"companyType": "retailer"}
	for i := 0; i < 2; i++ {
		if rec := doRequest(t, s, http.MethodPost, "/api/v1/tools/case-strength", body, nil); rec.Code != http.StatusOK {
			t.Fatalf("Request %d: expected 200, got %d", i, rec.Code)
		}
	}

	rec := doRequest(t, s, http.MethodPost, "/api/v1/tools/case-strength", body, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429, got %d", rec.Code)
	}

	for i := 0; i < 5; i++ {
		spoofed := map[string]string{
			"X-Real-IP":       fmt.Sprintf("198.51.100.%d", i),
			"X-Forwarded-For": fmt.Sprintf("192.0.2.%d", i),
		}
		rec = doRequest(t, s, http.MethodPost, "/api/v1/letters/draft", letters.Request{}, spoofed)
		if rec.Code != http.StatusTooManyRequests {
			t.Errorf("Rotated forwarding headers should not reset the limit, got %d", rec.Code)
		}
	}

	rec = doRequest(t, s, http.MethodGet, "/api/v1/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("Health should not be rate limited, got %d", rec.Code)
	}
}

func TestParseDate(t *testing.T) {
	testCases := []struct {
		in      string
		wantErr bool
	}{
		{"2024-03-01", false},
		{" 2024-03-01 ", false},
		{"2024-03-01T10:00:00+01:00", false},
		{"", true},
		{"2024-13-01", true},
		{"March 1st", true},
	}
	for _, tc := range testCases {
		_, err := parseDate(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("parseDate(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
	}
}
