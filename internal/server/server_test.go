package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/iwvelando/loan-compare/internal/comparison"
	"github.com/iwvelando/loan-compare/internal/eligibility"
	"github.com/iwvelando/loan-compare/internal/metrics"
	"github.com/iwvelando/loan-compare/internal/model"
	"github.com/iwvelando/loan-compare/internal/store"
	"github.com/iwvelando/loan-compare/internal/store/memory"
	"github.com/iwvelando/loan-compare/pkg/constants"
	"github.com/iwvelando/loan-compare/pkg/datetime"
)

var fixedNow = time.Date(2026, time.October, 15, 10, 0, 0, 0, time.UTC)

func ptr(v float64) *float64 { return &v }

type testEnv struct {
	handler http.Handler
	store   *memory.Store
}

func newTestEnv(t *testing.T, wrap func(store.Reader) store.Reader, opts Options) testEnv {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	mustNoErr(t, st.UpsertBank(ctx, model.Bank{ID: "bank-a", Name: "Bank A", ShortName: "BA", BaseRate: ptr(7.3)}))
	mustNoErr(t, st.UpsertPromotion(ctx, model.Promotion{
		ID: "promo-a", BankID: "bank-a", Name: "Flat", Product: model.ProductPersonal,
		Basis: model.BasisFixed, Rates: model.RateTable{Year1: ptr(5.5)}, Active: true,
	}))
	mustNoErr(t, st.UpsertRule(ctx, model.Rule{ID: "r-a", BankID: "bank-a", Product: model.ProductPersonal, DSRCap: 0.70}))

	var reader store.Reader = st
	if wrap != nil {
		reader = wrap(st)
	}
	svc := comparison.NewService(reader, st, comparison.Options{
		Policy: eligibility.Policy{BonusIncomeFactor: 0.7, ExtraIncomeFactor: 0.5},
		Now:    func() time.Time { return fixedNow },
	})
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	opts.Now = func() time.Time { return fixedNow }
	return testEnv{handler: NewHandler(svc, st, opts), store: st}
}

func mustNoErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func (e testEnv) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

const maximizeBody = `{"mode":"maximize","product":"personal","income":50000,"debt":5000,"age":30,"tenureYears":20}`

func TestHandleCompareSuccess(t *testing.T) {
	env := newTestEnv(t, nil, Options{})

	rr := env.do(http.MethodPost, "/api/compare", maximizeBody, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp comparison.Outcome
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Result.Offers) != 1 {
		t.Fatalf("expected 1 offer, got %+v", resp.Result)
	}
	offer := resp.Result.Offers[0]
	if offer.Status != model.StatusApproved || offer.Amount < 4400000 || offer.Amount > 4510000 {
		t.Errorf("unexpected offer %+v", offer)
	}
	if resp.SavedID != "" {
		t.Errorf("expected nothing saved without the save flag")
	}
}

func TestHandleCompareSaveAndHistory(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	session := map[string]string{constants.SessionHeader: "abc"}

	body := strings.TrimSuffix(maximizeBody, "}") + `,"save":true}`
	rr := env.do(http.MethodPost, "/api/compare", body, session)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp comparison.Outcome
	mustNoErr(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	if resp.SavedID == "" {
		t.Fatalf("expected a saved calculation ID")
	}

	rr = env.do(http.MethodGet, "/api/calculations?limit=5", "", session)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var records []model.CalculationRecord
	mustNoErr(t, json.Unmarshal(rr.Body.Bytes(), &records))
	if len(records) != 1 || records[0].ID != resp.SavedID {
		t.Fatalf("unexpected history %+v", records)
	}

	rr = env.do(http.MethodGet, "/api/calculations", "", map[string]string{constants.SessionHeader: "other"})
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Errorf("expected empty history for another session, got %s", rr.Body.String())
	}

	rr = env.do(http.MethodGet, "/api/calculations?limit=zero", "", session)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a bad limit, got %d", rr.Code)
	}
}

func TestHandleCompareValidationError(t *testing.T) {
	env := newTestEnv(t, nil, Options{})

	rr := env.do(http.MethodPost, "/api/compare", `{"mode":"check","product":"mortgage","income":50000,"age":30,"tenureYears":20}`, nil)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Error  string `json:"error"`
		Fields []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"fields"`
	}
	mustNoErr(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	got := map[string]bool{}
	for _, f := range resp.Fields {
		got[f.Field] = true
	}
	if !got["requestedAmount"] || !got["propertyValue"] {
		t.Errorf("expected requestedAmount and propertyValue errors, got %+v", resp.Fields)
	}
}

func TestHandleCompareBadBody(t *testing.T) {
	env := newTestEnv(t, nil, Options{MaxBodySize: 64})

	rr := env.do(http.MethodPost, "/api/compare", `{"mode":`, nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed JSON, got %d", rr.Code)
	}

	rr = env.do(http.MethodPost, "/api/compare", maximizeBody+strings.Repeat(" ", 100), nil)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413 for an oversized body, got %d", rr.Code)
	}

	rr = env.do(http.MethodGet, "/api/compare", "", nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET, got %d", rr.Code)
	}
}

type brokenReader struct{ store.Reader }

func (brokenReader) ListBanks(context.Context) ([]model.Bank, error) {
	return nil, errTest
}

var errTest = errors.New("database is down")

func TestHandleCompareDataUnavailable(t *testing.T) {
	env := newTestEnv(t, func(r store.Reader) store.Reader { return brokenReader{r} }, Options{})

	rr := env.do(http.MethodPost, "/api/compare", maximizeBody, nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "database is down") {
		t.Errorf("expected the cause in the error body, got %s", rr.Body.String())
	}
}

func TestHandleReferenceData(t *testing.T) {
	env := newTestEnv(t, nil, Options{})

	rr := env.do(http.MethodGet, "/api/banks", "", nil)
	var banks []model.Bank
	mustNoErr(t, json.Unmarshal(rr.Body.Bytes(), &banks))
	if len(banks) != 1 || banks[0].ShortName != "BA" {
		t.Errorf("unexpected banks %+v", banks)
	}

	rr = env.do(http.MethodGet, "/api/promotions?product=personal", "", nil)
	var promos []model.Promotion
	mustNoErr(t, json.Unmarshal(rr.Body.Bytes(), &promos))
	if len(promos) != 1 {
		t.Errorf("expected one active personal promotion, got %+v", promos)
	}

	rr = env.do(http.MethodGet, "/api/promotions?product=mortgage&all=true", "", nil)
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Errorf("expected no mortgage promotions, got %s", rr.Body.String())
	}

	if rr = env.do(http.MethodGet, "/api/promotions", "", nil); rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without product, got %d", rr.Code)
	}
	if rr = env.do(http.MethodGet, "/api/promotions?product=car", "", nil); rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown product, got %d", rr.Code)
	}

	rr = env.do(http.MethodGet, "/api/rules?bank=bank-a&product=personal", "", nil)
	var rules []model.Rule
	mustNoErr(t, json.Unmarshal(rr.Body.Bytes(), &rules))
	if len(rules) != 1 || rules[0].DSRCap != 0.70 {
		t.Errorf("unexpected rules %+v", rules)
	}
}

func TestAdminRequiresToken(t *testing.T) {
	env := newTestEnv(t, nil, Options{AdminToken: "s3cret"})
	body := `{"rate": 6.85}`

	if rr := env.do(http.MethodPut, "/api/admin/banks/BA/base-rate", body, nil); rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rr.Code)
	}
	wrong := map[string]string{"Authorization": "Bearer nope"}
	if rr := env.do(http.MethodPut, "/api/admin/banks/BA/base-rate", body, wrong); rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong token, got %d", rr.Code)
	}

	right := map[string]string{"Authorization": "Bearer s3cret"}
	rr := env.do(http.MethodPut, "/api/admin/banks/BA/base-rate", body, right)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d: %s", rr.Code, rr.Body.String())
	}

	banks, err := env.store.ListBanks(context.Background())
	mustNoErr(t, err)
	if banks[0].BaseRate == nil || *banks[0].BaseRate != 6.85 {
		t.Errorf("expected base rate 6.85, got %v", banks[0].BaseRate)
	}
	if banks[0].BaseRateUpdatedOn.String() != "2026-10-15" {
		t.Errorf("expected update date to default to today, got %s", banks[0].BaseRateUpdatedOn)
	}
}

func TestAdminCRUD(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	ctx := context.Background()

	rr := env.do(http.MethodPut, "/api/admin/banks/bank-b", `{"name":"Bank B","shortName":"BB","baseRate":6.9}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("put bank: %d %s", rr.Code, rr.Body.String())
	}

	rr = env.do(http.MethodPut, "/api/admin/promotions/promo-b",
		`{"bankId":"bank-b","name":"Step","product":"personal","basis":"base-relative","rates":{"year1":-1.5},"active":true,"endsOn":"2026-12-31"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("put promotion: %d %s", rr.Code, rr.Body.String())
	}

	rr = env.do(http.MethodPut, "/api/admin/rules/r-b", `{"bankId":"bank-b","product":"personal","dsrCap":0.6}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("put rule: %d %s", rr.Code, rr.Body.String())
	}

	promos, err := env.store.ListActivePromotions(ctx, model.ProductPersonal, datetime.Today(fixedNow))
	mustNoErr(t, err)
	if len(promos) != 2 {
		t.Fatalf("expected 2 active promotions, got %+v", promos)
	}

	if rr = env.do(http.MethodPut, "/api/admin/rules/r-x", `{"bankId":"nope","product":"personal","dsrCap":0.6}`, nil); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for a rule of an unknown bank, got %d", rr.Code)
	}
	if rr = env.do(http.MethodPut, "/api/admin/rules/r-x", `{"bankId":"bank-b","product":"personal"}`, nil); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for a rule without a DSR cap, got %d", rr.Code)
	}
	if rr = env.do(http.MethodPut, "/api/admin/banks/BZ/base-rate", `{"rate":5}`, nil); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown short name, got %d", rr.Code)
	}
	if rr = env.do(http.MethodPut, "/api/admin/banks/BB/base-rate", `{}`, nil); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 without a rate, got %d", rr.Code)
	}

	if rr = env.do(http.MethodDelete, "/api/admin/rules/r-b", "", nil); rr.Code != http.StatusNoContent {
		t.Errorf("delete rule: %d", rr.Code)
	}
	if rr = env.do(http.MethodDelete, "/api/admin/promotions/promo-b", "", nil); rr.Code != http.StatusNoContent {
		t.Errorf("delete promotion: %d", rr.Code)
	}
	if rr = env.do(http.MethodDelete, "/api/admin/banks/bank-b", "", nil); rr.Code != http.StatusNoContent {
		t.Errorf("delete bank: %d", rr.Code)
	}
	if rr = env.do(http.MethodDelete, "/api/admin/banks/bank-b", "", nil); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 deleting a missing bank, got %d", rr.Code)
	}
}

func TestHandleVersionAndHealth(t *testing.T) {
	env := newTestEnv(t, nil, Options{Version: " v1.2.3 "})

	rr := env.do(http.MethodGet, "/api/version", "", nil)
	var payload map[string]string
	mustNoErr(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	if payload["version"] != "v1.2.3" {
		t.Errorf("expected trimmed version, got %q", payload["version"])
	}

	rr = env.do(http.MethodGet, "/healthz", "", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("expected healthy, got %d", rr.Code)
	}

	env = newTestEnv(t, nil, Options{})
	rr = env.do(http.MethodGet, "/api/version", "", nil)
	mustNoErr(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	if payload["version"] != "dev" {
		t.Errorf("expected dev version by default, got %q", payload["version"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	env := newTestEnv(t, nil, Options{Metrics: m})

	env.do(http.MethodPost, "/api/compare", maximizeBody, nil)
	rr := env.do(http.MethodGet, "/metrics", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected metrics, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `loancompare_http_request_duration_seconds_count{code="200",route="POST /api/compare"} 1`) {
		t.Errorf("expected compare latency series, got:\n%s", body)
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte("go_goroutines")) {
		t.Errorf("expected runtime collectors")
	}
}
