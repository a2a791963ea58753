package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/iwvelando/loan-compare/internal/comparison"
	"github.com/iwvelando/loan-compare/internal/model"
	"github.com/iwvelando/loan-compare/internal/store"
	"github.com/iwvelando/loan-compare/pkg/constants"
	"github.com/iwvelando/loan-compare/pkg/datetime"
	"github.com/iwvelando/loan-compare/pkg/validation"
)

// compareRequest is the POST /api/compare body: the request fields plus an
// explicit save flag.
type compareRequest struct {
	model.Request
	Save bool `json:"save"`
}

func (h *handler) handleCompare(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCompare"

	var body compareRequest
	if !h.decodeBody(w, r, &body, op) {
		return
	}

	outcome, err := h.service.Compare(r.Context(), r.Header.Get(constants.SessionHeader), body.Request, body.Save)
	if err != nil {
		h.respondCompareError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, outcome)
}

func (h *handler) respondCompareError(w http.ResponseWriter, err error, op string) {
	var fieldErrs validation.Errors
	var unavailable *comparison.UnavailableError
	switch {
	case errors.As(err, &fieldErrs):
		h.respondErrorBody(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":  "invalid request",
			"fields": fieldErrs,
		}, op)
	case errors.Is(err, comparison.ErrSuperseded):
		h.respondErrorWithOp(w, http.StatusConflict, err.Error(), op)
	case errors.As(err, &unavailable):
		body := map[string]interface{}{"error": err.Error()}
		if unavailable.Previous != nil {
			body["previous"] = unavailable.Previous
		}
		h.respondErrorBody(w, http.StatusServiceUnavailable, body, op)
	default:
		h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
	}
}

func (h *handler) handleCalculations(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCalculations"

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", raw), op)
			return
		}
		limit = n
	}

	records, err := h.service.History(r.Context(), r.Header.Get(constants.SessionHeader), limit)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
		return
	}
	if records == nil {
		records = []model.CalculationRecord{}
	}
	h.writeJSON(w, http.StatusOK, records)
}

func (h *handler) handleBanks(w http.ResponseWriter, r *http.Request) {
	banks, err := h.store.ListBanks(r.Context())
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), "server.handleBanks")
		return
	}
	if banks == nil {
		banks = []model.Bank{}
	}
	h.writeJSON(w, http.StatusOK, banks)
}

// handlePromotions lists promotions eligible today for ?product=, or every
// stored promotion when ?all=true.
func (h *handler) handlePromotions(w http.ResponseWriter, r *http.Request) {
	const op = "server.handlePromotions"
	query := r.URL.Query()

	var product model.ProductType
	if raw := query.Get("product"); raw != "" {
		p, err := model.ParseProductType(raw)
		if err != nil {
			h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
			return
		}
		product = p
	}

	all, _ := strconv.ParseBool(query.Get("all"))

	var (
		promos []model.Promotion
		err    error
	)
	switch {
	case all:
		promos, err = h.store.ListPromotions(r.Context())
		if err == nil && product != "" {
			filtered := promos[:0]
			for _, p := range promos {
				if p.Product == product {
					filtered = append(filtered, p)
				}
			}
			promos = filtered
		}
	case product == "":
		h.respondErrorWithOp(w, http.StatusBadRequest, "product is required unless all=true", op)
		return
	default:
		promos, err = h.store.ListActivePromotions(r.Context(), product, datetime.Today(h.now()))
	}
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
		return
	}
	if promos == nil {
		promos = []model.Promotion{}
	}
	h.writeJSON(w, http.StatusOK, promos)
}

func (h *handler) handleRules(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleRules"
	query := r.URL.Query()

	filter := store.RuleFilter{BankID: query.Get("bank")}
	if raw := query.Get("product"); raw != "" {
		p, err := model.ParseProductType(raw)
		if err != nil {
			h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
			return
		}
		filter.Product = p
	}

	rules, err := h.store.ListRules(r.Context(), filter)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
		return
	}
	if rules == nil {
		rules = []model.Rule{}
	}
	h.writeJSON(w, http.StatusOK, rules)
}
