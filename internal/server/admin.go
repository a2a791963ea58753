package server

import (
	"context"
	"errors"
	"net/http"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"

	"github.com/iwvelando/loan-compare/internal/model"
	"github.com/iwvelando/loan-compare/internal/store"
	"github.com/iwvelando/loan-compare/pkg/datetime"
	"github.com/iwvelando/loan-compare/pkg/validation"
)

type baseRateUpdate struct {
	Rate *float64   `json:"rate"`
	On   civil.Date `json:"on"`
}

func (h *handler) handlePutBank(w http.ResponseWriter, r *http.Request) {
	const op = "server.handlePutBank"

	var bank model.Bank
	if !h.decodeBody(w, r, &bank, op) {
		return
	}
	bank.ID = r.PathValue("id")
	if !bank.BaseRateUpdatedOn.IsValid() {
		bank.BaseRateUpdatedOn = datetime.Today(h.now())
	}
	if errs := validation.ValidateBank(bank); errs != nil {
		h.respondInvalid(w, errs, op)
		return
	}

	if err := h.store.UpsertBank(r.Context(), bank); err != nil {
		h.respondStoreError(w, err, op)
		return
	}
	h.logAdmin(op, "bank", bank.ID)
	h.writeJSON(w, http.StatusOK, bank)
}

func (h *handler) handleDeleteBank(w http.ResponseWriter, r *http.Request) {
	h.deleteWith(w, r, "server.handleDeleteBank", "bank", h.store.DeleteBank)
}

func (h *handler) handlePutBaseRate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handlePutBaseRate"

	var update baseRateUpdate
	if !h.decodeBody(w, r, &update, op) {
		return
	}
	if update.Rate == nil {
		h.respondInvalid(w, validation.Errors{{Field: "rate", Message: "is required"}}, op)
		return
	}
	if errs := validation.ValidateBaseRate(*update.Rate); errs != nil {
		h.respondInvalid(w, errs, op)
		return
	}
	if !update.On.IsValid() {
		update.On = datetime.Today(h.now())
	}

	short := r.PathValue("short")
	if err := h.store.UpdateBaseRate(r.Context(), short, *update.Rate, update.On); err != nil {
		h.respondStoreError(w, err, op)
		return
	}
	h.logAdmin(op, "base-rate", short)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"shortName": short,
		"rate":      *update.Rate,
		"on":        update.On,
	})
}

func (h *handler) handlePutPromotion(w http.ResponseWriter, r *http.Request) {
	const op = "server.handlePutPromotion"

	var promo model.Promotion
	if !h.decodeBody(w, r, &promo, op) {
		return
	}
	promo.ID = r.PathValue("id")
	if errs := validation.ValidatePromotion(promo); errs != nil {
		h.respondInvalid(w, errs, op)
		return
	}

	if err := h.store.UpsertPromotion(r.Context(), promo); err != nil {
		h.respondStoreError(w, err, op)
		return
	}
	h.logAdmin(op, "promotion", promo.ID)
	h.writeJSON(w, http.StatusOK, promo)
}

func (h *handler) handleDeletePromotion(w http.ResponseWriter, r *http.Request) {
	h.deleteWith(w, r, "server.handleDeletePromotion", "promotion", h.store.DeletePromotion)
}

func (h *handler) handlePutRule(w http.ResponseWriter, r *http.Request) {
	const op = "server.handlePutRule"

	var rule model.Rule
	if !h.decodeBody(w, r, &rule, op) {
		return
	}
	rule.ID = r.PathValue("id")
	if errs := validation.ValidateRule(rule); errs != nil {
		h.respondInvalid(w, errs, op)
		return
	}

	if err := h.store.UpsertRule(r.Context(), rule); err != nil {
		h.respondStoreError(w, err, op)
		return
	}
	h.logAdmin(op, "rule", rule.ID)
	h.writeJSON(w, http.StatusOK, rule)
}

func (h *handler) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	h.deleteWith(w, r, "server.handleDeleteRule", "rule", h.store.DeleteRule)
}

func (h *handler) deleteWith(w http.ResponseWriter, r *http.Request, op, kind string, del func(ctx context.Context, id string) error) {
	id := r.PathValue("id")
	if err := del(r.Context(), id); err != nil {
		h.respondStoreError(w, err, op)
		return
	}
	h.logAdmin(op, kind, id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) respondInvalid(w http.ResponseWriter, errs validation.Errors, op string) {
	h.respondErrorBody(w, http.StatusUnprocessableEntity, map[string]interface{}{
		"error":  "invalid request",
		"fields": errs,
	}, op)
}

func (h *handler) respondStoreError(w http.ResponseWriter, err error, op string) {
	if errors.Is(err, store.ErrNotFound) {
		h.respondErrorWithOp(w, http.StatusNotFound, err.Error(), op)
		return
	}
	h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
}

func (h *handler) logAdmin(op, kind, id string) {
	h.logger.Info("admin change applied",
		zap.String("op", op),
		zap.String("kind", kind),
		zap.String("id", id),
	)
}
