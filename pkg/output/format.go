// Package output provides utilities for formatting and displaying comparison results.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/iwvelando/loan-compare/internal/model"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PrettyFormat writes a human-readable rather than machine-readable table.
func PrettyFormat(w io.Writer, result model.Result) {
	p := message.NewPrinter(language.English)

	_, _ = fmt.Fprintf(w, "--- %s offers ---\n", result.Mode)
	if len(result.Offers) == 0 {
		_, _ = fmt.Fprintf(w, "No eligible offers\n")
	} else {
		_, _ = fmt.Fprintf(w, "#  | Bank | Promotion | Rate %% | Years | Amount | Payment | DSR | Status\n")
		_, _ = fmt.Fprintf(w, "__ | ____ | _________ | ______ | _____ | ______ | _______ | ___ | ______\n")
		for i, o := range result.Offers {
			promo := o.PromotionName
			if promo == "" {
				promo = "base rate"
			}
			status := string(o.Status)
			if len(o.Reasons) > 0 {
				status += " (" + strings.Join(o.Reasons, ", ") + ")"
			}
			_, _ = p.Fprintf(w, "%-2d | %s | %s | %.3f | %d | %.2f | %.2f | %.1f%% | %s\n",
				i+1, o.BankName, promo, o.EffectiveRate, o.TenureYears,
				o.Amount, o.MonthlyPayment, o.DSR*100, status)
			if len(o.Phases) > 1 {
				for _, ph := range o.Phases {
					_, _ = p.Fprintf(w, "     months %d-%d at %.3f%%: %.2f\n", ph.FromMonth, ph.ToMonth, ph.Rate, ph.Payment)
				}
			}
		}
	}

	if len(result.Excluded) > 0 {
		_, _ = fmt.Fprintf(w, "\nExcluded:\n")
		for _, ex := range result.Excluded {
			name := ex.BankID
			if ex.PromotionID != "" {
				name += "/" + ex.PromotionID
			}
			_, _ = fmt.Fprintf(w, "  %s: %s\n", name, ex.Reason)
		}
	}
}

// JSONFormat writes v as indented JSON.
func JSONFormat(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
