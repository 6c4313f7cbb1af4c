package processor

import (
	"cashflow_stp/internal/domain"
	"cmp"
	"io"
	"slices"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// WriteNettingReport writes one line per netting set, sorted by key, with
// amounts grouped the English way.
func WriteNettingReport(w io.Writer, sets map[domain.NettingKey]*NettingSet) error {
	keys := make([]domain.NettingKey, 0, len(sets))
	for key := range sets {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, func(a, b domain.NettingKey) int {
		return cmp.Or(
			cmp.Compare(a.CounterParty, b.CounterParty),
			cmp.Compare(a.Currency, b.Currency),
			cmp.Compare(a.SettlementDate, b.SettlementDate),
		)
	})

	p := message.NewPrinter(language.English)
	if _, err := p.Fprintf(w, "COUNTERPARTY\tCURRENCY\tSETTLEMENT\tCASHFLOWS\tTOTAL\n"); err != nil {
		return err
	}
	for _, key := range keys {
		set := sets[key]
		if _, err := p.Fprintf(w, "%s\t%s\t%s\t%d\t%.2f\n",
			key.CounterParty, key.Currency, key.SettlementDate, len(set.Cashflows), set.Total()); err != nil {
			return err
		}
	}
	return nil
}
