package enums

// SettlementStatus tracks whether a shop has been paid out for a commission row.
type SettlementStatus string

const (
	SettlementStatusPending SettlementStatus = "PENDING"
	SettlementStatusSettled SettlementStatus = "SETTLED"
	// SettlementStatusVoid marks the commission of a paid order that was later
	// cancelled. It is never settled and the payment is refunded instead.
	SettlementStatusVoid SettlementStatus = "VOID"
)

func (s SettlementStatus) IsValid() bool {
	switch s {
	case SettlementStatusPending, SettlementStatusSettled, SettlementStatusVoid:
		return true
	}
	return false
}
