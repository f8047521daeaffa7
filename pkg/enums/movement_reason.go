package enums

// MovementReason classifies why a stock quantity changed.
type MovementReason string

const (
	MovementPurchase   MovementReason = "purchase"
	MovementSale       MovementReason = "sale"
	MovementAdjustment MovementReason = "adjustment"
	MovementReturn     MovementReason = "return"
	MovementDamage     MovementReason = "damage"
)

// Valid reports whether the reason is one of the known movement reasons.
func (r MovementReason) Valid() bool {
	switch r {
	case MovementPurchase, MovementSale, MovementAdjustment, MovementReturn, MovementDamage:
		return true
	}
	return false
}
