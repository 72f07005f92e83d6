package closing

// Reconciliation is the pure outcome of reconciling one product row against
// what the terminals recorded that day.
type Reconciliation struct {
	// EffectiveTotalSold clamps the operator's count upward to at least the
	// terminal-recorded quantity; recorded history never shrinks.
	EffectiveTotalSold int64

	// Unregistered is how many units were sold past the terminals. A
	// synthesized sale of this quantity is created when it is positive.
	Unregistered int64

	// QuantityReturned is what goes back to the warehouse; never negative,
	// even when the operator oversold relative to what was carried.
	QuantityReturned int64
}

// Reconcile applies the closing arithmetic to one row. posRecorded is the sum
// of non-voided sale quantities the terminals registered for the product that
// day.
func Reconcile(carried, reported, posRecorded int64) Reconciliation {
	effective := reported
	if posRecorded > effective {
		effective = posRecorded
	}
	returned := carried - effective
	if returned < 0 {
		returned = 0
	}
	return Reconciliation{
		EffectiveTotalSold: effective,
		Unregistered:       effective - posRecorded,
		QuantityReturned:   returned,
	}
}
