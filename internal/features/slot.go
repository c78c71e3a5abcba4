package features

import "sync/atomic"

// slotTable is the part of a vtable a slot hook needs.
type slotTable interface {
	Slot(i int) uintptr
	Hook(i int, replacement uintptr) (uintptr, error)
}

// hookSlot points slot i of table at the replacement made by wrap. original
// holds the function the slot pointed at: the value read up front, then the
// one the exchange returned.
func hookSlot(table slotTable, i int, wrap func(original *atomic.Uintptr) uintptr) error {
	original := new(atomic.Uintptr)
	original.Store(table.Slot(i))
	prev, err := table.Hook(i, wrap(original))
	if err != nil {
		return err
	}
	original.Store(prev)
	return nil
}
