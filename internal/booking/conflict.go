package booking

// Slot is an existing reservation window as seen by the conflict engine. The
// engine only needs identity, the occupied window, and lifecycle status; the
// rest of the reservation record is irrelevant to overlap decisions.
type Slot struct {
	ID     string
	Window Window
	Status Status
}

// Blocking reports whether the slot participates in conflict checks for new
// requests. Rejected slots never block; pending and approved both do.
func (s Slot) Blocking() bool {
	return s.Status != StatusRejected
}

// FindConflicts returns the slots among existing that block the candidate
// window under the half-open overlap rule. A slot whose ID equals excludeID is
// skipped, which lets callers re-check a stored reservation against its peers
// without it colliding with itself. Pass an empty excludeID to consider every
// slot.
func FindConflicts(existing []Slot, candidate Window, excludeID string) []Slot {
	var conflicts []Slot
	for _, slot := range existing {
		if excludeID != "" && slot.ID == excludeID {
			continue
		}
		if !slot.Blocking() {
			continue
		}
		if slot.Window.Overlaps(candidate) {
			conflicts = append(conflicts, slot)
		}
	}
	return conflicts
}

// HasConflict reports whether any non-rejected slot overlaps the candidate
// window.
func HasConflict(existing []Slot, candidate Window, excludeID string) bool {
	for _, slot := range existing {
		if excludeID != "" && slot.ID == excludeID {
			continue
		}
		if slot.Blocking() && slot.Window.Overlaps(candidate) {
			return true
		}
	}
	return false
}

// BlocksAvailability reports whether an approved slot overlaps the queried
// window. Pending requests do not reserve capacity: several of them may
// legally target the same slot until one is approved.
func BlocksAvailability(existing []Slot, window Window) bool {
	for _, slot := range existing {
		if slot.Status != StatusApproved {
			continue
		}
		if slot.Window.Overlaps(window) {
			return true
		}
	}
	return false
}

// DisplacedByApproval returns the pending slots that must be auto-rejected
// when the reservation identified by approvedID is approved over the given
// window. Only pending peers overlapping the approved window are displaced;
// everything else keeps its state.
func DisplacedByApproval(existing []Slot, approved Window, approvedID string) []Slot {
	var displaced []Slot
	for _, slot := range existing {
		if slot.ID == approvedID {
			continue
		}
		if slot.Status != StatusPending {
			continue
		}
		if slot.Window.Overlaps(approved) {
			displaced = append(displaced, slot)
		}
	}
	return displaced
}
