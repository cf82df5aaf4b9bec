package store

// View names a derived computation that a write can dirty.
type View string

const (
	ViewBalances    View = "balances"
	ViewProjections View = "projections"
	ViewAlerts      View = "alerts"
)

// Invalidation is returned by write operations to name the derived views
// the write dirtied, so callers recompute only those instead of refetching
// everything.
type Invalidation struct {
	Views []View
}

// Invalidates builds an Invalidation for the given views.
func Invalidates(views ...View) Invalidation {
	return Invalidation{Views: views}
}

// Contains reports whether v is among the dirtied views.
func (i Invalidation) Contains(v View) bool {
	for _, have := range i.Views {
		if have == v {
			return true
		}
	}
	return false
}

// Merge combines two invalidations without duplicating views.
func (i Invalidation) Merge(other Invalidation) Invalidation {
	out := i
	for _, v := range other.Views {
		if !out.Contains(v) {
			out.Views = append(out.Views, v)
		}
	}
	return out
}
