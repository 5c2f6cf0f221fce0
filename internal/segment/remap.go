package segment

import "github.com/giannimassi/ehrtok/pkg/model"

// Remapper assigns dense indices to raw user identifiers in first-seen order.
// Use one Remapper per shift.
type Remapper struct {
	index map[string]int
}

// NewRemapper returns an empty Remapper.
func NewRemapper() *Remapper {
	return &Remapper{index: make(map[string]int)}
}

// Index returns the dense index for user, assigning the next free one on first sight.
func (r *Remapper) Index(user string) int {
	if idx, ok := r.index[user]; ok {
		return idx
	}
	idx := len(r.index)
	r.index[user] = idx
	return idx
}

// Len returns the number of distinct users seen.
func (r *Remapper) Len() int {
	return len(r.index)
}

// Remap returns a copy of shift with UserIndex assigned per first appearance
// and the raw User cleared.
func Remap(shift []model.DeltaEvent) []model.DeltaEvent {
	r := NewRemapper()
	out := make([]model.DeltaEvent, len(shift))
	for i, e := range shift {
		e.UserIndex = r.Index(e.User)
		e.User = ""
		out[i] = e
	}
	return out
}
