package agreement

import (
	"github.com/agreement-center/agreement-backend/interfaces"
)

// InputUpdate assigns a new value to the input field at Index.
type InputUpdate struct {
	Index int `json:"index"`
	Value any `json:"value"`
}

// ApplyOwnedUpdates applies a batch of field updates on behalf of actor,
// returning an updated copy of the input list. Updates are validated in
// order: a missing index fails NotFound and a field owned by another
// identity fails Forbidden. The first failure aborts the whole batch, so a
// mixed batch never results in partial mutation.
func ApplyOwnedUpdates(inputs Inputs, updates []InputUpdate, actor interfaces.PartyIdentity) (Inputs, error) {
	next := inputs.Clone()

	for _, update := range updates {
		if update.Index < 0 || update.Index >= len(next) {
			return nil, interfaces.NotFoundError("no input exists at index %d", update.Index)
		}

		if next[update.Index].OwnerIdentity != actor {
			return nil, interfaces.ForbiddenError("party %s doesn't have permission to change input %d", actor, update.Index)
		}

		next[update.Index].Value = update.Value
	}

	return next, nil
}
