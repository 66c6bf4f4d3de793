package entities

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/KretovDmitry/joint-account-service/internal/application/errs"
)

const (
	// MaxOwners is the maximum number of owners of one account, creator included.
	MaxOwners = 4
	// MaxOwnedAccounts is the maximum number of accounts one party may co-own.
	MaxOwnedAccounts = 3
	// MaxApprovals is the maximum size of an approval set: every owner but the requester.
	MaxApprovals = MaxOwners - 1
)

// PartyID identifies an owner. The REST layer uses the user's login.
type PartyID string

// NewPartyID trims the raw identifier and rejects empty values.
func NewPartyID(raw string) (PartyID, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", fmt.Errorf("%w: empty party identifier", errs.ErrInvalidRequest)
	}
	return PartyID(id), nil
}

// Owners is the ordered owner set of an account, creator first.
// The capacity is fixed so the bound cannot be exceeded by construction.
type Owners struct {
	ids [MaxOwners]PartyID
	n   int
}

// NewOwners builds the owner set [creator] + others.
//
// Checks run in this order and the first violation wins:
// too many owners, self reference, duplicate owner.
func NewOwners(creator PartyID, others ...PartyID) (Owners, error) {
	var o Owners

	if len(others) >= MaxOwners {
		return o, errs.ErrTooManyOwners
	}
	if creator == "" {
		return o, fmt.Errorf("%w: empty creator", errs.ErrInvalidRequest)
	}

	for _, p := range others {
		if p == "" {
			return o, fmt.Errorf("%w: empty owner", errs.ErrInvalidRequest)
		}
		if p == creator {
			return o, errs.ErrSelfReferenceNotAllowed
		}
	}

	for i := range others {
		for j := i + 1; j < len(others); j++ {
			if others[i] == others[j] {
				return o, fmt.Errorf("%w: %s", errs.ErrDuplicateOwner, others[i])
			}
		}
	}

	o.ids[0] = creator
	copy(o.ids[1:], others)
	o.n = len(others) + 1

	return o, nil
}

// Len returns the number of owners.
func (o Owners) Len() int { return o.n }

// Creator returns the party that created the account.
func (o Owners) Creator() PartyID { return o.ids[0] }

// Contains reports whether p is one of the owners.
func (o Owners) Contains(p PartyID) bool {
	for i := 0; i < o.n; i++ {
		if o.ids[i] == p {
			return true
		}
	}
	return false
}

// Slice returns a copy of the owners in order.
func (o Owners) Slice() []PartyID {
	out := make([]PartyID, o.n)
	copy(out, o.ids[:o.n])
	return out
}

// MarshalJSON encodes the owners as a list in creation order.
func (o Owners) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Slice())
}

// UnmarshalJSON accepts a list whose first element is the creator.
// The list must satisfy the same rules as NewOwners.
func (o *Owners) UnmarshalJSON(data []byte) error {
	var ids []PartyID
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	if len(ids) == 0 {
		return errors.New("owners: empty list")
	}
	owners, err := NewOwners(ids[0], ids[1:]...)
	if err != nil {
		return err
	}
	*o = owners
	return nil
}

// Approvals is the set of co-owners that approved a withdrawal request.
type Approvals struct {
	ids [MaxApprovals]PartyID
	n   int
}

// NewApprovals restores an approval set from storage.
func NewApprovals(ids ...PartyID) (Approvals, error) {
	var a Approvals
	for _, p := range ids {
		if err := a.Add(p); err != nil {
			return Approvals{}, err
		}
	}
	return a, nil
}

// Add records p once.
func (a *Approvals) Add(p PartyID) error {
	if a.Contains(p) {
		return errs.ErrAlreadyApproved
	}
	if a.n == MaxApprovals {
		return errors.New("approvals: capacity exceeded")
	}
	a.ids[a.n] = p
	a.n++
	return nil
}

// Len returns the number of approvals.
func (a Approvals) Len() int { return a.n }

// Contains reports whether p has already approved.
func (a Approvals) Contains(p PartyID) bool {
	for i := 0; i < a.n; i++ {
		if a.ids[i] == p {
			return true
		}
	}
	return false
}

// Slice returns a copy of the approvers in approval order.
func (a Approvals) Slice() []PartyID {
	out := make([]PartyID, a.n)
	copy(out, a.ids[:a.n])
	return out
}

// MarshalJSON encodes the approvers as a list in approval order.
func (a Approvals) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Slice())
}
