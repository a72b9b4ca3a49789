package ledger

import (
	"slices"
	"strings"

	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Chart is an arena of accounts indexed by id. Parents are referenced by id
// and the child lists are derived, never stored on the accounts themselves.
type Chart struct {
	accounts map[uuid.UUID]*Account
	byNumber map[string]uuid.UUID
	children map[uuid.UUID][]uuid.UUID
}

// NewChart builds the arena from a flat list of accounts
func NewChart(accounts []*Account) *Chart {
	c := &Chart{
		accounts: make(map[uuid.UUID]*Account, len(accounts)),
		byNumber: make(map[string]uuid.UUID, len(accounts)),
		children: make(map[uuid.UUID][]uuid.UUID),
	}
	for _, a := range accounts {
		c.insert(a)
	}
	return c
}

func (c *Chart) insert(a *Account) {
	c.accounts[a.ID] = a
	c.byNumber[a.Number] = a.ID
	if a.ParentID != nil {
		c.children[*a.ParentID] = append(c.children[*a.ParentID], a.ID)
	}
}

// Len returns the number of accounts in the chart
func (c *Chart) Len() int {
	return len(c.accounts)
}

// Get returns the account with the given id
func (c *Chart) Get(id uuid.UUID) (*Account, bool) {
	a, ok := c.accounts[id]
	return a, ok
}

// GetByNumber returns the account with the given human number
func (c *Chart) GetByNumber(number string) (*Account, bool) {
	id, ok := c.byNumber[number]
	if !ok {
		return nil, false
	}
	return c.accounts[id], true
}

// Add validates a new account against the chart and inserts it. It rejects
// duplicate numbers, unknown parents, parents of another type and any
// parent chain that leads back to the account.
func (c *Chart) Add(a *Account) error {
	if _, exists := c.byNumber[a.Number]; exists {
		return shared.NewDomainError(shared.CodeAlreadyExists, "account number "+a.Number+" already exists").
			WithDetail("number", a.Number)
	}
	if a.ParentID != nil {
		if err := c.validateParent(a, *a.ParentID); err != nil {
			return err
		}
	}
	c.insert(a)
	return nil
}

// Move re-attaches an account under a new parent, or makes it a root when
// parentID is nil.
func (c *Chart) Move(id uuid.UUID, parentID *uuid.UUID) error {
	a, ok := c.accounts[id]
	if !ok {
		return shared.ErrNotFound.WithDetail("account_id", id.String())
	}
	if parentID != nil {
		if err := c.validateParent(a, *parentID); err != nil {
			return err
		}
	}
	if a.ParentID != nil {
		c.children[*a.ParentID] = slices.DeleteFunc(c.children[*a.ParentID], func(child uuid.UUID) bool {
			return child == id
		})
	}
	a.ParentID = parentID
	if parentID != nil {
		c.children[*parentID] = append(c.children[*parentID], id)
	}
	a.Touch()
	a.IncrementVersion()
	return nil
}

func (c *Chart) validateParent(a *Account, parentID uuid.UUID) error {
	parent, ok := c.accounts[parentID]
	if !ok {
		return shared.NewValidationError("parent_id", "parent account "+parentID.String()+" does not exist")
	}
	if parent.Type != a.Type {
		return shared.NewValidationError("parent_id",
			"parent "+parent.Number+" is "+string(parent.Type)+", child is "+string(a.Type))
	}
	// Walk the ancestors of the proposed parent; meeting the account itself
	// means the new edge would close a loop. The step bound also stops on
	// a chart that is already corrupted.
	cursor := parent
	for steps := 0; cursor != nil; steps++ {
		if cursor.ID == a.ID {
			return shared.NewValidationError("parent_id", "account "+a.Number+" cannot be its own ancestor")
		}
		if steps > len(c.accounts) || cursor.ParentID == nil {
			break
		}
		cursor = c.accounts[*cursor.ParentID]
	}
	return nil
}

// Children returns the direct children of an account ordered by number
func (c *Chart) Children(id uuid.UUID) []*Account {
	ids := c.children[id]
	out := make([]*Account, 0, len(ids))
	for _, childID := range ids {
		if child, ok := c.accounts[childID]; ok {
			out = append(out, child)
		}
	}
	slices.SortFunc(out, func(x, y *Account) int { return strings.Compare(x.Number, y.Number) })
	return out
}

// Roots returns the accounts without a parent, ordered by number
func (c *Chart) Roots() []*Account {
	out := make([]*Account, 0)
	for _, a := range c.accounts {
		if a.ParentID == nil {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(x, y *Account) int { return strings.Compare(x.Number, y.Number) })
	return out
}

// Path returns the chain from the root down to the account
func (c *Chart) Path(id uuid.UUID) ([]*Account, error) {
	a, ok := c.accounts[id]
	if !ok {
		return nil, shared.ErrNotFound.WithDetail("account_id", id.String())
	}
	path := []*Account{a}
	for a.ParentID != nil {
		if len(path) > len(c.accounts) {
			return nil, shared.NewDomainError(shared.CodeInvalidState, "cycle detected in chart of accounts").
				WithDetail("account_id", id.String())
		}
		parent, ok := c.accounts[*a.ParentID]
		if !ok {
			return nil, shared.NewDomainError(shared.CodeInvalidState, "dangling parent reference").
				WithDetail("parent_id", a.ParentID.String())
		}
		path = append(path, parent)
		a = parent
	}
	slices.Reverse(path)
	return path, nil
}

// CheckDeactivate verifies the account has a zero balance and no active children
func (c *Chart) CheckDeactivate(id uuid.UUID) error {
	a, ok := c.accounts[id]
	if !ok {
		return shared.ErrNotFound.WithDetail("account_id", id.String())
	}
	for _, child := range c.Children(id) {
		if child.IsActive {
			return &InvalidAccountStateError{
				AccountID:     a.ID,
				AccountNumber: a.Number,
				Reason:        "account has active child " + child.Number,
			}
		}
	}
	if !a.Balance.IsZero() {
		return &InvalidAccountStateError{
			AccountID:     a.ID,
			AccountNumber: a.Number,
			Reason:        "account balance is not zero",
			Balance:       &a.Balance,
		}
	}
	return nil
}

// Accounts returns every account ordered by number
func (c *Chart) Accounts() []*Account {
	out := make([]*Account, 0, len(c.accounts))
	for _, a := range c.accounts {
		out = append(out, a)
	}
	slices.SortFunc(out, func(x, y *Account) int { return strings.Compare(x.Number, y.Number) })
	return out
}
