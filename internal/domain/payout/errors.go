package payout

import (
	"fmt"
	"slices"
	"strings"

	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// DoubleClaimError is returned when a commission selected for a payout is
// already held by another payout that was not cancelled.
type DoubleClaimError struct {
	PartnerID uuid.UUID
	// Claims maps each contested commission to the payout holding it
	Claims map[uuid.UUID]uuid.UUID
}

func (e *DoubleClaimError) commissionIDs() []string {
	ids := make([]string, 0, len(e.Claims))
	for id := range e.Claims {
		ids = append(ids, id.String())
	}
	slices.Sort(ids)
	return ids
}

func (e *DoubleClaimError) Error() string {
	return fmt.Sprintf("%d commission(s) of partner %s already belong to another payout: %s",
		len(e.Claims), e.PartnerID, strings.Join(e.commissionIDs(), ", "))
}

// Unwrap exposes the error as a DomainError listing the contested commissions
func (e *DoubleClaimError) Unwrap() error {
	claims := make(map[string]string, len(e.Claims))
	for c, p := range e.Claims {
		claims[c.String()] = p.String()
	}
	return shared.NewDomainError(shared.CodeDoubleClaim, e.Error()).
		WithDetail("partner_id", e.PartnerID.String()).
		WithDetail("claims", claims)
}
