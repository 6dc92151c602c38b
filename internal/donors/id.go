package donors

import (
	"strings"

	"github.com/google/uuid"
)

const (
	donorIDPrefix = "donor_"
	opNewDonorID  = "donors.id"
)

// IDProvider issues donor identifiers.
type IDProvider interface {
	NewID() (string, error)
}

type donorIDProvider struct {
	newUUID func() (uuid.UUID, error)
}

// NewUUIDProvider issues donor_ prefixed UUIDv7 identifiers, so primary keys sort by
// creation time in both stores.
func NewUUIDProvider() IDProvider {
	return &donorIDProvider{newUUID: uuid.NewV7}
}

func (p *donorIDProvider) NewID() (string, error) {
	value, err := p.newUUID()
	if err != nil {
		return "", newServiceError(opNewDonorID, "uuid_generation_failed", err)
	}
	return donorIDPrefix + value.String(), nil
}

// IsDonorID reports whether id carries the donor prefix followed by a valid UUID.
func IsDonorID(id string) bool {
	rest, found := strings.CutPrefix(id, donorIDPrefix)
	if !found {
		return false
	}
	_, err := uuid.Parse(rest)
	return err == nil
}
