package board

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/haasonsaas/boxgrid/pkg/models"
)

// IDGenerator produces a box id that is not a key of existing.
type IDGenerator interface {
	NewID(existing models.BoxSet) string
}

// UUIDGenerator issues random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(existing models.BoxSet) string {
	for {
		id := uuid.NewString()
		if _, taken := existing[id]; !taken {
			return id
		}
	}
}

// SequenceGenerator issues the largest numeric id in use plus one. Non-numeric
// ids are ignored.
type SequenceGenerator struct{}

func (SequenceGenerator) NewID(existing models.BoxSet) string {
	var highest int64
	for id := range existing {
		n, err := strconv.ParseInt(id, 10, 64)
		if err == nil && n > highest {
			highest = n
		}
	}
	next := highest + 1
	for {
		id := strconv.FormatInt(next, 10)
		if _, taken := existing[id]; !taken {
			return id
		}
		next++
	}
}

// NewIDGenerator maps a configured strategy name to a generator. An empty
// strategy selects uuid.
func NewIDGenerator(strategy string) (IDGenerator, error) {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case "", "uuid":
		return UUIDGenerator{}, nil
	case "sequence":
		return SequenceGenerator{}, nil
	default:
		return nil, fmt.Errorf("unknown id strategy %q", strategy)
	}
}
