package fefo

import (
	"fmt"

	"github.com/inkops/warelog/internal/types"
)

// Warning describes how close a batch is to expiring. Nil means far
// enough out that nothing needs saying.
type Warning struct {
	Level           types.Severity `json:"level"`
	Message         string         `json:"message"`
	DaysUntilExpiry int            `json:"days_until_expiry"`
}

// ExpirationWarning grades an expiration date against today. Returns nil
// for 180 days out or more.
func ExpirationWarning(expiration, today types.Date) *Warning {
	days := today.DaysUntil(expiration)
	switch {
	case days >= 180:
		return nil
	case days < 0:
		return &Warning{
			Level:           types.SeverityCritical,
			Message:         fmt.Sprintf("expired %d days ago", -days),
			DaysUntilExpiry: days,
		}
	case days < 30:
		return &Warning{
			Level:           types.SeverityCritical,
			Message:         fmt.Sprintf("expires in %d days", days),
			DaysUntilExpiry: days,
		}
	case days < 60:
		return &Warning{
			Level:           types.SeverityWarning,
			Message:         fmt.Sprintf("expires in %d days", days),
			DaysUntilExpiry: days,
		}
	default:
		return &Warning{
			Level:           types.SeverityInfo,
			Message:         fmt.Sprintf("expires in %d days", days),
			DaysUntilExpiry: days,
		}
	}
}
