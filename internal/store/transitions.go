package store

import "clinicq/queue-service/internal/models"

var transitionMap = map[string][]string{
	"confirm":   {models.StatusPending},
	"call_next": {models.StatusPending, models.StatusConfirmed},
	"complete":  {models.StatusInProgress},
	"skip":      {models.StatusPending, models.StatusConfirmed, models.StatusInProgress},
	"cancel":    {models.StatusPending, models.StatusConfirmed},
}

// AllowedStatuses returns the statuses an action may be applied from.
// The returned slice is shared; callers must not modify it.
func AllowedStatuses(action string) []string {
	return transitionMap[action]
}

func ValidTransition(action, fromStatus string) bool {
	for _, status := range AllowedStatuses(action) {
		if status == fromStatus {
			return true
		}
	}
	return false
}
