// File: internal/alert/alert.go
package alert

import (
	"time"

	"github.com/smartdevs17/error-tracker/internal/models"
)

// Alert is one fired alert instance handed to the dispatcher.
type Alert struct {
	Rule      *models.AlertRule
	Condition models.AlertCondition
	Summary   string
	Event     *models.ErrorEvent // set for per-event conditions, nil for windowed ones
	Group     *models.ErrorGroup
	Count     int
	Rate      float64
	FiredAt   time.Time
}

// Dispatcher delivers fired alerts. The notification dispatcher
// implements this; delivery failures never propagate back into the
// engine's cooldown bookkeeping.
type Dispatcher interface {
	Dispatch(alert *Alert)
}
