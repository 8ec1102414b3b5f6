// File: internal/notification/dispatcher.go
package notification

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/error-tracker/internal/alert"
	"github.com/smartdevs17/error-tracker/internal/metrics"
	"github.com/smartdevs17/error-tracker/internal/models"
	"github.com/smartdevs17/error-tracker/internal/storage"
	"github.com/smartdevs17/error-tracker/pkg/utils"
)

// Config holds notification dispatcher configuration
type Config struct {
	Enabled       bool
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	Email         EmailConfig
}

// Stats tracks dispatcher statistics
type Stats struct {
	TotalSent        int64      `json:"total_sent"`
	TotalFailed      int64      `json:"total_failed"`
	LastDispatchedAt *time.Time `json:"last_dispatched_at,omitempty"`
}

// Dispatcher fans one fired alert out to each of the rule's channels.
// Channels are independent: each send runs in its own goroutine and one
// channel failing never blocks or cancels the others. Every attempt,
// successful or not, is recorded as a notification log row.
type Dispatcher struct {
	storage storage.Storage
	metrics *metrics.Manager
	logger  *logrus.Logger
	config  Config
	senders map[models.NotificationChannel]Sender

	mu    sync.Mutex
	stats Stats
	wg    sync.WaitGroup
}

// NewDispatcher creates a new notification dispatcher
func NewDispatcher(store storage.Storage, metricsManager *metrics.Manager, config Config) *Dispatcher {
	client := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     30 * time.Second,
		},
	}

	return &Dispatcher{
		storage: store,
		metrics: metricsManager,
		logger:  utils.GetLogger(),
		config:  config,
		senders: map[models.NotificationChannel]Sender{
			models.ChannelSlack:   NewSlackSender(client),
			models.ChannelDiscord: NewDiscordSender(client),
			models.ChannelWebhook: NewWebhookSender(client),
			models.ChannelEmail:   NewEmailSender(config.Email),
		},
	}
}

// GetStats returns a snapshot of dispatcher statistics
func (d *Dispatcher) GetStats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Stop waits for in-flight sends to finish
func (d *Dispatcher) Stop() error {
	d.wg.Wait()
	d.logger.Info("Notification dispatcher stopped")
	return nil
}

// Dispatch delivers the alert on every configured channel. Implements
// alert.Dispatcher.
func (d *Dispatcher) Dispatch(a *alert.Alert) {
	if !d.config.Enabled {
		return
	}

	now := time.Now().UTC()
	d.mu.Lock()
	d.stats.LastDispatchedAt = &now
	d.mu.Unlock()

	for _, channel := range a.Rule.NotificationChannels {
		d.wg.Add(1)
		go func(channel models.NotificationChannel) {
			defer d.wg.Done()
			d.sendOne(channel, a)
		}(channel)
	}
}

// sendOne delivers the alert on a single channel and records the attempt
func (d *Dispatcher) sendOne(channel models.NotificationChannel, a *alert.Alert) {
	start := time.Now()

	recipient := ""
	if cfg, ok := a.Rule.NotificationConfig[channel]; ok {
		recipient = cfg.Recipient
	}

	var err error
	sender, ok := d.senders[channel]
	switch {
	case recipient == "":
		err = utils.NewAppError(utils.ErrCodeConfiguration, "No recipient configured for channel", string(channel))
	case !ok:
		err = utils.NewAppError(utils.ErrCodeDispatch, "Unknown notification channel", string(channel))
	default:
		err = d.sendWithRetry(sender, recipient, a)
	}

	duration := time.Since(start)
	d.recordResult(channel, recipient, a, err, duration)
}

// sendWithRetry retries transient delivery failures with linear backoff
func (d *Dispatcher) sendWithRetry(sender Sender, recipient string, a *alert.Alert) error {
	attempts := d.config.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			time.Sleep(d.config.RetryDelay * time.Duration(attempt-1))
		}

		ctx, cancel := context.WithTimeout(context.Background(), d.config.Timeout)
		lastErr = sender.Send(ctx, recipient, a)
		cancel()

		if lastErr == nil {
			return nil
		}
	}
	return lastErr
}

// recordResult persists the notification log row and updates metrics
func (d *Dispatcher) recordResult(channel models.NotificationChannel, recipient string, a *alert.Alert, sendErr error, duration time.Duration) {
	success := sendErr == nil

	d.mu.Lock()
	if success {
		d.stats.TotalSent++
	} else {
		d.stats.TotalFailed++
	}
	d.mu.Unlock()

	if d.metrics != nil {
		pm := d.metrics.GetPrometheusMetrics()
		if success {
			pm.RecordNotificationSent(string(channel), duration)
		} else {
			pm.RecordNotificationFailure(string(channel))
		}
	}

	fields := logrus.Fields{
		"rule_id":   a.Rule.ID,
		"channel":   channel,
		"recipient": recipient,
	}
	if success {
		d.logger.WithFields(fields).Info("Notification sent")
	} else {
		fields["error"] = sendErr.Error()
		d.logger.WithFields(fields).Error("Notification failed")
	}

	log := &models.NotificationLog{
		ID:          utils.GenerateID(),
		AlertRuleID: a.Rule.ID,
		Channel:     channel,
		Recipient:   recipient,
		Subject:     buildSubject(a),
		Message:     buildBody(a),
		Sent:        success,
		CreatedAt:   time.Now().UTC(),
	}
	if sendErr != nil {
		log.Error = sendErr.Error()
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.config.Timeout)
	defer cancel()
	if err := d.storage.SaveNotificationLog(ctx, log); err != nil {
		d.logger.WithFields(logrus.Fields{
			"rule_id": a.Rule.ID,
			"channel": channel,
			"error":   err.Error(),
		}).Error("Failed to save notification log")
	}
}
