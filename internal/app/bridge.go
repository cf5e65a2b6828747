package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/portside-app/portside/internal/constants"
	"github.com/portside-app/portside/internal/events"
	"github.com/portside-app/portside/internal/logging"
	"github.com/portside-app/portside/internal/models"
	"github.com/portside-app/portside/internal/notify"
	"github.com/portside-app/portside/internal/transfer"
)

// Refresher re-lists whatever the frontend is looking at after a transfer
// reaches a terminal state. The session state implements it.
type Refresher interface {
	RefreshListings(ctx context.Context) error
}

// EventBridge applies engine events to the transfer registry and triggers
// the cross-cutting side effects of terminal events: history re-fetch,
// desktop notification, and pane re-listing.
type EventBridge struct {
	eventBus     *events.EventBus
	registry     *transfer.Registry
	notifier     *notify.Notifier
	refresher    Refresher
	logger       *logging.Logger
	subscription <-chan events.Event

	// Throttling for high-frequency progress events
	lastProgress     map[string]time.Time
	progressInterval time.Duration

	stopC   chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewEventBridge creates a bridge. refresher may be nil when no panes exist
// (one-shot CLI commands).
func NewEventBridge(eventBus *events.EventBus, registry *transfer.Registry, notifier *notify.Notifier, refresher Refresher, logger *logging.Logger) *EventBridge {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return &EventBridge{
		eventBus:         eventBus,
		registry:         registry,
		notifier:         notifier,
		refresher:        refresher,
		logger:           logger,
		lastProgress:     make(map[string]time.Time),
		progressInterval: constants.ProgressForwardInterval,
		stopC:            make(chan struct{}),
	}
}

// Start begins applying events. Safe against double-start and against
// restarting a stopped bridge.
func (eb *EventBridge) Start() error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.started {
		eb.logger.Warn().Msg("Event bridge already started, ignoring duplicate Start()")
		return nil
	}

	eb.subscription = eb.eventBus.SubscribeAll()
	if eb.subscription == nil {
		return fmt.Errorf("event bridge: failed to subscribe to event bus")
	}

	// Stop closes stopC; a fresh channel lets the bridge restart.
	eb.stopC = make(chan struct{})
	eb.started = true
	eb.wg.Add(1)
	go eb.forwardLoop()

	eb.logger.Debug().Msg("Event bridge started")
	return nil
}

// Stop stops applying events and tears down the subscription.
func (eb *EventBridge) Stop() {
	eb.mu.Lock()
	if !eb.started {
		eb.mu.Unlock()
		return
	}
	eb.started = false
	eb.lastProgress = make(map[string]time.Time)
	sub := eb.subscription
	eb.mu.Unlock()

	close(eb.stopC)
	eb.wg.Wait()
	eb.eventBus.UnsubscribeAll(sub)

	eb.logger.Debug().Msg("Event bridge stopped")
}

func (eb *EventBridge) forwardLoop() {
	defer eb.wg.Done()

	for {
		select {
		case event, ok := <-eb.subscription:
			if !ok {
				return
			}
			eb.apply(event)

		case <-eb.stopC:
			return
		}
	}
}

func (eb *EventBridge) apply(event events.Event) {
	te, ok := event.(*events.TransferEvent)
	if !ok {
		return
	}

	switch te.Type() {
	case events.EventTransferProgress:
		if eb.shouldThrottle(te.TransferID) {
			return
		}
		eb.registry.RecordProgress(models.ActiveTransfer{
			TransferID:       te.TransferID,
			Filename:         te.Filename,
			TotalBytes:       te.TotalBytes,
			TransferredBytes: te.TransferredBytes,
			SpeedBytesPerSec: te.SpeedBytesPerSec,
			ETASeconds:       te.ETASeconds,
			Percentage:       te.Percentage,
		})

	case events.EventTransferCompleted:
		eb.finish(te)
		if eb.notifier != nil {
			eb.notifier.TransferComplete(te.Filename, "")
		}
		eb.refresh()

	case events.EventTransferFailed:
		eb.finish(te)
		if eb.notifier != nil {
			errMsg := ""
			if te.Error != nil {
				errMsg = te.Error.Error()
			}
			eb.notifier.TransferFailed(te.Filename, errMsg)
		}

	case events.EventTransferCancelled:
		eb.finish(te)
		if eb.notifier != nil {
			eb.notifier.TransferCancelled(te.Filename)
		}
	}
}

// finish handles the parts common to all terminal events: drop the active
// entry, forget the throttle timestamp, and re-fetch history so the new row
// is visible. Removal of an unknown id is a no-op by registry contract.
func (eb *EventBridge) finish(te *events.TransferEvent) {
	eb.registry.RemoveActive(te.TransferID)

	eb.mu.Lock()
	delete(eb.lastProgress, te.TransferID)
	eb.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := eb.registry.FetchHistory(ctx, nil); err != nil {
		eb.logger.Warn().Err(err).Str("transfer_id", te.TransferID).Msg("Failed to refresh history after transfer")
	}
}

func (eb *EventBridge) refresh() {
	if eb.refresher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := eb.refresher.RefreshListings(ctx); err != nil {
		eb.logger.Debug().Err(err).Msg("Listing refresh after transfer failed")
	}
}

// shouldThrottle returns true when a progress event for the given transfer
// arrived within the throttle interval. Terminal events bypass this.
func (eb *EventBridge) shouldThrottle(transferID string) bool {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	now := time.Now()
	if last, ok := eb.lastProgress[transferID]; ok {
		if now.Sub(last) < eb.progressInterval {
			return true
		}
	}
	eb.lastProgress[transferID] = now
	return false
}
