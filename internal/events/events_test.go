package events

import (
	"errors"
	"testing"
	"time"
)

func TestEventBus_PublishSubscribe(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	// Subscribe to progress events
	ch := bus.Subscribe(EventTransferProgress)

	// Publish a progress event
	testEvent := &TransferEvent{
		BaseEvent: BaseEvent{
			EventType: EventTransferProgress,
			Time:      time.Now(),
		},
		TransferID:       "t-1",
		Filename:         "report.pdf",
		TotalBytes:       2048,
		TransferredBytes: 1024,
		Percentage:       50.0,
	}

	bus.Publish(testEvent)

	// Receive the event
	select {
	case received := <-ch:
		te, ok := received.(*TransferEvent)
		if !ok {
			t.Fatal("Expected TransferEvent")
		}
		if te.TransferID != "t-1" {
			t.Errorf("Expected transfer id 't-1', got '%s'", te.TransferID)
		}
		if te.Percentage != 50.0 {
			t.Errorf("Expected percentage 50.0, got %f", te.Percentage)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for event")
	}
}

func TestEventBus_MultipleSubscribers(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	// Create multiple subscribers
	ch1 := bus.Subscribe(EventLog)
	ch2 := bus.Subscribe(EventLog)

	// Publish a log event
	testEvent := &LogEvent{
		BaseEvent: BaseEvent{
			EventType: EventLog,
			Time:      time.Now(),
		},
		Level:   InfoLevel,
		Message: "Test log",
	}

	bus.Publish(testEvent)

	// Both subscribers should receive it
	received1 := false
	received2 := false

	select {
	case <-ch1:
		received1 = true
	case <-time.After(100 * time.Millisecond):
	}

	select {
	case <-ch2:
		received2 = true
	case <-time.After(100 * time.Millisecond):
	}

	if !received1 || !received2 {
		t.Error("Not all subscribers received the event")
	}
}

func TestEventBus_DifferentEventTypes(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	// Subscribe to different event types
	progressCh := bus.Subscribe(EventTransferProgress)
	logCh := bus.Subscribe(EventLog)

	// Publish progress event
	bus.Publish(&TransferEvent{
		BaseEvent:  BaseEvent{EventType: EventTransferProgress, Time: time.Now()},
		TransferID: "t-2",
	})

	// Only progress subscriber should receive it
	select {
	case <-progressCh:
		// Expected
	case <-time.After(100 * time.Millisecond):
		t.Error("Progress subscriber didn't receive event")
	}

	// Log subscriber should not receive it
	select {
	case <-logCh:
		t.Error("Log subscriber received wrong event type")
	case <-time.After(50 * time.Millisecond):
		// Expected - timeout means no event
	}
}

func TestEventBus_SubscribeAll(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	// Subscribe to all events
	allCh := bus.SubscribeAll()

	// Publish different event types
	bus.Publish(&TransferEvent{
		BaseEvent: BaseEvent{EventType: EventTransferCompleted, Time: time.Now()},
	})

	bus.Publish(&LogEvent{
		BaseEvent: BaseEvent{EventType: EventLog, Time: time.Now()},
	})

	// Should receive both
	count := 0
	for i := 0; i < 2; i++ {
		select {
		case <-allCh:
			count++
		case <-time.After(100 * time.Millisecond):
			break
		}
	}

	if count != 2 {
		t.Errorf("Expected to receive 2 events, got %d", count)
	}
}

func TestEventBus_NonBlocking(t *testing.T) {
	bus := NewEventBus(2) // Small buffer
	defer bus.Close()

	ch := bus.Subscribe(EventTransferProgress)

	// Fill the buffer
	for i := 0; i < 10; i++ {
		bus.Publish(&TransferEvent{
			BaseEvent:  BaseEvent{EventType: EventTransferProgress, Time: time.Now()},
			TransferID: "t-3",
		})
	}

	// Should not block - excess events are dropped
	if bus.GetDroppedEventCount() == 0 {
		t.Error("Expected dropped events with a full buffer")
	}

	// Drain some events
	count := 0
	for {
		select {
		case <-ch:
			count++
		case <-time.After(10 * time.Millisecond):
			goto done
		}
	}
done:

	if count == 0 {
		t.Error("Should have received at least some events")
	}
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch := bus.Subscribe(EventTransferCompleted)
	bus.Unsubscribe(EventTransferCompleted, ch)

	bus.Publish(&TransferEvent{
		BaseEvent: BaseEvent{EventType: EventTransferCompleted, Time: time.Now()},
	})

	select {
	case <-ch:
		t.Error("Unsubscribed channel should not receive events")
	case <-time.After(50 * time.Millisecond):
		// Expected
	}
}

func TestEventBus_UnsubscribeAll(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	allCh := bus.SubscribeAll()
	bus.UnsubscribeAll(allCh)

	bus.Publish(&LogEvent{
		BaseEvent: BaseEvent{EventType: EventLog, Time: time.Now()},
	})

	select {
	case <-allCh:
		t.Error("Unsubscribed channel should not receive events")
	case <-time.After(50 * time.Millisecond):
		// Expected
	}
}

func TestEventBus_Close(t *testing.T) {
	bus := NewEventBus(10)

	ch := bus.Subscribe(EventTransferProgress)

	bus.Close()

	// Channel should be closed
	_, ok := <-ch
	if ok {
		t.Error("Channel should be closed after bus.Close()")
	}

	// Publishing after close should not panic
	bus.Publish(&TransferEvent{
		BaseEvent: BaseEvent{EventType: EventTransferProgress, Time: time.Now()},
	})
}

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.expected {
			t.Errorf("Level %d: expected %s, got %s", tt.level, tt.expected, got)
		}
	}
}

func TestConvenienceMethods(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	logCh := bus.Subscribe(EventLog)
	connCh := bus.Subscribe(EventConnectionStatus)

	// Test PublishLog
	bus.PublishLog(ErrorLevel, "test message", errors.New("boom"))

	select {
	case event := <-logCh:
		log, ok := event.(*LogEvent)
		if !ok {
			t.Fatal("Expected LogEvent")
		}
		if log.Message != "test message" {
			t.Errorf("Expected 'test message', got '%s'", log.Message)
		}
		if log.Error == nil {
			t.Error("Expected error to be carried")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("Timeout waiting for log event")
	}

	// Test PublishConnectionStatus
	bus.PublishConnectionStatus(7, "staging", true, "connected")

	select {
	case event := <-connCh:
		conn, ok := event.(*ConnectionEvent)
		if !ok {
			t.Fatal("Expected ConnectionEvent")
		}
		if conn.HostID != 7 || !conn.Connected {
			t.Errorf("Unexpected connection event: %+v", conn)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("Timeout waiting for connection event")
	}
}
