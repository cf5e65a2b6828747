package progress

import (
	"strings"
	"testing"

	"github.com/portside-app/portside/internal/events"
)

func TestTruncatePath(t *testing.T) {
	tests := []struct {
		path string
		max  int
		want string
	}{
		{"/a/b/c/d/file.txt", 3, "…/c/d/file.txt"},
		{"/a/b/c/d/file.txt", 2, "…/d/file.txt"},
		{"file.txt", 2, "file.txt"},
		{"/www", 2, "www"},
		{"/srv/files", 2, "…/srv/files"},
	}
	for _, tt := range tests {
		if got := truncatePath(tt.path, tt.max); got != tt.want {
			t.Errorf("truncatePath(%q, %d) = %q, want %q", tt.path, tt.max, got, tt.want)
		}
	}
}

func TestProgressReaderReportsCumulativeBytes(t *testing.T) {
	var updates []int64
	rep := &recordingReporter{onUpdate: func(n int64) { updates = append(updates, n) }}

	pr := NewProgressReader(strings.NewReader("hello world"), 11, rep)
	buf := make([]byte, 4)
	for {
		if _, err := pr.Read(buf); err != nil {
			break
		}
	}

	if len(updates) == 0 {
		t.Fatal("expected at least one update")
	}
	if last := updates[len(updates)-1]; last != 11 {
		t.Errorf("final update = %d, want 11", last)
	}
	for i := 1; i < len(updates); i++ {
		if updates[i] < updates[i-1] {
			t.Errorf("updates not monotonic: %v", updates)
		}
	}
}

func TestBusProgressPublishesTransferEvents(t *testing.T) {
	bus := events.NewEventBus(16)
	defer bus.Close()
	ch := bus.Subscribe(events.EventTransferProgress)
	done := bus.Subscribe(events.EventTransferCompleted)

	p := NewBusProgress(bus, "t-1", "report.pdf")
	p.Start(100, "report.pdf")
	p.Update(50)
	p.Finish()

	ev := <-ch
	te, ok := ev.(*events.TransferEvent)
	if !ok {
		t.Fatalf("expected TransferEvent, got %T", ev)
	}
	if te.TransferID != "t-1" || te.Filename != "report.pdf" {
		t.Errorf("unexpected identity: %+v", te)
	}

	ev = <-ch
	te = ev.(*events.TransferEvent)
	if te.TransferredBytes != 50 || te.Percentage != 50 {
		t.Errorf("update event = %d bytes %.0f%%, want 50 bytes 50%%", te.TransferredBytes, te.Percentage)
	}

	ev = <-done
	te = ev.(*events.TransferEvent)
	if te.TransferredBytes != 100 {
		t.Errorf("completed event carries %d bytes, want 100", te.TransferredBytes)
	}
}

func TestNoOpProgressIsSafe(t *testing.T) {
	p := NewNoOpProgress()
	p.Start(10, "x")
	p.Update(5)
	p.Error(nil)
	p.Finish()
}

type recordingReporter struct {
	onUpdate func(int64)
}

func (r *recordingReporter) Start(total int64, description string) {}
func (r *recordingReporter) Update(current int64)                  { r.onUpdate(current) }
func (r *recordingReporter) Finish()                               {}
func (r *recordingReporter) Error(err error)                       {}
func (r *recordingReporter) SetDescription(desc string)            {}
