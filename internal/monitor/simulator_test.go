package monitor

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/statusboard/internal/domain"
	"github.com/xela07ax/statusboard/internal/notify"
)

func testDevices() []domain.MonitoredDevice {
	return []domain.MonitoredDevice{
		{Name: "Device1", FaultProbability: 50},
		{Name: "Network Controller", FaultProbability: 50},
		{Name: "Comm Link", FaultProbability: 50},
	}
}

// fixedRoll возвращает значения по кругу.
func fixedRoll(values ...int) func() int {
	i := 0
	return func() int {
		v := values[i%len(values)]
		i++
		return v
	}
}

func TestTickAggregates(t *testing.T) {
	tests := []struct {
		name   string
		rolls  []int
		want   string
		faults int
	}{
		{"all healthy", []int{100}, "Operational", 0},
		{"one fault", []int{1, 100, 100}, "Warning: 1 device fault", 1},
		{"all faulted", []int{1}, "Critical: 3 device faults", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := NewSimulator(NewState(testDevices()), nil, nil, zap.NewNop(), WithRoll(fixedRoll(tt.rolls...)))
			rep := sim.Tick()
			if rep.SystemStatus != tt.want || rep.Faults != tt.faults {
				t.Fatalf("Tick() = %q/%d, want %q/%d", rep.SystemStatus, rep.Faults, tt.want, tt.faults)
			}
			if len(rep.Devices) != 3 {
				t.Fatalf("got %d devices", len(rep.Devices))
			}
		})
	}
}

func TestTickRecoveredStatusByName(t *testing.T) {
	sim := NewSimulator(NewState(testDevices()), nil, nil, zap.NewNop(), WithRoll(fixedRoll(100)))
	rep := sim.Tick()

	want := map[string]string{"Device1": "ok", "Network Controller": "operational", "Comm Link": "active"}
	for _, d := range rep.Devices {
		if d.Status != want[d.Name] {
			t.Fatalf("%s = %q, want %q", d.Name, d.Status, want[d.Name])
		}
	}
}

func TestTickProbabilityBoundary(t *testing.T) {
	// Значение, равное вероятности, считается отказом
	sim := NewSimulator(NewState([]domain.MonitoredDevice{{Name: "Device1", FaultProbability: 5}}), nil, nil, zap.NewNop(),
		WithRoll(fixedRoll(5, 6)))

	if rep := sim.Tick(); rep.Devices[0].Status != domain.StatusFault {
		t.Fatalf("roll 5 with p=5: status %q, want fault", rep.Devices[0].Status)
	}
	if rep := sim.Tick(); rep.Devices[0].Status != domain.StatusOK {
		t.Fatalf("roll 6 with p=5: status %q, want ok", rep.Devices[0].Status)
	}
}

func TestTransitionsAreEdgeTriggered(t *testing.T) {
	state := NewState([]domain.MonitoredDevice{{Name: "Device1", FaultProbability: 10}})

	_, tr := state.advance(fixedRoll(100))
	if len(tr) != 0 {
		t.Fatalf("healthy to healthy produced transitions %+v", tr)
	}
	_, tr = state.advance(fixedRoll(1))
	if len(tr) != 1 || tr[0].From != "ok" || tr[0].To != "fault" {
		t.Fatalf("transitions = %+v", tr)
	}
	_, tr = state.advance(fixedRoll(1))
	if len(tr) != 0 {
		t.Fatalf("fault to fault produced transitions %+v", tr)
	}
}

func TestOverrideIsUsedVerbatimAndPersists(t *testing.T) {
	state := NewState(testDevices())
	sim := NewSimulator(state, nil, nil, zap.NewNop(), WithRoll(fixedRoll(1)))

	sim.HandleNotification(notify.SystemStatusUpdate("Maintenance window"))
	for i := 0; i < 3; i++ {
		rep := sim.Tick()
		if rep.SystemStatus != "Maintenance window" || !rep.Overridden {
			t.Fatalf("tick %d: SystemStatus = %q", i, rep.SystemStatus)
		}
		if rep.Faults != 3 {
			t.Fatalf("tick %d: faults = %d, want 3", i, rep.Faults)
		}
	}
}

func TestApplyMatchesExactNames(t *testing.T) {
	state := NewState(testDevices())
	msg := notify.Message{Devices: []domain.Device{
		{Name: "Device1", Status: "offline"},
		{Name: "device1", Status: "fault"},
		{Name: "Unknown", Status: "fault"},
	}}

	if n := state.Apply(msg); n != 1 {
		t.Fatalf("Apply() = %d, want 1", n)
	}
	if _, ok := state.Override(); ok {
		t.Fatal("device-only message must not set override")
	}
	for _, d := range state.Devices() {
		if d.Name == "Device1" && d.Status != "offline" {
			t.Fatalf("Device1 = %q, want offline", d.Status)
		}
	}
}

type recordingReporter struct {
	reports chan Report
}

func (r *recordingReporter) Broadcast(_ context.Context, rep Report) error {
	r.reports <- rep
	return nil
}

func TestRunTicksImmediately(t *testing.T) {
	rec := &recordingReporter{reports: make(chan Report, 4)}
	sim := NewSimulator(NewState(testDevices()), rec, nil, zap.NewNop(),
		WithRoll(fixedRoll(100)), WithInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sim.Run(ctx)
		close(done)
	}()

	select {
	case rep := <-rec.reports:
		if rep.SystemStatus != "Operational" {
			t.Fatalf("first report %q", rep.SystemStatus)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no report before first interval")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}
