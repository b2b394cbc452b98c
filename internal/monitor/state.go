// Package monitor реализует процесс-симулятор: раз в период разыгрывает отказы
// устройств и рассылает агрегированный статус во фронтенд.
package monitor

import (
	"sync"

	"github.com/xela07ax/statusboard/internal/domain"
	"github.com/xela07ax/statusboard/internal/notify"
)

// Transition — смена статуса устройства за один тик.
type Transition struct {
	Device string
	From   string
	To     string
}

// Report — результат тика, который уходит во фронтенд.
type Report struct {
	SystemStatus string
	Devices      []domain.Device
	Faults       int
	Overridden   bool
}

// State — состояние монитора, общее для цикла симуляции и слушателя уведомлений.
type State struct {
	mu       sync.Mutex
	devices  []domain.MonitoredDevice
	override string
	hasOver  bool
}

func NewState(devices []domain.MonitoredDevice) *State {
	cp := make([]domain.MonitoredDevice, len(devices))
	copy(cp, devices)
	for i := range cp {
		if cp[i].Status == "" {
			cp[i].Status = domain.RecoveredStatus(cp[i].Name)
		}
	}
	return &State{devices: cp}
}

// Apply применяет уведомление от дашборда. Статус системы становится
// оверрайдом до перезапуска процесса; устройства сопоставляются по точному
// имени, незнакомые имена игнорируются.
func (s *State) Apply(msg notify.Message) (applied int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.SystemStatus != nil {
		s.override = *msg.SystemStatus
		s.hasOver = true
	}
	for _, d := range msg.Devices {
		for i := range s.devices {
			if s.devices[i].Name == d.Name {
				s.devices[i].Status = d.Status
				applied++
				break
			}
		}
	}
	return applied
}

// Override возвращает текущий оверрайд общего статуса.
func (s *State) Override() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.override, s.hasOver
}

// Devices возвращает копию списка устройств.
func (s *State) Devices() []domain.MonitoredDevice {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]domain.MonitoredDevice, len(s.devices))
	copy(cp, s.devices)
	return cp
}

// advance разыгрывает один тик под блокировкой. roll должен возвращать
// число в [1,100].
func (s *State) advance(roll func() int) (Report, []Transition) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var transitions []Transition
	rep := Report{Devices: make([]domain.Device, 0, len(s.devices))}

	for i := range s.devices {
		d := &s.devices[i]
		next := domain.RecoveredStatus(d.Name)
		if roll() <= d.FaultProbability {
			next = domain.StatusFault
		}
		if next != d.Status {
			transitions = append(transitions, Transition{Device: d.Name, From: d.Status, To: next})
			d.Status = next
		}
		if d.Status == domain.StatusFault {
			rep.Faults++
		}
		rep.Devices = append(rep.Devices, domain.Device{Name: d.Name, Status: d.Status})
	}

	if s.hasOver {
		rep.SystemStatus = s.override
		rep.Overridden = true
	} else {
		rep.SystemStatus = domain.AggregateStatus(rep.Faults)
	}
	return rep, transitions
}
