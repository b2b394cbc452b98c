// Package store хранит разделяемое состояние статуса фронтенда.
package store

import (
	"sync"

	"github.com/xela07ax/statusboard/internal/domain"
)

// DeviceChange описывает фактическое изменение устройства после upsert.
type DeviceChange struct {
	Name  string
	From  string
	To    string
	Added bool
}

// StatusStore хранит общий статус системы, переменные приложения и список
// устройств. Бизнес-состояние и счётчики соединений защищены разными
// мьютексами: учёт соединений не должен ждать обновления устройств.
// Ни один мьютекс не удерживается во время сетевого ввода-вывода.
type StatusStore struct {
	mu           sync.Mutex
	systemStatus string
	vars         map[string]string
	devices      []domain.Device
	index        map[string]int // name -> позиция в devices

	connMu sync.Mutex
	conns  map[domain.Role]int
}

// New создаёт хранилище с начальным состоянием. Дубли в seed схлопываются
// по имени (последний выигрывает), порядок первых вхождений сохраняется.
func New(systemStatus string, seed []domain.Device, vars map[string]string) *StatusStore {
	if systemStatus == "" {
		systemStatus = domain.DefaultSystemStatus
	}
	s := &StatusStore{
		systemStatus: systemStatus,
		vars:         make(map[string]string, len(vars)),
		index:        make(map[string]int, len(seed)),
		conns:        make(map[domain.Role]int, len(domain.Roles)),
	}
	for k, v := range vars {
		s.vars[k] = v
	}
	for _, d := range seed {
		s.upsertLocked(d.Name, d.Status)
	}
	return s
}

// Snapshot возвращает согласованную копию статуса и устройств.
func (s *StatusStore) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	devices := make([]domain.Device, len(s.devices))
	copy(devices, s.devices)
	return domain.Snapshot{SystemStatus: s.systemStatus, Devices: devices}
}

// SystemStatus возвращает текущий общий статус.
func (s *StatusStore) SystemStatus() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.systemStatus
}

func (s *StatusStore) SetSystemStatus(value string) {
	s.mu.Lock()
	s.systemStatus = value
	s.mu.Unlock()
}

// UpsertDevice обновляет устройство по имени или добавляет его в конец.
// Повторный вызов с теми же аргументами ничего не меняет (changed == false).
func (s *StatusStore) UpsertDevice(name, status string) (DeviceChange, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertLocked(name, status)
}

// ApplyUpdate применяет пакет (статус + устройства) под одной блокировкой,
// поэтому читатели не видят частично применённый пакет.
// Возвращает только реальные изменения устройств.
func (s *StatusStore) ApplyUpdate(systemStatus *string, devices []domain.Device) []DeviceChange {
	s.mu.Lock()
	defer s.mu.Unlock()

	if systemStatus != nil {
		s.systemStatus = *systemStatus
	}
	var changes []DeviceChange
	for _, d := range devices {
		if ch, ok := s.upsertLocked(d.Name, d.Status); ok {
			changes = append(changes, ch)
		}
	}
	return changes
}

// UpdateVar меняет только известную переменную и отражает это в общем статусе.
func (s *StatusStore) UpdateVar(name, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.vars[name]; !ok {
		return false
	}
	s.vars[name] = value
	s.systemStatus = "Updated: " + name + "=" + value
	return true
}

// Vars возвращает копию переменных приложения.
func (s *StatusStore) Vars() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.vars))
	for k, v := range s.vars {
		out[k] = v
	}
	return out
}

func (s *StatusStore) upsertLocked(name, status string) (DeviceChange, bool) {
	if i, ok := s.index[name]; ok {
		prev := s.devices[i].Status
		if prev == status {
			return DeviceChange{}, false
		}
		s.devices[i].Status = status
		return DeviceChange{Name: name, From: prev, To: status}, true
	}
	s.index[name] = len(s.devices)
	s.devices = append(s.devices, domain.Device{Name: name, Status: status})
	return DeviceChange{Name: name, To: status, Added: true}, true
}

// --- Учёт активных соединений (отдельный мьютекс) ---

// IncrementConnection увеличивает счётчик роли и возвращает новое значение.
func (s *StatusStore) IncrementConnection(role domain.Role) int {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	s.conns[role]++
	return s.conns[role]
}

// DecrementConnection уменьшает счётчик роли, не опуская его ниже нуля.
func (s *StatusStore) DecrementConnection(role domain.Role) int {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conns[role] > 0 {
		s.conns[role]--
	}
	return s.conns[role]
}

func (s *StatusStore) ActiveConnections(role domain.Role) int {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.conns[role]
}
