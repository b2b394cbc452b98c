package domain

import "strings"

// Рекомендуемый словарь статусов устройств. Статус хранится свободным текстом,
// значения ниже не валидируются, а лишь используются симулятором и UI.
const (
	StatusOK          = "ok"
	StatusOperational = "operational"
	StatusActive      = "active"
	StatusFault       = "fault"
	StatusDegraded    = "degraded"
	StatusOffline     = "offline"
)

// DefaultSystemStatus — общий статус системы до первого обновления.
const DefaultSystemStatus = "Operational"

// Device — состояние устройства на стороне фронтенда.
// Name служит стабильным ключом, по которому процессы сопоставляют устройства.
type Device struct {
	Name   string `json:"name" mapstructure:"name"`
	Status string `json:"status" mapstructure:"status"`
}

// MonitoredDevice — устройство монитора с вероятностью отказа (0..100).
type MonitoredDevice struct {
	Name             string `mapstructure:"name"`
	Status           string `mapstructure:"status"`
	FaultProbability int    `mapstructure:"fault_probability"`
}

// Snapshot — копия состояния хранилища, снятая под блокировкой.
type Snapshot struct {
	SystemStatus string
	Devices      []Device
}

// RecoveredStatus возвращает "здоровый" статус устройства по его имени.
func RecoveredStatus(name string) string {
	switch {
	case strings.Contains(name, "Controller"), strings.Contains(name, "Unit"):
		return StatusOperational
	case strings.Contains(name, "Link"):
		return StatusActive
	default:
		return StatusOK
	}
}

// DefaultMonitoredDevices возвращает стартовый набор устройств монитора.
func DefaultMonitoredDevices() []MonitoredDevice {
	return []MonitoredDevice{
		{Name: "Device1", Status: StatusOK, FaultProbability: 5},
		{Name: "Device2", Status: StatusOK, FaultProbability: 15},
		{Name: "Device3", Status: StatusOK, FaultProbability: 3},
		{Name: "Network Controller", Status: StatusOperational, FaultProbability: 8},
		{Name: "Storage Unit", Status: StatusOperational, FaultProbability: 12},
		{Name: "Comm Link", Status: StatusActive, FaultProbability: 7},
	}
}

// DefaultDashboardDevices возвращает стартовый набор устройств фронтенда
// (до первой рассылки монитора показываем "последнее известное" состояние).
func DefaultDashboardDevices() []Device {
	return []Device{
		{Name: "Device1", Status: StatusOK},
		{Name: "Device2", Status: StatusFault},
		{Name: "Device3", Status: StatusOK},
		{Name: "Network Controller", Status: StatusOperational},
		{Name: "Storage Unit", Status: StatusDegraded},
		{Name: "Comm Link", Status: StatusActive},
	}
}

// DefaultAppVars возвращает известные переменные приложения. /update_var меняет только их.
func DefaultAppVars() map[string]string {
	return map[string]string{
		"mode":  "normal",
		"speed": "50",
	}
}
