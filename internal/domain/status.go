package domain

import "fmt"

// AggregateStatus выводит общий статус системы из числа отказавших устройств.
func AggregateStatus(faults int) string {
	switch {
	case faults <= 0:
		return DefaultSystemStatus
	case faults == 1:
		return "Warning: 1 device fault"
	default:
		return fmt.Sprintf("Critical: %d device faults", faults)
	}
}
