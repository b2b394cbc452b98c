// Package feed ведёт асинхронную ленту изменений хранилища статусов.
// Запись в ленту не блокирует обработчик запроса: события копятся в
// буфере и уходят в приёмник пачками.
package feed

import (
	"context"
	"time"
)

// Источник изменения: монитор через управляющий порт или оператор через веб.
const (
	SourceMonitor  = "monitor"
	SourceOperator = "operator"
)

// Типы событий.
const (
	TypeSystemStatus = "system_status"
	TypeDevices      = "devices"
	TypeVar          = "var"
)

// Event — запись ленты изменений хранилища.
type Event struct {
	Type         string         `json:"type"`
	Source       string         `json:"source"`
	SystemStatus string         `json:"system_status,omitempty"`
	Devices      []DeviceChange `json:"devices,omitempty"`
	Var          string         `json:"var,omitempty"`
	Value        string         `json:"value,omitempty"`
	At           time.Time      `json:"at"`
}

type DeviceChange struct {
	Name  string `json:"name"`
	From  string `json:"from,omitempty"`
	To    string `json:"to"`
	Added bool   `json:"added,omitempty"`
}

// Nop используется, когда лента выключена.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
