// Package notify реализует приватный строковый протокол, которым дашборд
// сообщает монитору о ручных изменениях оператора:
//
//	SYSTEM_STATUS_UPDATE:<value>   (0 или 1 раз)
//	DEVICE:<name>=<status>         (0 и более)
//	END
//
// На каждое соединение ровно одно сообщение.
package notify

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/xela07ax/statusboard/internal/domain"
)

const (
	prefixSystemStatus = "SYSTEM_STATUS_UPDATE:"
	prefixDevice       = "DEVICE:"
	terminator         = "END"

	// MaxMessageSize — предел размера одного сообщения.
	MaxMessageSize = 64 << 10
)

// ErrMessageTooLarge — сообщение не уложилось в MaxMessageSize до строки END.
var ErrMessageTooLarge = errors.New("notify: message exceeds size limit")

// Message — одно уведомление. SystemStatus == nil означает, что общий статус не меняется.
type Message struct {
	SystemStatus *string
	Devices      []domain.Device
}

// SystemStatusUpdate собирает сообщение о смене общего статуса оператором.
func SystemStatusUpdate(value string) Message {
	return Message{SystemStatus: &value}
}

// DeviceUpdate собирает сообщение о смене статуса одного устройства.
func DeviceUpdate(name, status string) Message {
	return Message{Devices: []domain.Device{{Name: name, Status: status}}}
}

// Empty сообщает, что в сообщении нечего применять.
func (m Message) Empty() bool {
	return m.SystemStatus == nil && len(m.Devices) == 0
}

// Encode собирает сообщение в формат протокола.
func (m Message) Encode() []byte {
	var b bytes.Buffer
	if m.SystemStatus != nil {
		b.WriteString(prefixSystemStatus)
		b.WriteString(singleLine(*m.SystemStatus))
		b.WriteByte('\n')
	}
	for _, d := range m.Devices {
		b.WriteString(prefixDevice)
		b.WriteString(singleLine(d.Name))
		b.WriteByte('=')
		b.WriteString(singleLine(d.Status))
		b.WriteByte('\n')
	}
	b.WriteString(terminator)
	b.WriteByte('\n')
	return b.Bytes()
}

// Parse читает одно сообщение до строки END или конца потока.
// Незнакомые строки и DEVICE без '=' пропускаются; при нескольких
// SYSTEM_STATUS_UPDATE побеждает последний.
func Parse(r io.Reader) (Message, error) {
	var msg Message
	br := bufio.NewReader(io.LimitReader(r, MaxMessageSize))
	read := 0

	for {
		line, err := br.ReadString('\n')
		read += len(line)
		if line != "" {
			line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
			if line == terminator {
				return msg, nil
			}
			applyLine(&msg, line)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if read >= MaxMessageSize {
					return msg, ErrMessageTooLarge
				}
				return msg, nil
			}
			return msg, err
		}
	}
}

func applyLine(msg *Message, line string) {
	switch {
	case strings.HasPrefix(line, prefixSystemStatus):
		v := strings.TrimPrefix(line, prefixSystemStatus)
		msg.SystemStatus = &v
	case strings.HasPrefix(line, prefixDevice):
		name, status, ok := strings.Cut(strings.TrimPrefix(line, prefixDevice), "=")
		if !ok {
			return
		}
		msg.Devices = append(msg.Devices, domain.Device{Name: name, Status: status})
	}
}

// singleLine не даёт значению оператора разорвать строку протокола.
func singleLine(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
