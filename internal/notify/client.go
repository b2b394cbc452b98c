package notify

import (
	"context"
	"fmt"
	"net"
	"time"
)

// DefaultTimeout — таймаут подключения и записи по умолчанию.
const DefaultTimeout = time.Second

// Client отправляет уведомления монитору. Доставка best-effort:
// без повторов и очередей, недоступный монитор означает лишь ошибку в логе.
type Client struct {
	addr    string
	timeout time.Duration
	dialer  net.Dialer
}

func NewClient(addr string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{addr: addr, timeout: timeout}
}

// Addr возвращает адрес слушателя монитора.
func (c *Client) Addr() string { return c.addr }

// Send открывает соединение, пишет одно сообщение и закрывает его.
// Блокируется не дольше timeout на подключение и timeout на запись.
func (c *Client) Send(ctx context.Context, msg Message) error {
	dialCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.dialer.DialContext(dialCtx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("notify: dial %s: %w", c.addr, err)
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return fmt.Errorf("notify: set deadline: %w", err)
	}
	if _, err := conn.Write(msg.Encode()); err != nil {
		return fmt.Errorf("notify: write to %s: %w", c.addr, err)
	}
	return nil
}
