package httpwire

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// EncodeRequest собирает исходящий HTTP/1.1 запрос. Используется монитором
// для рассылки статуса во фронтенд по тому же сырому протоколу.
func EncodeRequest(method, path, host string, header []Field, body []byte) []byte {
	var b bytes.Buffer
	b.Grow(192 + len(body))

	b.WriteString(method)
	b.WriteByte(' ')
	b.WriteString(path)
	b.WriteString(" HTTP/1.1\r\n")
	writeField(&b, "Host", host)
	for _, f := range header {
		writeField(&b, f.Name, f.Value)
	}
	writeField(&b, "Content-Length", strconv.Itoa(len(body)))
	b.WriteString("\r\n")
	b.Write(body)
	return b.Bytes()
}

// ReadStatus читает стартовую строку ответа и возвращает код статуса.
func ReadStatus(r io.Reader) (int, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		return 0, fmt.Errorf("httpwire: read status line: %w", err)
	}
	fields := strings.Fields(line)
	if len(fields) < 2 || !strings.HasPrefix(fields[0], "HTTP/") {
		return 0, fmt.Errorf("httpwire: malformed status line %q", strings.TrimSpace(line))
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, fmt.Errorf("httpwire: malformed status code %q: %w", fields[1], err)
	}
	return code, nil
}
