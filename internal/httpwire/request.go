// Package httpwire содержит минимальный HTTP-кодек поверх сырого TCP:
// разбор запроса из буфера одного чтения и сборка ответа в байты.
// Поддерживается ровно то, что нужно дашборду: один запрос на чтение,
// keep-alive, тело по Content-Length (без chunked).
package httpwire

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	// ErrBodyTooLarge — Content-Length превышает допустимый размер тела.
	ErrBodyTooLarge = errors.New("httpwire: request body exceeds limit")
	// ErrBadContentLength — заголовок Content-Length не является неотрицательным числом.
	ErrBadContentLength = errors.New("httpwire: invalid content-length")
)

// DefaultMaxBodySize — предел тела запроса, если вызывающий не задал свой.
const DefaultMaxBodySize int64 = 1 << 20

// Request — разобранный HTTP-запрос. Из заголовков сохраняются только нужные
// роутеру и обработчику соединения.
type Request struct {
	Method  string
	Path    string
	Version string

	Connection    string // значение в нижнем регистре
	ContentLength string // как пришло в заголовке
	ContentType   string // нужен для boundary multipart/form-data

	Body      []byte
	KeepAlive bool
}

// Decode разбирает запрос из raw (байты одного чтения).
// Если тело POST пришло не целиком, недостающие байты дочитываются из rest,
// но не больше maxBody. Битая стартовая строка не считается ошибкой:
// Method/Path остаются пустыми, и роутер отвечает 404.
func Decode(raw []byte, rest io.Reader, maxBody int64) (*Request, error) {
	if maxBody <= 0 {
		maxBody = DefaultMaxBodySize
	}
	req := &Request{}

	head, body, found := splitHead(raw)

	lines := strings.Split(string(head), "\n")
	if len(lines) > 0 {
		fields := strings.Fields(strings.TrimSuffix(lines[0], "\r"))
		if len(fields) > 0 {
			req.Method = fields[0]
		}
		if len(fields) > 1 {
			req.Path = fields[1]
		}
		if len(fields) > 2 {
			req.Version = fields[2]
		}
		lines = lines[1:]
	}

	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		switch strings.ToLower(trimHorizontal(name)) {
		case "connection":
			req.Connection = strings.ToLower(trimHorizontal(value))
		case "content-length":
			req.ContentLength = trimHorizontal(value)
		case "content-type":
			req.ContentType = trimHorizontal(value)
		}
	}

	req.KeepAlive = keepAlive(req.Version, req.Connection)

	if req.Method != "POST" || req.ContentLength == "" || !found {
		return req, nil
	}

	n, err := strconv.ParseInt(req.ContentLength, 10, 64)
	if err != nil || n < 0 {
		return req, fmt.Errorf("%w: %q", ErrBadContentLength, req.ContentLength)
	}
	if n > maxBody {
		return req, fmt.Errorf("%w: %d > %d", ErrBodyTooLarge, n, maxBody)
	}

	// Тело копируем: буфер чтения переиспользуется обработчиком соединения.
	req.Body = make([]byte, n)
	copied := copy(req.Body, body)
	if int64(copied) < n {
		if rest == nil {
			return req, fmt.Errorf("httpwire: read body: %w", io.ErrUnexpectedEOF)
		}
		if _, err := io.ReadFull(rest, req.Body[copied:]); err != nil {
			req.Body = req.Body[:copied]
			return req, fmt.Errorf("httpwire: read body: %w", err)
		}
	}
	return req, nil
}

// splitHead отделяет заголовки от начала тела по первой пустой строке.
func splitHead(raw []byte) (head, body []byte, found bool) {
	if i := bytes.Index(raw, []byte("\r\n\r\n")); i >= 0 {
		return raw[:i], raw[i+4:], true
	}
	if i := bytes.Index(raw, []byte("\n\n")); i >= 0 {
		return raw[:i], raw[i+2:], true
	}
	return raw, nil, false
}

// keepAlive: HTTP/1.1 живёт по умолчанию, HTTP/1.0 только по явному keep-alive.
func keepAlive(version, connection string) bool {
	switch {
	case strings.HasPrefix(version, "HTTP/1.1"):
		return connection != "close"
	case strings.HasPrefix(version, "HTTP/1.0"):
		return connection == "keep-alive"
	default:
		return false
	}
}

func trimHorizontal(s string) string {
	return strings.Trim(s, " \t")
}
