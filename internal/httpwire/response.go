package httpwire

import (
	"bytes"
	"net/http"
	"strconv"
)

// Field — один заголовок ответа. Порядок полей сохраняется при сборке.
type Field struct {
	Name  string
	Value string
}

// Response — ответ, который обработчик соединения отправляет клиенту.
// Content-Length всегда вычисляется из длины Body.
type Response struct {
	Status      int
	ContentType string
	Header      []Field
	Body        []byte
}

// Text собирает ответ text/plain с заданным кодом.
func Text(status int, body string) *Response {
	return &Response{Status: status, ContentType: "text/plain", Body: []byte(body)}
}

// With добавляет заголовок и возвращает тот же ответ.
func (r *Response) With(name, value string) *Response {
	r.Header = append(r.Header, Field{Name: name, Value: value})
	return r
}

// NoCache запрещает кэширование ответа браузером и прокси.
func (r *Response) NoCache() *Response {
	return r.
		With("Cache-Control", "no-cache, no-store, must-revalidate").
		With("Pragma", "no-cache").
		With("Expires", "0")
}

// Encode собирает ответ в байты для записи в сокет.
func (r *Response) Encode() []byte {
	var b bytes.Buffer
	b.Grow(128 + len(r.Body))

	b.WriteString("HTTP/1.1 ")
	b.WriteString(strconv.Itoa(r.Status))
	b.WriteByte(' ')
	b.WriteString(StatusReason(r.Status))
	b.WriteString("\r\n")

	if r.ContentType != "" {
		writeField(&b, "Content-Type", r.ContentType)
	}
	for _, f := range r.Header {
		writeField(&b, f.Name, f.Value)
	}
	writeField(&b, "Content-Length", strconv.Itoa(len(r.Body)))
	b.WriteString("\r\n")
	b.Write(r.Body)
	return b.Bytes()
}

// StatusReason возвращает текст причины для стартовой строки ответа.
func StatusReason(code int) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	return "Unknown"
}

func writeField(b *bytes.Buffer, name, value string) {
	b.WriteString(name)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\r\n")
}
