package httpwire

import (
	"errors"
	"strconv"
	"strings"
	"testing"
)

func TestDecodeKeepAlivePolicy(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want bool
	}{
		{"http10 without header", "GET / HTTP/1.0\r\n\r\n", false},
		{"http10 keep-alive", "GET / HTTP/1.0\r\nConnection: keep-alive\r\n\r\n", true},
		{"http10 mixed case padded", "GET / HTTP/1.0\r\nconnection: \t Keep-Alive \r\n\r\n", true},
		{"http11 close", "GET / HTTP/1.1\r\nConnection: close\r\n\r\n", false},
		{"http11 without header", "GET / HTTP/1.1\r\n\r\n", true},
		{"unknown version", "GET / HTTP/2\r\n\r\n", false},
		{"missing version", "GET /\r\n\r\n", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := Decode([]byte(tc.raw), nil, 0)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if req.KeepAlive != tc.want {
				t.Fatalf("keep-alive = %v, want %v", req.KeepAlive, tc.want)
			}
		})
	}
}

func TestDecodeRequestLineAndHeaders(t *testing.T) {
	raw := "POST /update_device_web HTTP/1.1\r\n" +
		"Host: localhost:8080\r\n" +
		"CONTENT-TYPE:  multipart/form-data; boundary=abc \r\n" +
		"Content-Length: 4\r\n" +
		"X-Ignored: yes\r\n" +
		"\r\n" +
		"body"
	req, err := Decode([]byte(raw), nil, 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.Method != "POST" || req.Path != "/update_device_web" || req.Version != "HTTP/1.1" {
		t.Fatalf("unexpected request line: %+v", req)
	}
	if req.ContentType != "multipart/form-data; boundary=abc" {
		t.Fatalf("content-type = %q", req.ContentType)
	}
	if req.ContentLength != "4" || string(req.Body) != "body" {
		t.Fatalf("unexpected body: length=%q body=%q", req.ContentLength, req.Body)
	}
}

func TestDecodeReadsRemainingBody(t *testing.T) {
	body := "system_status=Operational&Device1=ok"
	raw := "POST /update_system HTTP/1.1\r\nContent-Length: " + strconv.Itoa(len(body)) + "\r\n\r\n" + body[:5]
	rest := strings.NewReader(body[5:])

	req, err := Decode([]byte(raw), rest, 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(req.Body) != body {
		t.Fatalf("body = %q, want %q", req.Body, body)
	}
	if rest.Len() != 0 {
		t.Fatalf("expected remainder consumed, %d bytes left", rest.Len())
	}
}

func TestDecodeTruncatesBodyToContentLength(t *testing.T) {
	raw := "POST /x HTTP/1.1\r\nContent-Length: 2\r\n\r\nOKextra"
	req, err := Decode([]byte(raw), nil, 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(req.Body) != "OK" {
		t.Fatalf("body = %q", req.Body)
	}
}

func TestDecodeBodyLimits(t *testing.T) {
	_, err := Decode([]byte("POST /x HTTP/1.1\r\nContent-Length: 100\r\n\r\n"), strings.NewReader(""), 10)
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("expected ErrBodyTooLarge, got %v", err)
	}

	_, err = Decode([]byte("POST /x HTTP/1.1\r\nContent-Length: ten\r\n\r\n"), nil, 0)
	if !errors.Is(err, ErrBadContentLength) {
		t.Fatalf("expected ErrBadContentLength, got %v", err)
	}

	_, err = Decode([]byte("POST /x HTTP/1.1\r\nContent-Length: 8\r\n\r\nabc"), strings.NewReader(""), 0)
	if err == nil {
		t.Fatalf("expected error for short body")
	}
}

func TestDecodeIgnoresBodyForGet(t *testing.T) {
	req, err := Decode([]byte("GET /check_status HTTP/1.1\r\nContent-Length: 3\r\n\r\nabc"), nil, 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(req.Body) != 0 {
		t.Fatalf("expected no body for GET, got %q", req.Body)
	}
}

func TestDecodeMalformedRequestLine(t *testing.T) {
	for _, raw := range []string{"", "\r\n\r\n", "   \r\n"} {
		req, err := Decode([]byte(raw), nil, 0)
		if err != nil {
			t.Fatalf("decode %q: %v", raw, err)
		}
		if req.Method != "" || req.Path != "" {
			t.Fatalf("decode %q: expected empty method/path, got %+v", raw, req)
		}
		if req.KeepAlive {
			t.Fatalf("decode %q: malformed request must not be kept alive", raw)
		}
	}
}
