package server

import (
	"bytes"
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/xela07ax/statusboard/internal/domain"
	"github.com/xela07ax/statusboard/internal/httpwire"
)

// bufferedWriter копит ответ обработчика целиком, чтобы собрать его
// в один httpwire.Response с точным Content-Length.
type bufferedWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newBufferedWriter() *bufferedWriter {
	return &bufferedWriter{header: make(http.Header)}
}

func (w *bufferedWriter) Header() http.Header { return w.header }

func (w *bufferedWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
}

func (w *bufferedWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.body.Write(p)
}

func (w *bufferedWriter) response() *httpwire.Response {
	status := w.status
	if status == 0 {
		status = http.StatusOK
	}
	resp := &httpwire.Response{
		Status:      status,
		ContentType: w.header.Get("Content-Type"),
		Body:        w.body.Bytes(),
	}

	names := make([]string, 0, len(w.header))
	for name := range w.header {
		switch name {
		case "Content-Type", "Content-Length", "Connection":
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, v := range w.header[name] {
			resp.With(name, v)
		}
	}
	return resp
}

// toHTTPRequest переводит разобранный запрос в *http.Request для chi.
// ok == false для битой стартовой строки.
func toHTTPRequest(ctx context.Context, req *httpwire.Request, remote string) (*http.Request, bool) {
	if req.Method == "" || !strings.HasPrefix(req.Path, "/") {
		return nil, false
	}
	hr, err := http.NewRequestWithContext(ctx, req.Method, req.Path, bytes.NewReader(req.Body))
	if err != nil {
		return nil, false
	}
	if major, minor, ok := http.ParseHTTPVersion(req.Version); ok {
		hr.Proto, hr.ProtoMajor, hr.ProtoMinor = req.Version, major, minor
	}
	if req.ContentType != "" {
		hr.Header.Set("Content-Type", req.ContentType)
	}
	if req.Connection != "" {
		hr.Header.Set("Connection", req.Connection)
	}
	hr.RequestURI = req.Path
	hr.RemoteAddr = remote
	return hr, true
}

// route прогоняет запрос через роутер роли и возвращает готовый ответ.
// id — номер соединения, под которым диспетчер его принял.
func (rt *Router) route(ctx context.Context, id uint64, role domain.Role, req *httpwire.Request, remote string) *httpwire.Response {
	w := newBufferedWriter()

	hr, ok := toHTTPRequest(withConnID(ctx, id), req, remote)
	if !ok {
		// Битую стартовую строку chi не увидит: сразу 404 роли
		return httpwire.Text(http.StatusNotFound, notFoundBody(role))
	}

	rt.Handler(role).ServeHTTP(w, hr)
	return w.response()
}
