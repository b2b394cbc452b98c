package handler

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/statusboard/internal/domain"
)

// WebNotFound — тело 404 веб-порта.
const WebNotFound = "Web endpoint not found"

//go:embed templates/index.html
var templatesFS embed.FS

var indexTmpl = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

// Статусы, которые оператор может выбрать на странице.
var operatorStatuses = []string{
	domain.StatusOK,
	domain.StatusOperational,
	domain.StatusActive,
	domain.StatusDegraded,
	domain.StatusFault,
	domain.StatusOffline,
}

// WebService Описываем, что нам нужно от сервиса на веб-порту
type WebService interface {
	Snapshot() domain.Snapshot
	SystemStatus() string
	Now() time.Time
	SetSystemStatus(ctx context.Context, value string) bool
	SetDevice(ctx context.Context, name, status string)
}

type WebHandler struct {
	service WebService
	logger  *zap.Logger
}

func NewWebHandler(s WebService, logger *zap.Logger) *WebHandler {
	return &WebHandler{service: s, logger: logger.Named("web-handler")}
}

type indexView struct {
	SystemStatus string
	Devices      []domain.Device
	Statuses     []string
}

// Index отдаёт HTML-дашборд с текущим снимком.
func (h *WebHandler) Index(w http.ResponseWriter, r *http.Request) {
	snap := h.service.Snapshot()

	var buf bytes.Buffer
	err := indexTmpl.Execute(&buf, indexView{
		SystemStatus: snap.SystemStatus,
		Devices:      snap.Devices,
		Statuses:     operatorStatuses,
	})
	if err != nil {
		h.logger.Error("render dashboard", zap.Error(err))
		http.Error(w, "Failed to render dashboard", http.StatusInternalServerError)
		return
	}

	noCache(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

type statusResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// CheckStatus отдаёт общий статус системы.
func (h *WebHandler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, statusResponse{
		Status:    h.service.SystemStatus(),
		Timestamp: h.service.Now().Format(TimestampLayout),
	})
}

type devicesResponse struct {
	Devices   []domain.Device `json:"devices"`
	Timestamp string          `json:"timestamp"`
}

// DeviceStatusJSON отдаёт список устройств в порядке добавления.
func (h *WebHandler) DeviceStatusJSON(w http.ResponseWriter, r *http.Request) {
	snap := h.service.Snapshot()
	devices := snap.Devices
	if devices == nil {
		devices = []domain.Device{}
	}

	noCache(w)
	writeJSON(w, devicesResponse{
		Devices:   devices,
		Timestamp: h.service.Now().Format(TimestampLayout),
	})
}

// UpdateSystemWeb — правка общего статуса оператором. Пустое значение
// не применяется, но ответ всё равно успешный.
func (h *WebHandler) UpdateSystemWeb(w http.ResponseWriter, r *http.Request) {
	value := r.FormValue("system_status")
	if !h.service.SetSystemStatus(r.Context(), value) {
		h.logger.Debug("empty system_status, nothing to update")
	}
	writeText(w, http.StatusOK, "Success")
}

// UpdateDeviceWeb — правка статуса одного устройства оператором.
func (h *WebHandler) UpdateDeviceWeb(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.FormValue("device_name"))
	status := strings.TrimSpace(r.FormValue("device_status"))
	if name == "" || status == "" {
		h.logger.Info("missing device_name or device_status")
		writeText(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	h.service.SetDevice(r.Context(), name, status)
	writeText(w, http.StatusOK, "Success")
}
