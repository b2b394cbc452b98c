package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/xela07ax/statusboard/internal/httpwire"
	"github.com/xela07ax/statusboard/internal/store"
)

// ControlNotFound — тело 404 управляющего порта.
const ControlNotFound = "Backend API endpoint not found"

// ControlService Описываем, что нам нужно от сервиса на управляющем порту
type ControlService interface {
	ApplyMonitorReport(ctx context.Context, pairs []httpwire.Pair) []store.DeviceChange
	UpdateVar(ctx context.Context, name, value string) bool
}

type ControlHandler struct {
	service ControlService
}

func NewControlHandler(s ControlService) *ControlHandler {
	return &ControlHandler{service: s}
}

// UpdateSystem принимает отчёт монитора: system_status=<v>&<device>=<status>...
func (h *ControlHandler) UpdateSystem(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeText(w, http.StatusBadRequest, "Bad Request")
		return
	}
	h.service.ApplyMonitorReport(r.Context(), httpwire.ParsePairs(string(body)))
	writeText(w, http.StatusOK, "OK")
}

// UpdateVar меняет переменную приложения и возвращает на дашборд.
func (h *ControlHandler) UpdateVar(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeText(w, http.StatusBadRequest, "Bad Request")
		return
	}
	pairs := httpwire.ParsePairs(string(body))
	name, okName := httpwire.Lookup(pairs, "name")
	value, okValue := httpwire.Lookup(pairs, "value")
	if okName && okValue {
		h.service.UpdateVar(r.Context(), name, value)
	}

	w.Header().Set("Location", "/")
	w.WriteHeader(http.StatusSeeOther)
}
