package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/vas-solutus/tapbridge/internal/manager"
	"github.com/vas-solutus/tapbridge/pkg/version"
)

func (c *Component) handleList(w http.ResponseWriter, r *http.Request) {
	resp := ListResponse{Attachments: c.manager.List()}

	w.Header().Set("Content-Type", "application/json")
	c.writeJSON(w, resp)
}

func (c *Component) handleGet(w http.ResponseWriter, r *http.Request) {
	device := r.PathValue("device")

	info, ok := c.manager.Get(device)
	if !ok {
		c.writeError(w, http.StatusNotFound, "device not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	c.writeJSON(w, info)
}

func (c *Component) handleAttach(w http.ResponseWriter, r *http.Request) {
	var req AttachRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	cfg, err := req.bridgeConfig()
	if err != nil {
		c.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := c.manager.Attach(r.Context(), cfg); err != nil {
		c.logger.Error("Attach failed", "device", cfg.Device, "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, manager.ErrAlreadyAttached) {
			status = http.StatusConflict
		}
		c.writeError(w, status, err.Error())
		return
	}

	info, _ := c.manager.Get(cfg.Device)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	c.writeJSON(w, info)
}

func (c *Component) handleDetach(w http.ResponseWriter, r *http.Request) {
	device := r.PathValue("device")

	if err := c.manager.Detach(r.Context(), device); err != nil {
		c.writeError(w, http.StatusNotFound, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	c.writeJSON(w, map[string]string{"status": "detached"})
}

func (c *Component) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Version:       version.Full(),
		UptimeSeconds: time.Since(c.started).Seconds(),
		Attachments:   len(c.manager.List()),
		Totals:        c.manager.Totals(),
	}

	w.Header().Set("Content-Type", "application/json")
	c.writeJSON(w, resp)
}

func (c *Component) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	c.writeJSON(w, ErrorResponse{Error: message})
}

func (c *Component) writeJSON(w http.ResponseWriter, v interface{}) {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	encoder.Encode(v)
}
