// Package api exposes the operator HTTP surface of the controller.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/janael-pinheiro/planter-controller-golang/pkg/engine"
	"github.com/janael-pinheiro/planter-controller-golang/pkg/entities"
	"github.com/janael-pinheiro/planter-controller-golang/pkg/reporting"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Controller is the engine surface served over HTTP.
type Controller interface {
	Status() reporting.Status
	History() []entities.SensorReading
	Plants() []entities.Plant
	Validations() []entities.PlantValidation
	ManualWater(ctx context.Context, position int) error
}

type handler struct {
	controller Controller
	log        *logrus.Entry
}

type errorResponse struct {
	Error string `json:"error"`
}

type waterResponse struct {
	Position int    `json:"position"`
	Status   string `json:"status"`
}

// NewRouter registers the operator routes. metrics may be nil.
func NewRouter(controller Controller, metrics http.Handler, log *logrus.Entry) *mux.Router {
	h := &handler{controller: controller, log: log}
	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.HandleFunc("/status", h.status).Methods(http.MethodGet)
	r.HandleFunc("/history", h.history).Methods(http.MethodGet)
	r.HandleFunc("/plants", h.plants).Methods(http.MethodGet)
	r.HandleFunc("/validations", h.validations).Methods(http.MethodGet)
	r.HandleFunc("/plants/{position:[0-9]+}/water", h.water).Methods(http.MethodPost)
	if metrics != nil {
		r.Handle("/metrics", metrics).Methods(http.MethodGet)
	}
	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) status(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.controller.Status())
}

func (h *handler) history(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.controller.History())
}

func (h *handler) plants(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.controller.Plants())
}

func (h *handler) validations(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.controller.Validations())
}

// water blocks until the pump run finishes.
func (h *handler) water(w http.ResponseWriter, r *http.Request) {
	position, err := strconv.Atoi(mux.Vars(r)["position"])
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid position"})
		return
	}

	err = h.controller.ManualWater(r.Context(), position)
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusOK, waterResponse{Position: position, Status: "watered"})
	case errors.Is(err, engine.ErrPlantNotFound):
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, engine.ErrTankTooLow):
		h.writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		h.log.WithError(err).WithField("position", position).Error("manual watering failed")
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.WithError(err).Debug("write response")
	}
}
