package httpapi

import (
	"errors"
	"net/http"

	"dispatchboard-service/internal/domain/entity"
	"dispatchboard-service/internal/domain/repository"
	"dispatchboard-service/internal/usecase"
	"dispatchboard-service/pkg/logger"
	"dispatchboard-service/pkg/utils"

	"github.com/gin-gonic/gin"
)

// Handler exposes the roster engine to the presentation layer.
type Handler struct {
	roster *usecase.RosterStore
	logger logger.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(roster *usecase.RosterStore, logger logger.Logger) *Handler {
	return &Handler{roster: roster, logger: logger}
}

// Register mounts the API routes
func (h *Handler) Register(router *gin.RouterGroup) {
	router.GET("/flights", h.listFlights)
	router.POST("/flights", h.addFlight)
	router.DELETE("/flights/:id", h.deleteFlight)
	router.PATCH("/flights/:id/car", h.editFlightCar)
	router.POST("/flights/:id/refresh", h.refreshFlight)
	router.POST("/refresh", h.refreshAll)
	router.GET("/cars", h.listCars)
	router.GET("/status", h.status)
}

type addFlightRequest struct {
	Input  string              `json:"input"`
	Manual *manualEntryRequest `json:"manual"`
}

type manualEntryRequest struct {
	FlightNumber string `json:"flightNumber" binding:"required"`
	ArrivalTime  string `json:"arrivalTime"`
	ClientName   string `json:"clientName"`
	Plate        string `json:"plate"`
}

func (h *Handler) listFlights(c *gin.Context) {
	c.JSON(http.StatusOK, h.roster.Flights())
}

func (h *Handler) addFlight(c *gin.Context) {
	var req addFlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var flight *entity.Flight
	var err error

	switch {
	case req.Manual != nil:
		entry := usecase.ManualEntry{
			Code:        req.Manual.FlightNumber,
			ArrivalTime: req.Manual.ArrivalTime,
			ClientName:  req.Manual.ClientName,
		}
		if req.Manual.Plate != "" {
			car, ok := h.roster.CarByPlate(req.Manual.Plate)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown car plate"})
				return
			}
			entry.Car = car
		}
		flight, err = h.roster.AddManualFlight(c.Request.Context(), entry)
	case req.Input != "":
		flight, err = h.roster.AddFlight(c.Request.Context(), req.Input)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "input or manual entry required"})
		return
	}

	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, flight)
}

func (h *Handler) deleteFlight(c *gin.Context) {
	if err := h.roster.DeleteFlight(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type editCarRequest struct {
	Plate string `json:"plate"`
}

func (h *Handler) editFlightCar(c *gin.Context) {
	var req editCarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// An empty plate clears the assignment.
	var car *entity.Car
	if req.Plate != "" {
		found, ok := h.roster.CarByPlate(req.Plate)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown car plate"})
			return
		}
		car = found
	}

	if err := h.roster.EditFlightCar(c.Request.Context(), c.Param("id"), car); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) refreshFlight(c *gin.Context) {
	if err := h.roster.RefreshFlight(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) refreshAll(c *gin.Context) {
	report := h.roster.RefreshAll(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"batchId": report.BatchID,
		"total":   report.Total,
		"updated": report.Updated,
		"failed":  len(report.Failed),
		"message": report.Summary(),
	})
}

func (h *Handler) listCars(c *gin.Context) {
	c.JSON(http.StatusOK, h.roster.Cars())
}

func (h *Handler) status(c *gin.Context) {
	state, lastErr := h.roster.State()
	body := gin.H{"subscription": state}
	if lastErr != nil {
		body["error"] = lastErr.Error()
	}
	c.JSON(http.StatusOK, body)
}

// writeError maps engine errors onto HTTP statuses. Lookup misses and stale
// local ids are distinguishable from transient failures.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, utils.ErrInvalidFormat):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid flight code"})
	case errors.Is(err, repository.ErrFlightNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "flight not found"})
	case errors.Is(err, usecase.ErrNotFoundLocal):
		c.JSON(http.StatusNotFound, gin.H{"error": "flight not in roster"})
	default:
		h.logger.Error("Request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "operation failed, try again"})
	}
}
