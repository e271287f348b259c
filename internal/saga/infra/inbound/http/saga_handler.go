package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/blocodev/wallethub/internal/saga/application"
	"github.com/blocodev/wallethub/internal/saga/domain"
)

// SagaHandler expone el estado de las sagas en lectura.
type SagaHandler struct {
	service *application.Service
}

func NewSagaHandler(service *application.Service) *SagaHandler {
	return &SagaHandler{service: service}
}

// GetSaga endpoint GET /sagas/:id
func (h *SagaHandler) GetSaga(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid saga id"})
		return
	}

	state, err := h.service.GetState(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrSagaNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "saga not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"saga_id": id.String(), "current_state": state})
}

func RegisterSagaRoutes(r *gin.Engine, handler *SagaHandler) {
	r.GET("/sagas/:id", handler.GetSaga)
}
