package handler

import (
	"net/http"

	"panpos/internal/connectivity"
	"panpos/internal/offline"
	"panpos/pkg/response"

	"github.com/gin-gonic/gin"
)

// SyncHandler exposes the offline-sync machinery to the operator: queue
// inspection, manual replay, and the connectivity signal a headless
// deployment has no platform event for.
type SyncHandler struct {
	facade  *offline.Facade
	monitor *connectivity.Monitor
}

func NewSyncHandler(facade *offline.Facade, monitor *connectivity.Monitor) *SyncHandler {
	return &SyncHandler{facade: facade, monitor: monitor}
}

func (h *SyncHandler) RegisterRoutes(router *gin.RouterGroup) {
	sync := router.Group("/api/sync")
	{
		sync.GET("/status", h.Status)
		sync.POST("/replay", h.Replay)
		sync.POST("/connectivity", h.SetConnectivity)
	}
}

// Status reports the connectivity flag, pending queue and dead letters
// @Summary      Sync status
// @Tags         sync
// @Produce      json
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/sync/status [get]
func (h *SyncHandler) Status(c *gin.Context) {
	pending, err := h.facade.PendingActions()
	if err != nil {
		fail(c, err)
		return
	}
	dead, err := h.facade.DeadLetters()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"online":      h.monitor.IsOnline(),
		"pending":     pending,
		"deadLetters": dead,
	}))
}

// Replay forces a replay pass outside the reconnect event
// @Summary      Replay offline queue
// @Tags         sync
// @Produce      json
// @Success      200  {object}  response.Response{data=offline.ReplayResult}
// @Router       /api/sync/replay [post]
func (h *SyncHandler) Replay(c *gin.Context) {
	result, err := h.facade.Replay(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

type connectivityRequest struct {
	Online *bool `json:"online" binding:"required"`
}

// SetConnectivity feeds the reachability signal into the monitor. Flipping
// to online triggers the replay callback.
// @Summary      Set connectivity
// @Tags         sync
// @Accept       json
// @Produce      json
// @Param        payload  body      connectivityRequest  true  "State"
// @Success      200      {object}  response.Response
// @Router       /api/sync/connectivity [post]
func (h *SyncHandler) SetConnectivity(c *gin.Context) {
	var req connectivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	h.monitor.Set(*req.Online)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"online": h.monitor.IsOnline(),
	}))
}
