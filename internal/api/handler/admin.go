package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.Complaints.Stats(c.Request.Context(), identity(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) Staff(c *gin.Context) {
	staff, err := h.Complaints.StaffRoster(identity(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"staff": staff})
}

// Buildings is public so the submit form can be filled before login.
func (h *Handler) Buildings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"buildings": h.Complaints.CampusBuildings()})
}
