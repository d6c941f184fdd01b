package handlers

import (
	"net/http"

	"go-backend/internal/db"

	"github.com/gin-gonic/gin"
)

// PingHandler handles GET /ping
func PingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// HealthHandler handles GET /health, reporting database reachability
func HealthHandler(c *gin.Context) {
	status := "ok"
	dbStatus := "ok"

	if db.DB == nil {
		status = "degraded"
		dbStatus = "not initialized"
	} else if sqlDB, err := db.DB.DB(); err != nil || sqlDB.Ping() != nil {
		status = "degraded"
		dbStatus = "unreachable"
	}

	httpStatus := http.StatusOK
	if status != "ok" {
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, gin.H{
		"status":   status,
		"database": dbStatus,
	})
}
