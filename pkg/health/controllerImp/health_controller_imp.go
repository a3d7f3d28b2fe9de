package controllerImp

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

var appStart = time.Now()

type HealthCtrl struct {
	db          *gorm.DB
	backendMode string // "http" or "mock"
	openPanels  func() int
}

func NewHealthCtrl(db *gorm.DB, backendMode string, openPanels func() int) *HealthCtrl {
	return &HealthCtrl{db: db, backendMode: backendMode, openPanels: openPanels}
}

func (h *HealthCtrl) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 800*time.Millisecond)
	defer cancel()

	dbOK := true
	dbErr := ""
	if h.db != nil {
		sqlDB, err := h.db.DB()
		if err != nil {
			dbOK = false
			dbErr = "db.DB(): " + err.Error()
		} else if err := sqlDB.PingContext(ctx); err != nil {
			dbOK = false
			dbErr = "ping: " + err.Error()
		}
	} else {
		dbOK = false
		dbErr = "gorm db is nil"
	}

	status := http.StatusOK
	if !dbOK {
		status = http.StatusServiceUnavailable
	}

	type sub struct {
		OK  bool   `json:"ok"`
		Err string `json:"err,omitempty"`
	}

	openPanels := 0
	if h.openPanels != nil {
		openPanels = h.openPanels()
	}

	resp := map[string]any{
		"status":      map[string]any{"ok": dbOK},
		"uptime_sec":  int(time.Since(appStart).Seconds()),
		"backend":     h.backendMode,
		"open_panels": openPanels,
		"checks": map[string]any{
			"cache_db": sub{OK: dbOK, Err: dbErr},
		},
		"time": time.Now().Format(time.RFC3339),
	}

	return c.JSON(status, resp)
}
