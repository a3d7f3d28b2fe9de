package main

import (
	"log"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"fieldops/config"
	"fieldops/database"
	"fieldops/router"

	"fieldops/pkg/backend"
	"fieldops/pkg/panel"
	panelCtrlImp "fieldops/pkg/panel/controllerImp"

	healthCtrlImp "fieldops/pkg/health/controllerImp"
	cacheRepoImp "fieldops/pkg/offline/repositoryImp"
)

func main() {
	// 1) Config
	cfg := config.Load()

	// 2) Offline cache db (sqlite) + automigrate
	db := database.OpenSQLite(cfg.DBPath)

	// 3) Backend client (mock fallback when no URL configured)
	var api backend.Client
	mode := "http"
	if cfg.BackendURL != "" {
		api = backend.NewHTTP(cfg.BackendURL, cfg.BackendToken, time.Duration(cfg.BackendTimeoutSec)*time.Second)
	} else {
		api = backend.NewMock()
		mode = "mock"
		log.Printf("WARN: BACKEND_URL not set, using in-memory mock backend")
	}

	// 4) Panel manager + controllers
	cache := cacheRepoImp.New(db)
	mgr := panel.NewManager(api, cache)
	pCtrl := panelCtrlImp.New(mgr)
	hCtrl := healthCtrlImp.NewHealthCtrl(db, mode, mgr.OpenCount)

	// 5) Echo
	e := echo.New()
	e.Use(echoMiddleware.Recover())
	r := router.New(e, pCtrl, hCtrl)

	// 6) Start
	log.Printf("listening on :%s", cfg.Port)
	if err := r.Start(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
