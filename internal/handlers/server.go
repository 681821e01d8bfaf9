package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"episodarr/internal/config"
	"episodarr/internal/core"
)

type Server struct {
	config     *config.Config
	manager    *core.Manager
	logger     *logrus.Logger
	httpServer *http.Server
	apiHandler *APIHandler
}

func NewServer(cfg *config.Config, manager *core.Manager, logger *logrus.Logger) *Server {
	return &Server{
		config:     cfg,
		manager:    manager,
		logger:     logger,
		apiHandler: NewAPIHandler(manager, logger, cfg),
	}
}

func (s *Server) Start() error {
	router := mux.NewRouter()

	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/activity", s.apiHandler.GetActivity).Methods("GET")
	api.HandleFunc("/autodownload/run", s.apiHandler.RunAutoDownload).Methods("POST")
	api.HandleFunc("/status", s.apiHandler.GetSystemStatus).Methods("GET")

	api.HandleFunc("/torrents", s.apiHandler.GetTorrents).Methods("GET")
	api.HandleFunc("/torrents/{id}/start", s.apiHandler.StartTorrent).Methods("POST")
	api.HandleFunc("/torrents/{id}/stop", s.apiHandler.StopTorrent).Methods("POST")
	api.HandleFunc("/torrents/{id}/pause", s.apiHandler.PauseTorrent).Methods("POST")
	api.HandleFunc("/torrents/{id}", s.apiHandler.RemoveTorrent).Methods("DELETE")
	api.HandleFunc("/torrents/{id}/files", s.apiHandler.GetTorrentFiles).Methods("GET")

	api.HandleFunc("/magnet/torrent", s.apiHandler.ConvertMagnet).Methods("GET")

	api.HandleFunc("/ws/torrents", s.apiHandler.TorrentSocket).Methods("GET")

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", s.config.App.Port),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the torrent websocket is long-lived.
	}

	s.logger.WithField("port", s.config.App.Port).Info("Starting server")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
