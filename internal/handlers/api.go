package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/disk"
	"github.com/shirou/gopsutil/mem"
	"github.com/sirupsen/logrus"

	"episodarr/internal/config"
	"episodarr/internal/core"
	"episodarr/internal/utils"
)

type APIHandler struct {
	manager *core.Manager
	logger  *logrus.Logger
	config  *config.Config
}

func NewAPIHandler(manager *core.Manager, logger *logrus.Logger, cfg *config.Config) *APIHandler {
	return &APIHandler{manager: manager, logger: logger, config: cfg}
}

// A helper function to respond with JSON
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to respond with a JSON error
func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, map[string]string{"error": message})
}

// GetActivity returns the newest auto-download log rows.
func (h *APIHandler) GetActivity(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			respondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	activity, err := h.manager.RecentActivity(limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to fetch activity")
		respondError(w, http.StatusInternalServerError, "Failed to fetch activity")
		return
	}
	respondJSON(w, http.StatusOK, activity)
}

// GetTorrents returns the active client's normalized torrent list.
func (h *APIHandler) GetTorrents(w http.ResponseWriter, r *http.Request) {
	torrents, err := h.manager.Torrents()
	if err != nil {
		h.logger.WithError(err).Error("Failed to list torrents")
		respondError(w, http.StatusBadGateway, "Failed to list torrents")
		return
	}
	respondJSON(w, http.StatusOK, torrents)
}

// RunAutoDownload triggers one batch run immediately. force=true runs
// even while torrenting is disabled in settings.
func (h *APIHandler) RunAutoDownload(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"
	summary, err := h.manager.RunNow(r.Context(), force)
	if err != nil {
		h.logger.WithError(err).Error("Manual auto-download run failed")
		respondError(w, http.StatusInternalServerError, "Auto-download run failed")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (h *APIHandler) StartTorrent(w http.ResponseWriter, r *http.Request) {
	h.torrentOp(w, r, h.manager.StartTorrent)
}

func (h *APIHandler) StopTorrent(w http.ResponseWriter, r *http.Request) {
	h.torrentOp(w, r, h.manager.StopTorrent)
}

func (h *APIHandler) PauseTorrent(w http.ResponseWriter, r *http.Request) {
	h.torrentOp(w, r, h.manager.PauseTorrent)
}

func (h *APIHandler) RemoveTorrent(w http.ResponseWriter, r *http.Request) {
	h.torrentOp(w, r, h.manager.RemoveTorrent)
}

func (h *APIHandler) torrentOp(w http.ResponseWriter, r *http.Request, op func(string) error) {
	id := mux.Vars(r)["id"]
	if id == "" {
		respondError(w, http.StatusBadRequest, "Missing torrent id")
		return
	}
	if err := op(id); err != nil {
		h.logger.WithError(err).WithField("id", id).Error("Torrent operation failed")
		respondError(w, http.StatusBadGateway, "Torrent operation failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *APIHandler) GetTorrentFiles(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	files, err := h.manager.TorrentFiles(id)
	if err != nil {
		h.logger.WithError(err).WithField("id", id).Error("Failed to list torrent files")
		respondError(w, http.StatusBadGateway, "Failed to list torrent files")
		return
	}
	respondJSON(w, http.StatusOK, files)
}

// ConvertMagnet fetches metadata for a magnet URI and serves it as a
// .torrent payload, for download clients that only accept files.
func (h *APIHandler) ConvertMagnet(w http.ResponseWriter, r *http.Request) {
	magnetURI := r.URL.Query().Get("uri")
	if magnetURI == "" {
		respondError(w, http.StatusBadRequest, "Missing uri parameter")
		return
	}

	payload, err := utils.ConvertMagnetToTorrent(magnetURI, 90*time.Second, h.config.App.DataPath, h.logger)
	if err != nil {
		h.logger.WithError(err).Warn("Magnet conversion failed")
		respondError(w, http.StatusBadGateway, "Failed to fetch torrent metadata")
		return
	}

	name := "download.torrent"
	if hash, ok := utils.ExtractInfoHash(magnetURI); ok {
		name = hash + ".torrent"
	}
	w.Header().Set("Content-Type", "application/x-bittorrent")
	w.Header().Set("Content-Disposition", "attachment; filename="+name)
	w.Write(payload)
}

// GetSystemStatus reports host resource usage and the client link state.
func (h *APIHandler) GetSystemStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"client_connected": h.manager.TestClientConnection(),
		"search_engines":   h.manager.EngineNames(),
	}

	if v, err := mem.VirtualMemory(); err == nil {
		status["memory_used_percent"] = v.UsedPercent
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		status["cpu_percent"] = percents[0]
	}
	if d, err := disk.Usage(h.config.Client.DownloadPath); err == nil {
		status["download_disk_free_bytes"] = d.Free
		status["download_disk_used_percent"] = d.UsedPercent
	}

	respondJSON(w, http.StatusOK, status)
}
