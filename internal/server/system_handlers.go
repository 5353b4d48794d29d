package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/faketrading/backend/internal/di"
)

var startTime = time.Now()

// SystemHandlers exposes process and database diagnostics plus the
// manual backup trigger.
type SystemHandlers struct {
	container *di.Container
	dataDir   string
	log       zerolog.Logger
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(container *di.Container, dataDir string, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		container: container,
		dataDir:   dataDir,
		log:       log.With().Str("handler", "system").Logger(),
	}
}

// RegisterRoutes registers all system routes
func (h *SystemHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/system", func(r chi.Router) {
		r.Get("/status", h.HandleGetStatus)
		r.Get("/database/stats", h.HandleGetDatabaseStats)
		r.Post("/backup", h.HandleTriggerBackup)
	})
}

// HandleGetStatus returns process uptime plus host CPU, memory and
// disk usage.
// GET /api/system/status
func (h *SystemHandlers) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	cpuAvg, ramPercent := h.systemStats()

	diskInfo := map[string]interface{}{}
	if usage, err := disk.Usage(h.dataDir); err == nil {
		diskInfo = map[string]interface{}{
			"total_gb":     float64(usage.Total) / 1024 / 1024 / 1024,
			"free_gb":      float64(usage.Free) / 1024 / 1024 / 1024,
			"used_percent": usage.UsedPercent,
		}
	} else {
		h.log.Warn().Err(err).Msg("Failed to get disk usage")
	}

	hostUptime := uint64(0)
	if up, err := host.Uptime(); err == nil {
		hostUptime = up
	}

	response := map[string]interface{}{
		"status":              "running",
		"uptime_seconds":      int64(time.Since(startTime).Seconds()),
		"host_uptime_seconds": hostUptime,
		"cpu_percent":         cpuAvg,
		"ram_percent":         ramPercent,
		"disk":                diskInfo,
		"stream_subscribers":  h.container.Broadcaster.SubscriberCount(),
	}
	if h.container.FeedClient != nil {
		response["feed_requests_left"] = h.container.FeedClient.GetRemainingRequests()
	}

	h.writeJSON(w, response)
}

// HandleGetDatabaseStats returns size and row statistics per database.
// GET /api/system/database/stats
func (h *SystemHandlers) HandleGetDatabaseStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{}
	for _, db := range h.container.Databases() {
		s, err := db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to get database stats")
			stats[db.Name()] = map[string]string{"error": "unavailable"}
			continue
		}
		stats[db.Name()] = s
	}

	h.writeJSON(w, stats)
}

// HandleTriggerBackup runs a backup immediately.
// POST /api/system/backup
func (h *SystemHandlers) HandleTriggerBackup(w http.ResponseWriter, r *http.Request) {
	if !h.container.BackupService.Enabled() {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error": "backup bucket not configured",
			"code":  "backup_disabled",
		})
		return
	}

	h.log.Info().Msg("Manual backup triggered")

	archive, err := h.container.BackupService.CreateAndUploadBackup(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Manual backup failed")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error": "backup failed",
			"code":  "internal",
		})
		return
	}

	h.writeJSON(w, map[string]string{
		"status":  "success",
		"archive": archive,
	})
}

// systemStats samples CPU and RAM usage. The CPU sample uses a short
// interval to keep the endpoint responsive.
func (h *SystemHandlers) systemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
