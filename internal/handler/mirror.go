package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ticketmirror/internal/repository"
	"ticketmirror/internal/service"
)

// MirrorHandler exposes backup/restore controls and cursor inspection.
// Overlap protection lives in MirrorService.Run, which is shared with the
// cron schedule; the handler only translates refusals into 409s.
type MirrorHandler struct {
	Backup  *service.MirrorService
	Restore *service.RestoreService
	Store   repository.MirrorStore
	Logger  *zap.Logger
}

func (h *MirrorHandler) Register(r *gin.Engine) {
	group := r.Group("/api/mirror")
	group.POST("/backup", h.backup)
	group.POST("/restore", h.restore)
	group.GET("/sync-state", h.syncState)
}

// backup kicks off one asynchronous backup pass and returns immediately;
// progress goes to the logs.
func (h *MirrorHandler) backup(c *gin.Context) {
	if h.Backup == nil {
		Error(c, http.StatusInternalServerError, "backup service unavailable", nil)
		return
	}
	if h.Backup.Running() {
		Error(c, http.StatusConflict, "a backup pass is already running", nil)
		return
	}
	go func() {
		if err := h.Backup.Run(context.Background()); err != nil {
			if errors.Is(err, service.ErrPassInProgress) {
				h.Logger.Warn("backup pass refused, another writer is active")
				return
			}
			h.Logger.Error("backup pass failed", zap.Error(err))
			return
		}
		h.Logger.Info("backup pass complete")
	}()
	Accepted(c, gin.H{"started": true})
}

func (h *MirrorHandler) restore(c *gin.Context) {
	if h.Restore == nil {
		Error(c, http.StatusInternalServerError, "restore service unavailable", nil)
		return
	}
	if h.Backup != nil && h.Backup.Running() {
		Error(c, http.StatusConflict, "a backup pass is running, restore refused", nil)
		return
	}
	opts := service.RestoreOptions{
		Scope:         c.DefaultQuery("scope", "all"),
		Limit:         intQuery(c, "limit", 0),
		Offset:        intQuery(c, "offset", 0),
		TruncateFirst: boolQuery(c, "truncate_first", false),
		DryRun:        boolQuery(c, "dry_run", false),
	}
	report, err := h.Restore.Run(c.Request.Context(), opts)
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	Ok(c, report, nil)
}

func (h *MirrorHandler) syncState(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "store unavailable", nil)
		return
	}
	states, err := h.Store.ListSyncStates(c.Request.Context())
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, states, map[string]any{"count": len(states)})
}

func intQuery(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func boolQuery(c *gin.Context, name string, def bool) bool {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}
