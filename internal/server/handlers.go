package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/tabtree/internal/codec"
	"github.com/mesh-intelligence/tabtree/internal/tracker"
	"github.com/mesh-intelligence/tabtree/pkg/types"
)

type handlers struct {
	tracker *tracker.Tracker
	logger  *zap.Logger
}

func (h *handlers) health(c *gin.Context) {
	windows := h.tracker.Windows()
	tabs := 0
	for _, w := range windows {
		tabs += w.Tabs
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"windows": len(windows),
		"tabs":    tabs,
	})
}

func (h *handlers) listWindows(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"windows": h.tracker.Windows()})
}

func (h *handlers) getWindow(c *gin.Context) {
	windowID, ok := windowParam(c)
	if !ok {
		return
	}
	w, found := h.tracker.Window(windowID)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "window not found"})
		return
	}
	c.JSON(http.StatusOK, w)
}

// getTree returns the visible forest. With ?flat=true the nodes come back
// in draw order with their depth instead of nested.
func (h *handlers) getTree(c *gin.Context) {
	windowID, ok := windowParam(c)
	if !ok {
		return
	}
	views, found := h.tracker.View(windowID)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "window not found"})
		return
	}
	if flat, _ := strconv.ParseBool(c.Query("flat")); flat {
		views = types.Flatten(views)
	}
	if views == nil {
		views = []types.TreeView{}
	}
	c.JSON(http.StatusOK, gin.H{"window_id": windowID, "tabs": views})
}

func (h *handlers) updateTab(c *gin.Context) {
	windowID, tabID, ok := tabParams(c)
	if !ok {
		return
	}
	var change types.ChangeInfo
	if err := c.ShouldBindJSON(&change); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.respond(c, h.tracker.Update(c.Request.Context(), windowID, tabID, change))
}

func (h *handlers) removeTab(c *gin.Context) {
	windowID, tabID, ok := tabParams(c)
	if !ok {
		return
	}
	withChildren, _ := strconv.ParseBool(c.Query("with_children"))
	h.respond(c, h.tracker.Remove(c.Request.Context(), windowID, tabID, withChildren))
}

// postEvent accepts one event envelope as JSON or, with Content-Type
// application/cbor, as CBOR.
func (h *handlers) postEvent(c *gin.Context) {
	var ev types.Event
	if err := bindBody(c, &ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.respond(c, h.tracker.Handle(c.Request.Context(), ev))
}

func (h *handlers) seed(c *gin.Context) {
	var tabs []types.TabCreated
	if err := bindBody(c, &tabs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.respond(c, h.tracker.Seed(c.Request.Context(), tabs))
}

func (h *handlers) snapshot(c *gin.Context) {
	format, err := codec.ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	data, err := codec.Marshal(format, h.tracker.Snapshot())
	if err != nil {
		h.logger.Error("encoding snapshot", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, format.ContentType(), data)
}

// respond maps a tracker error to a status. A persistence failure is a 500
// even though the change was applied in memory.
func (h *handlers) respond(c *gin.Context, err error) {
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, types.ErrUnknownEventKind):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, tracker.ErrClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, types.ErrPersist):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "applied": true})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

func bindBody(c *gin.Context, v any) error {
	if c.ContentType() == codec.FormatCBOR.ContentType() {
		data, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return err
		}
		return codec.Unmarshal(codec.FormatCBOR, data, v)
	}
	return c.ShouldBindJSON(v)
}

func windowParam(c *gin.Context) (types.WindowID, bool) {
	id, err := strconv.Atoi(c.Param("windowID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid window id"})
		return 0, false
	}
	return types.WindowID(id), true
}

func tabParams(c *gin.Context) (types.WindowID, types.TabID, bool) {
	windowID, ok := windowParam(c)
	if !ok {
		return 0, 0, false
	}
	id, err := strconv.Atoi(c.Param("tabID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tab id"})
		return 0, 0, false
	}
	return windowID, types.TabID(id), true
}
