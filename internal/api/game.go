package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/youruser/gemdeck/internal/launch"
)

// gameSocket connects the embedded game module. The stored battle deck is
// queued on the new bridge and delivered once the module reports ready.
func (h *Handlers) gameSocket(c *gin.Context) {
	w := workspace(c)
	conn, err := launch.Upgrade(c.Writer, c.Request, h.log.With(slog.String("workspace", w.ID()[:8])))
	if err != nil {
		// the upgrader has already answered
		h.log.Debug("websocket upgrade failed", slog.Any("error", err))
		return
	}
	detach, err := w.Launcher().Attach(c.Request.Context(), conn.Bridge())
	if errors.Is(err, launch.ErrLauncherClosed) {
		return
	}
	if err != nil {
		h.log.Warn("could not seed game module", slog.Any("error", err))
	}
	defer detach()
	conn.Run()
}

func (h *Handlers) gameStatus(c *gin.Context) {
	st, attached := workspace(c).Launcher().Status()
	c.JSON(http.StatusOK, gin.H{
		"attached": attached,
		"ready":    st.Ready,
		"progress": st.Progress,
		"pending":  st.Pending,
	})
}
