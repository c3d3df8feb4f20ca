package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/youruser/gemdeck/internal/companion"
	imagepkg "github.com/youruser/gemdeck/internal/image"
	"github.com/youruser/gemdeck/internal/session"
)

const workspaceKey = "workspace"

// Options configures the HTTP handlers.
type Options struct {
	CookieName   string
	SecureCookie bool
	// CookieTTL bounds the browser cookie; the server drops idle workspaces on its own.
	CookieTTL time.Duration
	Logger    *slog.Logger
}

// Handlers serves the companion JSON API.
type Handlers struct {
	svc *companion.Service
	art *imagepkg.Artwork
	opt Options
	log *slog.Logger
}

func NewHandlers(svc *companion.Service, art *imagepkg.Artwork, opt Options) *Handlers {
	if opt.CookieName == "" {
		opt.CookieName = "gemdeck_session"
	}
	if opt.CookieTTL <= 0 {
		opt.CookieTTL = 12 * time.Hour
	}
	log := opt.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Handlers{svc: svc, art: art, opt: opt, log: log}
}

// health
func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handlers) setCookie(c *gin.Context, id string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.opt.CookieName, id, int(h.opt.CookieTTL.Seconds()), "/", "", h.opt.SecureCookie, true)
}

func (h *Handlers) clearCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.opt.CookieName, "", -1, "/", "", h.opt.SecureCookie, true)
}

// requireWorkspace resolves the session cookie to a live workspace.
func (h *Handlers) requireWorkspace(c *gin.Context) {
	id, err := c.Cookie(h.opt.CookieName)
	if err != nil || id == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "please log in first"})
		return
	}
	w, ok := h.svc.Workspace(id)
	if !ok {
		h.clearCookie(c)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session ended, please log in again"})
		return
	}
	c.Set(workspaceKey, w)
	c.Next()
}

func workspace(c *gin.Context) *companion.Workspace {
	return c.MustGet(workspaceKey).(*companion.Workspace)
}

type loginResponse struct {
	Profile session.Profile `json:"profile"`
	Loaded  bool            `json:"loaded"`
}

func (h *Handlers) nonce(c *gin.Context) {
	n, err := h.svc.IssueNonce(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nonce": n})
}

func (h *Handlers) walletLogin(c *gin.Context) {
	var req struct {
		WalletAddress string `json:"walletAddress" binding:"required"`
		Nonce         string `json:"nonce" binding:"required"`
		Signature     string `json:"signature" binding:"required"`
		Name          string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	w, err := h.svc.LoginWithWallet(c.Request.Context(), req.WalletAddress, req.Nonce, req.Signature, req.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.setCookie(c, w.ID())
	c.JSON(http.StatusOK, loginResponse{Profile: w.Profile()})
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handlers) passwordLogin(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	w, err := h.svc.LoginWithPassword(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.setCookie(c, w.ID())
	c.JSON(http.StatusOK, loginResponse{Profile: w.Profile()})
}

func (h *Handlers) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.svc.Register(c.Request.Context(), req.Username, req.Password); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "registered"})
}

func (h *Handlers) logout(c *gin.Context) {
	if id, err := c.Cookie(h.opt.CookieName); err == nil {
		h.svc.Logout(id)
	}
	h.clearCookie(c)
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

func (h *Handlers) profile(c *gin.Context) {
	w := workspace(c)
	c.JSON(http.StatusOK, loginResponse{Profile: w.Profile(), Loaded: w.Loaded()})
}

func (h *Handlers) requestBind(c *gin.Context) {
	var req struct {
		WalletAddress string `json:"walletAddress" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	n, err := workspace(c).RequestWalletBind(c.Request.Context(), req.WalletAddress)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nonce": n})
}

func (h *Handlers) confirmBind(c *gin.Context) {
	var req struct {
		Signature string `json:"signature" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := workspace(c).ConfirmWalletBind(c.Request.Context(), req.Signature)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": p})
}

func (h *Handlers) unbind(c *gin.Context) {
	p, err := workspace(c).UnbindWallet(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": p})
}
