package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youruser/gemdeck/internal/auraapi"
	"github.com/youruser/gemdeck/internal/cards"
	"github.com/youruser/gemdeck/internal/companion"
	"github.com/youruser/gemdeck/internal/deck"
	imagepkg "github.com/youruser/gemdeck/internal/image"
	"github.com/youruser/gemdeck/internal/launch"
	"github.com/youruser/gemdeck/internal/store"
)

type stubAPI struct {
	mu         sync.Mutex
	deck       deck.Deck
	loginErr   error
	replaceErr error
}

func (s *stubAPI) IssueNonce(context.Context) (string, error) { return "n-1", nil }

func (s *stubAPI) LoginWithWallet(context.Context, string, string, string) (auraapi.Login, error) {
	return auraapi.Login{Token: "tok", UserID: "w1"}, nil
}

func (s *stubAPI) LoginWithPassword(_ context.Context, username, _ string) (auraapi.Login, error) {
	if s.loginErr != nil {
		return auraapi.Login{}, s.loginErr
	}
	return auraapi.Login{Token: "tok", UserID: "u1", Username: username}, nil
}

func (s *stubAPI) Register(context.Context, string, string) error { return nil }

func (s *stubAPI) FetchOwnedCards(context.Context, string) ([]cards.Card, error) {
	out := make([]cards.Card, 0, 12)
	for id := 1; id <= 12; id++ {
		out = append(out, cards.Card{ID: id, Quantity: 1})
	}
	return out, nil
}

func (s *stubAPI) FetchDeck(context.Context, string) (deck.Deck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deck.Clone(), nil
}

func (s *stubAPI) ReplaceDeck(_ context.Context, _ string, d deck.Deck) (deck.Deck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.replaceErr != nil {
		return nil, s.replaceErr
	}
	s.deck = d.Clone()
	return d, nil
}

func (s *stubAPI) RequestWalletBind(context.Context, string, string) (string, error) {
	return "b-1", nil
}

func (s *stubAPI) ConfirmWalletBind(context.Context, string, string, string) error { return nil }

func (s *stubAPI) UnbindWallet(context.Context, string, string) error { return nil }

type testEnv struct {
	api    *stubAPI
	router *gin.Engine
}

func newTestEnv(t *testing.T, persisted deck.Deck, art *imagepkg.Artwork) testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st, err := store.Open(store.DefaultConfig(":memory:"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	api := &stubAPI{deck: persisted}
	svc := companion.NewService(api, st, nil, nil)
	r := gin.New()
	RegisterRoutes(r, NewHandlers(svc, art, Options{}))
	return testEnv{api: api, router: r}
}

func (e testEnv) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/auth/login", gin.H{"username": "neo", "password": "pw"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Name == "gemdeck_session" {
			return c
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) companion.View {
	t.Helper()
	var v companion.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t, nil, nil)
	rec := e.do(t, http.MethodGet, "/api/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRequiresLogin(t *testing.T) {
	e := newTestEnv(t, nil, nil)
	rec := e.do(t, http.MethodGet, "/api/deck", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/deck", nil, &http.Cookie{Name: "gemdeck_session", Value: "stale"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginErrors(t *testing.T) {
	e := newTestEnv(t, nil, nil)
	rec := e.do(t, http.MethodPost, "/api/auth/login", gin.H{"username": "", "password": ""}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	e.api.loginErr = &auraapi.APIError{Op: "login", Status: http.StatusUnauthorized, Message: "Invalid credentials"}
	rec = e.do(t, http.MethodPost, "/api/auth/login", gin.H{"username": "neo", "password": "x"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid credentials"}`, rec.Body.String())

	e.api.loginErr = fmt.Errorf("login: %w: dial tcp: refused", auraapi.ErrUnreachable)
	rec = e.do(t, http.MethodPost, "/api/auth/login", gin.H{"username": "neo", "password": "x"}, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestDeckEditAndCommit(t *testing.T) {
	e := newTestEnv(t, nil, nil)
	cookie := e.login(t)

	rec := e.do(t, http.MethodGet, "/api/deck", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	v := decodeView(t, rec)
	assert.False(t, v.Editing)
	assert.Len(t, v.Cards, 12)

	for id := 1; id <= 10; id++ {
		rec = e.do(t, http.MethodPost, "/api/deck/toggle", gin.H{"cardId": id}, cookie)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	v = decodeView(t, rec)
	assert.True(t, v.CanCommit)

	rec = e.do(t, http.MethodPost, "/api/deck/toggle", gin.H{"cardId": 11}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, decodeView(t, rec).Count)

	rec = e.do(t, http.MethodPost, "/api/deck/remove", gin.H{"index": 0}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(t, http.MethodPost, "/api/deck/toggle", gin.H{"cardId": 12}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/deck/commit", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	v = decodeView(t, rec)
	assert.False(t, v.Editing)
	assert.Equal(t, deck.Deck{2, 3, 4, 5, 6, 7, 8, 9, 10, 12}, v.Persisted)
	assert.Equal(t, deck.Deck{2, 3, 4, 5, 6, 7, 8, 9, 10, 12}, e.api.deck)

	rec = e.do(t, http.MethodGet, "/api/deck/export?title=Mine", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "# Mine\n"))
	assert.Contains(t, rec.Body.String(), "1x Gem #012 (#012)")

	rec = e.do(t, http.MethodGet, "/api/deck/export?format=code", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"code":"gemdeck:2-3-4-5-6-7-8-9-10-12"}`, rec.Body.String())
}

func TestCommitFailureReturnsDraft(t *testing.T) {
	e := newTestEnv(t, deck.Deck{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, nil)
	cookie := e.login(t)

	rec := e.do(t, http.MethodPost, "/api/deck/commit", nil, cookie)
	assert.Equal(t, http.StatusConflict, rec.Code, "not loaded")

	e.do(t, http.MethodGet, "/api/deck", nil, cookie)
	rec = e.do(t, http.MethodPost, "/api/deck/commit", nil, cookie)
	assert.Equal(t, http.StatusConflict, rec.Code, "not editing")

	e.do(t, http.MethodPost, "/api/deck/toggle", gin.H{"cardId": 10}, cookie)
	rec = e.do(t, http.MethodPost, "/api/deck/commit", nil, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "incomplete draft")

	e.do(t, http.MethodPost, "/api/deck/toggle", gin.H{"cardId": 11}, cookie)
	e.api.replaceErr = &auraapi.APIError{Op: "replace deck", Status: http.StatusBadRequest, Message: "Failed to update gem deck"}
	rec = e.do(t, http.MethodPost, "/api/deck/commit", nil, cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Error string         `json:"error"`
		View  companion.View `json:"view"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Failed to update gem deck", body.Error)
	assert.True(t, body.View.Editing)
	assert.Equal(t, deck.Deck{1, 2, 3, 4, 5, 6, 7, 8, 9, 11}, body.View.Draft)
}

func TestToggleUnknownCard(t *testing.T) {
	e := newTestEnv(t, nil, nil)
	cookie := e.login(t)
	e.do(t, http.MethodGet, "/api/deck", nil, cookie)
	rec := e.do(t, http.MethodPost, "/api/deck/toggle", gin.H{"cardId": 77}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListCards(t *testing.T) {
	e := newTestEnv(t, nil, nil)
	cookie := e.login(t)
	rec := e.do(t, http.MethodGet, "/api/cards?effect=Pair", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Count int                  `json:"count"`
		Cards []companion.CardView `json:"cards"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 6, body.Count)
	assert.Equal(t, "Pair + 200 ATK", body.Cards[0].Effect)
}

func TestLogout(t *testing.T) {
	e := newTestEnv(t, nil, nil)
	cookie := e.login(t)
	rec := e.do(t, http.MethodGet, "/api/profile", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"neo"`)

	rec = e.do(t, http.MethodPost, "/api/auth/logout", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(t, http.MethodGet, "/api/profile", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestQR(t *testing.T) {
	e := newTestEnv(t, nil, nil)
	rec := e.do(t, http.MethodGet, "/api/qr?text=gemdeck:1-2&size=128", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())

	rec = e.do(t, http.MethodGet, "/api/qr", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBattleAndGameSocket(t *testing.T) {
	full := deck.Deck{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	e := newTestEnv(t, full, nil)
	cookie := e.login(t)

	rec := e.do(t, http.MethodPost, "/api/battle", nil, cookie)
	assert.Equal(t, http.StatusConflict, rec.Code, "collection not loaded")

	e.do(t, http.MethodGet, "/api/deck", nil, cookie)
	rec = e.do(t, http.MethodPost, "/api/battle", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"attached":false`)

	srv := httptest.NewServer(e.router)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/game/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Cookie": {(&http.Cookie{Name: cookie.Name, Value: cookie.Value}).String()}})
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.WriteJSON(launch.Inbound{Type: "ready"}))
	_ = ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	var out launch.Outbound
	require.NoError(t, ws.ReadJSON(&out))
	assert.Equal(t, launch.Outbound{Channel: "Web", Method: "SetCardDeck", Payload: full.JSON()}, out)

	rec = e.do(t, http.MethodGet, "/api/game/status", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"attached":true,"ready":true,"progress":1,"pending":false}`, rec.Body.String())
}

func TestDeckImage(t *testing.T) {
	art := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/img/002.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_ = png.Encode(w, imaging.New(43, 60, color.NRGBA{R: 200, A: 255}))
	}))
	defer art.Close()
	artwork, err := imagepkg.NewArtwork(art.URL, 8)
	require.NoError(t, err)

	e := newTestEnv(t, deck.Deck{1, 2, 3}, artwork)
	cookie := e.login(t)
	e.do(t, http.MethodGet, "/api/deck", nil, cookie)

	rec := e.do(t, http.MethodGet, "/api/deck/image", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), img.Bounds().Dy())
}
