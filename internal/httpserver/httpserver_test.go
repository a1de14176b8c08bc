package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/pokedex/internal/apierr"
	"github.com/Skotchmaster/pokedex/internal/middleware"
	"github.com/Skotchmaster/pokedex/internal/mykafka"
	"github.com/Skotchmaster/pokedex/internal/repo"
	"github.com/Skotchmaster/pokedex/internal/service"
	"github.com/Skotchmaster/pokedex/internal/species"
	pkgdb "github.com/Skotchmaster/pokedex/pkg/db"
	"github.com/Skotchmaster/pokedex/pkg/hash"
	"github.com/Skotchmaster/pokedex/pkg/logging"
	"github.com/Skotchmaster/pokedex/pkg/tokens"
)

const pikachuJSON = `{
	"id": 25,
	"name": "pikachu",
	"abilities": [{"ability": {"name": "static"}}, {"ability": {"name": "lightning-rod"}}],
	"types": [{"type": {"name": "electric"}}]
}`

type testEnv struct {
	E    *echo.Echo
	Repo *repo.GormRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := pkgdb.Open(ctx, "sqlite://:memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = pkgdb.Close(db) })
	require.NoError(t, repo.Migrate(ctx, db))

	r := &repo.GormRepo{DB: db}
	require.NoError(t, r.EnsureRoles(ctx, repo.DefaultRoles...))

	mux := http.NewServeMux()
	mux.HandleFunc("/pikachu", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, pikachuJSON)
	})
	upstream := httptest.NewServer(mux)
	t.Cleanup(upstream.Close)

	tk, err := tokens.NewService([]byte("httpserver-test-secret-0123456789"), 15*time.Minute)
	require.NoError(t, err)

	auth := &service.AuthService{
		Repo:        r,
		Tokens:      tk,
		Hasher:      hash.New(hash.MinIterations),
		DefaultRole: "user",
		Events:      mykafka.Nop{},
	}
	pokedex := &service.PokedexService{
		Repo:    r,
		Species: species.NewClient(upstream.URL, 2*time.Second),
		Events:  mykafka.Nop{},
	}

	e := NewEcho(logging.Discard())
	Register(e, &Deps{
		DB:             db,
		AuthHandler:    &AuthHTTP{Svc: auth},
		PokedexHandler: &PokedexHTTP{Svc: pokedex},
		UsersHandler:   &UsersHTTP{Svc: auth},
		Gate:           middleware.NewGate(auth),
	})
	return &testEnv{E: e, Repo: r}
}

func (env *testEnv) do(t *testing.T, method, path string, body any, token string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) register(t *testing.T, name, email, password string) uint {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/register", RegisterRequest{Name: name, Email: email, Password: password}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var u UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &u))
	return u.ID
}

func (env *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/login", LoginRequest{Email: email, Password: password}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, "Bearer", res.TokenType)
	require.NotEmpty(t, res.AccessToken)
	return res.AccessToken
}

func (env *testEnv) admin(t *testing.T, name, email, password string) string {
	t.Helper()
	id := env.register(t, name, email, password)
	require.NoError(t, env.Repo.AssignRole(context.Background(), id, "admin"))
	return env.login(t, email, password)
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) apierr.Body {
	t.Helper()
	var body apierr.Body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

type pokemonList struct {
	Results []PokemonResponse `json:"results"`
}

func TestEndToEnd_AdminAddsPokemonPlainUserCannot(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	adminToken := env.admin(t, "ash", "ash@example.com", "pallet-town")
	env.register(t, "gary", "gary@example.com", "viridian-city")
	userToken := env.login(t, "gary@example.com", "viridian-city")

	rec := env.do(t, http.MethodPost, "/add/Pikachu", nil, adminToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var added struct {
		Result PokemonResponse `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &added))
	assert.Equal(t, "Pikachu", added.Result.Name)
	assert.Equal(t, []string{"Static", "Lightning-Rod"}, added.Result.Abilities)
	assert.Equal(t, []string{"Electric"}, added.Result.Types)
	assert.Zero(t, added.Result.Rating)
	assert.Equal(t, "https://raw.githubusercontent.com/PokeAPI/sprites/master/sprites/pokemon/25.png", added.Result.Image)
	require.NotNil(t, added.Result.CreatorID)

	rec = env.do(t, http.MethodPost, "/add/Pikachu", nil, userToken)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, apierr.CodeForbidden, errorBody(t, rec).Error)

	for _, token := range []string{adminToken, userToken} {
		rec = env.do(t, http.MethodGet, "/get-all-pokemon", nil, token)
		require.Equal(t, http.StatusOK, rec.Code)

		var list pokemonList
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		require.Len(t, list.Results, 1)
		assert.Equal(t, "Pikachu", list.Results[0].Name)
		assert.Zero(t, list.Results[0].Rating)
	}

	rec = env.do(t, http.MethodPost, "/add/pikachu", nil, adminToken)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apierr.CodePokemonExists, errorBody(t, rec).Error)

	rec = env.do(t, http.MethodPost, "/add/missingno", nil, adminToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuthGate_Responses(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/who-am-i", nil, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apierr.CodeAuthorizationRequired, errorBody(t, rec).Error)

	rec = env.do(t, http.MethodGet, "/who-am-i", nil, "not-a-token")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apierr.CodeAuthorizationRequired, errorBody(t, rec).Error)

	env.register(t, "misty", "misty@example.com", "cerulean-gym")
	token := env.login(t, "misty@example.com", "cerulean-gym")

	rec = env.do(t, http.MethodGet, "/who-am-i", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)

	var who struct {
		CurrentUser UserResponse `json:"current_user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &who))
	assert.Equal(t, "misty", who.CurrentUser.Name)
	assert.Equal(t, "misty@example.com", who.CurrentUser.Email)
	assert.Equal(t, []string{"User"}, who.CurrentUser.Roles)
	assert.NotContains(t, rec.Body.String(), "pbkdf2")
}

func TestLogout_RevokesToken(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.register(t, "brock", "brock@example.com", "pewter-gym")
	token := env.login(t, "brock@example.com", "pewter-gym")

	rec := env.do(t, http.MethodDelete, "/logout", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"logged out"}`, rec.Body.String())

	rec = env.do(t, http.MethodDelete, "/logout", nil, token)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apierr.CodeTokenRevoked, errorBody(t, rec).Error)

	rec = env.do(t, http.MethodGet, "/who-am-i", nil, token)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apierr.CodeTokenRevoked, errorBody(t, rec).Error)

	fresh := env.login(t, "brock@example.com", "pewter-gym")
	rec = env.do(t, http.MethodGet, "/who-am-i", nil, fresh)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterAndLogin_Errors(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.register(t, "oak", "oak@example.com", "professor")

	rec := env.do(t, http.MethodPost, "/register", RegisterRequest{Name: "oak2", Email: "oak@example.com", Password: "x"}, "")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apierr.CodeEmailTaken, errorBody(t, rec).Error)

	rec = env.do(t, http.MethodPost, "/register", RegisterRequest{Name: "oak", Email: "oak2@example.com", Password: "x"}, "")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apierr.CodeNameTaken, errorBody(t, rec).Error)

	rec = env.do(t, http.MethodPost, "/register", RegisterRequest{Name: "elm", Email: "not-an-email", Password: "x"}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apierr.CodeValidation, errorBody(t, rec).Error)

	unknown := env.do(t, http.MethodPost, "/login", LoginRequest{Email: "nobody@example.com", Password: "professor"}, "")
	wrong := env.do(t, http.MethodPost, "/login", LoginRequest{Email: "oak@example.com", Password: "wrong"}, "")
	require.Equal(t, http.StatusUnauthorized, unknown.Code)
	require.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, unknown.Body.String(), wrong.Body.String())
	assert.Equal(t, apierr.CodeInvalidCredentials, errorBody(t, wrong).Error)
}

func TestChangePassword(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.register(t, "erika", "erika@example.com", "celadon-gym")
	token := env.login(t, "erika@example.com", "celadon-gym")

	rec := env.do(t, http.MethodPost, "/change-password", ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "rainbow-badge"}, token)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apierr.CodeInvalidCredentials, errorBody(t, rec).Error)
	env.login(t, "erika@example.com", "celadon-gym")

	rec = env.do(t, http.MethodPost, "/change-password", ChangePasswordRequest{CurrentPassword: "celadon-gym"}, token)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/change-password", ChangePasswordRequest{CurrentPassword: "celadon-gym", NewPassword: "rainbow-badge"}, token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/login", LoginRequest{Email: "erika@example.com", Password: "celadon-gym"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	env.login(t, "erika@example.com", "rainbow-badge")
}

func TestCookieSession_RequiresCSRFToken(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.register(t, "sabrina", "sabrina@example.com", "saffron-gym")
	rec := env.do(t, http.MethodPost, "/login", LoginRequest{Email: "sabrina@example.com", Password: "saffron-gym"}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var access *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == middleware.AccessCookieName {
			access = ck
		}
	}
	require.NotNil(t, access)
	assert.True(t, access.HttpOnly)
	session := &http.Cookie{Name: access.Name, Value: access.Value}

	rec = env.do(t, http.MethodGet, "/who-am-i", nil, "", session)
	require.Equal(t, http.StatusOK, rec.Code)
	csrfToken := rec.Header().Get("X-CSRF-Token")
	require.NotEmpty(t, csrfToken)

	rec = env.do(t, http.MethodDelete, "/logout", nil, "", session)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodDelete, "/logout", nil)
	req.Header.Set("X-CSRF-Token", csrfToken)
	req.AddCookie(session)
	req.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: csrfToken})
	out := httptest.NewRecorder()
	env.E.ServeHTTP(out, req)
	assert.Equal(t, http.StatusOK, out.Code)
}

func TestPokemonRoutes(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	token := env.admin(t, "lance", "lance@example.com", "dragon-master")
	rec := env.do(t, http.MethodPost, "/add/pikachu", nil, token)
	require.Equal(t, http.StatusCreated, rec.Code)

	var added struct {
		Result PokemonResponse `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &added))
	id := added.Result.ID

	tests := []struct {
		name   string
		method string
		path   string
		status int
		code   string
	}{
		{name: "get by id", method: http.MethodGet, path: "/pokemon/1", status: http.StatusOK},
		{name: "get bad id", method: http.MethodGet, path: "/pokemon/abc", status: http.StatusBadRequest, code: apierr.CodeValidation},
		{name: "get missing", method: http.MethodGet, path: "/pokemon/999", status: http.StatusNotFound, code: apierr.CodeNotFound},
		{name: "rating not a number", method: http.MethodPost, path: "/edit-pokemon/1?rating=eleven", status: http.StatusBadRequest, code: apierr.CodeValidation},
		{name: "rating out of range", method: http.MethodPost, path: "/edit-pokemon/1?rating=11", status: http.StatusBadRequest, code: apierr.CodeValidation},
		{name: "rating on missing", method: http.MethodPost, path: "/edit-pokemon/999?rating=5", status: http.StatusNotFound, code: apierr.CodeNotFound},
		{name: "search without name", method: http.MethodGet, path: "/search", status: http.StatusBadRequest, code: apierr.CodeValidation},
		{name: "search unknown", method: http.MethodGet, path: "/search?pokemon_name=missingno", status: http.StatusNotFound, code: apierr.CodeNotFound},
		{name: "search known", method: http.MethodGet, path: "/search?pokemon_name=Pikachu", status: http.StatusOK},
		{name: "delete missing", method: http.MethodDelete, path: "/delete/999", status: http.StatusNotFound, code: apierr.CodeNotFound},
	}

	for _, tt := range tests {
		rec := env.do(t, tt.method, tt.path, nil, token)
		require.Equal(t, tt.status, rec.Code, "%s: %s", tt.name, rec.Body.String())
		if tt.code != "" {
			assert.Equal(t, tt.code, errorBody(t, rec).Error, tt.name)
		}
	}

	rec = env.do(t, http.MethodGet, "/search?pokemon_name=missingno", nil, token)
	assert.Equal(t, "There is no pokemon named missingno", errorBody(t, rec).Message)

	rec = env.do(t, http.MethodPost, "/edit-pokemon/1?rating=7.5", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rating":7.5`)

	rec = env.do(t, http.MethodGet, "/pokemon/find?q=elec", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var found pokemonList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &found))
	require.Len(t, found.Results, 1)
	assert.Equal(t, id, found.Results[0].ID)

	rec = env.do(t, http.MethodGet, "/get-all-pokemon?page=1&size=5", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)

	rec = env.do(t, http.MethodDelete, "/delete/1", nil, token)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodGet, "/pokemon/1", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminUsers(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	adminToken := env.admin(t, "giovanni", "giovanni@example.com", "team-rocket")
	jessieID := env.register(t, "jessie", "jessie@example.com", "prepare-for-trouble")
	jessieToken := env.login(t, "jessie@example.com", "prepare-for-trouble")

	rec := env.do(t, http.MethodGet, "/get-all-users", nil, jessieToken)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/get-all-users", nil, adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")

	var users struct {
		Results []UserResponse `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users.Results, 2)

	rec = env.do(t, http.MethodDelete, "/users/abc", nil, adminToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodDelete, "/users/"+itoa(jessieID), nil, adminToken)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/who-am-i", nil, jessieToken)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apierr.CodeAuthorizationRequired, errorBody(t, rec).Error)

	rec = env.do(t, http.MethodDelete, "/users/"+itoa(jessieID), nil, adminToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOperationalRoutes(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	for _, path := range []string{"/", "/health/live", "/health/ready", "/metrics"} {
		rec := env.do(t, http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestLoginRateLimit(t *testing.T) {
	t.Parallel()

	e := NewEcho(logging.Discard())
	e.POST("/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, loginLimiter(1)...)

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "192.0.2.10:1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, http.StatusOK, codes[0])
	assert.Contains(t, codes, http.StatusTooManyRequests)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
