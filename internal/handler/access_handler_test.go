package handler

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roster-api/internal/models"
)

func TestSessionGate(t *testing.T) {
	srv := newTestServer(t)

	w := srv.doWithToken(t, http.MethodGet, "/students", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = srv.doWithToken(t, http.MethodGet, "/students", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = srv.doWithToken(t, http.MethodPost, "/auth/session", map[string]string{"email": "Diretora@Escola.org"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var session models.Session
	decode(t, w, &session)
	assert.Equal(t, adminEmail, session.Email)
	assert.NotEmpty(t, session.Token)

	assert.Equal(t, http.StatusOK, srv.doWithToken(t, http.MethodGet, "/students", nil, session.Token).Code)

	w = srv.doWithToken(t, http.MethodPost, "/auth/session", map[string]string{"email": "intruso@example.com"}, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = srv.doWithToken(t, http.MethodPost, "/auth/session", map[string]string{"email": "sem-arroba"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUserHandlerGrantAndLookup(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodPost, "/users", map[string]string{"name": "Carla Mendes", "email": "Carla@Escola.org"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var user models.AllowedUser
	decode(t, w, &user)
	assert.Equal(t, "carla@escola.org", user.Email)
	assert.Equal(t, adminEmail, user.InvitedBy)

	w = srv.do(t, http.MethodPost, "/users", map[string]string{"name": "Carla Mendes", "email": "carla@escola.org"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = srv.do(t, http.MethodGet, "/users?email=CARLA@escola.org", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &user)
	assert.Equal(t, "Carla Mendes", user.Name)

	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodGet, "/users?email=ninguem@escola.org", nil).Code)
	assert.Equal(t, http.StatusBadRequest, srv.do(t, http.MethodGet, "/users", nil).Code)

	w = srv.doWithToken(t, http.MethodPost, "/auth/session", map[string]string{"email": "carla@escola.org"}, "")
	assert.Equal(t, http.StatusOK, w.Code, "granted users can start a session")
}

func TestNotificationHandlerList(t *testing.T) {
	srv := newTestServer(t)
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/students", mariaPayload()).Code)
	sibling := mariaPayload()
	sibling["name"] = "pedro silva"
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/students", sibling).Code)

	var notes []models.Notification
	decode(t, srv.do(t, http.MethodGet, "/notifications", nil), &notes)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationWarning, notes[0].Level)
	assert.Equal(t, "CONFLICT", notes[0].Code)

	srv.notifications.Publish(models.NotificationInfo, "Sincronizado", "ok", "")
	decode(t, srv.do(t, http.MethodGet, "/notifications?after="+uintString(notes[0].Seq), nil), &notes)
	require.Len(t, notes, 1)
	assert.Equal(t, "Sincronizado", notes[0].Title)
}

func TestNotificationHandlerRejectsBadCursor(t *testing.T) {
	srv := newTestServer(t)
	c, w := newGinContext(http.MethodGet, "/notifications?after=abc", nil)

	NewNotificationHandler(srv.notifications).List(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w, nil)
	require.NotNil(t, env.Error)
	assert.True(t, env.Error.HasRule("after", "numeric"))
}

func uintString(v uint64) string {
	return strconv.FormatUint(v, 10)
}
