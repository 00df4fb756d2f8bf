package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/studysync-backend/internal/data/repos"
	"github.com/yungbote/studysync-backend/internal/data/repos/testutil"
	types "github.com/yungbote/studysync-backend/internal/domain"
	"github.com/yungbote/studysync-backend/internal/platform/apierr"
	"github.com/yungbote/studysync-backend/internal/platform/ctxutil"
	"github.com/yungbote/studysync-backend/internal/platform/dbctx"
)

func TestAuthLoginAndTokenRoundTrip(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	userRepo := repos.NewUserRepo(db, log)

	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	_, err = userRepo.EnsureByEmail(dbctx.Context{}, &types.User{
		Email: "leader@example.com", Password: hash, FirstName: "L", LastName: "D", Role: types.RoleLeader,
	})
	require.NoError(t, err)

	auth := NewAuthService(log, userRepo, "test-secret", time.Hour)
	ctx := context.Background()

	_, err = auth.Login(ctx, "leader@example.com", "wrong")
	assert.Equal(t, http.StatusUnauthorized, apierr.StatusOf(err))
	_, err = auth.Login(ctx, "", "")
	assert.Equal(t, http.StatusUnprocessableEntity, apierr.StatusOf(err))

	res, err := auth.Login(ctx, " Leader@Example.com ", "correct horse")
	require.NoError(t, err)
	require.NotEmpty(t, res.AccessToken)
	assert.True(t, res.ExpiresAt.After(time.Now()))

	withSocket := ctxutil.WithRequestData(ctx, &ctxutil.RequestData{SocketID: "abc"})
	authed, err := auth.SetContextFromToken(withSocket, res.AccessToken)
	require.NoError(t, err)
	rd := ctxutil.GetRequestData(authed)
	require.NotNil(t, rd)
	assert.Equal(t, res.User.ID, rd.UserID)
	assert.Equal(t, types.RoleLeader, rd.Role)
	assert.Equal(t, "abc", rd.SocketID)

	other := NewAuthService(log, userRepo, "other-secret", time.Hour)
	_, err = other.SetContextFromToken(ctx, res.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, apierr.StatusOf(err))

	expired := NewAuthService(log, userRepo, "test-secret", -time.Minute)
	tok, _, err := expired.IssueToken(res.User)
	require.NoError(t, err)
	_, err = auth.SetContextFromToken(ctx, tok)
	assert.Equal(t, http.StatusUnauthorized, apierr.StatusOf(err))
}

func TestRealtimeConfigReflect(t *testing.T) {
	cases := []struct {
		name   string
		cfg    RealtimeConfig
		host   string
		scheme string
		want   RealtimeMetadata
	}{
		{
			name:   "bind address replaced by request host",
			cfg:    RealtimeConfig{AppKey: "k", Host: "0.0.0.0", Port: 8080},
			host:   "study.example.com:443",
			scheme: "https",
			want:   RealtimeMetadata{Key: "k", Host: "study.example.com", Port: 8080, Scheme: "https"},
		},
		{
			name:   "configured public host kept",
			cfg:    RealtimeConfig{AppKey: "k", Host: "ws.example.com", Scheme: "HTTPS"},
			host:   "tunnel.example.net",
			scheme: "http",
			want:   RealtimeMetadata{Key: "k", Host: "ws.example.com", Port: 0, Scheme: "https"},
		},
		{
			name: "nothing configured",
			host: "localhost:8000",
			want: RealtimeMetadata{Host: "localhost", Scheme: "http"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.cfg.Reflect(tc.host, tc.scheme))
		})
	}

	assert.True(t, RealtimeConfig{}.KeyMatches("anything"))
	assert.False(t, RealtimeConfig{AppKey: "k"}.KeyMatches("x"))
}
