package simulator

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"blogging-web/internal/config"
	"blogging-web/internal/database"
	"blogging-web/internal/engine"
	"blogging-web/internal/handlers"
	"blogging-web/internal/middleware"
	"blogging-web/internal/storage"
	"blogging-web/internal/utils"
	"blogging-web/internal/websocket"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBlogServer(t *testing.T) (*httptest.Server, *database.MemoryStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{
		Server:      &config.ServerConfig{RequestTimeout: 5 * time.Second},
		Environment: config.EnvDevelopment,
	}

	store := database.NewMemoryStore()
	hub := websocket.NewHub(logger)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	system := actor.NewActorSystem()
	eng := engine.NewEngine(system, store, hub, utils.NewMetricsCollector(), logger, cfg.Server.RequestTimeout)
	images, err := storage.NewImageStore(t.TempDir(), 1<<20)
	require.NoError(t, err)
	tokens := middleware.NewTokenService("sim-secret", config.DefaultTokenTTL, "blogging-web")

	srv := httptest.NewServer(handlers.NewServer(system, eng, hub, images, tokens, utils.NewMetricsCollector(), logger, cfg).Routes())
	t.Cleanup(func() {
		srv.Close()
		eng.Stop()
		cancel()
	})
	return srv, store
}

func newTestSimulator(url string, users int) *Simulator {
	cfg := DefaultSimConfig()
	cfg.EngineURL = url
	cfg.NumUsers = users
	return NewSimulator(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSimulatorDrivesBlogAPI(t *testing.T) {
	srv, store := newBlogServer(t)
	sim := newTestSimulator(srv.URL, 3)
	ctx := context.Background()

	require.NoError(t, sim.createInitialUsers(ctx))
	users := sim.snapshotUsers()
	require.Len(t, users, 3)
	n, err := store.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	postID, err := sim.CreatePost(ctx, users[0])
	require.NoError(t, err)

	liked, err := sim.ToggleLike(ctx, users[1], postID)
	require.NoError(t, err)
	assert.True(t, liked)
	liked, err = sim.ToggleLike(ctx, users[1], postID)
	require.NoError(t, err)
	assert.False(t, liked)

	require.NoError(t, sim.Comment(ctx, users[2], postID, "nice read"))

	post, err := store.GetPost(ctx, postID)
	require.NoError(t, err)
	assert.Zero(t, post.TotalLikes())
	assert.Empty(t, post.LikedBy)
	require.Len(t, post.Comments, 1)
	assert.Equal(t, users[2].Username, post.Comments[0].Username)

	m := sim.GetMetrics()
	assert.Equal(t, 1, m.TotalPosts)
	assert.Equal(t, 1, m.TotalLikes)
	assert.Equal(t, 1, m.TotalUnlikes)
	assert.Equal(t, 1, m.TotalComments)
	assert.Zero(t, m.FailedRequests)
}

func TestSignoutAndSigninCycle(t *testing.T) {
	srv, _ := newBlogServer(t)
	sim := newTestSimulator(srv.URL, 1)
	ctx := context.Background()
	require.NoError(t, sim.createInitialUsers(ctx))
	user := sim.snapshotUsers()[0]

	require.NoError(t, sim.signout(ctx, user))
	require.NoError(t, sim.signin(ctx, user))
	assert.Zero(t, sim.GetMetrics().FailedRequests)
}

func TestPickPostPrefersRecent(t *testing.T) {
	sim := newTestSimulator("http://unused", 1)
	_, ok := sim.pickPost()
	assert.False(t, ok)

	for i := 0; i < 20; i++ {
		sim.posts = append(sim.posts, [16]byte{byte(i + 1)})
	}
	newest := sim.posts[len(sim.posts)-1]
	hits := 0
	for i := 0; i < 1000; i++ {
		id, ok := sim.pickPost()
		require.True(t, ok)
		if id == newest {
			hits++
		}
	}
	// uniform choice would land near 50
	assert.Greater(t, hits, 200)
}

func TestRunStopsWithContext(t *testing.T) {
	srv, _ := newBlogServer(t)
	sim := newTestSimulator(srv.URL, 2)
	sim.config.TickInterval = 20 * time.Millisecond
	sim.config.PostFrequency = 3600 * 20

	// long enough for the bcrypt-bound signups to finish before activity starts
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- sim.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(30 * time.Second):
		t.Fatal("simulation did not stop")
	}
	m := sim.GetMetrics()
	assert.Equal(t, 2, m.TotalUsers)
	assert.Positive(t, m.TotalPosts)
}
