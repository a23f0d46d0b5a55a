package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

type SimConfig struct {
	NumUsers         int
	SimulationTime   time.Duration
	PostFrequency    float64 // posts per user per hour
	CommentFrequency float64 // comments per user per hour
	LikeFrequency    float64 // like toggles per user per hour
	DisconnectRate   float64
	ReconnectRate    float64
	ZipfS            float64
	TickInterval     time.Duration
	EngineURL        string
}

// DefaultSimConfig mirrors a small, busy blog.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		NumUsers:         10,
		SimulationTime:   5 * time.Minute,
		PostFrequency:    20.0,
		CommentFrequency: 120.0,
		LikeFrequency:    240.0,
		DisconnectRate:   0.01,
		ReconnectRate:    0.05,
		ZipfS:            1.07,
		TickInterval:     500 * time.Millisecond,
		EngineURL:        "http://localhost:8000",
	}
}

type SimulationStats struct {
	mu              sync.RWMutex
	StartTime       time.Time
	TotalRequests   int64
	SuccessRequests int64
	FailedRequests  int64
	TotalLatency    time.Duration
	TotalPosts      int
	TotalComments   int
	TotalLikes      int
	TotalUnlikes    int
	LiveEvents      int
}

// SimulatedUser is one signed-up account. Its client carries the session
// cookie, so every request it makes is authenticated.
type SimulatedUser struct {
	ID          uuid.UUID
	Username    string
	Email       string
	Password    string
	Token       string
	IsConnected bool
	LastActive  time.Time
	Posts       []uuid.UUID
	client      *http.Client
}

type Simulator struct {
	config SimConfig
	stats  *SimulationStats
	users  []*SimulatedUser
	posts  []uuid.UUID // creation order, oldest first
	logger *slog.Logger
	rng    *rand.Rand
	mu     sync.RWMutex
}

func NewSimulator(config SimConfig, logger *slog.Logger) *Simulator {
	if config.TickInterval <= 0 {
		config.TickInterval = 500 * time.Millisecond
	}
	if config.ZipfS <= 1 {
		config.ZipfS = 1.07
	}
	return &Simulator{
		config: config,
		stats:  &SimulationStats{StartTime: time.Now()},
		logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Simulator) Run(ctx context.Context) error {
	s.logger.Info("starting simulation",
		"engine_url", s.config.EngineURL,
		"users", s.config.NumUsers,
		"duration", s.config.SimulationTime)

	if err := s.createInitialUsers(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.SimulateActivities(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.simulateConnectivity(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.watchLiveFeed(ctx); err != nil {
			s.logger.Warn("live feed unavailable", "error", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.collectMetrics(ctx)
	}()

	wg.Wait()
	return nil
}

func newUserClient() (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &http.Client{Jar: jar, Timeout: 10 * time.Second}, nil
}

func (s *Simulator) createInitialUsers(ctx context.Context) error {
	const numWorkers = 5
	jobs := make(chan int)
	results := make(chan *SimulatedUser, s.config.NumUsers)

	rateLimiter := time.NewTicker(50 * time.Millisecond)
	defer rateLimiter.Stop()

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for range jobs {
				select {
				case <-ctx.Done():
					return
				case <-rateLimiter.C:
				}

				user, err := s.signupWithRetry(ctx)
				if err != nil {
					s.logger.Warn("user signup failed", "worker", workerID, "error", err)
					continue
				}
				results <- user
			}
		}(i)
	}

	go func() {
		defer close(jobs)
		for i := 0; i < s.config.NumUsers; i++ {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()

	wg.Wait()
	close(results)

	s.mu.Lock()
	for user := range results {
		s.users = append(s.users, user)
	}
	created := len(s.users)
	s.mu.Unlock()

	if created == 0 {
		return fmt.Errorf("no users could be created")
	}
	s.logger.Info("users created", "count", created)
	return nil
}

func (s *Simulator) signupWithRetry(ctx context.Context) (*SimulatedUser, error) {
	var err error
	for retries := 0; retries < 3; retries++ {
		var user *SimulatedUser
		if user, err = s.signup(ctx); err == nil {
			return user, nil
		}
		backoff := time.Duration(math.Pow(2, float64(retries))) * 100 * time.Millisecond
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, err
}

// signup registers a fresh fake account and keeps its session cookie.
func (s *Simulator) signup(ctx context.Context) (*SimulatedUser, error) {
	client, err := newUserClient()
	if err != nil {
		return nil, err
	}
	user := &SimulatedUser{
		Username:    gofakeit.Username(),
		Email:       fmt.Sprintf("%s.%s", uuid.NewString()[:8], gofakeit.Email()),
		Password:    gofakeit.Password(true, true, true, false, false, 14),
		IsConnected: true,
		LastActive:  time.Now(),
		client:      client,
	}

	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID uuid.UUID `json:"_id"`
		} `json:"user"`
	}
	if err := s.doJSON(ctx, client, http.MethodPost, "/api/auth/signup", map[string]string{
		"username": user.Username,
		"email":    user.Email,
		"password": user.Password,
	}, &resp); err != nil {
		return nil, err
	}
	user.ID = resp.User.ID
	user.Token = resp.Token
	return user, nil
}

// signin refreshes a user's session after a simulated disconnect.
func (s *Simulator) signin(ctx context.Context, user *SimulatedUser) error {
	return s.doJSON(ctx, user.client, http.MethodPost, "/api/auth/signin", map[string]string{
		"email":    user.Email,
		"password": user.Password,
	}, nil)
}

func (s *Simulator) signout(ctx context.Context, user *SimulatedUser) error {
	return s.doJSON(ctx, user.client, http.MethodPost, "/api/auth/signout", nil, nil)
}

func (s *Simulator) simulateConnectivity(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, user := range s.snapshotUsers() {
				s.mu.Lock()
				connected := user.IsConnected
				roll := s.rng.Float64()
				s.mu.Unlock()

				switch {
				case connected && roll < s.config.DisconnectRate:
					if err := s.signout(ctx, user); err == nil {
						s.setConnected(user, false)
					}
				case !connected && roll < s.config.ReconnectRate:
					if err := s.signin(ctx, user); err == nil {
						s.setConnected(user, true)
					}
				}
			}
		}
	}
}

func (s *Simulator) setConnected(user *SimulatedUser, connected bool) {
	s.mu.Lock()
	user.IsConnected = connected
	user.LastActive = time.Now()
	s.mu.Unlock()
}

func (s *Simulator) snapshotUsers() []*SimulatedUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*SimulatedUser(nil), s.users...)
}

// doJSON sends body as JSON and decodes a 2xx reply into out. Non-2xx
// replies become errors carrying the server's message.
func (s *Simulator) doJSON(ctx context.Context, client *http.Client, method, endpoint string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.EngineURL+endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.do(client, req, out)
}

func (s *Simulator) do(client *http.Client, req *http.Request, out interface{}) error {
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		s.recordRequestMetrics(start, err)
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err == nil && resp.StatusCode >= 300 {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &apiErr)
		err = fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, apiErr.Message)
	}
	if err == nil && out != nil {
		err = json.Unmarshal(raw, out)
	}
	s.recordRequestMetrics(start, err)
	return err
}

func (s *Simulator) recordRequestMetrics(start time.Time, err error) {
	s.stats.mu.Lock()
	defer s.stats.mu.Unlock()
	s.stats.TotalRequests++
	s.stats.TotalLatency += time.Since(start)
	if err != nil {
		s.stats.FailedRequests++
		return
	}
	s.stats.SuccessRequests++
}

func (s *Simulator) collectMetrics(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m := s.GetMetrics()
			s.logger.Info("simulation progress",
				"requests", m.TotalRequests,
				"failed", m.FailedRequests,
				"avg_latency", m.AverageLatency,
				"active_users", m.ActiveUsers,
				"posts", m.TotalPosts,
				"comments", m.TotalComments,
				"likes", m.TotalLikes,
				"live_events", m.LiveEvents)
		}
	}
}

type SimulationMetrics struct {
	Uptime         time.Duration
	TotalUsers     int
	ActiveUsers    int
	TotalRequests  int64
	FailedRequests int64
	AverageLatency time.Duration
	TotalPosts     int
	TotalComments  int
	TotalLikes     int
	TotalUnlikes   int
	LiveEvents     int
}

func (s *Simulator) GetMetrics() SimulationMetrics {
	s.mu.RLock()
	total, active := len(s.users), 0
	for _, u := range s.users {
		if u.IsConnected {
			active++
		}
	}
	s.mu.RUnlock()

	s.stats.mu.RLock()
	defer s.stats.mu.RUnlock()
	var avg time.Duration
	if s.stats.TotalRequests > 0 {
		avg = s.stats.TotalLatency / time.Duration(s.stats.TotalRequests)
	}
	return SimulationMetrics{
		Uptime:         time.Since(s.stats.StartTime),
		TotalUsers:     total,
		ActiveUsers:    active,
		TotalRequests:  s.stats.TotalRequests,
		FailedRequests: s.stats.FailedRequests,
		AverageLatency: avg,
		TotalPosts:     s.stats.TotalPosts,
		TotalComments:  s.stats.TotalComments,
		TotalLikes:     s.stats.TotalLikes,
		TotalUnlikes:   s.stats.TotalUnlikes,
		LiveEvents:     s.stats.LiveEvents,
	}
}
