package simulator

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"blogging-web/internal/websocket"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
)

// SimulateActivities runs posting right away and starts comments and likes
// once the first post exists.
func (s *Simulator) SimulateActivities(ctx context.Context) {
	postsAvailable := make(chan struct{})
	var once sync.Once

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.runActivity(ctx, "post", s.config.PostFrequency, func(ctx context.Context, user *SimulatedUser) error {
			if _, err := s.CreatePost(ctx, user); err != nil {
				return err
			}
			once.Do(func() { close(postsAvailable) })
			return nil
		})
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			return
		case <-postsAvailable:
		}
		s.runActivity(ctx, "comment", s.config.CommentFrequency, func(ctx context.Context, user *SimulatedUser) error {
			postID, ok := s.pickPost()
			if !ok {
				return nil
			}
			return s.Comment(ctx, user, postID, gofakeit.Sentence(gofakeit.Number(3, 15)))
		})
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			return
		case <-postsAvailable:
		}
		s.runActivity(ctx, "like", s.config.LikeFrequency, func(ctx context.Context, user *SimulatedUser) error {
			postID, ok := s.pickPost()
			if !ok {
				return nil
			}
			_, err := s.ToggleLike(ctx, user, postID)
			return err
		})
	}()

	wg.Wait()
}

// runActivity hands connected users to a small worker pool every tick. Each
// user acts with probability frequency/hour scaled to the tick length.
func (s *Simulator) runActivity(ctx context.Context, name string, frequency float64, act func(context.Context, *SimulatedUser) error) {
	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	const numWorkers = 5
	jobs := make(chan *SimulatedUser, s.config.NumUsers)
	perTick := frequency / 3600.0 * s.config.TickInterval.Seconds()

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for user := range jobs {
				if err := act(ctx, user); err != nil && ctx.Err() == nil {
					s.logger.Debug("activity failed", "activity", name, "worker", workerID, "user", user.Username, "error", err)
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return
		case <-ticker.C:
			for _, user := range s.snapshotUsers() {
				if !s.isConnected(user) || !s.chance(perTick) {
					continue
				}
				select {
				case jobs <- user:
				default: // workers are saturated
				}
			}
		}
	}
}

// CreatePost uploads a generated cover image with fake article text.
func (s *Simulator) CreatePost(ctx context.Context, user *SimulatedUser) (uuid.UUID, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fields := map[string]string{
		"title":   gofakeit.Sentence(5),
		"intro":   gofakeit.Sentence(12),
		"content": strings.Join([]string{gofakeit.Paragraph(1, 4, 14, " "), gofakeit.Paragraph(1, 4, 14, " ")}, "\n\n"),
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return uuid.Nil, err
		}
	}
	fw, err := mw.CreateFormFile("image", "cover.png")
	if err != nil {
		return uuid.Nil, err
	}
	if err := png.Encode(fw, coverImage()); err != nil {
		return uuid.Nil, err
	}
	if err := mw.Close(); err != nil {
		return uuid.Nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.EngineURL+"/api/posts", &body)
	if err != nil {
		return uuid.Nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var post struct {
		ID uuid.UUID `json:"_id"`
	}
	if err := s.do(user.client, req, &post); err != nil {
		return uuid.Nil, err
	}

	s.mu.Lock()
	s.posts = append(s.posts, post.ID)
	user.Posts = append(user.Posts, post.ID)
	s.mu.Unlock()

	s.stats.mu.Lock()
	s.stats.TotalPosts++
	s.stats.mu.Unlock()
	return post.ID, nil
}

// ToggleLike flips the user's like on a post and reports the new state.
func (s *Simulator) ToggleLike(ctx context.Context, user *SimulatedUser, postID uuid.UUID) (bool, error) {
	var resp struct {
		Liked      bool `json:"liked"`
		TotalLikes int  `json:"totalLikes"`
	}
	endpoint := fmt.Sprintf("/api/posts/%s/like-post", postID)
	if err := s.doJSON(ctx, user.client, http.MethodPost, endpoint, map[string]string{"userId": user.ID.String()}, &resp); err != nil {
		return false, err
	}

	s.stats.mu.Lock()
	if resp.Liked {
		s.stats.TotalLikes++
	} else {
		s.stats.TotalUnlikes++
	}
	s.stats.mu.Unlock()
	return resp.Liked, nil
}

func (s *Simulator) Comment(ctx context.Context, user *SimulatedUser, postID uuid.UUID, text string) error {
	endpoint := fmt.Sprintf("/api/posts/%s/comment", postID)
	if err := s.doJSON(ctx, user.client, http.MethodPost, endpoint, map[string]string{
		"comment":  text,
		"userId":   user.ID.String(),
		"username": user.Username,
	}, nil); err != nil {
		return err
	}

	s.stats.mu.Lock()
	s.stats.TotalComments++
	s.stats.mu.Unlock()
	return nil
}

// watchLiveFeed follows the live activity stream as the first user and
// counts the events it sees.
func (s *Simulator) watchLiveFeed(ctx context.Context) error {
	users := s.snapshotUsers()
	if len(users) == 0 {
		return fmt.Errorf("no users to watch with")
	}

	u, err := url.Parse(s.config.EngineURL)
	if err != nil {
		return err
	}
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	u.Path = "/api/posts/live"
	u.RawQuery = url.Values{"token": {users[0].Token}}.Encode()

	conn, _, err := ws.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		var event websocket.Event
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.stats.mu.Lock()
		s.stats.LiveEvents++
		s.stats.mu.Unlock()
	}
}

// pickPost favours recent posts following a Zipf distribution.
func (s *Simulator) pickPost() (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch len(s.posts) {
	case 0:
		return uuid.Nil, false
	case 1:
		return s.posts[0], true
	}
	zipf := rand.NewZipf(s.rng, s.config.ZipfS, 1, uint64(len(s.posts)-1))
	rank := int(zipf.Uint64())
	return s.posts[len(s.posts)-1-rank], true
}

func (s *Simulator) chance(p float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() < p
}

func (s *Simulator) isConnected(user *SimulatedUser) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return user.IsConnected
}

func coverImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 32, 18))
	c := color.RGBA{
		R: uint8(gofakeit.Number(0, 255)),
		G: uint8(gofakeit.Number(0, 255)),
		B: uint8(gofakeit.Number(0, 255)),
		A: 255,
	}
	for x := 0; x < 32; x++ {
		for y := 0; y < 18; y++ {
			img.Set(x, y, c)
		}
	}
	return img
}
