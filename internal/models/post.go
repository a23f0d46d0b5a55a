package models

import (
	"encoding/json"
	"strings"
	"time"

	"blogging-web/internal/utils"

	"github.com/google/uuid"
)

type Post struct {
	ID        uuid.UUID
	Title     string
	Intro     string
	Content   string
	ImageURL  string
	CreatedAt time.Time
	LikedBy   []uuid.UUID // each user at most once
	Comments  []Comment
}

// NewPost validates the required fields. LikedBy and Comments start empty.
func NewPost(title, intro, content, imageURL string) (*Post, error) {
	title = strings.TrimSpace(title)
	intro = strings.TrimSpace(intro)
	if title == "" || intro == "" || strings.TrimSpace(content) == "" {
		return nil, utils.NewValidationError("Title, intro and content are required")
	}
	if imageURL == "" {
		return nil, utils.NewValidationError("Image required")
	}

	return &Post{
		ID:        uuid.New(),
		Title:     title,
		Intro:     intro,
		Content:   content,
		ImageURL:  imageURL,
		CreatedAt: time.Now().UTC(),
		LikedBy:   []uuid.UUID{},
		Comments:  []Comment{},
	}, nil
}

// TotalLikes is the size of the liked-by set.
func (p *Post) TotalLikes() int {
	return len(p.LikedBy)
}

// IsLikedBy reports whether userID is in the liked-by set.
func (p *Post) IsLikedBy(userID uuid.UUID) bool {
	for _, id := range p.LikedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// ToggleLike flips userID's membership in LikedBy and reports whether the
// user now likes the post.
func (p *Post) ToggleLike(userID uuid.UUID) bool {
	for i, id := range p.LikedBy {
		if id == userID {
			p.LikedBy = append(p.LikedBy[:i:i], p.LikedBy[i+1:]...)
			return false
		}
	}
	p.LikedBy = append(p.LikedBy, userID)
	return true
}

// Clone returns a deep copy so callers can't mutate shared state.
func (p *Post) Clone() *Post {
	cp := *p
	cp.LikedBy = append([]uuid.UUID{}, p.LikedBy...)
	cp.Comments = append([]Comment{}, p.Comments...)
	return &cp
}

type postJSON struct {
	ID        uuid.UUID   `json:"_id"`
	Title     string      `json:"title"`
	Intro     string      `json:"intro"`
	Content   string      `json:"content"`
	ImageURL  string      `json:"imageUrl"`
	Likes     int         `json:"likes"`
	LikedBy   []uuid.UUID `json:"likedBy"`
	Comments  []Comment   `json:"comments"`
	CreatedAt time.Time   `json:"createdAt"`
}

// MarshalJSON adds the derived likes count and never emits null lists.
func (p *Post) MarshalJSON() ([]byte, error) {
	out := postJSON{
		ID:        p.ID,
		Title:     p.Title,
		Intro:     p.Intro,
		Content:   p.Content,
		ImageURL:  p.ImageURL,
		Likes:     len(p.LikedBy),
		LikedBy:   p.LikedBy,
		Comments:  p.Comments,
		CreatedAt: p.CreatedAt,
	}
	if out.LikedBy == nil {
		out.LikedBy = []uuid.UUID{}
	}
	if out.Comments == nil {
		out.Comments = []Comment{}
	}
	return json.Marshal(out)
}

func (p *Post) UnmarshalJSON(data []byte) error {
	var in postJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*p = Post{
		ID:        in.ID,
		Title:     in.Title,
		Intro:     in.Intro,
		Content:   in.Content,
		ImageURL:  in.ImageURL,
		CreatedAt: in.CreatedAt,
		LikedBy:   in.LikedBy,
		Comments:  in.Comments,
	}
	return nil
}
