package catalog

import (
	"encoding/json"
	"fmt"
)

// SessionID is the fixed key of the single session record.
const SessionID = "current_session"

// Record is anything stored by id in a collection.
type Record interface {
	RecordID() string
}

// Service is a course or programme offered by the studio. IconType names a
// glyph; resolving it for display is the caller's job.
type Service struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	IconType        string   `json:"iconType"`
	LongDescription string   `json:"longDescription"`
	Details         []string `json:"details"`
	FullImage       string   `json:"fullImage"`
}

func (s Service) RecordID() string { return s.ID }

// Category is the closed set of resource categories.
type Category string

const (
	CategoryParenting Category = "parenting"
	CategoryReading   Category = "reading"
	CategoryCrafts    Category = "crafts"
)

// Categories lists every valid Category.
var Categories = []Category{CategoryParenting, CategoryReading, CategoryCrafts}

// ParseCategory validates s against the closed category set.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unknown category %q (want parenting, reading or crafts)", ErrInvalidInput, s)
}

// Resource is an article in the studio's reading room.
type Resource struct {
	ID       string   `json:"id"`
	Category Category `json:"category"`
	Title    string   `json:"title"`
	Summary  string   `json:"summary"`
	Image    string   `json:"image"`
	Date     string   `json:"date,omitempty"`
	Author   string   `json:"author,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Content  []string `json:"content"`
}

func (r Resource) RecordID() string { return r.ID }

// User is the identity returned by a backend on login. Fields the backend
// sends beyond the modelled ones are kept in Extra and written back verbatim.
type User struct {
	Email  string
	Name   string
	Avatar string
	Extra  map[string]json.RawMessage
}

func (u User) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(u.Extra, map[string]string{
		"email":  u.Email,
		"name":   u.Name,
		"avatar": u.Avatar,
	})
}

func (u *User) UnmarshalJSON(data []byte) error {
	raw, err := unmarshalWithExtra(data, map[string]*string{
		"email":  &u.Email,
		"name":   &u.Name,
		"avatar": &u.Avatar,
	})
	if err != nil {
		return err
	}
	u.Extra = raw
	return nil
}

// Session is the persisted login. There is at most one, keyed by SessionID.
// Token is empty for sessions created by the local fallback.
type Session struct {
	ID     string
	Email  string
	Name   string
	Avatar string
	Token  string
	Extra  map[string]json.RawMessage
}

func (s Session) RecordID() string { return s.ID }

// User returns the identity part of the session.
func (s Session) User() User {
	return User{Email: s.Email, Name: s.Name, Avatar: s.Avatar, Extra: s.Extra}
}

func newSession(u User, token string) Session {
	return Session{
		ID:     SessionID,
		Email:  u.Email,
		Name:   u.Name,
		Avatar: u.Avatar,
		Token:  token,
		Extra:  u.Extra,
	}
}

func (s Session) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(s.Extra, map[string]string{
		"id":     s.ID,
		"email":  s.Email,
		"name":   s.Name,
		"avatar": s.Avatar,
		"token":  s.Token,
	})
}

func (s *Session) UnmarshalJSON(data []byte) error {
	raw, err := unmarshalWithExtra(data, map[string]*string{
		"id":     &s.ID,
		"email":  &s.Email,
		"name":   &s.Name,
		"avatar": &s.Avatar,
		"token":  &s.Token,
	})
	if err != nil {
		return err
	}
	s.Extra = raw
	return nil
}

// marshalWithExtra writes extra first so that modelled fields win, and omits
// empty modelled strings.
func marshalWithExtra(extra map[string]json.RawMessage, known map[string]string) ([]byte, error) {
	m := make(map[string]json.RawMessage, len(extra)+len(known))
	for k, v := range extra {
		m[k] = v
	}
	for k, v := range known {
		if v == "" {
			delete(m, k)
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		m[k] = b
	}
	return json.Marshal(m)
}

// unmarshalWithExtra fills the known string fields and returns the rest.
// A known key holding a non-string value is left in the rest.
func unmarshalWithExtra(data []byte, known map[string]*string) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for k, dst := range known {
		v, ok := raw[k]
		if !ok {
			continue
		}
		if err := json.Unmarshal(v, dst); err != nil {
			continue
		}
		delete(raw, k)
	}
	if len(raw) == 0 {
		raw = nil
	}
	return raw, nil
}
