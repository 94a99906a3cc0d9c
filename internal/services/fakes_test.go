package services

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/yoockh/speechrelay/internal/models"
	"github.com/yoockh/speechrelay/internal/transport"
	"github.com/yoockh/speechrelay/internal/utils"
)

type memUsers struct {
	mu   sync.Mutex
	byID map[string]*models.User
}

func newMemUsers() *memUsers { return &memUsers{byID: map[string]*models.User{}} }

func (m *memUsers) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.byID {
		if x.Email == u.Email {
			return utils.ErrDuplicate
		}
	}
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, utils.ErrNotFound
}

func (m *memUsers) Update(_ context.Context, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return utils.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "name":
			u.Name = v.(string)
		case "phone_no":
			u.PhoneNo = v.(string)
		case "language":
			u.Language = v.(string)
		case "status":
			u.Status = models.UserStatus(v.(string))
		case "profile_image":
			u.ProfileImage = v.(string)
		}
	}
	return nil
}

type memRooms struct {
	mu    sync.Mutex
	rooms []*models.Room
}

func (m *memRooms) Upsert(_ context.Context, r *models.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.rooms {
		if x.SID == r.SID {
			x.NumParticipants = r.NumParticipants
			return nil
		}
	}
	cp := *r
	cp.CreatedAt = time.Now()
	m.rooms = append(m.rooms, &cp)
	return nil
}

func (m *memRooms) find(match func(*models.Room) bool) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.rooms {
		if match(x) {
			cp := *x
			return &cp, nil
		}
	}
	return nil, utils.ErrNotFound
}

func (m *memRooms) GetBySID(_ context.Context, sid string) (*models.Room, error) {
	return m.find(func(r *models.Room) bool { return r.SID == sid })
}

func (m *memRooms) GetByName(_ context.Context, name string) (*models.Room, error) {
	return m.find(func(r *models.Room) bool { return r.Name == name })
}

func (m *memRooms) List(_ context.Context, limit int) ([]models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, *r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRooms) DeleteByNameAndUser(_ context.Context, name, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	kept := m.rooms[:0]
	for _, r := range m.rooms {
		if r.Name == name && r.UserID == userID {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.rooms = kept
	return n, nil
}

type memTokens struct {
	mu     sync.Mutex
	tokens []models.RoomToken
}

func (m *memTokens) Insert(_ context.Context, t *models.RoomToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = append(m.tokens, *t)
	return nil
}

func (m *memTokens) LatestByUser(_ context.Context, roomID, userID string) (*models.RoomToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.tokens) - 1; i >= 0; i-- {
		if m.tokens[i].RoomID == roomID && m.tokens[i].UserID == userID {
			t := m.tokens[i]
			return &t, nil
		}
	}
	return nil, utils.ErrNotFound
}

type fakeMedia struct {
	mu      sync.Mutex
	rooms   map[string]transport.Room
	listErr error
	deleted []string
	next    int
}

func newFakeMedia() *fakeMedia { return &fakeMedia{rooms: map[string]transport.Room{}} }

func (f *fakeMedia) SendData(context.Context, string, []byte, transport.DataKind) error { return nil }

func (f *fakeMedia) CreateRoom(_ context.Context, name string, opts transport.RoomOptions) (*transport.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.rooms[name]; ok {
		return &r, nil
	}
	f.next++
	r := transport.Room{
		SID:             "RM_" + name,
		Name:            name,
		EmptyTimeout:    opts.EmptyTimeout,
		MaxParticipants: opts.MaxParticipants,
		Metadata:        opts.Metadata,
		CreationTime:    int64(f.next),
		EnabledCodecs:   []transport.Codec{{Mime: "audio/opus"}},
	}
	f.rooms[name] = r
	return &r, nil
}

func (f *fakeMedia) ListRooms(_ context.Context, names ...string) ([]transport.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []transport.Room
	for _, n := range names {
		if r, ok := f.rooms[n]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeMedia) DeleteRoom(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rooms[name]; !ok {
		return transport.ErrRoomNotFound
	}
	delete(f.rooms, name)
	f.deleted = append(f.deleted, name)
	return nil
}

type fakeUploader struct {
	objects map[string]string
}

func (f *fakeUploader) Upload(_ context.Context, objectName, contentType string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if f.objects == nil {
		f.objects = map[string]string{}
	}
	f.objects[objectName] = string(b)
	return "https://storage.googleapis.com/test-bucket/" + objectName, nil
}
