package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/whatifmusic/beatwave/internal/models"
	"github.com/whatifmusic/beatwave/libs/apperrors"
	"github.com/whatifmusic/beatwave/libs/auth/roles"
)

// mockContentRepository is an in-memory implementation of CatalogRepository and ContentRepository
type mockContentRepository struct {
	items      map[string]*models.ContentItem
	lastFilter models.BeatFilter
	err        error
	created    *models.ContentItem
	updated    *models.ContentRequest
	deletedID  string
	inserted   []models.ContentItem
}

func newMockContentRepository(items ...models.ContentItem) *mockContentRepository {
	m := &mockContentRepository{items: map[string]*models.ContentItem{}}
	for i := range items {
		m.items[items[i].ID] = &items[i]
	}
	return m
}

func (m *mockContentRepository) GetBeats(ctx context.Context, filter models.BeatFilter) ([]models.ContentItem, error) {
	m.lastFilter = filter
	if m.err != nil {
		return nil, m.err
	}
	return m.GetAll(ctx, models.ContentTypeBeat)
}

func (m *mockContentRepository) GetAll(ctx context.Context, contentType models.ContentType) ([]models.ContentItem, error) {
	if m.err != nil {
		return nil, m.err
	}
	var result []models.ContentItem
	for _, item := range m.items {
		if item.Type == contentType {
			result = append(result, *item)
		}
	}
	return result, nil
}

func (m *mockContentRepository) GetByID(ctx context.Context, contentType models.ContentType, id string) (*models.ContentItem, error) {
	if m.err != nil {
		return nil, m.err
	}
	item, ok := m.items[id]
	if !ok || item.Type != contentType {
		return nil, apperrors.ErrNotFound
	}
	copied := *item
	return &copied, nil
}

func (m *mockContentRepository) Create(ctx context.Context, item *models.ContentItem) error {
	if m.err != nil {
		return m.err
	}
	m.created = item
	m.items[item.ID] = item
	return nil
}

func (m *mockContentRepository) Update(ctx context.Context, contentType models.ContentType, id string, req *models.ContentRequest) error {
	if m.err != nil {
		return m.err
	}
	item, ok := m.items[id]
	if !ok || item.Type != contentType {
		return apperrors.ErrNotFound
	}
	m.updated = req
	if req.Title != nil {
		item.Title = *req.Title
	}
	if req.Tags != nil {
		item.Tags = *req.Tags
	}
	return nil
}

func (m *mockContentRepository) Delete(ctx context.Context, contentType models.ContentType, id string) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.items[id]; !ok {
		return apperrors.ErrNotFound
	}
	m.deletedID = id
	delete(m.items, id)
	return nil
}

func (m *mockContentRepository) InsertIgnore(ctx context.Context, items []models.ContentItem) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	inserted := 0
	for _, item := range items {
		if _, ok := m.items[item.ID]; ok {
			continue
		}
		m.items[item.ID] = &item
		inserted++
	}
	m.inserted = items
	return inserted, nil
}

// mockObjectStorage is a mock implementation of ObjectStorage
type mockObjectStorage struct {
	files     map[string]string
	deleteErr error
	createErr error
	listErr   error
	deleted   []string
}

func newMockObjectStorage() *mockObjectStorage {
	return &mockObjectStorage{files: map[string]string{}}
}

type memoryObject struct {
	strings.Builder
	save func(string)
}

func (o *memoryObject) Close() error {
	o.save(o.String())
	return nil
}

func (m *mockObjectStorage) Create(bucket, objectPath string) (io.WriteCloser, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	key := bucket + "/" + objectPath
	return &memoryObject{save: func(s string) { m.files[key] = s }}, nil
}

func (m *mockObjectStorage) OpenFile(bucket, objectPath string) (*os.File, error) {
	return nil, apperrors.ErrNotFound
}

func (m *mockObjectStorage) Delete(bucket, objectPath string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	key := bucket + "/" + objectPath
	m.deleted = append(m.deleted, key)
	delete(m.files, key)
	return nil
}

func (m *mockObjectStorage) List(ctx context.Context) ([]models.StorageObject, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var objects []models.StorageObject
	for key, content := range m.files {
		bucket, p, _ := strings.Cut(key, "/")
		objects = append(objects, models.StorageObject{Bucket: bucket, Path: p, Size: int64(len(content))})
	}
	return objects, nil
}

// mockUserRepository is a mock implementation of UserRepository and AdminUserRepository
type mockUserRepository struct {
	users      map[string]*models.User
	profiles   map[string]*models.Profile
	err        error
	existsErr  error
	profileErr error
	deleteErr  error
	list       []models.UserWithRole
	deleted    []string
}

func newMockUserRepository(users ...*models.User) *mockUserRepository {
	m := &mockUserRepository{users: map[string]*models.User{}, profiles: map[string]*models.Profile{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

// Create stores the user and its profile, or nothing when either insert fails
func (m *mockUserRepository) Create(ctx context.Context, user *models.User, profile *models.Profile) error {
	if m.err != nil {
		return m.err
	}
	if m.profileErr != nil {
		return fmt.Errorf("failed to create profile: %w", m.profileErr)
	}
	m.users[user.ID] = user
	m.profiles[profile.ID] = profile
	return nil
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return u, nil
}

func (m *mockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, err := m.GetByEmail(ctx, email)
	return err == nil, nil
}

func (m *mockUserRepository) ListWithRoles(ctx context.Context) ([]models.UserWithRole, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.list, nil
}

func (m *mockUserRepository) Delete(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.users[id]; !ok {
		return apperrors.ErrNotFound
	}
	m.deleted = append(m.deleted, id)
	delete(m.users, id)
	return nil
}

// mockUserTokenRepository is an in-memory implementation of UserTokenRepository.
// Refresh calls it from two goroutines, hence the mutex.
type mockUserTokenRepository struct {
	mu        sync.Mutex
	tokens    map[string]string // token -> user id
	err       error
	deleted   []string
	deleteErr error
}

func newMockUserTokenRepository() *mockUserTokenRepository {
	return &mockUserTokenRepository{tokens: map[string]string{}}
}

func (m *mockUserTokenRepository) Create(ctx context.Context, userToken *models.UserToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.tokens[userToken.Token] = userToken.UserID
	return nil
}

func (m *mockUserTokenRepository) GetByToken(ctx context.Context, token string) (*models.UserToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	userID, ok := m.tokens[token]
	if !ok {
		return nil, apperrors.ErrUnauthenticated
	}
	return &models.UserToken{UserID: userID, Token: token, CreatedAt: time.Now()}, nil
}

func (m *mockUserTokenRepository) Rotate(ctx context.Context, oldToken, newToken, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.tokens[oldToken] != userID {
		return apperrors.ErrUnauthenticated
	}
	delete(m.tokens, oldToken)
	m.tokens[newToken] = userID
	return nil
}

func (m *mockUserTokenRepository) DeleteByToken(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, token)
	delete(m.tokens, token)
	return nil
}

// mockProfileRepository is an in-memory implementation of the profile repository interfaces
type mockProfileRepository struct {
	profiles  map[string]*models.Profile
	err       error
	deleteErr error
	deleted   []string
}

func newMockProfileRepository(profiles ...*models.Profile) *mockProfileRepository {
	m := &mockProfileRepository{profiles: map[string]*models.Profile{}}
	for _, p := range profiles {
		m.profiles[p.ID] = p
	}
	return m
}

func (m *mockProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.profiles[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *mockProfileRepository) Update(ctx context.Context, id string, req *models.UpdateProfileRequest) error {
	if m.err != nil {
		return m.err
	}
	p, ok := m.profiles[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	if req.DisplayName != nil {
		p.DisplayName = req.DisplayName
	}
	if req.AvatarURL != nil {
		p.AvatarURL = req.AvatarURL
	}
	return nil
}

func (m *mockProfileRepository) UpdateRole(ctx context.Context, id string, role roles.Role) error {
	if m.err != nil {
		return m.err
	}
	p, ok := m.profiles[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	p.Role = role
	return nil
}

func (m *mockProfileRepository) Delete(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, id)
	delete(m.profiles, id)
	return nil
}
