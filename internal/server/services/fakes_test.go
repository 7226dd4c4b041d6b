package services

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/cache"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
	"golang.org/x/crypto/bcrypt"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

// fakeUsersRepo is an in-memory credential store with failure injection.
type fakeUsersRepo struct {
	mu      sync.Mutex
	byEmail map[string]*models.User
	seq     int
	creates int

	availableErr error
	createErr    error
	findIDErr    error
	findEmailErr error
	digestErr    error
	// raceOnCreate makes Create report a unique violation even though
	// EmailAvailable said the email was free.
	raceOnCreate bool
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byEmail: make(map[string]*models.User)}
}

func (f *fakeUsersRepo) EmailAvailable(_ context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.availableErr != nil {
		return false, f.availableErr
	}
	_, taken := f.byEmail[email]
	return !taken, nil
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, taken := f.byEmail[u.Email]; taken || f.raceOnCreate {
		return nil, common.ErrorAlreadyExists
	}
	f.seq++
	f.creates++
	u.ID = "u-" + strconv.Itoa(f.seq)
	u.CreatedAt = time.Now()
	cp := *u
	f.byEmail[u.Email] = &cp
	return u, nil
}

func (f *fakeUsersRepo) FindIDByEmail(_ context.Context, email string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findIDErr != nil {
		return "", f.findIDErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return "", common.ErrorNotFound
	}
	return u.ID, nil
}

func (f *fakeUsersRepo) FindEmailByID(_ context.Context, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findEmailErr != nil {
		return "", f.findEmailErr
	}
	for _, u := range f.byEmail {
		if u.ID == userID {
			return u.Email, nil
		}
	}
	return "", common.ErrorNotFound
}

func (f *fakeUsersRepo) FindPasswordDigestByEmail(_ context.Context, email string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.digestErr != nil {
		return "", f.digestErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return "", common.ErrorNotFound
	}
	return u.PasswordDigest, nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository             { return m.u }

// failingStore wraps a cache.Store and fails selected operations.
type failingStore struct {
	cache.Store
	setErr, getErr, delErr, addErr, memberErr, swapErr error

	// beforeSwap runs once ahead of the next CompareAndSwap.
	beforeSwap func()
}

func (f *failingStore) Set(ctx context.Context, k, v string, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.Store.Set(ctx, k, v, ttl)
}

func (f *failingStore) Get(ctx context.Context, k string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	return f.Store.Get(ctx, k)
}

func (f *failingStore) Delete(ctx context.Context, k string) error {
	if f.delErr != nil {
		return f.delErr
	}
	return f.Store.Delete(ctx, k)
}

func (f *failingStore) CompareAndSwap(ctx context.Context, k, old, next string, ttl time.Duration) (bool, error) {
	if hook := f.beforeSwap; hook != nil {
		f.beforeSwap = nil
		hook()
	}
	if f.swapErr != nil {
		return false, f.swapErr
	}
	return f.Store.CompareAndSwap(ctx, k, old, next, ttl)
}

func (f *failingStore) AddToSet(ctx context.Context, k, m string, ttl time.Duration) error {
	if f.addErr != nil {
		return f.addErr
	}
	return f.Store.AddToSet(ctx, k, m, ttl)
}

func (f *failingStore) IsMember(ctx context.Context, k, m string) (bool, error) {
	if f.memberErr != nil {
		return false, f.memberErr
	}
	return f.Store.IsMember(ctx, k, m)
}

// countingHasher records how often Compare ran.
type countingHasher struct {
	auth.Hasher
	mu       sync.Mutex
	compares int
}

func (h *countingHasher) Compare(p, d string) bool {
	h.mu.Lock()
	h.compares++
	h.mu.Unlock()
	return h.Hasher.Compare(p, d)
}

type failingHasher struct{ auth.Hasher }

func (failingHasher) Hash(string) (string, error) { return "", errors.New("hash failed") }

// --- fixture ---

const (
	testAccessSecret  = "access-secret"
	testRefreshSecret = "refresh-secret"
)

type fixture struct {
	svc    *AuthService
	db     *sql.DB
	mock   sqlmock.Sqlmock
	users  *fakeUsersRepo
	store  *failingStore
	signer *auth.Signer
	hasher *countingHasher
}

func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.AccessTokenSecret = testAccessSecret
	c.RefreshTokenSecret = testRefreshSecret
	return c
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg := testConfig()
	signer := auth.NewSigner(auth.SignerConfig{
		AccessSecret:  []byte(cfg.AccessTokenSecret),
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshSecret: []byte(cfg.RefreshTokenSecret),
		RefreshTTL:    cfg.RefreshTokenTTL,
	})
	hasher := &countingHasher{Hasher: auth.NewBcryptHasher(bcrypt.MinCost)}
	userRepo := newFakeUsersRepo()
	store := &failingStore{Store: cache.NewMemoryStore()}

	svc, err := NewAuthService(db, &fakeRepoManager{u: userRepo}, store, signer, hasher, cfg, logging.Nop{})
	if err != nil {
		t.Fatalf("NewAuthService error: %v", err)
	}

	return &fixture{svc: svc, db: db, mock: mock, users: userRepo, store: store, signer: signer, hasher: hasher}
}

// signup registers a user and expects the surrounding transaction to commit.
func (f *fixture) signup(t *testing.T, email, password string) *models.User {
	t.Helper()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	u, err := f.svc.Signup(context.Background(), models.SignupData{Email: email, Password: password})
	if err != nil {
		t.Fatalf("Signup(%q) error: %v", email, err)
	}
	return u
}
