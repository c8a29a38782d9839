package auth_test

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	auth "github.com/goliatone/go-accounts"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// fakeContext is a recording router.Context: requests are configured
// through the exported fields, responses captured for assertions.
type fakeContext struct {
	ctx     context.Context
	headers map[string]string
	cookies map[string]string
	queries map[string]string
	body    any

	StatusCode int
	JSONBody   any
	SetCookies []*router.Cookie
	locals     map[any]any
}

var _ router.Context = (*fakeContext)(nil)

func newFakeContext() *fakeContext {
	return &fakeContext{
		ctx:     context.Background(),
		headers: map[string]string{},
		cookies: map[string]string{},
		queries: map[string]string{},
		locals:  map[any]any{},
	}
}

func (f *fakeContext) withHeader(key, val string) *fakeContext {
	f.headers[key] = val
	return f
}

func (f *fakeContext) withCookie(name, val string) *fakeContext {
	f.cookies[name] = val
	return f
}

func (f *fakeContext) withQuery(key, val string) *fakeContext {
	f.queries[key] = val
	return f
}

func (f *fakeContext) withBody(payload any) *fakeContext {
	f.body = payload
	return f
}

func (f *fakeContext) Next() error { return nil }
func (f *fakeContext) Context() context.Context { return f.ctx }
func (f *fakeContext) SetContext(c context.Context) { f.ctx = c }
func (f *fakeContext) Path() string { return "/" }
func (f *fakeContext) Method() string { return "GET" }

func (f *fakeContext) Body() []byte {
	if f.body == nil {
		return nil
	}
	data, _ := json.Marshal(f.body)
	return data
}

func (f *fakeContext) Status(code int) router.Context {
	f.StatusCode = code
	return f
}

func (f *fakeContext) SendString(s string) error { return nil }
func (f *fakeContext) Send(b []byte) error { return nil }

func (f *fakeContext) JSON(code int, val any) error {
	f.StatusCode = code
	f.JSONBody = val
	return nil
}

func (f *fakeContext) NoContent(code int) error {
	f.StatusCode = code
	return nil
}

func (f *fakeContext) Render(name string, bind any, layout ...string) error { return nil }
func (f *fakeContext) Redirect(path string, status ...int) error { return nil }
func (f *fakeContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	return nil
}
func (f *fakeContext) RedirectBack(fallback string, status ...int) error { return nil }

func (f *fakeContext) SetHeader(key, val string) router.Context {
	f.headers[key] = val
	return f
}

func (f *fakeContext) Header(key string) string {
	return f.headers[key]
}

func (f *fakeContext) Get(key string, def any) any { return def }
func (f *fakeContext) GetBool(key string, def bool) bool { return def }
func (f *fakeContext) GetInt(key string, def int) int { return def }
func (f *fakeContext) Set(key string, val any) {}

func (f *fakeContext) Bind(i any) error {
	if f.body == nil {
		return nil
	}
	data, err := json.Marshal(f.body)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, i)
}

func (f *fakeContext) BindJSON(i any) error { return f.Bind(i) }
func (f *fakeContext) BindXML(i any) error { return f.Bind(i) }
func (f *fakeContext) BindQuery(i any) error { return f.Bind(i) }
func (f *fakeContext) CookieParser(i any) error {
	return nil
}

func (f *fakeContext) Cookie(cookie *router.Cookie) {
	f.SetCookies = append(f.SetCookies, cookie)
}

func (f *fakeContext) Cookies(key string, def ...string) string {
	if val, ok := f.cookies[key]; ok {
		return val
	}
	if len(def) > 0 {
		return def[0]
	}
	return ""
}

func (f *fakeContext) Param(key string, def ...string) string {
	if len(def) > 0 {
		return def[0]
	}
	return ""
}

func (f *fakeContext) ParamsInt(key string, def int) int { return def }

func (f *fakeContext) Query(key string, def string) string {
	if val, ok := f.queries[key]; ok {
		return val
	}
	return def
}

func (f *fakeContext) QueryInt(key string, def int) int { return def }
func (f *fakeContext) Queries() map[string]string { return f.queries }

func (f *fakeContext) GetString(key string, def string) string { return def }

func (f *fakeContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		f.locals[key] = value[0]
		return nil
	}
	return f.locals[key]
}

func (f *fakeContext) OriginalURL() string { return "/" }
func (f *fakeContext) OnNext(callback func() error) {}
func (f *fakeContext) Referer() string { return "" }

// cookieByName returns the most recently set cookie with that name.
func (f *fakeContext) cookieByName(name string) *router.Cookie {
	for i := len(f.SetCookies) - 1; i >= 0; i-- {
		if f.SetCookies[i].Name == name {
			return f.SetCookies[i]
		}
	}
	return nil
}

// memoryUsers is an in-memory auth.Users. The embedded Repository is
// left nil; anything outside the domain surface panics loudly, which is
// exactly what a test reaching for it should do.
type memoryUsers struct {
	repository.Repository[*auth.User]

	mu      sync.Mutex
	records map[uuid.UUID]*auth.User
}

var _ auth.Users = (*memoryUsers)(nil)

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{records: map[uuid.UUID]*auth.User{}}
}

func (m *memoryUsers) add(user *auth.User) *auth.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	m.records[user.ID] = user
	return user
}

func (m *memoryUsers) GetByUserID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.records[id]; ok {
		return user, nil
	}
	return nil, auth.ErrIdentityNotFound
}

func (m *memoryUsers) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.records {
		if user.EmailAddress() == email {
			return user, nil
		}
	}
	return nil, auth.ErrIdentityNotFound
}

func (m *memoryUsers) EmailExists(ctx context.Context, email string, verifiedOnly bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.records {
		if user.EmailAddress() != email {
			continue
		}
		if verifiedOnly && !user.Verified {
			continue
		}
		return true, nil
	}
	return false, nil
}

func (m *memoryUsers) Register(ctx context.Context, user *auth.User) (*auth.User, error) {
	if exists, _ := m.EmailExists(ctx, user.EmailAddress(), false); exists {
		return nil, auth.WithErrorFields(auth.ErrIdentityExists, "email")
	}
	user.Active = true
	return m.add(user), nil
}

func (m *memoryUsers) RegisterTx(ctx context.Context, tx bun.IDB, user *auth.User) (*auth.User, error) {
	return m.Register(ctx, user)
}

func (m *memoryUsers) SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.records[id]
	if !ok {
		return nil, auth.ErrIdentityNotFound
	}
	user.PasswordHash = hash
	return user, nil
}

func (m *memoryUsers) MarkVerified(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.records[id]
	if !ok {
		return nil, auth.ErrIdentityNotFound
	}
	user.Verified = true
	return user, nil
}

func (m *memoryUsers) ChangeEmail(ctx context.Context, id uuid.UUID, email string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for uid, other := range m.records {
		if uid != id && other.EmailAddress() == email {
			return nil, auth.WithErrorFields(auth.ErrIdentityExists, "email")
		}
	}
	user, ok := m.records[id]
	if !ok {
		return nil, auth.ErrIdentityNotFound
	}
	user.Email = &email
	user.Verified = true
	return user, nil
}

func (m *memoryUsers) ReplaceEmail(ctx context.Context, id uuid.UUID, email string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.records[id]
	if !ok {
		return nil, auth.ErrIdentityNotFound
	}
	user.Email = &email
	user.Verified = false
	return user, nil
}

func (m *memoryUsers) ClearUnverifiedEmail(ctx context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.records {
		if !user.Verified && user.EmailAddress() == email {
			user.Email = nil
		}
	}
	return nil
}

func (m *memoryUsers) UpdateProfile(ctx context.Context, id uuid.UUID, record *auth.User) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.records[id]
	if !ok {
		return nil, auth.ErrIdentityNotFound
	}
	if record.FirstName != "" {
		user.FirstName = record.FirstName
	}
	if record.LastName != "" {
		user.LastName = record.LastName
	}
	return user, nil
}

func (m *memoryUsers) TrackSuccessfulLogin(ctx context.Context, user *auth.User) error {
	return nil
}

// countingHasher wraps auth.BcryptHasher behavior with cheap fakes and
// counts expensive operations so timing properties can be asserted
// without paying bcrypt cost in every test.
type countingHasher struct {
	mu          sync.Mutex
	HashCalls   int
	VerifyCalls int
	DummyCalls  int
	// FailVerify forces mismatches.
	FailVerify bool
	// Upgraded, when set, is returned as the replacement hash.
	Upgraded string
}

var _ auth.PasswordHasher = (*countingHasher)(nil)

func (h *countingHasher) Hash(password string) (string, error) {
	h.mu.Lock()
	h.HashCalls++
	h.mu.Unlock()
	if password == "" {
		return "", auth.ErrEmptyPassword
	}
	return "hashed:" + password, nil
}

func (h *countingHasher) VerifyAndUpgrade(password, hash string) (bool, string) {
	h.mu.Lock()
	h.VerifyCalls++
	h.mu.Unlock()
	if h.FailVerify {
		return false, ""
	}
	if !strings.HasPrefix(hash, "hashed:") || hash != "hashed:"+password {
		return false, ""
	}
	return true, h.Upgraded
}

func (h *countingHasher) Generate(length int) (string, error) {
	return strings.Repeat("x", length), nil
}

func (h *countingHasher) DummyVerify(password string) {
	h.mu.Lock()
	h.DummyCalls++
	h.mu.Unlock()
}

// testIdentity is a plain Identity fake.
type testIdentity struct {
	id       string
	email    string
	active   bool
	verified bool
}

func (i testIdentity) ID() string       { return i.id }
func (i testIdentity) Email() string    { return i.email }
func (i testIdentity) IsActive() bool   { return i.active }
func (i testIdentity) IsVerified() bool { return i.verified }

func activeIdentity(id string) testIdentity {
	return testIdentity{id: id, email: "user@example.com", active: true, verified: true}
}

// failingScheduler rejects every enqueue.
type failingScheduler struct{}

func (failingScheduler) Schedule(ctx context.Context, task auth.Task) (string, error) {
	return "", context.DeadlineExceeded
}

func testConfig() *auth.SimpleConfig {
	return &auth.SimpleConfig{
		SigningKey:      "test-signing-key",
		Issuer:          "accounts-test",
		Audience:        []string{"accounts:api"},
		AccessTokenTTL:  3600,
		RefreshTokenTTL: 86400,
		TokenSecret:     "test-token-secret",
		TokenSalt:       "test-token-salt",
		FrontendURL:     "https://app.example.com/confirm",
	}
}

func strptr(s string) *string { return &s }
