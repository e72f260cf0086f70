package identity_test

import (
	"context"
	"database/sql"
	"io"
	"mime/multipart"
	"sync"
	"time"

	identity "github.com/goliatone/go-identity"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockUsers implements identity.Users
type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) GetByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUsers) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUsers) GetByActivationLink(ctx context.Context, link string) (*identity.User, error) {
	args := m.Called(ctx, link)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUsers) Create(ctx context.Context, record *identity.User) (*identity.User, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUsers) CreateTx(ctx context.Context, tx bun.IDB, record *identity.User) (*identity.User, error) {
	args := m.Called(ctx, tx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUsers) MarkActivated(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUsers) UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUsers) UpdatePasswordHashTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, tx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUsers) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockSessions implements identity.Sessions
type MockSessions struct {
	mock.Mock
}

func (m *MockSessions) GetByUserID(ctx context.Context, userID uuid.UUID) (*identity.Session, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Session), args.Error(1)
}

func (m *MockSessions) GetByRefreshToken(ctx context.Context, refreshToken string) (*identity.Session, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Session), args.Error(1)
}

func (m *MockSessions) Upsert(ctx context.Context, userID uuid.UUID, refreshToken string) (*identity.Session, error) {
	args := m.Called(ctx, userID, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Session), args.Error(1)
}

func (m *MockSessions) DeleteByRefreshToken(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

func (m *MockSessions) CountByUserID(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

// MockResetTickets implements identity.ResetTickets
type MockResetTickets struct {
	mock.Mock
}

func (m *MockResetTickets) GetByTicket(ctx context.Context, ticket string) (*identity.ResetTicket, error) {
	args := m.Called(ctx, ticket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.ResetTicket), args.Error(1)
}

func (m *MockResetTickets) Create(ctx context.Context, record *identity.ResetTicket) (*identity.ResetTicket, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.ResetTicket), args.Error(1)
}

func (m *MockResetTickets) DeleteByTicket(ctx context.Context, ticket string) error {
	args := m.Called(ctx, ticket)
	return args.Error(0)
}

func (m *MockResetTickets) DeleteByTicketTx(ctx context.Context, tx bun.IDB, ticket string) error {
	args := m.Called(ctx, tx, ticket)
	return args.Error(0)
}

// MockSigner implements identity.Signer
type MockSigner struct {
	mock.Mock
}

func (m *MockSigner) Mint(subject identity.UserSummary, class identity.SecretClass, ttl time.Duration) (string, error) {
	args := m.Called(subject, class, ttl)
	return args.String(0), args.Error(1)
}

func (m *MockSigner) Verify(token string, class identity.SecretClass) (*identity.IdentityClaims, error) {
	args := m.Called(token, class)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.IdentityClaims), args.Error(1)
}

// MockHasher implements identity.Hasher
type MockHasher struct {
	mock.Mock
}

func (m *MockHasher) Hash(plaintext string) (string, error) {
	args := m.Called(plaintext)
	return args.String(0), args.Error(1)
}

func (m *MockHasher) Matches(plaintext, digest string) error {
	args := m.Called(plaintext, digest)
	return args.Error(0)
}

// MockNotifier implements identity.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Deliver(ctx context.Context, kind identity.NotificationKind, email, link string) error {
	args := m.Called(ctx, kind, email, link)
	return args.Error(0)
}

// fakeDirectory wires mocked repositories behind the Directory interface.
// RunInTx runs the callback inline with a zero transaction, which is enough
// for repos that are themselves mocked.
type fakeDirectory struct {
	users    *MockUsers
	sessions *MockSessions
	tickets  *MockResetTickets
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		users:    new(MockUsers),
		sessions: new(MockSessions),
		tickets:  new(MockResetTickets),
	}
}

func (d *fakeDirectory) Validate() error { return nil }
func (d *fakeDirectory) MustValidate()   {}

func (d *fakeDirectory) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (d *fakeDirectory) Users() identity.Users               { return d.users }
func (d *fakeDirectory) Sessions() identity.Sessions         { return d.sessions }
func (d *fakeDirectory) ResetTickets() identity.ResetTickets { return d.tickets }

func (d *fakeDirectory) assertExpectations(t mock.TestingT) {
	d.users.AssertExpectations(t)
	d.sessions.AssertExpectations(t)
	d.tickets.AssertExpectations(t)
}

// captureLogger records log calls for assertions.
type captureLogger struct {
	mu    sync.Mutex
	calls []capturedLog
}

type capturedLog struct {
	level   string
	message string
	args    []any
}

func (l *captureLogger) log(level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, capturedLog{level: level, message: format, args: args})
}

func (l *captureLogger) Debug(format string, args ...any) { l.log("debug", format, args...) }
func (l *captureLogger) Info(format string, args ...any)  { l.log("info", format, args...) }
func (l *captureLogger) Warn(format string, args ...any)  { l.log("warn", format, args...) }
func (l *captureLogger) Error(format string, args ...any) { l.log("error", format, args...) }

// MockContext mocks router.Context for handler tests.
type MockContext struct {
	mock.Mock
	NextCalled bool
}

func (m *MockContext) Next() error {
	m.NextCalled = true
	return nil
}

func (m *MockContext) Context() context.Context {
	args := m.Called()
	c, ok := args.Get(0).(context.Context)
	if !ok {
		panic("arg needs to be context.Context")
	}
	return c
}

func (m *MockContext) SetContext(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockContext) Path() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Method() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Body() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *MockContext) Status(code int) router.Context {
	m.Called(code)
	return m
}

func (m *MockContext) SendString(s string) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *MockContext) Send(b []byte) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockContext) JSON(code int, val any) error {
	args := m.Called(code, val)
	return args.Error(0)
}

func (m *MockContext) NoContent(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) Render(name string, bind any, layout ...string) error {
	if len(layout) > 0 {
		args := m.Called(name, bind, layout[0])
		return args.Error(0)
	}
	args := m.Called(name, bind)
	return args.Error(0)
}

func (m *MockContext) Redirect(path string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(path, status)
		return args.Error(0)
	}
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	if len(status) > 0 {
		args := m.Called(name, data, status[0])
		return args.Error(0)
	}
	args := m.Called(name, data)
	return args.Error(0)
}

func (m *MockContext) RedirectBack(fallback string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(fallback, status)
		return args.Error(0)
	}
	args := m.Called(fallback)
	return args.Error(0)
}

func (m *MockContext) SetHeader(key, val string) router.Context {
	m.Called(key, val)
	return m
}

func (m *MockContext) Header(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Get(key string, defaultValue any) any {
	args := m.Called(key, defaultValue)
	return args.Get(0)
}

func (m *MockContext) GetBool(key string, defaultValue bool) bool {
	args := m.Called(key, defaultValue)
	return args.Bool(0)
}

func (m *MockContext) GetInt(key string, def int) int {
	args := m.Called(key, def)
	return args.Int(0)
}

func (m *MockContext) Set(key string, val any) {
	m.Called(key, val)
}

func (m *MockContext) Bind(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindJSON(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindXML(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindQuery(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) CookieParser(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) Cookie(cookie *router.Cookie) {
	m.Called(cookie)
}

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Param(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) ParamsInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Query(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) QueryValues(key string) []string {
	args := m.Called(key)
	return args.Get(0).([]string)
}

func (m *MockContext) QueryInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Queries() map[string]string {
	args := m.Called()
	return args.Get(0).(map[string]string)
}

func (m *MockContext) GetString(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.Called(key, value[0])
		return nil
	}
	args := m.Called(key)
	return args.Get(0)
}

func (m *MockContext) OriginalURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) OnNext(callback func() error) {
	m.Called(callback)
}

func (m *MockContext) Referer() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) LocalsMerge(key any, value map[string]any) map[string]any {
	args := m.Called(key, value)
	return args.Get(0).(map[string]any)
}

func (m *MockContext) FormFile(key string) (*multipart.FileHeader, error) {
	args := m.Called(key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*multipart.FileHeader), args.Error(1)
}

func (m *MockContext) FormValue(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) IP() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) SendStatus(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) SendStream(r io.Reader) error {
	args := m.Called(r)
	return args.Error(0)
}

func (m *MockContext) RouteName() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) RouteParams() map[string]string {
	args := m.Called()
	return args.Get(0).(map[string]string)
}
