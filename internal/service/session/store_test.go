package session

import (
	"context"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func testLogger() *log.Entry {
	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	return logger.WithField("component", "session-test")
}

func newTestStore(t *testing.T, blobs domain.BlobStore, latency time.Duration) *Store {
	t.Helper()

	directory, err := NewDirectory(bcrypt.MinCost)
	require.NoError(t, err)
	tokens, err := NewTokenIssuer([]byte("test-secret"), time.Hour)
	require.NoError(t, err)

	return NewStore(blobs, directory, tokens, Config{Latency: latency}, testLogger(), nil)
}

func TestStore_LoginDemoAccount(t *testing.T) {
	ctx := context.Background()
	blobs := memory.NewBlobStore()
	store := newTestStore(t, blobs, 0)

	sess, err := store.Login(ctx, "User@Example.com ", DemoUserPassword)
	require.NoError(t, err)

	assert.Equal(t, DemoUserID, sess.ID)
	assert.Equal(t, DemoUserName, sess.Name)
	assert.Equal(t, DemoUserEmail, sess.Email)
	assert.NotEmpty(t, sess.Token)

	current, ok := store.Current()
	require.True(t, ok)
	assert.Equal(t, sess, current)

	_, err = blobs.Get(ctx, domain.BlobKeySession)
	assert.NoError(t, err)
}

func TestStore_LoginInvalidCredentials(t *testing.T) {
	store := newTestStore(t, nil, 0)

	_, err := store.Login(context.Background(), DemoUserEmail, "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = store.Login(context.Background(), "nobody@example.com", DemoUserPassword)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, ok := store.Current()
	assert.False(t, ok)
}

func TestStore_LoginHonoursContext(t *testing.T) {
	store := newTestStore(t, nil, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := store.Login(ctx, DemoUserEmail, DemoUserPassword)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStore_LoginLatency(t *testing.T) {
	store := newTestStore(t, nil, 30*time.Millisecond)

	start := time.Now()
	_, err := store.Login(context.Background(), DemoUserEmail, DemoUserPassword)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestStore_Register(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, nil, 0)
	store.newID = func() string { return "user-42" }

	sess, err := store.Register(ctx, domain.Profile{Name: "Ann Lee", Email: "ann@example.com", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "user-42", sess.ID)
	assert.Equal(t, "Ann", sess.FirstName())

	store.Logout(ctx)
	again, err := store.Login(ctx, "ann@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-42", again.ID)
}

func TestStore_RegisterErrors(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, nil, 0)

	_, err := store.Register(ctx, domain.Profile{Name: "Ann", Email: "", Password: "x"})
	assert.ErrorIs(t, err, domain.ErrProfileIncomplete)

	_, err = store.Register(ctx, domain.Profile{Name: "Ann", Email: "not-an-email", Password: "x"})
	assert.ErrorIs(t, err, domain.ErrProfileIncomplete)

	_, err = store.Register(ctx, domain.Profile{Name: "Dup", Email: DemoUserEmail, Password: "x"})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestStore_RegisterTakenEmailSkipsLatency(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	store := newTestStore(t, nil, time.Hour)

	_, err := store.Register(ctx, domain.Profile{Name: "Dup", Email: " USER@example.com ", Password: "x"})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestStore_RegisterPasswordTooLong(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, nil, 0)

	_, err := store.Register(ctx, domain.Profile{
		Name:     "Ann",
		Email:    "ann@example.com",
		Password: strings.Repeat("p", MaxPasswordBytes+1),
	})
	assert.ErrorIs(t, err, domain.ErrProfileIncomplete)

	_, ok := store.Current()
	assert.False(t, ok)
}

func TestDirectory_Exists(t *testing.T) {
	directory, err := NewDirectory(bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, directory.Exists("User@Example.com"))
	assert.False(t, directory.Exists("ann@example.com"))

	_, err = directory.Create("2", "Ann", "ann@example.com", strings.Repeat("p", MaxPasswordBytes))
	require.NoError(t, err)
	assert.True(t, directory.Exists("ann@example.com"))
}

func TestStore_LogoutRemovesBlob(t *testing.T) {
	ctx := context.Background()
	blobs := memory.NewBlobStore()
	store := newTestStore(t, blobs, 0)

	_, err := store.Login(ctx, DemoUserEmail, DemoUserPassword)
	require.NoError(t, err)

	store.Logout(ctx)

	_, ok := store.Current()
	assert.False(t, ok)
	_, err = blobs.Get(ctx, domain.BlobKeySession)
	assert.ErrorIs(t, err, domain.ErrBlobNotFound)
}

func TestStore_LoadRestoresSession(t *testing.T) {
	ctx := context.Background()
	blobs := memory.NewBlobStore()

	first := newTestStore(t, blobs, 0)
	sess, err := first.Login(ctx, DemoUserEmail, DemoUserPassword)
	require.NoError(t, err)

	second := newTestStore(t, blobs, 0)
	require.NoError(t, second.Load(ctx))

	restored, ok := second.Current()
	require.True(t, ok)
	assert.Equal(t, sess, restored)
}

func TestStore_LoadDropsCorruptSession(t *testing.T) {
	ctx := context.Background()

	for name, raw := range map[string]string{
		"not json":      `{"id":`,
		"missing token": `{"id":"1","name":"John Doe"}`,
		"forged token":  `{"id":"1","token":"eyJhbGciOiJub25lIn0.e30."}`,
	} {
		t.Run(name, func(t *testing.T) {
			blobs := memory.NewBlobStore()
			require.NoError(t, blobs.Put(ctx, domain.BlobKeySession, []byte(raw)))

			store := newTestStore(t, blobs, 0)
			require.NoError(t, store.Load(ctx))

			_, ok := store.Current()
			assert.False(t, ok)
			_, err := blobs.Get(ctx, domain.BlobKeySession)
			assert.ErrorIs(t, err, domain.ErrBlobNotFound)
		})
	}
}

func TestStore_Authenticate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, nil, 0)

	_, err := store.Authenticate("")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	sess, err := store.Login(ctx, DemoUserEmail, DemoUserPassword)
	require.NoError(t, err)

	got, err := store.Authenticate(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, DemoUserID, got.ID)

	_, err = store.Authenticate(sess.Token + "x")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	store.Logout(ctx)
	_, err = store.Authenticate(sess.Token)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestTokenIssuer_Expiry(t *testing.T) {
	issuer, err := NewTokenIssuer([]byte("k"), time.Minute)
	require.NoError(t, err)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return now }

	token, err := issuer.Issue(Account{ID: "7", Name: "N", Email: "n@example.com"})
	require.NoError(t, err)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "7", claims.Subject)
	assert.Equal(t, "n@example.com", claims.Email)

	now = now.Add(2 * time.Minute)
	_, err = issuer.Parse(token)
	assert.Error(t, err)

	_, err = NewTokenIssuer(nil, time.Minute)
	assert.Error(t, err)
}

func TestTokenIssuer_RejectsForeignSecret(t *testing.T) {
	a, err := NewTokenIssuer([]byte("a"), time.Minute)
	require.NoError(t, err)
	b, err := NewTokenIssuer([]byte("b"), time.Minute)
	require.NoError(t, err)

	token, err := a.Issue(Account{ID: "1"})
	require.NoError(t, err)

	_, err = b.Parse(token)
	assert.Error(t, err)
}
