package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// Store хранит текущую сессию. Отсутствие сессии означает гостя.
type Store struct {
	mu      sync.RWMutex
	current *domain.Session

	blobs     domain.BlobStore
	directory *Directory
	tokens    *TokenIssuer
	latency   time.Duration
	logger    *log.Entry
	metrics   *metrics.StorefrontMetrics
	newID     func() string
}

// Config задаёт параметры Store.
type Config struct {
	// Latency имитирует задержку провайдера аутентификации.
	Latency time.Duration
}

// NewStore создаёт хранилище сессии. blobs == nil отключает сохранение.
func NewStore(
	blobs domain.BlobStore,
	directory *Directory,
	tokens *TokenIssuer,
	cfg Config,
	logger *log.Entry,
	m *metrics.StorefrontMetrics,
) *Store {
	if logger == nil {
		logger = log.New().WithField("component", "session")
	}
	return &Store{
		blobs:     blobs,
		directory: directory,
		tokens:    tokens,
		latency:   cfg.Latency,
		logger:    logger,
		metrics:   m,
		newID:     uuid.NewString,
	}
}

// Load восстанавливает сессию. Повреждённый блоб или просроченный токен сбрасывают её.
func (s *Store) Load(ctx context.Context) error {
	if s.blobs == nil {
		return nil
	}

	raw, err := s.blobs.Get(ctx, domain.BlobKeySession)
	if errors.Is(err, domain.ErrBlobNotFound) {
		return nil
	}
	if err != nil {
		s.metrics.RecordPersistenceFailure("session", "load")
		return fmt.Errorf("%w: read session: %v", domain.ErrPersistence, err)
	}

	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil || sess.ID == "" || sess.Token == "" {
		s.logger.WithError(err).Warn("persisted session is corrupt, continuing as guest")
		s.drop(ctx)
		return nil
	}
	if _, err := s.tokens.Parse(sess.Token); err != nil {
		s.logger.WithError(err).Info("persisted session token rejected, continuing as guest")
		s.drop(ctx)
		return nil
	}

	s.mu.Lock()
	s.current = &sess
	s.mu.Unlock()

	s.logger.WithField("user_id", sess.ID).Debug("session restored")
	return nil
}

// Login проверяет учётные данные после имитации задержки провайдера.
func (s *Store) Login(ctx context.Context, email, password string) (domain.Session, error) {
	if err := s.wait(ctx); err != nil {
		return domain.Session{}, err
	}

	account, err := s.directory.Verify(email, password)
	if err != nil {
		s.metrics.RecordLogin("failure")
		s.logger.WithField("email", normalizeEmail(email)).Info("login rejected")
		return domain.Session{}, err
	}

	sess, err := s.start(ctx, account)
	if err != nil {
		return domain.Session{}, err
	}
	s.metrics.RecordLogin("success")
	return sess, nil
}

// Register создаёт учётную запись и сразу открывает для неё сессию.
func (s *Store) Register(ctx context.Context, profile domain.Profile) (domain.Session, error) {
	name := strings.TrimSpace(profile.Name)
	email := strings.TrimSpace(profile.Email)
	if name == "" || email == "" || profile.Password == "" {
		return domain.Session{}, domain.ErrProfileIncomplete
	}
	if !domain.ValidEmail(email) {
		return domain.Session{}, fmt.Errorf("%w: email is invalid", domain.ErrProfileIncomplete)
	}
	if s.directory.Exists(email) {
		return domain.Session{}, domain.ErrEmailTaken
	}

	if err := s.wait(ctx); err != nil {
		return domain.Session{}, err
	}

	account, err := s.directory.Create(s.newID(), name, email, profile.Password)
	if err != nil {
		return domain.Session{}, err
	}
	s.logger.WithField("user_id", account.ID).Info("account registered")

	return s.start(ctx, account)
}

// Logout завершает сессию и удаляет сохранённый блоб.
func (s *Store) Logout(ctx context.Context) {
	s.drop(ctx)
}

// Current возвращает копию текущей сессии.
func (s *Store) Current() (domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return domain.Session{}, false
	}
	return *s.current, true
}

// Authenticate проверяет, что токен валиден и принадлежит текущей сессии.
func (s *Store) Authenticate(token string) (domain.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Session{}, domain.ErrUnauthenticated
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}

	sess, ok := s.Current()
	if !ok || sess.ID != claims.Subject || sess.Token != token {
		return domain.Session{}, domain.ErrUnauthenticated
	}
	return sess, nil
}

func (s *Store) start(ctx context.Context, account Account) (domain.Session, error) {
	token, err := s.tokens.Issue(account)
	if err != nil {
		return domain.Session{}, err
	}
	sess := domain.Session{
		ID:    account.ID,
		Name:  account.Name,
		Email: account.Email,
		Token: token,
	}

	s.mu.Lock()
	s.current = &sess
	s.mu.Unlock()

	if s.blobs != nil {
		raw, err := json.Marshal(sess)
		if err == nil {
			err = s.blobs.Put(ctx, domain.BlobKeySession, raw)
		}
		if err != nil {
			s.metrics.RecordPersistenceFailure("session", "save")
			s.logger.WithError(err).Warn("failed to persist session")
		}
	}

	s.logger.WithField("user_id", sess.ID).Info("session started")
	return sess, nil
}

func (s *Store) drop(ctx context.Context) {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	if s.blobs == nil {
		return
	}
	if err := s.blobs.Delete(ctx, domain.BlobKeySession); err != nil {
		s.metrics.RecordPersistenceFailure("session", "delete")
		s.logger.WithError(err).Warn("failed to remove persisted session")
	}
}

func (s *Store) wait(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.latency)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
