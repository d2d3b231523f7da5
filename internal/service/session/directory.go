package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Демо-аккаунт, доступный сразу после старта.
const (
	DemoUserID       = "1"
	DemoUserName     = "John Doe"
	DemoUserEmail    = "user@example.com"
	DemoUserPassword = "password123"
)

// MaxPasswordBytes ограничивает длину пароля пределом bcrypt.
const MaxPasswordBytes = 72

// Account представляет учётную запись в каталоге пользователей.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash []byte
}

// Directory хранит in-memory каталог учётных записей с bcrypt-хешами паролей.
type Directory struct {
	mu       sync.RWMutex
	byEmail  map[string]Account
	hashCost int
}

// NewDirectory создаёт каталог с демо-аккаунтом. cost <= 0 означает bcrypt.DefaultCost.
func NewDirectory(cost int) (*Directory, error) {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	d := &Directory{
		byEmail:  make(map[string]Account),
		hashCost: cost,
	}
	if _, err := d.Create(DemoUserID, DemoUserName, DemoUserEmail, DemoUserPassword); err != nil {
		return nil, err
	}
	return d, nil
}

// Create добавляет учётную запись. Email сравнивается без учёта регистра.
func (d *Directory) Create(id, name, email, password string) (Account, error) {
	if len(password) > MaxPasswordBytes {
		return Account{}, fmt.Errorf("%w: password is longer than %d bytes", domain.ErrProfileIncomplete, MaxPasswordBytes)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.hashCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return Account{}, fmt.Errorf("%w: %v", domain.ErrProfileIncomplete, err)
	}
	if err != nil {
		return Account{}, err
	}
	key := normalizeEmail(email)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.byEmail[key]; exists {
		return Account{}, domain.ErrEmailTaken
	}
	account := Account{ID: id, Name: name, Email: strings.TrimSpace(email), PasswordHash: hash}
	d.byEmail[key] = account
	return account, nil
}

// Verify проверяет пару email/пароль.
func (d *Directory) Verify(email, password string) (Account, error) {
	d.mu.RLock()
	account, ok := d.byEmail[normalizeEmail(email)]
	d.mu.RUnlock()

	if !ok {
		return Account{}, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(password)); err != nil {
		return Account{}, domain.ErrInvalidCredentials
	}
	return account, nil
}

// Exists сообщает, занят ли email.
func (d *Directory) Exists(email string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.byEmail[normalizeEmail(email)]
	return ok
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
