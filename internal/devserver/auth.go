package devserver

import (
	"database/sql"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/pandeptwidyaop/classmod/internal/database"
	"github.com/pandeptwidyaop/classmod/internal/logging"
)

// AuthService checks API keys against bcrypt hashes in api_users.
type AuthService struct {
	db     *database.DB
	cost   int
	logger *zap.Logger
}

// NewAuthService creates a new AuthService instance. A cost of 0 uses bcrypt.DefaultCost.
func NewAuthService(db *database.DB, cost int, logger *zap.Logger) *AuthService {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &AuthService{db: db, cost: cost, logger: logging.OrNop(logger).Named("auth")}
}

func (s *AuthService) HashKey(key string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(key), s.cost)
	return string(bytes), err
}

func (s *AuthService) CheckKey(key, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}

// EnsureUser creates the user, or rehashes its key when it changed.
func (s *AuthService) EnsureUser(username, key string) error {
	if username == "" || key == "" {
		return errors.New("username and api key are required")
	}

	var hash string
	err := s.db.QueryRow("SELECT key_hash FROM api_users WHERE username = ?", username).Scan(&hash)
	if err != nil && err != sql.ErrNoRows {
		return err
	}
	if err == nil && s.CheckKey(key, hash) {
		return nil
	}

	newHash, herr := s.HashKey(key)
	if herr != nil {
		return herr
	}
	if err == sql.ErrNoRows {
		_, err = s.db.Exec("INSERT INTO api_users (username, key_hash) VALUES (?, ?)", username, newHash)
		if err == nil {
			s.logger.Info("api user created", zap.String("username", username))
		}
		return err
	}
	_, err = s.db.Exec("UPDATE api_users SET key_hash = ? WHERE username = ?", newHash, username)
	if err == nil {
		s.logger.Info("api key rotated", zap.String("username", username))
	}
	return err
}

// Authenticate returns ErrInvalidCredentials unless key matches the user's stored hash.
func (s *AuthService) Authenticate(username, key string) error {
	if username == "" || key == "" {
		return ErrInvalidCredentials
	}
	var hash string
	err := s.db.QueryRow("SELECT key_hash FROM api_users WHERE username = ?", username).Scan(&hash)
	if err == sql.ErrNoRows {
		return ErrInvalidCredentials
	}
	if err != nil {
		return err
	}
	if !s.CheckKey(key, hash) {
		return ErrInvalidCredentials
	}
	return nil
}
