package service

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/owlrsvp/owlrsvp-backend/internal/models"
	"github.com/owlrsvp/owlrsvp-backend/internal/repository"
	"github.com/owlrsvp/owlrsvp-backend/pkg/bcrypt"
	"github.com/owlrsvp/owlrsvp-backend/pkg/email"
	jwtPkg "github.com/owlrsvp/owlrsvp-backend/pkg/jwt"
)

const (
	TokenExpiryReset       = 15 * time.Minute
	TokenExpiryEmailVerify = 24 * time.Hour
)

type AuthService struct {
	userRepo     *repository.UserRepository
	emailService *email.EmailService
	logger       *zap.Logger
	jwtSecret    []byte
	jwtIssuer    string
}

func NewAuthService(userRepo *repository.UserRepository, emailService *email.EmailService, logger *zap.Logger) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		emailService: emailService,
		logger:       logger,
		jwtSecret:    []byte(os.Getenv("JWT_SECRET")),
		jwtIssuer:    os.Getenv("JWT_ISSUER"),
	}
}

func (s *AuthService) Register(req models.RegisterRequest) (*models.AuthResponse, error) {
	exists, err := s.userRepo.EmailExists(req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.New("email already exists")
	}

	hashedPassword, err := bcrypt.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		FullName:   req.FullName,
		Email:      req.Email,
		Password:   hashedPassword,
		IsVerified: false,
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	verificationToken, err := s.generateEmailToken(user.Email, "email_verification", TokenExpiryEmailVerify)
	if err != nil {
		return nil, err
	}

	go func() {
		if err := s.emailService.SendVerificationEmail(user.Email, user.FullName, verificationToken); err != nil {
			s.logger.Warn("verification email failed", zap.String("email", user.Email), zap.Error(err))
		}
		if err := s.emailService.SendWelcomeEmail(user.Email, user.FullName); err != nil {
			s.logger.Warn("welcome email failed", zap.String("email", user.Email), zap.Error(err))
		}
	}()

	token, err := jwtPkg.GenerateToken(user.Email, user.ID)
	if err != nil {
		return nil, err
	}

	return &models.AuthResponse{
		Token: token,
		User:  *user,
	}, nil
}

func (s *AuthService) Login(req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(req.Email)
	if err != nil {
		return nil, errors.New("invalid email or password")
	}

	if err := bcrypt.ComparePassword(user.Password, req.Password); err != nil {
		return nil, errors.New("invalid email or password")
	}

	token, err := jwtPkg.GenerateToken(user.Email, user.ID)
	if err != nil {
		return nil, fmt.Errorf("token generation failed: %v", err)
	}

	return &models.AuthResponse{
		Token: token,
		User:  *user,
	}, nil
}

func (s *AuthService) ForgotPassword(emailAddr string) error {
	user, err := s.userRepo.GetByEmail(emailAddr)
	if err != nil {
		// Do not reveal whether the address is registered.
		return nil
	}

	resetToken, err := s.generateEmailToken(user.Email, "password_reset", TokenExpiryReset)
	if err != nil {
		return err
	}

	return s.emailService.SendPasswordResetEmail(user.Email, resetToken)
}

func (s *AuthService) ResetPassword(token, newPassword string) error {
	emailAddr, err := s.parseEmailToken(token, "password_reset")
	if err != nil {
		return errors.New("invalid or expired token")
	}

	user, err := s.userRepo.GetByEmail(emailAddr)
	if err != nil {
		return errors.New("user not found")
	}

	hashedPassword, err := bcrypt.HashPassword(newPassword)
	if err != nil {
		return err
	}

	return s.userRepo.UpdatePassword(user.ID, hashedPassword)
}

func (s *AuthService) VerifyEmail(token string) error {
	emailAddr, err := s.parseEmailToken(token, "email_verification")
	if err != nil {
		return errors.New("invalid or expired token")
	}

	user, err := s.userRepo.GetByEmail(emailAddr)
	if err != nil {
		return errors.New("user not found")
	}

	if user.IsVerified {
		return errors.New("email already verified")
	}

	user.IsVerified = true
	return s.userRepo.Update(user)
}

// generateEmailToken mints the short-lived single-purpose tokens embedded in
// verification and reset links.
func (s *AuthService) generateEmailToken(emailAddr, purpose string, expiry time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"email": emailAddr,
		"exp":   time.Now().Add(expiry).Unix(),
		"iat":   time.Now().Unix(),
		"iss":   s.jwtIssuer,
		"type":  purpose,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *AuthService) parseEmailToken(tokenString, purpose string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token claims")
	}
	if claims["type"] != purpose {
		return "", errors.New("wrong token type")
	}

	emailAddr, ok := claims["email"].(string)
	if !ok {
		return "", errors.New("invalid token claims")
	}
	return emailAddr, nil
}
