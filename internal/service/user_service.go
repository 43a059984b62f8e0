package service

import (
	"assessly_backend/internal/model"
	"assessly_backend/internal/repository"
	"assessly_backend/internal/util"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserService struct {
	Repo      *repository.UserRepository
	JWTSecret string
	JWTExpire time.Duration
}

func NewUserService(repo *repository.UserRepository, jwtSecret string, jwtExpire time.Duration) *UserService {
	return &UserService{Repo: repo, JWTSecret: jwtSecret, JWTExpire: jwtExpire}
}

type RegisterRequest struct {
	Name     string         `json:"name" binding:"required"`
	Email    string         `json:"email" binding:"required,email"`
	Password string         `json:"password" binding:"required,min=8"`
	Role     model.UserRole `json:"role"`
}

func (s *UserService) Register(req RegisterRequest) (*model.User, error) {
	if _, err := s.Repo.FindByEmail(req.Email); err == nil {
		return nil, util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	role := req.Role
	// Privileged roles are granted by an admin, never self-assigned.
	if role != model.RoleTeacher {
		role = model.RoleStudent
	}

	user := &model.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hashed),
		Role:     role,
	}
	if err := s.Repo.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

func (s *UserService) Login(req LoginRequest) (*LoginResult, error) {
	user, err := s.Repo.FindByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}
	if user.Disabled {
		return nil, util.ErrPermissionDenied
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, util.ErrUserNotFound
	}

	token, err := util.GenerateJWT(user, s.JWTSecret, s.JWTExpire)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.TouchLastLogin(user.ID); err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, User: user}, nil
}

func (s *UserService) GetProfile(id uint) (*model.User, error) {
	user, err := s.Repo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

type UpdateProfileRequest struct {
	Name     string `json:"name"`
	Language string `json:"language"`
	Avatar   string `json:"avatar"`
}

func (s *UserService) UpdateProfile(id uint, req UpdateProfileRequest) (*model.User, error) {
	user, err := s.GetProfile(id)
	if err != nil {
		return nil, err
	}
	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Language != "" {
		user.Language = req.Language
	}
	if req.Avatar != "" {
		user.Avatar = req.Avatar
	}
	if err := s.Repo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}
