package service

import (
	"errors"
	"time"

	"campushub/internal/auth"
	"campushub/internal/config"
	"campushub/internal/models"

	"gorm.io/gorm"
)

// UserService 封装用户注册、登录与资料相关的业务逻辑。
type UserService struct {
	db  *gorm.DB
	cfg config.Config
}

func NewUserService(db *gorm.DB, cfg config.Config) *UserService {
	return &UserService{db: db, cfg: cfg}
}

// Register 注册新用户。
func (s *UserService) Register(name, email, password string) (*models.User, error) {
	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := models.User{Name: name, Email: email, PasswordHash: hash, Status: models.UserStatusActive}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// LoginResult 登录成功后返回的数据。
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         models.User
}

// Login 校验邮箱密码并签发 token 对，封禁账号拒绝登录。
func (s *UserService) Login(email, password string) (*LoginResult, error) {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.VerifyPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if user.Status == models.UserStatusBanned {
		return nil, ErrAccountBanned
	}
	at, err := auth.GenerateAccessToken(user.ID, user.Email, s.cfg.JWTSecret, s.cfg.AccessTokenTTLMinutes)
	if err != nil {
		return nil, err
	}
	rt, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}
	exp := time.Now().Add(time.Duration(s.cfg.RefreshTokenTTLDays) * 24 * time.Hour)
	if err := auth.SaveRefreshToken(s.db, user.ID, rt, exp); err != nil {
		return nil, err
	}
	now := time.Now()
	if err := s.db.Model(&models.User{}).Where("id = ?", user.ID).Update("last_login_at", &now).Error; err != nil {
		return nil, err
	}
	return &LoginResult{AccessToken: at, RefreshToken: rt, User: user}, nil
}

// RefreshResult 刷新 token 后返回的新 token 对。
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
}

// RefreshTokens 验证旧 refresh token 并签发新 token 对（旋转刷新）。
func (s *UserService) RefreshTokens(oldRT string) (*RefreshResult, error) {
	var result RefreshResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		rec, err := auth.ValidateRefreshToken(tx, oldRT)
		if err != nil {
			return err
		}
		if err := auth.RevokeRefreshToken(tx, oldRT); err != nil {
			return err
		}
		var user models.User
		if err := tx.First(&user, rec.UserID).Error; err != nil {
			return err
		}
		at, err := auth.GenerateAccessToken(rec.UserID, user.Email, s.cfg.JWTSecret, s.cfg.AccessTokenTTLMinutes)
		if err != nil {
			return err
		}
		newRT, err := auth.GenerateRefreshToken()
		if err != nil {
			return err
		}
		exp := time.Now().Add(time.Duration(s.cfg.RefreshTokenTTLDays) * 24 * time.Hour)
		if err := auth.SaveRefreshToken(tx, rec.UserID, newRT, exp); err != nil {
			return err
		}
		result.AccessToken = at
		result.RefreshToken = newRT
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// FindByID 按 ID 查找用户。
func (s *UserService) FindByID(userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// List 返回用户列表的公开信息。
func (s *UserService) List(limit int) ([]models.PublicProfile, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	var users []models.User
	if err := s.db.Select("id", "name", "avatar").Order("id").Limit(limit).Find(&users).Error; err != nil {
		return nil, err
	}
	out := make([]models.PublicProfile, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

// UpdateProfile 更新用户资料，只允许改 name/avatar/bio。
func (s *UserService) UpdateProfile(userID uint, name, avatar, bio string) (*models.User, error) {
	updates := map[string]interface{}{}
	if name != "" {
		updates["name"] = name
	}
	if avatar != "" {
		updates["avatar"] = avatar
	}
	if bio != "" {
		updates["bio"] = bio
	}
	if len(updates) > 0 {
		if err := s.db.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.FindByID(userID)
}

// UpdateStatus 更新用户在线状态字段，presence 事件落库用。
func (s *UserService) UpdateStatus(userID uint, status string) error {
	return s.db.Model(&models.User{}).Where("id = ?", userID).Update("status", status).Error
}
