package controller

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"worksync/config"
	"worksync/models"
	"worksync/utils"
)

type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"omitempty,max=150"`
	LastName  string `json:"last_name" validate:"omitempty,max=150"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type AuthResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	Worker       WorkerResponse `json:"worker"`
}

type AuthController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewAuthController(db *gorm.DB, logger *logrus.Entry) *AuthController {
	return &AuthController{
		DB:     db,
		Logger: logger,
	}
}

// Register creates the account together with its worker profile.
func (ac *AuthController) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return badRequest(c, "Validation failed", err)
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return respondError(c, ac.Logger, "hash password", err)
	}

	user := models.User{
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		IsActive:     true,
	}
	var worker models.Worker
	err = ac.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.User{}).Where("email = ?", req.Email).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return errEmailTaken
		}
		if err := tx.Omit("Worker").Create(&user).Error; err != nil {
			return err
		}
		worker = models.Worker{UserID: user.ID, Role: models.RoleNormal}
		return tx.Omit("User", "Team").Create(&worker).Error
	})
	if errors.Is(err, errEmailTaken) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return utils.ErrorResponse(c, fiber.StatusConflict, "User with this email already exists", nil)
	}
	if err != nil {
		return respondError(c, ac.Logger, "create account", err)
	}
	worker.User = user

	ac.Logger.WithFields(logrus.Fields{"user_id": user.ID, "worker_id": worker.ID}).Info("account registered")
	return ac.issueTokens(c, fiber.StatusCreated, &user, worker)
}

var errEmailTaken = errors.New("email already registered")

func (ac *AuthController) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return badRequest(c, "Validation failed", err)
	}

	var user models.User
	if err := ac.DB.Preload("Worker").Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid email or password", nil)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid email or password", nil)
	}
	if !user.IsActive {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Account is not active", nil)
	}
	if user.Worker == nil {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Account has no worker profile", nil)
	}

	worker := *user.Worker
	worker.User = user
	return ac.issueTokens(c, fiber.StatusOK, &user, worker)
}

// RefreshToken accepts the refresh token from the body or the refresh_token cookie.
func (ac *AuthController) RefreshToken(c *fiber.Ctx) error {
	var req RefreshRequest
	_ = c.BodyParser(&req)
	token := req.RefreshToken
	if token == "" {
		token = c.Cookies("refresh_token")
	}
	if token == "" {
		return badRequest(c, "Refresh token is required", nil)
	}

	accessToken, refreshToken, err := utils.RefreshTokens(ac.DB, token)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid refresh token", err)
	}
	setAuthCookies(c, accessToken, refreshToken)

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	}))
}

// Logout revokes every token issued so far by bumping the token version.
func (ac *AuthController) Logout(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	if err := ac.DB.Model(&models.User{}).Where("id = ?", user.ID).
		Update("token_version", gorm.Expr("token_version + 1")).Error; err != nil {
		return respondError(c, ac.Logger, "log out", err)
	}
	c.ClearCookie("access_token", "refresh_token")

	ac.Logger.WithField("user_id", user.ID).Info("user logged out")
	return c.JSON(utils.SuccessResponse(fiber.Map{"message": "Logged out"}))
}

func (ac *AuthController) GetCurrentUser(c *fiber.Ctx) error {
	worker := currentWorker(c)
	if err := ac.DB.Preload("Team").First(&worker, worker.ID).Error; err != nil {
		return respondError(c, ac.Logger, "load profile", err)
	}
	return c.JSON(utils.SuccessResponse(NewWorkerResponse(worker)))
}

func (ac *AuthController) issueTokens(c *fiber.Ctx, status int, user *models.User, worker models.Worker) error {
	accessToken, refreshToken, err := utils.GenerateJWTToken(user)
	if err != nil {
		return respondError(c, ac.Logger, "generate tokens", err)
	}
	setAuthCookies(c, accessToken, refreshToken)

	return c.Status(status).JSON(utils.SuccessResponse(AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Worker:       NewWorkerResponse(worker),
	}))
}

func setAuthCookies(c *fiber.Ctx, accessToken, refreshToken string) {
	secure := config.AppConfig.IsProduction()

	accessCookie := new(fiber.Cookie)
	accessCookie.Name = "access_token"
	accessCookie.Value = accessToken
	accessCookie.Expires = time.Now().Add(config.AppConfig.AccessTokenTTL)
	accessCookie.HTTPOnly = true
	accessCookie.Secure = secure
	accessCookie.SameSite = "Lax"
	c.Cookie(accessCookie)

	refreshCookie := new(fiber.Cookie)
	refreshCookie.Name = "refresh_token"
	refreshCookie.Value = refreshToken
	refreshCookie.Expires = time.Now().Add(config.AppConfig.RefreshTokenTTL)
	refreshCookie.HTTPOnly = true
	refreshCookie.Secure = secure
	refreshCookie.SameSite = "Lax"
	c.Cookie(refreshCookie)
}
