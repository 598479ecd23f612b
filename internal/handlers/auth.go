package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"medconnect-server/internal/apperr"
	"medconnect-server/internal/config"
	"medconnect-server/internal/logger"
	"medconnect-server/internal/models"
	"medconnect-server/internal/utils"
)

const refreshCookie = "refresh_token"

// AuthRepository is the persistence AuthHandler needs.
type AuthRepository interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	SaveUser(ctx context.Context, user *models.User) error
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	GetActiveRefreshToken(ctx context.Context, token, userID string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, token, userID string) error
}

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	repo   AuthRepository
	cfg    *config.Config
	logger *logger.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(repo AuthRepository, cfg *config.Config, log *logger.Logger) *AuthHandler {
	return &AuthHandler{repo: repo, cfg: cfg, logger: log}
}

// RegisterRequest represents the request body for user registration.
// Admin accounts are created through the admin API only.
type RegisterRequest struct {
	FirstName   string `json:"firstName" binding:"required"`
	LastName    string `json:"lastName" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	Role        string `json:"role" binding:"omitempty,oneof=patient doctor hospital lab_partner"`
	PhoneNumber string `json:"phoneNumber"`
	Address     string `json:"address"`
}

// Register handles user registration.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	role := models.RolePatient
	if req.Role != "" {
		role = models.Role(req.Role)
	}

	user, err := createUser(c.Request.Context(), h.repo, newUser{
		FirstName: req.FirstName, LastName: req.LastName, Email: req.Email, Password: req.Password,
		Role: role, PhoneNumber: req.PhoneNumber, Address: req.Address,
	})
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	h.logger.Audit(user.ID, "register", "user", true, map[string]interface{}{"role": user.Role})
	utils.Created(c, "User registered successfully", user.Sanitize())
}

type newUser struct {
	FirstName, LastName, Email, Password string
	Role                                 models.Role
	PhoneNumber, Address                 string
}

type userCreator interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
}

// createUser inserts a user after checking the email is free.
func createUser(ctx context.Context, repo userCreator, in newUser) (*models.User, error) {
	_, err := repo.GetUserByEmail(ctx, in.Email)
	if err == nil {
		return nil, apperr.Conflict("User with this email already exists")
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}

	user := &models.User{
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Email:       in.Email,
		Role:        in.Role,
		PhoneNumber: in.PhoneNumber,
		Address:     in.Address,
	}
	if err := user.SetPassword(in.Password); err != nil {
		return nil, apperr.Internal("Failed to hash password", err)
	}
	if err := repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// LoginRequest represents the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the response body for successful login.
type LoginResponse struct {
	AccessToken  string               `json:"accessToken"`
	RefreshToken string               `json:"refreshToken"`
	User         models.UserSanitized `json:"user"`
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	user, err := h.repo.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			utils.Unauthorized(c, "Invalid email or password")
			return
		}
		utils.HandleError(c, err)
		return
	}

	if !user.CheckPassword(req.Password) {
		h.logger.Audit(user.ID, "login", "session", false, nil)
		utils.Unauthorized(c, "Invalid email or password")
		return
	}

	access, refresh, err := h.issueTokens(c, user)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	h.logger.Audit(user.ID, "login", "session", true, nil)
	utils.Success(c, "Login successful", LoginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         user.Sanitize(),
	})
}

// issueTokens signs a token pair, stores the refresh token and sets it as an
// HTTP-only cookie.
func (h *AuthHandler) issueTokens(c *gin.Context, user *models.User) (string, string, error) {
	access, refresh, err := utils.GenerateTokens(user, h.cfg)
	if err != nil {
		return "", "", apperr.Internal("Failed to generate tokens", err)
	}

	expiresAt := time.Now().Add(time.Duration(h.cfg.JWTRefreshExpirationHours) * time.Hour)
	stored := models.NewRefreshToken(user.ID, refresh, expiresAt)
	if err := h.repo.CreateRefreshToken(c.Request.Context(), stored); err != nil {
		return "", "", err
	}

	h.setRefreshCookie(c, refresh, h.cfg.JWTRefreshExpirationHours*60*60)
	return access, refresh, nil
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, value string, maxAge int) {
	c.SetCookie(refreshCookie, value, maxAge, "/", "", h.cfg.Environment != "development", true)
}

// RefreshTokenRequest represents the request body for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RefreshTokenResponse represents the response body for successful token refresh.
type RefreshTokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken rotates a refresh token: the presented token is revoked and
// a new pair is issued. The token is read from the cookie, else the body.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	presented, err := c.Cookie(refreshCookie)
	if err != nil || presented == "" {
		var req RefreshTokenRequest
		if !utils.BindAndValidate(c, &req) {
			return
		}
		presented = req.RefreshToken
	}

	claims, err := utils.ValidateToken(presented, h.cfg.JWTRefreshSecret)
	if err != nil {
		utils.Unauthorized(c, "Invalid refresh token structure or signature: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	if _, err := h.repo.GetActiveRefreshToken(ctx, presented, claims.UserID); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			utils.Unauthorized(c, "Refresh token not found, expired, or revoked")
			return
		}
		utils.HandleError(c, err)
		return
	}

	user, err := h.repo.GetUser(ctx, claims.UserID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			utils.Unauthorized(c, "User no longer exists")
			return
		}
		utils.HandleError(c, err)
		return
	}

	if err := h.repo.RevokeRefreshToken(ctx, presented, claims.UserID); err != nil {
		utils.HandleError(c, err)
		return
	}

	access, refresh, err := h.issueTokens(c, user)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.Success(c, "Access token refreshed successfully", RefreshTokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
	})
}

// LogoutRequest represents the request body for user logout.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Logout revokes the caller's refresh token from the body or cookie.
// Unknown, foreign or already revoked tokens still log out successfully.
func (h *AuthHandler) Logout(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req LogoutRequest
	_ = c.ShouldBindJSON(&req)
	if req.RefreshToken == "" {
		req.RefreshToken, _ = c.Cookie(refreshCookie)
	}
	if req.RefreshToken == "" {
		utils.BadRequest(c, "Refresh token is required")
		return
	}

	if err := h.repo.RevokeRefreshToken(c.Request.Context(), req.RefreshToken, actor.ID); err != nil {
		utils.HandleError(c, err)
		return
	}

	h.setRefreshCookie(c, "", -1)
	h.logger.Audit(actor.ID, "logout", "session", true, nil)
	utils.Success(c, "Logout successful. Refresh token has been invalidated.", nil)
}

// GetProfile handles fetching the currently authenticated user's profile.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	user, err := h.repo.GetUser(c.Request.Context(), actor.ID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.Success(c, "Profile fetched successfully", user.Sanitize())
}

// UpdateProfileRequest represents the request body for updating user profile.
// Email and role cannot be changed here.
type UpdateProfileRequest struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	PhoneNumber  string `json:"phoneNumber"`
	Address      string `json:"address"`
	ProfileImage string `json:"profileImage"`
	DateOfBirth  string `json:"dateOfBirth"`
}

// UpdateProfile handles updating the currently authenticated user's profile.
// Empty fields are left unchanged.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	user, err := h.repo.GetUser(c.Request.Context(), actor.ID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	if req.FirstName != "" {
		user.FirstName = req.FirstName
	}
	if req.LastName != "" {
		user.LastName = req.LastName
	}
	if req.PhoneNumber != "" {
		user.PhoneNumber = req.PhoneNumber
	}
	if req.Address != "" {
		user.Address = req.Address
	}
	if req.ProfileImage != "" {
		user.ProfileImage = req.ProfileImage
	}
	if req.DateOfBirth != "" {
		dob, err := time.Parse(models.DateLayout, req.DateOfBirth)
		if err != nil {
			utils.ValidationFailed(c, "Invalid date of birth", map[string]string{"dateOfBirth": "use YYYY-MM-DD"})
			return
		}
		user.DateOfBirth = &dob
	}

	if err := h.repo.SaveUser(c.Request.Context(), user); err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.Success(c, "Profile updated successfully", user.Sanitize())
}
