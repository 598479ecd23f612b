package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"medconnect-server/internal/apperr"
	"medconnect-server/internal/logger"
	"medconnect-server/internal/models"
	"medconnect-server/internal/utils"
)

// UserRepository is the persistence UserHandler needs.
type UserRepository interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	ListUsers(ctx context.Context, role models.Role) ([]models.User, error)
	SaveUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id string) error
	ListPatientsOfDoctor(ctx context.Context, doctorID string) ([]models.User, error)
}

// UserHandler handles user-related requests (typically admin operations).
type UserHandler struct {
	repo   UserRepository
	logger *logger.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(repo UserRepository, log *logger.Logger) *UserHandler {
	return &UserHandler{repo: repo, logger: log}
}

// CreateUserRequest represents the request body for creating a user by an admin.
type CreateUserRequest struct {
	FirstName   string `json:"firstName" binding:"required"`
	LastName    string `json:"lastName" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	Role        string `json:"role" binding:"required,oneof=patient doctor hospital lab_partner admin"`
	PhoneNumber string `json:"phoneNumber"`
	Address     string `json:"address"`
}

// CreateUser handles creating a new user (admin).
func (h *UserHandler) CreateUser(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req CreateUserRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	user, err := createUser(c.Request.Context(), h.repo, newUser{
		FirstName: req.FirstName, LastName: req.LastName, Email: req.Email, Password: req.Password,
		Role: models.Role(req.Role), PhoneNumber: req.PhoneNumber, Address: req.Address,
	})
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	h.logger.Audit(actor.ID, "create", "user", true, map[string]interface{}{"user_id": user.ID, "role": user.Role})
	utils.Created(c, "User created successfully", user.Sanitize())
}

// GetUsers handles fetching all users (admin), optionally by ?role=.
func (h *UserHandler) GetUsers(c *gin.Context) {
	var role models.Role
	if raw := c.Query("role"); raw != "" {
		r, ok := models.ParseRole(raw)
		if !ok {
			utils.BadRequest(c, "Unknown role "+raw)
			return
		}
		role = r
	}

	users, err := h.repo.ListUsers(c.Request.Context(), role)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Users fetched successfully", sanitizeAll(users))
}

// GetUserByID handles fetching a single user by ID (admin).
func (h *UserHandler) GetUserByID(c *gin.Context) {
	user, err := h.repo.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "User fetched successfully", user.Sanitize())
}

// UpdateUserRequest represents the request body for updating a user by an admin.
// Passwords are not changed here.
type UpdateUserRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email" binding:"omitempty,email"`
	Role        string `json:"role" binding:"omitempty,oneof=patient doctor hospital lab_partner admin"`
	PhoneNumber string `json:"phoneNumber"`
	Address     string `json:"address"`
}

// UpdateUser handles updating a user by ID (admin).
func (h *UserHandler) UpdateUser(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req UpdateUserRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	ctx := c.Request.Context()
	user, err := h.repo.GetUser(ctx, c.Param("id"))
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
	if email := strings.ToLower(strings.TrimSpace(req.Email)); email != "" && email != user.Email {
		existing, err := h.repo.GetUserByEmail(ctx, email)
		if err == nil && existing.ID != user.ID {
			utils.Conflict(c, "New email is already in use")
			return
		}
		if err != nil && !apperr.Is(err, apperr.KindNotFound) {
			utils.HandleError(c, err)
			return
		}
		user.Email = email
	}
	if req.Role != "" {
		user.Role = models.Role(req.Role)
	}

	if err := h.repo.SaveUser(ctx, user); err != nil {
		utils.HandleError(c, err)
		return
	}

	h.logger.Audit(actor.ID, "update", "user", true, map[string]interface{}{"user_id": user.ID})
	utils.Success(c, "User updated successfully", user.Sanitize())
}

// DeleteUser handles deleting a user by ID (admin). Admins cannot delete themselves.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if id == actor.ID {
		utils.Conflict(c, "You cannot delete your own account")
		return
	}

	if err := h.repo.DeleteUser(c.Request.Context(), id); err != nil {
		utils.HandleError(c, err)
		return
	}

	h.logger.Audit(actor.ID, "delete", "user", true, map[string]interface{}{"user_id": id})
	utils.Success(c, "User deleted successfully", nil)
}

// GetPatients lists patients: a doctor sees those with an appointment with
// them, an admin sees every patient.
func (h *UserHandler) GetPatients(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var (
		patients []models.User
		err      error
	)
	switch actor.Role {
	case models.RoleDoctor:
		patients, err = h.repo.ListPatientsOfDoctor(c.Request.Context(), actor.ID)
	case models.RoleAdmin:
		patients, err = h.repo.ListUsers(c.Request.Context(), models.RolePatient)
	default:
		utils.Forbidden(c, "Only doctors and admins can view patient lists")
		return
	}
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.Success(c, "Patients fetched successfully", sanitizeAll(patients))
}
