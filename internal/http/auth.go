package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/readledger/readledger/internal/auth"
	"github.com/readledger/readledger/internal/database/users"
	"github.com/readledger/readledger/internal/entities"
)

type AuthController struct {
	service        *auth.Service
	users          *users.Repository
	sessionManager *auth.SessionManager
}

func NewAuthController(service *auth.Service, repo *users.Repository, sessionManager *auth.SessionManager) *AuthController {
	return &AuthController{
		service:        service,
		users:          repo,
		sessionManager: sessionManager,
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type goalsRequest struct {
	MonthlyGoal *int `json:"monthly_goal"`
	AnnualGoal  *int `json:"annual_goal"`
}

type userResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	MonthlyGoal *int   `json:"monthly_goal,omitempty"`
	AnnualGoal  *int   `json:"annual_goal,omitempty"`
}

func toUserResponse(user *entities.User) userResponse {
	return userResponse{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		MonthlyGoal: user.MonthlyGoal,
		AnnualGoal:  user.AnnualGoal,
	}
}

// Register creates an account and returns the generated access key.
// The key is only ever returned here; clients must store it.
func (controller *AuthController) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	user, err := controller.service.Register(req.Name, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailTaken):
			respondConflict(c, err.Error(), "email_taken")
		case errors.Is(err, auth.ErrNameRequired),
			errors.Is(err, auth.ErrEmailRequired),
			errors.Is(err, auth.ErrEmailInvalid),
			errors.Is(err, auth.ErrPasswordRequired),
			errors.Is(err, auth.ErrPasswordTooShort),
			errors.Is(err, auth.ErrPasswordTooLong):
			respondBadRequest(c, err.Error())
		default:
			respondInternalError(c, err, "register")
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":       toUserResponse(user),
		"access_key": user.AccessKey,
	})
}

// Login verifies credentials and starts a session.
func (controller *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	user, err := controller.service.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondError(c, http.StatusUnauthorized, err.Error())
			return
		}
		respondInternalError(c, err, "login")
		return
	}

	if controller.sessionManager != nil {
		if err := controller.sessionManager.CreateSession(c.Request, user); err != nil {
			respondInternalError(c, err, "create session")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}

// Logout destroys the current session. Bearer clients get a 200 too;
// access keys are not revocable through this endpoint.
func (controller *AuthController) Logout(c *gin.Context) {
	if controller.sessionManager != nil {
		if err := controller.sessionManager.DestroySession(c.Request); err != nil {
			respondInternalError(c, err, "destroy session")
			return
		}
	}
	respondSuccess(c, "logged out")
}

// Me returns the authenticated user's profile.
func (controller *AuthController) Me(c *gin.Context) {
	user, err := controller.service.GetUser(GetUserID(c))
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			respondNotFound(c, "user")
			return
		}
		respondInternalError(c, err, "get user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}

// UpdateGoals sets or clears the monthly and annual page goals.
func (controller *AuthController) UpdateGoals(c *gin.Context) {
	var req goalsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	if req.MonthlyGoal != nil && *req.MonthlyGoal < 0 {
		respondBadRequest(c, "monthly_goal must not be negative")
		return
	}
	if req.AnnualGoal != nil && *req.AnnualGoal < 0 {
		respondBadRequest(c, "annual_goal must not be negative")
		return
	}

	user, err := controller.users.UpdateGoals(GetUserID(c), req.MonthlyGoal, req.AnnualGoal)
	if err != nil {
		respondInternalError(c, err, "update goals")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}
