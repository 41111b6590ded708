package handlers

import (
	"net/http"
	"strings"
	"time"

	"courier_track_go/config"
	"courier_track_go/db"
	"courier_track_go/middleware"
	"courier_track_go/models"
	"courier_track_go/services"

	"github.com/labstack/echo/v4"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt string      `json:"expires_at"`
	User      models.User `json:"user"`
}

// LoginHandler authenticates by email and password and issues a session token
func LoginHandler(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return jsonError(c, http.StatusBadRequest, "Email and password are required")
	}

	var user models.User
	if err := db.DB.First(&user, "email = ?", email).Error; err != nil {
		services.LogSecurityEvent("login_failed", email, "unknown email from "+c.RealIP())
		return jsonError(c, http.StatusUnauthorized, "Invalid email or password")
	}

	if !services.CheckPassword(req.Password, user.Password) {
		services.LogSecurityEvent("login_failed", user.ID, "wrong password from "+c.RealIP())
		return jsonError(c, http.StatusUnauthorized, "Invalid email or password")
	}

	if !user.IsActive {
		return jsonError(c, http.StatusUnauthorized, "Account is disabled")
	}

	session, err := services.CreateSession(db.DB, user.ID, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to create session")
	}

	db.DB.Model(&user).Update("last_login_at", time.Now())

	actor := services.AuditContext{
		UserID: user.ID, UserName: user.Name, UserRole: user.Role,
		IPAddress: c.RealIP(), UserAgent: c.Request().UserAgent(),
	}
	services.LogAuditEvent(db.DB, actor, models.AuditActionLogin, "User", user.ID, user.Name, "User logged in", nil, nil)

	user.Password = ""
	return c.JSON(http.StatusOK, loginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"),
		User:      user,
	})
}

type registerRequest struct {
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	EmployeeCode string  `json:"employee_code"`
	Password     string  `json:"password"`
	DepartmentID *string `json:"department_id"`
	Phone        *string `json:"phone"`
}

// RegisterHandler creates a self-service account. Registered accounts always
// start with the base user role; elevated roles are granted by an admin.
func RegisterHandler(c echo.Context) error {
	cfg, _ := c.Get("config").(*config.Config)

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}

	var errs services.ValidationErrors
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	employeeCode := strings.TrimSpace(req.EmployeeCode)
	if name == "" {
		errs = append(errs, services.FieldError{Field: "name", Message: "name is required"})
	}
	if email == "" || !strings.Contains(email, "@") {
		errs = append(errs, services.FieldError{Field: "email", Message: "a valid email is required", Value: email})
	}
	if employeeCode == "" {
		errs = append(errs, services.FieldError{Field: "employee_code", Message: "employee code is required"})
	}
	if len(req.Password) < 8 {
		errs = append(errs, services.FieldError{Field: "password", Message: "password must be at least 8 characters"})
	}
	if len(errs) > 0 {
		return jsonValidationError(c, errs)
	}

	var count int64
	db.DB.Unscoped().Model(&models.User{}).
		Where("email = ? OR employee_code = ?", email, employeeCode).
		Count(&count)
	if count > 0 {
		return jsonError(c, http.StatusConflict, "A user with this email or employee code already exists")
	}

	hashed, err := services.HashPassword(req.Password)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to create account")
	}

	user := models.User{
		Name:         name,
		Email:        email,
		EmployeeCode: employeeCode,
		Password:     hashed,
		Role:         models.RoleUser,
		DepartmentID: req.DepartmentID,
		Phone:        req.Phone,
		IsActive:     true,
	}
	if err := db.DB.Create(&user).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to create account")
	}

	session, err := services.CreateSession(db.DB, user.ID, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to create session")
	}

	if cfg != nil {
		settings := services.GetEmailSettings(db.DB)
		loginURL := services.BaseURL(cfg, settings) + "/login"
		services.SendEmailAsync(cfg, settings, services.BuildWelcomeEmail(user.Email, user.Name, loginURL))
	}

	actor := services.AuditContext{
		UserID: user.ID, UserName: user.Name, UserRole: user.Role,
		IPAddress: c.RealIP(), UserAgent: c.Request().UserAgent(),
	}
	services.LogAuditEvent(db.DB, actor, models.AuditActionCreate, "User", user.ID, user.Name,
		"User self-registered", nil, user)

	user.Password = ""
	return c.JSON(http.StatusCreated, loginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"),
		User:      user,
	})
}

// LogoutHandler revokes the current session token
func LogoutHandler(c echo.Context) error {
	session, ok := c.Get(middleware.ContextKeySession).(*models.Session)
	if !ok {
		return jsonError(c, http.StatusUnauthorized, "Not authenticated")
	}

	if err := services.DeleteSession(db.DB, session.Token); err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to end session")
	}

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionLogout, "User", actor.UserID, actor.UserName, "User logged out", nil, nil)

	return c.NoContent(http.StatusNoContent)
}

// MeHandler returns the authenticated user's profile
func MeHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return jsonError(c, http.StatusUnauthorized, "Not authenticated")
	}

	var full models.User
	if err := db.DB.Preload("Department").First(&full, "id = ?", user.ID).Error; err != nil {
		return jsonError(c, http.StatusNotFound, "User not found")
	}
	return c.JSON(http.StatusOK, full)
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPasswordHandler issues a reset token and emails the reset link.
// The response never reveals whether the address exists.
func ForgotPasswordHandler(c echo.Context) error {
	cfg, _ := c.Get("config").(*config.Config)

	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return jsonError(c, http.StatusBadRequest, "Email is required")
	}

	token, err := services.GenerateResetToken(db.DB, email)
	if err == nil && token != nil && cfg != nil {
		var user models.User
		if db.DB.First(&user, "email = ?", email).Error == nil {
			settings := services.GetEmailSettings(db.DB)
			resetLink := services.BaseURL(cfg, settings) + "/reset-password?token=" + token.Token
			expiresAt := token.ExpiresAt.Format("Jan 2, 2006 at 3:04 PM MST")
			services.SendEmailAsync(cfg, settings, services.BuildPasswordResetEmail(user.Email, user.Name, resetLink, expiresAt))
		}
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "If an account exists for that address, a reset link has been sent",
	})
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ResetPasswordHandler sets a new password from a valid reset token
func ResetPasswordHandler(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	if req.Token == "" || req.Password == "" {
		return jsonError(c, http.StatusBadRequest, "Token and password are required")
	}

	if err := services.ResetPassword(db.DB, req.Token, req.Password); err != nil {
		return jsonError(c, http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Password updated"})
}
