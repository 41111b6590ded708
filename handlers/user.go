package handlers

import (
	"net/http"
	"strings"

	"courier_track_go/config"
	"courier_track_go/db"
	"courier_track_go/middleware"
	"courier_track_go/models"
	"courier_track_go/services"

	"github.com/labstack/echo/v4"
)

type createUserRequest struct {
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	EmployeeCode string  `json:"employee_code"`
	Password     string  `json:"password"`
	Role         string  `json:"role"`
	DepartmentID *string `json:"department_id"`
	Phone        *string `json:"phone"`
}

type updateUserRequest struct {
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Role         string  `json:"role"`
	DepartmentID *string `json:"department_id"`
	Phone        *string `json:"phone"`
	IsActive     *bool   `json:"is_active"`
}

// ListUsersHandler returns users with role and search filters (admin only)
func ListUsersHandler(c echo.Context) error {
	page, pageSize := paginationParams(c)

	query := db.DB.Model(&models.User{}).Preload("Department")

	if role := c.QueryParam("role"); role != "" {
		if !models.IsValidRole(role) {
			return jsonError(c, http.StatusBadRequest, "Unknown role: "+role)
		}
		query = query.Where("role = ?", role)
	}
	if active := c.QueryParam("active"); active == "true" {
		query = query.Where("is_active = ?", true)
	} else if active == "false" {
		query = query.Where("is_active = ?", false)
	}
	if search := c.QueryParam("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("name LIKE ? OR email LIKE ? OR employee_code LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to count users")
	}

	var users []models.User
	if err := query.
		Order("name ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&users).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to load users")
	}

	return c.JSON(http.StatusOK, listResponse{Items: users, Total: total, Page: page, PageSize: pageSize})
}

// GetUserHandler returns one user (admins, or the user themselves)
func GetUserHandler(c echo.Context) error {
	id := c.Param("id")
	current := middleware.GetCurrentUser(c)

	if current.Role != models.RoleAdmin && current.Role != models.RoleSubAdmin && current.ID != id {
		return jsonError(c, http.StatusForbidden, "Insufficient permissions")
	}

	var user models.User
	if err := db.DB.Preload("Department").First(&user, "id = ?", id).Error; err != nil {
		return jsonError(c, http.StatusNotFound, "User not found")
	}
	return c.JSON(http.StatusOK, user)
}

// CreateUserHandler adds a user account and sends the welcome email
func CreateUserHandler(c echo.Context) error {
	cfg, _ := c.Get("config").(*config.Config)

	var req createUserRequest
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
	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	if !models.IsValidRole(role) {
		errs = append(errs, services.FieldError{Field: "role", Message: "unknown role", Value: role})
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
		return jsonError(c, http.StatusInternalServerError, "Failed to create user")
	}

	user := models.User{
		Name:         name,
		Email:        email,
		EmployeeCode: employeeCode,
		Password:     hashed,
		Role:         role,
		DepartmentID: req.DepartmentID,
		Phone:        req.Phone,
		IsActive:     true,
	}
	if err := db.DB.Create(&user).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to create user")
	}

	if cfg != nil {
		settings := services.GetEmailSettings(db.DB)
		loginURL := services.BaseURL(cfg, settings) + "/login"
		services.SendEmailAsync(cfg, settings, services.BuildWelcomeEmail(user.Email, user.Name, loginURL))
	}

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionCreate, "User", user.ID, user.Name,
		"User account created", nil, user)

	return c.JSON(http.StatusCreated, user)
}

// UpdateUserHandler edits a user account (admin) or own profile
func UpdateUserHandler(c echo.Context) error {
	id := c.Param("id")
	current := middleware.GetCurrentUser(c)

	if !middleware.CanModifyUser(c, id) {
		return jsonError(c, http.StatusForbidden, "Insufficient permissions")
	}

	var user models.User
	if err := db.DB.First(&user, "id = ?", id).Error; err != nil {
		return jsonError(c, http.StatusNotFound, "User not found")
	}

	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}

	isAdmin := current.Role == models.RoleAdmin || current.Role == models.RoleSubAdmin

	old := user
	updates := map[string]interface{}{}
	if name := strings.TrimSpace(req.Name); name != "" {
		updates["name"] = name
	}
	if email := strings.ToLower(strings.TrimSpace(req.Email)); email != "" {
		var count int64
		db.DB.Unscoped().Model(&models.User{}).
			Where("email = ? AND id != ?", email, user.ID).
			Count(&count)
		if count > 0 {
			return jsonError(c, http.StatusConflict, "A user with this email already exists")
		}
		updates["email"] = email
	}
	if req.Phone != nil {
		updates["phone"] = req.Phone
	}

	// Role, department and activation are admin-only
	if req.Role != "" {
		if !isAdmin {
			return jsonError(c, http.StatusForbidden, "Only admins can change roles")
		}
		if !models.IsValidRole(req.Role) {
			return jsonError(c, http.StatusBadRequest, "Unknown role: "+req.Role)
		}
		updates["role"] = req.Role
	}
	if req.DepartmentID != nil {
		if !isAdmin {
			return jsonError(c, http.StatusForbidden, "Only admins can change department assignment")
		}
		if *req.DepartmentID != "" {
			var department models.Department
			if err := db.DB.First(&department, "id = ?", *req.DepartmentID).Error; err != nil {
				return jsonError(c, http.StatusBadRequest, "Department not found")
			}
		}
		updates["department_id"] = req.DepartmentID
	}
	if req.IsActive != nil {
		if !isAdmin {
			return jsonError(c, http.StatusForbidden, "Only admins can activate or deactivate accounts")
		}
		if user.ID == current.ID && !*req.IsActive {
			return jsonError(c, http.StatusConflict, "You cannot deactivate your own account")
		}
		updates["is_active"] = *req.IsActive
	}

	if len(updates) == 0 {
		return c.JSON(http.StatusOK, user)
	}

	if err := db.DB.Model(&user).Updates(updates).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to update user")
	}

	// Deactivation kills existing sessions immediately
	if req.IsActive != nil && !*req.IsActive {
		_ = services.DeleteAllUserSessions(db.DB, user.ID)
	}

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionUpdate, "User", user.ID, user.Name,
		"User account updated", old, user)

	return c.JSON(http.StatusOK, user)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePasswordHandler lets a user change their own password
func ChangePasswordHandler(c echo.Context) error {
	current := middleware.GetCurrentUser(c)

	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}

	var user models.User
	if err := db.DB.First(&user, "id = ?", current.ID).Error; err != nil {
		return jsonError(c, http.StatusNotFound, "User not found")
	}

	if !services.CheckPassword(req.CurrentPassword, user.Password) {
		return jsonError(c, http.StatusUnauthorized, "Current password is incorrect")
	}
	if len(req.NewPassword) < 8 {
		return jsonError(c, http.StatusBadRequest, "Password must be at least 8 characters")
	}

	hashed, err := services.HashPassword(req.NewPassword)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to change password")
	}
	if err := db.DB.Model(&user).Update("password", hashed).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to change password")
	}

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionUpdate, "User", user.ID, user.Name,
		"Password changed", nil, nil)

	return c.JSON(http.StatusOK, map[string]string{"message": "Password updated"})
}

// UploadProfileImageHandler sets the current user's profile image
func UploadProfileImageHandler(c echo.Context) error {
	cfg, _ := c.Get("config").(*config.Config)
	current := middleware.GetCurrentUser(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "No file uploaded")
	}
	if err := services.ValidateProfileImageUpload(fileHeader); err != nil {
		return jsonError(c, http.StatusBadRequest, err.Error())
	}

	result, err := services.SaveUploadedFile(fileHeader, cfg.UploadDir, "profiles/"+current.ID)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to save image")
	}

	var user models.User
	if err := db.DB.First(&user, "id = ?", current.ID).Error; err != nil {
		return jsonError(c, http.StatusNotFound, "User not found")
	}
	if user.ProfileImage != nil {
		_ = services.DeleteUploadedFile(cfg.UploadDir, *user.ProfileImage)
	}

	if err := db.DB.Model(&user).Update("profile_image", result.FilePath).Error; err != nil {
		_ = services.DeleteUploadedFile(cfg.UploadDir, result.FilePath)
		return jsonError(c, http.StatusInternalServerError, "Failed to record image")
	}

	return c.JSON(http.StatusOK, user)
}

// DeleteUserHandler soft-deletes a user account (admin only)
func DeleteUserHandler(c echo.Context) error {
	current := middleware.GetCurrentUser(c)

	var user models.User
	if err := db.DB.First(&user, "id = ?", c.Param("id")).Error; err != nil {
		return jsonError(c, http.StatusNotFound, "User not found")
	}
	if user.ID == current.ID {
		return jsonError(c, http.StatusConflict, "You cannot delete your own account")
	}

	if err := db.DB.Delete(&user).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to delete user")
	}
	_ = services.DeleteAllUserSessions(db.DB, user.ID)

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionDelete, "User", user.ID, user.Name,
		"User account deleted", user, nil)

	return c.NoContent(http.StatusNoContent)
}
