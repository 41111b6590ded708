package services

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
	"time"

	"courier_track_go/models"

	"gorm.io/gorm"
)

const (
	resetTokenBytes = 32
	// ResetTokenExpiration is how long a reset link stays usable
	ResetTokenExpiration = time.Hour
)

// GenerateResetToken issues a reset token for the account behind userEmail.
// Unknown or disabled accounts return (nil, nil) so the handler can reply
// identically either way and not leak which emails exist.
func GenerateResetToken(db *gorm.DB, userEmail string) (*models.PasswordResetToken, error) {
	var user models.User
	if err := db.Where("email = ?", userEmail).First(&user).Error; err != nil {
		log.Printf("Password reset requested for unknown email: %s", userEmail)
		return nil, nil
	}

	if !user.IsActive {
		log.Printf("Password reset requested for disabled account: %s", userEmail)
		return nil, nil
	}

	// A new request supersedes any outstanding token
	db.Where("user_id = ?", user.ID).Delete(&models.PasswordResetToken{})

	raw := make([]byte, resetTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate random token: %w", err)
	}

	resetToken := &models.PasswordResetToken{
		UserID:    user.ID,
		Token:     base64.URLEncoding.EncodeToString(raw),
		ExpiresAt: time.Now().Add(ResetTokenExpiration),
	}
	if err := db.Create(resetToken).Error; err != nil {
		return nil, fmt.Errorf("failed to create reset token: %w", err)
	}

	LogSecurityEvent("PASSWORD_RESET_REQUESTED", user.ID, "Reset token issued for "+userEmail)

	return resetToken, nil
}

// ValidateResetToken resolves a token to its user, rejecting expired tokens
// and disabled accounts. Expired rows are removed on sight.
func ValidateResetToken(db *gorm.DB, token string) (*models.User, error) {
	var resetToken models.PasswordResetToken
	if err := db.Preload("User").Where("token = ?", token).First(&resetToken).Error; err != nil {
		return nil, fmt.Errorf("invalid or expired token")
	}

	if resetToken.IsExpired() {
		db.Delete(&resetToken)
		return nil, fmt.Errorf("token has expired")
	}

	if resetToken.User == nil || !resetToken.User.IsActive {
		return nil, fmt.Errorf("user account is not active")
	}

	return resetToken.User, nil
}

// ResetPassword consumes a valid token: the password changes, the token is
// deleted, and every session for the account is revoked, all in one
// transaction.
func ResetPassword(db *gorm.DB, token string, newPassword string) error {
	if len(newPassword) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	user, err := ValidateResetToken(db, token)
	if err != nil {
		LogSecurityEvent("PASSWORD_RESET_FAILED", "", "Rejected reset attempt")
		return err
	}

	hashedPassword, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Model(&user).Update("password", hashedPassword).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := tx.Where("token = ?", token).Delete(&models.PasswordResetToken{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete token: %w", err)
	}

	if err := DeleteAllUserSessions(tx, user.ID); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to invalidate sessions: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	LogSecurityEvent("PASSWORD_RESET_COMPLETED", user.ID, "Password reset")

	return nil
}

// CleanupExpiredTokens removes reset tokens past their expiry
func CleanupExpiredTokens(db *gorm.DB) error {
	result := db.Where("expires_at < ?", time.Now()).Delete(&models.PasswordResetToken{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("Cleaned up %d expired password reset tokens", result.RowsAffected)
	}
	return nil
}
