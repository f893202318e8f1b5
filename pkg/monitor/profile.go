package monitor

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"liyu1981.xyz/roomwatch-service/pkg/common"
	"liyu1981.xyz/roomwatch-service/pkg/models"
)

func (m *Monitor) getProfile(ctx context.Context, userID string) (models.Profile, error) {
	var profile models.Profile
	if err := m.Db.Conn.WithContext(ctx).First(&profile, "id = ?", userID).Error; err != nil {
		return models.Profile{}, notFound(err, "profile "+userID)
	}
	return profile, nil
}

func (m *Monitor) updateProfile(ctx context.Context, userID string, input *models.ProfileUpdate) (models.Profile, error) {
	logger := categoryLogger(common.LoggerCategoryProfile)

	var profile models.Profile
	err := m.Db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&profile, "id = ?", userID).Error; err != nil {
			return notFound(err, "profile "+userID)
		}
		if input.DisplayName != nil {
			name := strings.TrimSpace(*input.DisplayName)
			if name == "" {
				return fmt.Errorf("%w: display name cannot be empty", models.ErrValidation)
			}
			profile.DisplayName = name
		}
		if input.AvatarURL != nil {
			if *input.AvatarURL != "" {
				if u, err := url.Parse(*input.AvatarURL); err != nil || u.Scheme == "" || u.Host == "" {
					return fmt.Errorf("%w: avatar url %q is not absolute", models.ErrValidation, *input.AvatarURL)
				}
			}
			profile.AvatarURL = *input.AvatarURL
		}
		return tx.Model(&profile).Select("display_name", "avatar_url").Updates(&profile).Error
	})
	if err != nil {
		return models.Profile{}, err
	}

	logger.Info("Profile updated", zap.String("user_id", userID))
	return profile, nil
}

type IProfileImpl struct {
	monitor *Monitor
}

func (ip *IProfileImpl) GetProfile(ctx context.Context, userID string) (models.Profile, error) {
	return ip.monitor.getProfile(ctx, userID)
}

func (ip *IProfileImpl) UpdateProfile(ctx context.Context, userID string, input *models.ProfileUpdate) (models.Profile, error) {
	return ip.monitor.updateProfile(ctx, userID, input)
}

func (m *Monitor) GetIProfile() IProfile {
	return &IProfileImpl{monitor: m}
}
