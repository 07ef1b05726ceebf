package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Cheertaboi/nexu-webshop/internal/apperrors"
	"github.com/Cheertaboi/nexu-webshop/internal/cache"
	"github.com/Cheertaboi/nexu-webshop/internal/models"
)

const siteSettingsKey = "site"

// SettingsService is a read-through cache over the site_settings rows.
type SettingsService struct {
	tx    TxManager
	repo  SettingsRepo
	cache *cache.Cache[models.SiteSettings]
}

func NewSettingsService(tx TxManager, repo SettingsRepo, c *cache.Cache[models.SiteSettings]) *SettingsService {
	if c == nil {
		c = cache.New[models.SiteSettings](0)
	}
	return &SettingsService{tx: tx, repo: repo, cache: c}
}

func (s *SettingsService) Current(ctx context.Context) (models.SiteSettings, error) {
	if v, ok := s.cache.Get(siteSettingsKey); ok {
		return v, nil
	}
	rows, err := s.repo.All(ctx)
	if err != nil {
		return models.SiteSettings{}, fmt.Errorf("load settings: %w", err)
	}
	settings, err := parseSettings(rows)
	if err != nil {
		return models.SiteSettings{}, err
	}
	s.cache.Set(siteSettingsKey, settings)
	return settings, nil
}

type SettingsUpdate struct {
	ShippingFee           *int64
	FreeShippingThreshold *int64
}

// Update writes every given key in one transaction and then drops the cache.
func (s *SettingsService) Update(ctx context.Context, in SettingsUpdate) (models.SiteSettings, error) {
	values := map[string]*int64{
		models.SettingShippingFee:           in.ShippingFee,
		models.SettingFreeShippingThreshold: in.FreeShippingThreshold,
	}
	for key, v := range values {
		if v != nil && *v < 0 {
			return models.SiteSettings{}, apperrors.WithMetadata(apperrors.CodeValidation, "setting must not be negative",
				map[string]string{"field": key})
		}
	}

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		for key, v := range values {
			if v == nil {
				continue
			}
			if err := s.repo.Put(ctx, key, strconv.FormatInt(*v, 10)); err != nil {
				return fmt.Errorf("put setting %s: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return models.SiteSettings{}, err
	}
	s.cache.Invalidate(siteSettingsKey)
	return s.Current(ctx)
}

func parseSettings(rows map[string]string) (models.SiteSettings, error) {
	var out models.SiteSettings
	for key, dst := range map[string]*int64{
		models.SettingShippingFee:           &out.ShippingFee,
		models.SettingFreeShippingThreshold: &out.FreeShippingThreshold,
	} {
		raw, ok := rows[key]
		if !ok {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return models.SiteSettings{}, fmt.Errorf("setting %s=%q: %w", key, raw, err)
		}
		*dst = v
	}
	return out, nil
}
