package admin

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/store"
	"restaurant-pos/internal/utils"
)

// ---------------- SETTINGS ----------------

func (s *Service) Settings(ctx context.Context) (models.Settings, error) {
	return s.Store.LoadSettings(ctx)
}

// UpdateSettings writes the present fields in one transaction and returns
// the resulting settings.
func (s *Service) UpdateSettings(ctx context.Context, req models.SettingsUpdateRequest) (models.Settings, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return models.Settings{}, err
	}

	values := map[string]string{}
	if req.RestaurantName != nil {
		values[models.SettingRestaurantName] = strings.TrimSpace(*req.RestaurantName)
	}
	if req.TaxRate != nil {
		values[models.SettingTaxRate] = strconv.FormatFloat(*req.TaxRate, 'f', -1, 64)
	}
	if req.ServiceChargeRate != nil {
		values[models.SettingServiceChargeRate] = strconv.FormatFloat(*req.ServiceChargeRate, 'f', -1, 64)
	}
	if req.AllowNegativeStock != nil {
		values[models.SettingAllowNegativeStock] = strconv.FormatBool(*req.AllowNegativeStock)
	}
	if req.AllowSharedTables != nil {
		values[models.SettingAllowSharedTables] = strconv.FormatBool(*req.AllowSharedTables)
	}
	if req.ReceiptFooter != nil {
		values[models.SettingReceiptFooter] = *req.ReceiptFooter
	}
	if req.Currency != nil {
		values[models.SettingCurrency] = strings.ToLower(*req.Currency)
	}
	if len(values) == 0 {
		return models.Settings{}, utils.Validation("no settings to update")
	}

	err := s.Store.RunInTx(ctx, func(ctx context.Context, tx *store.DB) error {
		for k, v := range values {
			if err := tx.UpsertSetting(ctx, k, v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.Settings{}, err
	}
	s.Logger.Info("SETTINGS", "Updated "+strings.Join(sortedKeys(values), ", "))
	return s.Store.LoadSettings(ctx)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
