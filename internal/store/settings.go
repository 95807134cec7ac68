package store

import (
	"context"
	"strconv"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/utils"
)

// ---------------- SETTINGS ----------------

func (d *DB) ListSettings(ctx context.Context) (map[string]string, error) {
	var rows []models.SystemSetting
	if err := d.idb.NewSelect().Model(&rows).Scan(ctx); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

func (d *DB) UpsertSetting(ctx context.Context, key, value string) error {
	_, err := d.idb.NewInsert().
		Model(&models.SystemSetting{Key: key, Value: value, UpdatedAt: utils.Now()}).
		On("CONFLICT (setting_key) DO UPDATE").
		Set("setting_value = EXCLUDED.setting_value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

// LoadSettings reads the typed settings, falling back to defaults for
// missing or unparsable values.
func (d *DB) LoadSettings(ctx context.Context) (models.Settings, error) {
	s := models.DefaultSettings()
	raw, err := d.ListSettings(ctx)
	if err != nil {
		return s, err
	}
	if v, ok := raw[models.SettingRestaurantName]; ok && v != "" {
		s.RestaurantName = v
	}
	if v, err := strconv.ParseFloat(raw[models.SettingTaxRate], 64); err == nil {
		s.TaxRate = v
	}
	if v, err := strconv.ParseFloat(raw[models.SettingServiceChargeRate], 64); err == nil {
		s.ServiceChargeRate = v
	}
	if v, err := strconv.ParseBool(raw[models.SettingAllowNegativeStock]); err == nil {
		s.AllowNegativeStock = v
	}
	if v, err := strconv.ParseBool(raw[models.SettingAllowSharedTables]); err == nil {
		s.AllowSharedTables = v
	}
	if v, ok := raw[models.SettingReceiptFooter]; ok {
		s.ReceiptFooter = v
	}
	if v, ok := raw[models.SettingCurrency]; ok && v != "" {
		s.Currency = v
	}
	return s, nil
}
