package repo

import (
	"context"
	"errors"
	"fmt"

	"audience/internal/db"
	"audience/internal/models"

	"gorm.io/gorm"
)

// ErrDuplicateDevice — device_id уже зарегистрирован.
var ErrDuplicateDevice = errors.New("device already exists")

type DeviceStore struct {
	db *gorm.DB
}

func NewDeviceStore(db *gorm.DB) *DeviceStore {
	return &DeviceStore{db: db}
}

// Create inserts d and fills d.ID. A taken device_id yields ErrDuplicateDevice.
func (s *DeviceStore) Create(ctx context.Context, d *models.Device) error {
	if err := s.db.WithContext(ctx).Create(d).Error; err != nil {
		if db.IsDuplicate(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateDevice, d.DeviceID)
		}
		return fmt.Errorf("insert device: %w", err)
	}
	return nil
}

// Delete удаляет устройство по device_id. Отсутствие строки — не ошибка.
func (s *DeviceStore) Delete(ctx context.Context, deviceID string) error {
	err := s.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Delete(&models.Device{}).Error
	if err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	return nil
}

// List returns all devices in insertion order.
func (s *DeviceStore) List(ctx context.Context) ([]models.Device, error) {
	out := []models.Device{}
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return out, nil
}

func (s *DeviceStore) Exists(ctx context.Context, deviceID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Device{}).
		Where("device_id = ?", deviceID).
		Limit(1).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("lookup device: %w", err)
	}
	return n > 0, nil
}

func (s *DeviceStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Device{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count devices: %w", err)
	}
	return n, nil
}
