package models

// Device — зарегистрированное устройство. device_id задаёт клиент, уникален.
type Device struct {
	ID       uint   `gorm:"primaryKey;autoIncrement" json:"-"`
	DeviceID string `gorm:"column:device_id;size:191;not null;uniqueIndex:ux_devices_device_id" json:"device_id"`
	Type     string `gorm:"column:type" json:"type"`
	User     string `gorm:"column:user" json:"user"`
}

func (Device) TableName() string { return "devices" }
