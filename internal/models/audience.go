package models

// AudienceRecord is one measurement sample. DeviceID refers to Device.DeviceID
// but no foreign key is declared; records may outlive their device.
type AudienceRecord struct {
	ID         uint    `gorm:"primaryKey;autoIncrement" json:"-"`
	DeviceID   string  `gorm:"column:device_id;size:191;index:idx_audience_device_id" json:"device_id"`
	TS         string  `gorm:"column:ts" json:"ts"`
	ScreenTime float64 `gorm:"column:screen_time" json:"screen_time"`
	Volume     int     `gorm:"column:volume" json:"volume"`
}

func (AudienceRecord) TableName() string { return "audience_data" }
