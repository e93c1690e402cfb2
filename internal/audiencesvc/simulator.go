package audiencesvc

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"audience/internal/models"
	"audience/internal/validation"
)

const (
	minScreenTime = 1.0
	maxScreenTime = 60.0
	maxVolume     = 100
)

// Simulator synthesizes plausible audience samples for a device.
type Simulator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

func NewSimulator(rng *rand.Rand, now func() time.Time) *Simulator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if now == nil {
		now = time.Now
	}
	return &Simulator{rng: rng, now: now}
}

// Sample: screen_time in [1, 60] with two decimals, volume in [0, 100].
func (s *Simulator) Sample(deviceID string) models.AudienceRecord {
	s.mu.Lock()
	st := minScreenTime + s.rng.Float64()*(maxScreenTime-minScreenTime)
	vol := s.rng.IntN(maxVolume + 1)
	s.mu.Unlock()

	return models.AudienceRecord{
		DeviceID:   deviceID,
		TS:         validation.FormatTimestamp(s.now()),
		ScreenTime: math.Round(st*100) / 100,
		Volume:     vol,
	}
}
