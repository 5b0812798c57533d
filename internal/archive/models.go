package archive

import (
	"time"

	"github.com/openhydro/river-discharge/internal/extrap"
	"github.com/openhydro/river-discharge/internal/qa"
	"github.com/openhydro/river-discharge/internal/settings"
	"github.com/openhydro/river-discharge/internal/uncertainty"
)

// Summary is one archived measurement's listing row.
type Summary struct {
	ID            int64
	CreatedAt     time.Time
	StationName   string
	StationNumber string
	Processing    string
}

// measurementPayload is the measurement-level document stored beside
// the relational fields. YAML carries the NaN-laden numeric state that
// JSON cannot represent.
type measurementPayload struct {
	Comments        []string                 `yaml:"comments,omitempty"`
	InitialSettings settings.Settings        `yaml:"initial_settings"`
	ExtrapFit       *extrap.Fit              `yaml:"extrap_fit,omitempty"`
	Uncertainty     *uncertainty.Uncertainty `yaml:"uncertainty,omitempty"`
	TempCheck       qa.TempCheck             `yaml:"temp_check"`
}
