package scanner

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maxvaer/cmsid/internal/logging"
)

// EngineConfig holds the optional hardening knobs of the scan engine.
// The zero value scans every target in parallel with no delays.
type EngineConfig struct {
	Workers          int           // 0 = one goroutine per target
	Delay            time.Duration // pause between signature probes of one target
	AdaptiveThrottle bool
	Pauser           *Pauser // nil = no pause support

	// OnResult is called from worker goroutines as each target finishes.
	// It must be safe for concurrent use.
	OnResult func(index int, result Result)

	Logger logrus.FieldLogger // nil = discard
}

// Engine runs scan tasks against targets using a shared Prober.
type Engine struct {
	prober *Prober
	cfg    EngineConfig
	log    logrus.FieldLogger
}

// NewEngine creates an Engine. The prober is shared by all tasks.
func NewEngine(prober *Prober, cfg EngineConfig) *Engine {
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Engine{prober: prober, cfg: cfg, log: log}
}
