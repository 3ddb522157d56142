package inventory

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// SweepScheduler ejecuta el barrido de bajo stock con una expresión cron de 5 campos.
type SweepScheduler struct {
	cron    *cron.Cron
	monitor *LowStockMonitor
	spec    string
	timeout time.Duration
	log     zerolog.Logger
}

// NewSweepScheduler construye el planificador; no arranca hasta Start.
func NewSweepScheduler(monitor *LowStockMonitor, spec string, log zerolog.Logger) *SweepScheduler {
	return &SweepScheduler{
		cron:    cron.New(),
		monitor: monitor,
		spec:    spec,
		timeout: 2 * time.Minute,
		log:     log,
	}
}

// Start registra el barrido y arranca el cron.
func (s *SweepScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.run); err != nil {
		return err
	}
	s.log.Info().Str("spec", s.spec).Msg("barrido de bajo stock programado")
	s.cron.Start()
	return nil
}

// Stop detiene el cron y espera a que termine un barrido en curso.
func (s *SweepScheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *SweepScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	low, err := s.monitor.Sweep(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("barrido de bajo stock con errores")
		return
	}
	s.log.Debug().Int("low", low).Msg("barrido de bajo stock completado")
}
