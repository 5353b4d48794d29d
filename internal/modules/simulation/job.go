package simulation

import (
	"github.com/rs/zerolog"
)

// Job runs the price simulator on its fixed interval.
type Job struct {
	service *Service
	log     zerolog.Logger
}

// NewJob creates a new price simulation job
func NewJob(service *Service, log zerolog.Logger) *Job {
	return &Job{
		service: service,
		log:     log.With().Str("job", "price_simulation").Logger(),
	}
}

// Run executes one simulation step across all stocks
func (j *Job) Run() error {
	_, err := j.service.PerturbAll()
	return err
}

// Name returns the job name for scheduling and logging.
func (j *Job) Name() string {
	return "price_simulation"
}
