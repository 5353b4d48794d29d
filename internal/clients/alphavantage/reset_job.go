package alphavantage

import "github.com/rs/zerolog"

// ResetJob clears the client's daily request budget. Scheduled at midnight.
type ResetJob struct {
	client *Client
	log    zerolog.Logger
}

// NewResetJob creates a new daily counter reset job
func NewResetJob(client *Client, log zerolog.Logger) *ResetJob {
	return &ResetJob{
		client: client,
		log:    log.With().Str("job", "alphavantage_reset").Logger(),
	}
}

// Run resets the daily request counter
func (j *ResetJob) Run() error {
	j.client.ResetDailyCounter()
	j.log.Debug().Msg("Alpha Vantage daily request counter reset")
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *ResetJob) Name() string {
	return "alphavantage_reset"
}
