package cron

import (
	"context"
	"fmt"
	"time"

	cronlib "github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Housekeeping specs are standard five-field expressions or descriptors such
// as @daily and @every 5m.
var specParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

func ValidateSpec(spec string) error {
	if _, err := specParser.Parse(spec); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	return nil
}

// Runner executes housekeeping jobs on cron specs. A job that is still
// running when its next tick fires is skipped.
type Runner struct {
	cron    *cronlib.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
}

func NewRunner(jobTimeout time.Duration) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		cron: cronlib.New(
			cronlib.WithParser(specParser),
			cronlib.WithChain(cronlib.SkipIfStillRunning(cronlib.DiscardLogger)),
		),
		ctx:     ctx,
		cancel:  cancel,
		timeout: jobTimeout,
	}
}

// Add registers fn under spec. An empty spec disables the job.
func (r *Runner) Add(name, spec string, fn func(ctx context.Context)) error {
	if spec == "" {
		log.Info().Str("job", name).Msg("Housekeeping job disabled")
		return nil
	}
	if err := ValidateSpec(spec); err != nil {
		return err
	}

	_, err := r.cron.AddFunc(spec, func() {
		ctx := r.ctx
		if r.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}

		start := time.Now()
		fn(ctx)
		log.Debug().Str("job", name).Dur("duration", time.Since(start)).Msg("Housekeeping job finished")
	})
	return err
}

func (r *Runner) Start() {
	r.cron.Start()
}

// Stop cancels running jobs and waits for them to return.
func (r *Runner) Stop() {
	r.cancel()
	<-r.cron.Stop().Done()
}

func (r *Runner) Entries() int {
	return len(r.cron.Entries())
}
