// Package scheduler runs the service's maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	defaultJobTimeout = 5 * time.Minute
	stopTimeout       = 30 * time.Second
)

var (
	service     *Service
	serviceOnce sync.Once
	serviceErr  error
)

var (
	ErrNotInitialized = errors.New("scheduler not initialized")
	ErrEmptyJobName   = errors.New("job name is required")
	ErrEmptyCronExpr  = errors.New("cron expression is required")
	ErrNilJobFunc     = errors.New("job function is required")
)

// JobSpec describes a cron job. Run receives a context that carries the job
// logger, ends after Timeout and is cancelled when the scheduler stops.
type JobSpec struct {
	Name    string
	Cron    string
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Service owns the gocron scheduler and the context its jobs run under.
type Service struct {
	scheduler gocron.Scheduler
	ctx       context.Context
	cancel    context.CancelFunc
	stopOnce  sync.Once
	stopErr   error
}

// Init initializes the scheduler singleton.
func Init() error {
	serviceOnce.Do(func() {
		sched, err := gocron.NewScheduler(
			gocron.WithStopTimeout(stopTimeout),
			gocron.WithGlobalJobOptions(
				gocron.WithEventListeners(
					gocron.AfterJobRunsWithPanic(func(jobID uuid.UUID, jobName string, recoverData any) {
						log.Error().
							Str("job_id", jobID.String()).
							Str("job_name", jobName).
							Interface("panic", recoverData).
							Msg("Scheduler job panicked")
					}),
				),
			),
		)
		if err != nil {
			serviceErr = err
			return
		}
		service = newService(sched)
		log.Info().Msg("Scheduler initialized")
	})
	return serviceErr
}

func newService(sched gocron.Scheduler) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{scheduler: sched, ctx: ctx, cancel: cancel}
}

// ServiceInstance returns the initialized scheduler singleton.
func ServiceInstance() (*Service, error) {
	if service == nil && serviceErr == nil {
		return nil, ErrNotInitialized
	}
	return service, serviceErr
}

// Start begins running scheduled jobs on the singleton scheduler.
func Start() error {
	svc, err := ServiceInstance()
	if err != nil {
		return err
	}
	svc.Start()
	return nil
}

// Stop shuts down the singleton scheduler.
func Stop() error {
	svc, err := ServiceInstance()
	if err != nil {
		return err
	}
	return svc.Stop()
}

// Register adds a job to the singleton scheduler.
func Register(spec JobSpec, opts ...gocron.JobOption) (gocron.Job, error) {
	svc, err := ServiceInstance()
	if err != nil {
		return nil, err
	}
	return svc.Register(spec, opts...)
}

func (s *Service) Start() {
	if s == nil {
		log.Error().Msg("Scheduler start requested before initialization")
		return
	}
	log.Info().Int("jobs", len(s.scheduler.Jobs())).Msg("Scheduler starting")
	s.scheduler.Start()
}

// Stop cancels running jobs and shuts the scheduler down. Later calls return
// the first result.
func (s *Service) Stop() error {
	if s == nil {
		return ErrNotInitialized
	}
	s.stopOnce.Do(func() {
		log.Info().Msg("Scheduler stopping")
		s.cancel()
		s.stopErr = s.scheduler.Shutdown()
	})
	return s.stopErr
}

// Jobs lists the registered jobs.
func (s *Service) Jobs() []gocron.Job {
	if s == nil {
		return nil
	}
	return s.scheduler.Jobs()
}

// Register validates spec and schedules it. Extra options are applied after
// the job name.
func (s *Service) Register(spec JobSpec, opts ...gocron.JobOption) (gocron.Job, error) {
	if s == nil {
		return nil, ErrNotInitialized
	}
	if err := spec.validate(); err != nil {
		return nil, err
	}

	jobOpts := append([]gocron.JobOption{gocron.WithName(spec.Name)}, opts...)
	job, err := s.scheduler.NewJob(
		gocron.CronJob(spec.Cron, false),
		gocron.NewTask(func() { _ = s.run(spec) }),
		jobOpts...,
	)
	if err != nil {
		log.Error().Err(err).Str("job_name", spec.Name).Str("cron", spec.Cron).Msg("Failed to register scheduler job")
		return nil, err
	}
	log.Info().Str("job_name", spec.Name).Str("cron", spec.Cron).Msg("Scheduler job registered")
	return job, nil
}

func (spec JobSpec) validate() error {
	if strings.TrimSpace(spec.Name) == "" {
		return ErrEmptyJobName
	}
	if strings.TrimSpace(spec.Cron) == "" {
		return ErrEmptyCronExpr
	}
	if spec.Run == nil {
		return ErrNilJobFunc
	}
	return nil
}

// run executes one invocation of spec and logs its outcome.
func (s *Service) run(spec JobSpec) error {
	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	logger := log.With().Str("job_name", spec.Name).Logger()
	ctx = logger.WithContext(ctx)

	start := time.Now()
	err := spec.Run(ctx)
	if err != nil {
		logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("Scheduler job failed")
		return err
	}
	logger.Debug().Dur("duration", time.Since(start)).Msg("Scheduler job completed")
	return nil
}
