package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Clock 可注入时钟，测试用假时钟同步驱动任务
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock 真实时钟
func SystemClock() Clock { return systemClock{} }

// Job 一个定时任务：计算下次运行时间 + 任务体
// 任务体是同步的工作单元，同一任务不会并发执行
type Job struct {
	Name string
	Next func(after time.Time) time.Time
	Run  func(ctx context.Context) error
}

// Scheduler 任务宿主
// 每个任务独立计时，互不阻塞；ctx 取消后全部停止
type Scheduler struct {
	clock  Clock
	logger *zap.Logger
	jobs   []*Job
}

func New(clock Clock, logger *zap.Logger) *Scheduler {
	if clock == nil {
		clock = SystemClock()
	}
	return &Scheduler{clock: clock, logger: logger}
}

// AddDaily 每日 hour:minute 运行
func (s *Scheduler) AddDaily(name string, hour, minute int, run func(ctx context.Context) error) {
	s.jobs = append(s.jobs, &Job{
		Name: name,
		Next: func(after time.Time) time.Time {
			return NextDaily(after, hour, minute)
		},
		Run: run,
	})
}

// AddMonthly 每月 day 日 hour:minute 运行
func (s *Scheduler) AddMonthly(name string, day, hour, minute int, run func(ctx context.Context) error) {
	s.jobs = append(s.jobs, &Job{
		Name: name,
		Next: func(after time.Time) time.Time {
			return NextMonthly(after, day, hour, minute)
		},
		Run: run,
	})
}

// Jobs 已注册任务
func (s *Scheduler) Jobs() []*Job {
	return s.jobs
}

// Start 启动全部任务，阻塞直到 ctx 取消时返回
func (s *Scheduler) Start(ctx context.Context) {
	for _, job := range s.jobs {
		go s.runLoop(ctx, job)
	}
	<-ctx.Done()
}

func (s *Scheduler) runLoop(ctx context.Context, job *Job) {
	for {
		next := job.Next(s.clock.Now())
		wait := next.Sub(s.clock.Now())
		if wait < 0 {
			wait = 0
		}
		s.logger.Info("job scheduled",
			zap.String("job", job.Name),
			zap.Time("next_run", next))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		start := s.clock.Now()
		if err := job.Run(ctx); err != nil {
			s.logger.Error("job failed",
				zap.String("job", job.Name),
				zap.Duration("elapsed", s.clock.Now().Sub(start)),
				zap.Error(err))
		} else {
			s.logger.Info("job finished",
				zap.String("job", job.Name),
				zap.Duration("elapsed", s.clock.Now().Sub(start)))
		}
	}
}

// NextDaily after 之后最近的 hour:minute
func NextDaily(after time.Time, hour, minute int) time.Time {
	next := time.Date(after.Year(), after.Month(), after.Day(), hour, minute, 0, 0, after.Location())
	if !next.After(after) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// NextMonthly after 之后最近的每月 day 日 hour:minute
func NextMonthly(after time.Time, day, hour, minute int) time.Time {
	next := time.Date(after.Year(), after.Month(), day, hour, minute, 0, 0, after.Location())
	if !next.After(after) {
		next = time.Date(after.Year(), after.Month()+1, day, hour, minute, 0, 0, after.Location())
	}
	return next
}
