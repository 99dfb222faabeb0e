package cron

import (
	"Chatter/internal/job"
	log "log/slog"

	"github.com/robfig/cron/v3"
)

type Manager struct {
	engine             *cron.Cron
	presenceResetJob   *job.PresenceResetJob
	messageCleanJob    *job.MessageCleanJob
	resetTokenCleanJob *job.ResetTokenCleanJob
}

func NewCronManager(presenceResetJob *job.PresenceResetJob, messageCleanJob *job.MessageCleanJob, resetTokenCleanJob *job.ResetTokenCleanJob) *Manager {
	return &Manager{
		engine:             cron.New(cron.WithSeconds()),
		presenceResetJob:   presenceResetJob,
		messageCleanJob:    messageCleanJob,
		resetTokenCleanJob: resetTokenCleanJob,
	}
}

// RegisterJobs 注册定时任务
func (s *Manager) RegisterJobs() error {
	if _, err := s.engine.AddJob("@daily", s.messageCleanJob); err != nil {
		return err
	}
	if _, err := s.engine.AddJob("@hourly", s.resetTokenCleanJob); err != nil {
		return err
	}
	return nil
}

// RunStartupJobs 启动时同步执行一次的任务
func (s *Manager) RunStartupJobs() {
	s.presenceResetJob.Run()
}

func (s *Manager) Start() {
	log.Info("Cron 定时任务引擎启动")
	s.engine.Start()
}

func (s *Manager) Stop() {
	log.Info("Cron 定时任务引擎停止")
	<-s.engine.Stop().Done()
}
