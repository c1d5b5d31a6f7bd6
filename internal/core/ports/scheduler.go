package ports

import "time"

type SchedulerService interface {
	Start()
	Stop()
	ScheduleTaskEvery(interval time.Duration, task func()) error
}
