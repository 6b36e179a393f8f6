package backup

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs periodic backups of the transcript file on a cron
// schedule.
type Scheduler struct {
	cron   *cron.Cron
	keeper *Keeper
	path   string
}

func NewScheduler(keeper *Keeper, path string) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		keeper: keeper,
		path:   path,
	}
}

// Start registers the backup job under spec and launches the cron loop.
func (s *Scheduler) Start(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		dst, err := s.keeper.Backup(s.path)
		if err != nil {
			log.Printf("scheduled backup failed: %v", err)
			return
		}
		if dst != "" {
			log.Printf("transcript backed up to %s", dst)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
