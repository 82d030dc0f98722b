// Package scheduler runs the periodic maintenance jobs of the agent.
package scheduler

import (
	"log"
	"sort"
	"sync"

	"github.com/robfig/cron/v3"

	"settingsync/internal/config"
	"settingsync/internal/core"
)

// Job describes one registered cron job.
type Job struct {
	Spec    string           `json:"spec"`
	Command core.CommandType `json:"command"`
}

// Scheduler pushes maintenance commands onto the agent's command channel.
type Scheduler struct {
	cron           *cron.Cron
	jobs           map[cron.EntryID]Job
	commandChannel core.CommandChannel
	mu             sync.RWMutex
}

// NewScheduler creates a scheduler with the jobs from cfg. An empty spec
// leaves that job out.
func NewScheduler(cmdChan core.CommandChannel, cfg config.ScheduleConfig) *Scheduler {
	s := &Scheduler{
		cron:           cron.New(),
		jobs:           make(map[cron.EntryID]Job),
		commandChannel: cmdChan,
	}
	if cfg.Resync != "" {
		s.Add(cfg.Resync, core.CmdResync)
	}
	if cfg.Verify != "" {
		s.Add(cfg.Verify, core.CmdVerifyStore)
	}
	return s
}

// Start begins the cron job ticker.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("[Scheduler] Started with %d job(s).", len(s.Jobs()))
}

// Stop halts the cron job ticker and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("[Scheduler] Stopped.")
}

// Add registers command to run on spec.
func (s *Scheduler) Add(spec string, command core.CommandType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cron.AddFunc(spec, func() { s.execute(command) })
	if err != nil {
		log.Printf("[Scheduler] Error adding job '%s' -> %s: %v", spec, command, err)
		return false
	}
	s.jobs[id] = Job{Spec: spec, Command: command}
	log.Printf("[Scheduler] Added job (ID %d): %s -> %s", id, spec, command)
	return true
}

// Jobs returns the registered jobs ordered by ID.
func (s *Scheduler) Jobs() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)

	out := make([]Job, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.jobs[cron.EntryID(id)])
	}
	return out
}

func (s *Scheduler) execute(command core.CommandType) {
	log.Printf("[Scheduler] Executing scheduled command: %s", command)
	select {
	case s.commandChannel <- core.Command{Type: command}:
	default:
		log.Printf("[Scheduler] Command channel full, skipping %s.", command)
	}
}
