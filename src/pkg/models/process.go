package models

import "time"

// ProcessInstance records a child process spawned by the launcher.
// The launcher does not supervise it after spawn.
type ProcessInstance struct {
	ID        string    `json:"id"`
	Domain    Domain    `json:"domain"`
	Path      string    `json:"path"`
	Args      []string  `json:"args"`
	WorkDir   string    `json:"work_dir"`
	PID       int       `json:"pid"`
	StartTime time.Time `json:"start_time"`
}
