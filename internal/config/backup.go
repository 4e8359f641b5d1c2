package config

import "time"

type Backup struct {
	Enabled  bool          `env:"BACKUP_ENABLED" envDefault:"false"`
	Dir      string        `env:"BACKUP_DIR" envDefault:"./data/backups"`
	Interval time.Duration `env:"BACKUP_INTERVAL" envDefault:"1h"`
	// Keep bounds how many timestamped snapshots are retained per file.
	Keep int `env:"BACKUP_KEEP" envDefault:"10"`
}
