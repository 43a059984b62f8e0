package repository

import (
	"gorm.io/gorm"
)

// Capabilities describes which optional columns/tables the connected schema
// actually has. It is resolved once at startup so writers can branch on a
// known descriptor instead of probing the schema per call; a pending migration
// degrades features instead of failing requests.
type Capabilities struct {
	SubmissionMeta  bool // submissions.ip_address / user_agent
	ResponseGrading bool // responses.graded_by / graded_at
	AccessLogs      bool // access_logs table
}

func DetectCapabilities(db *gorm.DB) *Capabilities {
	m := db.Migrator()
	return &Capabilities{
		SubmissionMeta:  m.HasColumn("submissions", "ip_address") && m.HasColumn("submissions", "user_agent"),
		ResponseGrading: m.HasColumn("responses", "graded_by"),
		AccessLogs:      m.HasTable("access_logs"),
	}
}
