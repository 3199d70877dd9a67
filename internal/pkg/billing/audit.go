package billing

import (
	"github.com/ToolDockHQ/ToolDock/app/models"
	"github.com/gofiber/fiber/v2/log"
)

// Auditor is a best-effort side channel for operator-facing audit
// records. Log never returns an error: observability must not break
// business logic, so write failures are logged and swallowed.
type Auditor struct {
	repo Repository
}

// NewAuditor creates an auditor over the billing repository.
func NewAuditor(repo Repository) *Auditor {
	return &Auditor{repo: repo}
}

// Log persists an audit entry, swallowing any failure.
func (a *Auditor) Log(entry *models.AuditLog) {
	if err := a.repo.CreateAuditLog(entry); err != nil {
		log.Errorf("[Audit] failed to write %s/%s entry: %v", entry.Action, entry.EntityID, err)
	}
}
