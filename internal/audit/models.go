package audit

import (
	"time"

	"github.com/google/uuid"
)

// Event is emitted from domain logic to capture registry mutations. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        uuid.UUID
	Timestamp time.Time
	Actor     string
	Action    string
	Subject   string
	Reason    string
}

// Actions recorded by the registry. The set is closed so downstream
// consumers can switch on it.
const (
	ActionInstitutionRegistered  = "institution_registered"
	ActionInstitutionApproved    = "institution_approved"
	ActionInstitutionSuspended   = "institution_suspended"
	ActionInstitutionReactivated = "institution_reactivated"
	ActionEmployerRegistered     = "employer_registered"
	ActionEmployerUpdated        = "employer_updated"
	ActionCertificateIssued      = "certificate_issued"
	ActionCertificateRevoked     = "certificate_revoked"
	ActionBatchIssued            = "certificate_batch_issued"
	ActionCommitmentRegistered   = "commitment_registered"
	ActionLoginSucceeded         = "login_succeeded"
	ActionSchemaUpgraded         = "schema_upgraded"
)
