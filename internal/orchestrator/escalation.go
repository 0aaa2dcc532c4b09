package orchestrator

import (
	"fmt"
	"sort"

	"github.com/zulandar/supportline/internal/config"
	"github.com/zulandar/supportline/internal/models"
)

// EscalationTable maps an operator role to the status a chat takes after
// that operator writes in it. Admin-tier roles hand the chat back to the
// counterparty; affiliate-tier roles escalate it to the admin desk.
type EscalationTable map[string]models.ChatStatus

// tierStatus is the status each operator tier moves a chat into.
var tierStatus = map[string]models.ChatStatus{
	config.TierAdmin:     models.StatusPendingUserResponse,
	config.TierAffiliate: models.StatusPendingAdminResponse,
}

// NewEscalationTable builds a table from a role → tier map. A nil or empty
// map yields config.DefaultOperatorRoles.
func NewEscalationTable(roles map[string]string) (EscalationTable, error) {
	if len(roles) == 0 {
		roles = config.DefaultOperatorRoles()
	}
	names := make([]string, 0, len(roles))
	for role := range roles {
		names = append(names, role)
	}
	sort.Strings(names)

	t := make(EscalationTable, len(roles))
	for _, role := range names {
		st, ok := tierStatus[roles[role]]
		if !ok {
			return nil, fmt.Errorf("orchestrator: role %q has unknown tier %q", role, roles[role])
		}
		t[role] = st
	}
	return t, nil
}

// Transition returns the status a chat moves to after a message from s.
// role is only consulted for operator senders. changed is false for system
// messages, which never move a chat.
func (t EscalationTable) Transition(s models.Sender, role string) (status models.ChatStatus, changed bool, err error) {
	switch s.(type) {
	case models.UserSender, models.GuestSender:
		return models.StatusPendingAdminResponse, true, nil
	case models.AdminSender:
		st, ok := t[role]
		if !ok {
			return "", false, models.NewValidationError("senderId", fmt.Sprintf("operator role %q has no escalation tier", role))
		}
		return st, true, nil
	case models.SystemSender:
		return "", false, nil
	}
	return "", false, models.NewValidationError("senderType", "unknown sender")
}
