package gate

import "strings"

// Role classifies the caller.
type Role string

const (
	// RoleService is backend-service traffic. It must carry a known API key.
	RoleService Role = "service"

	// RoleUser is end-user traffic, authenticated elsewhere.
	RoleUser Role = "user"

	// RoleUnclassified is any other role header value, including none.
	RoleUnclassified Role = "unclassified"
)

// ParseRole maps a role header value to a Role, ignoring case and
// surrounding whitespace.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(RoleService):
		return RoleService
	case string(RoleUser):
		return RoleUser
	default:
		return RoleUnclassified
	}
}

// Decision is the gate's verdict.
type Decision string

const (
	DecisionAccepted Decision = "accepted"
	DecisionRejected Decision = "rejected"
)

// Reason explains a decision. It is used as a metric label and as the
// cause of a rejection error, so it never contains request data.
type Reason string

const (
	ReasonUserRole     Reason = "user_role"
	ReasonUnclassified Reason = "unclassified_role"
	ReasonKeyMissing   Reason = "key_missing"
	ReasonCacheHit     Reason = "cache_hit"
	ReasonRefreshHit   Reason = "refresh_hit"
	ReasonKeyUnknown   Reason = "key_unknown"
)

// Step is one state a request passes through while being authorized.
type Step string

const (
	StepStart             Step = "start"
	StepRoleClassified    Step = "role_classified"
	StepUserAccepted      Step = "user_accepted"
	StepServiceKeyChecked Step = "service_key_checked"
	StepRefreshTriggered  Step = "refresh_triggered"
	StepRechecked         Step = "rechecked"
	StepAccepted          Step = "accepted"
	StepRejected          Step = "rejected"
)

// Outcome is the result of authorizing one request.
type Outcome struct {
	Decision Decision
	Reason   Reason
	Role     Role

	// Source is the calling service for accepted service requests.
	Source string

	// Path lists the steps taken, in order.
	Path []Step
}

// Accepted reports whether the request may proceed.
func (o Outcome) Accepted() bool {
	return o.Decision == DecisionAccepted
}

// Refreshed reports whether authorizing the request triggered a refresh.
func (o Outcome) Refreshed() bool {
	for _, s := range o.Path {
		if s == StepRefreshTriggered {
			return true
		}
	}
	return false
}
