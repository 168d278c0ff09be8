// Package authz decides which principals may perform which moderation
// actions.
package authz

import "familyeats/backend/internal/models"

// Action names an operation guarded by the authorizer.
type Action string

const (
	ContentAnalyze Action = "content.analyze"
	AnalysisRead   Action = "analysis.read"
	QueueRead      Action = "queue.read"
	QueueWrite     Action = "queue.write"
	QueueResolve   Action = "queue.resolve"
	ReportCreate   Action = "report.create"
	ReportRead     Action = "report.read"
	ReportUpdate   Action = "report.update"
	TrustRead      Action = "trust.read"
	TrustRecompute Action = "trust.recompute"
	FeedSubscribe  Action = "feed.subscribe"
)

// Principal is an authenticated caller.
type Principal struct {
	UserID string
	Role   string
}

// anyRole marks actions open to every authenticated principal.
const anyRole = "*"

var staff = []string{models.RoleModerator, models.RoleAdmin}

// defaultRules is the role table of the moderation API.
var defaultRules = map[Action][]string{
	ContentAnalyze: {models.RoleModerator, models.RoleAdmin, models.RoleService},
	AnalysisRead:   staff,
	QueueRead:      staff,
	QueueWrite:     staff,
	QueueResolve:   staff,
	ReportRead:     staff,
	ReportUpdate:   staff,
	TrustRecompute: staff,
	FeedSubscribe:  staff,
	ReportCreate:   {anyRole},
	TrustRead:      {anyRole},
}

// Authorizer maps (principal, action) to allow or deny.
type Authorizer struct {
	rules map[Action]map[string]bool
}

// New returns an authorizer with the built-in role table.
func New() *Authorizer {
	return NewWithRules(defaultRules)
}

func NewWithRules(rules map[Action][]string) *Authorizer {
	a := &Authorizer{rules: make(map[Action]map[string]bool, len(rules))}
	for action, roles := range rules {
		set := make(map[string]bool, len(roles))
		for _, r := range roles {
			set[r] = true
		}
		a.rules[action] = set
	}
	return a
}

// Can reports whether p may perform action. Unknown actions and
// principals without an id are denied.
func (a *Authorizer) Can(p Principal, action Action) bool {
	if p.UserID == "" || p.Role == "" {
		return false
	}
	roles, ok := a.rules[action]
	if !ok {
		return false
	}
	return roles[anyRole] || roles[p.Role]
}
