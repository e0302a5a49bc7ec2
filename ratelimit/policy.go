package ratelimit

import "time"

// Action identifies the kind of request being admission-checked. Every
// action kind carries its own Policy so that, for example, chat flooding
// cannot consume a player's movement budget.
type Action int

const (
	ActionGeneric Action = iota
	ActionChat
	ActionMovement
	ActionItemUse
	ActionShopPurchase
	ActionBankTransaction
	ActionLogin
	ActionRegistration
	ActionWarp
	ActionMail
	ActionForumPost
)

// String returns a short name for the action kind, used in log fields.
func (a Action) String() string {
	switch a {
	case ActionChat:
		return "chat"
	case ActionMovement:
		return "movement"
	case ActionItemUse:
		return "item_use"
	case ActionShopPurchase:
		return "shop_purchase"
	case ActionBankTransaction:
		return "bank_transaction"
	case ActionLogin:
		return "login"
	case ActionRegistration:
		return "registration"
	case ActionWarp:
		return "warp"
	case ActionMail:
		return "mail"
	case ActionForumPost:
		return "forum_post"
	default:
		return "generic"
	}
}

// Policy is the admission triple for one action kind: at most MaxActions
// inside a sliding Window, then a flat Cooldown during which everything is
// rejected.
type Policy struct {
	MaxActions int
	Window     time.Duration
	Cooldown   time.Duration
}

// DefaultPolicies returns the per-action policies the server ships with.
// Movement is deliberately generous; the anti-cheat validator, not the rate
// limiter, is what polices movement content.
//
// Returns:
//   - A fresh map from action kind to its default Policy
func DefaultPolicies() map[Action]Policy {
	return map[Action]Policy{
		ActionGeneric:         {MaxActions: 20, Window: 10 * time.Second, Cooldown: 5 * time.Second},
		ActionChat:            {MaxActions: 5, Window: 10 * time.Second, Cooldown: 30 * time.Second},
		ActionMovement:        {MaxActions: 50, Window: 5 * time.Second, Cooldown: 3 * time.Second},
		ActionItemUse:         {MaxActions: 10, Window: 10 * time.Second, Cooldown: 10 * time.Second},
		ActionShopPurchase:    {MaxActions: 6, Window: 30 * time.Second, Cooldown: 30 * time.Second},
		ActionBankTransaction: {MaxActions: 5, Window: 30 * time.Second, Cooldown: 60 * time.Second},
		ActionLogin:           {MaxActions: 5, Window: time.Minute, Cooldown: 5 * time.Minute},
		ActionRegistration:    {MaxActions: 3, Window: 10 * time.Minute, Cooldown: 30 * time.Minute},
		ActionWarp:            {MaxActions: 4, Window: 30 * time.Second, Cooldown: 15 * time.Second},
		ActionMail:            {MaxActions: 3, Window: time.Minute, Cooldown: 2 * time.Minute},
		ActionForumPost:       {MaxActions: 2, Window: time.Minute, Cooldown: 5 * time.Minute},
	}
}
