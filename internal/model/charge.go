package model

import "time"

const (
	DefaultAccount       = "account"
	DefaultCharges int64 = 10
)

type ResetRequest struct {
	Account string `json:"account,omitempty"`
}

// ChargeRequest leaves Charges nil when the caller did not send an amount,
// so an explicit 0 is not mistaken for "use the default".
type ChargeRequest struct {
	Account string `json:"account,omitempty"`
	Charges *int64 `json:"charges,omitempty"`
}

func (r ResetRequest) AccountOrDefault() string {
	if r.Account == "" {
		return DefaultAccount
	}
	return r.Account
}

func (r ChargeRequest) AccountOrDefault() string {
	if r.Account == "" {
		return DefaultAccount
	}
	return r.Account
}

func (r ChargeRequest) ChargesOrDefault() int64 {
	if r.Charges == nil {
		return DefaultCharges
	}
	return *r.Charges
}

// ChargeEvent is published after every charge the store decided on.
type ChargeEvent struct {
	Account          string    `json:"account"`
	Amount           int64     `json:"amount"`
	Authorized       bool      `json:"authorized"`
	RemainingBalance int64     `json:"remaining_balance"`
	CreatedAt        time.Time `json:"created_at"`
}

const (
	TopicChargeAuthorized = "charges.authorized"
	TopicChargeDenied     = "charges.denied"
	TopicCharges          = "charges.>"

	SubjectChargeCommand = "commands.charge"
	SubjectResetCommand  = "commands.reset"
)

func (e ChargeEvent) Topic() string {
	if e.Authorized {
		return TopicChargeAuthorized
	}
	return TopicChargeDenied
}
