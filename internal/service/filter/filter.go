// Package filter decides whether a harvested member is worth keeping.
//
// Accepts is a pure predicate: no I/O, no clock reads. Callers pass "now"
// so results are reproducible.
package filter

import (
	"time"

	"github.com/ignite/leadharvest/internal/domain"
)

// Reason names the first rule a candidate failed.
type Reason string

const (
	Accepted        Reason = ""
	RejectInactive  Reason = "deactivated"
	RejectNoMessage Reason = "closed_messages"
	RejectStale     Reason = "not_active"
	RejectCity      Reason = "city"
	RejectSex       Reason = "sex"
	RejectAge       Reason = "age"
	RejectNoMobile  Reason = "no_mobile"
)

// Accepts reports whether c passes every rule in criteria.
func Accepts(c *domain.Candidate, criteria domain.Criteria, now time.Time) bool {
	return Evaluate(c, criteria, now) == Accepted
}

// Evaluate applies the rules in order and returns the first failing one.
func Evaluate(c *domain.Candidate, criteria domain.Criteria, now time.Time) Reason {
	if c.IsDeactivated() {
		return RejectInactive
	}
	if criteria.OnlyCanMessage && !c.CanMessage {
		return RejectNoMessage
	}
	if criteria.OnlyActive && !c.IsActive(now) {
		return RejectStale
	}
	if !criteria.AllowsCity(c.CityID) {
		return RejectCity
	}
	if criteria.Sex != domain.SexUnspecified && c.Sex != criteria.Sex {
		return RejectSex
	}
	if criteria.HasAgeBounds() {
		// Unknown age never fails the bounds.
		if age, ok := c.Age(now); ok {
			if criteria.AgeFrom > 0 && age < criteria.AgeFrom {
				return RejectAge
			}
			if criteria.AgeTo > 0 && age > criteria.AgeTo {
				return RejectAge
			}
		}
	}
	if criteria.HasMobile && !c.HasMobile {
		return RejectNoMobile
	}
	return Accepted
}
