package domain

// Criteria selects which harvested members are kept. Zero values mean
// "no constraint".
type Criteria struct {
	CityIDs        []int64 `json:"city_ids" yaml:"city_ids"`
	AgeFrom        int     `json:"age_from" yaml:"age_from"`
	AgeTo          int     `json:"age_to" yaml:"age_to"`
	Sex            Sex     `json:"sex" yaml:"sex"`
	OnlyCanMessage bool    `json:"only_can_message" yaml:"only_can_message"`
	OnlyActive     bool    `json:"only_active" yaml:"only_active"`
	HasMobile      bool    `json:"has_mobile" yaml:"has_mobile"`
}

// HasAgeBounds reports whether either age bound is set.
func (c Criteria) HasAgeBounds() bool {
	return c.AgeFrom > 0 || c.AgeTo > 0
}

// AllowsCity reports whether cityID passes the city constraint.
func (c Criteria) AllowsCity(cityID int64) bool {
	if len(c.CityIDs) == 0 {
		return true
	}
	for _, id := range c.CityIDs {
		if id == cityID {
			return true
		}
	}
	return false
}
