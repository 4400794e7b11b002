package candidate

import (
	"sort"
	"time"

	"github.com/ignite/leadharvest/internal/domain"
)

// UnknownCity labels candidates without a city.
const UnknownCity = "unknown"

// CityCount is one row of the city breakdown.
type CityCount struct {
	City  string `json:"city"`
	Count int    `json:"count"`
}

// Summary describes a harvested batch.
type Summary struct {
	Total      int             `json:"total"`
	CanMessage int             `json:"can_message"`
	OnlineNow  int             `json:"online_now"`
	HasMobile  int             `json:"has_mobile"`
	Sex        map[string]int  `json:"sex"`
	TopCities  []CityCount     `json:"top_cities"`
	Activity   ActivityBuckets `json:"activity"`
}

// ActivityBuckets groups candidates by how recently they were seen.
type ActivityBuckets struct {
	Today int `json:"today"`
	Week  int `json:"week"`
	Month int `json:"month"`
	Older int `json:"older"`
}

const topCities = 10

// Summarize computes batch statistics relative to now.
func Summarize(cs []domain.Candidate, now time.Time) Summary {
	sum := Summary{
		Total: len(cs),
		Sex: map[string]int{
			domain.SexMale.String():        0,
			domain.SexFemale.String():      0,
			domain.SexUnspecified.String(): 0,
		},
	}
	cities := map[string]int{}

	for i := range cs {
		c := &cs[i]
		if c.CanMessage {
			sum.CanMessage++
		}
		if c.Online {
			sum.OnlineNow++
		}
		if c.HasMobile {
			sum.HasMobile++
		}
		sum.Sex[c.Sex.String()]++

		city := c.CityTitle
		if city == "" {
			city = UnknownCity
		}
		cities[city]++

		switch {
		case c.Online:
			sum.Activity.Today++
		case c.LastSeenAt != nil:
			age := now.Sub(*c.LastSeenAt)
			switch {
			case age < 24*time.Hour:
				sum.Activity.Today++
			case age < 7*24*time.Hour:
				sum.Activity.Week++
			case age < 30*24*time.Hour:
				sum.Activity.Month++
			default:
				sum.Activity.Older++
			}
		}
	}

	for city, n := range cities {
		sum.TopCities = append(sum.TopCities, CityCount{City: city, Count: n})
	}
	sort.Slice(sum.TopCities, func(i, j int) bool {
		if sum.TopCities[i].Count != sum.TopCities[j].Count {
			return sum.TopCities[i].Count > sum.TopCities[j].Count
		}
		return sum.TopCities[i].City < sum.TopCities[j].City
	})
	if len(sum.TopCities) > topCities {
		sum.TopCities = sum.TopCities[:topCities]
	}
	return sum
}
