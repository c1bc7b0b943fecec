package types

// ContributionLevel is GitHub's graph-relative quartile for a day.
type ContributionLevel string

// Contribution levels as reported by the GraphQL API.
const (
	LevelNone           ContributionLevel = "NONE"
	LevelFirstQuartile  ContributionLevel = "FIRST_QUARTILE"
	LevelSecondQuartile ContributionLevel = "SECOND_QUARTILE"
	LevelThirdQuartile  ContributionLevel = "THIRD_QUARTILE"
	LevelFourthQuartile ContributionLevel = "FOURTH_QUARTILE"
)

// Intensity maps a level to the 0-4 scale used by paint cells.
func (l ContributionLevel) Intensity() int {
	switch l {
	case LevelFirstQuartile:
		return 1
	case LevelSecondQuartile:
		return 2
	case LevelThirdQuartile:
		return 3
	case LevelFourthQuartile:
		return 4
	default:
		return 0
	}
}

// ContributionDay is one cell of the contribution calendar.
type ContributionDay struct {
	Date              string            `json:"date"`
	ContributionCount int               `json:"contributionCount"`
	ContributionLevel ContributionLevel `json:"contributionLevel"`
}

// ContributionWeek is one column of the calendar.
type ContributionWeek struct {
	ContributionDays []ContributionDay `json:"contributionDays"`
}

// ContributionCalendar is a user's contribution calendar for one year.
type ContributionCalendar struct {
	TotalContributions int                `json:"totalContributions"`
	Weeks              []ContributionWeek `json:"weeks"`
}

// Days returns all days in calendar order.
func (c *ContributionCalendar) Days() []ContributionDay {
	var days []ContributionDay
	for _, w := range c.Weeks {
		days = append(days, w.ContributionDays...)
	}
	return days
}

// CountOn returns the contribution count for date, or 0 if absent.
func (c *ContributionCalendar) CountOn(date string) int {
	for _, w := range c.Weeks {
		for _, d := range w.ContributionDays {
			if d.Date == date {
				return d.ContributionCount
			}
		}
	}
	return 0
}
