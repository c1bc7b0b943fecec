package github

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/justapithecus/contribuart/types"
)

// Calendar reads contribution calendars over GraphQL.
type Calendar struct {
	client *githubv4.Client
}

// NewCalendar creates a Calendar authenticating with token. An empty
// graphqlURL uses DefaultGraphQLURL.
func NewCalendar(ctx context.Context, token, graphqlURL string) *Calendar {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return NewCalendarWithClient(oauth2.NewClient(ctx, src), graphqlURL)
}

// NewCalendarWithClient uses an already-authenticated HTTP client.
func NewCalendarWithClient(hc *http.Client, graphqlURL string) *Calendar {
	if graphqlURL == "" || graphqlURL == DefaultGraphQLURL {
		return &Calendar{client: githubv4.NewClient(hc)}
	}
	return &Calendar{client: githubv4.NewEnterpriseClient(graphqlURL, hc)}
}

type calendarQuery struct {
	User struct {
		ContributionsCollection struct {
			ContributionCalendar struct {
				TotalContributions int
				Weeks              []struct {
					ContributionDays []struct {
						Date              string
						ContributionCount int
						ContributionLevel string
					}
				}
			}
		} `graphql:"contributionsCollection(from: $from, to: $to)"`
	} `graphql:"user(login: $login)"`
}

// FirstCalendarYear is the earliest year with contribution data.
const FirstCalendarYear = 2008

// ValidYear reports whether year can be fetched relative to now. The year
// after now is accepted so clients around New Year's are not rejected.
func ValidYear(year int, now time.Time) bool {
	return year >= FirstCalendarYear && year <= now.Year()+1
}

// YearRange returns the first and last instants of year in UTC.
func YearRange(year int) (time.Time, time.Time) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 23, 59, 59, 0, time.UTC)
	return from, to
}

// Fetch returns login's contribution calendar for year.
func (c *Calendar) Fetch(ctx context.Context, login string, year int) (*types.ContributionCalendar, error) {
	from, to := YearRange(year)
	vars := map[string]any{
		"login": githubv4.String(login),
		"from":  githubv4.DateTime{Time: from},
		"to":    githubv4.DateTime{Time: to},
	}

	var q calendarQuery
	if err := c.client.Query(ctx, &q, vars); err != nil {
		return nil, fmt.Errorf("query contribution calendar: %w", err)
	}

	src := q.User.ContributionsCollection.ContributionCalendar
	cal := &types.ContributionCalendar{
		TotalContributions: src.TotalContributions,
		Weeks:              make([]types.ContributionWeek, 0, len(src.Weeks)),
	}
	for _, w := range src.Weeks {
		week := types.ContributionWeek{ContributionDays: make([]types.ContributionDay, 0, len(w.ContributionDays))}
		for _, d := range w.ContributionDays {
			week.ContributionDays = append(week.ContributionDays, types.ContributionDay{
				Date:              d.Date,
				ContributionCount: d.ContributionCount,
				ContributionLevel: types.ContributionLevel(d.ContributionLevel),
			})
		}
		cal.Weeks = append(cal.Weeks, week)
	}
	return cal, nil
}
