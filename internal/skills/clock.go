package skills

import (
	"context"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"luna/internal/tool"
)

var cityZones = map[string]string{
	"dubai":       "Asia/Dubai",
	"london":      "Europe/London",
	"paris":       "Europe/Paris",
	"berlin":      "Europe/Berlin",
	"moscow":      "Europe/Moscow",
	"new york":    "America/New_York",
	"los angeles": "America/Los_Angeles",
	"tokyo":       "Asia/Tokyo",
	"singapore":   "Asia/Singapore",
	"sydney":      "Australia/Sydney",
	"india":       "Asia/Kolkata",
}

const clockLayout = "03:04 PM"

var titleCase = cases.Title(language.English)

func (s *Skills) Time(_ context.Context, args tool.Args) (tool.Result, error) {
	city := args.String("city")
	now := s.now()

	zone, ok := cityZones[strings.ToLower(city)]
	if !ok {
		return tool.Say(fmt.Sprintf("I don't know the timezone for %s. Your local time is %s.",
			city, now.Format(clockLayout))), nil
	}

	loc, err := time.LoadLocation(zone)
	if err != nil {
		return tool.Result{}, tool.Internal("Sorry, I couldn't retrieve the time.", "Could not load time zone "+zone+".", err)
	}

	return tool.Say(fmt.Sprintf("The current time in %s is %s.",
		titleCase.String(city), now.In(loc).Format(clockLayout))), nil
}
