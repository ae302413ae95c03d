// Package lang holds the user-visible phrases PeerWatch produces, with
// tag substitution and minimal plural support. The built-in pack is
// English; deployments can override individual phrases through the
// configuration file.
package lang

import (
	"strconv"
	"strings"
	"time"
)

// Plural holds the two English plural forms of a counted phrase. The
// phrase text uses the {count} tag for the number itself.
type Plural struct {
	One   string
	Other string
}

// N renders the plural form matching count.
func (p Plural) N(count int64) string {
	form := p.Other
	if count == 1 {
		form = p.One
	}
	return ReplaceTag(form, "count", strconv.FormatInt(count, 10))
}

// Pack is a complete set of phrases. Fields are read directly by the
// formatting code; mutate a pack only before handing it out.
type Pack struct {
	StatusOnline               string
	StatusOffline              string
	StatusRecently             string
	StatusLastWeek             string
	StatusLastMonth            string
	StatusBot                  string
	StatusSupport              string
	StatusServiceNotifications string

	StatusLastSeenNow       string
	StatusLastSeenMinutes   Plural
	StatusLastSeenHours     Plural
	StatusLastSeenToday     string
	StatusLastSeenYesterday string
	StatusLastSeenDate      string
	StatusLastSeenDateTime  string

	EditLogEmpty      string
	EditLogEmptyTitle string

	// Go layout strings used for the {time} and {date} tags.
	TimeFormat string
	DateFormat string
}

// Default returns the built-in English pack.
func Default() *Pack {
	return &Pack{
		StatusOnline:               "online",
		StatusOffline:              "last seen a long time ago",
		StatusRecently:             "last seen recently",
		StatusLastWeek:             "last seen within a week",
		StatusLastMonth:            "last seen within a month",
		StatusBot:                  "bot",
		StatusSupport:              "support",
		StatusServiceNotifications: "service notifications",

		StatusLastSeenNow: "last seen just now",
		StatusLastSeenMinutes: Plural{
			One:   "last seen {count} minute ago",
			Other: "last seen {count} minutes ago",
		},
		StatusLastSeenHours: Plural{
			One:   "last seen {count} hour ago",
			Other: "last seen {count} hours ago",
		},
		StatusLastSeenToday:     "last seen today at {time}",
		StatusLastSeenYesterday: "last seen yesterday at {time}",
		StatusLastSeenDate:      "last seen {date}",
		StatusLastSeenDateTime:  "last seen {date} at {time}",

		EditLogEmptyTitle: "No edits yet",
		EditLogEmpty:      "Edited messages from this chat will appear here.",

		TimeFormat: "15:04",
		DateFormat: "02.01.2006",
	}
}

// ReplaceTag substitutes every occurrence of {tag} in phrase with value.
func ReplaceTag(phrase, tag, value string) string {
	return strings.ReplaceAll(phrase, "{"+tag+"}", value)
}

// FormatTime renders t with the pack's time layout.
func (p *Pack) FormatTime(t time.Time) string {
	return t.Format(p.TimeFormat)
}

// FormatDate renders t with the pack's date layout.
func (p *Pack) FormatDate(t time.Time) string {
	return t.Format(p.DateFormat)
}

// Override replaces the phrase registered under key. Plural phrases take
// a "_one"/"_other" suffix. Unknown keys are reported so that typos in
// configuration files surface instead of silently keeping the default.
func (p *Pack) Override(key, value string) bool {
	target, ok := p.slots()[key]
	if !ok {
		return false
	}
	*target = value
	return true
}

func (p *Pack) slots() map[string]*string {
	return map[string]*string{
		"status_online":                 &p.StatusOnline,
		"status_offline":                &p.StatusOffline,
		"status_recently":               &p.StatusRecently,
		"status_last_week":              &p.StatusLastWeek,
		"status_last_month":             &p.StatusLastMonth,
		"status_bot":                    &p.StatusBot,
		"status_support":                &p.StatusSupport,
		"status_service_notifications":  &p.StatusServiceNotifications,
		"status_lastseen_now":           &p.StatusLastSeenNow,
		"status_lastseen_minutes_one":   &p.StatusLastSeenMinutes.One,
		"status_lastseen_minutes_other": &p.StatusLastSeenMinutes.Other,
		"status_lastseen_hours_one":     &p.StatusLastSeenHours.One,
		"status_lastseen_hours_other":   &p.StatusLastSeenHours.Other,
		"status_lastseen_today":         &p.StatusLastSeenToday,
		"status_lastseen_yesterday":     &p.StatusLastSeenYesterday,
		"status_lastseen_date":          &p.StatusLastSeenDate,
		"status_lastseen_date_time":     &p.StatusLastSeenDateTime,
		"editlog_empty":                 &p.EditLogEmpty,
		"editlog_empty_title":           &p.EditLogEmptyTitle,
		"time_format":                   &p.TimeFormat,
		"date_format":                   &p.DateFormat,
	}
}
