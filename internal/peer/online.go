package peer

import (
	"math"
	"time"

	"github.com/edgard/peerwatch/internal/lang"
)

// Bounds for how long a presence phrase may be considered fresh before it
// has to be recomputed.
const (
	MinOnlineChangeTimeout = time.Second
	MaxOnlineChangeTimeout = secondsInDay * time.Second
)

const secondsInDay = 86400

// phraseChangeNever marks presence values whose phrase can no longer
// change on its own; the timeout clamp turns it into a daily recheck.
const phraseChangeNever = math.MaxInt64

// onlinePhraseChangeIn returns in how many seconds the phrase produced by
// OnlineText for this presence value changes, assuming no new updates
// arrive. The "last seen today/yesterday" phrases roll over at local
// midnight in loc.
func onlinePhraseChangeIn(online, now int64, loc *time.Location) int64 {
	if online <= 0 {
		if -online > now {
			return -online - now
		}
		return phraseChangeNever
	}
	if online > now {
		return online - now
	}
	elapsed := now - online
	if minutes := elapsed / 60; minutes < 60 {
		return (minutes+1)*60 - elapsed
	}
	if hours := elapsed / 3600; hours < 12 {
		return (hours+1)*3600 - elapsed
	}
	nowFull := time.Unix(now, 0).In(loc)
	year, month, day := nowFull.Date()
	tomorrow := time.Date(year, month, day+1, 0, 0, 0, 0, loc)
	if left := tomorrow.Unix() - now; left > 0 {
		return left
	}
	return 0
}

// OnlineChangeTimeout returns how long the presence phrase for this raw
// value stays valid, clamped between MinOnlineChangeTimeout and
// MaxOnlineChangeTimeout.
func OnlineChangeTimeout(online, now int64, loc *time.Location) time.Duration {
	seconds := onlinePhraseChangeIn(online, now, loc)
	if seconds < 1 {
		seconds = 1
	}
	if seconds > secondsInDay {
		seconds = secondsInDay
	}
	return time.Duration(seconds) * time.Second
}

// OnlineChangeTimeout returns how long the user's presence phrase stays
// valid. Service accounts and bots never change their label, so they get
// the maximum timeout.
func (u *User) OnlineChangeTimeout(now int64) time.Duration {
	if u.IsServiceUser() || u.IsBot() {
		return MaxOnlineChangeTimeout
	}
	return OnlineChangeTimeout(u.OnlineTill(), now, u.registry.Location())
}

func onlineTextSpecial(u *User, phrases *lang.Pack) (string, bool) {
	switch {
	case u.IsNotificationsUser():
		return phrases.StatusServiceNotifications, true
	case u.IsSupport():
		return phrases.StatusSupport, true
	case u.IsBot():
		return phrases.StatusBot, true
	case u.IsServiceUser():
		return phrases.StatusSupport, true
	}
	return "", false
}

func onlineTextCommon(online, now int64, phrases *lang.Pack) (string, bool) {
	if online <= 0 {
		switch online {
		case 0, -1:
			return phrases.StatusOffline, true
		case -2:
			return phrases.StatusRecently, true
		case -3:
			return phrases.StatusLastWeek, true
		case -4:
			return phrases.StatusLastMonth, true
		}
		if -online > now {
			return phrases.StatusOnline, true
		}
		return phrases.StatusRecently, true
	}
	if online > now {
		return phrases.StatusOnline, true
	}
	return "", false
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// OnlineText renders the presence phrase for a raw presence value: one of
// the coarse labels, "online", or a "last seen ..." phrase whose
// granularity decays from minutes to hours to calendar days.
func OnlineText(online, now int64, phrases *lang.Pack, loc *time.Location) string {
	if common, ok := onlineTextCommon(online, now, phrases); ok {
		return common
	}
	minutes := (now - online) / 60
	if minutes == 0 {
		return phrases.StatusLastSeenNow
	}
	if minutes < 60 {
		return phrases.StatusLastSeenMinutes.N(minutes)
	}
	hours := (now - online) / 3600
	if hours < 12 {
		return phrases.StatusLastSeenHours.N(hours)
	}
	onlineFull := time.Unix(online, 0).In(loc)
	nowFull := time.Unix(now, 0).In(loc)
	if sameDay(onlineFull, nowFull) {
		return lang.ReplaceTag(phrases.StatusLastSeenToday, "time", phrases.FormatTime(onlineFull))
	}
	if sameDay(onlineFull.AddDate(0, 0, 1), nowFull) {
		return lang.ReplaceTag(phrases.StatusLastSeenYesterday, "time", phrases.FormatTime(onlineFull))
	}
	return lang.ReplaceTag(phrases.StatusLastSeenDate, "date", phrases.FormatDate(onlineFull))
}

// OnlineText renders the user's presence phrase, short-circuiting to the
// fixed labels for bots, support and service accounts.
func (u *User) OnlineText(now int64) string {
	phrases := u.registry.Phrases()
	if special, ok := onlineTextSpecial(u, phrases); ok {
		return special
	}
	return OnlineText(u.OnlineTill(), now, phrases, u.registry.Location())
}

// OnlineTextFull renders the long presence phrase: like OnlineText, but
// the calendar-day fallback carries both the date and the time of the
// last sighting.
func (u *User) OnlineTextFull(now int64) string {
	phrases := u.registry.Phrases()
	if special, ok := onlineTextSpecial(u, phrases); ok {
		return special
	}
	online := u.OnlineTill()
	if common, ok := onlineTextCommon(online, now, phrases); ok {
		return common
	}
	loc := u.registry.Location()
	onlineFull := time.Unix(online, 0).In(loc)
	nowFull := time.Unix(now, 0).In(loc)
	if sameDay(onlineFull, nowFull) {
		return lang.ReplaceTag(phrases.StatusLastSeenToday, "time", phrases.FormatTime(onlineFull))
	}
	if sameDay(onlineFull.AddDate(0, 0, 1), nowFull) {
		return lang.ReplaceTag(phrases.StatusLastSeenYesterday, "time", phrases.FormatTime(onlineFull))
	}
	full := lang.ReplaceTag(phrases.StatusLastSeenDateTime, "date", phrases.FormatDate(onlineFull))
	return lang.ReplaceTag(full, "time", phrases.FormatTime(onlineFull))
}

// OnlineTextActive reports whether the phrase for this raw presence value
// is the active "online" one. The coarse sentinel labels are never
// active.
func OnlineTextActive(online, now int64) bool {
	if online <= 0 {
		switch online {
		case 0, -1, -2, -3, -4:
			return false
		}
		return -online > now
	}
	return online > now
}

// OnlineTextActive reports whether the user's presence phrase is the
// active "online" one. Service accounts and bots are never active.
func (u *User) OnlineTextActive(now int64) bool {
	if u.IsServiceUser() || u.IsBot() {
		return false
	}
	return OnlineTextActive(u.OnlineTill(), now)
}

// IsOnline reports whether the user counts as online at the given time;
// zero means "right now".
func (u *User) IsOnline(now int64) bool {
	if now == 0 {
		now = time.Now().Unix()
	}
	return u.OnlineTextActive(now)
}

// SortByOnlineValue maps the user's presence to a sortable timestamp:
// more recently online sorts higher. Bots and service accounts sink to
// the bottom, and the coarse sentinels turn into representative moments
// in the past.
func SortByOnlineValue(u *User, now int64) int64 {
	if u.IsServiceUser() || u.IsBot() {
		return -1
	}
	online := u.OnlineTill()
	if online <= 0 {
		switch online {
		case 0, -1:
			return online
		case -2:
			return now - 3*secondsInDay
		case -3:
			return now - 7*secondsInDay
		case -4:
			return now - 30*secondsInDay
		}
		return -online
	}
	return online
}
