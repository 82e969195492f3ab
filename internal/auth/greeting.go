package auth

import "time"

// Greeting is the time-of-day dependent greeting shown once after login.
type Greeting string

const (
	GreetingMorning   Greeting = "morning"
	GreetingAfternoon Greeting = "afternoon"
	GreetingEvening   Greeting = "evening"
)

// GreetingForTime selects the greeting for the given time: afternoon for
// hours 12 through 17, evening after 17, morning otherwise. The caller is
// responsible for converting t to the configured greeting time zone.
func GreetingForTime(t time.Time) Greeting {
	switch h := t.Hour(); {
	case h >= 12 && h <= 17:
		return GreetingAfternoon
	case h > 17:
		return GreetingEvening
	default:
		return GreetingMorning
	}
}
