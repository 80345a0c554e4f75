// Package clock provides a tiny time abstraction.
//
// Challenge expiry, resend cooldowns and the sweeper all read time through
// Clocker, so tests drive them with a Manual clock instead of sleeping.
package clock
