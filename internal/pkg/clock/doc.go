// Package clock provides a tiny time abstraction.
//
// Expiry decisions in the OTP engine and its stores always read time through
// a Clocker. Production wiring uses TimeClocker; tests use Manual to step past
// a ttl without sleeping.
package clock
