// Package otp generates numeric one-time codes.
//
// Codes are drawn uniformly from the crypto/rand source and zero padded to the
// configured number of digits, so "000123" is as likely as "987654".
package otp
