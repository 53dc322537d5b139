// Package mail sends email messages through a configurable provider.
//
// Use cases depend on the Mail interface and the Message payload only. SMTP
// and the SendGrid HTTP API are the two concrete drivers; NewFromDriver picks
// one from configuration.
package mail
