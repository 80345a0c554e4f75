// Package mail sends plain-text email over SMTP.
//
// The OTP email notifier renders subject and body itself and hands a Message
// to a Mail implementation; the package knows nothing about passcodes.
package mail
