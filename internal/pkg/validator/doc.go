// Package validator wraps go-playground/validator v10 with English messages
// and the custom rules used by request and settings structs:
//
//	e164     international phone number, e.g. +14155550123
//	otpcode  4 to 10 decimal digits
//	purpose  short lowercase tag such as "login"
package validator
