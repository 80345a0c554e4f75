package entity

import (
	"strings"
)

// ContactKind is the delivery address family of a contact.
type ContactKind string

const (
	ContactKindPhone ContactKind = "phone"
	ContactKindEmail ContactKind = "email"
)

func (k ContactKind) String() string {
	return string(k)
}

// Contact is a normalized delivery address.
type Contact struct {
	Value string
	Kind  ContactKind
}

var phoneCleaner = strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "")

// NormalizeContact canonicalizes raw input. Anything with an "@" is an email
// and is lowercased; everything else is treated as a phone number with
// separators removed. The result still has to be validated.
func NormalizeContact(raw string) Contact {
	v := strings.TrimSpace(raw)
	if strings.Contains(v, "@") {
		return Contact{Value: strings.ToLower(v), Kind: ContactKindEmail}
	}

	return Contact{Value: phoneCleaner.Replace(v), Kind: ContactKindPhone}
}

// Masked hides the middle of the address for logs, e.g. +91******0001 or
// j***@example.com.
func (c Contact) Masked() string {
	return MaskContact(c.Value)
}

// MaskContact masks a normalized contact value.
func MaskContact(v string) string {
	if local, domain, ok := strings.Cut(v, "@"); ok {
		if local == "" {
			return "***@" + domain
		}
		return local[:1] + "***@" + domain
	}

	if len(v) <= 7 {
		return strings.Repeat("*", len(v))
	}
	return v[:3] + strings.Repeat("*", len(v)-7) + v[len(v)-4:]
}
