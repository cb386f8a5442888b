package services

import (
	"net/netip"
	"strings"

	"github.com/samber/lo"

	"github.com/rpgmem/ffcertificate-sub002/internal/core/domain"
)

// ListKind é o tipo de entrada avaliada pelo ListMatcher.
type ListKind string

const (
	ListIP          ListKind = "ip"
	ListEmail       ListKind = "email"
	ListEmailDomain ListKind = "email_domain"
	ListIdentifier  ListKind = "identifier"
)

// ListMatcher avalia pertinência em blacklists e whitelists.
type ListMatcher struct{}

// Matches reports whether value is a member of list for the given kind.
// An empty value never matches and an empty list never matches.
func (ListMatcher) Matches(kind ListKind, value string, list []string) bool {
	value = strings.TrimSpace(value)
	if value == "" || len(list) == 0 {
		return false
	}

	switch kind {
	case ListIP:
		return matchIP(value, list)
	case ListEmail:
		email := domain.NormalizeEmail(value)
		return lo.ContainsBy(list, func(entry string) bool {
			entry = domain.NormalizeEmail(entry)
			if strings.HasPrefix(entry, "*@") {
				return emailDomain(email) == strings.TrimPrefix(entry, "*@")
			}
			return entry != "" && entry == email
		})
	case ListEmailDomain:
		domainPart := emailDomain(domain.NormalizeEmail(value))
		if domainPart == "" {
			return false
		}
		return lo.ContainsBy(list, func(entry string) bool {
			pattern := strings.TrimLeft(domain.NormalizeEmail(entry), "*@")
			return pattern != "" && pattern == domainPart
		})
	case ListIdentifier:
		id := domain.NormalizeIdentifier(value)
		if id == "" {
			return false
		}
		return lo.ContainsBy(list, func(entry string) bool {
			return domain.NormalizeIdentifier(entry) == id
		})
	default:
		return false
	}
}

// MatchesSet reports whether any of ip, email, email domain or identifier is in set.
func (m ListMatcher) MatchesSet(set *domain.ListSet, ip, email, identifier string) bool {
	if set.Empty() {
		return false
	}
	return m.Matches(ListIP, ip, set.IPs) ||
		m.Matches(ListEmail, email, set.Emails) ||
		m.Matches(ListEmailDomain, email, set.EmailDomains) ||
		m.Matches(ListIdentifier, identifier, set.Identifiers)
}

func matchIP(value string, list []string) bool {
	addr, addrErr := netip.ParseAddr(value)
	return lo.ContainsBy(list, func(entry string) bool {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			return false
		}
		if strings.Contains(entry, "/") {
			if addrErr != nil {
				return false
			}
			prefix, err := netip.ParsePrefix(entry)
			return err == nil && prefix.Contains(addr.Unmap())
		}
		if addrErr == nil {
			if other, err := netip.ParseAddr(entry); err == nil {
				return other.Unmap() == addr.Unmap()
			}
		}
		return entry == value
	})
}

func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}
