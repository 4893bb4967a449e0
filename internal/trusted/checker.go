package trusted

import (
	"strings"

	"go.uber.org/zap"
)

// Checker reports whether sender addresses belong to trusted domains
type Checker struct {
	domains []string
	logger  *zap.Logger
}

// NewChecker creates a new trusted-domain checker
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	// Normalize domains (lowercase)
	normalized := make([]string, 0, len(domains))
	for _, domain := range domains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain != "" {
			normalized = append(normalized, domain)
		}
	}

	if len(normalized) > 0 && logger != nil {
		logger.Info("Initialized trusted-sender checker", zap.Strings("domains", normalized))
	}

	return &Checker{
		domains: normalized,
		logger:  logger,
	}
}

// IsTrusted checks if the sender's domain is in the trusted list
func (c *Checker) IsTrusted(address string) bool {
	if len(c.domains) == 0 {
		return false
	}

	// Extract domain from the address
	parts := strings.Split(address, "@")
	if len(parts) != 2 {
		return false
	}
	domain := parts[1]

	for _, trustedDomain := range c.domains {
		if strings.EqualFold(domain, trustedDomain) {
			if c.logger != nil {
				c.logger.Debug("Sender domain is trusted",
					zap.String("domain", domain),
					zap.String("address", address))
			}
			return true
		}
	}

	return false
}
