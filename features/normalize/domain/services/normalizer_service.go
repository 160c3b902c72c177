package services

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/resqnow/dispatch-core/core/logger"
	"github.com/resqnow/dispatch-core/features/normalize/domain/entities"
)

// NormalizerService canonicalizes free-form service-domain and
// vehicle-family strings against the system's closed vocabularies. Every
// downstream eligibility and pricing decision compares canonical forms;
// raw user strings must never leak into matching logic.
type NormalizerService interface {
	CanonicalizeServiceDomain(raw string) entities.ServiceDomain
	CanonicalizeVehicleFamily(raw string) entities.VehicleFamily
	// CanonicalizeServiceType splits a "{vehicle}-{domain}" service type
	// string (e.g. "car-towing") into its canonical parts.
	CanonicalizeServiceType(raw string) (entities.VehicleFamily, entities.ServiceDomain)
	// BuildServiceType joins a vehicle family and service domain back into
	// the "{vehicle}-{domain}" wire form.
	BuildServiceType(vehicle entities.VehicleFamily, domain entities.ServiceDomain) string
	// ParseVehicleTypes accepts a list, a map of boolean flags, or a JSON
	// string and returns the set of canonical vehicle families found.
	ParseVehicleTypes(input interface{}) map[entities.VehicleFamily]bool
	// ServiceDomainsFromCosts extracts canonical service domains from a
	// technician's free-form cost structure's top-level keys.
	ServiceDomainsFromCosts(costs map[string]interface{}) []entities.ServiceDomain
}

type normalizerServiceImpl struct {
	logger logger.Logger
}

// NewNormalizerService constructs the Normalizer.
func NewNormalizerService(logger logger.Logger) NormalizerService {
	return &normalizerServiceImpl{logger: logger}
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// tokenize lowercases the input and splits it into alphanumeric tokens.
func tokenize(raw string) []string {
	lower := strings.ToLower(strings.TrimSpace(raw))
	lower = nonAlnum.ReplaceAllString(lower, " ")
	fields := strings.Fields(lower)
	return fields
}

// normalizedForm collapses the input into a single alphanumeric run, used
// for exact-equality comparisons.
func normalizedForm(raw string) string {
	return strings.Join(tokenize(raw), "")
}

func kebabCase(raw string) string {
	tokens := tokenize(raw)
	if len(tokens) == 0 {
		return "other"
	}
	return strings.Join(tokens, "-")
}

// matchAlias runs the ordered match: (1) exact equality of normalized
// forms, (2) alias phrase contained in input when the alias has >=4 chars,
// (3) for multi-token inputs/aliases, a >=2-token overlap.
func matchAlias(raw string, aliasesByKey map[string][]string) (string, bool) {
	inputNorm := normalizedForm(raw)
	if inputNorm == "" {
		return "", false
	}
	inputTokens := tokenize(raw)

	// Pass 1: exact equality of normalized forms (includes the canonical
	// key itself, since it is always its own alias).
	for key, aliases := range aliasesByKey {
		if normalizedForm(key) == inputNorm {
			return key, true
		}
		for _, alias := range aliases {
			if normalizedForm(alias) == inputNorm {
				return key, true
			}
		}
	}

	// Pass 2: alias phrase contained in input, alias must be >=4 chars.
	for key, aliases := range aliasesByKey {
		for _, alias := range aliases {
			aliasNorm := normalizedForm(alias)
			if len(aliasNorm) >= 4 && strings.Contains(inputNorm, aliasNorm) {
				return key, true
			}
		}
	}

	// Pass 3: multi-token overlap >= 2 shared tokens.
	if len(inputTokens) >= 2 {
		inputSet := map[string]bool{}
		for _, t := range inputTokens {
			inputSet[t] = true
		}
		for key, aliases := range aliasesByKey {
			for _, alias := range aliases {
				aliasTokens := tokenize(alias)
				if len(aliasTokens) < 2 {
					continue
				}
				overlap := 0
				for _, t := range aliasTokens {
					if inputSet[t] {
						overlap++
					}
				}
				if overlap >= 2 {
					return key, true
				}
			}
		}
	}

	return "", false
}

func domainAliasMap() map[string][]string {
	out := make(map[string][]string, len(entities.DomainAliases))
	for domain, aliases := range entities.DomainAliases {
		out[string(domain)] = aliases
	}
	return out
}

func vehicleAliasMap() map[string][]string {
	out := make(map[string][]string, len(entities.VehicleAliases))
	for family, aliases := range entities.VehicleAliases {
		out[string(family)] = aliases
	}
	return out
}

// CanonicalizeServiceDomain canonicalizes a free-form service-domain string.
func (s *normalizerServiceImpl) CanonicalizeServiceDomain(raw string) entities.ServiceDomain {
	if key, ok := matchAlias(raw, domainAliasMap()); ok {
		return entities.ServiceDomain(key)
	}
	fallback := entities.ServiceDomain(kebabCase(raw))
	s.logger.Debug(context.Background(), "service domain fell back to unmapped form", logger.Fields{
		"raw":      raw,
		"fallback": fallback,
	})
	return fallback
}

// CanonicalizeVehicleFamily canonicalizes a free-form vehicle-type string.
func (s *normalizerServiceImpl) CanonicalizeVehicleFamily(raw string) entities.VehicleFamily {
	if key, ok := matchAlias(raw, vehicleAliasMap()); ok {
		return entities.VehicleFamily(key)
	}
	fallback := entities.VehicleFamily(kebabCase(raw))
	s.logger.Debug(context.Background(), "vehicle family fell back to unmapped form", logger.Fields{
		"raw":      raw,
		"fallback": fallback,
	})
	return fallback
}

// CanonicalizeServiceType splits a "{vehicle}-{domain}" wire form (or a
// loose free-form string) into its canonical parts.
func (s *normalizerServiceImpl) CanonicalizeServiceType(raw string) (entities.VehicleFamily, entities.ServiceDomain) {
	parts := strings.SplitN(raw, "-", 2)
	if len(parts) == 2 {
		return s.CanonicalizeVehicleFamily(parts[0]), s.CanonicalizeServiceDomain(parts[1])
	}
	return s.CanonicalizeVehicleFamily(raw), s.CanonicalizeServiceDomain(raw)
}

// BuildServiceType joins a canonical vehicle family and service domain into
// the "{vehicle}-{domain}" wire form.
func (s *normalizerServiceImpl) BuildServiceType(vehicle entities.VehicleFamily, domain entities.ServiceDomain) string {
	return string(vehicle) + "-" + string(domain)
}

// ParseVehicleTypes accepts a list ([]string, []interface{}), a map of
// boolean flags (map[string]bool, map[string]interface{}), or a JSON string
// encoding either shape, and returns the set of canonical vehicle families.
func (s *normalizerServiceImpl) ParseVehicleTypes(input interface{}) map[entities.VehicleFamily]bool {
	result := map[entities.VehicleFamily]bool{}
	if input == nil {
		return result
	}

	switch v := input.(type) {
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return result
		}
		var decoded interface{}
		if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
			return s.ParseVehicleTypes(decoded)
		}
		// Not JSON: treat as a single free-form vehicle string.
		result[s.CanonicalizeVehicleFamily(trimmed)] = true
		return result
	case []string:
		for _, item := range v {
			result[s.CanonicalizeVehicleFamily(item)] = true
		}
		return result
	case []interface{}:
		for _, item := range v {
			if str, ok := item.(string); ok {
				result[s.CanonicalizeVehicleFamily(str)] = true
			}
		}
		return result
	case map[string]bool:
		for key, enabled := range v {
			if enabled {
				result[s.CanonicalizeVehicleFamily(key)] = true
			}
		}
		return result
	case map[string]interface{}:
		for key, val := range v {
			if truthy(val) {
				result[s.CanonicalizeVehicleFamily(key)] = true
			}
		}
		return result
	default:
		return result
	}
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != "" && t != "false" && t != "0"
	case float64:
		return t != 0
	case nil:
		return false
	default:
		return true
	}
}

// ServiceDomainsFromCosts extracts canonical service domains from the
// top-level keys of a technician's free-form cost structure (e.g.
// {"towing": {...}, "flat_tire": {...}}), skipping non-map metadata values.
func (s *normalizerServiceImpl) ServiceDomainsFromCosts(costs map[string]interface{}) []entities.ServiceDomain {
	seen := map[entities.ServiceDomain]bool{}
	var out []entities.ServiceDomain
	for key, val := range costs {
		switch val.(type) {
		case map[string]interface{}:
			domain := s.CanonicalizeServiceDomain(key)
			if !seen[domain] {
				seen[domain] = true
				out = append(out, domain)
			}
		default:
			continue
		}
	}
	return out
}
