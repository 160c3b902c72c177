package services

import (
	"strings"

	"github.com/resqnow/dispatch-core/core/logger"
	normentities "github.com/resqnow/dispatch-core/features/normalize/domain/entities"
	normservices "github.com/resqnow/dispatch-core/features/normalize/domain/services"
)

const maxResolveDepth = 8

// genericPriceKeys are the field names, in preference order, the resolver
// accepts as a leaf amount once it has located the right domain/vehicle
// node.
var genericPriceKeys = []string{"base_charge", "service_charge", "price", "amount"}

// metadataKeys are never interpreted as a nested domain/vehicle node or a
// price field; they are technician-authored free text or auxiliary data.
var metadataKeys = map[string]bool{
	"description":   true,
	"notes":         true,
	"work_included": true,
	"free_distance": true,
	"currency":      true,
	"unit":          true,
}

// PricingResolverService resolves the technician-specific amount for a
// request from the technician's own pricing trees. It does not fall back to
// the request's stored amount or the platform's service matrix; the Dispatch
// Engine's resolveAmount applies those fallbacks in that order.
type PricingResolverService interface {
	// ResolveTechnicianAmount walks a technician's pricing/service_costs
	// trees for an entry matching domain (and, preferably, vehicle).
	// Returns (amount, true) on a match, (0, false) if nothing positive
	// was found.
	ResolveTechnicianAmount(pricing, serviceCosts map[string]interface{}, domain normentities.ServiceDomain, vehicle normentities.VehicleFamily) (float64, bool)
}

type pricingResolverServiceImpl struct {
	normalizer normservices.NormalizerService
	logger     logger.Logger
}

// NewPricingResolverService builds the Pricing Resolver.
func NewPricingResolverService(normalizer normservices.NormalizerService, logger logger.Logger) PricingResolverService {
	return &pricingResolverServiceImpl{normalizer: normalizer, logger: logger}
}

func (s *pricingResolverServiceImpl) ResolveTechnicianAmount(pricing, serviceCosts map[string]interface{}, domain normentities.ServiceDomain, vehicle normentities.VehicleFamily) (float64, bool) {
	for _, tree := range []map[string]interface{}{serviceCosts, pricing} {
		if amount, ok := s.searchTree(tree, domain, vehicle, 0); ok {
			return amount, true
		}
	}
	return 0, false
}

// searchTree recurses through a technician's free-form cost structure
// looking for a key whose canonical domain matches, then prefers a
// vehicle-matched child node before falling back to generic price keys.
func (s *pricingResolverServiceImpl) searchTree(node map[string]interface{}, domain normentities.ServiceDomain, vehicle normentities.VehicleFamily, depth int) (float64, bool) {
	if depth > maxResolveDepth || node == nil {
		return 0, false
	}

	for key, value := range node {
		if metadataKeys[strings.ToLower(key)] {
			continue
		}
		if s.normalizer.CanonicalizeServiceDomain(key) != domain {
			continue
		}

		child, ok := value.(map[string]interface{})
		if !ok {
			if amount, ok := positiveNumber(value); ok {
				return amount, true
			}
			continue
		}

		if amount, ok := s.matchVehicleNode(child, vehicle, depth+1); ok {
			return amount, true
		}
		if amount, ok := s.extractGenericPrice(child); ok {
			return amount, true
		}
	}

	// No domain key matched at this level; recurse into nested maps in
	// case the domain keys live one level deeper than expected.
	for key, value := range node {
		if metadataKeys[strings.ToLower(key)] {
			continue
		}
		if child, ok := value.(map[string]interface{}); ok {
			if amount, ok := s.searchTree(child, domain, vehicle, depth+1); ok {
				return amount, true
			}
		}
	}

	return 0, false
}

// matchVehicleNode looks for a child keyed by the canonical vehicle family
// and returns its generic price, preferring the vehicle-specific node over
// the domain node's own generic keys.
func (s *pricingResolverServiceImpl) matchVehicleNode(domainNode map[string]interface{}, vehicle normentities.VehicleFamily, depth int) (float64, bool) {
	if depth > maxResolveDepth {
		return 0, false
	}
	for key, value := range domainNode {
		if metadataKeys[strings.ToLower(key)] {
			continue
		}
		if s.normalizer.CanonicalizeVehicleFamily(key) != vehicle {
			continue
		}
		if amount, ok := positiveNumber(value); ok {
			return amount, true
		}
		if child, ok := value.(map[string]interface{}); ok {
			if amount, ok := s.extractGenericPrice(child); ok {
				return amount, true
			}
		}
	}
	return 0, false
}

func (s *pricingResolverServiceImpl) extractGenericPrice(node map[string]interface{}) (float64, bool) {
	for _, key := range genericPriceKeys {
		if value, ok := node[key]; ok {
			if amount, ok := positiveNumber(value); ok {
				return amount, true
			}
		}
	}
	return 0, false
}

func positiveNumber(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		if v > 0 {
			return v, true
		}
	case int:
		if v > 0 {
			return float64(v), true
		}
	case int64:
		if v > 0 {
			return float64(v), true
		}
	}
	return 0, false
}
