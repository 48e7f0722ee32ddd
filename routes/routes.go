// Package routes classifies navigation paths into the access classes the
// guard acts on. Classification is pure: no I/O, no state.
package routes

import (
	"net/url"
	"strings"
)

// Kind identifies the access class of a path.
type Kind int

const (
	// Exempt paths render without any guard verification.
	Exempt Kind = iota
	// StoreScoped paths are public store pages keyed by a store slug;
	// the guard verifies the store exists.
	StoreScoped
	// DashboardScoped paths are seller dashboard pages keyed by a store
	// slug; the guard verifies existence and role/ownership.
	DashboardScoped
	// Other paths carry no slug and need no existence check.
	Other
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Exempt:
		return "exempt"
	case StoreScoped:
		return "store"
	case DashboardScoped:
		return "dashboard"
	default:
		return "other"
	}
}

// Class is the classification of a single path evaluation.
// Slug is empty for Exempt and Other, and may be empty for scoped kinds
// when the slug segment is missing; the guard treats that as a failure.
type Class struct {
	Kind Kind
	Slug string
}

// Exempt path prefixes: the landing page, onboarding flow, and payment
// return pages must render before any store can exist.
var exemptPrefixes = []string{"/onboarding", "/payment"}

// Classify derives the access class of a navigation path.
//
//	/                     → Exempt
//	/onboarding/step-2    → Exempt
//	/payment/success      → Exempt
//	/dashboard/acme       → DashboardScoped{acme}
//	/boutique/acme        → StoreScoped{acme}
//	/checkout/acme/confirm → StoreScoped{acme}
//	/about                → Other
func Classify(path string) Class {
	if path == "" || path == "/" {
		return Class{Kind: Exempt}
	}
	for _, prefix := range exemptPrefixes {
		if strings.HasPrefix(path, prefix) {
			return Class{Kind: Exempt}
		}
	}

	segments := splitPath(path)
	if len(segments) == 0 {
		return Class{Kind: Exempt}
	}

	if segments[0] == "dashboard" {
		return Class{Kind: DashboardScoped, Slug: slugSegment(segments, 1)}
	}

	// Any other path with a second segment is a store page keyed by slug
	// (checkout, orders, product pages). Single-segment paths carry no slug.
	if len(segments) >= 2 {
		return Class{Kind: StoreScoped, Slug: slugSegment(segments, 1)}
	}

	return Class{Kind: Other}
}

// splitPath splits a path into its non-empty segments.
func splitPath(path string) []string {
	raw := strings.Split(strings.Trim(path, "/"), "/")
	segments := make([]string, 0, len(raw))
	for _, s := range raw {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// slugSegment URI-decodes the segment at index i, or returns "" if absent.
// An undecodable segment is returned raw; the guard's store lookup will
// reject it.
func slugSegment(segments []string, i int) string {
	if i >= len(segments) {
		return ""
	}
	decoded, err := url.PathUnescape(segments[i])
	if err != nil {
		return segments[i]
	}
	return decoded
}
