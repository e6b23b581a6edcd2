package eligibility

import "github.com/satyamkes/JanSahyog/internal/models"

// Restriction is either unrestricted or restricted to a set of tags.
// Stored criteria use the "All" tag (or an empty list) to mean unrestricted;
// that sentinel is resolved here and never compared against applicant data.
type Restriction struct {
	restricted bool
	tags       map[string]struct{}
}

// Unrestricted allows every tag.
func Unrestricted() Restriction {
	return Restriction{}
}

// RestrictedTo allows only the given tags.
func RestrictedTo(tags ...string) Restriction {
	r := Restriction{restricted: true, tags: make(map[string]struct{}, len(tags))}
	for _, t := range tags {
		r.tags[t] = struct{}{}
	}
	return r
}

// RestrictionFromList converts a stored tag list. An empty list or one that
// contains "All" is unrestricted; the other listed tags are still recorded.
func RestrictionFromList(values []string) Restriction {
	r := RestrictedTo()
	for _, v := range values {
		if v == models.TagAll {
			r.restricted = false
			continue
		}
		r.tags[v] = struct{}{}
	}
	if len(values) == 0 {
		r.restricted = false
	}
	return r
}

// RestrictionFromValue converts a single stored value such as a gender.
func RestrictionFromValue(value string) Restriction {
	if value == "" || value == models.TagAll {
		return Unrestricted()
	}
	return RestrictedTo(value)
}

// IsRestricted reports whether only some tags are allowed.
func (r Restriction) IsRestricted() bool {
	return r.restricted
}

// Allows reports whether tag passes the restriction.
func (r Restriction) Allows(tag string) bool {
	if !r.restricted {
		return true
	}
	return r.Names(tag)
}

// Names reports whether tag is explicitly listed, regardless of "All".
func (r Restriction) Names(tag string) bool {
	if tag == "" {
		return false
	}
	_, ok := r.tags[tag]
	return ok
}
