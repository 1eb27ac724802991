// Package access holds the capability checks shared by the HTTP guards and
// the services.
package access

import "news-api/internal/domain/models"

// Predicate reports whether u holds a capability.
type Predicate func(u models.User) bool

func IsAdmin(u models.User) bool {
	return u.IsAdmin()
}

// IsVerifiedOrAdmin lets admins through regardless of their verification flag.
func IsVerifiedOrAdmin(u models.User) bool {
	return u.IsAdmin() || u.IsVerified
}

// IsOwner matches the article's author reference against u's public code.
func IsOwner(a models.Article) Predicate {
	return func(u models.User) bool {
		return u.UserID != "" && u.UserID == a.AuthorID
	}
}

func Any(preds ...Predicate) Predicate {
	return func(u models.User) bool {
		for _, p := range preds {
			if p(u) {
				return true
			}
		}
		return false
	}
}

func All(preds ...Predicate) Predicate {
	return func(u models.User) bool {
		for _, p := range preds {
			if !p(u) {
				return false
			}
		}
		return true
	}
}
