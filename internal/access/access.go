// Package access holds the permission rules shared by the HTTP handlers.
package access

import (
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
)

// Actor is whoever issued the request. The zero value is anonymous.
type Actor struct {
	UserID  uint
	IsStaff bool
}

// Authenticated reports whether the actor is logged in.
func (a Actor) Authenticated() bool {
	return a.UserID != 0
}

// RequireAuthenticated returns ErrUnauthenticated for anonymous actors.
func RequireAuthenticated(a Actor) error {
	if !a.Authenticated() {
		return service.ErrUnauthenticated
	}
	return nil
}

// CanModifyRecipe allows only the recipe's author to update or delete it.
func CanModifyRecipe(a Actor, recipe *models.Recipe) error {
	if err := RequireAuthenticated(a); err != nil {
		return err
	}
	if recipe.AuthorID != a.UserID {
		return service.ErrForbidden
	}
	return nil
}
