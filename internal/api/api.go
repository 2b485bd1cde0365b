package api

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
)

// Deps are the services the API handlers are built from.
type Deps struct {
	Auth          service.IAuthService
	Users         service.IUserService
	Recipes       service.IRecipeService
	Subscriptions service.ISubscriptionService
	Tags          service.ITagService
	Ingredients   service.IIngredientService
	Images        service.IImageService
	// RecipeLimiter limits recipe creation per user; nil disables it.
	RecipeLimiter *middleware.RateLimiter
}

// SetupAPI registers every /api/ route on router.
func SetupAPI(router gin.IRouter, deps Deps) {
	RegisterValidators()

	group := router.Group("/api")
	{
		NewAuthHandler(deps.Auth).RegisterRoutes(group)
		NewUserHandler(deps.Users, deps.Subscriptions, deps.Auth).RegisterRoutes(group)
		NewRecipeHandler(deps.Recipes, deps.Subscriptions, deps.Images, deps.Auth, deps.RecipeLimiter).RegisterRoutes(group)
		NewTagHandler(deps.Tags).RegisterRoutes(group)
		NewIngredientHandler(deps.Ingredients).RegisterRoutes(group)
	}
}

var registerOnce sync.Once

// RegisterValidators installs the custom binding rules and reports binding
// errors by their JSON (or form) field names.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(fieldName)
		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return service.ValidUsername(fl.Field().String())
		})
		_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			return service.ValidSlug(fl.Field().String())
		})
	})
}

func fieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return "-"
	}
	if name == "" {
		name, _, _ = strings.Cut(fld.Tag.Get("form"), ",")
	}
	if name == "" || name == "-" {
		return fld.Name
	}
	return name
}
