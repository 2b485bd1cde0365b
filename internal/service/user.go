package service

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/pageza/foodgram/backend/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const MinPasswordLength = 8

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// ValidUsername reports whether s only uses letters, digits and @.+-_
func ValidUsername(s string) bool {
	return usernamePattern.MatchString(s)
}

// RegisterInput is a new account.
type RegisterInput struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
	Password  string
	IsStaff   bool
}

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// Register validates and stores a new user with a bcrypt password hash.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	verr := &ValidationError{}
	if in.Email == "" {
		verr.Add("email", "this field is required")
	}
	if in.Username == "" {
		verr.Add("username", "this field is required")
	} else if !ValidUsername(in.Username) {
		verr.Add("username", "enter a valid username: letters, digits and @/./+/-/_ only")
	}
	if in.FirstName == "" {
		verr.Add("first_name", "this field is required")
	}
	if in.LastName == "" {
		verr.Add("last_name", "this field is required")
	}
	for _, msg := range CheckPassword(in.Password, in.Username, in.Email) {
		verr.Add("password", msg)
	}

	db := s.db.WithContext(ctx)
	if in.Email != "" {
		taken, err := exists(db, &models.User{}, "email = ?", in.Email)
		if err != nil {
			return nil, err
		}
		if taken {
			verr.Add("email", "user with this email already exists")
		}
	}
	if in.Username != "" {
		taken, err := exists(db, &models.User{}, "username = ?", in.Username)
		if err != nil {
			return nil, err
		}
		if taken {
			verr.Add("username", "user with this username already exists")
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        in.Email,
		Username:     in.Username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: string(hash),
		IsStaff:      in.IsStaff,
	}
	if err := db.Create(user).Error; err != nil {
		return nil, duplicate(err, NonFieldErrors)
	}
	return user, nil
}

// Get returns the user with id.
func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// List returns one page of users ordered by id and the total count.
func (s *UserService) List(ctx context.Context, limit, offset int) ([]models.User, int64, error) {
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	if err := db.Order("id").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// SetPassword replaces the password after checking the current one.
func (s *UserService) SetPassword(ctx context.Context, userID uint, current, next string) error {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return NewValidationError("current_password", "invalid password")
	}

	verr := &ValidationError{}
	for _, msg := range CheckPassword(next, user.Username, user.Email) {
		verr.Add("new_password", msg)
	}
	if err := verr.OrNil(); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(user).Update("password_hash", string(hash)).Error
}

// CheckPassword applies the password policy and returns every violated rule.
func CheckPassword(password, username, email string) []string {
	var problems []string
	if len([]rune(password)) < MinPasswordLength {
		problems = append(problems, "this password is too short, it must contain at least 8 characters")
	}
	if password != "" && strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		problems = append(problems, "this password is entirely numeric")
	}

	lowered := strings.ToLower(password)
	if username != "" && lowered == strings.ToLower(username) {
		problems = append(problems, "the password is too similar to the username")
	}
	if local, _, ok := strings.Cut(email, "@"); ok && local != "" && lowered == strings.ToLower(local) {
		problems = append(problems, "the password is too similar to the email")
	}
	return problems
}

func exists(db *gorm.DB, model interface{}, query string, args ...interface{}) (bool, error) {
	var count int64
	if err := db.Model(model).Where(query, args...).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
