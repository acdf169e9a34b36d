package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"git.solsynth.dev/hypernet/murmur/pkg/internal/media"
	"git.solsynth.dev/hypernet/murmur/pkg/internal/models"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/marshaler"
	"github.com/eko/gocache/lib/v4/store"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const MinPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

type AccountService struct {
	db    *gorm.DB
	media media.Store
	cache *marshaler.Marshaler
}

// NewAccountService builds the account service. The cache store is optional.
func NewAccountService(db *gorm.DB, mediaStore media.Store, cacheStore store.StoreInterface) *AccountService {
	svc := &AccountService{db: db, media: mediaStore}
	if cacheStore != nil {
		svc.cache = marshaler.New(cache.New[any](cacheStore))
	}
	return svc
}

type SignUpInput struct {
	FullName string
	Username string
	Email    string
	Password string
}

func (v *AccountService) SignUp(ctx context.Context, in SignUpInput) (models.User, error) {
	var user models.User

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if len(in.Username) == 0 {
		return user, fmt.Errorf("%w: username is required", ErrValidation)
	}
	if !emailPattern.MatchString(in.Email) {
		return user, fmt.Errorf("%w: invalid email format", ErrValidation)
	}
	if len(in.Password) < MinPasswordLength {
		return user, fmt.Errorf("%w: password must be at least %d characters long", ErrValidation, MinPasswordLength)
	}

	tx := v.db.WithContext(ctx)
	if err := v.ensureAvailable(tx, "username", in.Username, 0); err != nil {
		return user, err
	}
	if err := v.ensureAvailable(tx, "email", in.Email, 0); err != nil {
		return user, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return user, fmt.Errorf("%w: unable to hash password: %v", ErrUnexpected, err)
	}

	user = models.User{
		Username: in.Username,
		Email:    in.Email,
		FullName: in.FullName,
		Password: string(hash),

		Followers:       datatypes.JSONSlice[uint]{},
		Following:       datatypes.JSONSlice[uint]{},
		LikedPosts:      datatypes.JSONSlice[uint]{},
		BookmarkedPosts: datatypes.JSONSlice[uint]{},
	}
	if err := tx.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return user, fmt.Errorf("%w: username or email already exists", ErrConflict)
		}
		return user, fmt.Errorf("%w: unable to create user: %v", ErrUnexpected, err)
	}

	log.Info().Uint("user", user.ID).Str("username", user.Username).Msg("A new user signed up.")
	return user, nil
}

// Authenticate checks the credentials. Unknown users and wrong passwords are
// reported the same way.
func (v *AccountService) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	var user models.User
	err := v.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return user, fmt.Errorf("%w: unable to get user: %v", ErrUnexpected, err)
	}
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return models.User{}, fmt.Errorf("%w: invalid username or password", ErrValidation)
	}
	return user, nil
}

func (v *AccountService) GetUser(ctx context.Context, id uint) (models.User, error) {
	return getUser(v.db.WithContext(ctx), id)
}

func (v *AccountService) GetUserByName(ctx context.Context, username string) (models.User, error) {
	id, err := v.LookupUserID(ctx, username)
	if err != nil {
		return models.User{}, err
	}
	return v.GetUser(ctx, id)
}

func userNameCacheKey(username string) string {
	return fmt.Sprintf("user-id-by-name#%s", username)
}

// LookupUserID resolves a username to an id, going through the cache first.
func (v *AccountService) LookupUserID(ctx context.Context, username string) (uint, error) {
	key := userNameCacheKey(username)
	if v.cache != nil {
		if val, err := v.cache.Get(ctx, key, new(uint)); err == nil {
			if id, ok := val.(*uint); ok && id != nil && *id > 0 {
				return *id, nil
			}
		}
	}

	var user models.User
	if err := v.db.WithContext(ctx).Select("id").Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("%w: user %s", ErrNotFound, username)
		}
		return 0, fmt.Errorf("%w: unable to get user: %v", ErrUnexpected, err)
	}

	if v.cache != nil {
		_ = v.cache.Set(ctx, key, user.ID, store.WithExpiration(5*time.Minute))
	}
	return user.ID, nil
}

func (v *AccountService) SearchUsers(ctx context.Context, probe string, page Pagination) ([]models.User, error) {
	probe = strings.ToLower(strings.TrimSpace(probe))
	if len(probe) == 0 {
		return nil, fmt.Errorf("%w: query is required", ErrValidation)
	}
	probe = "%" + probe + "%"

	var users []models.User
	if err := page.Apply(v.db.WithContext(ctx)).
		Where("LOWER(username) LIKE ? OR LOWER(full_name) LIKE ?", probe, probe).
		Order("username ASC").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("%w: unable to search users: %v", ErrUnexpected, err)
	}
	return users, nil
}

type ProfilePatch struct {
	FullName        string
	Email           string
	Username        string
	Bio             string
	Link            string
	CurrentPassword string
	NewPassword     string
	ProfileImg      string
	CoverImg        string
}

// UpdateProfile applies the non-empty fields of the patch.
func (v *AccountService) UpdateProfile(ctx context.Context, userID uint, patch ProfilePatch) (models.User, error) {
	tx := v.db.WithContext(ctx)
	user, err := getUser(tx, userID)
	if err != nil {
		return user, err
	}
	previousName := user.Username

	if patch.Username != "" && patch.Username != user.Username {
		if err := v.ensureAvailable(tx, "username", patch.Username, user.ID); err != nil {
			return user, err
		}
		user.Username = patch.Username
	}
	if patch.Email != "" && patch.Email != user.Email {
		if !emailPattern.MatchString(patch.Email) {
			return user, fmt.Errorf("%w: invalid email format", ErrValidation)
		}
		if err := v.ensureAvailable(tx, "email", patch.Email, user.ID); err != nil {
			return user, err
		}
		user.Email = patch.Email
	}

	if (patch.NewPassword == "") != (patch.CurrentPassword == "") {
		return user, fmt.Errorf("%w: please provide both current and new password", ErrValidation)
	}
	if patch.NewPassword != "" {
		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(patch.CurrentPassword)) != nil {
			return user, fmt.Errorf("%w: current password is incorrect", ErrValidation)
		}
		if len(patch.NewPassword) < MinPasswordLength {
			return user, fmt.Errorf("%w: password must be at least %d characters long", ErrValidation, MinPasswordLength)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(patch.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return user, fmt.Errorf("%w: unable to hash password: %v", ErrUnexpected, err)
		}
		user.Password = string(hash)
	}

	if patch.FullName != "" {
		user.FullName = patch.FullName
	}
	if patch.Bio != "" {
		user.Bio = patch.Bio
	}
	if patch.Link != "" {
		user.Link = patch.Link
	}

	var uploaded, replaced []string
	if patch.ProfileImg != "" {
		ref, err := uploadMedia(ctx, v.media, "avatars", patch.ProfileImg)
		if err != nil {
			return user, err
		}
		uploaded = append(uploaded, ref)
		if user.ProfileImg != "" {
			replaced = append(replaced, user.ProfileImg)
		}
		user.ProfileImg = ref
	}
	if patch.CoverImg != "" {
		ref, err := uploadMedia(ctx, v.media, "banners", patch.CoverImg)
		if err != nil {
			v.releaseAll(ctx, uploaded)
			return user, err
		}
		uploaded = append(uploaded, ref)
		if user.CoverImg != "" {
			replaced = append(replaced, user.CoverImg)
		}
		user.CoverImg = ref
	}

	if err := tx.Save(&user).Error; err != nil {
		v.releaseAll(ctx, uploaded)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return user, fmt.Errorf("%w: username or email already exists", ErrConflict)
		}
		return user, fmt.Errorf("%w: unable to update user: %v", ErrUnexpected, err)
	}
	v.releaseAll(ctx, replaced)

	if v.cache != nil && previousName != user.Username {
		_ = v.cache.Delete(ctx, userNameCacheKey(previousName))
	}

	return user, nil
}

func (v *AccountService) ensureAvailable(tx *gorm.DB, column, value string, self uint) error {
	var count int64
	if err := tx.Model(&models.User{}).
		Where(column+" = ? AND id <> ?", value, self).
		Count(&count).Error; err != nil {
		return fmt.Errorf("%w: unable to check %s: %v", ErrUnexpected, column, err)
	}
	if count > 0 {
		return fmt.Errorf("%w: %s already exists", ErrConflict, column)
	}
	return nil
}

func (v *AccountService) releaseAll(ctx context.Context, refs []string) {
	for _, ref := range refs {
		releaseMedia(ctx, v.media, &ref)
	}
}
