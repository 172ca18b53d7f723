package repository

import (
	"context"
	"errors"
	"strings"

	"schoolmates/internal/cache"
	"schoolmates/internal/models"

	"gorm.io/gorm"
)

// UserSearchFilter narrows a user search. Empty fields are ignored.
type UserSearchFilter struct {
	Query     string
	School    string
	Class     string
	Section   string
	Interests []string
	ExcludeID uint
	Limit     int
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ExistingIDs(ctx context.Context, ids []uint) ([]uint, error)
	Create(ctx context.Context, user *models.User) error
	UpdateFields(ctx context.Context, id uint, fields map[string]any) error
	SetOnline(ctx context.Context, id uint, online bool) error
	OnlineIDs(ctx context.Context) ([]uint, error)
	Search(ctx context.Context, filter UserSearchFilter) ([]models.User, error)
	FindByClass(ctx context.Context, class string, excludeID uint) ([]models.User, error)
	FindBySchool(ctx context.Context, school string, excludeID uint) ([]models.User, error)
	FindByAnyInterest(ctx context.Context, interests []string, excludeID uint) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// GetByID reads through the profile cache. The password hash is never cached,
// so callers that need it must use GetByEmail.
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := cache.Aside(ctx, cache.UserKey(id), cache.UserTTL, func() (models.User, error) {
		var u models.User
		if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return u, models.NewNotFoundError("User", id)
			}
			return u, models.NewInternalError(err)
		}
		return u, nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	users := []models.User{}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return users, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// GetByEmail returns nil, nil when no account uses email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// ExistingIDs returns the subset of ids that belong to real users, in input order.
func (r *userRepository) ExistingIDs(ctx context.Context, ids []uint) ([]uint, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return []uint{}, nil
	}

	var found []uint
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	present := make(map[uint]struct{}, len(found))
	for _, id := range found {
		present[id] = struct{}{}
	}
	out := make([]uint, 0, len(found))
	for _, id := range ids {
		if _, ok := present[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("User already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// UpdateFields applies a partial update keyed by column name.
func (r *userRepository) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.User{ID: id}).Updates(fields)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	cache.InvalidateUser(ctx, id)
	return nil
}

func (r *userRepository) SetOnline(ctx context.Context, id uint, online bool) error {
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("online", online).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, id)
	return nil
}

// OnlineIDs returns the ids of users currently flagged online, ascending.
func (r *userRepository) OnlineIDs(ctx context.Context) ([]uint, error) {
	ids := []uint{}
	if err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("online = ?", true).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *userRepository) Search(ctx context.Context, f UserSearchFilter) ([]models.User, error) {
	q := r.db.WithContext(ctx).Model(&models.User{})

	if f.ExcludeID != 0 {
		q = q.Where("id <> ?", f.ExcludeID)
	}
	if term := strings.ToLower(strings.TrimSpace(f.Query)); term != "" {
		like := "%" + models.EscapeLike(term) + "%"
		q = q.Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(school) LIKE ? ESCAPE '\' OR LOWER(class_name) LIKE ? ESCAPE '\' OR LOWER(section) LIKE ? ESCAPE '\')`,
			like, like, like, like)
	}
	if f.School != "" {
		q = q.Where("school = ?", f.School)
	}
	if f.Class != "" {
		q = q.Where("class_name = ?", f.Class)
	}
	if f.Section != "" {
		q = q.Where("section = ?", f.Section)
	}
	if interests := models.StringList(f.Interests).Normalize(); len(interests) > 0 {
		q = q.Where(anyInterest(r.db, interests))
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	users := []models.User{}
	if err := q.Order("name ASC, id ASC").Limit(limit).Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) FindByClass(ctx context.Context, class string, excludeID uint) ([]models.User, error) {
	return r.findWhere(ctx, excludeID, "class_name = ?", class)
}

func (r *userRepository) FindBySchool(ctx context.Context, school string, excludeID uint) ([]models.User, error) {
	return r.findWhere(ctx, excludeID, "school = ?", school)
}

func (r *userRepository) FindByAnyInterest(ctx context.Context, interests []string, excludeID uint) ([]models.User, error) {
	interests = models.StringList(interests).Normalize()
	if len(interests) == 0 {
		return []models.User{}, nil
	}
	return r.findWhere(ctx, excludeID, anyInterest(r.db, interests))
}

func (r *userRepository) findWhere(ctx context.Context, excludeID uint, query any, args ...any) ([]models.User, error) {
	users := []models.User{}
	if err := r.db.WithContext(ctx).
		Where(query, args...).
		Where("id <> ?", excludeID).
		Order("id ASC").
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// anyInterest builds "interests LIKE a OR interests LIKE b ..." as a grouped condition.
func anyInterest(db *gorm.DB, interests []string) *gorm.DB {
	cond := db.Session(&gorm.Session{NewDB: true})
	for i, interest := range interests {
		pattern := models.StringListLikePattern(interest)
		if i == 0 {
			cond = cond.Where(`interests LIKE ? ESCAPE '\'`, pattern)
		} else {
			cond = cond.Or(`interests LIKE ? ESCAPE '\'`, pattern)
		}
	}
	return cond
}
