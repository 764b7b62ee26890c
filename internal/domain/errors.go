package domain

import (
	"github.com/pkg/errors"
)

// ErrRecordNotFound is returned by repositories when a lookup misses.
var ErrRecordNotFound = errors.New("record not found")

type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindNotFound
	KindConflict
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	}
	return "unknown"
}

// Error is a classified business error. Message is safe to show to callers.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func Validation(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Conflict(msg string) error {
	return &Error{Kind: KindConflict, Message: msg}
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsValidation(err error) bool { return KindOf(err) == KindValidation }

func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

func IsConflict(err error) bool { return KindOf(err) == KindConflict }

// Engine and catalog messages.
const (
	MsgTitleRequired        = "title is required"
	MsgCategoryNotExist     = "category does not exist"
	MsgCategoryRequired     = "category is required"
	MsgIngredientsRequired  = "ingredients are required"
	MsgIngredientName       = "ingredient name required"
	MsgQuantityPositive     = "quantity must be > 0"
	MsgUnitRequired         = "unit required"
	MsgServingsPositive     = "servings must be greater than 0"
	MsgRecipeNotFound       = "recipe not found"
	MsgArchivedNotEditable  = "archived recipes cannot be edited"
	MsgPublishedNoDelete    = "published recipes cannot be deleted; archive them instead"
	MsgArchivedNoPublish    = "archived recipes cannot be published"
	MsgRecipeIDsRequired    = "recipeIds must be a non-empty array"
	MsgIngredientNotFound   = "ingredient not found"
	MsgInvalidStatusFilter  = "invalid status filter"
	MsgNameRequired         = "name is required"
	MsgCategoryNameUnique   = "category name must be unique"
	MsgCategoryNotFound     = "category not found"
	MsgCategoryHasRecipes   = "cannot delete category with recipes"
	MsgIngredientNameUnique = "ingredient name must be unique"
	MsgIngredientInUse      = "ingredient is used by recipes"
)
