package template

import (
	"fmt"

	"github.com/ppiankov/instaweb/internal/model"
)

// MismatchError reports a marker the template does not contain
type MismatchError struct {
	Selector   string
	TemplateID string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("Required template selector %q not found in template %q", e.Selector, e.TemplateID)
}

func (e *MismatchError) Is(target error) bool { return target == model.ErrTemplateMismatch }
