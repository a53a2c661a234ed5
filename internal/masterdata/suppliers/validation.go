package suppliers

import (
	"strings"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

func validate(sup Supplier) error {
	if strings.TrimSpace(sup.Code) == "" {
		return &shared.ValidationError{Field: "code", Reason: "required"}
	}
	if strings.TrimSpace(sup.Name) == "" {
		return &shared.ValidationError{Field: "name", Reason: "required"}
	}
	return nil
}
