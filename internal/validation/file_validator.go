package validation

import (
	"fmt"
	"mime"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/assetflow/uploader/internal/domain"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("safe_filename", validateSafeFilename)
	_ = validate.RegisterValidation("media_type", validateMediaType)
}

// ValidateFiles checks every file spec before it is admitted to the batch.
func ValidateFiles(files []domain.FileSpec) error {
	for _, f := range files {
		if err := validate.Var(f.Name, "required,max=255,safe_filename"); err != nil {
			return fmt.Errorf("invalid file name %q: %w", f.Name, err)
		}
		if f.Size <= 0 {
			return fmt.Errorf("invalid size for %q: %d", f.Name, f.Size)
		}
		if f.ModTime.IsZero() {
			return fmt.Errorf("missing modification time for %q", f.Name)
		}
		if err := validate.Var(f.ContentType, "required,media_type"); err != nil {
			return fmt.Errorf("invalid content type %q for %q: %w", f.ContentType, f.Name, err)
		}
	}
	return nil
}

func validateSafeFilename(fl validator.FieldLevel) bool {
	name := fl.Field().String()

	if strings.ContainsAny(name, `/\`) {
		return false
	}
	if strings.Contains(name, "..") {
		return false
	}
	if strings.TrimSpace(name) == "" {
		return false
	}
	return true
}

func validateMediaType(fl validator.FieldLevel) bool {
	_, _, err := mime.ParseMediaType(fl.Field().String())
	return err == nil
}
