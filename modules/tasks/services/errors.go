package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iota-uz/taskgate/pkg/serrors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateStruct converts validator failures into InvalidInput naming the first bad field.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	if fe.Tag() == "required" {
		return serrors.NewFieldRequiredError(fe.Field())
	}
	return serrors.InvalidInput("TASK_INVALID_FIELD", fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())).
		WithMeta("field", fe.Field())
}

// mapPgError classifies storage errors. Errors already classified pass
// through; anything unrecognized is returned unchanged and surfaces as internal.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var se *serrors.Error
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return serrors.New(serrors.KindNotFound, "TASKS_NOT_FOUND", "not found", err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505": // unique_violation
		recordWriteConflict("unique")
		return serrors.New(serrors.KindConflict, "TASKS_DUPLICATE", "duplicate record", err)
	case "23503": // foreign_key_violation
		recordWriteConflict("foreign_key")
		return serrors.New(serrors.KindInvalidInput, "TASKS_INVALID_REFERENCE", "referenced record does not exist", err)
	case "23514": // check_violation
		return serrors.New(serrors.KindInvalidInput, "TASKS_CONSTRAINT_VIOLATION", "value violates a constraint", err)
	case "40001", "40P01": // serialization_failure, deadlock_detected
		recordWriteConflict("serialization")
		return err
	default:
		return err
	}
}
