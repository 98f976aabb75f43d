package dto

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/jhoicas/inventario-sucursales/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// quantityFields campos cuyo fallo se reporta como cantidad inválida.
var quantityFields = map[string]struct{}{"Quantity": {}, "Delta": {}}

// Validate aplica las etiquetas validate del struct y traduce el primer fallo a un error de dominio.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	for _, fe := range verrs {
		if _, ok := quantityFields[fe.Field()]; ok {
			return fmt.Errorf("%w: %s=%v", domain.ErrInvalidQuantity, fe.Namespace(), fe.Value())
		}
	}
	fe := verrs[0]
	return fmt.Errorf("%w: %s no cumple %s", domain.ErrInvalidInput, fe.Namespace(), fe.Tag())
}
