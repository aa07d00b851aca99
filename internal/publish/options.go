package publish

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-docshare/internal/fault"
)

const (
	DefaultExpireDays = 30
	MaxExpireDays     = 365
	MinPasswordLength = 4
)

// ShareOptions controls how the registry exposes a share.
type ShareOptions struct {
	RequirePassword bool
	Password        string
	ExpireDays      int
	IsPublic        bool
}

// Validate checks the expiry window and, when a password is required, its
// length. A zero ExpireDays is rejected; Publish fills the default first.
func (o ShareOptions) Validate() error {
	err := validation.ValidateStruct(&o,
		validation.Field(&o.ExpireDays, validation.Required, validation.Min(1), validation.Max(MaxExpireDays)),
		validation.Field(&o.Password, validation.When(o.RequirePassword,
			validation.Required,
			validation.RuneLength(MinPasswordLength, 0),
		)),
	)
	if err != nil {
		return fault.Validation(err, "publish: invalid share options")
	}
	return nil
}

func (o ShareOptions) withDefaults() ShareOptions {
	if o.ExpireDays == 0 {
		o.ExpireDays = DefaultExpireDays
	}
	if !o.RequirePassword {
		o.Password = ""
	}
	return o
}
