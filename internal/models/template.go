package models

import (
	"fmt"
	"time"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Template is a named list of action texts per category used to pre-populate a day.
type Template struct {
	Name      string                `json:"name"`
	Actions   map[Category][]string `json:"actions"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// Validate validates the template.
func (t *Template) Validate() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.Name, validation.Required, validation.RuneLength(1, MaxGoalLength)),
		validation.Field(&t.Actions, validation.By(func(any) error {
			for c, texts := range t.Actions {
				if !c.Valid() {
					return fmt.Errorf("unknown category %q", c)
				}
				if len(texts) > MaxActions {
					return fmt.Errorf("%s has %d actions, at most %d allowed", c, len(texts), MaxActions)
				}
				for _, s := range texts {
					if utf8.RuneCountInString(s) > MaxActionLength {
						return fmt.Errorf("%s action exceeds %d characters", c, MaxActionLength)
					}
				}
			}
			return nil
		})),
	)
}
