package main

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/ssau-fiit/codeshare-api/config"
)

type CreateDocRequest struct {
	Language string `json:"language"`
}

func (r CreateDocRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Language, validation.RuneLength(0, config.MaxLanguageLength)),
	)
}
