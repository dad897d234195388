package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storageConfig struct {
	Driver string `validate:"oneof=memory file redis etcd sqlite postgres mysql"`
}

type apiConfig struct {
	BaseURL     string `validate:"required,url"`
	MaxAttempts int    `validate:"gte=1"`
	Storage     storageConfig
}

func TestValidateOK(t *testing.T) {
	err := Validate.Struct(&apiConfig{
		BaseURL:     "https://ehs.example.com",
		MaxAttempts: 3,
		Storage:     storageConfig{Driver: "file"},
	})
	assert.NoError(t, err)
}

func TestValidateErrors(t *testing.T) {
	err := Validate.Struct(&apiConfig{Storage: storageConfig{Driver: "floppy"}})
	require.Error(t, err)

	var errs Errors
	require.ErrorAs(t, err, &errs)
	assert.True(t, errs.Has("apiConfig.BaseURL"))
	assert.True(t, errs.Has("apiConfig.MaxAttempts"))
	assert.True(t, errs.Has("apiConfig.Storage.Driver"))
	assert.Contains(t, err.Error(), "BaseURL is a required field")
}

func TestValidateNil(t *testing.T) {
	assert.Error(t, Validate.Struct(nil))
}
