package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserValidate(t *testing.T) {
	user := &User{
		Name:   "Jamie Doe",
		Email:  "jamie@example.com",
		Status: STATUS_ACTIVE,
	}
	assert.NoError(t, user.Validate())
}

func TestUserValidateRejectsBadEmail(t *testing.T) {
	user := &User{
		Name:   "Jamie Doe",
		Email:  "not-an-email",
		Status: STATUS_ACTIVE,
	}
	assert.Error(t, user.Validate())
}

func TestUserValidateRejectsUnknownStatus(t *testing.T) {
	user := &User{
		Name:   "Jamie Doe",
		Email:  "jamie@example.com",
		Status: "suspended",
	}
	assert.Error(t, user.Validate())
}
