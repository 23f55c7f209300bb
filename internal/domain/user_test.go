package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUser_FullName(t *testing.T) {
	assert.Equal(t, "Ana Lima", (&User{FirstName: "Ana", LastName: "Lima"}).FullName())
	assert.Equal(t, "Ana", (&User{FirstName: "Ana"}).FullName())
	assert.Equal(t, "ana@example.com", (&User{Email: "ana@example.com"}).FullName())
}

func TestUser_IsBusinessCustomer(t *testing.T) {
	assert.True(t, (&User{CompanyName: "Stone & Co"}).IsBusinessCustomer())
	assert.False(t, (&User{CompanyName: "   "}).IsBusinessCustomer())
	assert.False(t, (&User{}).IsBusinessCustomer())
}
