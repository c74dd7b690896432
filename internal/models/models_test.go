package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateUsername(t *testing.T) {
	cases := map[string]string{
		"Bruno Rocha":     "bruno-rocha",
		"Michael Scott":   "michael-scott",
		"  Pam  Beesly  ": "pam-beesly",
		"DWIGHT":          "dwight",
		"Ryan B. Howard":  "ryan-b-howard",
	}

	for name, want := range cases {
		assert.Equal(t, want, GenerateUsername(name), "name %q", name)
	}
}

func TestIsSuperuser(t *testing.T) {
	manager := User{Dept: SuperuserDept}
	assert.True(t, manager.IsSuperuser())

	sales := User{Dept: "sales"}
	assert.False(t, sales.IsSuperuser())

	capitalized := User{Dept: "Management"}
	assert.False(t, capitalized.IsSuperuser())
}
