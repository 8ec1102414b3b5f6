package utils

import (
	"github.com/google/uuid"
)

// GenerateID generates a random record ID
func GenerateID() string {
	return uuid.NewString()
}
