package util

import (
	"fmt"
	"math/rand"
)

func GetRandomNumber() int {
	min := 111111
	max := 999999
	return rand.Intn(max-min) + min
}

// Nickname returns a placeholder display name such as "User482913".
func Nickname() string {
	return fmt.Sprintf("User%d", GetRandomNumber())
}
