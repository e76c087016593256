package models

import (
	"fmt"
	"strconv"
)

// UserID and ProductID are distinct integer types so a user id can never be
// passed where a product id is expected. Request parameters are parsed into
// them once at the HTTP boundary and never re-coerced downstream.
type UserID uint64

type ProductID uint64

func ParseUserID(s string) (UserID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid user id %q", s)
	}
	return UserID(v), nil
}

func ParseProductID(s string) (ProductID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid product id %q", s)
	}
	return ProductID(v), nil
}

func (id UserID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

func (id ProductID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}
