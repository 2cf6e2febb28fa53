package entity

import (
	"database/sql/driver"
	"fmt"
	"math/big"
)

// Amount is a non-negative token amount stored as NUMERIC.
type Amount struct {
	big.Int
}

func NewAmount(x *big.Int) *Amount {
	a := new(Amount)
	if x != nil {
		a.Set(x)
	}
	return a
}

func (a *Amount) BigInt() *big.Int {
	if a == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(&a.Int)
}

func (a *Amount) Value() (driver.Value, error) {
	if a == nil {
		return "0", nil
	}
	return a.String(), nil
}

func (a *Amount) Scan(src interface{}) error {
	var s string
	switch v := src.(type) {
	case nil:
		a.SetInt64(0)
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	case int64:
		a.SetInt64(v)
		return nil
	default:
		return fmt.Errorf("can't scan %T into amount", src)
	}
	if _, ok := a.SetString(s, 10); !ok {
		return fmt.Errorf("can't parse amount %q", s)
	}
	return nil
}
