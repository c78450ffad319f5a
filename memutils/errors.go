package memutils

import "github.com/pkg/errors"

// PowerOfTwoError is the error returned from CheckPow2 or other methods if the number being tested is not a power of two
var PowerOfTwoError error = errors.New("number must be a power of two")

// ErrOutOfMemory is returned by heap consumers when the active allocation strategy could not
// satisfy a request. Allocation strategies themselves never return it: they report failure
// with a null address and leave the decision to the caller.
var ErrOutOfMemory error = errors.New("out of memory")

// ErrAddressOverflow is returned when address arithmetic would wrap around the address space
var ErrAddressOverflow error = errors.New("address arithmetic overflowed")
