package common

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/tchajed/goose/machine"
)

type Bnum = uint64

const NULLBNUM Bnum = 0

// ObjectId names an object; all of its versions share it.
type ObjectId uint64

// VersionId names one immutable version of an object.
type VersionId uint64

// TransactionId names a transaction for as long as it is open.
type TransactionId uint64

const (
	NULLOBJECT  ObjectId      = 0
	NULLVERSION VersionId     = 0
	NULLTXN     TransactionId = 0
)

// random returns a non-zero random id; zero is reserved for "none".
func random() uint64 {
	for {
		if x := machine.RandomUint64(); x != 0 {
			return x
		}
	}
}

func NewObjectId() ObjectId           { return ObjectId(random()) }
func NewVersionId() VersionId         { return VersionId(random()) }
func NewTransactionId() TransactionId { return TransactionId(random()) }

func (id ObjectId) String() string      { return fmt.Sprintf("%016x", uint64(id)) }
func (id VersionId) String() string     { return fmt.Sprintf("%016x", uint64(id)) }
func (id TransactionId) String() string { return fmt.Sprintf("%016x", uint64(id)) }

// ParseObjectId parses the hexadecimal form produced by ObjectId.String.
func ParseObjectId(s string) (ObjectId, error) {
	x, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return NULLOBJECT, errors.Wrapf(err, "bad object id %q", s)
	}
	return ObjectId(x), nil
}

// ParseVersionId parses the hexadecimal form produced by VersionId.String.
func ParseVersionId(s string) (VersionId, error) {
	x, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return NULLVERSION, errors.Wrapf(err, "bad version id %q", s)
	}
	return VersionId(x), nil
}

// NewDeviceId returns the identity stamped on a device when it is formatted.
func NewDeviceId() uint64 { return random() }
