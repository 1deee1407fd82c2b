package types

import "fmt"

type ABTag = uint64

type ABVersion uint64

type Versioned interface {
	GetVersion() ABVersion
}

// CBOR tags of the messages relayed between the ledgers and of the records
// kept in the store.
const (
	_ = iota + ABTag(1040)
	SignedBatchTag
	FraudProofTag
	TicketRecordTag
	BatchAuthorizationTag
	TokenPairTag
)

// EnsureVersion checks that the decoded version of the data item is the
// expected one.
func EnsureVersion(data Versioned, actual, expected ABVersion) error {
	if actual != expected {
		return fmt.Errorf("invalid version (type %T), expected %d, got %d", data, expected, actual)
	}
	return nil
}
