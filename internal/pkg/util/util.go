package util

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

const idSuffixAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateTimestampWithPrefix builds a sortable, human-quotable identifier
// like "WL-20260901T120000-4F7K". Creation order survives lexicographic
// ordering, which the waiting list relies on as a FIFO tiebreaker.
func GenerateTimestampWithPrefix(prefix string) string {
	suffix := make([]byte, 4)
	for i := range suffix {
		suffix[i] = idSuffixAlphabet[rand.Intn(len(idSuffixAlphabet))]
	}

	return fmt.Sprintf("%s-%s-%s", prefix, time.Now().UTC().Format("20060102T150405.000000000"), suffix)
}

// GenerateUUIDWithPrefix builds an opaque identifier like
// "TKT-0f8fad5b-d9cb-469f-a165-70867728950e" for records that carry no
// ordering semantics.
func GenerateUUIDWithPrefix(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}
