package auth

import "crypto/subtle"

// SecureCompareBytes compares provided against expected in constant time,
// including across mismatched lengths.
//
// crypto/subtle.ConstantTimeCompare alone is not enough here: it returns 0
// immediately for differing lengths without doing the comparison work,
// which leaks length information through timing. Per spec.md §4.1 step 3,
// a mismatched-length compare must still consume the same time envelope as
// a full compare of the longer buffer, so both inputs are zero-padded to
// the longer length before comparing, and the length check itself is folded
// in as a constant-time equality rather than a branch.
func SecureCompareBytes(provided, expected []byte) bool {
	maxLen := len(expected)
	if len(provided) > maxLen {
		maxLen = len(provided)
	}

	paddedProvided := make([]byte, maxLen)
	copy(paddedProvided, provided)
	paddedExpected := make([]byte, maxLen)
	copy(paddedExpected, expected)

	bytesEqual := subtle.ConstantTimeCompare(paddedProvided, paddedExpected)
	lengthsEqual := subtle.ConstantTimeEq(int32(len(provided)), int32(len(expected)))

	return bytesEqual&lengthsEqual == 1
}

// SecureCompareStrings is the string-valued convenience wrapper used for
// opaque value comparisons (refresh-token fingerprints, OTP codes).
func SecureCompareStrings(provided, expected string) bool {
	return SecureCompareBytes([]byte(provided), []byte(expected))
}
